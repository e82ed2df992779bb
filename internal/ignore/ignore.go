package ignore

import (
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultPatterns cover sync noise: dependency caches, VCS metadata, build
// output and the tool's own files. The differ, the deletion pass and the
// sample comparator all share one Matcher built from these so the three call
// sites cannot diverge.
var DefaultPatterns = []string{
	"node_modules/",
	".git/",
	"dist/",
	"build/",
	"out/",
	".next/",
	"coverage/",
	".cache/",
	".turbo/",
	"cdk.out/",
	".DS_Store",
	".tmplsync.json",
	".tmplsync/",
}

// SamplePatterns additionally cover files a user may touch without the
// sample counting as customized: lockfiles, environment files and READMEs.
var SamplePatterns = []string{
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	".env",
	".env.*",
	"README*",
}

// Matcher answers whether a tree-relative path is sync noise. Patterns use
// gitignore syntax, so bare names match at any depth.
type Matcher struct {
	gi *gitignore.GitIgnore
}

// NewMatcher builds the shared ignore predicate from DefaultPatterns plus
// any extra patterns.
func NewMatcher(extra ...string) *Matcher {
	lines := make([]string, 0, len(DefaultPatterns)+len(extra))
	lines = append(lines, DefaultPatterns...)
	lines = append(lines, extra...)
	return &Matcher{gi: gitignore.CompileIgnoreLines(lines...)}
}

// NewSampleMatcher builds the predicate used when comparing sample
// directories.
func NewSampleMatcher() *Matcher {
	return NewMatcher(SamplePatterns...)
}

// Match reports whether rel is ignored. isDir must be set for directories so
// trailing-slash patterns apply to them.
func (m *Matcher) Match(rel string, isDir bool) bool {
	p := filepath.ToSlash(rel)
	if isDir {
		p += "/"
	}
	return m.gi.MatchesPath(p)
}
