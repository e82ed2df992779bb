package protect

import (
	"path"
	"strings"

	"github.com/schaermu/tmplsync/internal/syncconfig"
)

// CustomSegmentPrefix marks path segments that always belong to the user.
// Any file or directory whose name starts with this prefix is protected
// regardless of the configured rule lists.
const CustomSegmentPrefix = "custom-"

// Rule matches fork-relative slash-separated paths against one protection
// pattern.
type Rule interface {
	Matches(rel string) bool
	Pattern() string
}

// segmentPrefixRule protects every path containing a segment with the given
// name prefix. It backs the unconditional custom- rule.
type segmentPrefixRule struct {
	prefix string
}

func (r segmentPrefixRule) Matches(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, r.prefix) {
			return true
		}
	}
	return false
}

func (r segmentPrefixRule) Pattern() string { return r.prefix + "*" }

// dirPrefixRule protects an entire subtree, written with a trailing slash
// ("docs/").
type dirPrefixRule struct {
	pattern string
}

func (r dirPrefixRule) Matches(rel string) bool {
	return strings.HasPrefix(rel, r.pattern) || rel+"/" == r.pattern
}

func (r dirPrefixRule) Pattern() string { return r.pattern }

// exactPathRule protects a single path ("config/settings.json").
type exactPathRule struct {
	pattern string
}

func (r exactPathRule) Matches(rel string) bool { return rel == r.pattern }

func (r exactPathRule) Pattern() string { return r.pattern }

// basenameRule protects every file with the given name anywhere in the tree
// (".env", "CODEOWNERS").
type basenameRule struct {
	pattern string
}

func (r basenameRule) Matches(rel string) bool { return path.Base(rel) == r.pattern }

func (r basenameRule) Pattern() string { return r.pattern }

var customRule = segmentPrefixRule{prefix: CustomSegmentPrefix}

// ParseRule maps a pattern string onto its matcher variant: trailing slash is
// a directory prefix, an embedded slash is an exact path, anything else is a
// bare filename.
func ParseRule(pattern string) Rule {
	if strings.HasSuffix(pattern, "/") {
		return dirPrefixRule{pattern: pattern}
	}
	if strings.Contains(pattern, "/") {
		return exactPathRule{pattern: pattern}
	}
	return basenameRule{pattern: pattern}
}

// CompileRules parses a pattern list into matchers, preserving order.
func CompileRules(patterns []string) []Rule {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, ParseRule(p))
	}
	return rules
}

// IsProtected reports whether the fork-relative path rel is exempt from sync.
// The custom- segment rule applies before and independently of the rule list.
func IsProtected(rel string, rules []Rule) bool {
	rel = strings.Trim(rel, "/")
	if customRule.Matches(rel) {
		return true
	}
	for _, r := range rules {
		if r.Matches(rel) {
			return true
		}
	}
	return false
}

// Effective computes the protection patterns in force for a fork:
// (protectedAreas ∪ userProtectedAreas) \ userUnprotectedAreas, deduplicated
// in first-seen order. An empty framework list falls back to the built-in
// defaults.
func Effective(cfg *syncconfig.Config) []string {
	defaults := cfg.ProtectedAreas
	if len(defaults) == 0 {
		defaults = FallbackDefaults()
	}

	unprotected := make(map[string]struct{}, len(cfg.UserUnprotectedAreas))
	for _, p := range cfg.UserUnprotectedAreas {
		unprotected[p] = struct{}{}
	}

	seen := make(map[string]struct{})
	var effective []string
	for _, p := range append(append([]string{}, defaults...), cfg.UserProtectedAreas...) {
		if _, drop := unprotected[p]; drop {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		effective = append(effective, p)
	}
	return effective
}
