package sync

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/schaermu/tmplsync/internal/ignore"
	"github.com/schaermu/tmplsync/internal/manifest"
	"github.com/schaermu/tmplsync/internal/protect"
)

// Options carries the collaborators shared by the differ and the applier.
// Both roots are always explicit absolute paths; nothing here depends on the
// process working directory.
type Options struct {
	Protection   []protect.Rule
	Ignore       *ignore.Matcher
	SampleIgnore *ignore.Matcher
	SampleRoots  []string // fork-relative dirs whose child dirs are optional samples
	Logger       *slog.Logger
}

func (o Options) log() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// ComputeChanges walks the upstream and fork trees and produces the ordered
// change set that brings the fork up to date. The forward pass over the
// upstream tree yields Added and Modified changes; the reverse pass over the
// fork yields Deleted changes. Running it twice over unchanged trees yields
// an empty set.
func ComputeChanges(upstreamRoot, forkRoot string, opts Options) ([]FileChange, error) {
	log := opts.log()

	// sample subtrees excluded from this run, keyed by relative path
	excludedSamples := make(map[string]struct{})
	var changes []FileChange

	err := filepath.WalkDir(upstreamRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == upstreamRoot {
			return nil
		}

		rel, err := filepath.Rel(upstreamRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if opts.Ignore.Match(rel, d.IsDir()) {
			log.Debug("skipping ignored path", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if protect.IsProtected(rel, opts.Protection) {
			log.Debug("skipping protected path", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if isSampleUnit(rel, opts.SampleRoots) {
				state, err := ClassifySample(p, filepath.Join(forkRoot, filepath.FromSlash(rel)), opts.SampleIgnore)
				if err != nil {
					return err
				}
				log.Debug("classified sample directory", "path", rel, "state", state)
				if state != SampleUnmodified {
					excludedSamples[rel] = struct{}{}
					return filepath.SkipDir
				}
			}
			return nil
		}

		target := filepath.Join(forkRoot, filepath.FromSlash(rel))

		upBytes, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		downBytes, err := os.ReadFile(target)
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("file missing downstream", "path", rel)
			changes = append(changes, FileChange{
				Kind:       ChangeAdded,
				RelPath:    rel,
				SourcePath: p,
				TargetPath: target,
			})
			return nil
		}
		if err != nil {
			return err
		}

		if manifest.IsManifest(rel) {
			res := manifest.Compare(upBytes, downBytes)
			if res.ShouldMerge {
				if res.Diff.Empty() {
					log.Debug("manifest unchanged", "path", rel)
					return nil
				}
				log.Debug("manifest merge pending", "path", rel,
					"added", res.Diff.Added(), "conflicting", res.Diff.Modified())
				changes = append(changes, FileChange{
					Kind:       ChangeModified,
					RelPath:    rel,
					SourcePath: p,
					TargetPath: target,
					Manifest:   &res,
				})
				return nil
			}
			log.Warn("manifest not parseable, degrading to file replacement", "path", rel)
		}

		if !bytes.Equal(upBytes, downBytes) {
			log.Debug("file content differs", "path", rel)
			changes = append(changes, FileChange{
				Kind:       ChangeModified,
				RelPath:    rel,
				SourcePath: p,
				TargetPath: target,
			})
		}
		return nil
	})
	if err != nil {
		return nil, opErr(KindDiff, upstreamRoot, err)
	}

	deleted, err := findDeleted(upstreamRoot, forkRoot, excludedSamples, opts)
	if err != nil {
		return nil, opErr(KindDiff, forkRoot, err)
	}

	return append(changes, deleted...), nil
}

// findDeleted walks the fork tree for entries absent upstream. Protected and
// ignored paths never count, and neither does anything under a sample
// subtree excluded by the forward pass. A directory absent upstream is
// reported once, not per file, unless protected content lives below it.
func findDeleted(upstreamRoot, forkRoot string, excludedSamples map[string]struct{}, opts Options) ([]FileChange, error) {
	log := opts.log()
	var deleted []FileChange

	err := filepath.WalkDir(forkRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == forkRoot {
			return nil
		}

		rel, err := filepath.Rel(forkRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if opts.Ignore.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if protect.IsProtected(rel, opts.Protection) {
			log.Debug("skipping protected path in deletion pass", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if _, excluded := excludedSamples[rel]; excluded {
				return filepath.SkipDir
			}
		}

		// Noise the sample comparator does not track (lockfiles, env files,
		// READMEs) is never deleted either.
		if underSampleRoot(rel, opts.SampleRoots) && opts.SampleIgnore.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		_, err = os.Stat(filepath.Join(upstreamRoot, filepath.FromSlash(rel)))
		if errors.Is(err, fs.ErrNotExist) {
			if d.IsDir() {
				// A directory-level delete is applied recursively, so it may
				// only stand in for its subtree when nothing below it is
				// protected. Otherwise descend and delete entry by entry;
				// the per-path protection check shields the rest.
				ok, scanErr := deletableSubtree(p, rel, opts)
				if scanErr != nil {
					return scanErr
				}
				if !ok {
					log.Debug("directory holds protected content, descending", "path", rel)
					return nil
				}
			}
			log.Debug("marked for deletion", "path", rel)
			deleted = append(deleted, FileChange{
				Kind:       ChangeDeleted,
				RelPath:    rel,
				TargetPath: p,
			})
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

// deletableSubtree reports whether a fork-only directory can be removed as a
// single unit: true only when no descendant matches a protection rule.
// Ignored subtrees are noise and do not block removal.
func deletableSubtree(dir, relDir string, opts Options) (bool, error) {
	deletable := true

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == dir {
			return nil
		}

		sub, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel := path.Join(relDir, filepath.ToSlash(sub))

		if opts.Ignore.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if protect.IsProtected(rel, opts.Protection) {
			deletable = false
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return deletable, nil
}

// underSampleRoot reports whether rel lies beneath any configured sample
// root.
func underSampleRoot(rel string, sampleRoots []string) bool {
	for _, root := range sampleRoots {
		if strings.HasPrefix(rel, path.Clean(filepath.ToSlash(root))+"/") {
			return true
		}
	}
	return false
}

// isSampleUnit reports whether rel is an immediate child directory of a
// configured sample root.
func isSampleUnit(rel string, sampleRoots []string) bool {
	parent := path.Dir(rel)
	for _, root := range sampleRoots {
		if parent == path.Clean(filepath.ToSlash(root)) {
			return true
		}
	}
	return false
}
