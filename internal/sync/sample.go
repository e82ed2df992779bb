package sync

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/schaermu/tmplsync/internal/ignore"
)

// SampleState classifies the fork's copy of an optional sample directory.
type SampleState string

const (
	// SampleRemoved means the user deleted the sample; it is never
	// recreated.
	SampleRemoved SampleState = "removed"
	// SampleModified means the user changed the sample; the whole subtree
	// is left alone.
	SampleModified SampleState = "modified"
	// SampleUnmodified means the sample is pristine and syncs normally.
	SampleUnmodified SampleState = "unmodified"
)

// ClassifySample compares a shipped sample directory against the fork's
// copy. Lockfiles, environment files, caches and READMEs are not tracked;
// any other added, removed or changed entry makes the sample Modified.
func ClassifySample(upstreamDir, forkDir string, ign *ignore.Matcher) (SampleState, error) {
	if _, err := os.Stat(forkDir); errors.Is(err, fs.ErrNotExist) {
		return SampleRemoved, nil
	} else if err != nil {
		return "", err
	}

	upFiles, err := collectFiles(upstreamDir, ign)
	if err != nil {
		return "", err
	}
	forkFiles, err := collectFiles(forkDir, ign)
	if err != nil {
		return "", err
	}

	if len(upFiles) != len(forkFiles) {
		return SampleModified, nil
	}
	for rel := range upFiles {
		if _, ok := forkFiles[rel]; !ok {
			return SampleModified, nil
		}
	}

	for rel := range upFiles {
		same, err := sameContent(
			filepath.Join(upstreamDir, filepath.FromSlash(rel)),
			filepath.Join(forkDir, filepath.FromSlash(rel)),
		)
		if err != nil {
			return "", err
		}
		if !same {
			return SampleModified, nil
		}
	}

	return SampleUnmodified, nil
}

// collectFiles returns the set of tracked file paths under root, relative to
// root.
func collectFiles(root string, ign *ignore.Matcher) (map[string]struct{}, error) {
	files := make(map[string]struct{})

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		if ign.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			files[filepath.ToSlash(rel)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func sameContent(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}
