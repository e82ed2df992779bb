package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/schaermu/tmplsync/internal/ignore"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestClassifySample_Removed(t *testing.T) {
	upstream := t.TempDir()
	writeFile(t, upstream, "index.ts", "export {}\n")

	state, err := ClassifySample(upstream, filepath.Join(t.TempDir(), "weather"), ignore.NewSampleMatcher())
	if err != nil {
		t.Fatal(err)
	}
	if state != SampleRemoved {
		t.Errorf("expected removed, got %s", state)
	}
}

func TestClassifySample_Unmodified(t *testing.T) {
	upstream, fork := t.TempDir(), t.TempDir()
	for _, root := range []string{upstream, fork} {
		writeFile(t, root, "index.ts", "export {}\n")
		writeFile(t, root, "lib/client.ts", "export const c = 1\n")
	}

	state, err := ClassifySample(upstream, fork, ignore.NewSampleMatcher())
	if err != nil {
		t.Fatal(err)
	}
	if state != SampleUnmodified {
		t.Errorf("expected unmodified, got %s", state)
	}
}

func TestClassifySample_ModifiedContent(t *testing.T) {
	upstream, fork := t.TempDir(), t.TempDir()
	writeFile(t, upstream, "index.ts", "export {}\n")
	writeFile(t, fork, "index.ts", "export {} // tweaked\n")

	state, err := ClassifySample(upstream, fork, ignore.NewSampleMatcher())
	if err != nil {
		t.Fatal(err)
	}
	if state != SampleModified {
		t.Errorf("expected modified, got %s", state)
	}
}

func TestClassifySample_AddedAndRemovedEntries(t *testing.T) {
	upstream, fork := t.TempDir(), t.TempDir()
	writeFile(t, upstream, "index.ts", "export {}\n")
	writeFile(t, fork, "index.ts", "export {}\n")
	writeFile(t, fork, "extra.ts", "export const x = 1\n")

	state, err := ClassifySample(upstream, fork, ignore.NewSampleMatcher())
	if err != nil {
		t.Fatal(err)
	}
	if state != SampleModified {
		t.Errorf("user-added file must flag the sample, got %s", state)
	}

	// The reverse case: a file removed downstream.
	upstream2, fork2 := t.TempDir(), t.TempDir()
	writeFile(t, upstream2, "index.ts", "export {}\n")
	writeFile(t, upstream2, "util.ts", "export {}\n")
	writeFile(t, fork2, "index.ts", "export {}\n")

	state, err = ClassifySample(upstream2, fork2, ignore.NewSampleMatcher())
	if err != nil {
		t.Fatal(err)
	}
	if state != SampleModified {
		t.Errorf("user-removed file must flag the sample, got %s", state)
	}
}

func TestClassifySample_NoiseIsNotTracked(t *testing.T) {
	upstream, fork := t.TempDir(), t.TempDir()
	writeFile(t, upstream, "index.ts", "export {}\n")
	writeFile(t, upstream, "README.md", "# sample\n")
	writeFile(t, fork, "index.ts", "export {}\n")
	writeFile(t, fork, "README.md", "# my notes about this sample\n")
	writeFile(t, fork, "package-lock.json", "{}\n")
	writeFile(t, fork, ".env.local", "API_KEY=secret\n")
	writeFile(t, fork, "node_modules/zod/index.js", "module.exports = {}\n")

	state, err := ClassifySample(upstream, fork, ignore.NewSampleMatcher())
	if err != nil {
		t.Fatal(err)
	}
	if state != SampleUnmodified {
		t.Errorf("lockfiles, env files, caches and READMEs must not count, got %s", state)
	}
}
