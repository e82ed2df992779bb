//go:build integration

package tier1

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/schaermu/tmplsync/internal/config"
	"github.com/schaermu/tmplsync/internal/git"
	"github.com/schaermu/tmplsync/internal/sync"
	"github.com/schaermu/tmplsync/internal/syncconfig"
)

// Harness wires a real local upstream repository, a scaffolded fork and the
// production git client together, so the tier exercises the same code paths a
// user hits, minus the network.
type Harness struct {
	t        *testing.T
	repoDir  string
	forkDir  string
	stateDir string
	repo     *gogit.Repository
	store    *syncconfig.Store
}

// NewHarness initializes an empty upstream repository on the main branch and
// a scaffolded fork with its sync state file in place.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	root := t.TempDir()

	h := &Harness{
		t:        t,
		repoDir:  filepath.Join(root, "upstream-origin"),
		forkDir:  filepath.Join(root, "fork"),
		stateDir: filepath.Join(root, "state"),
	}

	repo, err := gogit.PlainInitWithOptions(h.repoDir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("init upstream repo: %v", err)
	}
	h.repo = repo

	if err := os.MkdirAll(h.forkDir, 0o755); err != nil {
		t.Fatal(err)
	}
	h.store = syncconfig.NewStore(h.forkDir)
	if err := h.store.Save(&syncconfig.Config{
		FrameworkVersion: "v1.0.0",
		FrameworkBranch:  "main",
		CreatedAt:        time.Now().UTC(),
		ProtectedAreas:   []string{".env", "docs/"},
	}); err != nil {
		t.Fatalf("scaffold sync state: %v", err)
	}

	return h
}

// CommitUpstream writes the given files into the upstream worktree and
// commits them, returning the commit hash.
func (h *Harness) CommitUpstream(files map[string]string, msg string) string {
	h.t.Helper()

	for rel, content := range files {
		p := filepath.Join(h.repoDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			h.t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			h.t.Fatal(err)
		}
	}

	wt, err := h.repo.Worktree()
	if err != nil {
		h.t.Fatalf("open upstream worktree: %v", err)
	}
	if err := wt.AddGlob("."); err != nil {
		h.t.Fatalf("stage upstream files: %v", err)
	}

	hash, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Framework Bot",
			Email: "bot@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		h.t.Fatalf("commit upstream files: %v", err)
	}
	return hash.String()
}

// RemoveUpstream deletes a file from the upstream worktree and commits the
// removal.
func (h *Harness) RemoveUpstream(rel, msg string) {
	h.t.Helper()

	wt, err := h.repo.Worktree()
	if err != nil {
		h.t.Fatal(err)
	}
	if _, err := wt.Remove(filepath.FromSlash(rel)); err != nil {
		h.t.Fatalf("stage removal: %v", err)
	}
	if _, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Framework Bot",
			Email: "bot@example.com",
			When:  time.Now(),
		},
	}); err != nil {
		h.t.Fatalf("commit removal: %v", err)
	}
}

// TagUpstream creates a lightweight tag on the current upstream head.
func (h *Harness) TagUpstream(name string) {
	h.t.Helper()

	head, err := h.repo.Head()
	if err != nil {
		h.t.Fatalf("read upstream head: %v", err)
	}
	if _, err := h.repo.CreateTag(name, head.Hash(), nil); err != nil {
		h.t.Fatalf("tag upstream: %v", err)
	}
}

// WriteFork writes a file into the fork tree.
func (h *Harness) WriteFork(rel, content string) {
	h.t.Helper()

	p := filepath.Join(h.forkDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		h.t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		h.t.Fatal(err)
	}
}

// ReadFork reads a file from the fork tree.
func (h *Harness) ReadFork(rel string) string {
	h.t.Helper()

	data, err := os.ReadFile(filepath.Join(h.forkDir, filepath.FromSlash(rel)))
	if err != nil {
		h.t.Fatal(err)
	}
	return string(data)
}

// ForkHas reports whether a path exists in the fork tree.
func (h *Harness) ForkHas(rel string) bool {
	h.t.Helper()
	_, err := os.Stat(filepath.Join(h.forkDir, filepath.FromSlash(rel)))
	return err == nil
}

// State loads the fork's current sync state.
func (h *Harness) State() *syncconfig.Config {
	h.t.Helper()
	cfg, err := h.store.Load()
	if err != nil {
		h.t.Fatalf("load sync state: %v", err)
	}
	return cfg
}

// Engine builds a sync engine against the local upstream with the production
// go-git client.
func (h *Harness) Engine(ref string, dryRun bool) *sync.Engine {
	h.t.Helper()

	cfg := &config.Config{}
	cfg.Repo.URL = h.repoDir
	cfg.Repo.Ref = ref
	cfg.Paths.ForkDir = h.forkDir
	cfg.Paths.StateDir = h.stateDir
	cfg.Sync.SampleRoots = []string{"services/samples"}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return sync.NewEngine(cfg, git.NewGoGitClient("", ""), h.store, logger, dryRun)
}
