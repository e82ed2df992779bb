//go:build integration

package tier1

import (
	"context"
	"testing"
	"time"
)

const defaultTimeout = 2 * time.Minute

func TestTier1Sync(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	h := NewHarness(t)

	commit := h.CommitUpstream(map[string]string{
		"src/app.ts":   "v2\n",
		"src/util.ts":  "shared\n",
		"docs/read.md": "framework docs\n",
	}, "initial framework tree")

	h.WriteFork("src/app.ts", "v1\n")
	h.WriteFork("src/legacy.ts", "old\n")
	h.WriteFork("docs/read.md", "my own docs\n")
	h.WriteFork("services/custom-billing/index.ts", "mine\n")

	t.Run("A_InitialSync", func(t *testing.T) {
		changes, err := h.Engine("main", false).Run(ctx)
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if len(changes) == 0 {
			t.Fatal("expected a non-empty change set")
		}

		if got := h.ReadFork("src/app.ts"); got != "v2\n" {
			t.Errorf("src/app.ts = %q", got)
		}
		if got := h.ReadFork("src/util.ts"); got != "shared\n" {
			t.Errorf("src/util.ts = %q", got)
		}
		if h.ForkHas("src/legacy.ts") {
			t.Error("src/legacy.ts must be deleted")
		}
		// protected and custom- paths survive
		if got := h.ReadFork("docs/read.md"); got != "my own docs\n" {
			t.Errorf("docs/read.md = %q, protected area must be left alone", got)
		}
		if !h.ForkHas("services/custom-billing/index.ts") {
			t.Error("custom- subtree must never be deleted")
		}

		state := h.State()
		if state.FrameworkVersion != commit {
			t.Errorf("FrameworkVersion = %q, want %q", state.FrameworkVersion, commit)
		}
	})

	t.Run("B_NoOpSync", func(t *testing.T) {
		changes, err := h.Engine("main", false).Run(ctx)
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if len(changes) != 0 {
			t.Errorf("converged fork must produce no changes, got %v", changes)
		}
	})

	t.Run("C_UpstreamUpdate", func(t *testing.T) {
		h.CommitUpstream(map[string]string{"src/app.ts": "v3\n"}, "update app")
		h.RemoveUpstream("src/util.ts", "drop util")

		changes, err := h.Engine("main", false).Run(ctx)
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if len(changes) != 2 {
			t.Errorf("expected update + deletion, got %v", changes)
		}
		if got := h.ReadFork("src/app.ts"); got != "v3\n" {
			t.Errorf("src/app.ts = %q", got)
		}
		if h.ForkHas("src/util.ts") {
			t.Error("src/util.ts must be deleted after upstream removal")
		}
	})

	t.Run("D_TagSync", func(t *testing.T) {
		h.CommitUpstream(map[string]string{"src/app.ts": "v4\n"}, "release")
		h.TagUpstream("v2.0.0")

		if _, err := h.Engine("v2.0.0", false).Run(ctx); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		state := h.State()
		if state.FrameworkVersion != "v2.0.0" {
			t.Errorf("FrameworkVersion = %q, want the release tag", state.FrameworkVersion)
		}
	})

	t.Run("E_DryRunMode", func(t *testing.T) {
		h.CommitUpstream(map[string]string{"src/app.ts": "v5\n"}, "next update")

		changes, err := h.Engine("main", true).Run(ctx)
		if err != nil {
			t.Fatalf("dry-run failed: %v", err)
		}
		if len(changes) != 1 {
			t.Errorf("dry-run must report the pending change, got %v", changes)
		}
		if got := h.ReadFork("src/app.ts"); got != "v4\n" {
			t.Errorf("dry-run must not touch the fork, src/app.ts = %q", got)
		}
	})
}
