package sync

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/schaermu/tmplsync/internal/config"
	"github.com/schaermu/tmplsync/internal/git"
	"github.com/schaermu/tmplsync/internal/ignore"
	"github.com/schaermu/tmplsync/internal/protect"
	"github.com/schaermu/tmplsync/internal/syncconfig"
)

// Engine orchestrates a full sync run: load state, fetch upstream, refresh
// the protection registry, diff, confirm, apply, persist.
type Engine struct {
	cfg     *config.Config
	git     git.Client
	store   *syncconfig.Store
	logger  *slog.Logger
	dryRun  bool
	confirm func([]FileChange) bool
}

// NewEngine creates a new sync engine
func NewEngine(cfg *config.Config, gitClient git.Client, store *syncconfig.Store, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:    cfg,
		git:    gitClient,
		store:  store,
		logger: logger,
		dryRun: dryRun,
	}
}

// SetConfirm installs a confirmation callback invoked with the computed
// change set before anything is applied. Returning false cancels the run
// with the tree untouched (bar an already-persisted registry refresh). A nil
// callback applies without asking.
func (e *Engine) SetConfirm(fn func([]FileChange) bool) {
	e.confirm = fn
}

// Run executes the complete sync process and returns the computed change
// set. Any failure before the apply phase aborts with no tree mutation
// except a persisted protection-registry refresh; a failure during apply
// leaves the sync state file untouched so a re-run recomputes the remaining
// changes.
func (e *Engine) Run(ctx context.Context) ([]FileChange, error) {
	syncCfg, err := e.store.Load()
	if err != nil {
		return nil, opErr(KindConfig, e.store.Path(), err)
	}

	ref := e.cfg.Repo.Ref
	if ref == "" {
		ref = syncCfg.FrameworkBranch
	}
	if ref == "" {
		ref = "main"
	}

	if syncconfig.IsVersionRegression(syncCfg.FrameworkVersion, ref) {
		e.logger.Warn("requested framework version is older than the last synced one",
			"requested", ref,
			"last_synced", syncCfg.FrameworkVersion)
	}

	e.logger.Info("starting sync",
		"repo", e.cfg.Repo.URL,
		"ref", ref,
		"fork", e.cfg.Paths.ForkDir,
		"dry_run", e.dryRun)

	if err := os.MkdirAll(e.cfg.Paths.StateDir, 0o755); err != nil {
		return nil, opErr(KindState, e.cfg.Paths.StateDir, err)
	}

	// Fetch upstream tree
	commit, err := e.git.EnsureCheckout(ctx, e.cfg.Repo.URL, ref, e.cfg.RepoDir())
	if err != nil {
		return nil, opErr(KindFetch, e.cfg.Repo.URL, err)
	}
	e.logger.Info("upstream checked out", "commit", commit)

	upstreamRoot := e.cfg.UpstreamSourceDir()

	// Refresh protection defaults before diffing so new rules apply within
	// this run. This persists immediately on change.
	replaced, err := protect.UpdateRegistry(upstreamRoot, syncCfg, e.store, e.logger)
	if err != nil {
		return nil, opErr(KindState, e.store.Path(), err)
	}
	if replaced {
		e.logger.Info("protection registry refreshed from upstream")
	}

	opts := Options{
		Protection:   protect.CompileRules(protect.Effective(syncCfg)),
		Ignore:       ignore.NewMatcher(),
		SampleIgnore: ignore.NewSampleMatcher(),
		SampleRoots:  e.cfg.Sync.SampleRoots,
		Logger:       e.logger,
	}

	changes, err := ComputeChanges(upstreamRoot, e.cfg.Paths.ForkDir, opts)
	if err != nil {
		return nil, err
	}

	e.logger.Info("change set computed",
		"added", countKind(changes, ChangeAdded),
		"modified", countKind(changes, ChangeModified),
		"deleted", countKind(changes, ChangeDeleted))
	e.warnManifestConflicts(changes)

	if e.dryRun {
		e.logChangeDetails(changes)
		e.logger.Info("dry-run complete, no changes applied")
		return changes, nil
	}

	if e.confirm != nil && !e.confirm(changes) {
		e.logger.Info("sync cancelled before apply, fork left untouched")
		return changes, nil
	}

	if err := ApplyChanges(changes, opts); err != nil {
		return changes, err
	}

	// Only a fully successful run moves the recorded sync point.
	version := commit
	if syncconfig.IsRelease(ref) {
		version = ref
	}
	syncCfg.Touch(version, ref, time.Now().UTC())
	if err := e.store.Save(syncCfg); err != nil {
		return changes, opErr(KindState, e.store.Path(), err)
	}

	e.logger.Info("sync completed successfully", "changes", len(changes))
	return changes, nil
}

// warnManifestConflicts surfaces shared manifest entries that resolved
// framework-wins, since each one replaces a downstream edit.
func (e *Engine) warnManifestConflicts(changes []FileChange) {
	for _, c := range changes {
		if c.Manifest == nil {
			continue
		}
		for section, entries := range c.Manifest.Diff.Modified() {
			for _, entry := range entries {
				e.logger.Warn("manifest conflict resolves to framework value, downstream edit will be lost",
					"path", c.RelPath,
					"section", section,
					"entry", entry)
			}
		}
	}
}

// logChangeDetails logs the full change list for dry-run
func (e *Engine) logChangeDetails(changes []FileChange) {
	for _, c := range changes {
		switch c.Kind {
		case ChangeAdded:
			e.logger.Info("[dry-run] would add", "path", c.RelPath)
		case ChangeModified:
			if c.Manifest != nil {
				e.logger.Info("[dry-run] would merge manifest", "path", c.RelPath,
					"added", c.Manifest.Diff.Added(), "conflicting", c.Manifest.Diff.Modified())
				continue
			}
			e.logger.Info("[dry-run] would update", "path", c.RelPath)
		case ChangeDeleted:
			e.logger.Info("[dry-run] would delete", "path", c.RelPath)
		}
	}
}
