package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/schaermu/tmplsync/internal/config"
	"github.com/schaermu/tmplsync/internal/git"
	"github.com/schaermu/tmplsync/internal/manifest"
	"github.com/schaermu/tmplsync/internal/protect"
	"github.com/schaermu/tmplsync/internal/sync"
	"github.com/schaermu/tmplsync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Sync flags
	dryRun    bool
	assumeYes bool
	branch    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tmplsync",
	Short: "Keep a forked template framework in sync with its upstream",
	Long: `tmplsync updates a project that was scaffolded from a template framework with
the framework's latest changes, without destroying local customization.

Protected areas, user-modified sample directories and paths containing
custom- segments are never overwritten or deleted. Package manifests are
merged structurally instead of being replaced wholesale.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the fork up to date with the upstream framework",
	Long: `Sync fetches the upstream framework, refreshes the default protection list,
computes the change set against the fork and applies it after confirmation.

Paths matching the effective protection rules are skipped. Sample
directories the user removed or modified are left entirely alone.`,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the fork's sync state and effective protection rules",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tmplsync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/tmplsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Sync command flags
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	syncCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "apply without asking for confirmation")
	syncCmd.Flags().StringVar(&branch, "branch", "", "framework branch, tag or commit to sync to")

	// Add commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if branch != "" {
		cfg.Repo.Ref = branch
	}

	gitClient := git.NewGoGitClient(cfg.Auth.SSHKeyFile, cfg.Auth.HTTPSTokenFile)
	store := syncconfig.NewStore(cfg.Paths.ForkDir)

	engine := sync.NewEngine(cfg, gitClient, store, logger, dryRun)
	if !assumeYes && !dryRun {
		engine.SetConfirm(confirmChanges)
	}

	changes, err := engine.Run(ctx)
	if err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}

	if dryRun {
		printChanges(changes)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := syncconfig.NewStore(cfg.Paths.ForkDir)
	syncCfg, err := store.Load()
	if err != nil {
		return err
	}

	fmt.Printf("Fork:              %s\n", cfg.Paths.ForkDir)
	fmt.Printf("Framework version: %s\n", syncCfg.FrameworkVersion)
	if syncCfg.FrameworkBranch != "" {
		fmt.Printf("Framework branch:  %s\n", syncCfg.FrameworkBranch)
	}
	fmt.Printf("Scaffolded:        %s\n", syncCfg.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Last sync:         %s\n", syncCfg.LastSyncAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Println("\nEffective protection rules:")
	for _, p := range protect.Effective(syncCfg) {
		fmt.Printf("  %s\n", p)
	}
	fmt.Printf("  %s* (always)\n", protect.CustomSegmentPrefix)

	return nil
}

// confirmChanges renders the change set and asks for a go-ahead on stdin.
func confirmChanges(changes []sync.FileChange) bool {
	printChanges(changes)
	if len(changes) == 0 {
		return true
	}

	fmt.Print("\nApply these changes? [y/N]: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printChanges(changes []sync.FileChange) {
	if len(changes) == 0 {
		fmt.Println("Fork is up to date with the framework.")
		return
	}

	fmt.Printf("%d pending change(s):\n", len(changes))
	for _, c := range changes {
		switch c.Kind {
		case sync.ChangeAdded:
			fmt.Printf("  + %s\n", c.RelPath)
		case sync.ChangeModified:
			fmt.Printf("  ~ %s\n", c.RelPath)
			if c.Manifest != nil {
				printManifestDiff(c.Manifest.Diff)
			}
		case sync.ChangeDeleted:
			fmt.Printf("  - %s\n", c.RelPath)
		}
	}
}

func printManifestDiff(d manifest.Diff) {
	for section, entries := range d.Added() {
		for _, entry := range entries {
			fmt.Printf("      + %s.%s\n", section, entry)
		}
	}
	for section, entries := range d.Modified() {
		for _, entry := range entries {
			fmt.Printf("      ! %s.%s (framework value wins, local edit is lost)\n", section, entry)
		}
	}
}

func setupLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = filepath.Join(xdg.ConfigHome, "tmplsync", "config.yaml")
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"repo", cfg.Repo.URL,
		"ref", cfg.Repo.Ref,
		"fork_dir", cfg.Paths.ForkDir,
		"state_dir", cfg.Paths.StateDir)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
