package sync

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schaermu/tmplsync/internal/manifest"
)

// ApplyChanges executes a computed change set against the fork tree. Every
// operation is individually idempotent, so a partially applied run can
// simply be re-run. Apply runs to completion or fails loudly; it performs no
// confirmation and no dry-run logic of its own.
func ApplyChanges(changes []FileChange, opts Options) error {
	log := opts.log()

	for _, c := range changes {
		switch c.Kind {
		case ChangeDeleted:
			log.Info("deleting", "path", c.RelPath)
			if err := os.RemoveAll(c.TargetPath); err != nil {
				return opErr(KindApply, c.RelPath, err)
			}

		case ChangeAdded, ChangeModified:
			if err := applyWrite(c, log); err != nil {
				return opErr(KindApply, c.RelPath, err)
			}

		default:
			return opErr(KindApply, c.RelPath, fmt.Errorf("unknown change kind %q", c.Kind))
		}
	}

	return nil
}

func applyWrite(c FileChange, log *slog.Logger) error {
	res := c.Manifest
	if res == nil && c.Kind == ChangeModified && manifest.IsManifest(c.RelPath) {
		// no cached merge, recompute it
		if recomputed, ok := recomputeMerge(c); ok {
			res = recomputed
		}
	}

	if res != nil && res.ShouldMerge {
		log.Info("writing merged manifest", "path", c.RelPath)
		mode := os.FileMode(0o644)
		if info, err := os.Stat(c.TargetPath); err == nil {
			mode = info.Mode()
		}
		return writeFileAtomic(c.TargetPath, res.Merged, mode)
	}

	log.Info("copying", "path", c.RelPath, "kind", string(c.Kind))
	return copyFile(c.SourcePath, c.TargetPath)
}

func recomputeMerge(c FileChange) (*manifest.Result, bool) {
	upBytes, err := os.ReadFile(c.SourcePath)
	if err != nil {
		return nil, false
	}
	downBytes, err := os.ReadFile(c.TargetPath)
	if err != nil {
		return nil, false
	}
	res := manifest.Compare(upBytes, downBytes)
	if !res.ShouldMerge {
		return nil, false
	}
	return &res, true
}

// copyFile copies src to dst byte for byte with an atomic write, preserving
// the source mode.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(srcFile)
	if err != nil {
		return err
	}

	return writeFileAtomic(dst, data, srcInfo.Mode())
}

// writeFileAtomic writes data to a temp file next to dst and renames it into
// place, so an interrupted apply never leaves a half-written file.
func writeFileAtomic(dst string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".tmplsync-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dst)
}
