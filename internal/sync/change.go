package sync

import "github.com/schaermu/tmplsync/internal/manifest"

// ChangeKind classifies a file-level difference between the upstream and
// fork trees.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// FileChange describes one pending mutation of the fork tree. Deleted
// changes carry no source path. Manifest is set for package manifests that
// merged structurally; the applier reuses it so the written bytes match the
// reported diff.
type FileChange struct {
	Kind       ChangeKind
	RelPath    string // slash-separated, relative to both roots
	SourcePath string // absolute path in the upstream checkout
	TargetPath string // absolute path in the fork
	Manifest   *manifest.Result
}

func countKind(changes []FileChange, kind ChangeKind) int {
	n := 0
	for _, c := range changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}
