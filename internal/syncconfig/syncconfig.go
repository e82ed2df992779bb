package syncconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// FileName is the sync state file kept at the root of the fork. It is created
// once when the fork is scaffolded and read and updated on every sync run.
const FileName = ".tmplsync.json"

// Config is the persisted sync state of a fork. ProtectedAreas holds the
// framework-authored default protection list; the two user lists are only
// ever edited by the user and a sync run never writes them.
type Config struct {
	FrameworkVersion     string    `json:"frameworkVersion"`
	FrameworkBranch      string    `json:"frameworkBranch,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	LastSyncAt           time.Time `json:"lastSyncAt"`
	ProtectedAreas       []string  `json:"protectedAreas"`
	UserProtectedAreas   []string  `json:"userProtectedAreas"`
	UserUnprotectedAreas []string  `json:"userUnprotectedAreas"`
}

// Touch records a completed sync. Only the three run-owned fields change.
func (c *Config) Touch(version, branch string, now time.Time) {
	c.FrameworkVersion = version
	c.FrameworkBranch = branch
	c.LastSyncAt = now
}

// Store reads and writes the sync state file of a single fork.
type Store struct {
	path string
}

// NewStore creates a store for the sync state file under forkRoot.
func NewStore(forkRoot string) *Store {
	return &Store{path: filepath.Join(forkRoot, FileName)}
}

// Path returns the absolute path of the sync state file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the sync state. A missing or malformed file is an error: without
// it the protection set cannot be established safely, so the caller must
// abort before touching the tree.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("sync config %s not found (is this directory a scaffolded fork?): %w", s.path, err)
		}
		return nil, fmt.Errorf("failed to read sync config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sync config %s: %w", s.path, err)
	}

	return &cfg, nil
}

// Save persists the sync state with an atomic write so an interrupted run
// never leaves a truncated file behind.
func (s *Store) Save(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// IsRelease reports whether v names a semver release (with or without the
// leading "v"). Branch names and commit hashes are not releases.
func IsRelease(v string) bool {
	return semver.IsValid(normalizeVersion(v))
}

// IsVersionRegression reports whether requested is an older release than the
// last synced framework version. Values that are not semver releases never
// count as regressions.
func IsVersionRegression(lastSynced, requested string) bool {
	last, req := normalizeVersion(lastSynced), normalizeVersion(requested)
	if !semver.IsValid(last) || !semver.IsValid(req) {
		return false
	}
	return semver.Compare(req, last) < 0
}

func normalizeVersion(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
