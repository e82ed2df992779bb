package protect

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/schaermu/tmplsync/internal/syncconfig"
)

// UpdateRegistry refreshes the stored default protection list from the
// upstream checkout. The framework is authoritative for its defaults: when
// the shipped list differs from the stored one (order-independent), the
// stored list is replaced wholesale and persisted immediately so the new
// rules apply to the diff phase of the same run. User override lists are
// never touched. Returns whether a replacement happened.
func UpdateRegistry(upstreamRoot string, cfg *syncconfig.Config, store *syncconfig.Store, logger *slog.Logger) (bool, error) {
	defaults, ok, err := LoadDefaults(upstreamRoot)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.Debug("upstream ships no protection defaults resource, keeping stored list")
		return false, nil
	}

	if samePatternSet(cfg.ProtectedAreas, defaults) {
		logger.Debug("protection defaults unchanged")
		return false, nil
	}

	added, removed := diffPatternSets(cfg.ProtectedAreas, defaults)
	for _, p := range added {
		logger.Info("protection default added", "change", "+ "+p)
	}
	for _, p := range removed {
		logger.Info("protection default removed", "change", "- "+p)
	}

	cfg.ProtectedAreas = defaults
	if err := store.Save(cfg); err != nil {
		return false, fmt.Errorf("failed to persist refreshed protection registry: %w", err)
	}

	return true, nil
}

func samePatternSet(a, b []string) bool {
	if len(toSet(a)) != len(toSet(b)) {
		return false
	}
	bs := toSet(b)
	for p := range toSet(a) {
		if _, ok := bs[p]; !ok {
			return false
		}
	}
	return true
}

// diffPatternSets returns the patterns only in next and only in prev, sorted
// for stable log output.
func diffPatternSets(prev, next []string) (added, removed []string) {
	prevSet, nextSet := toSet(prev), toSet(next)
	for p := range nextSet {
		if _, ok := prevSet[p]; !ok {
			added = append(added, p)
		}
	}
	for p := range prevSet {
		if _, ok := nextSet[p]; !ok {
			removed = append(removed, p)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func toSet(patterns []string) map[string]struct{} {
	set := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		set[p] = struct{}{}
	}
	return set
}
