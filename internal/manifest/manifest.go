// Package manifest implements the structural merge of package manifests.
// Compare is a pure function over two byte slices so it stays unit-testable
// without any filesystem involvement.
package manifest

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"sort"
)

// FileName is the only manifest file subject to structural merging; all
// other files sync by byte comparison.
const FileName = "package.json"

// IsManifest reports whether the tree-relative path names a package
// manifest.
func IsManifest(rel string) bool {
	return filepath.Base(filepath.FromSlash(rel)) == FileName
}

// containerSections are merged entry-wise instead of as opaque values.
var containerSections = []string{"scripts", "dependencies", "devDependencies"}

// Diff records what the merge changed, per section. Added entries exist only
// upstream; Modified entries exist on both sides with different values and
// resolve to the upstream value, so every Modified entry is a lost downstream
// edit worth surfacing. Keys present only downstream are preserved and
// deliberately absent from the record.
type Diff struct {
	AddedAttributes         []string
	ModifiedAttributes      []string
	AddedScripts            []string
	ModifiedScripts         []string
	AddedDependencies       []string
	ModifiedDependencies    []string
	AddedDevDependencies    []string
	ModifiedDevDependencies []string
}

// Empty reports whether the merge would be a no-op.
func (d Diff) Empty() bool {
	return len(d.AddedAttributes) == 0 && len(d.ModifiedAttributes) == 0 &&
		len(d.AddedScripts) == 0 && len(d.ModifiedScripts) == 0 &&
		len(d.AddedDependencies) == 0 && len(d.ModifiedDependencies) == 0 &&
		len(d.AddedDevDependencies) == 0 && len(d.ModifiedDevDependencies) == 0
}

// Added returns the framework-only additions keyed by section, for
// reporting.
func (d Diff) Added() map[string][]string {
	return sectionMap(d.AddedAttributes, d.AddedScripts, d.AddedDependencies, d.AddedDevDependencies)
}

// Modified returns the conflicting entries keyed by section. These resolved
// framework-wins, replacing the downstream value.
func (d Diff) Modified() map[string][]string {
	return sectionMap(d.ModifiedAttributes, d.ModifiedScripts, d.ModifiedDependencies, d.ModifiedDevDependencies)
}

func sectionMap(attributes, scripts, deps, devDeps []string) map[string][]string {
	out := make(map[string][]string)
	if len(attributes) > 0 {
		out["attributes"] = attributes
	}
	if len(scripts) > 0 {
		out["scripts"] = scripts
	}
	if len(deps) > 0 {
		out["dependencies"] = deps
	}
	if len(devDeps) > 0 {
		out["devDependencies"] = devDeps
	}
	return out
}

func (d *Diff) record(section, entry string, modified bool) {
	var added, mod *[]string
	switch section {
	case "scripts":
		added, mod = &d.AddedScripts, &d.ModifiedScripts
	case "dependencies":
		added, mod = &d.AddedDependencies, &d.ModifiedDependencies
	case "devDependencies":
		added, mod = &d.AddedDevDependencies, &d.ModifiedDevDependencies
	default:
		added, mod = &d.AddedAttributes, &d.ModifiedAttributes
	}
	if modified {
		*mod = append(*mod, entry)
	} else {
		*added = append(*added, entry)
	}
}

// Result is the outcome of comparing two manifests. ShouldMerge is false
// when either side failed to parse; the caller then degrades to whole-file
// replacement. Merged holds the pretty-printed merge output.
type Result struct {
	ShouldMerge bool
	Diff        Diff
	Merged      []byte
}

// Compare structurally merges the upstream manifest into the downstream one.
// The merge base is a clone of the downstream manifest, so downstream-only
// keys survive untouched. Upstream-only top-level keys are copied in and
// recorded as added. For scripts, dependencies and devDependencies both
// sides are merged entry-wise with upstream values overriding same-named
// downstream entries; every other shared key compares as an opaque value and
// takes the upstream side on inequality (framework wins).
func Compare(upstream, downstream []byte) Result {
	var up, down map[string]any
	if err := json.Unmarshal(upstream, &up); err != nil {
		return Result{}
	}
	if err := json.Unmarshal(downstream, &down); err != nil {
		return Result{}
	}

	merged := make(map[string]any, len(down)+len(up))
	for k, v := range down {
		merged[k] = deepCopy(v)
	}

	var diff Diff
	for _, key := range sortedKeys(up) {
		upVal := up[key]
		downVal, shared := down[key]

		if !shared {
			merged[key] = deepCopy(upVal)
			recordKey(&diff, key, upVal, false)
			continue
		}

		if isContainerSection(key) {
			upMap, upOK := upVal.(map[string]any)
			downMap, downOK := downVal.(map[string]any)
			if upOK && downOK {
				merged[key] = mergeSection(&diff, key, upMap, downMap)
				continue
			}
			// malformed section on one side, treat as opaque value
		}

		if !reflect.DeepEqual(upVal, downVal) {
			merged[key] = deepCopy(upVal)
			diff.record(key, key, true)
		}
	}

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return Result{}
	}
	out = append(out, '\n')

	return Result{ShouldMerge: true, Diff: diff, Merged: out}
}

// recordKey records an upstream-only top-level key. Container sections are
// recorded entry by entry so the report names the new scripts or packages
// rather than just the section.
func recordKey(diff *Diff, key string, upVal any, modified bool) {
	if isContainerSection(key) {
		if upMap, ok := upVal.(map[string]any); ok {
			for _, entry := range sortedKeys(upMap) {
				diff.record(key, entry, modified)
			}
			return
		}
	}
	diff.record(key, key, modified)
}

// mergeSection unions an entry-wise section: downstream-only entries are
// kept, upstream entries win on collision.
func mergeSection(diff *Diff, section string, up, down map[string]any) map[string]any {
	out := make(map[string]any, len(down)+len(up))
	for k, v := range down {
		out[k] = deepCopy(v)
	}
	for _, entry := range sortedKeys(up) {
		prev, shared := down[entry]
		if !shared {
			diff.record(section, entry, false)
		} else if !reflect.DeepEqual(prev, up[entry]) {
			diff.record(section, entry, true)
		}
		out[entry] = deepCopy(up[entry])
	}
	return out
}

func isContainerSection(key string) bool {
	for _, s := range containerSections {
		if key == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// deepCopy clones a decoded JSON value so the merge result never aliases
// the inputs.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
