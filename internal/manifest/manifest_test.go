package manifest

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustMap(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to parse merge output: %v", err)
	}
	return m
}

func TestCompare_AddedDependencyKeepsUserDependency(t *testing.T) {
	upstream := []byte(`{"name": "app", "dependencies": {"react": "^18.0.0", "zod": "^3.0.0"}}`)
	downstream := []byte(`{"name": "app", "dependencies": {"react": "^18.0.0", "left-pad": "^1.0.0"}}`)

	res := Compare(upstream, downstream)
	if !res.ShouldMerge {
		t.Fatal("expected a structural merge")
	}

	if diff := cmp.Diff([]string{"zod"}, res.Diff.AddedDependencies); diff != "" {
		t.Errorf("added dependencies mismatch (-want +got):\n%s", diff)
	}
	if len(res.Diff.ModifiedDependencies) != 0 {
		t.Errorf("unexpected conflicting dependencies: %v", res.Diff.ModifiedDependencies)
	}

	merged := mustMap(t, res.Merged)
	deps := merged["dependencies"].(map[string]any)
	for _, want := range []string{"react", "zod", "left-pad"} {
		if _, ok := deps[want]; !ok {
			t.Errorf("merged dependencies missing %q", want)
		}
	}
}

func TestCompare_SharedScriptResolvesFrameworkWins(t *testing.T) {
	upstream := []byte(`{"scripts": {"build": "tsc -p ."}}`)
	downstream := []byte(`{"scripts": {"build": "tsc --watch"}}`)

	res := Compare(upstream, downstream)
	if !res.ShouldMerge {
		t.Fatal("expected a structural merge")
	}

	if diff := cmp.Diff([]string{"build"}, res.Diff.ModifiedScripts); diff != "" {
		t.Errorf("conflicting scripts mismatch (-want +got):\n%s", diff)
	}

	merged := mustMap(t, res.Merged)
	scripts := merged["scripts"].(map[string]any)
	if scripts["build"] != "tsc -p ." {
		t.Errorf("expected framework value to win, got %q", scripts["build"])
	}
}

func TestCompare_DownstreamOnlyKeysPreservedSilently(t *testing.T) {
	upstream := []byte(`{"name": "app"}`)
	downstream := []byte(`{"name": "app", "license": "MIT", "scripts": {"deploy": "sls deploy"}}`)

	res := Compare(upstream, downstream)
	if !res.ShouldMerge {
		t.Fatal("expected a structural merge")
	}
	if !res.Diff.Empty() {
		t.Errorf("downstream-only keys must not appear in the diff: %+v", res.Diff)
	}

	merged := mustMap(t, res.Merged)
	if merged["license"] != "MIT" {
		t.Error("downstream-only key dropped by merge")
	}
	if merged["scripts"].(map[string]any)["deploy"] != "sls deploy" {
		t.Error("downstream-only script dropped by merge")
	}
}

func TestCompare_UpstreamOnlyAttributeRecordedAdded(t *testing.T) {
	upstream := []byte(`{"name": "app", "engines": {"node": ">=20"}}`)
	downstream := []byte(`{"name": "app"}`)

	res := Compare(upstream, downstream)
	if diff := cmp.Diff([]string{"engines"}, res.Diff.AddedAttributes); diff != "" {
		t.Errorf("added attributes mismatch (-want +got):\n%s", diff)
	}

	merged := mustMap(t, res.Merged)
	if _, ok := merged["engines"]; !ok {
		t.Error("upstream-only attribute not copied into merge result")
	}
}

func TestCompare_UpstreamOnlyContainerRecordedPerEntry(t *testing.T) {
	upstream := []byte(`{"devDependencies": {"typescript": "^5.0.0", "vitest": "^1.0.0"}}`)
	downstream := []byte(`{"name": "app"}`)

	res := Compare(upstream, downstream)
	want := []string{"typescript", "vitest"}
	if diff := cmp.Diff(want, res.Diff.AddedDevDependencies); diff != "" {
		t.Errorf("added devDependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_SharedAttributeFrameworkWins(t *testing.T) {
	upstream := []byte(`{"version": "2.0.0"}`)
	downstream := []byte(`{"version": "1.4.0"}`)

	res := Compare(upstream, downstream)
	if diff := cmp.Diff([]string{"version"}, res.Diff.ModifiedAttributes); diff != "" {
		t.Errorf("modified attributes mismatch (-want +got):\n%s", diff)
	}
	if mustMap(t, res.Merged)["version"] != "2.0.0" {
		t.Error("expected the upstream attribute value in the merge result")
	}
}

func TestCompare_ParseFailureDegrades(t *testing.T) {
	if res := Compare([]byte("{broken"), []byte(`{"name":"app"}`)); res.ShouldMerge {
		t.Error("malformed upstream manifest must not merge structurally")
	}
	if res := Compare([]byte(`{"name":"app"}`), []byte("{broken")); res.ShouldMerge {
		t.Error("malformed downstream manifest must not merge structurally")
	}
}

func TestCompare_MergeIsFixedPoint(t *testing.T) {
	upstream := []byte(`{
		"name": "app",
		"version": "2.0.0",
		"scripts": {"build": "tsc -p .", "test": "vitest"},
		"dependencies": {"zod": "^3.0.0"}
	}`)
	downstream := []byte(`{
		"name": "app",
		"version": "1.0.0",
		"scripts": {"build": "tsc --watch", "deploy": "sls deploy"},
		"dependencies": {"left-pad": "^1.0.0"},
		"license": "MIT"
	}`)

	first := Compare(upstream, downstream)
	if !first.ShouldMerge || first.Diff.Empty() {
		t.Fatal("expected a non-trivial merge")
	}

	second := Compare(upstream, first.Merged)
	if !second.ShouldMerge {
		t.Fatal("merge output must be parseable")
	}
	if !second.Diff.Empty() {
		t.Errorf("re-merging after apply must be a no-op, got %+v", second.Diff)
	}
}

func TestIsManifest(t *testing.T) {
	if !IsManifest("package.json") || !IsManifest("services/api/package.json") {
		t.Error("package.json must be recognized at any depth")
	}
	if IsManifest("package-lock.json") || IsManifest("composer.json") {
		t.Error("only package.json is a manifest")
	}
}

func TestDiffSectionMaps(t *testing.T) {
	d := Diff{
		AddedDependencies: []string{"zod"},
		ModifiedScripts:   []string{"build"},
	}

	if diff := cmp.Diff(map[string][]string{"dependencies": {"zod"}}, d.Added()); diff != "" {
		t.Errorf("Added() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string][]string{"scripts": {"build"}}, d.Modified()); diff != "" {
		t.Errorf("Modified() mismatch (-want +got):\n%s", diff)
	}
}
