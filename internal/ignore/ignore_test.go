package ignore

import "testing"

func TestMatcher_DefaultPatterns(t *testing.T) {
	m := NewMatcher()

	for _, tc := range []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"node_modules", true, true},
		{"services/api/node_modules", true, true},
		{".git", true, true},
		{"dist", true, true},
		{"cdk.out", true, true},
		{".DS_Store", false, true},
		{".tmplsync.json", false, true},
		{".tmplsync", true, true},
		{"src/index.ts", false, false},
		{"services/api/handler.ts", false, false},
		{"distillery/notes.md", false, false},
	} {
		if got := m.Match(tc.rel, tc.isDir); got != tc.want {
			t.Errorf("Match(%q, dir=%v) = %v, want %v", tc.rel, tc.isDir, got, tc.want)
		}
	}
}

func TestSampleMatcher_CoversUserNoise(t *testing.T) {
	m := NewSampleMatcher()

	for _, tc := range []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"package-lock.json", false, true},
		{"yarn.lock", false, true},
		{"pnpm-lock.yaml", false, true},
		{".env", false, true},
		{".env.local", false, true},
		{"README.md", false, true},
		{"node_modules", true, true},
		{"package.json", false, false},
		{"src/handler.ts", false, false},
	} {
		if got := m.Match(tc.rel, tc.isDir); got != tc.want {
			t.Errorf("Match(%q, dir=%v) = %v, want %v", tc.rel, tc.isDir, got, tc.want)
		}
	}
}
