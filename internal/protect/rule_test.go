package protect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/schaermu/tmplsync/internal/syncconfig"
)

func TestParseRuleVariants(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		matches []string
		misses  []string
	}{
		{
			pattern: "docs/",
			matches: []string{"docs", "docs/intro.md", "docs/a/b.md"},
			misses:  []string{"docsx/intro.md", "src/docs.md"},
		},
		{
			pattern: "config/app.config.json",
			matches: []string{"config/app.config.json"},
			misses:  []string{"config/app.config.json.bak", "other/config/app.config.json"},
		},
		{
			pattern: ".env",
			matches: []string{".env", "services/api/.env"},
			misses:  []string{".env.local", "services/api/env"},
		},
	} {
		t.Run(tc.pattern, func(t *testing.T) {
			rule := ParseRule(tc.pattern)
			for _, p := range tc.matches {
				if !rule.Matches(p) {
					t.Errorf("rule %q should match %q", tc.pattern, p)
				}
			}
			for _, p := range tc.misses {
				if rule.Matches(p) {
					t.Errorf("rule %q should not match %q", tc.pattern, p)
				}
			}
		})
	}
}

func TestIsProtected_CustomSegmentAlwaysWins(t *testing.T) {
	// No rules configured at all: the custom- rule still applies.
	paths := []string{
		"custom-tools",
		"services/custom-foo/index.ts",
		"packages/web/custom-theme/colors.css",
	}
	for _, p := range paths {
		if !IsProtected(p, nil) {
			t.Errorf("expected %q to be protected by the custom- rule", p)
		}
	}

	if IsProtected("services/foo-custom/index.ts", nil) {
		t.Error("custom- must match as a segment prefix, not a substring")
	}
}

func TestIsProtected_RuleList(t *testing.T) {
	rules := CompileRules([]string{"docs/", "config/app.config.json", ".env"})

	if !IsProtected("docs/guide.md", rules) {
		t.Error("expected docs/guide.md to be protected")
	}
	if !IsProtected("api/.env", rules) {
		t.Error("expected api/.env to be protected")
	}
	if IsProtected("src/index.ts", rules) {
		t.Error("src/index.ts should not be protected")
	}
}

func TestEffective_SetAlgebra(t *testing.T) {
	cfg := &syncconfig.Config{
		ProtectedAreas:       []string{"docs/", ".env", "docs/"},
		UserProtectedAreas:   []string{"notes/", ".env"},
		UserUnprotectedAreas: []string{"docs/"},
	}

	got := Effective(cfg)
	want := []string{".env", "notes/"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("effective set mismatch (-want +got):\n%s", diff)
	}
}

func TestEffective_FallbackDefaults(t *testing.T) {
	cfg := &syncconfig.Config{}

	got := Effective(cfg)
	if diff := cmp.Diff(FallbackDefaults(), got); diff != "" {
		t.Errorf("expected built-in defaults (-want +got):\n%s", diff)
	}
}

func TestEffective_UnprotectOverridesDefault(t *testing.T) {
	cfg := &syncconfig.Config{
		ProtectedAreas:       []string{"docs/", "CODEOWNERS"},
		UserUnprotectedAreas: []string{"CODEOWNERS"},
	}

	rules := CompileRules(Effective(cfg))
	if IsProtected("CODEOWNERS", rules) {
		t.Error("user unprotect list must remove the default rule")
	}
	if !IsProtected("docs/setup.md", rules) {
		t.Error("remaining defaults must stay in force")
	}
}
