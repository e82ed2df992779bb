package protect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultsResourcePath is where the framework ships its default protection
// list, relative to the upstream tree root.
const DefaultsResourcePath = ".tmplsync/protected-areas.json"

type defaultsResource struct {
	DefaultProtectedAreas []string `json:"defaultProtectedAreas"`
}

// FallbackDefaults returns the built-in protection list used when the
// framework resource is unavailable and the fork carries no stored list.
func FallbackDefaults() []string {
	return []string{
		".env",
		".env.local",
		"docs/",
		"config/app.config.json",
	}
}

// LoadDefaults reads the framework's default protection list from an
// upstream checkout. ok is false when the resource does not exist; older
// framework versions do not ship it.
func LoadDefaults(upstreamRoot string) (patterns []string, ok bool, err error) {
	resourcePath := filepath.Join(upstreamRoot, filepath.FromSlash(DefaultsResourcePath))

	data, err := os.ReadFile(resourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read protection defaults: %w", err)
	}

	var res defaultsResource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("failed to parse protection defaults %s: %w", resourcePath, err)
	}

	return res.DefaultProtectedAreas, true, nil
}
