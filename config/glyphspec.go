package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/neoglyph/rippley/agent"
)

// DefaultGlyphSpecPath is the path that LoadBlueprints tries when no explicit
// path is given.
const DefaultGlyphSpecPath = "configs/glyph_spec.json"

type glyphSpec struct {
	Agents []agent.Blueprint `json:"agents"`
}

// LoadBlueprints loads agent Blueprints from the glyph spec file at path. An
// empty path falls back to DefaultGlyphSpecPath; a missing fallback file is
// not an error and returns no Blueprints. An explicitly given path must exist.
func LoadBlueprints(path string) ([]agent.Blueprint, error) {
	fallback := path == ""
	if fallback {
		path = DefaultGlyphSpecPath
	}

	b, err := os.ReadFile(path)
	if fallback && os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read glyph spec %q: %w", path, err)
	}

	var spec glyphSpec
	if err := json.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("parse glyph spec %q: %w", path, err)
	}

	return spec.Agents, nil
}
