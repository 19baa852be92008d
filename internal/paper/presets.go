package paper

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// Presets holds the default strategy_config values seeded for a new
// portfolio of each strategy, keyed by strategy name.
type Presets map[string]map[string]any

// LoadPresets parses the bundled presets.yaml. Failure indicates a
// corrupted build artifact, not a runtime condition, so callers typically
// panic on a non-nil error at startup.
func LoadPresets() (Presets, error) {
	var presets Presets
	if err := yaml.Unmarshal(presetsYAML, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}
