package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceOverride adjusts a registry profile's transport endpoints without
// touching its capability descriptor. Coverage windows, granularities, and
// routing are fixed in code; only where to reach the source may vary.
type SourceOverride struct {
	BaseURL       string            `yaml:"baseUrl,omitempty"`
	StateBaseURLs map[string]string `yaml:"stateBaseUrls,omitempty"`
}

// LoadSourceOverrides reads per-source endpoint overrides from a
// sources.yml file. A missing file is not an error.
func LoadSourceOverrides(path string) (map[string]SourceOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]SourceOverride{}, nil
		}
		return nil, err
	}

	var overrides map[string]SourceOverride
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("invalid sources override file %s: %w", path, err)
	}
	if overrides == nil {
		overrides = map[string]SourceOverride{}
	}
	return overrides, nil
}
