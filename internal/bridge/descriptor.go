package bridge

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Environment describes one bindable runtime environment
type Environment struct {
	// BrowserBin is the browser executable used by the browser-automation
	// transport. Empty means auto-detect.
	BrowserBin string `toml:"browser_bin"`
	Headless   bool   `toml:"headless"`
}

// Descriptor declares the runtime environments a process may bind to,
// loaded from <dataDir>/bridge.toml
type Descriptor struct {
	Default      string                 `toml:"default"`
	Environments map[string]Environment `toml:"environments"`
}

// DefaultDescriptor returns a descriptor with a single auto-detected
// headless environment named "default"
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Default: "default",
		Environments: map[string]Environment{
			"default": {Headless: true},
		},
	}
}

// LoadDescriptor reads a bridge descriptor from a TOML file. A missing file
// yields the default descriptor.
func LoadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDescriptor(), nil
		}
		return Descriptor{}, err
	}

	var desc Descriptor
	if err := toml.Unmarshal(data, &desc); err != nil {
		return Descriptor{}, fmt.Errorf("invalid bridge descriptor %s: %w", path, err)
	}
	if desc.Environments == nil {
		desc.Environments = map[string]Environment{}
	}
	if desc.Default == "" {
		desc.Default = "default"
	}
	if _, ok := desc.Environments[desc.Default]; !ok {
		desc.Environments[desc.Default] = Environment{Headless: true}
	}
	return desc, nil
}

// Resolve looks up an environment by name, defaulting to the descriptor's
// default when name is empty
func (d Descriptor) Resolve(name string) (string, Environment, error) {
	if name == "" {
		name = d.Default
	}
	env, ok := d.Environments[name]
	if !ok {
		names := make([]string, 0, len(d.Environments))
		for n := range d.Environments {
			names = append(names, n)
		}
		return "", Environment{}, fmt.Errorf("unknown environment %q (declared: %v)", name, names)
	}
	return name, env, nil
}
