// Package pluginconfig loads an optional per-plugin configuration blob:
// a sibling "<name>.config.yaml" file, or a "<NAME>_CONFIG" environment
// variable holding inline YAML, passed to a discovered plugin's
// Configure method if it implements plugin.Configurable. Configuration
// is an arbitrary key-value bag since plugin configuration shapes are
// plugin-defined.
package pluginconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load returns the configuration blob for a plugin named name, loaded
// from dir/<name>.config.yaml if present, else from the
// <NAME>_CONFIG environment variable (with '-' normalized to '_'), else
// nil if neither is set.
func Load(dir, name string) (map[string]any, error) {
	if dir != "" {
		path := filepath.Join(dir, name+".config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			var cfg map[string]any
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("pluginconfig: parse %s: %w", path, err)
			}
			return cfg, nil
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("pluginconfig: read %s: %w", path, err)
		}
	}

	envKey := strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_CONFIG"
	if blob, ok := os.LookupEnv(envKey); ok && blob != "" {
		var cfg map[string]any
		if err := yaml.Unmarshal([]byte(blob), &cfg); err != nil {
			return nil, fmt.Errorf("pluginconfig: parse %s: %w", envKey, err)
		}
		return cfg, nil
	}

	return nil, nil
}
