package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SITETRACE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	// Load the YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: SITETRACE_LISTEN_ADDR -> listen_addr, etc.
	if err := k.Load(env.Provider("SITETRACE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SITETRACE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validStores = map[StoreBackend]bool{
	StoreSQLite: true,
	StoreMemory: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	if c.Env != "dev" && c.Env != "prod" {
		return fmt.Errorf("invalid env %q: must be dev or prod", c.Env)
	}

	if !validStores[c.Store] {
		return fmt.Errorf("invalid store %q: must be sqlite or memory", c.Store)
	}

	if c.Store == StoreSQLite && c.DBPath == "" {
		return fmt.Errorf("db_path is required for the sqlite store")
	}

	if c.Escalation.IntervalMinutes < 0 {
		return fmt.Errorf("escalation.interval_minutes must be non-negative")
	}

	return nil
}
