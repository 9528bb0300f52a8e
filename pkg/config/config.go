// Package config holds the user configuration stored in
// ~/.config/codemobile/config.yaml: the default provider and model,
// per-provider overrides and the runtime limits.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/LucasSabena/codemobile-sub001/pkg/paths"
)

// ProviderConfig overrides registry defaults for one provider.
type ProviderConfig struct {
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// Generation holds the default sampling parameters.
type Generation struct {
	SystemPrompt  string   `yaml:"system_prompt,omitempty"`
	Temperature   *float64 `yaml:"temperature,omitempty"`
	TopP          *float64 `yaml:"top_p,omitempty"`
	MaxTokens     int64    `yaml:"max_tokens,omitempty"`
	StopSequences []string `yaml:"stop,omitempty"`
}

type Config struct {
	// Provider is the provider id used when none is given on the command line.
	Provider   string                     `yaml:"provider,omitempty"`
	Providers  map[string]*ProviderConfig `yaml:"providers,omitempty"`
	Generation Generation                 `yaml:"generation,omitempty"`
	Limits     Limits                     `yaml:"limits,omitempty"`
	// Trees maps tree:// names to directories exposed as scoped storage.
	Trees map[string]string `yaml:"trees,omitempty"`
}

func Path() string {
	return filepath.Join(paths.GetConfigDir(), "config.yaml")
}

// Load reads the config file. A missing file yields the defaults.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if cfg.Providers == nil {
		cfg.Providers = map[string]*ProviderConfig{}
	}
	cfg.Limits = cfg.Limits.WithDefaults()
	return cfg, nil
}

func (c *Config) Save() error {
	return c.SaveTo(Path())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

// ProviderOverride returns the overrides for id, never nil.
func (c *Config) ProviderOverride(id string) ProviderConfig {
	if p, ok := c.Providers[id]; ok && p != nil {
		return *p
	}
	return ProviderConfig{}
}
