package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultLimits(), cfg.Limits)
	assert.Empty(t, cfg.Provider)
	assert.NotNil(t, cfg.Providers)
}

func TestLoadParsesProvidersAndLimits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`provider: anthropic
providers:
  anthropic:
    model: claude-sonnet-4-5
  ollama:
    base_url: http://localhost:11434/v1
generation:
  max_tokens: 2048
limits:
  max_rounds: 10
  poll_interval: 2s
trees:
  notes: /tmp/notes
`), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.ProviderOverride("anthropic").Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ProviderOverride("ollama").BaseURL)
	assert.Equal(t, ProviderConfig{}, cfg.ProviderOverride("openai"))
	assert.Equal(t, int64(2048), cfg.Generation.MaxTokens)
	assert.Equal(t, 10, cfg.Limits.MaxRounds)
	assert.Equal(t, 2*time.Second, cfg.Limits.PollInterval)
	assert.Equal(t, DefaultLimits().SlowDownBackoff, cfg.Limits.SlowDownBackoff)
	assert.Equal(t, "/tmp/notes", cfg.Trees["notes"])
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [unterminated"), 0o600))

	_, err := LoadFrom(path)
	require.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		Provider:  "openai",
		Providers: map[string]*ProviderConfig{"openai": {Model: "gpt-4o-mini"}},
	}
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.Provider)
	assert.Equal(t, "gpt-4o-mini", loaded.ProviderOverride("openai").Model)
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	l := Limits{MaxRounds: 3, CommandTimeout: time.Second}.WithDefaults()
	assert.Equal(t, 3, l.MaxRounds)
	assert.Equal(t, time.Second, l.CommandTimeout)
	assert.Equal(t, 30000, l.MaxOutputChars)
}
