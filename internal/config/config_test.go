package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)

	d, err := cfg.LLMTimeout()
	require.NoError(t, err)
	require.Equal(t, "20m0s", d.String())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  fast_model: test/fast
  deep_model: test/deep
  timeout: 5m
database:
  path: /tmp/clearity-test.db
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "test/fast", cfg.LLM.FastModel)
	require.Equal(t, "/tmp/clearity-test.db", cfg.Database.Path)
	// Unset keys keep defaults.
	require.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("CLEARITY_API_KEY", "env-key")
	t.Setenv("CLEARITY_FAST_MODEL", "env/fast")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.LLM.APIKey)
	require.Equal(t, "env/fast", cfg.LLM.FastModel)
}

func TestOpenRouterKeyFallback(t *testing.T) {
	t.Setenv("CLEARITY_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "or-key", cfg.LLM.APIKey)
}

func TestInvalidTimeoutRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  timeout: forever\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
