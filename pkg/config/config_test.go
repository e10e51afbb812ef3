package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.True(t, cfg.Agent.WorldEnabled)
	assert.Equal(t, 60, cfg.Agent.TickIntervalSecs)
}

func TestLoadConfigMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  "llm": {
    "primary": {"name": "main", "model": "gpt-4o-mini", "api_key": "sk-test", "base_url": "https://api.openai.com/v1"},
    "backups": [{"name": "spare", "model": "claude-sonnet-4-5", "base_url": "https://api.anthropic.com"}],
    "max_retries": 5
  },
  "agent": {"max_tokens": 2048, "world_enabled": false},
  "storage": {"backend": "file", "path": "/tmp/axon-test"}
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.LLM.Primary.Name)
	assert.Equal(t, 5, cfg.LLM.MaxRetries)
	require.Len(t, cfg.LLM.Backups, 1)
	assert.Equal(t, "spare", cfg.LLM.Backups[0].Name)
	assert.Empty(t, cfg.LLM.Backups[0].APIKey)
	assert.Equal(t, 2048, cfg.Agent.MaxTokens)
	assert.False(t, cfg.Agent.WorldEnabled)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"llm": {"primary": {"model": "from-file"}}}`), 0o600))

	t.Setenv("AXON_LLM_MODEL", "from-env")
	t.Setenv("AXON_AGENT_MAX_TOKENS", "4096")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Primary.Model)
	assert.Equal(t, 4096, cfg.Agent.MaxTokens)
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.LLM.Primary.APIKey = "sk-roundtrip"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-roundtrip", loaded.LLM.Primary.APIKey)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".axon/config.json"), ExpandHome("~/.axon/config.json"))
	assert.Equal(t, "/absolute/path", ExpandHome("/absolute/path"))
	assert.Equal(t, "relative", ExpandHome("relative"))
}
