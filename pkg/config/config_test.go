package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Engine.LLMTimeout)
	assert.Equal(t, 20, cfg.Engine.MaxTurnsPerAgent)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
engine:
  llm_timeout: 45s
llm:
  base_url: http://llm.internal:8080/v1
  model: qwen2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Engine.LLMTimeout)
	assert.Equal(t, "qwen2", cfg.LLM.Model)
	// Unset fields keep defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 50, cfg.Engine.MemoryWindow)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9200")
	t.Setenv("LLM_MODEL", "mistral")
	t.Setenv("LLM_TIMEOUT", "90s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Equal(t, 90*time.Second, cfg.Engine.LLMTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad write timeout", func(c *Config) { c.Server.WriteTimeout = 0 }, "write_timeout"},
		{"bad llm timeout", func(c *Config) { c.Engine.LLMTimeout = 0 }, "llm_timeout"},
		{"negative tick delay", func(c *Config) { c.Engine.DefaultTickDelay = -time.Second }, "tick_delay"},
		{"bad inbox window", func(c *Config) { c.Engine.InboxWindow = 0 }, "inbox_window"},
		{"bad event buffer", func(c *Config) { c.Engine.EventBuffer = -1 }, "event_buffer"},
		{"missing base url", func(c *Config) { c.LLM.BaseURL = "" }, "base_url"},
		{"bad temperature", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
