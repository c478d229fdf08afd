package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "sim")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "simdb")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "sim", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "simdb", cfg.Database)
	assert.Equal(t, 20, cfg.MaxOpenConns)
}

func TestLoadConfigFromEnvRejectsBadPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	_, err := LoadConfigFromEnv()
	assert.Error(t, err)

	t.Setenv("DB_PORT", "70000")
	_, err = LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Host = "" }},
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"empty user", func(c *Config) { c.User = "" }},
		{"empty database", func(c *Config) { c.Database = "" }},
		{"zero open conns", func(c *Config) { c.MaxOpenConns = 0 }},
		{"negative idle conns", func(c *Config) { c.MaxIdleConns = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}
