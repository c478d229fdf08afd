// Package config holds server and engine configuration: defaults, a YAML
// file loader, environment overrides, and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	LLM    LLMConfig    `yaml:"llm"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// EngineConfig configures per-run simulation behavior. Scenario values
// (max steps, tick delay) override these per run where they are set.
type EngineConfig struct {
	// DefaultTickDelay spaces ticks when the scenario does not set one.
	DefaultTickDelay time.Duration `yaml:"default_tick_delay"`
	// LLMTimeout bounds each agent's oracle call.
	LLMTimeout time.Duration `yaml:"llm_timeout"`
	// MaxTurnsPerAgent caps conversation turns per participant.
	MaxTurnsPerAgent int `yaml:"max_turns_per_agent"`
	// InboxWindow is how many inbox messages enter the agent context.
	InboxWindow int `yaml:"inbox_window"`
	// MemoryWindow is the episodic memory sliding-window size.
	MemoryWindow int `yaml:"memory_window"`
	// EventBuffer is the per-subscriber event channel capacity.
	EventBuffer int `yaml:"event_buffer"`
}

// LLMConfig configures the default oracle backend.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Stream      bool    `yaml:"stream"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			WriteTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			DefaultTickDelay: time.Second,
			LLMTimeout:       30 * time.Second,
			MaxTurnsPerAgent: 20,
			InboxWindow:      10,
			MemoryWindow:     50,
			EventBuffer:      256,
		},
		LLM: LLMConfig{
			BaseURL:     "http://localhost:11434/v1",
			Model:       "llama3.1",
			Temperature: 0.8,
			Stream:      true,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.LLMTimeout = d
		}
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	if c.Engine.LLMTimeout <= 0 {
		return fmt.Errorf("engine.llm_timeout must be positive")
	}
	if c.Engine.DefaultTickDelay < 0 {
		return fmt.Errorf("engine.default_tick_delay cannot be negative")
	}
	if c.Engine.InboxWindow <= 0 {
		return fmt.Errorf("engine.inbox_window must be positive")
	}
	if c.Engine.MemoryWindow <= 0 {
		return fmt.Errorf("engine.memory_window must be positive")
	}
	if c.Engine.EventBuffer <= 0 {
		return fmt.Errorf("engine.event_buffer must be positive")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be in 0..2, got %v", c.LLM.Temperature)
	}
	return nil
}
