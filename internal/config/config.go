// Package config holds clearity configuration, loaded from YAML with
// environment-variable overrides for secrets and deployment knobs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all clearity configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the completion gateway.
type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	FastModel string `yaml:"fast_model"` // cheap tier: context, synthesis, replies
	DeepModel string `yaml:"deep_model"` // capable tier: reasoning and task derivation
	Timeout   string `yaml:"timeout"`    // Go duration string, e.g. "20m"
	SiteURL   string `yaml:"site_url"`
	SiteName  string `yaml:"site_name"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures process logging.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:   "https://openrouter.ai/api/v1",
			FastModel: "google/gemini-2.0-flash-exp:free",
			DeepModel: "anthropic/claude-3.5-sonnet",
			Timeout:   "20m",
			SiteURL:   "https://clearity.app",
			SiteName:  "Clearity",
		},
		Database: DatabaseConfig{
			Path: ".clearity/clearity.db",
		},
	}
}

// Load reads configuration from path, layering file values over defaults and
// environment overrides over both. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLEARITY_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("CLEARITY_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("CLEARITY_FAST_MODEL"); v != "" {
		c.LLM.FastModel = v
	}
	if v := os.Getenv("CLEARITY_DEEP_MODEL"); v != "" {
		c.LLM.DeepModel = v
	}
	if v := os.Getenv("CLEARITY_DB_PATH"); v != "" {
		c.Database.Path = v
	}
}

func (c *Config) validate() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.FastModel == "" || c.LLM.DeepModel == "" {
		return fmt.Errorf("llm.fast_model and llm.deep_model are required")
	}
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	return nil
}

// LLMTimeout parses the gateway timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	return d, nil
}
