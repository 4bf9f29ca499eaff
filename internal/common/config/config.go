// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Interpreter   InterpreterConfig   `mapstructure:"interpreter"`
	Server        ServerConfig        `mapstructure:"server"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// ContextTTL bounds how long idle conversation state may linger, in
	// seconds. Zero means no expiry.
	ContextTTL int `mapstructure:"context_ttl"`
}

// CollaboratorsConfig configures the HTTP clients for the domain
// operations this core calls but does not implement.
type CollaboratorsConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Timeout        int    `mapstructure:"timeout"`     // milliseconds, per call
	MaxRetries     int    `mapstructure:"max_retries"` // idempotent reads only
	RetryDelayMs   int    `mapstructure:"retry_delay_ms"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds, whole pipeline
}

// InterpreterConfig holds tunables for the parsing pipeline.
type InterpreterConfig struct {
	// ConfidenceThreshold below which a message degrades to general_query.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	// CatalogPath optionally overrides the embedded intent catalog.
	CatalogPath string `mapstructure:"catalog_path"`
	// MaxSuggestions caps the suggestion list per response.
	MaxSuggestions int `mapstructure:"max_suggestions"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bugtracker-assistant"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Collaborators.Timeout <= 0 {
		cfg.Collaborators.Timeout = 5000
	}
	if cfg.Collaborators.MaxRetries <= 0 {
		cfg.Collaborators.MaxRetries = 2
	}
	if cfg.Collaborators.RetryDelayMs <= 0 {
		cfg.Collaborators.RetryDelayMs = 100
	}
	if cfg.Collaborators.RequestTimeout <= 0 {
		cfg.Collaborators.RequestTimeout = 30000
	}
	if cfg.Interpreter.ConfidenceThreshold <= 0 {
		cfg.Interpreter.ConfidenceThreshold = 0.3
	}
	if cfg.Interpreter.MaxSuggestions <= 0 {
		cfg.Interpreter.MaxSuggestions = 10
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Interpreter.ConfidenceThreshold >= 1 {
		return fmt.Errorf("interpreter.confidence_threshold must be below 1, got %v", cfg.Interpreter.ConfidenceThreshold)
	}
	if cfg.Interpreter.MaxSuggestions > 10 {
		return fmt.Errorf("interpreter.max_suggestions is capped at 10, got %d", cfg.Interpreter.MaxSuggestions)
	}
	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}
	return nil
}
