// Package config provides application configuration loading and management.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or
// environment variables.
type Config struct {
	// StorageBackend selects the KV engine: "memory", "pebble" or "sqlite".
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	// StoragePath is the database path for durable backends.
	StoragePath string `mapstructure:"STORAGE_PATH"`
	// AllowRerequestAfterReject lets a requester re-open a direct chat that
	// the target previously rejected, returning it to pending.
	AllowRerequestAfterReject bool `mapstructure:"ALLOW_REREQUEST_AFTER_REJECT"`
	// SuggestionCount is the number of smart replies requested per draft.
	SuggestionCount int `mapstructure:"SUGGESTION_COUNT"`
	// SuggestDebounceMS is the typing pause before a suggestion fetch fires.
	SuggestDebounceMS int    `mapstructure:"SUGGEST_DEBOUNCE_MS"`
	Env               string `mapstructure:"APP_ENV"`
}

// LoadConfig loads application configuration from file and environment
// variables. Missing files are fine; defaults cover every field.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	viper.SetDefault("STORAGE_BACKEND", "pebble")
	viper.SetDefault("STORAGE_PATH", "parley.db")
	viper.SetDefault("ALLOW_REREQUEST_AFTER_REJECT", false)
	viper.SetDefault("SUGGESTION_COUNT", 3)
	viper.SetDefault("SUGGEST_DEBOUNCE_MS", 400)
	viper.SetDefault("APP_ENV", "development")

	// The config file is optional; environment variables and defaults are
	// enough to run.
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.StorageBackend {
	case "memory", "pebble", "sqlite":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	return &cfg, nil
}
