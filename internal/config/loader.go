// Package config provides configuration management for the cross-book bot.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("CROSS_BOOK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields. A missing config file is not an error; defaults and environment
// variables carry the day.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("CROSS_BOOK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "cross-book")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("features.practice_mode_enabled", true)
	v.SetDefault("trading.tick_interval_ms", 1000)
	v.SetDefault("trading.price_ttl_seconds", 10)
	v.SetDefault("trading.cross_enabled", true)
	v.SetDefault("trading.lay_ceiling", 20.0)
	v.SetDefault("trading.maker_epsilon", 0.01)
	v.SetDefault("trading.maker_back_stake", 2.0)
	v.SetDefault("trading.close_out_ticks", 30)
	v.SetDefault("trading.strategy_interval", 1)
	v.SetDefault("trading.market_lookahead_mins", 60)
	v.SetDefault("trading.market_linger_mins", 10)
	v.SetDefault("trading.market_refresh_ticks", 60)
	v.SetDefault("trading.balance_schedule", "@every 5m")
	v.SetDefault("trading.practice_start_balance", 1000.0)
	v.SetDefault("bdaq.commission", 0.05)
	v.SetDefault("bdaq.min_stake", 0.5)
	v.SetDefault("betfair.commission", 0.05)
	v.SetDefault("betfair.min_stake", 2.0)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// ReloadFromEnv reloads the configuration from the path named in
// CROSS_BOOK_CONFIG_PATH, if set.
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv("CROSS_BOOK_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}
