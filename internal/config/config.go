// Package config provides configuration management for the cross-book bot.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Betfair  BetfairConfig  `mapstructure:"betfair" validate:"required"`
	Bdaq     BdaqConfig     `mapstructure:"bdaq" validate:"required"`
	Trading  TradingConfig  `mapstructure:"trading" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	Features FeaturesConfig `mapstructure:"features"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// BetfairConfig represents Betfair API configuration
type BetfairConfig struct {
	APIURL     string  `mapstructure:"api_url" validate:"required,url"`
	AccountURL string  `mapstructure:"account_url" validate:"required,url"`
	LoginURL   string  `mapstructure:"login_url" validate:"required,url"`
	AppKey     string  `mapstructure:"app_key" validate:"required"`
	Username   string  `mapstructure:"username" validate:"required"`
	Password   string  `mapstructure:"password" validate:"required"`
	CertFile   string  `mapstructure:"cert_file" validate:"required"`
	KeyFile    string  `mapstructure:"key_file" validate:"required"`
	Commission float64 `mapstructure:"commission" validate:"gte=0,lt=1"`
	MinStake   float64 `mapstructure:"min_stake" validate:"gt=0"`
}

// BdaqConfig represents BetDAQ API configuration
type BdaqConfig struct {
	APIURL     string  `mapstructure:"api_url" validate:"required,url"`
	Username   string  `mapstructure:"username" validate:"required"`
	Password   string  `mapstructure:"password" validate:"required"`
	Commission float64 `mapstructure:"commission" validate:"gte=0,lt=1"`
	MinStake   float64 `mapstructure:"min_stake" validate:"gt=0"`
}

// TradingConfig represents strategy parameters and engine cadence
type TradingConfig struct {
	TickIntervalMS       int     `mapstructure:"tick_interval_ms" validate:"required,gt=0"`
	PriceTTLSeconds      int     `mapstructure:"price_ttl_seconds" validate:"required,gt=0"`
	CrossEnabled         bool    `mapstructure:"cross_enabled"`
	MakerEnabled         bool    `mapstructure:"maker_enabled"`
	LayCeiling           float64 `mapstructure:"lay_ceiling" validate:"gt=1"`
	MakerEpsilon         float64 `mapstructure:"maker_epsilon" validate:"gte=0"`
	MakerBackStake       float64 `mapstructure:"maker_back_stake" validate:"gt=0"`
	CloseOutTicks        int     `mapstructure:"close_out_ticks" validate:"gte=0"`
	StrategyInterval     int     `mapstructure:"strategy_interval" validate:"required,gt=0"`
	MarketLookaheadMins  int     `mapstructure:"market_lookahead_mins" validate:"required,gt=0"`
	MarketLingerMins     int     `mapstructure:"market_linger_mins" validate:"required,gte=0"`
	MarketRefreshTicks   int     `mapstructure:"market_refresh_ticks" validate:"required,gt=0"`
	BalanceSchedule      string  `mapstructure:"balance_schedule"`
	MarketMatchSchedule  string  `mapstructure:"market_match_schedule"`
	PracticeStartBalance float64 `mapstructure:"practice_start_balance" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// FeaturesConfig represents feature flags
type FeaturesConfig struct {
	LiveTradingEnabled  bool `mapstructure:"live_trading_enabled"`
	PracticeModeEnabled bool `mapstructure:"practice_mode_enabled"`
	MonitorEnabled      bool `mapstructure:"monitor_enabled"`
}

// SecretsConfig controls the AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Practice reports whether the bot should suppress real order execution.
// Practice wins whenever live trading is not explicitly enabled.
func (c *Config) Practice() bool {
	return c.Features.PracticeModeEnabled || !c.Features.LiveTradingEnabled
}

// TickInterval returns the engine tick cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Trading.TickIntervalMS) * time.Millisecond
}

// PriceTTL returns how long a price snapshot stays fresh.
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Trading.PriceTTLSeconds) * time.Second
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
