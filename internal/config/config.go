// Package config handles application configuration using Viper.
// Defaults, an optional YAML file and environment variables are merged in
// that order of priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	CORS       CORSConfig       `mapstructure:"cors"`
	YGOProDeck YGOProDeckConfig `mapstructure:"ygoprodeck"`
	Batch      BatchConfig      `mapstructure:"batch"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	ImageDir     string `mapstructure:"image_dir"`
	ExportDir    string `mapstructure:"export_dir"`
}

// AuthConfig lists accepted API keys. An empty APIKeys list leaves the public
// API open; admin endpoints always need a key.
type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// YGOProDeckConfig configures the remote card lookup API.
type YGOProDeckConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// BatchConfig tunes batch runs.
type BatchConfig struct {
	// Pacing is the fixed pause between consecutive lookups. Zero disables it.
	Pacing           time.Duration `mapstructure:"pacing"`
	LookupTimeout    time.Duration `mapstructure:"lookup_timeout"`
	ConfirmThreshold int           `mapstructure:"confirm_threshold"`
	NotifyEvery      int           `mapstructure:"notify_every"`
	MaxUploadBytes   int64         `mapstructure:"max_upload_bytes"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.database_path", "./storage/card-prices.db")
	v.SetDefault("storage.image_dir", "./storage/images")
	v.SetDefault("storage.export_dir", ".")
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("ygoprodeck.base_url", "https://db.ygoprodeck.com/api/v7")
	v.SetDefault("ygoprodeck.timeout", 30*time.Second)
	// The public API bans clients above 20 requests per second.
	v.SetDefault("ygoprodeck.rate_per_second", 15)
	v.SetDefault("ygoprodeck.user_agent", "card-price-extractor/1.0")
	v.SetDefault("batch.pacing", 100*time.Millisecond)
	v.SetDefault("batch.lookup_timeout", 15*time.Second)
	v.SetDefault("batch.confirm_threshold", 20)
	v.SetDefault("batch.notify_every", 5)
	v.SetDefault("batch.max_upload_bytes", 1<<20)
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// A missing file is fine unless one was asked for explicitly.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// CARDPRICE_ prefix + nested keys: CARDPRICE_BATCH_PACING=250ms -> batch.pacing
	v.SetEnvPrefix("CARDPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.Batch.Pacing < 0 {
		return fmt.Errorf("batch.pacing must not be negative")
	}
	if c.Batch.NotifyEvery < 1 {
		return fmt.Errorf("batch.notify_every must be at least 1")
	}
	if c.YGOProDeck.BaseURL == "" {
		return fmt.Errorf("ygoprodeck.base_url is required")
	}
	return nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
