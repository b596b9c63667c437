/*
Package config loads server configuration.

PURPOSE:
  Defaults first, then an optional TOML file, then flag overrides applied
  by cmd/server. Every tunable lives here so no component hard-codes a
  threshold.

EXAMPLE (radventure.toml):

  [server]
  host = "0.0.0.0"
  port = 8080

  [database]
  path = "./data/radventure.db"

  [auth]
  jwt_secret = "change-me"

  [tutor]
  base_url = "https://api.openai.com/v1"
  model = "gpt-4o-mini"
  api_key = "sk-..."
  rate_limit_per_minute = 5

  [challenge]
  fanout_batch_size = 100

  [economy]
  daily_login_bonus = 5
*/
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG
// =============================================================================

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Tutor     TutorConfig     `toml:"tutor"`
	Challenge ChallengeConfig `toml:"challenge"`
	Economy   EconomyConfig   `toml:"economy"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

type TutorConfig struct {
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	APIKey             string `toml:"api_key"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
}

type ChallengeConfig struct {
	FanOutBatchSize int `toml:"fanout_batch_size"`
}

type EconomyConfig struct {
	DailyLoginBonus int64 `toml:"daily_login_bonus"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database:  DatabaseConfig{Path: "radventure.db"},
		Auth:      AuthConfig{JWTSecret: ""},
		Tutor:     TutorConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini", RateLimitPerMinute: 5},
		Challenge: ChallengeConfig{FanOutBatchSize: 100},
		Economy:   EconomyConfig{DailyLoginBonus: 5},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration's invariants. Load runs it on file
// values; callers that override fields afterwards (flags) must run it
// again on the final result.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Tutor.RateLimitPerMinute < 0 {
		return fmt.Errorf("tutor rate limit must be non-negative")
	}
	if c.Challenge.FanOutBatchSize <= 0 {
		return fmt.Errorf("challenge fanout batch size must be positive")
	}
	return nil
}
