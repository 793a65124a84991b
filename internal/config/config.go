package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port               int    `env:"PORT" envDefault:"8080"`
	DatabaseURL        string `env:"DATABASE_URL,required"`
	RedisURL           string `env:"REDIS_URL,required"`
	AdminTokenHash     string `env:"ADMIN_TOKEN_HASH"`
	EncryptionKey      string `env:"ENCRYPTION_KEY"`
	CodesFeedBaseURL   string `env:"CODES_FEED_BASE_URL" envDefault:"https://api.hoyo-codes.seria.moe"`
	HoyoBaseURL        string `env:"HOYO_BASE_URL" envDefault:""`
	RunIntervalMinutes int    `env:"RUN_INTERVAL_MINUTES" envDefault:"1440"`
	JitterMaxMinutes   int    `env:"JITTER_MAX_MINUTES" envDefault:"55"`
	Concurrency        int    `env:"CONCURRENCY" envDefault:"10"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) RunInterval() time.Duration {
	return time.Duration(c.RunIntervalMinutes) * time.Minute
}

func (c *Config) JitterMax() time.Duration {
	return time.Duration(c.JitterMaxMinutes) * time.Minute
}

func (c *Config) Validate(isProduction bool) error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("CONCURRENCY must be positive")
	}
	if c.RunIntervalMinutes <= 0 {
		return fmt.Errorf("RUN_INTERVAL_MINUTES must be positive")
	}
	if isProduction {
		if c.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_KEY is required in production: credentials must be encrypted at rest")
		}
		if c.AdminTokenHash == "" {
			return fmt.Errorf("ADMIN_TOKEN_HASH is required in production (generate with: openssl rand -hex 32 | sha256sum)")
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
