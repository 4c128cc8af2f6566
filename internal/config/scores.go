package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultScoresCacheTTL  = time.Hour
	defaultScoresCacheSize = 10_000
)

type ScoresConfig struct {
	Neynar    *ScoreProviderConfig `mapstructure:"neynar"`
	Talent    *ScoreProviderConfig `mapstructure:"talent"`
	CacheTTL  time.Duration        `mapstructure:"cache-ttl"`
	CacheSize int                  `mapstructure:"cache-size"`
}

func (cfg *ScoresConfig) Validate() error {
	if cfg.Neynar == nil && cfg.Talent == nil {
		return errors.New("at least one score provider must be configured")
	}

	if cfg.Neynar != nil {
		if err := cfg.Neynar.Validate(); err != nil {
			return fmt.Errorf("neynar: %w", err)
		}
	}

	if cfg.Talent != nil {
		if err := cfg.Talent.Validate(); err != nil {
			return fmt.Errorf("talent: %w", err)
		}
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultScoresCacheTTL
	}

	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultScoresCacheSize
	}

	return nil
}

type ScoreProviderConfig struct {
	URL           string        `mapstructure:"url"`
	APIKey        string        `mapstructure:"api-key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (cfg *ScoreProviderConfig) Validate() error {
	if cfg.URL == "" {
		return errors.New("url must be set")
	}

	if cfg.APIKey == "" {
		return errors.New("api-key must be set")
	}

	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if cfg.RetryInterval <= 0 {
		return errors.New("retry-interval must be positive")
	}

	return nil
}
