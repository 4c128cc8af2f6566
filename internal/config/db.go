package config

import (
	"errors"
	"net/url"
)

const defaultMaxPaginationLimit = 100

type DbConfig struct {
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	DbName             string `mapstructure:"db-name"`
	Address            string `mapstructure:"address"`
	MaxPaginationLimit int64  `mapstructure:"max-pagination-limit"`
}

func (cfg *DbConfig) Validate() error {
	if cfg.Username == "" {
		return errors.New("missing db username")
	}

	if cfg.Password == "" {
		return errors.New("missing db password")
	}

	if cfg.Address == "" {
		return errors.New("missing db address")
	}

	if cfg.DbName == "" {
		return errors.New("missing db name")
	}

	u, err := url.Parse(cfg.Address)
	if err != nil {
		return errors.New("invalid db address")
	}

	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return errors.New("unsupported db scheme")
	}

	if cfg.MaxPaginationLimit < 0 {
		return errors.New("max-pagination-limit must not be negative")
	}
	if cfg.MaxPaginationLimit == 0 {
		cfg.MaxPaginationLimit = defaultMaxPaginationLimit
	}

	return nil
}
