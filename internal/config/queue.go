package config

import (
	"errors"
	"time"
)

const (
	QueueTypeClassic = "classic"
	QueueTypeQuorum  = "quorum"

	defaultLedgerEventQueueName = "ledger_event_queue"
	defaultPublishTimeout       = 5 * time.Second
)

type QueueConfig struct {
	QueueUser      string        `mapstructure:"queue_user"`
	QueuePassword  string        `mapstructure:"queue_password"`
	Url            string        `mapstructure:"url"`
	QueueName      string        `mapstructure:"queue_name"`
	QueueType      string        `mapstructure:"queue_type"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.QueueUser == "" {
		return errors.New("missing queue user")
	}

	if cfg.QueuePassword == "" {
		return errors.New("missing queue password")
	}

	if cfg.Url == "" {
		return errors.New("missing queue url")
	}

	switch cfg.QueueType {
	case "":
		cfg.QueueType = QueueTypeQuorum
	case QueueTypeClassic, QueueTypeQuorum:
	default:
		return errors.New("queue_type must be either classic or quorum")
	}

	if cfg.QueueName == "" {
		cfg.QueueName = defaultLedgerEventQueueName
	}

	if cfg.PublishTimeout < 0 {
		return errors.New("publish_timeout must not be negative")
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}

	return nil
}
