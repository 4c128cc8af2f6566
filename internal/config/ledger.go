package config

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/pkg"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	defaultEventBufferSize = 1024
)

type LedgerConfig struct {
	// Owner and FeeBps are only used the first time the ledger starts,
	// afterwards the persisted values win.
	Owner  string `mapstructure:"owner"`
	FeeBps uint64 `mapstructure:"fee-bps"`
	// Store is either "mongo" (default) or "memory".
	Store string `mapstructure:"store"`
	// RejectRecipients lists addresses that refuse incoming transfers.
	RejectRecipients []string `mapstructure:"reject-recipients"`
	// EventBufferSize bounds the events waiting to be published.
	EventBufferSize int `mapstructure:"event-buffer-size"`
}

func (cfg *LedgerConfig) Validate() error {
	if _, err := cfg.Genesis(); err != nil {
		return err
	}

	switch cfg.Store {
	case "":
		cfg.Store = StoreMongo
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}

	if _, err := cfg.RejectedAddresses(); err != nil {
		return err
	}

	if cfg.EventBufferSize < 0 {
		return errors.New("event-buffer-size must not be negative")
	}
	if cfg.EventBufferSize == 0 {
		cfg.EventBufferSize = defaultEventBufferSize
	}

	return nil
}

func (cfg *LedgerConfig) Genesis() (ledger.Genesis, error) {
	owner, err := pkg.ParseAddress(cfg.Owner)
	if err != nil {
		return ledger.Genesis{}, fmt.Errorf("invalid owner: %w", err)
	}

	genesis := ledger.Genesis{
		Owner:  owner,
		FeeBps: cfg.FeeBps,
	}
	if err := genesis.Validate(); err != nil {
		return ledger.Genesis{}, err
	}

	return genesis, nil
}

func (cfg *LedgerConfig) RejectedAddresses() ([]common.Address, error) {
	addrs := make([]common.Address, 0, len(cfg.RejectRecipients))
	for _, s := range cfg.RejectRecipients {
		addr, err := pkg.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("invalid reject-recipients entry: %w", err)
		}
		addrs = append(addrs, addr)
	}

	return addrs, nil
}
