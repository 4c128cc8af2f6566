package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/pkg"
)

type BuilderStatsDocument struct {
	Address string `bson:"_id"` // checksummed hex address
	Total   string `bson:"total"`
	Count   uint64 `bson:"count"`
}

func FromBuilderEntry(entry *ledger.BuilderEntry) *BuilderStatsDocument {
	return &BuilderStatsDocument{
		Address: entry.Address.Hex(),
		Total:   entry.Stats.Total.String(),
		Count:   entry.Stats.Count,
	}
}

func (d *BuilderStatsDocument) ToBuilderStats() (common.Address, ledger.BuilderStats, error) {
	addr, err := pkg.ParseAddress(d.Address)
	if err != nil {
		return common.Address{}, ledger.BuilderStats{}, fmt.Errorf("builder: %w", err)
	}

	total, err := ledger.ParseAmount(d.Total)
	if err != nil {
		return common.Address{}, ledger.BuilderStats{}, fmt.Errorf("builder %s total: %w", d.Address, err)
	}

	return addr, ledger.BuilderStats{Total: total, Count: d.Count}, nil
}
