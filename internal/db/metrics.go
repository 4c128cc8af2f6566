package db

import (
	"context"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) LoadState(ctx context.Context) (result *ledger.State, err error) {
	//nolint:errcheck
	d.run("LoadState", func() error {
		result, err = d.db.LoadState(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) InitState(ctx context.Context, state *ledger.State) error {
	return d.run("InitState", func() error {
		return d.db.InitState(ctx, state)
	})
}

func (d *DbWithMetrics) Commit(ctx context.Context, change *ledger.Change, transfer ledger.TransferFunc) error {
	return d.run("Commit", func() error {
		return d.db.Commit(ctx, change, transfer)
	})
}

func (d *DbWithMetrics) ListEvents(ctx context.Context, fromSeq uint64, limit int64) (result []*types.LedgerEvent, err error) {
	//nolint:errcheck
	d.run("ListEvents", func() error {
		result, err = d.db.ListEvents(ctx, fromSeq, limit)
		return err
	})

	return
}

func (d *DbWithMetrics) ListUnpublishedEvents(ctx context.Context, limit int64) (result []*types.LedgerEvent, err error) {
	//nolint:errcheck
	d.run("ListUnpublishedEvents", func() error {
		result, err = d.db.ListUnpublishedEvents(ctx, limit)
		return err
	})

	return
}

func (d *DbWithMetrics) MarkEventPublished(ctx context.Context, seq uint64) error {
	return d.run("MarkEventPublished", func() error {
		return d.db.MarkEventPublished(ctx, seq)
	})
}

func (d *DbWithMetrics) CreditBalance(ctx context.Context, addr common.Address, amount math.Uint) error {
	return d.run("CreditBalance", func() error {
		return d.db.CreditBalance(ctx, addr, amount)
	})
}

func (d *DbWithMetrics) GetBalance(ctx context.Context, addr common.Address) (result math.Uint, err error) {
	//nolint:errcheck
	d.run("GetBalance", func() error {
		result, err = d.db.GetBalance(ctx, addr)
		return err
	})

	return
}

func (d *DbWithMetrics) UpsertLedgerStats(ctx context.Context, stats *model.LedgerStatsDocument) error {
	return d.run("UpsertLedgerStats", func() error {
		return d.db.UpsertLedgerStats(ctx, stats)
	})
}

func (d *DbWithMetrics) GetLedgerStats(ctx context.Context) (result *model.LedgerStatsDocument, err error) {
	//nolint:errcheck
	d.run("GetLedgerStats", func() error {
		result, err = d.db.GetLedgerStats(ctx)
		return err
	})

	return
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
