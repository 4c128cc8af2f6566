package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/tip-ledger/internal/utils/poller"
)

// StartStatsPoller starts the stats polling service
func (s *Service) StartStatsPoller(ctx context.Context) {
	statsPoller := poller.NewPoller(
		"stats",
		s.cfg.Poller.StatsPollingInterval,
		metrics.RecordPollerDuration("stats", s.calculateAndUpdateStats),
	)
	go statsPoller.Start(ctx)
}

// calculateAndUpdateStats snapshots the ledger, stores the snapshot and
// checks that the snapshot is consistent.
func (s *Service) calculateAndUpdateStats(ctx context.Context) error {
	log := log.Ctx(ctx)

	state := s.ledger.Snapshot()
	metrics.RecordLedgerState(state.PendingFees, state.TotalVolume, len(state.Builders))

	doc := model.NewLedgerStatsDocument(state, time.Now().Unix())
	if err := s.db.UpsertLedgerStats(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert ledger stats: %w", err)
	}

	violations := ledger.CheckInvariants(state)
	metrics.RecordInvariantViolations(len(violations))
	for _, violation := range violations {
		log.Error().Err(violation).Uint64("event_seq", state.EventSeq).Msg("Ledger invariant violated")
	}

	log.Debug().
		Str("total_volume", doc.TotalVolume).
		Str("pending_fees", doc.PendingFees).
		Uint64("builder_count", doc.BuilderCount).
		Uint64("tip_count", doc.TipCount).
		Msg("Updated ledger stats")

	return nil
}
