package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/babylonlabs-io/tip-ledger/consumer"
	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/db"
	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/internal/scores"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

type Service struct {
	cfg          *config.Config
	db           db.DbInterface
	ledger       *ledger.Ledger
	queueManager consumer.EventConsumer
	scores       *scores.Aggregator

	eventProcessor chan *types.LedgerEvent
	// publishMu serializes the event processor and the outbox relay
	publishMu sync.Mutex
	// relayedThrough is the highest sequence published by the outbox relay
	relayedThrough uint64
}

// NewService wires the service dependencies. qm and agg are optional: without
// a queue events stay in the outbox, without an aggregator score lookups fail.
func NewService(
	cfg *config.Config,
	db db.DbInterface,
	qm consumer.EventConsumer,
	agg *scores.Aggregator,
) *Service {
	return &Service{
		cfg:            cfg,
		db:             db,
		queueManager:   qm,
		scores:         agg,
		eventProcessor: make(chan *types.LedgerEvent, cfg.Ledger.EventBufferSize),
	}
}

// InitLedger loads the persisted ledger, creating it from the configured
// genesis on first start, with the service registered as its event sink.
func (s *Service) InitLedger(ctx context.Context, bank ledger.Transferer, opts ...ledger.Option) error {
	genesis, err := s.cfg.Ledger.Genesis()
	if err != nil {
		return fmt.Errorf("invalid ledger genesis: %w", err)
	}

	opts = append(opts, ledger.WithEventSink(s))
	l, err := ledger.New(ctx, s.db, bank, genesis, opts...)
	if err != nil {
		return err
	}

	s.ledger = l
	return nil
}

func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// StartLedgerSync starts the background publishers and pollers. It returns
// immediately, everything it starts stops with ctx.
func (s *Service) StartLedgerSync(ctx context.Context) {
	if s.queueManager != nil {
		go s.StartEventProcessor(ctx)
		s.StartOutboxRelay(ctx)
	}
	s.StartStatsPoller(ctx)
}
