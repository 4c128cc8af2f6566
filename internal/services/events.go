package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/tip-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
	"github.com/babylonlabs-io/tip-ledger/internal/utils/poller"
)

// HandleLedgerEvent is called by the ledger for every committed event while
// it holds its write lock, so it never blocks. Events that do not fit in the
// buffer stay unpublished and are picked up by the outbox relay.
func (s *Service) HandleLedgerEvent(ctx context.Context, ev *types.LedgerEvent) {
	if s.queueManager == nil {
		return
	}

	select {
	case s.eventProcessor <- ev:
	default:
		log.Ctx(ctx).Warn().
			Uint64("sequence", ev.Sequence).
			Str("event_type", ev.Type.String()).
			Msg("Event buffer is full, leaving event to the outbox relay")
	}
}

// StartEventProcessor publishes buffered events until ctx is done.
func (s *Service) StartEventProcessor(ctx context.Context) {
	log := log.Ctx(ctx)
	for {
		select {
		case ev := <-s.eventProcessor:
			if err := s.publishBuffered(ctx, ev); err != nil {
				log.Error().Err(err).
					Uint64("sequence", ev.Sequence).
					Msg("Failed to publish ledger event, the outbox relay will retry")
			}
		case <-ctx.Done():
			log.Info().Msg("Event processor stopped due to context cancellation")
			return
		}
	}
}

// StartOutboxRelay periodically re-publishes events that were committed but
// never acknowledged by the queue.
func (s *Service) StartOutboxRelay(ctx context.Context) {
	relay := poller.NewPoller(
		"outbox_relay",
		s.cfg.Poller.OutboxPollingInterval,
		metrics.RecordPollerDuration("outbox_relay", s.relayUnpublishedEvents),
	)
	go relay.Start(ctx)
}

// relayUnpublishedEvents publishes the oldest unpublished events in sequence
// order and stops at the first failure.
func (s *Service) relayUnpublishedEvents(ctx context.Context) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	events, err := s.db.ListUnpublishedEvents(ctx, s.cfg.Poller.OutboxBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unpublished events: %w", err)
	}
	metrics.RecordUnpublishedEvents(len(events))

	for _, ev := range events {
		if err := s.publishEvent(ctx, ev); err != nil {
			return err
		}
		s.relayedThrough = max(s.relayedThrough, ev.Sequence)
	}

	if len(events) > 0 {
		log.Ctx(ctx).Info().Int("count", len(events)).Msg("Relayed unpublished ledger events")
	}
	return nil
}

// publishBuffered skips events the relay already published. The relay
// publishes every unpublished event up to relayedThrough, buffered ones
// included.
func (s *Service) publishBuffered(ctx context.Context, ev *types.LedgerEvent) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if ev.Sequence <= s.relayedThrough {
		return nil
	}
	return s.publishEvent(ctx, ev)
}

// publishEvent must be called with publishMu held.
func (s *Service) publishEvent(ctx context.Context, ev *types.LedgerEvent) error {
	if err := s.queueManager.PushLedgerEvent(ctx, ev); err != nil {
		metrics.RecordQueueSendError()
		return fmt.Errorf("failed to push ledger event %d to the queue: %w", ev.Sequence, err)
	}

	if err := s.db.MarkEventPublished(ctx, ev.Sequence); err != nil {
		return fmt.Errorf("failed to mark ledger event %d as published: %w", ev.Sequence, err)
	}

	return nil
}
