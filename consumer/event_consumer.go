package consumer

import (
	"context"

	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

// EventConsumer delivers committed ledger events to downstream subscribers.
// Delivery is at least once, consumers deduplicate by event id.
type EventConsumer interface {
	Start() error
	PushLedgerEvent(ctx context.Context, ev *types.LedgerEvent) error
	Stop() error
}
