package ledger

import (
	"context"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

// Change is the outcome of one successful mutating call.
type Change struct {
	Globals Globals
	// Builder is nil when the call does not touch builder statistics.
	Builder *BuilderEntry
	// Event is nil for untracked deposits.
	Event *types.LedgerEvent
}

// TransferFunc moves value as part of a Commit. It receives the context of
// the unit of work so transactional stores can enlist the transfer.
type TransferFunc func(ctx context.Context) error

// Store persists ledger state.
type Store interface {
	// LoadState returns ErrStateNotFound when the store was never initialized.
	LoadState(ctx context.Context) (*State, error)
	InitState(ctx context.Context, state *State) error
	// Commit writes change and runs transfer (when non-nil) as a single unit
	// of work. If either fails nothing is persisted and the error is returned.
	Commit(ctx context.Context, change *Change, transfer TransferFunc) error
}

// Transferer moves value out of the ledger to an external account.
type Transferer interface {
	Transfer(ctx context.Context, to common.Address, amount math.Uint) error
}

// EventSink receives every committed event, in sequence order. Implementations
// must not block: the ledger calls it while holding its write lock.
type EventSink interface {
	HandleLedgerEvent(ctx context.Context, ev *types.LedgerEvent)
}
