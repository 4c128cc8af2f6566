package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/tip-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/tip-ledger/pkg"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

const (
	opTip               = "tip"
	opSetFee            = "set_fee"
	opWithdrawFees      = "withdraw_fees"
	opTransferOwnership = "transfer_ownership"
	opReceive           = "receive"
)

// Ledger records tips, collects the protocol fee and keeps per-builder and
// global statistics. Mutating calls are serialized; each one either commits
// completely or leaves the state untouched.
type Ledger struct {
	mu    sync.RWMutex
	state *State

	store Store
	bank  Transferer
	sink  EventSink

	now   func() time.Time
	newID func() string
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) {
		l.sink = sink
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) {
		l.newID = newID
	}
}

// New loads the ledger state from store, initializing it from genesis on
// first start. genesis is validated the same way SetFee and
// TransferOwnership validate their input.
func New(ctx context.Context, store Store, bank Transferer, genesis Genesis, opts ...Option) (*Ledger, error) {
	if err := genesis.Validate(); err != nil {
		return nil, err
	}

	l := &Ledger{
		store: store,
		bank:  bank,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}

	state, err := store.LoadState(ctx)
	switch {
	case errors.Is(err, ErrStateNotFound):
		state = NewState(genesis)
		if err := store.InitState(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to initialize ledger state: %w", err)
		}
		log.Ctx(ctx).Info().
			Str("owner", genesis.Owner.Hex()).
			Uint64("fee_bps", genesis.FeeBps).
			Msg("Initialized new ledger")
	case err != nil:
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	default:
		if state.Genesis != genesis {
			log.Ctx(ctx).Warn().
				Str("persisted_owner", state.Genesis.Owner.Hex()).
				Uint64("persisted_fee_bps", state.Genesis.FeeBps).
				Msg("Configured genesis differs from the persisted one, keeping persisted state")
		}
	}

	l.state = state
	metrics.RecordLedgerState(state.PendingFees, state.TotalVolume, len(state.Builders))
	return l, nil
}

// Tip credits builder with amount minus the protocol fee and records the tip.
func (l *Ledger) Tip(ctx context.Context, from, builder common.Address, amount math.Uint) (ev *types.LedgerEvent, err error) {
	defer metrics.RecordLedgerOperation(opTip, time.Now(), &err)

	if amount.IsZero() {
		return nil, ErrZeroValue
	}
	if pkg.IsZeroAddress(builder) {
		return nil, ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fee, net, err := ComputeFee(amount, l.state.FeeBps)
	if err != nil {
		return nil, err
	}

	next := l.state.Globals
	if next.TotalVolume, err = addChecked(next.TotalVolume, amount); err != nil {
		return nil, err
	}
	if next.TotalFees, err = addChecked(next.TotalFees, fee); err != nil {
		return nil, err
	}
	if next.PendingFees, err = addChecked(next.PendingFees, fee); err != nil {
		return nil, err
	}
	if next.Balance, err = addChecked(next.Balance, fee); err != nil {
		return nil, err
	}

	stats := l.state.builderStats(builder)
	if stats.Total, err = addChecked(stats.Total, net); err != nil {
		return nil, err
	}
	if stats.Count, err = incChecked(stats.Count); err != nil {
		return nil, err
	}

	ev = l.newEvent(&next, types.EventTipSent)
	ev.TipSent = &types.TipSent{
		From:      from,
		Builder:   builder,
		Amount:    amount,
		Fee:       fee,
		Timestamp: ev.Timestamp,
	}

	transfer := func(ctx context.Context) error {
		return l.transfer(ctx, builder, net)
	}
	entry := &BuilderEntry{Address: builder, Stats: stats}
	if err := l.commit(ctx, &Change{Globals: next, Builder: entry, Event: ev}, transfer); err != nil {
		return nil, err
	}

	metrics.IncTips()
	return ev, nil
}

// SetFee changes the fee rate used by future tips.
func (l *Ledger) SetFee(ctx context.Context, caller common.Address, newBps uint64) (ev *types.LedgerEvent, err error) {
	defer metrics.RecordLedgerOperation(opSetFee, time.Now(), &err)

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Owner {
		return nil, ErrNotOwner
	}
	if err := validateFeeBps(newBps); err != nil {
		return nil, err
	}

	next := l.state.Globals
	next.FeeBps = newBps

	ev = l.newEvent(&next, types.EventFeeUpdated)
	ev.FeeUpdated = &types.FeeUpdated{
		OldBps: l.state.FeeBps,
		NewBps: newBps,
	}

	if err := l.commit(ctx, &Change{Globals: next, Event: ev}, nil); err != nil {
		return nil, err
	}

	return ev, nil
}

// WithdrawFees sends all pending fees to the owner. With nothing pending the
// call still succeeds and records a zero withdrawal.
func (l *Ledger) WithdrawFees(ctx context.Context, caller common.Address) (ev *types.LedgerEvent, err error) {
	defer metrics.RecordLedgerOperation(opWithdrawFees, time.Now(), &err)

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Owner {
		return nil, ErrNotOwner
	}

	owner := l.state.Owner
	amount := l.state.PendingFees

	next := l.state.Globals
	next.PendingFees = math.ZeroUint()
	if next.Balance, err = subChecked(next.Balance, amount); err != nil {
		return nil, err
	}

	ev = l.newEvent(&next, types.EventFeesWithdrawn)
	ev.FeesWithdrawn = &types.FeesWithdrawn{
		To:     owner,
		Amount: amount,
	}

	var transfer TransferFunc
	if !amount.IsZero() {
		transfer = func(ctx context.Context) error {
			return l.transfer(ctx, owner, amount)
		}
	}

	if err := l.commit(ctx, &Change{Globals: next, Event: ev}, transfer); err != nil {
		return nil, err
	}

	return ev, nil
}

// TransferOwnership hands the administrative rights over to newOwner.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, newOwner common.Address) (ev *types.LedgerEvent, err error) {
	defer metrics.RecordLedgerOperation(opTransferOwnership, time.Now(), &err)

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Owner {
		return nil, ErrNotOwner
	}
	if pkg.IsZeroAddress(newOwner) {
		return nil, ErrZeroAddress
	}

	next := l.state.Globals
	next.Owner = newOwner

	ev = l.newEvent(&next, types.EventOwnerUpdated)
	ev.OwnerUpdated = &types.OwnerUpdated{
		OldOwner: l.state.Owner,
		NewOwner: newOwner,
	}

	if err := l.commit(ctx, &Change{Globals: next, Event: ev}, nil); err != nil {
		return nil, err
	}

	return ev, nil
}

// Receive accepts value sent to the ledger without a tip. It only grows the
// raw balance: no statistic moves and no event is emitted.
func (l *Ledger) Receive(ctx context.Context, from common.Address, amount math.Uint) (err error) {
	defer metrics.RecordLedgerOperation(opReceive, time.Now(), &err)

	if amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Globals
	if next.Balance, err = addChecked(next.Balance, amount); err != nil {
		return err
	}

	if err := l.commit(ctx, &Change{Globals: next}, nil); err != nil {
		return err
	}

	log.Ctx(ctx).Warn().
		Str("from", from.Hex()).
		Str("amount", amount.String()).
		Msg("Accepted untracked deposit, statistics not updated")
	return nil
}

// commit persists change and applies it to the in-memory state. Must be
// called with the write lock held.
func (l *Ledger) commit(ctx context.Context, change *Change, transfer TransferFunc) error {
	if err := l.store.Commit(ctx, change, transfer); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("Ledger commit aborted")
		return err
	}

	l.state.Globals = change.Globals
	if change.Builder != nil {
		l.state.Builders[change.Builder.Address] = change.Builder.Stats
	}
	metrics.RecordLedgerState(l.state.PendingFees, l.state.TotalVolume, len(l.state.Builders))

	if change.Event != nil && l.sink != nil {
		l.sink.HandleLedgerEvent(ctx, change.Event)
	}

	return nil
}

func (l *Ledger) transfer(ctx context.Context, to common.Address, amount math.Uint) error {
	if err := l.bank.Transfer(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// newEvent allocates the next event sequence number in next.
func (l *Ledger) newEvent(next *Globals, typ types.EventType) *types.LedgerEvent {
	next.EventSeq++
	return &types.LedgerEvent{
		ID:        l.newID(),
		Sequence:  next.EventSeq,
		Type:      typ,
		Timestamp: l.now().Unix(),
	}
}

func (l *Ledger) Owner() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Owner
}

func (l *Ledger) FeeBps() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.FeeBps
}

func (l *Ledger) MaxFeeBps() uint64 {
	return MaxFeeBps
}

func (l *Ledger) TotalVolume() math.Uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.TotalVolume
}

func (l *Ledger) TotalFees() math.Uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.TotalFees
}

func (l *Ledger) PendingFees() math.Uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.PendingFees
}

func (l *Ledger) Balance() math.Uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Balance
}

// BuilderStats returns the statistics of builder; unknown builders have zero stats.
func (l *Ledger) BuilderStats(builder common.Address) BuilderStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.builderStats(builder)
}

func (l *Ledger) BuilderTipTotal(builder common.Address) math.Uint {
	return l.BuilderStats(builder).Total
}

func (l *Ledger) BuilderTipCount(builder common.Address) uint64 {
	return l.BuilderStats(builder).Count
}

// Snapshot returns a consistent deep copy of the whole state.
func (l *Ledger) Snapshot() *State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}
