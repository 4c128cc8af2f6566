// Package memdb is an in-memory implementation of db.DbInterface, used by
// tests and by single-process deployments that do not need durability.
package memdb

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/internal/db"
	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

type storedEvent struct {
	event     *types.LedgerEvent
	published bool
}

type Store struct {
	mu       sync.Mutex
	state    *ledger.State
	events   []*storedEvent
	balances map[common.Address]math.Uint
	stats    *model.LedgerStatsDocument
}

var _ db.DbInterface = (*Store)(nil)

func New() *Store {
	return &Store{
		balances: make(map[common.Address]math.Uint),
	}
}

// txKey marks the context handed to the transfer of a Commit.
type txKey struct{}

// tx collects balance credits until the Commit they belong to succeeds.
type tx struct {
	balances map[common.Address]math.Uint
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) LoadState(ctx context.Context) (*ledger.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, ledger.ErrStateNotFound
	}
	return s.state.Clone(), nil
}

func (s *Store) InitState(ctx context.Context, state *ledger.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return &db.DuplicateKeyError{
			Key:     model.LedgerStateID,
			Message: "ledger state already initialized",
		}
	}
	s.state = state.Clone()
	return nil
}

func (s *Store) Commit(ctx context.Context, change *ledger.Change, transfer ledger.TransferFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.state == nil {
		return ledger.ErrStateNotFound
	}
	if ev := change.Event; ev != nil && ev.Sequence != uint64(len(s.events))+1 {
		return &db.DuplicateKeyError{
			Key:     ev.ID,
			Message: fmt.Sprintf("event %d out of order, log holds %d events", ev.Sequence, len(s.events)),
		}
	}

	t := &tx{balances: make(map[common.Address]math.Uint)}
	if transfer != nil {
		if err := transfer(context.WithValue(ctx, txKey{}, t)); err != nil {
			return err
		}
	}

	s.state.Globals = change.Globals
	if change.Builder != nil {
		s.state.Builders[change.Builder.Address] = change.Builder.Stats
	}
	if change.Event != nil {
		s.events = append(s.events, &storedEvent{event: change.Event})
	}
	for addr, balance := range t.balances {
		s.balances[addr] = balance
	}

	return nil
}

func (s *Store) ListEvents(ctx context.Context, fromSeq uint64, limit int64) ([]*types.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filterEvents(limit, func(e *storedEvent) bool {
		return e.event.Sequence >= fromSeq
	}), nil
}

func (s *Store) ListUnpublishedEvents(ctx context.Context, limit int64) ([]*types.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filterEvents(limit, func(e *storedEvent) bool {
		return !e.published
	}), nil
}

func (s *Store) filterEvents(limit int64, keep func(e *storedEvent) bool) []*types.LedgerEvent {
	var events []*types.LedgerEvent
	for _, e := range s.events {
		if limit > 0 && int64(len(events)) == limit {
			break
		}
		if keep(e) {
			events = append(events, e.event)
		}
	}
	return events
}

func (s *Store) MarkEventPublished(ctx context.Context, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq == 0 || seq > uint64(len(s.events)) {
		return &db.NotFoundError{
			Key:     fmt.Sprint(seq),
			Message: "event not found",
		}
	}
	s.events[seq-1].published = true
	return nil
}

// CreditBalance joins the unit of work when called from a Commit transfer,
// the store lock is then already held by Commit.
func (s *Store) CreditBalance(ctx context.Context, addr common.Address, amount math.Uint) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		current, staged := t.balances[addr]
		if !staged {
			current = s.balance(addr)
		}
		sum, err := credit(addr, current, amount)
		if err != nil {
			return err
		}
		t.balances[addr] = sum
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := credit(addr, s.balance(addr), amount)
	if err != nil {
		return err
	}
	s.balances[addr] = sum
	return nil
}

func (s *Store) GetBalance(ctx context.Context, addr common.Address) (math.Uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.balance(addr), nil
}

func (s *Store) balance(addr common.Address) math.Uint {
	if b, ok := s.balances[addr]; ok {
		return b
	}
	return math.ZeroUint()
}

func credit(addr common.Address, current, amount math.Uint) (math.Uint, error) {
	sum := new(big.Int).Add(current.BigInt(), amount.BigInt())
	if sum.BitLen() > ledger.MaxBitLen {
		return math.Uint{}, fmt.Errorf("balance of %s: %w", addr.Hex(), ledger.ErrOverflow)
	}
	return math.NewUintFromBigInt(sum), nil
}

func (s *Store) UpsertLedgerStats(ctx context.Context, stats *model.LedgerStatsDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *stats
	s.stats = &cp
	return nil
}

func (s *Store) GetLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stats == nil {
		return nil, &db.NotFoundError{
			Key:     model.LedgerStatsID,
			Message: "ledger stats snapshot not found",
		}
	}
	cp := *s.stats
	return &cp, nil
}
