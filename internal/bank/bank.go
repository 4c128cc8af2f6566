package bank

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// ErrRecipientRejected is returned for recipients that refuse incoming value.
var ErrRecipientRejected = errors.New("bank: recipient rejected the transfer")

// BalanceStore keeps the balances of external accounts.
type BalanceStore interface {
	CreditBalance(ctx context.Context, addr common.Address, amount math.Uint) error
	GetBalance(ctx context.Context, addr common.Address) (math.Uint, error)
}

// StoreBank moves value out of the ledger by crediting account balances in
// the store. Transfer must be called with the context of the store unit of
// work so the credit commits or rolls back with the ledger change.
type StoreBank struct {
	store    BalanceStore
	rejected map[common.Address]struct{}
}

func NewStoreBank(store BalanceStore, rejected ...common.Address) *StoreBank {
	b := &StoreBank{
		store:    store,
		rejected: make(map[common.Address]struct{}, len(rejected)),
	}
	for _, addr := range rejected {
		b.rejected[addr] = struct{}{}
	}
	return b
}

func (b *StoreBank) Transfer(ctx context.Context, to common.Address, amount math.Uint) error {
	if _, ok := b.rejected[to]; ok {
		return fmt.Errorf("%w: %s", ErrRecipientRejected, to.Hex())
	}

	if err := b.store.CreditBalance(ctx, to, amount); err != nil {
		return err
	}

	log.Ctx(ctx).Debug().
		Str("to", to.Hex()).
		Str("amount", amount.String()).
		Msg("Transferred value")
	return nil
}

func (b *StoreBank) BalanceOf(ctx context.Context, addr common.Address) (math.Uint, error) {
	return b.store.GetBalance(ctx, addr)
}
