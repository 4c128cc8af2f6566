package services

import (
	"context"
	"errors"
	"net/http"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
	"github.com/babylonlabs-io/tip-ledger/pkg"
)

// LedgerView is every global accessor of the ledger read at one instant.
type LedgerView struct {
	Owner       common.Address
	FeeBps      uint64
	MaxFeeBps   uint64
	TotalVolume math.Uint
	TotalFees   math.Uint
	PendingFees math.Uint
	Balance     math.Uint
	EventSeq    uint64
}

func (s *Service) Tip(
	ctx context.Context, caller common.Address, builderHex, amountStr string,
) (*types.LedgerEvent, *types.Error) {
	builder, err := pkg.ParseAddress(builderHex)
	if err != nil {
		return nil, types.NewValidationFailedError(err)
	}
	amount, err := ledger.ParseAmount(amountStr)
	if err != nil {
		return nil, types.NewValidationFailedError(err)
	}

	ev, err := s.ledger.Tip(ctx, caller, builder, amount)
	if err != nil {
		return nil, toServiceError(err)
	}
	return ev, nil
}

func (s *Service) Deposit(ctx context.Context, caller common.Address, amountStr string) *types.Error {
	amount, err := ledger.ParseAmount(amountStr)
	if err != nil {
		return types.NewValidationFailedError(err)
	}

	if err := s.ledger.Receive(ctx, caller, amount); err != nil {
		return toServiceError(err)
	}
	return nil
}

func (s *Service) SetFee(ctx context.Context, caller common.Address, feeBps uint64) (*types.LedgerEvent, *types.Error) {
	ev, err := s.ledger.SetFee(ctx, caller, feeBps)
	if err != nil {
		return nil, toServiceError(err)
	}
	return ev, nil
}

func (s *Service) WithdrawFees(ctx context.Context, caller common.Address) (*types.LedgerEvent, *types.Error) {
	ev, err := s.ledger.WithdrawFees(ctx, caller)
	if err != nil {
		return nil, toServiceError(err)
	}
	return ev, nil
}

func (s *Service) TransferOwnership(
	ctx context.Context, caller common.Address, newOwnerHex string,
) (*types.LedgerEvent, *types.Error) {
	newOwner, err := pkg.ParseAddress(newOwnerHex)
	if err != nil {
		return nil, types.NewValidationFailedError(err)
	}

	ev, err := s.ledger.TransferOwnership(ctx, caller, newOwner)
	if err != nil {
		return nil, toServiceError(err)
	}
	return ev, nil
}

func (s *Service) GetLedger(ctx context.Context) *LedgerView {
	state := s.ledger.Snapshot()
	return &LedgerView{
		Owner:       state.Owner,
		FeeBps:      state.FeeBps,
		MaxFeeBps:   s.ledger.MaxFeeBps(),
		TotalVolume: state.TotalVolume,
		TotalFees:   state.TotalFees,
		PendingFees: state.PendingFees,
		Balance:     state.Balance,
		EventSeq:    state.EventSeq,
	}
}

func (s *Service) GetBuilderStats(ctx context.Context, builderHex string) (ledger.BuilderStats, *types.Error) {
	builder, err := pkg.ParseAddress(builderHex)
	if err != nil {
		return ledger.BuilderStats{}, types.NewValidationFailedError(err)
	}
	return s.ledger.BuilderStats(builder), nil
}

// ListEvents returns at most limit events starting at sequence from. limit
// is capped by server.max-events-limit.
func (s *Service) ListEvents(ctx context.Context, from uint64, limit int64) ([]*types.LedgerEvent, *types.Error) {
	if limit <= 0 || limit > s.cfg.Server.MaxEventsLimit {
		limit = s.cfg.Server.MaxEventsLimit
	}

	events, err := s.db.ListEvents(ctx, from, limit)
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	return events, nil
}

func (s *Service) GetBalance(ctx context.Context, addrHex string) (math.Uint, *types.Error) {
	addr, err := pkg.ParseAddress(addrHex)
	if err != nil {
		return math.ZeroUint(), types.NewValidationFailedError(err)
	}

	balance, err := s.db.GetBalance(ctx, addr)
	if err != nil {
		return math.ZeroUint(), types.NewInternalServiceError(err)
	}
	return balance, nil
}

func (s *Service) HealthCheck(ctx context.Context) *types.Error {
	if err := s.db.Ping(ctx); err != nil {
		return types.NewErrorWithMsg(
			http.StatusServiceUnavailable, types.InternalServiceError, "database is unreachable",
		)
	}
	return nil
}

// toServiceError maps a ledger failure onto the status and code returned to
// callers. Unknown failures are internal errors.
func toServiceError(err error) *types.Error {
	switch {
	case errors.Is(err, ledger.ErrZeroValue):
		return types.NewError(http.StatusBadRequest, types.ZeroValue, err)
	case errors.Is(err, ledger.ErrZeroAddress):
		return types.NewError(http.StatusBadRequest, types.ZeroAddress, err)
	case errors.Is(err, ledger.ErrFeeTooHigh):
		return types.NewError(http.StatusBadRequest, types.FeeTooHigh, err)
	case errors.Is(err, ledger.ErrNotOwner):
		return types.NewError(http.StatusForbidden, types.NotOwner, err)
	case errors.Is(err, ledger.ErrTransferFailed):
		return types.NewError(http.StatusUnprocessableEntity, types.TransferFailed, err)
	case ledger.IsArithmeticError(err):
		return types.NewError(http.StatusUnprocessableEntity, types.Overflow, err)
	default:
		return types.NewInternalServiceError(err)
	}
}
