package db

import (
	"context"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

type DbInterface interface {
	/**
	 * Ping checks the database connection.
	 * @param ctx The context
	 * @return An error if the operation failed
	 */
	Ping(ctx context.Context) error

	// LoadState, InitState and Commit persist the ledger itself.
	ledger.Store

	/**
	 * ListEvents returns events with a sequence number of at least fromSeq,
	 * in sequence order. A limit of 0 returns every remaining event.
	 * @param ctx The context
	 * @param fromSeq The first sequence number to return
	 * @param limit The maximum number of events
	 * @return The events or an error
	 */
	ListEvents(ctx context.Context, fromSeq uint64, limit int64) ([]*types.LedgerEvent, error)
	/**
	 * ListUnpublishedEvents returns the oldest events not yet published to
	 * the queue, in sequence order.
	 * @param ctx The context
	 * @param limit The maximum number of events
	 * @return The events or an error
	 */
	ListUnpublishedEvents(ctx context.Context, limit int64) ([]*types.LedgerEvent, error)
	/**
	 * MarkEventPublished flags the event as published.
	 * @param ctx The context
	 * @param seq The sequence number of the event
	 * @return An error if the operation failed, NotFoundError for unknown events
	 */
	MarkEventPublished(ctx context.Context, seq uint64) error

	/**
	 * CreditBalance adds amount to the external balance of addr. When ctx
	 * belongs to a Commit the credit is part of that unit of work.
	 * @param ctx The context
	 * @param addr The credited account
	 * @param amount The credited value
	 * @return An error if the operation failed
	 */
	CreditBalance(ctx context.Context, addr common.Address, amount math.Uint) error
	/**
	 * GetBalance returns the external balance of addr, zero for unknown accounts.
	 * @param ctx The context
	 * @param addr The account
	 * @return The balance or an error
	 */
	GetBalance(ctx context.Context, addr common.Address) (math.Uint, error)

	/**
	 * UpsertLedgerStats stores a snapshot of the ledger statistics.
	 * @param ctx The context
	 * @param stats The snapshot
	 * @return An error if the operation failed
	 */
	UpsertLedgerStats(ctx context.Context, stats *model.LedgerStatsDocument) error
	/**
	 * GetLedgerStats returns the last stored snapshot.
	 * @param ctx The context
	 * @return The snapshot or an error, NotFoundError if none was stored
	 */
	GetLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error)
}
