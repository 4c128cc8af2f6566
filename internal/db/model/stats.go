package model

import "github.com/babylonlabs-io/tip-ledger/internal/ledger"

// LedgerStatsID is the id of the single stats snapshot document
const LedgerStatsID = "ledger_stats"

// LedgerStatsDocument is a periodic snapshot of the ledger statistics
type LedgerStatsDocument struct {
	ID           string `bson:"_id"`           // Always "ledger_stats"
	TotalVolume  string `bson:"total_volume"`  // Cumulative tipped value
	TotalFees    string `bson:"total_fees"`    // Cumulative fees
	PendingFees  string `bson:"pending_fees"`  // Fees not yet withdrawn
	Balance      string `bson:"balance"`       // Raw value held by the ledger
	BuilderCount uint64 `bson:"builder_count"` // Builders with at least one tip
	TipCount     uint64 `bson:"tip_count"`     // Sum of all builder tip counts
	EventSeq     uint64 `bson:"event_seq"`     // Last event at snapshot time
	LastUpdated  int64  `bson:"last_updated"`  // Unix timestamp of last update
}

func NewLedgerStatsDocument(state *ledger.State, now int64) *LedgerStatsDocument {
	var tips uint64
	for _, stats := range state.Builders {
		tips += stats.Count
	}

	return &LedgerStatsDocument{
		ID:           LedgerStatsID,
		TotalVolume:  state.TotalVolume.String(),
		TotalFees:    state.TotalFees.String(),
		PendingFees:  state.PendingFees.String(),
		Balance:      state.Balance.String(),
		BuilderCount: uint64(len(state.Builders)),
		TipCount:     tips,
		EventSeq:     state.EventSeq,
		LastUpdated:  now,
	}
}
