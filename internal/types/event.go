package types

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventTipSent       EventType = "TipSent"
	EventFeeUpdated    EventType = "FeeUpdated"
	EventFeesWithdrawn EventType = "FeesWithdrawn"
	EventOwnerUpdated  EventType = "OwnerUpdated"
)

// LedgerEvent is one entry of the append-only ledger event log. Exactly one
// of the payload fields is set, matching Type.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Sequence  uint64    `json:"sequence"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`

	TipSent       *TipSent       `json:"tip_sent,omitempty"`
	FeeUpdated    *FeeUpdated    `json:"fee_updated,omitempty"`
	FeesWithdrawn *FeesWithdrawn `json:"fees_withdrawn,omitempty"`
	OwnerUpdated  *OwnerUpdated  `json:"owner_updated,omitempty"`
}

type TipSent struct {
	From      common.Address `json:"from"`
	Builder   common.Address `json:"builder"`
	Amount    math.Uint      `json:"amount"`
	Fee       math.Uint      `json:"fee"`
	Timestamp int64          `json:"timestamp"`
}

type FeeUpdated struct {
	OldBps uint64 `json:"old_bps"`
	NewBps uint64 `json:"new_bps"`
}

type FeesWithdrawn struct {
	To     common.Address `json:"to"`
	Amount math.Uint      `json:"amount"`
}

type OwnerUpdated struct {
	OldOwner common.Address `json:"old_owner"`
	NewOwner common.Address `json:"new_owner"`
}
