package model

import (
	"fmt"

	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
	"github.com/babylonlabs-io/tip-ledger/pkg"
)

// LedgerEventDocument is one entry of the event log, keyed by its sequence
// number. Published is flipped once the event reached the queue.
type LedgerEventDocument struct {
	Sequence  uint64 `bson:"_id"`
	EventID   string `bson:"event_id"`
	Type      string `bson:"type"`
	Timestamp int64  `bson:"timestamp"`
	Published bool   `bson:"published"`

	TipSent       *TipSentPayload       `bson:"tip_sent,omitempty"`
	FeeUpdated    *FeeUpdatedPayload    `bson:"fee_updated,omitempty"`
	FeesWithdrawn *FeesWithdrawnPayload `bson:"fees_withdrawn,omitempty"`
	OwnerUpdated  *OwnerUpdatedPayload  `bson:"owner_updated,omitempty"`
}

type TipSentPayload struct {
	From      string `bson:"from"`
	Builder   string `bson:"builder"`
	Amount    string `bson:"amount"`
	Fee       string `bson:"fee"`
	Timestamp int64  `bson:"timestamp"`
}

type FeeUpdatedPayload struct {
	OldBps uint64 `bson:"old_bps"`
	NewBps uint64 `bson:"new_bps"`
}

type FeesWithdrawnPayload struct {
	To     string `bson:"to"`
	Amount string `bson:"amount"`
}

type OwnerUpdatedPayload struct {
	OldOwner string `bson:"old_owner"`
	NewOwner string `bson:"new_owner"`
}

func FromLedgerEvent(ev *types.LedgerEvent) *LedgerEventDocument {
	doc := &LedgerEventDocument{
		Sequence:  ev.Sequence,
		EventID:   ev.ID,
		Type:      ev.Type.String(),
		Timestamp: ev.Timestamp,
	}

	if p := ev.TipSent; p != nil {
		doc.TipSent = &TipSentPayload{
			From:      p.From.Hex(),
			Builder:   p.Builder.Hex(),
			Amount:    p.Amount.String(),
			Fee:       p.Fee.String(),
			Timestamp: p.Timestamp,
		}
	}
	if p := ev.FeeUpdated; p != nil {
		doc.FeeUpdated = &FeeUpdatedPayload{
			OldBps: p.OldBps,
			NewBps: p.NewBps,
		}
	}
	if p := ev.FeesWithdrawn; p != nil {
		doc.FeesWithdrawn = &FeesWithdrawnPayload{
			To:     p.To.Hex(),
			Amount: p.Amount.String(),
		}
	}
	if p := ev.OwnerUpdated; p != nil {
		doc.OwnerUpdated = &OwnerUpdatedPayload{
			OldOwner: p.OldOwner.Hex(),
			NewOwner: p.NewOwner.Hex(),
		}
	}

	return doc
}

func (d *LedgerEventDocument) ToLedgerEvent() (*types.LedgerEvent, error) {
	ev := &types.LedgerEvent{
		ID:        d.EventID,
		Sequence:  d.Sequence,
		Type:      types.EventType(d.Type),
		Timestamp: d.Timestamp,
	}

	var err error
	switch {
	case d.TipSent != nil:
		p := &types.TipSent{Timestamp: d.TipSent.Timestamp}
		if p.From, err = pkg.ParseAddress(d.TipSent.From); err != nil {
			break
		}
		if p.Builder, err = pkg.ParseAddress(d.TipSent.Builder); err != nil {
			break
		}
		if p.Amount, err = ledger.ParseAmount(d.TipSent.Amount); err != nil {
			break
		}
		if p.Fee, err = ledger.ParseAmount(d.TipSent.Fee); err != nil {
			break
		}
		ev.TipSent = p
	case d.FeeUpdated != nil:
		ev.FeeUpdated = &types.FeeUpdated{
			OldBps: d.FeeUpdated.OldBps,
			NewBps: d.FeeUpdated.NewBps,
		}
	case d.FeesWithdrawn != nil:
		p := &types.FeesWithdrawn{}
		if p.To, err = pkg.ParseAddress(d.FeesWithdrawn.To); err != nil {
			break
		}
		if p.Amount, err = ledger.ParseAmount(d.FeesWithdrawn.Amount); err != nil {
			break
		}
		ev.FeesWithdrawn = p
	case d.OwnerUpdated != nil:
		p := &types.OwnerUpdated{}
		if p.OldOwner, err = pkg.ParseAddress(d.OwnerUpdated.OldOwner); err != nil {
			break
		}
		if p.NewOwner, err = pkg.ParseAddress(d.OwnerUpdated.NewOwner); err != nil {
			break
		}
		ev.OwnerUpdated = p
	}
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", d.Sequence, err)
	}

	return ev, nil
}
