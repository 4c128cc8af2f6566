package model

import (
	"fmt"

	"cosmossdk.io/math"

	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/pkg"
)

// LedgerStateID is the id of the single ledger state document
const LedgerStateID = "ledger"

// LedgerStateDocument holds the scalar fields of the ledger. Amounts are
// base-10 strings since they do not fit any BSON numeric type.
type LedgerStateDocument struct {
	ID            string `bson:"_id"`
	Owner         string `bson:"owner"`
	FeeBps        uint64 `bson:"fee_bps"`
	TotalVolume   string `bson:"total_volume"`
	TotalFees     string `bson:"total_fees"`
	PendingFees   string `bson:"pending_fees"`
	Balance       string `bson:"balance"`
	EventSeq      uint64 `bson:"event_seq"`
	GenesisOwner  string `bson:"genesis_owner"`
	GenesisFeeBps uint64 `bson:"genesis_fee_bps"`
}

func FromLedgerState(state *ledger.State) *LedgerStateDocument {
	doc := &LedgerStateDocument{
		ID:            LedgerStateID,
		GenesisOwner:  state.Genesis.Owner.Hex(),
		GenesisFeeBps: state.Genesis.FeeBps,
	}
	doc.SetGlobals(state.Globals)
	return doc
}

func (d *LedgerStateDocument) SetGlobals(g ledger.Globals) {
	d.Owner = g.Owner.Hex()
	d.FeeBps = g.FeeBps
	d.TotalVolume = g.TotalVolume.String()
	d.TotalFees = g.TotalFees.String()
	d.PendingFees = g.PendingFees.String()
	d.Balance = g.Balance.String()
	d.EventSeq = g.EventSeq
}

// ToLedgerState converts the document and the builder documents back into
// a ledger state.
func (d *LedgerStateDocument) ToLedgerState(builders []*BuilderStatsDocument) (*ledger.State, error) {
	genesisOwner, err := pkg.ParseAddress(d.GenesisOwner)
	if err != nil {
		return nil, fmt.Errorf("genesis_owner: %w", err)
	}

	state := ledger.NewState(ledger.Genesis{
		Owner:  genesisOwner,
		FeeBps: d.GenesisFeeBps,
	})

	if state.Owner, err = pkg.ParseAddress(d.Owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	state.FeeBps = d.FeeBps
	state.EventSeq = d.EventSeq

	amounts := []struct {
		name  string
		value string
		dst   *math.Uint
	}{
		{"total_volume", d.TotalVolume, &state.TotalVolume},
		{"total_fees", d.TotalFees, &state.TotalFees},
		{"pending_fees", d.PendingFees, &state.PendingFees},
		{"balance", d.Balance, &state.Balance},
	}
	for _, a := range amounts {
		if *a.dst, err = ledger.ParseAmount(a.value); err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
	}

	for _, b := range builders {
		addr, stats, err := b.ToBuilderStats()
		if err != nil {
			return nil, err
		}
		state.Builders[addr] = stats
	}

	return state, nil
}
