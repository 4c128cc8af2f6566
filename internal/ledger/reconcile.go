package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

// Mismatch is a field whose stored value disagrees with the value rebuilt
// from the event log.
type Mismatch struct {
	Field    string
	Stored   string
	Replayed string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: stored=%s replayed=%s", m.Field, m.Stored, m.Replayed)
}

// Replay rebuilds the statistics of a ledger from genesis and its complete
// event log. Balance cannot be rebuilt: untracked deposits emit no event.
func Replay(genesis Genesis, events []*types.LedgerEvent) (*State, error) {
	state := NewState(genesis)

	for _, ev := range events {
		if ev.Sequence != state.EventSeq+1 {
			return nil, fmt.Errorf("%w: expected sequence %d, got %d", ErrEventGap, state.EventSeq+1, ev.Sequence)
		}
		if err := apply(state, ev); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", ev.Sequence, ev.Type, err)
		}
		state.EventSeq = ev.Sequence
	}

	return state, nil
}

func apply(state *State, ev *types.LedgerEvent) error {
	var err error

	switch ev.Type {
	case types.EventTipSent:
		if ev.TipSent == nil {
			return errors.New("missing payload")
		}
		tip := ev.TipSent
		net, err := subChecked(tip.Amount, tip.Fee)
		if err != nil {
			return err
		}
		if state.TotalVolume, err = addChecked(state.TotalVolume, tip.Amount); err != nil {
			return err
		}
		if state.TotalFees, err = addChecked(state.TotalFees, tip.Fee); err != nil {
			return err
		}
		if state.PendingFees, err = addChecked(state.PendingFees, tip.Fee); err != nil {
			return err
		}
		stats := state.builderStats(tip.Builder)
		if stats.Total, err = addChecked(stats.Total, net); err != nil {
			return err
		}
		stats.Count++
		state.Builders[tip.Builder] = stats
	case types.EventFeeUpdated:
		if ev.FeeUpdated == nil {
			return errors.New("missing payload")
		}
		state.FeeBps = ev.FeeUpdated.NewBps
	case types.EventFeesWithdrawn:
		if ev.FeesWithdrawn == nil {
			return errors.New("missing payload")
		}
		state.PendingFees, err = subChecked(state.PendingFees, ev.FeesWithdrawn.Amount)
		if err != nil {
			return err
		}
	case types.EventOwnerUpdated:
		if ev.OwnerUpdated == nil {
			return errors.New("missing payload")
		}
		state.Owner = ev.OwnerUpdated.NewOwner
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	return nil
}

// Reconcile replays events from the genesis of state and reports every field
// where state diverges from the replay.
func Reconcile(state *State, events []*types.LedgerEvent) ([]Mismatch, error) {
	replayed, err := Replay(state.Genesis, events)
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	compare := func(field, stored, replayed string) {
		if stored != replayed {
			mismatches = append(mismatches, Mismatch{Field: field, Stored: stored, Replayed: replayed})
		}
	}

	compare("owner", state.Owner.Hex(), replayed.Owner.Hex())
	compare("fee_bps", strconv.FormatUint(state.FeeBps, 10), strconv.FormatUint(replayed.FeeBps, 10))
	compare("total_volume", state.TotalVolume.String(), replayed.TotalVolume.String())
	compare("total_fees", state.TotalFees.String(), replayed.TotalFees.String())
	compare("pending_fees", state.PendingFees.String(), replayed.PendingFees.String())
	compare("event_seq", strconv.FormatUint(state.EventSeq, 10), strconv.FormatUint(replayed.EventSeq, 10))

	for _, addr := range builderAddresses(state, replayed) {
		stored := state.builderStats(addr)
		rebuilt := replayed.builderStats(addr)
		compare("builder_stats["+addr.Hex()+"].total", stored.Total.String(), rebuilt.Total.String())
		compare("builder_stats["+addr.Hex()+"].count",
			strconv.FormatUint(stored.Count, 10), strconv.FormatUint(rebuilt.Count, 10))
	}

	return mismatches, nil
}

func builderAddresses(states ...*State) []common.Address {
	seen := make(map[common.Address]struct{})
	var addrs []common.Address
	for _, s := range states {
		for addr := range s.Builders {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			addrs = append(addrs, addr)
		}
	}

	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})
	return addrs
}

// CheckInvariants verifies the relations that must hold between the fields
// of any reachable state.
func CheckInvariants(state *State) []error {
	var errs []error

	if state.FeeBps > MaxFeeBps {
		errs = append(errs, fmt.Errorf("fee_bps %d exceeds %d", state.FeeBps, MaxFeeBps))
	}
	if state.PendingFees.GT(state.TotalFees) {
		errs = append(errs, fmt.Errorf("pending_fees %s exceeds total_fees %s", state.PendingFees, state.TotalFees))
	}
	if state.PendingFees.GT(state.Balance) {
		errs = append(errs, fmt.Errorf("pending_fees %s exceeds balance %s", state.PendingFees, state.Balance))
	}

	credited := math.ZeroUint()
	for _, stats := range state.Builders {
		sum, err := addChecked(credited, stats.Total)
		if err != nil {
			return append(errs, fmt.Errorf("builder totals: %w", err))
		}
		credited = sum
	}
	accounted, err := addChecked(credited, state.TotalFees)
	if err != nil {
		return append(errs, fmt.Errorf("builder totals plus total_fees: %w", err))
	}
	if !accounted.Equal(state.TotalVolume) {
		errs = append(errs, fmt.Errorf("builder totals %s plus total_fees %s do not add up to total_volume %s",
			credited, state.TotalFees, state.TotalVolume))
	}

	return errs
}
