package ledger

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/tip-ledger/pkg"
)

// Genesis is the configuration the ledger is created with.
type Genesis struct {
	Owner  common.Address
	FeeBps uint64
}

func (g Genesis) Validate() error {
	if pkg.IsZeroAddress(g.Owner) {
		return ErrZeroAddress
	}
	return validateFeeBps(g.FeeBps)
}

// Globals holds every scalar field of the ledger state.
type Globals struct {
	Owner       common.Address
	FeeBps      uint64
	TotalVolume math.Uint
	TotalFees   math.Uint
	PendingFees math.Uint
	// Balance is the raw value held by the ledger. It includes value received
	// outside of Tip, which is never reflected in the statistics.
	Balance math.Uint
	// EventSeq is the sequence number of the last emitted event.
	EventSeq uint64
}

type BuilderStats struct {
	Total math.Uint
	Count uint64
}

type BuilderEntry struct {
	Address common.Address
	Stats   BuilderStats
}

// State is the complete accounting state of one ledger.
type State struct {
	Globals
	Genesis  Genesis
	Builders map[common.Address]BuilderStats
}

func NewState(genesis Genesis) *State {
	return &State{
		Globals: Globals{
			Owner:       genesis.Owner,
			FeeBps:      genesis.FeeBps,
			TotalVolume: math.ZeroUint(),
			TotalFees:   math.ZeroUint(),
			PendingFees: math.ZeroUint(),
			Balance:     math.ZeroUint(),
		},
		Genesis:  genesis,
		Builders: make(map[common.Address]BuilderStats),
	}
}

// builderStats returns the stats of addr, zero valued for unknown builders.
func (s *State) builderStats(addr common.Address) BuilderStats {
	if stats, ok := s.Builders[addr]; ok {
		return stats
	}
	return BuilderStats{Total: math.ZeroUint()}
}

// Clone returns a deep copy. math.Uint values are immutable, so copying the
// map is enough.
func (s *State) Clone() *State {
	builders := make(map[common.Address]BuilderStats, len(s.Builders))
	for addr, stats := range s.Builders {
		builders[addr] = stats
	}

	return &State{
		Globals:  s.Globals,
		Genesis:  s.Genesis,
		Builders: builders,
	}
}
