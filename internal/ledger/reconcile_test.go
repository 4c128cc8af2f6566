package ledger_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
	"github.com/babylonlabs-io/tip-ledger/testutil"
)

func TestReplay(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t, 150)
	l := f.ledger
	builders := []common.Address{testutil.RandomAddress(), testutil.RandomAddress()}

	for i := range 20 {
		_, err := l.Tip(ctx, testutil.RandomAddress(), builders[i%2], testutil.RandomAmount(1_000_000))
		require.NoError(t, err)
	}
	_, err := l.SetFee(ctx, f.owner, 700)
	require.NoError(t, err)
	_, err = l.Tip(ctx, testutil.RandomAddress(), builders[0], math.NewUint(123_456))
	require.NoError(t, err)
	_, err = l.WithdrawFees(ctx, f.owner)
	require.NoError(t, err)
	_, err = l.Tip(ctx, testutil.RandomAddress(), builders[1], math.NewUint(42))
	require.NoError(t, err)
	newOwner := testutil.RandomAddress()
	_, err = l.TransferOwnership(ctx, f.owner, newOwner)
	require.NoError(t, err)
	// untracked deposits are invisible to replay but do not break reconciliation
	require.NoError(t, l.Receive(ctx, testutil.RandomAddress(), math.NewUint(999)))

	events, err := f.store.ListEvents(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 25)

	replayed, err := ledger.Replay(l.Snapshot().Genesis, events)
	require.NoError(t, err)

	snapshot := l.Snapshot()
	assert.Equal(t, snapshot.Owner, replayed.Owner)
	assert.Equal(t, snapshot.FeeBps, replayed.FeeBps)
	assert.Equal(t, snapshot.TotalVolume, replayed.TotalVolume)
	assert.Equal(t, snapshot.TotalFees, replayed.TotalFees)
	assert.Equal(t, snapshot.PendingFees, replayed.PendingFees)
	assert.Equal(t, snapshot.EventSeq, replayed.EventSeq)
	assert.Equal(t, snapshot.Builders, replayed.Builders)

	mismatches, err := ledger.Reconcile(snapshot, events)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Empty(t, ledger.CheckInvariants(snapshot))
}

func TestReplay_Gap(t *testing.T) {
	genesis := ledger.Genesis{Owner: testutil.RandomAddress(), FeeBps: 100}
	events := []*types.LedgerEvent{
		{Sequence: 1, Type: types.EventFeeUpdated, FeeUpdated: &types.FeeUpdated{OldBps: 100, NewBps: 200}},
		{Sequence: 3, Type: types.EventFeeUpdated, FeeUpdated: &types.FeeUpdated{OldBps: 200, NewBps: 300}},
	}

	_, err := ledger.Replay(genesis, events)
	assert.ErrorIs(t, err, ledger.ErrEventGap)
}

func TestReplay_BadEvents(t *testing.T) {
	genesis := ledger.Genesis{Owner: testutil.RandomAddress(), FeeBps: 100}

	t.Run("missing payload", func(t *testing.T) {
		_, err := ledger.Replay(genesis, []*types.LedgerEvent{{Sequence: 1, Type: types.EventTipSent}})
		assert.ErrorContains(t, err, "missing payload")
	})
	t.Run("unknown type", func(t *testing.T) {
		_, err := ledger.Replay(genesis, []*types.LedgerEvent{{Sequence: 1, Type: "Minted"}})
		assert.ErrorContains(t, err, "unknown event type")
	})
	t.Run("withdrawal above pending", func(t *testing.T) {
		_, err := ledger.Replay(genesis, []*types.LedgerEvent{{
			Sequence:      1,
			Type:          types.EventFeesWithdrawn,
			FeesWithdrawn: &types.FeesWithdrawn{To: genesis.Owner, Amount: math.NewUint(1)},
		}})
		assert.ErrorIs(t, err, ledger.ErrUnderflow)
	})
}

func TestReconcile_Mismatches(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t, 150)
	builder := testutil.RandomAddress()

	_, err := f.ledger.Tip(ctx, testutil.RandomAddress(), builder, math.NewUint(1_000_000))
	require.NoError(t, err)

	events, err := f.store.ListEvents(ctx, 1, 0)
	require.NoError(t, err)

	tampered := f.ledger.Snapshot()
	tampered.PendingFees = math.NewUint(1)
	tampered.Builders[builder] = ledger.BuilderStats{Total: math.NewUint(985_000), Count: 7}

	mismatches, err := ledger.Reconcile(tampered, events)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "pending_fees", mismatches[0].Field)
	assert.Equal(t, "1", mismatches[0].Stored)
	assert.Equal(t, "15000", mismatches[0].Replayed)
	assert.Equal(t, "builder_stats["+builder.Hex()+"].count", mismatches[1].Field)
}

func TestCheckInvariants(t *testing.T) {
	state := ledger.NewState(ledger.Genesis{Owner: testutil.RandomAddress(), FeeBps: 100})
	assert.Empty(t, ledger.CheckInvariants(state))

	state.FeeBps = 5000
	state.PendingFees = math.NewUint(10)
	state.TotalVolume = math.NewUint(3)

	errs := ledger.CheckInvariants(state)
	// fee bound, pending above total fees, pending above balance, conservation
	assert.Len(t, errs, 4)
}
