package scores

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/tip-ledger/internal/clients/neynarclient"
	"github.com/babylonlabs-io/tip-ledger/internal/clients/talentclient"
	"github.com/babylonlabs-io/tip-ledger/internal/config"
)

type fakeNeynar struct {
	calls atomic.Int32
	user  *neynarclient.User
	err   error
}

func (f *fakeNeynar) GetUser(_ context.Context, fid string) (*neynarclient.User, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeTalent struct {
	calls    atomic.Int32
	passport *talentclient.Passport
	err      error
}

func (f *fakeTalent) GetPassport(_ context.Context, address string) (*talentclient.Passport, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.passport, nil
}

const wallet = "0x00000000000000000000000000000000000000bb"

func newAggregator(neynar *fakeNeynar, talent *fakeTalent) *Aggregator {
	a := New(neynar, talent, 16, time.Hour)
	a.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return a
}

func TestGetScores(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an identity", func(t *testing.T) {
		a := newAggregator(&fakeNeynar{}, &fakeTalent{})
		_, err := a.GetScores(ctx, "", "")
		require.ErrorIs(t, err, ErrMissingIdentity)
	})

	t.Run("both providers", func(t *testing.T) {
		neynar := &fakeNeynar{user: &neynarclient.User{Fid: 3, Username: "dwr"}}
		talent := &fakeTalent{passport: &talentclient.Passport{BuilderScore: 72}}
		a := newAggregator(neynar, talent)

		result, err := a.GetScores(ctx, "3", wallet)
		require.NoError(t, err)
		require.NotNil(t, result.Neynar)
		require.NotNil(t, result.Talent)
		assert.Equal(t, "dwr", result.Neynar.Username)
		assert.Equal(t, float64(72), result.Talent.BuilderScore)
		assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), result.FetchedAt)
	})

	t.Run("only asks providers with an identity", func(t *testing.T) {
		neynar := &fakeNeynar{user: &neynarclient.User{Fid: 3}}
		talent := &fakeTalent{passport: &talentclient.Passport{}}
		a := newAggregator(neynar, talent)

		result, err := a.GetScores(ctx, "", wallet)
		require.NoError(t, err)
		assert.Nil(t, result.Neynar)
		assert.NotNil(t, result.Talent)
		assert.Equal(t, int32(0), neynar.calls.Load())
	})

	t.Run("failing provider yields nil", func(t *testing.T) {
		neynar := &fakeNeynar{err: errors.New("upstream down")}
		talent := &fakeTalent{passport: &talentclient.Passport{BuilderScore: 10}}
		a := newAggregator(neynar, talent)

		result, err := a.GetScores(ctx, "3", wallet)
		require.NoError(t, err)
		assert.Nil(t, result.Neynar)
		require.NotNil(t, result.Talent)
		assert.Equal(t, float64(10), result.Talent.BuilderScore)
	})

	t.Run("caches complete results", func(t *testing.T) {
		neynar := &fakeNeynar{user: &neynarclient.User{Fid: 3}}
		talent := &fakeTalent{err: fmt.Errorf("wrapped: %w", talentclient.ErrPassportNotFound)}
		a := newAggregator(neynar, talent)

		first, err := a.GetScores(ctx, "3", wallet)
		require.NoError(t, err)
		second, err := a.GetScores(ctx, "3", wallet)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), neynar.calls.Load())
		assert.Equal(t, int32(1), talent.calls.Load())
	})

	t.Run("does not cache transient failures", func(t *testing.T) {
		neynar := &fakeNeynar{err: errors.New("timeout")}
		a := newAggregator(neynar, &fakeTalent{})

		_, err := a.GetScores(ctx, "3", "")
		require.NoError(t, err)
		_, err = a.GetScores(ctx, "3", "")
		require.NoError(t, err)

		assert.Equal(t, int32(2), neynar.calls.Load())
	})

	t.Run("missing provider", func(t *testing.T) {
		a := New(nil, &fakeTalent{passport: &talentclient.Passport{}}, 0, 0)

		result, err := a.GetScores(ctx, "3", wallet)
		require.NoError(t, err)
		assert.Nil(t, result.Neynar)
		assert.NotNil(t, result.Talent)
	})
}

func TestNewFromConfig(t *testing.T) {
	assert.Nil(t, NewFromConfig(nil))

	a := NewFromConfig(&config.ScoresConfig{
		Talent: &config.ScoreProviderConfig{URL: "http://localhost", APIKey: "k"},
	})
	require.NotNil(t, a)
	assert.Nil(t, a.neynar)
	assert.NotNil(t, a.talent)
}
