package scores

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/babylonlabs-io/tip-ledger/internal/clients/neynarclient"
	"github.com/babylonlabs-io/tip-ledger/internal/clients/talentclient"
	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/observability/metrics"
)

const (
	providerNeynar = "neynar"
	providerTalent = "talent"

	defaultCacheTTL  = time.Hour
	defaultCacheSize = 10_000
)

var ErrMissingIdentity = errors.New("either fid or address is required")

// Result holds whatever each provider returned for one identity. A provider
// that is not configured, not asked, or failed leaves its field nil.
type Result struct {
	Neynar    *neynarclient.User     `json:"neynar"`
	Talent    *talentclient.Passport `json:"talent"`
	FetchedAt time.Time              `json:"fetchedAt"`
}

type Aggregator struct {
	neynar neynarclient.NeynarInterface
	talent talentclient.TalentInterface
	cache  *expirable.LRU[string, *Result]
	now    func() time.Time
}

// New builds an aggregator over the given providers, either of which may be
// nil.
func New(
	neynar neynarclient.NeynarInterface,
	talent talentclient.TalentInterface,
	cacheSize int,
	cacheTTL time.Duration,
) *Aggregator {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Aggregator{
		neynar: neynar,
		talent: talent,
		cache:  expirable.NewLRU[string, *Result](cacheSize, nil, cacheTTL),
		now:    time.Now,
	}
}

// NewFromConfig wires the configured providers. It returns nil when cfg is
// nil so callers can treat score lookups as disabled.
func NewFromConfig(cfg *config.ScoresConfig) *Aggregator {
	if cfg == nil {
		return nil
	}

	var (
		neynar neynarclient.NeynarInterface
		talent talentclient.TalentInterface
	)
	if cfg.Neynar != nil {
		neynar = neynarclient.NewClient(cfg.Neynar)
	}
	if cfg.Talent != nil {
		talent = talentclient.NewClient(cfg.Talent)
	}

	return New(neynar, talent, cfg.CacheSize, cfg.CacheTTL)
}

// GetScores queries both providers in parallel. Provider failures are logged
// and reported as a nil field, they never fail the whole lookup.
func (a *Aggregator) GetScores(ctx context.Context, fid, address string) (*Result, error) {
	if fid == "" && address == "" {
		return nil, ErrMissingIdentity
	}

	key := fid + "|" + address
	if cached, ok := a.cache.Get(key); ok {
		metrics.RecordScoreCacheLookup(true)
		return cached, nil
	}
	metrics.RecordScoreCacheLookup(false)

	result := &Result{}
	var neynarErr, talentErr error

	var wg conc.WaitGroup
	if fid != "" && a.neynar != nil {
		wg.Go(func() {
			result.Neynar, neynarErr = a.neynar.GetUser(ctx, fid)
			recordProvider(ctx, providerNeynar, neynarErr, errors.Is(neynarErr, neynarclient.ErrUserNotFound))
		})
	}
	if address != "" && a.talent != nil {
		wg.Go(func() {
			result.Talent, talentErr = a.talent.GetPassport(ctx, address)
			recordProvider(ctx, providerTalent, talentErr, errors.Is(talentErr, talentclient.ErrPassportNotFound))
		})
	}
	wg.Wait()

	result.FetchedAt = a.now().UTC()

	// transient failures are not cached so the next lookup asks again
	if transient(neynarErr, neynarclient.ErrUserNotFound) || transient(talentErr, talentclient.ErrPassportNotFound) {
		return result, nil
	}

	a.cache.Add(key, result)
	return result, nil
}

func recordProvider(ctx context.Context, provider string, err error, notFound bool) {
	failure := err != nil && !notFound
	metrics.RecordScoreProviderResult(provider, failure)
	if failure {
		log.Ctx(ctx).Warn().Err(err).Str("provider", provider).Msg("score provider lookup failed")
	}
}

func transient(err, notFound error) bool {
	return err != nil && !errors.Is(err, notFound)
}
