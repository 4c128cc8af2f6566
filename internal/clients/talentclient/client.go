package talentclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/babylonlabs-io/tip-ledger/internal/clients/client"
	"github.com/babylonlabs-io/tip-ledger/internal/config"
)

const (
	endpoint       = "/api/v2/passports/"
	apiKeyHeader   = "X-API-KEY"
	defaultTimeout = 10 * time.Second
)

var ErrPassportNotFound = errors.New("talent passport not found")

type Client struct {
	httpClient *http.Client
	cfg        *config.ScoreProviderConfig
}

func NewClient(cfg *config.ScoreProviderConfig) *Client {
	if cfg == nil {
		return nil
	}

	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
	}
}

func (c *Client) GetBaseURL() string {
	return strings.TrimSuffix(c.cfg.URL, "/")
}

func (c *Client) GetDefaultRequestTimeout() time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return defaultTimeout
}

func (c *Client) GetHttpClient() *http.Client {
	return c.httpClient
}

type passportResponse struct {
	Passport *struct {
		Score          float64 `json:"score"`
		ActivityScore  float64 `json:"activity_score"`
		IdentityScore  float64 `json:"identity_score"`
		SkillsScore    float64 `json:"skills_score"`
		HumanCheckmark bool    `json:"human_checkmark"`
		PassportID     uint64  `json:"passport_id"`
		MainWallet     string  `json:"main_wallet"`
	} `json:"passport"`
}

// GetPassport fetches the builder passport owned by address.
func (c *Client) GetPassport(ctx context.Context, address string) (*Passport, error) {
	if address == "" {
		return nil, fmt.Errorf("empty address provided")
	}

	type empty struct{}

	callForPassport := func() (*Passport, error) {
		opts := &client.HttpClientOptions{
			Path:         endpoint + url.PathEscape(address),
			TemplatePath: endpoint + "{address}",
			Headers:      map[string]string{apiKeyHeader: c.cfg.APIKey},
		}

		resp, err := client.SendRequest[empty, passportResponse](ctx, c, http.MethodGet, opts, nil)
		if err != nil {
			return nil, err
		}
		if resp.Passport == nil {
			return nil, fmt.Errorf("%w: %s", ErrPassportNotFound, address)
		}

		p := resp.Passport
		return &Passport{
			BuilderScore:   p.Score,
			ActivityScore:  p.ActivityScore,
			IdentityScore:  p.IdentityScore,
			SkillsScore:    p.SkillsScore,
			HumanCheckmark: p.HumanCheckmark,
			PassportID:     p.PassportID,
			WalletAddress:  p.MainWallet,
		}, nil
	}

	passport, err := client.CallWithRetry(ctx, callForPassport, client.RetryOptions{
		MaxRetryTimes: c.cfg.MaxRetryTimes,
		RetryInterval: c.cfg.RetryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get talent passport for %s: %w", address, err)
	}

	return passport, nil
}
