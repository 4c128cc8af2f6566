package neynarclient

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
	endpoint       = "/v2/farcaster/user/bulk"
	apiKeyHeader   = "api_key"
	defaultTimeout = 10 * time.Second
)

var ErrUserNotFound = errors.New("farcaster user not found")

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

type experimental struct {
	NeynarUserScore *float64 `json:"neynar_user_score"`
}

type bulkUser struct {
	Fid            uint64        `json:"fid"`
	Username       string        `json:"username"`
	DisplayName    string        `json:"display_name"`
	PfpURL         string        `json:"pfp_url"`
	FollowerCount  uint64        `json:"follower_count"`
	FollowingCount uint64        `json:"following_count"`
	PowerBadge     bool          `json:"power_badge"`
	Verifications  []string      `json:"verifications"`
	Experimental   *experimental `json:"experimental"`
}

type bulkUsersResponse struct {
	Users []bulkUser `json:"users"`
}

// GetUser looks up the farcaster profile registered under fid.
func (c *Client) GetUser(ctx context.Context, fid string) (*User, error) {
	if fid == "" {
		return nil, fmt.Errorf("empty fid provided")
	}

	type empty struct{}

	callForUser := func() (*User, error) {
		opts := &client.HttpClientOptions{
			Path:         endpoint + "?fids=" + url.QueryEscape(fid),
			TemplatePath: endpoint,
			Headers:      map[string]string{apiKeyHeader: c.cfg.APIKey},
		}

		resp, err := client.SendRequest[empty, bulkUsersResponse](ctx, c, http.MethodGet, opts, nil)
		if err != nil {
			return nil, err
		}
		if len(resp.Users) == 0 {
			return nil, fmt.Errorf("%w: fid %s", ErrUserNotFound, fid)
		}

		u := resp.Users[0]
		user := &User{
			Fid:            u.Fid,
			Username:       u.Username,
			DisplayName:    u.DisplayName,
			PfpURL:         u.PfpURL,
			FollowerCount:  u.FollowerCount,
			FollowingCount: u.FollowingCount,
			PowerBadge:     u.PowerBadge,
			Verifications:  u.Verifications,
		}
		if u.Experimental != nil {
			user.NeynarScore = u.Experimental.NeynarUserScore
		}
		return user, nil
	}

	user, err := client.CallWithRetry(ctx, callForUser, client.RetryOptions{
		MaxRetryTimes: c.cfg.MaxRetryTimes,
		RetryInterval: c.cfg.RetryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get neynar user for fid %s: %w", fid, err)
	}

	return user, nil
}
