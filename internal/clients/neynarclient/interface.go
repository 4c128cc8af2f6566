package neynarclient

import "context"

type NeynarInterface interface {
	GetUser(ctx context.Context, fid string) (*User, error)
}

// User is the public farcaster profile of a tipper or builder.
type User struct {
	Fid            uint64   `json:"fid"`
	Username       string   `json:"username"`
	DisplayName    string   `json:"displayName"`
	PfpURL         string   `json:"pfpUrl"`
	FollowerCount  uint64   `json:"followerCount"`
	FollowingCount uint64   `json:"followingCount"`
	NeynarScore    *float64 `json:"neynarScore"`
	PowerBadge     bool     `json:"powerBadge"`
	Verifications  []string `json:"verifications"`
}
