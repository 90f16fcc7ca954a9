package models

import "time"

// TokenPair bundles the access and refresh tokens minted for one session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BlacklistEntry is the metadata stored alongside a revoked access token.
type BlacklistEntry struct {
	UserID        int64      `json:"user_id,omitempty"`
	BlacklistedAt time.Time  `json:"blacklisted_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// RefreshTokenRecord is the single live refresh token kept per user.
type RefreshTokenRecord struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
