package repository

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/raihanm-dev/auth-service/pkg/config"
)

const bearerPrefix = "Bearer "

// TokenStore tracks blacklisted access tokens and the single live refresh
// token kept per user. Implementations are best-effort: operations never
// panic and never surface errors; an underlying failure is logged and reduced
// to false/""/0 so callers can degrade gracefully. Callers must not treat a
// false return as proof the token was revoked.
type TokenStore interface {
	// BlacklistToken inserts the token into the revocation set. The entry's
	// TTL derives from expiresAt when given, otherwise the store's default
	// window (the access-token lifetime).
	BlacklistToken(ctx context.Context, token string, userID int64, expiresAt *time.Time) bool

	// IsBlacklisted reports revocation-set membership in O(1).
	IsBlacklisted(ctx context.Context, token string) bool

	// StoreUserRefreshToken upserts the refresh token for a user, replacing
	// any prior token. At most one refresh token is live per user.
	StoreUserRefreshToken(ctx context.Context, userID int64, refreshToken string, ttl time.Duration) bool

	// GetUserRefreshToken returns the stored refresh token, or "" when none
	// is stored or the record has expired.
	GetUserRefreshToken(ctx context.Context, userID int64) string

	// RevokeUserRefreshToken deletes the stored refresh token. Idempotent:
	// succeeds even when no record existed.
	RevokeUserRefreshToken(ctx context.Context, userID int64) bool

	// CleanupExpiredTokens sweeps lapsed blacklist entries and returns the
	// number removed.
	CleanupExpiredTokens(ctx context.Context) int

	// CleanupExpiredRefreshTokens sweeps lapsed refresh token records and
	// returns the number removed.
	CleanupExpiredRefreshTokens(ctx context.Context) int
}

// NewTokenStore selects a token store backend from configuration. An
// unrecognized backend, or a redis selection without a reachable client,
// logs a warning and falls back to the in-memory store rather than failing
// startup.
func NewTokenStore(cfg config.TokenStoreConfig, defaultBlacklistTTL time.Duration, client *redis.Client, logger *zap.Logger) TokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case config.TokenStoreMemory:
		return NewMemoryTokenStore(defaultBlacklistTTL, logger)
	case config.TokenStoreRedis:
		if client == nil {
			logger.Warn("redis token store selected but no client available, falling back to memory")
			return NewMemoryTokenStore(defaultBlacklistTTL, logger)
		}
		return NewRedisTokenStore(client, defaultBlacklistTTL, cfg.FailClosed, logger)
	default:
		logger.Warn("unsupported token store backend, falling back to memory", zap.String("backend", cfg.Backend))
		return NewMemoryTokenStore(defaultBlacklistTTL, logger)
	}
}

func stripBearer(token string) string {
	return strings.TrimPrefix(token, bearerPrefix)
}
