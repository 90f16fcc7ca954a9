package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/raihanm-dev/auth-service/internal/models"
)

const (
	blacklistKeyPrefix = "blacklist:token:"
	refreshKeyPrefix   = "refresh_user:"
)

// RedisTokenStore is a TokenStore backed by Redis. Expiry is enforced by
// native key TTLs; the cleanup sweeps are defensive scans for keys whose TTL
// has already lapsed.
//
// When failClosed is set, a Redis outage makes IsBlacklisted report true so
// verification rejects tokens instead of silently skipping the revocation
// check.
type RedisTokenStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	failClosed bool
	logger     *zap.Logger
}

// NewRedisTokenStore wraps an established Redis client. defaultTTL bounds
// blacklist entries created without an explicit expiry.
func NewRedisTokenStore(client *redis.Client, defaultTTL time.Duration, failClosed bool, logger *zap.Logger) *RedisTokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTokenStore{client: client, defaultTTL: defaultTTL, failClosed: failClosed, logger: logger}
}

func (s *RedisTokenStore) blacklistKey(token string) string {
	return blacklistKeyPrefix + token
}

func (s *RedisTokenStore) refreshKey(userID int64) string {
	return fmt.Sprintf("%s%d", refreshKeyPrefix, userID)
}

func (s *RedisTokenStore) BlacklistToken(ctx context.Context, token string, userID int64, expiresAt *time.Time) bool {
	clean := stripBearer(token)
	if clean == "" {
		return false
	}

	now := time.Now().UTC()
	ttl := s.defaultTTL
	entry := models.BlacklistEntry{UserID: userID, BlacklistedAt: now, ExpiresAt: expiresAt}
	if expiresAt != nil {
		ttl = expiresAt.Sub(now)
	}
	if ttl <= 0 {
		// The token has already outlived itself; nothing left to revoke.
		return true
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error("failed to encode blacklist entry", zap.Error(err))
		return false
	}

	if err := s.client.Set(ctx, s.blacklistKey(clean), payload, ttl).Err(); err != nil {
		s.logger.Error("failed to blacklist token", zap.Error(err), zap.Int64("user_id", userID))
		return false
	}

	s.logger.Info("token blacklisted", zap.Int64("user_id", userID), zap.Duration("ttl", ttl))
	return true
}

func (s *RedisTokenStore) IsBlacklisted(ctx context.Context, token string) bool {
	clean := stripBearer(token)

	err := s.client.Get(ctx, s.blacklistKey(clean)).Err()
	if err == nil {
		s.logger.Warn("blacklisted token presented")
		return true
	}
	if err == redis.Nil {
		return false
	}

	s.logger.Error("blacklist lookup failed", zap.Error(err), zap.Bool("fail_closed", s.failClosed))
	return s.failClosed
}

func (s *RedisTokenStore) StoreUserRefreshToken(ctx context.Context, userID int64, refreshToken string, ttl time.Duration) bool {
	key := s.refreshKey(userID)

	if ttl <= 0 {
		// Redis rejects non-positive expirations; an already-expired record
		// is equivalent to no record at all.
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.logger.Error("failed to clear refresh token", zap.Error(err), zap.Int64("user_id", userID))
			return false
		}
		return true
	}

	if err := s.client.Set(ctx, key, refreshToken, ttl).Err(); err != nil {
		s.logger.Error("failed to store refresh token", zap.Error(err), zap.Int64("user_id", userID))
		return false
	}

	s.logger.Info("refresh token stored", zap.Int64("user_id", userID), zap.Duration("ttl", ttl))
	return true
}

func (s *RedisTokenStore) GetUserRefreshToken(ctx context.Context, userID int64) string {
	token, err := s.client.Get(ctx, s.refreshKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Error("refresh token lookup failed", zap.Error(err), zap.Int64("user_id", userID))
		}
		return ""
	}
	return token
}

func (s *RedisTokenStore) RevokeUserRefreshToken(ctx context.Context, userID int64) bool {
	deleted, err := s.client.Del(ctx, s.refreshKey(userID)).Result()
	if err != nil {
		s.logger.Error("failed to revoke refresh token", zap.Error(err), zap.Int64("user_id", userID))
		return false
	}

	s.logger.Info("refresh token revoked", zap.Int64("user_id", userID), zap.Int64("deleted", deleted))
	return true
}

func (s *RedisTokenStore) CleanupExpiredTokens(ctx context.Context) int {
	return s.sweepLapsed(ctx, blacklistKeyPrefix+"*")
}

func (s *RedisTokenStore) CleanupExpiredRefreshTokens(ctx context.Context) int {
	return s.sweepLapsed(ctx, refreshKeyPrefix+"*")
}

// sweepLapsed deletes keys in the namespace whose TTL has lapsed to zero or
// negative. Redis expires such keys on its own, so this mostly counts zero;
// it exists as a defensive maintenance pass.
func (s *RedisTokenStore) sweepLapsed(ctx context.Context, pattern string) int {
	removed := 0

	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := s.client.TTL(ctx, key).Result()
		if err != nil {
			s.logger.Error("ttl probe failed during sweep", zap.Error(err), zap.String("key", key))
			return removed
		}
		if ttl < 0 {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				s.logger.Error("delete failed during sweep", zap.Error(err), zap.String("key", key))
				return removed
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("scan failed during sweep", zap.Error(err), zap.String("pattern", pattern))
		return removed
	}

	if removed > 0 {
		s.logger.Info("token sweep completed", zap.String("pattern", pattern), zap.Int("removed", removed))
	}
	return removed
}
