package repository

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raihanm-dev/auth-service/internal/models"
)

// MemoryTokenStore is a process-local TokenStore backed by mutex-guarded
// maps. Refresh token expiry is enforced lazily at read time; blacklist
// entries carry their own expiry and are removed by the cleanup sweep.
type MemoryTokenStore struct {
	mu         sync.Mutex
	blacklist  map[string]models.BlacklistEntry
	refresh    map[int64]models.RefreshTokenRecord
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewMemoryTokenStore constructs an empty in-memory store. defaultTTL bounds
// blacklist entries created without an explicit expiry.
func NewMemoryTokenStore(defaultTTL time.Duration, logger *zap.Logger) *MemoryTokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryTokenStore{
		blacklist:  make(map[string]models.BlacklistEntry),
		refresh:    make(map[int64]models.RefreshTokenRecord),
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

func (s *MemoryTokenStore) BlacklistToken(ctx context.Context, token string, userID int64, expiresAt *time.Time) bool {
	clean := stripBearer(token)
	if clean == "" {
		return false
	}

	now := time.Now().UTC()
	entryExpiry := now.Add(s.defaultTTL)
	if expiresAt != nil {
		entryExpiry = expiresAt.UTC()
	}
	if !entryExpiry.After(now) {
		// Already past its lifetime; nothing left to revoke.
		return true
	}

	s.mu.Lock()
	s.blacklist[clean] = models.BlacklistEntry{
		UserID:        userID,
		BlacklistedAt: now,
		ExpiresAt:     &entryExpiry,
	}
	s.mu.Unlock()

	s.logger.Info("token blacklisted", zap.Int64("user_id", userID), zap.Time("expires_at", entryExpiry))
	return true
}

func (s *MemoryTokenStore) IsBlacklisted(ctx context.Context, token string) bool {
	clean := stripBearer(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.blacklist[clean]
	if !ok {
		return false
	}
	if entry.ExpiresAt != nil && !time.Now().UTC().Before(*entry.ExpiresAt) {
		delete(s.blacklist, clean)
		return false
	}

	s.logger.Warn("blacklisted token presented", zap.Int64("user_id", entry.UserID))
	return true
}

func (s *MemoryTokenStore) StoreUserRefreshToken(ctx context.Context, userID int64, refreshToken string, ttl time.Duration) bool {
	expiresAt := time.Now().UTC().Add(ttl)

	s.mu.Lock()
	s.refresh[userID] = models.RefreshTokenRecord{Token: refreshToken, ExpiresAt: expiresAt}
	s.mu.Unlock()

	s.logger.Info("refresh token stored", zap.Int64("user_id", userID), zap.Duration("ttl", ttl))
	return true
}

func (s *MemoryTokenStore) GetUserRefreshToken(ctx context.Context, userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.refresh[userID]
	if !ok {
		return ""
	}
	if !time.Now().UTC().Before(record.ExpiresAt) {
		// Lazy eviction: the record expired between writes and this read.
		delete(s.refresh, userID)
		s.logger.Info("expired refresh token evicted", zap.Int64("user_id", userID))
		return ""
	}

	return record.Token
}

func (s *MemoryTokenStore) RevokeUserRefreshToken(ctx context.Context, userID int64) bool {
	s.mu.Lock()
	_, existed := s.refresh[userID]
	delete(s.refresh, userID)
	s.mu.Unlock()

	if existed {
		s.logger.Info("refresh token revoked", zap.Int64("user_id", userID))
	}
	return true
}

func (s *MemoryTokenStore) CleanupExpiredTokens(ctx context.Context) int {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, entry := range s.blacklist {
		if entry.ExpiresAt != nil && !now.Before(*entry.ExpiresAt) {
			delete(s.blacklist, token)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("blacklist sweep completed", zap.Int("removed", removed))
	}
	return removed
}

func (s *MemoryTokenStore) CleanupExpiredRefreshTokens(ctx context.Context) int {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, record := range s.refresh {
		if !now.Before(record.ExpiresAt) {
			delete(s.refresh, userID)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("refresh token sweep completed", zap.Int("removed", removed))
	}
	return removed
}
