package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/raihanm-dev/auth-service/internal/models"
	"github.com/raihanm-dev/auth-service/internal/repository"
	"github.com/raihanm-dev/auth-service/pkg/config"
	appErrors "github.com/raihanm-dev/auth-service/pkg/errors"
)

const tokenPrefix = "Bearer "

// TokenService mints, verifies, and silently refreshes signed tokens, and
// bridges to the token store for revocation state. A nil store puts the
// service in a degraded mode where blacklisting trivially succeeds and
// revocation checks trivially report false.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      repository.TokenStore
	logger     *zap.Logger
}

// NewTokenService constructs a token service from JWT configuration. The
// configured secret is treated as base64; when decoding fails the raw string
// bytes are used as key material, which weakens the key and is logged loudly.
func NewTokenService(cfg config.JWTConfig, store repository.TokenStore, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}

	secret, err := base64.StdEncoding.DecodeString(cfg.Secret)
	if err != nil {
		logger.Warn("jwt secret is not valid base64, using raw value as key material", zap.Error(err))
		secret = []byte(cfg.Secret)
	}

	return &TokenService{
		secret:     secret,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessExpiration,
		refreshTTL: cfg.RefreshExpiration,
		store:      store,
		logger:     logger,
	}
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// CreateToken mints a signed access token carrying the given identity.
func (s *TokenService) CreateToken(userID int64, userEmail string, roles []string) (string, error) {
	return s.mint(models.TokenTypeAccess, s.accessTTL, userID, userEmail, roles)
}

// CreateRefreshToken mints a signed refresh token carrying the given identity.
func (s *TokenService) CreateRefreshToken(userID int64, userEmail string, roles []string) (string, error) {
	return s.mint(models.TokenTypeRefresh, s.refreshTTL, userID, userEmail, roles)
}

// CreateTokenSet mints a matching access/refresh pair.
func (s *TokenService) CreateTokenSet(userID int64, userEmail string, roles []string) (*models.TokenPair, error) {
	access, err := s.CreateToken(userID, userEmail, roles)
	if err != nil {
		return nil, err
	}
	refresh, err := s.CreateRefreshToken(userID, userEmail, roles)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) mint(tokenType string, ttl time.Duration, userID int64, userEmail string, roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now().UTC()
	claims := &models.TokenClaims{
		UserID:    userID,
		UserEmail: userEmail,
		Roles:     roles,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		// A signing failure means broken key material, not transient I/O.
		s.logger.Error("token signing failed", zap.String("token_type", tokenType), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrTokenInvalid.Code, appErrors.ErrTokenInvalid.Status, "failed to sign token")
	}

	return tokenPrefix + signed, nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}

// stripPrefix removes the transport marker when present. Tokens are accepted
// with or without it everywhere.
func stripPrefix(token string) string {
	return strings.TrimPrefix(token, tokenPrefix)
}

// VerifyToken validates signature and expiry and returns the claims.
// Expiry is reported distinctly from every other failure so callers can
// branch into the silent-refresh protocol.
func (s *TokenService) VerifyToken(token string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(stripPrefix(token), claims, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTokenInvalid.Code, appErrors.ErrTokenInvalid.Status, appErrors.ErrTokenInvalid.Message)
	}
	if !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "")
	}

	return claims, nil
}

// VerifyRefreshToken validates a token and additionally requires the refresh
// type, so an access token cannot be replayed as a refresh token.
func (s *TokenService) VerifyRefreshToken(token string) (*models.TokenClaims, error) {
	claims, err := s.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeRefresh {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "not a refresh token")
	}
	return claims, nil
}

// decodeIgnoringExpiry recovers claims from a token whose exp may have
// passed. The signature is still checked.
func (s *TokenService) decodeIgnoringExpiry(token string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(stripPrefix(token), claims, s.keyFunc); err != nil {
		return nil, err
	}
	return claims, nil
}

// PeekClaims recovers claims from a token regardless of expiry. The
// signature must still verify. Useful for logout and revocation flows that
// act on tokens past their lifetime.
func (s *TokenService) PeekClaims(token string) (*models.TokenClaims, error) {
	claims, err := s.decodeIgnoringExpiry(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTokenInvalid.Code, appErrors.ErrTokenInvalid.Status, appErrors.ErrTokenInvalid.Message)
	}
	return claims, nil
}

// AutoRefreshAccessToken implements the silent-refresh protocol: recover the
// identity from an expired access token, confirm a still-valid refresh token
// is stored for that user, and mint a fresh access token with the same
// identity and roles. The stored refresh token is not rotated. Any failure
// reduces to ("", false); refresh is best-effort and never fatal.
func (s *TokenService) AutoRefreshAccessToken(ctx context.Context, expiredToken string) (string, bool) {
	claims, err := s.decodeIgnoringExpiry(expiredToken)
	if err != nil {
		s.logger.Warn("auto refresh rejected: undecodable token", zap.Error(err))
		return "", false
	}
	if claims.UserID == 0 || claims.UserEmail == "" {
		s.logger.Warn("auto refresh rejected: missing identity claims")
		return "", false
	}

	if s.store == nil {
		return "", false
	}

	refreshToken := s.store.GetUserRefreshToken(ctx, claims.UserID)
	if refreshToken == "" {
		s.logger.Info("auto refresh rejected: no stored refresh token", zap.Int64("user_id", claims.UserID))
		return "", false
	}

	if _, err := s.VerifyRefreshToken(refreshToken); err != nil {
		s.logger.Warn("auto refresh rejected: stored refresh token invalid", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return "", false
	}

	accessToken, err := s.CreateToken(claims.UserID, claims.UserEmail, claims.Roles)
	if err != nil {
		s.logger.Error("auto refresh failed to mint access token", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return "", false
	}

	s.logger.Info("access token silently refreshed", zap.Int64("user_id", claims.UserID))
	return accessToken, true
}

// BlacklistToken adds the token to the revocation set, bounding the entry by
// the token's own expiry when it can be recovered. Without a store this
// trivially succeeds.
func (s *TokenService) BlacklistToken(ctx context.Context, token string) bool {
	if s.store == nil {
		return true
	}

	var userID int64
	var expiresAt *time.Time
	if claims, err := s.decodeIgnoringExpiry(token); err == nil {
		userID = claims.UserID
		if claims.ExpiresAt != nil {
			t := claims.ExpiresAt.Time
			expiresAt = &t
		}
	}

	return s.store.BlacklistToken(ctx, token, userID, expiresAt)
}

// IsTokenBlacklisted reports revocation-set membership. Without a store this
// trivially reports false.
func (s *TokenService) IsTokenBlacklisted(ctx context.Context, token string) bool {
	if s.store == nil {
		return false
	}
	return s.store.IsBlacklisted(ctx, token)
}

// RevokeUserRefreshToken drops the stored refresh token for a user.
func (s *TokenService) RevokeUserRefreshToken(ctx context.Context, userID int64) bool {
	if s.store == nil {
		return true
	}
	return s.store.RevokeUserRefreshToken(ctx, userID)
}

// StoreRefreshToken persists the refresh token for a user with the
// configured refresh lifetime.
func (s *TokenService) StoreRefreshToken(ctx context.Context, userID int64, refreshToken string) bool {
	if s.store == nil {
		return false
	}
	return s.store.StoreUserRefreshToken(ctx, userID, refreshToken, s.refreshTTL)
}
