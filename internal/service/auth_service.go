package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/raihanm-dev/auth-service/internal/models"
	appErrors "github.com/raihanm-dev/auth-service/pkg/errors"
)

type userAccounts interface {
	Create(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	TouchLastLogin(ctx context.Context, id int64)
}

type tokenManager interface {
	CreateTokenSet(userID int64, userEmail string, roles []string) (*models.TokenPair, error)
	StoreRefreshToken(ctx context.Context, userID int64, refreshToken string) bool
	AutoRefreshAccessToken(ctx context.Context, expiredToken string) (string, bool)
	PeekClaims(token string) (*models.TokenClaims, error)
	BlacklistToken(ctx context.Context, token string) bool
	RevokeUserRefreshToken(ctx context.Context, userID int64) bool
}

// AuthService orchestrates registration, silent refresh, and logout on top of
// the user and token services.
type AuthService struct {
	users  userAccounts
	tokens tokenManager
	logger *zap.Logger
}

// NewAuthService creates an instance of AuthService.
func NewAuthService(users userAccounts, tokens tokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Register creates the account, mints an access/refresh pair, and persists
// the refresh token. Persisting is best-effort: a store failure is logged and
// the tokens are still returned, the session simply will not survive access
// token expiry. Registration is not rolled back for token-side failures.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	user, err := s.users.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.CreateTokenSet(user.ID, user.Email, nil)
	if err != nil {
		s.logger.Error("failed to issue tokens for new user", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue tokens")
	}

	if !s.tokens.StoreRefreshToken(ctx, user.ID, pair.RefreshToken) {
		s.logger.Warn("refresh token not persisted, silent refresh unavailable for this session",
			zap.Int64("user_id", user.ID))
	}

	s.users.TouchLastLogin(ctx, user.ID)

	return &models.RegisterResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         models.NewUserInfo(user),
	}, nil
}

// RefreshAccessToken exchanges an expired access token for a fresh one via
// the silent-refresh protocol.
func (s *AuthService) RefreshAccessToken(ctx context.Context, expiredToken string) (*models.RefreshResponse, error) {
	accessToken, ok := s.tokens.AutoRefreshAccessToken(ctx, expiredToken)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unable to refresh access token")
	}
	return &models.RefreshResponse{AccessToken: accessToken, IssuedAt: time.Now().UTC()}, nil
}

// Logout revokes the presented access token and the user's stored refresh
// token. Accepts expired tokens; only the signature must verify.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.PeekClaims(accessToken)
	if err != nil {
		return err
	}

	if !s.tokens.BlacklistToken(ctx, accessToken) {
		s.logger.Warn("failed to blacklist token on logout", zap.Int64("user_id", claims.UserID))
	}
	if !s.tokens.RevokeUserRefreshToken(ctx, claims.UserID) {
		s.logger.Warn("failed to revoke refresh token on logout", zap.Int64("user_id", claims.UserID))
	}

	s.logger.Info("user logged out", zap.Int64("user_id", claims.UserID))
	return nil
}

// Me returns the profile for an authenticated user.
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.UserInfo, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := models.NewUserInfo(user)
	return &info, nil
}
