package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raihanm-dev/auth-service/internal/models"
	"github.com/raihanm-dev/auth-service/internal/repository"
	appErrors "github.com/raihanm-dev/auth-service/pkg/errors"
)

type authFixture struct {
	auth   *AuthService
	users  *userRepoStub
	tokens *TokenService
	store  repository.TokenStore
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := repository.NewMemoryTokenStore(time.Minute, nil)
	tokens := newTestTokenService(store)
	users := newUserRepoStub()
	userSvc := NewUserService(users, nil, nil)
	return &authFixture{
		auth:   NewAuthService(userSvc, tokens, nil),
		users:  users,
		tokens: tokens,
		store:  store,
	}
}

func registerRequest() models.RegisterRequest {
	return models.RegisterRequest{Email: "alice@example.com", Password: "hunter22", Name: "Alice"}
}

func TestAuthServiceRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, registerRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.AccessToken, "Bearer "))
	assert.True(t, strings.HasPrefix(res.RefreshToken, "Bearer "))
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.NotZero(t, res.User.ID)

	claims, err := f.tokens.VerifyToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	stored := f.store.GetUserRefreshToken(ctx, res.User.ID)
	assert.Equal(t, res.RefreshToken, stored)

	assert.Contains(t, f.users.lastLogin, res.User.ID)
}

func TestAuthServiceRegisterDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, registerRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailExists))
}

type failingStoreTokens struct {
	*TokenService
}

func (f failingStoreTokens) StoreRefreshToken(ctx context.Context, userID int64, refreshToken string) bool {
	return false
}

func TestAuthServiceRegisterStoreFailureStillReturnsTokens(t *testing.T) {
	users := newUserRepoStub()
	tokens := failingStoreTokens{newTestTokenService(repository.NewMemoryTokenStore(time.Minute, nil))}
	auth := NewAuthService(NewUserService(users, nil, nil), tokens, nil)

	res, err := auth.Register(context.Background(), registerRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
}

func TestAuthServiceRefreshAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, registerRequest())
	require.NoError(t, err)

	expired, err := f.tokens.mint(models.TokenTypeAccess, -time.Minute, res.User.ID, res.User.Email, nil)
	require.NoError(t, err)

	refreshed, err := f.auth.RefreshAccessToken(ctx, expired)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.False(t, refreshed.IssuedAt.IsZero())

	claims, err := f.tokens.VerifyToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
}

func TestAuthServiceRefreshWithoutSession(t *testing.T) {
	f := newAuthFixture(t)

	expired, err := f.tokens.mint(models.TokenTypeAccess, -time.Minute, 42, "ghost@example.com", nil)
	require.NoError(t, err)

	_, err = f.auth.RefreshAccessToken(context.Background(), expired)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, registerRequest())
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, res.AccessToken))

	assert.True(t, f.store.IsBlacklisted(ctx, res.AccessToken))
	assert.Empty(t, f.store.GetUserRefreshToken(ctx, res.User.ID))
}

func TestAuthServiceLogoutInvalidToken(t *testing.T) {
	f := newAuthFixture(t)

	err := f.auth.Logout(context.Background(), "not.a.token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenInvalid))
}

func TestAuthServiceMe(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, registerRequest())
	require.NoError(t, err)

	info, err := f.auth.Me(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", info.Email)

	_, err = f.auth.Me(ctx, 999)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
