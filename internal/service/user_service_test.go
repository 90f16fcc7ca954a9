package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/raihanm-dev/auth-service/internal/models"
	appErrors "github.com/raihanm-dev/auth-service/pkg/errors"
)

type userRepoStub struct {
	users     map[string]*models.User
	nextID    int64
	createErr error
	findErr   error
	lastLogin map[int64]time.Time
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: map[string]*models.User{}, nextID: 1, lastLogin: map[int64]time.Time{}}
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if user, ok := s.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = s.nextID
	s.nextID++
	s.users[user.Email] = user
	return nil
}

func (s *userRepoStub) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	s.lastLogin[id] = ts
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), models.RegisterRequest{
		Email:    "Alice@Example.com",
		Password: "hunter22",
		Name:     "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))
}

func TestUserServiceCreateNameFallback(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), models.RegisterRequest{
		Email:    "bob@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Name)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), models.RegisterRequest{Email: "ALICE@example.com", Password: "hunter22"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailExists))
}

func TestUserServiceCreateLosesInsertRace(t *testing.T) {
	repo := newUserRepoStub()
	repo.createErr = &pq.Error{Code: "23505", Constraint: "users_email_key"}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailExists))
}

func TestUserServiceCreateValidation(t *testing.T) {
	svc := NewUserService(newUserRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), models.RegisterRequest{Email: "not-an-email", Password: "hunter22"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), models.RegisterRequest{Email: "alice@example.com", Password: "short"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceGet(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)

	created, err := svc.Create(context.Background(), models.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	user, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, user.Email)

	_, err = svc.Get(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceTouchLastLogin(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)

	svc.TouchLastLogin(context.Background(), 7)
	assert.Contains(t, repo.lastLogin, int64(7))
}
