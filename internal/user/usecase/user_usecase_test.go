package usecase

import (
	"context"
	"testing"
	"time"

	"diu-events-backend/internal/user/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterToken_SetsBothFields(t *testing.T) {
	repo := newMemUserRepo(domain.User{ID: "u1", Role: domain.RoleUser})
	uc := &userUsecase{userRepo: repo, now: func() time.Time { return sweepNow }}

	require.NoError(t, uc.RegisterToken(context.Background(), "u1", "  tok-1 "))

	u, _ := repo.FindByID(context.Background(), "u1")
	require.True(t, u.HasToken())
	assert.Equal(t, "tok-1", *u.FCMToken)
	require.NotNil(t, u.FCMTokenUpdatedAt)
	assert.True(t, sweepNow.Equal(*u.FCMTokenUpdatedAt))
}

func TestRegisterToken_RejectsEmpty(t *testing.T) {
	repo := newMemUserRepo()
	uc := NewUserUsecase(repo)

	err := uc.RegisterToken(context.Background(), "u1", "   ")
	assert.ErrorIs(t, err, ErrEmptyToken)
	assert.Empty(t, repo.users)
}

func TestUnregisterToken(t *testing.T) {
	repo := newMemUserRepo(userWithToken("u1", "tok", sweepNow))
	uc := NewUserUsecase(repo)

	require.NoError(t, uc.UnregisterToken(context.Background(), "u1"))

	u, _ := repo.FindByID(context.Background(), "u1")
	assert.Nil(t, u.FCMToken)
	assert.Nil(t, u.FCMTokenUpdatedAt)
}

func TestGetUser(t *testing.T) {
	repo := newMemUserRepo(domain.User{ID: "a", Role: domain.RoleAdmin})
	uc := NewUserUsecase(repo)

	u, err := uc.GetUser(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, err = uc.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
