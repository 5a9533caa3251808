package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"diu-events-backend/internal/user/domain"
	"diu-events-backend/internal/user/repository"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmptyToken   = errors.New("token is required")
)

type userUsecase struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewUserUsecase creates a new instance of userUsecase
func NewUserUsecase(userRepo repository.UserRepository) UserUsecase {
	return &userUsecase{
		userRepo: userRepo,
		now:      time.Now,
	}
}

func (u *userUsecase) RegisterToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	return u.userRepo.SaveToken(ctx, userID, token, u.now())
}

func (u *userUsecase) UnregisterToken(ctx context.Context, userID string) error {
	return u.userRepo.ClearToken(ctx, userID)
}

func (u *userUsecase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
