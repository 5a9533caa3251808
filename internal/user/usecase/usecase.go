package usecase

import (
	"context"
	"time"

	"diu-events-backend/internal/user/domain"
)

// UserUsecase covers the token writes made by the mobile client after
// login and the role lookup used by admin-only endpoints.
type UserUsecase interface {
	// RegisterToken stores token as the caller's push token.
	RegisterToken(ctx context.Context, userID, token string) error

	// UnregisterToken drops the caller's push token.
	UnregisterToken(ctx context.Context, userID string) error

	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// Reaper clears push tokens that have not been refreshed recently.
type Reaper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}
