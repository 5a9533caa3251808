package repository

import (
	"context"
	"time"

	"diu-events-backend/internal/user/domain"
)

// UsersCollection is the Firestore collection holding user profiles.
const UsersCollection = "users"

// UserRepository is the user directory. FindByID returns nil, nil for an
// unknown user.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// ListWithToken returns every user whose push token is set.
	ListWithToken(ctx context.Context) ([]domain.User, error)

	// SaveToken sets the token and its refresh time together.
	SaveToken(ctx context.Context, userID, token string, at time.Time) error

	// ClearToken removes the token fields of one user.
	ClearToken(ctx context.Context, userID string) error

	// ClearTokenByValue removes token fields from whichever users hold token.
	ClearTokenByValue(ctx context.Context, token string) error

	// ClearStaleTokens atomically clears the token fields of the given users
	// whose token is still older than cutoff at commit time. It returns the
	// number of users actually cleared.
	ClearStaleTokens(ctx context.Context, userIDs []string, cutoff time.Time) (int, error)
}
