package usecase

import (
	"context"
	"errors"

	"diu-events-backend/internal/auth/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenVerifier turns a bearer token into a verified identity.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*domain.Identity, error)
}
