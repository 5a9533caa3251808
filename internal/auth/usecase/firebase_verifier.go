package usecase

import (
	"context"
	"fmt"

	"diu-events-backend/internal/auth/domain"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

type firebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier verifies Firebase Auth ID tokens issued to the app.
func NewFirebaseVerifier(client *firebaseauth.Client) TokenVerifier {
	return &firebaseVerifier{client: client}
}

func (v *firebaseVerifier) Verify(ctx context.Context, rawToken string) (*domain.Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if token.UID == "" {
		return nil, ErrInvalidToken
	}
	return &domain.Identity{UID: token.UID, Provider: "firebase"}, nil
}
