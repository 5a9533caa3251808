package usecase

import (
	"context"
	"fmt"
	"time"

	"diu-events-backend/internal/user/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultTokenMaxAge is how long a token may go without a refresh.
const DefaultTokenMaxAge = 90 * 24 * time.Hour

type tokenReaper struct {
	userRepo repository.UserRepository
	maxAge   func() time.Duration
	log      *zap.Logger
}

// NewTokenReaper creates a Reaper. maxAge is read at the start of every
// sweep so it can change at runtime; a nil or non-positive value falls
// back to DefaultTokenMaxAge.
func NewTokenReaper(userRepo repository.UserRepository, maxAge func() time.Duration, log *zap.Logger) Reaper {
	return &tokenReaper{
		userRepo: userRepo,
		maxAge:   maxAge,
		log:      log,
	}
}

func (r *tokenReaper) currentMaxAge() time.Duration {
	if r.maxAge == nil {
		return DefaultTokenMaxAge
	}
	if age := r.maxAge(); age > 0 {
		return age
	}
	return DefaultTokenMaxAge
}

// Sweep clears every token whose age at now exceeds the max age and returns
// how many users were cleared. All clears are committed together at the
// end; nothing is written if the scan fails.
func (r *tokenReaper) Sweep(ctx context.Context, now time.Time) (int, error) {
	ctx, span := otel.Tracer("user.reaper").Start(ctx, "reaper.sweep")
	defer span.End()

	cutoff := now.Add(-r.currentMaxAge())

	users, err := r.userRepo.ListWithToken(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("list users with token: %w", err)
	}

	var stale []string
	for i := range users {
		if users[i].TokenStale(cutoff) {
			stale = append(stale, users[i].ID)
		}
	}
	span.SetAttributes(
		attribute.Int("reaper.scanned", len(users)),
		attribute.Int("reaper.stale", len(stale)),
	)

	if len(stale) == 0 {
		return 0, nil
	}

	cleared, err := r.userRepo.ClearStaleTokens(ctx, stale, cutoff)
	if err != nil {
		span.RecordError(err)
		return cleared, fmt.Errorf("clear stale tokens: %w", err)
	}
	if cleared < len(stale) {
		r.log.Info("tokens refreshed since scan were kept", zap.Int("kept", len(stale)-cleared))
	}
	return cleared, nil
}
