// Package trigger delivers newly created notification records to the
// single-target dispatcher. Three transports are available: a Pub/Sub
// topic, a Firestore snapshot listener and an in-process goroutine.
package trigger

import (
	"context"

	"diu-events-backend/internal/notification/domain"
	"diu-events-backend/pkg/obs"

	"go.uber.org/zap"
)

// Dispatcher sends the push for one created notification.
type Dispatcher interface {
	DispatchCreated(ctx context.Context, n *domain.Notification) domain.Outcome
}

// NotificationLoader loads a record by ID, nil when it does not exist.
type NotificationLoader interface {
	FindByID(ctx context.Context, id string) (*domain.Notification, error)
}

// dispatch runs one dispatch and records its outcome. Dispatch never
// fails the trigger.
func dispatch(ctx context.Context, d Dispatcher, n *domain.Notification, log *zap.Logger) domain.Outcome {
	outcome := d.DispatchCreated(ctx, n)
	obs.DispatchOutcomes.WithLabelValues(outcome.Kind.String()).Inc()

	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.String("user_id", n.UserID),
	}
	switch outcome.Kind {
	case domain.OutcomeSent:
		obs.PushSent.WithLabelValues(obs.PathSingle).Inc()
		log.Info("push notification sent", append(fields, zap.String("message_id", outcome.MessageID))...)
	case domain.OutcomeUserNotFound:
		log.Info("user not found, skipping push", fields...)
	case domain.OutcomeNoToken:
		log.Info("no FCM token for user, skipping push", fields...)
	case domain.OutcomeFailed:
		obs.PushFailed.WithLabelValues(obs.PathSingle).Inc()
		log.Error("error sending push notification", append(fields, zap.Error(outcome.Err))...)
	}
	return outcome
}
