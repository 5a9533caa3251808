package usecase

import (
	"context"

	"diu-events-backend/internal/notification/domain"
	userdomain "diu-events-backend/internal/user/domain"
	"diu-events-backend/pkg/fcm"
)

// NotificationUsecase defines the notification fan-out operations
type NotificationUsecase interface {
	// Create records a notification for req.UserID. Callers may notify
	// themselves; notifying anyone else requires the admin role.
	Create(ctx context.Context, callerID string, req domain.CreateRequest) (*domain.Notification, error)

	// DispatchCreated sends the push for a newly created notification. It
	// never returns an error; failures are reported in the Outcome.
	DispatchCreated(ctx context.Context, n *domain.Notification) domain.Outcome

	// SendBulk is the sendBulkPushNotification callable. Errors are
	// *callable.Error values.
	SendBulk(ctx context.Context, callerID string, req domain.BulkRequest) (*domain.BulkResult, error)

	// SetCreatedPublisher sets where Create announces new records
	SetCreatedPublisher(p CreatedPublisher)
}

// CreatedPublisher announces a stored notification to whatever delivers
// the single-target push.
type CreatedPublisher interface {
	PublishCreated(ctx context.Context, n *domain.Notification) error
}

// UserDirectory is the part of the user store the dispatchers need.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
	ClearTokenByValue(ctx context.Context, token string) error
}

// PushSender delivers push messages; *fcm.Client implements it.
type PushSender interface {
	Send(ctx context.Context, token string, msg *fcm.Message) (string, error)
	SendMulticast(ctx context.Context, tokens []string, msg *fcm.Message) (*fcm.MulticastResult, error)
}
