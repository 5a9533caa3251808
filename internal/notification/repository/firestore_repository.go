package repository

import (
	"context"
	"fmt"
	"time"

	"diu-events-backend/internal/notification/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) NotificationRepository {
	return &firestoreNotificationRepository{client: client}
}

// DecodeNotification reads a user_notifications document.
func DecodeNotification(snap *firestore.DocumentSnapshot) (*domain.Notification, error) {
	var n domain.Notification
	if err := snap.DataTo(&n); err != nil {
		return nil, fmt.Errorf("decode notification %s: %w", snap.Ref.ID, err)
	}
	n.ID = snap.Ref.ID
	return &n, nil
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	ref := r.client.Collection(NotificationsCollection).NewDoc()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := ref.Create(ctx, n); err != nil {
		return err
	}
	n.ID = ref.ID
	return nil
}

func (r *firestoreNotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	if id == "" {
		return nil, nil
	}
	snap, err := r.client.Collection(NotificationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return DecodeNotification(snap)
}
