package repository

import (
	"context"
	"fmt"

	"diu-events-backend/internal/notification/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Listener state lives outside user_notifications so records stay
// immutable.
const (
	StateCollection       = "system_state"
	ListenerCheckpointDoc = "notification_listener"
)

// FirestoreCheckpointStore persists the snapshot listener's checkpoint in a
// single document.
type FirestoreCheckpointStore struct {
	ref *firestore.DocumentRef
}

func NewFirestoreCheckpointStore(client *firestore.Client) *FirestoreCheckpointStore {
	return &FirestoreCheckpointStore{ref: client.Collection(StateCollection).Doc(ListenerCheckpointDoc)}
}

// Load returns nil, nil when no checkpoint was saved yet.
func (s *FirestoreCheckpointStore) Load(ctx context.Context) (*domain.ListenerCheckpoint, error) {
	snap, err := s.ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("load listener checkpoint: %w", err)
	}
	var cp domain.ListenerCheckpoint
	if err := snap.DataTo(&cp); err != nil {
		return nil, fmt.Errorf("decode listener checkpoint: %w", err)
	}
	return &cp, nil
}

func (s *FirestoreCheckpointStore) Save(ctx context.Context, cp domain.ListenerCheckpoint) error {
	if _, err := s.ref.Set(ctx, cp); err != nil {
		return fmt.Errorf("save listener checkpoint: %w", err)
	}
	return nil
}
