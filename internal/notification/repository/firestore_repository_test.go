package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"diu-events-backend/internal/notification/domain"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), fmt.Sprintf("demo-notifications-%d", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFirestoreNotificationRepository_CreateAndFind(t *testing.T) {
	client := newEmulatorClient(t)
	repo := NewFirestoreNotificationRepository(client)
	ctx := context.Background()

	n := &domain.Notification{UserID: "u1", Title: "Event moved", Message: "Room 404", Type: "event_update", EventID: "e1"}
	require.NoError(t, repo.Create(ctx, n))
	require.NotEmpty(t, n.ID)
	require.False(t, n.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Event moved", got.Title)
	assert.Equal(t, "event_update", got.Type)
	assert.Equal(t, "e1", got.EventID)
	assert.Empty(t, got.EventTitle)
	assert.WithinDuration(t, n.CreatedAt, got.CreatedAt, time.Microsecond)

	missing, err := repo.FindByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDecodeNotification(t *testing.T) {
	client := newEmulatorClient(t)
	ctx := context.Background()
	col := client.Collection(NotificationsCollection)
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

	_, err := col.Doc("app-written").Set(ctx, map[string]interface{}{
		"userId":    "u1",
		"title":     "Reminder",
		"createdAt": at,
		"read":      false,
	})
	require.NoError(t, err)
	_, err = col.Doc("bad").Set(ctx, map[string]interface{}{"userId": "u1", "title": 42})
	require.NoError(t, err)

	snap, err := col.Doc("app-written").Get(ctx)
	require.NoError(t, err)
	n, err := DecodeNotification(snap)
	require.NoError(t, err)
	assert.Equal(t, "app-written", n.ID)
	assert.Equal(t, "Reminder", n.Title)
	assert.True(t, at.Equal(n.CreatedAt))

	snap, err = col.Doc("bad").Get(ctx)
	require.NoError(t, err)
	_, err = DecodeNotification(snap)
	assert.ErrorContains(t, err, "bad")
}

func TestFirestoreCheckpointStore(t *testing.T) {
	client := newEmulatorClient(t)
	store := NewFirestoreCheckpointStore(client)
	ctx := context.Background()

	cp, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)

	at := time.Date(2026, 10, 19, 8, 30, 0, 123000, time.UTC)
	require.NoError(t, store.Save(ctx, domain.ListenerCheckpoint{At: at, IDs: []string{"a", "b"}}))

	cp, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.True(t, at.Equal(cp.At))
	assert.Equal(t, []string{"a", "b"}, cp.IDs)

	require.NoError(t, store.Save(ctx, domain.ListenerCheckpoint{At: at.Add(time.Second)}))
	cp, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cp.IDs)

	records, err := client.Collection(NotificationsCollection).Documents(ctx).GetAll()
	require.NoError(t, err)
	assert.Empty(t, records, "checkpoint kept out of user_notifications")
}
