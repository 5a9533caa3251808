package repository

import (
	"context"
	"fmt"
	"testing"

	"diu-events-backend/internal/notification/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	db, err := gorm.Open(dsn, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Notification{}))
	return db
}

func TestGormNotificationRepository_CreateAssignsIDAndTime(t *testing.T) {
	repo := NewGormNotificationRepository(newTestDB(t))
	ctx := context.Background()

	n := &domain.Notification{UserID: "u1", Title: "Reminder", Message: "Tech fest starts at 10", Type: "event_reminder", EventID: "e9"}
	require.NoError(t, repo.Create(ctx, n))
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "event_reminder", got.Type)
	assert.Equal(t, "e9", got.EventID)
}

func TestGormNotificationRepository_FindMissing(t *testing.T) {
	repo := NewGormNotificationRepository(newTestDB(t))

	got, err := repo.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}
