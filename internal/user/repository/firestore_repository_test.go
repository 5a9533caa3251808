package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"diu-events-backend/internal/user/repository"
	"diu-events-backend/internal/user/usecase"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newEmulatorClient connects to the Firestore emulator under a project ID
// of its own, so every test starts from an empty database.
func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), fmt.Sprintf("demo-users-%d", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func seedUser(t *testing.T, client *firestore.Client, id string, data map[string]interface{}) {
	t.Helper()
	_, err := client.Collection(repository.UsersCollection).Doc(id).Set(context.Background(), data)
	require.NoError(t, err)
}

func tokenFields(t *testing.T, client *firestore.Client, id string) map[string]interface{} {
	t.Helper()
	snap, err := client.Collection(repository.UsersCollection).Doc(id).Get(context.Background())
	require.NoError(t, err)
	fields := map[string]interface{}{}
	for _, key := range []string{"fcmToken", "fcmTokenUpdatedAt"} {
		if v, ok := snap.Data()[key]; ok {
			fields[key] = v
		}
	}
	return fields
}

var sweepAt = time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

func newReaper(repo repository.UserRepository) usecase.Reaper {
	return usecase.NewTokenReaper(repo, func() time.Duration { return usecase.DefaultTokenMaxAge }, zap.NewNop())
}

func TestFirestoreUserRepository_FindAndSaveToken(t *testing.T) {
	client := newEmulatorClient(t)
	repo := repository.NewFirestoreUserRepository(client)
	ctx := context.Background()

	seedUser(t, client, "u1", map[string]interface{}{"role": "admin", "displayName": "Lan"})

	missing, err := repo.FindByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.SaveToken(ctx, "u1", "tok-1", sweepAt))
	user, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, user.IsAdmin(), "role kept by merge")
	require.True(t, user.HasToken())
	assert.Equal(t, "tok-1", *user.FCMToken)
	assert.True(t, sweepAt.Equal(*user.FCMTokenUpdatedAt))

	snap, err := client.Collection(repository.UsersCollection).Doc("u1").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lan", snap.Data()["displayName"], "profile fields untouched")

	require.NoError(t, repo.ClearToken(ctx, "u1"))
	assert.Empty(t, tokenFields(t, client, "u1"))
	require.NoError(t, repo.ClearToken(ctx, "nobody"))
}

func TestFirestoreUserRepository_ListWithToken(t *testing.T) {
	client := newEmulatorClient(t)
	repo := repository.NewFirestoreUserRepository(client)

	seedUser(t, client, "with", map[string]interface{}{"fcmToken": "tok-1", "fcmTokenUpdatedAt": sweepAt})
	seedUser(t, client, "without", map[string]interface{}{"role": "user"})
	seedUser(t, client, "null", map[string]interface{}{"fcmToken": nil})
	seedUser(t, client, "no-time", map[string]interface{}{"fcmToken": "tok-2"})

	users, err := repo.ListWithToken(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{"with", "no-time"}, ids)
}

func TestFirestoreUserRepository_ClearTokenByValue(t *testing.T) {
	client := newEmulatorClient(t)
	repo := repository.NewFirestoreUserRepository(client)

	seedUser(t, client, "a", map[string]interface{}{"fcmToken": "shared", "fcmTokenUpdatedAt": sweepAt})
	seedUser(t, client, "b", map[string]interface{}{"fcmToken": "shared", "fcmTokenUpdatedAt": sweepAt})
	seedUser(t, client, "c", map[string]interface{}{"fcmToken": "other", "fcmTokenUpdatedAt": sweepAt})

	require.NoError(t, repo.ClearTokenByValue(context.Background(), "shared"))
	require.NoError(t, repo.ClearTokenByValue(context.Background(), "unknown"))

	assert.Empty(t, tokenFields(t, client, "a"))
	assert.Empty(t, tokenFields(t, client, "b"))
	assert.Equal(t, "other", tokenFields(t, client, "c")["fcmToken"])
}

func TestTokenReaper_FirestoreBoundary(t *testing.T) {
	client := newEmulatorClient(t)
	repo := repository.NewFirestoreUserRepository(client)
	cutoff := sweepAt.Add(-usecase.DefaultTokenMaxAge)

	seedUser(t, client, "stale", map[string]interface{}{"role": "user", "fcmToken": "t-stale", "fcmTokenUpdatedAt": cutoff.Add(-time.Second)})
	seedUser(t, client, "exact", map[string]interface{}{"fcmToken": "t-exact", "fcmTokenUpdatedAt": cutoff})
	seedUser(t, client, "fresh", map[string]interface{}{"fcmToken": "t-fresh", "fcmTokenUpdatedAt": cutoff.Add(time.Second)})
	seedUser(t, client, "no-time", map[string]interface{}{"fcmToken": "t-none"})

	reaper := newReaper(repo)

	cleared, err := reaper.Sweep(context.Background(), sweepAt)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	assert.Empty(t, tokenFields(t, client, "stale"))
	stale, err := repo.FindByID(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, "user", string(stale.Role))
	for _, id := range []string{"exact", "fresh", "no-time"} {
		assert.NotEmpty(t, tokenFields(t, client, id)["fcmToken"], id)
	}

	cleared, err = reaper.Sweep(context.Background(), sweepAt)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}

func TestFirestoreUserRepository_ClearStaleTokensKeepsRefreshed(t *testing.T) {
	client := newEmulatorClient(t)
	repo := repository.NewFirestoreUserRepository(client)
	ctx := context.Background()
	cutoff := sweepAt.Add(-usecase.DefaultTokenMaxAge)
	old := cutoff.Add(-24 * time.Hour)

	seedUser(t, client, "stale", map[string]interface{}{"fcmToken": "t1", "fcmTokenUpdatedAt": old})
	seedUser(t, client, "refreshed", map[string]interface{}{"fcmToken": "t2", "fcmTokenUpdatedAt": old})

	users, err := repo.ListWithToken(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// The app refreshes its token after the scan read it as stale.
	require.NoError(t, repo.SaveToken(ctx, "refreshed", "t2-new", sweepAt))

	cleared, err := repo.ClearStaleTokens(ctx, []string{"stale", "refreshed", "deleted"}, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
	assert.Empty(t, tokenFields(t, client, "stale"))
	assert.Equal(t, "t2-new", tokenFields(t, client, "refreshed")["fcmToken"])
}

func TestTokenReaper_FirestoreAboveTransactionLimit(t *testing.T) {
	client := newEmulatorClient(t)
	repo := repository.NewFirestoreUserRepository(client)
	ctx := context.Background()
	old := sweepAt.Add(-usecase.DefaultTokenMaxAge - time.Hour)

	const n = 520
	bw := client.BulkWriter(ctx)
	for i := range n {
		ref := client.Collection(repository.UsersCollection).Doc(fmt.Sprintf("user-%03d", i))
		_, err := bw.Set(ref, map[string]interface{}{"fcmToken": fmt.Sprintf("tok-%03d", i), "fcmTokenUpdatedAt": old})
		require.NoError(t, err)
	}
	bw.End()

	reaper := newReaper(repo)

	cleared, err := reaper.Sweep(ctx, sweepAt)
	require.NoError(t, err)
	assert.Equal(t, n, cleared)

	left, err := repo.ListWithToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)

	cleared, err = reaper.Sweep(ctx, sweepAt)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}
