package repository

import (
	"context"
	"fmt"
	"time"

	"diu-events-backend/internal/user/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxTransactionWrites is Firestore's per-transaction write limit.
const maxTransactionWrites = 500

var clearedTokenUpdates = []firestore.Update{
	{Path: "fcmToken", Value: firestore.Delete},
	{Path: "fcmTokenUpdatedAt", Value: firestore.Delete},
}

type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository reads and writes the users collection the
// mobile app already maintains.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection(UsersCollection)
}

func decodeUser(snap *firestore.DocumentSnapshot) (*domain.User, error) {
	var user domain.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", snap.Ref.ID, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}

func (r *firestoreUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, nil
	}
	snap, err := r.users().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeUser(snap)
}

func (r *firestoreUserRepository) ListWithToken(ctx context.Context) ([]domain.User, error) {
	iter := r.users().Where("fcmToken", "!=", nil).Documents(ctx)
	defer iter.Stop()

	var users []domain.User
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		user, err := decodeUser(snap)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func (r *firestoreUserRepository) SaveToken(ctx context.Context, userID, token string, at time.Time) error {
	_, err := r.users().Doc(userID).Set(ctx, map[string]interface{}{
		"fcmToken":          token,
		"fcmTokenUpdatedAt": at,
	}, firestore.MergeAll)
	return err
}

func (r *firestoreUserRepository) ClearToken(ctx context.Context, userID string) error {
	_, err := r.users().Doc(userID).Update(ctx, clearedTokenUpdates)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (r *firestoreUserRepository) ClearTokenByValue(ctx context.Context, token string) error {
	iter := r.users().Where("fcmToken", "==", token).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := snap.Ref.Update(ctx, clearedTokenUpdates); err != nil && status.Code(err) != codes.NotFound {
			return err
		}
	}
}

// ClearStaleTokens re-reads every user inside a transaction and only clears
// tokens that are still older than cutoff, so a token refreshed after the
// scan survives. Batches above the transaction write limit are committed
// in consecutive transactions.
func (r *firestoreUserRepository) ClearStaleTokens(ctx context.Context, userIDs []string, cutoff time.Time) (int, error) {
	total := 0
	for start := 0; start < len(userIDs); start += maxTransactionWrites {
		end := min(start+maxTransactionWrites, len(userIDs))

		refs := make([]*firestore.DocumentRef, 0, end-start)
		for _, id := range userIDs[start:end] {
			refs = append(refs, r.users().Doc(id))
		}

		cleared := 0
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			cleared = 0
			snaps, err := tx.GetAll(refs)
			if err != nil {
				return err
			}
			for _, snap := range snaps {
				if !snap.Exists() {
					continue
				}
				user, err := decodeUser(snap)
				if err != nil {
					return err
				}
				if !user.TokenStale(cutoff) {
					continue
				}
				if err := tx.Update(snap.Ref, clearedTokenUpdates); err != nil {
					return err
				}
				cleared++
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("clear stale tokens: %w", err)
		}
		total += cleared
	}
	return total, nil
}
