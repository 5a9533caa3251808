package trigger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"diu-events-backend/internal/notification/domain"
	"diu-events-backend/internal/notification/repository"
	"diu-events-backend/pkg/retry"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// CheckpointStore persists how far the listener has dispatched. Load
// returns nil, nil when nothing was saved yet.
type CheckpointStore interface {
	Load(ctx context.Context) (*domain.ListenerCheckpoint, error)
	Save(ctx context.Context, cp domain.ListenerCheckpoint) error
}

// NotificationStream yields batches of added records in creation order.
type NotificationStream interface {
	Next() ([]*domain.Notification, error)
	Stop()
}

// NotificationSource opens a stream of records created at or after since.
type NotificationSource interface {
	Added(ctx context.Context, since time.Time) NotificationStream
}

var errStreamEnded = errors.New("notification stream ended")

// FirestoreListener watches user_notifications and dispatches each record
// once. It resumes from a persisted checkpoint, so records created while
// the service was down are dispatched on the next start.
type FirestoreListener struct {
	source      NotificationSource
	checkpoints CheckpointStore
	dispatcher  Dispatcher
	log         *zap.Logger
	backoff     retry.Backoff
	now         func() time.Time

	cp *domain.ListenerCheckpoint
}

func NewFirestoreListener(client *firestore.Client, checkpoints CheckpointStore, dispatcher Dispatcher, log *zap.Logger) *FirestoreListener {
	return newListener(&firestoreSource{client: client, log: log}, checkpoints, dispatcher, log)
}

func newListener(source NotificationSource, checkpoints CheckpointStore, dispatcher Dispatcher, log *zap.Logger) *FirestoreListener {
	return &FirestoreListener{
		source:      source,
		checkpoints: checkpoints,
		dispatcher:  dispatcher,
		log:         log,
		backoff:     retry.ExpoJitter{Base: time.Second, Max: 30 * time.Second, Jitter: 0.2},
		now:         time.Now,
	}
}

// Start listens until ctx is done, reopening the snapshot stream with
// backoff whenever it fails. It returns nil once ctx is done.
func (l *FirestoreListener) Start(ctx context.Context) error {
	err := retry.Do(ctx, func() error { return l.listen(ctx) }, retry.Policy{
		Name:    "firestore_listener",
		Backoff: l.backoff,
		OnAttempt: func(attempt int, err error) {
			l.log.Warn("notification listener interrupted, restarting", zap.Int("attempt", attempt+1), zap.Error(err))
		},
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (l *FirestoreListener) listen(ctx context.Context) error {
	if l.cp == nil {
		cp, err := l.checkpoints.Load(ctx)
		if err != nil {
			return err
		}
		if cp == nil {
			// First run: nothing before now is dispatched.
			cp = &domain.ListenerCheckpoint{At: l.now().UTC().Truncate(time.Microsecond)}
			if err := l.checkpoints.Save(ctx, *cp); err != nil {
				return err
			}
		}
		l.cp = cp
	}

	l.log.Info("listening for notifications",
		zap.String("collection", repository.NotificationsCollection),
		zap.Time("since", l.cp.At),
		zap.Int("dispatched_at_since", len(l.cp.IDs)))

	stream := l.source.Added(ctx, l.cp.At)
	defer stream.Stop()

	for {
		batch, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, iterator.Done) {
				return errStreamEnded
			}
			return fmt.Errorf("notification snapshots: %w", err)
		}

		for _, n := range batch {
			if l.cp.Covers(n) {
				continue
			}
			dispatch(ctx, l.dispatcher, n, l.log)
			l.cp.Advance(n)
			if err := l.checkpoints.Save(ctx, *l.cp); err != nil {
				l.log.Warn("error saving listener checkpoint", zap.String("notification_id", n.ID), zap.Error(err))
			}
		}
	}
}

type firestoreSource struct {
	client *firestore.Client
	log    *zap.Logger
}

func (s *firestoreSource) Added(ctx context.Context, since time.Time) NotificationStream {
	it := s.client.Collection(repository.NotificationsCollection).
		Where("createdAt", ">=", since).
		OrderBy("createdAt", firestore.Asc).
		Snapshots(ctx)
	return &firestoreStream{it: it, log: s.log}
}

type firestoreStream struct {
	it  *firestore.QuerySnapshotIterator
	log *zap.Logger
}

func (s *firestoreStream) Next() ([]*domain.Notification, error) {
	snap, err := s.it.Next()
	if err != nil {
		return nil, err
	}

	var batch []*domain.Notification
	for _, change := range snap.Changes {
		if change.Kind != firestore.DocumentAdded {
			continue
		}
		n, err := repository.DecodeNotification(change.Doc)
		if err != nil {
			s.log.Error("error decoding notification", zap.Error(err))
			continue
		}
		batch = append(batch, n)
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].CreatedAt.Before(batch[j].CreatedAt)
	})
	return batch, nil
}

func (s *firestoreStream) Stop() {
	s.it.Stop()
}
