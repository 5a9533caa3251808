package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"diu-events-backend/internal/notification/domain"
	"diu-events-backend/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// scriptedStream replays its batches, then fails with err or, when err is
// nil, blocks until the listen context ends.
type scriptedStream struct {
	ctx     context.Context
	batches [][]*domain.Notification
	err     error
}

func (s *scriptedStream) Next() ([]*domain.Notification, error) {
	if len(s.batches) > 0 {
		b := s.batches[0]
		s.batches = s.batches[1:]
		return b, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	<-s.ctx.Done()
	return nil, s.ctx.Err()
}

func (s *scriptedStream) Stop() {}

type scriptedSource struct {
	mu      sync.Mutex
	streams []*scriptedStream
	sinces  []time.Time
}

func (s *scriptedSource) Added(ctx context.Context, since time.Time) NotificationStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinces = append(s.sinces, since)
	stream := &scriptedStream{}
	if len(s.streams) > 0 {
		stream = s.streams[0]
		s.streams = s.streams[1:]
	}
	stream.ctx = ctx
	return stream
}

func (s *scriptedSource) opened() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.sinces...)
}

type memCheckpoints struct {
	mu      sync.Mutex
	current *domain.ListenerCheckpoint
	saved   []domain.ListenerCheckpoint
	loadErr error
}

func (m *memCheckpoints) Load(context.Context) (*domain.ListenerCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		err := m.loadErr
		m.loadErr = nil
		return nil, err
	}
	if m.current == nil {
		return nil, nil
	}
	cp := *m.current
	cp.IDs = append([]string(nil), m.current.IDs...)
	return &cp, nil
}

func (m *memCheckpoints) Save(_ context.Context, cp domain.ListenerCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp.IDs = append([]string(nil), cp.IDs...)
	m.current = &cp
	m.saved = append(m.saved, cp)
	return nil
}

func (m *memCheckpoints) last() domain.ListenerCheckpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.current
}

var listenStart = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func record(id string, offset time.Duration) *domain.Notification {
	return &domain.Notification{ID: id, UserID: "u-" + id, CreatedAt: listenStart.Add(offset)}
}

func newTestListener(source NotificationSource, checkpoints CheckpointStore, d Dispatcher) *FirestoreListener {
	l := newListener(source, checkpoints, d, zap.NewNop())
	l.backoff = retry.ExpoJitter{Base: time.Millisecond, Max: 5 * time.Millisecond}
	l.now = func() time.Time { return listenStart }
	return l
}

func runListener(t *testing.T, l *FirestoreListener) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("listener did not stop")
		}
	}
}

func TestFirestoreListener_RestartsAfterStreamError(t *testing.T) {
	source := &scriptedSource{streams: []*scriptedStream{
		{
			batches: [][]*domain.Notification{{record("n1", time.Second), record("n2", 2*time.Second)}},
			err:     status.Error(codes.PermissionDenied, "rules changed"),
		},
		{err: status.Error(codes.Unavailable, "connection reset")},
		{batches: [][]*domain.Notification{{record("n2", 2*time.Second), record("n3", 3*time.Second)}}},
	}}
	checkpoints := &memCheckpoints{}
	d := &recordingDispatcher{outcome: domain.Sent("m")}

	stop := runListener(t, newTestListener(source, checkpoints, d))
	require.Eventually(t, func() bool { return len(d.ids()) == 3 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []string{"n1", "n2", "n3"}, d.ids())
	assert.Equal(t, []time.Time{listenStart, listenStart.Add(2 * time.Second), listenStart.Add(2 * time.Second)}, source.opened()[:3])

	assert.Equal(t, domain.ListenerCheckpoint{At: listenStart}, checkpoints.saved[0])
	assert.Equal(t, domain.ListenerCheckpoint{At: listenStart.Add(3 * time.Second), IDs: []string{"n3"}}, checkpoints.last())
}

func TestFirestoreListener_ResumesFromSavedCheckpoint(t *testing.T) {
	resumeAt := listenStart.Add(-time.Hour)
	checkpoints := &memCheckpoints{current: &domain.ListenerCheckpoint{At: resumeAt, IDs: []string{"done"}}}
	source := &scriptedSource{streams: []*scriptedStream{{
		batches: [][]*domain.Notification{{
			{ID: "done", CreatedAt: resumeAt},
			{ID: "twin", CreatedAt: resumeAt},
			{ID: "stale", CreatedAt: resumeAt.Add(-time.Minute)},
			{ID: "while-down", CreatedAt: resumeAt.Add(30 * time.Minute)},
		}},
	}}}
	d := &recordingDispatcher{outcome: domain.NoToken()}

	stop := runListener(t, newTestListener(source, checkpoints, d))
	require.Eventually(t, func() bool { return len(d.ids()) == 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []string{"twin", "while-down"}, d.ids())
	assert.Equal(t, resumeAt, source.opened()[0])
	assert.Equal(t, []string{"while-down"}, checkpoints.last().IDs)
}

func TestFirestoreListener_RetriesCheckpointLoad(t *testing.T) {
	checkpoints := &memCheckpoints{loadErr: errors.New("deadline exceeded")}
	source := &scriptedSource{streams: []*scriptedStream{{
		batches: [][]*domain.Notification{{record("n1", time.Second)}},
	}}}
	d := &recordingDispatcher{outcome: domain.Sent("m")}

	stop := runListener(t, newTestListener(source, checkpoints, d))
	require.Eventually(t, func() bool { return len(d.ids()) == 1 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, listenStart, source.opened()[0])
}

func TestFirestoreListener_StopsWithContext(t *testing.T) {
	source := &scriptedSource{}
	l := newTestListener(source, &memCheckpoints{}, &recordingDispatcher{})

	stop := runListener(t, l)
	require.Eventually(t, func() bool { return len(source.opened()) == 1 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Len(t, source.opened(), 1)
}
