package trigger

import (
	"context"
	"sync"

	"diu-events-backend/internal/notification/domain"

	"go.uber.org/zap"
)

// InProcessPublisher dispatches created notifications on a goroutine in
// the same process. It is used when neither Pub/Sub nor the Firestore
// listener is configured.
type InProcessPublisher struct {
	dispatcher Dispatcher
	log        *zap.Logger
	wg         sync.WaitGroup
}

func NewInProcessPublisher(dispatcher Dispatcher, log *zap.Logger) *InProcessPublisher {
	return &InProcessPublisher{dispatcher: dispatcher, log: log}
}

// PublishCreated schedules the dispatch and returns immediately. The
// dispatch outlives the request that created the record.
func (p *InProcessPublisher) PublishCreated(ctx context.Context, n *domain.Notification) error {
	record := *n
	dctx := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		dispatch(dctx, p.dispatcher, &record, p.log)
	}()
	return nil
}

// Wait blocks until every scheduled dispatch has finished.
func (p *InProcessPublisher) Wait() {
	p.wg.Wait()
}
