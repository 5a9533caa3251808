package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"diu-events-backend/internal/notification/domain"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// CreatedEvent is the Pub/Sub payload announcing a new record.
type CreatedEvent struct {
	NotificationID string `json:"notificationId"`
}

// NewPubSubClient creates a Pub/Sub client, using credentialsFile when set
// and application default credentials otherwise.
func NewPubSubClient(ctx context.Context, projectID, credentialsFile string) (*pubsub.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return client, nil
}

// PubSubPublisher announces created records on a topic.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

func NewPubSubPublisher(client *pubsub.Client, topicName string) *PubSubPublisher {
	return &PubSubPublisher{topic: client.Topic(topicName)}
}

// PublishCreated publishes the record ID and waits for the server ack.
func (p *PubSubPublisher) PublishCreated(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(CreatedEvent{NotificationID: n.ID})
	if err != nil {
		return err
	}
	if _, err := p.topic.Publish(ctx, &pubsub.Message{Data: data}).Get(ctx); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	return nil
}

// Stop flushes pending publishes.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}

// Subscriber receives CreatedEvents and dispatches the referenced record
type Subscriber struct {
	client        *pubsub.Client
	notifications NotificationLoader
	dispatcher    Dispatcher
	log           *zap.Logger
	topicName     string
	subName       string
}

func NewSubscriber(client *pubsub.Client, topicName string, notifications NotificationLoader, dispatcher Dispatcher, log *zap.Logger) *Subscriber {
	return &Subscriber{
		client:        client,
		notifications: notifications,
		dispatcher:    dispatcher,
		log:           log,
		topicName:     topicName,
		subName:       topicName + "-sub",
	}
}

// Start ensures the subscription exists and receives until ctx is done.
func (s *Subscriber) Start(ctx context.Context) error {
	s.log.Info("starting notification subscriber", zap.String("topic", s.topicName), zap.String("subscription", s.subName))

	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", s.subName, err)
	}

	if !exists {
		topic := s.client.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("check topic %s: %w", s.topicName, err)
		}
		if !topicExists {
			if topic, err = s.client.CreateTopic(ctx, s.topicName); err != nil {
				return fmt.Errorf("create topic %s: %w", s.topicName, err)
			}
			s.log.Info("created topic", zap.String("topic", s.topicName))
		}

		sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("create subscription %s: %w", s.subName, err)
		}
		s.log.Info("created subscription", zap.String("subscription", s.subName))
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		// Acked whatever the outcome: a failed dispatch is not retried.
		defer msg.Ack()
		s.handleMessage(ctx, msg.Data)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("receive on %s: %w", s.subName, err)
	}
	return nil
}

func (s *Subscriber) handleMessage(ctx context.Context, data []byte) {
	var event CreatedEvent
	if err := json.Unmarshal(data, &event); err != nil || event.NotificationID == "" {
		s.log.Warn("ignoring malformed notification event", zap.ByteString("data", data), zap.Error(err))
		return
	}

	n, err := s.notifications.FindByID(ctx, event.NotificationID)
	if err != nil {
		s.log.Error("error loading notification", zap.String("notification_id", event.NotificationID), zap.Error(err))
		return
	}
	if n == nil {
		s.log.Warn("notification not found", zap.String("notification_id", event.NotificationID))
		return
	}

	dispatch(ctx, s.dispatcher, n, s.log)
}
