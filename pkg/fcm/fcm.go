package fcm

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// MaxMulticastTokens is the provider's per-call token limit.
const MaxMulticastTokens = 500

// messagingAPI is the subset of *messaging.Client used here.
type messagingAPI interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient messagingAPI
	log             *zap.Logger
}

// NewClient creates a new FCM client from an initialized Firebase app
func NewClient(ctx context.Context, app *firebase.App, log *zap.Logger) (*Client, error) {
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Info("client initialized")
	return &Client{
		messagingClient: messagingClient,
		log:             log,
	}, nil
}

// ErrInvalidToken marks a send rejected because the target token is no
// longer registered with the provider.
var ErrInvalidToken = errors.New("fcm: registration token is not registered")

// MulticastResult is the aggregated outcome of a multicast send.
type MulticastResult struct {
	SuccessCount int
	FailureCount int
	// InvalidTokens are tokens the provider reported as unregistered;
	// their owners should drop them.
	InvalidTokens []string
}

// Send sends msg to a single device token and returns the provider
// message ID.
func (c *Client) Send(ctx context.Context, token string, msg *Message) (string, error) {
	response, err := c.messagingClient.Send(ctx, msg.ToMessaging(token))
	if err != nil {
		if messaging.IsUnregistered(err) {
			return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return "", fmt.Errorf("failed to send FCM message: %w", err)
	}

	c.log.Debug("message sent", zap.String("message_id", response))
	return response, nil
}

// SendMulticast sends msg to every token. Token lists above the provider
// limit are split into consecutive calls and the counts summed. A call
// that fails counts all of its tokens as failures and the remaining calls
// still run; the result is returned together with the joined errors.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, msg *Message) (*MulticastResult, error) {
	result := &MulticastResult{}
	if len(tokens) == 0 {
		return result, nil
	}

	var errs []error
	for start := 0; start < len(tokens); start += MaxMulticastTokens {
		end := min(start+MaxMulticastTokens, len(tokens))
		chunk := tokens[start:end]

		response, err := c.messagingClient.SendEachForMulticast(ctx, msg.ToMulticast(chunk))
		if err != nil {
			result.FailureCount += len(chunk)
			errs = append(errs, fmt.Errorf("failed to send FCM multicast message to tokens %d-%d: %w", start, end-1, err))
			continue
		}

		result.SuccessCount += response.SuccessCount
		result.FailureCount += response.FailureCount

		for i, resp := range response.Responses {
			if resp.Success || i >= len(chunk) {
				continue
			}
			if messaging.IsUnregistered(resp.Error) {
				result.InvalidTokens = append(result.InvalidTokens, chunk[i])
			}
			c.log.Debug("multicast delivery failed", zap.String("token", redact(chunk[i])), zap.Error(resp.Error))
		}
	}

	c.log.Info("multicast sent",
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount),
		zap.Int("failed_calls", len(errs)),
	)
	return result, errors.Join(errs...)
}

func redact(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
