package fcm

import (
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"

	SoundDefault = "default"
)

// Platform is one platform-specific block of an outbound message.
// Implementations are AndroidConfig and APNSConfig.
type Platform interface {
	platform() string
	apply(m *messaging.Message)
}

// AndroidConfig carries the Android delivery options.
type AndroidConfig struct {
	Priority  string
	Sound     string
	ChannelID string
}

func (AndroidConfig) platform() string { return "android" }

func (a AndroidConfig) apply(m *messaging.Message) {
	m.Android = &messaging.AndroidConfig{
		Priority: a.Priority,
		Notification: &messaging.AndroidNotification{
			Sound:     a.Sound,
			ChannelID: a.ChannelID,
		},
	}
}

// APNSConfig carries the Apple delivery options. A nil Badge leaves the
// app icon badge untouched.
type APNSConfig struct {
	Sound string
	Badge *int
}

func (APNSConfig) platform() string { return "apns" }

func (a APNSConfig) apply(m *messaging.Message) {
	m.APNS = &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound: a.Sound,
				Badge: a.Badge,
			},
		},
	}
}

// Message is a validated outbound push message. It carries no target; the
// token or tokens are supplied at send time.
type Message struct {
	Title     string
	Body      string
	Data      map[string]string
	Platforms []Platform
}

var ErrEmptyTitle = errors.New("fcm: message title is empty")

// NewMessage validates and assembles a message. Each platform may appear
// at most once.
func NewMessage(title, body string, data map[string]string, platforms ...Platform) (*Message, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}
	for k := range data {
		if k == "" {
			return nil, errors.New("fcm: empty data key")
		}
	}

	seen := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		if seen[p.platform()] {
			return nil, fmt.Errorf("fcm: duplicate %s config", p.platform())
		}
		seen[p.platform()] = true

		if a, ok := p.(AndroidConfig); ok && a.Priority != PriorityHigh && a.Priority != PriorityNormal {
			return nil, fmt.Errorf("fcm: invalid android priority %q", a.Priority)
		}
	}

	return &Message{
		Title:     title,
		Body:      body,
		Data:      data,
		Platforms: platforms,
	}, nil
}

// ToMessaging converts m into the SDK message addressed to token.
func (m *Message) ToMessaging(token string) *messaging.Message {
	out := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		Data: m.Data,
	}
	for _, p := range m.Platforms {
		p.apply(out)
	}
	return out
}

// ToMulticast converts m into the SDK multicast message addressed to tokens.
func (m *Message) ToMulticast(tokens []string) *messaging.MulticastMessage {
	single := m.ToMessaging("")
	return &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: single.Notification,
		Data:         single.Data,
		Android:      single.Android,
		APNS:         single.APNS,
	}
}
