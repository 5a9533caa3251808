package domain

import "time"

const (
	DefaultType  = "general"
	DefaultTitle = "DIU Events"
)

// Notification is a notification intent addressed to one user. Records
// are immutable once created.
type Notification struct {
	ID         string    `json:"id" gorm:"primaryKey" firestore:"-"`
	UserID     string    `json:"userId" gorm:"index;not null" firestore:"userId"`
	Title      string    `json:"title" firestore:"title"`
	Message    string    `json:"message" firestore:"message"`
	Type       string    `json:"type" gorm:"default:general" firestore:"type,omitempty"`
	EventID    string    `json:"eventId,omitempty" firestore:"eventId,omitempty"`
	EventTitle string    `json:"eventTitle,omitempty" firestore:"eventTitle,omitempty"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index" firestore:"createdAt"`
}

func (Notification) TableName() string {
	return "user_notifications"
}

// CreateRequest is the input for recording a new notification.
type CreateRequest struct {
	UserID     string `json:"userId" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	EventID    string `json:"eventId"`
	EventTitle string `json:"eventTitle"`
}

// BulkRequest is the payload of sendBulkPushNotification. A nil UserIDs
// means the field was missing or not a list of strings.
type BulkRequest struct {
	UserIDs    []string
	Title      string
	Message    string
	Type       string
	EventID    string
	EventTitle string
}

// BulkResult is returned to the callable's caller.
type BulkResult struct {
	Success      bool   `json:"success"`
	SuccessCount *int   `json:"successCount,omitempty"`
	FailureCount *int   `json:"failureCount,omitempty"`
	Message      string `json:"message,omitempty"`
}

const (
	// ClickAction tells the Flutter client which handler opens the message.
	ClickAction = "FLUTTER_NOTIFICATION_CLICK"
	// AndroidChannelID is the notification channel registered by the app.
	AndroidChannelID = "diu_events_notifications"
)
