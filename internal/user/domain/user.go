package domain

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
	RoleUser       Role = "user"
)

// User is the part of a user profile the push workflow reads and writes.
// FCMToken and FCMTokenUpdatedAt are written and cleared together.
type User struct {
	ID                string     `json:"id" gorm:"primaryKey" firestore:"-"`
	Role              Role       `json:"role" gorm:"index" firestore:"role,omitempty"`
	FCMToken          *string    `json:"-" gorm:"index" firestore:"fcmToken,omitempty"`
	FCMTokenUpdatedAt *time.Time `json:"fcm_token_updated_at,omitempty" firestore:"fcmTokenUpdatedAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// HasToken reports whether the user has a non-empty push token.
func (u *User) HasToken() bool {
	return u.FCMToken != nil && *u.FCMToken != ""
}

// IsAdmin reports whether the user may send bulk notifications. Only the
// exact "admin" role qualifies; superadmins do not.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// TokenStale reports whether the token was last refreshed before cutoff.
// Users without a refresh time are never stale.
func (u *User) TokenStale(cutoff time.Time) bool {
	return u.HasToken() && u.FCMTokenUpdatedAt != nil && u.FCMTokenUpdatedAt.Before(cutoff)
}
