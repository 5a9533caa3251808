package domain

import (
	"slices"
	"time"
)

// ListenerCheckpoint marks how far the snapshot listener has dispatched:
// every record created before At, plus the records created exactly at At
// whose IDs are listed.
type ListenerCheckpoint struct {
	At  time.Time `firestore:"at"`
	IDs []string  `firestore:"ids"`
}

// Covers reports whether n was already dispatched.
func (c *ListenerCheckpoint) Covers(n *Notification) bool {
	if n.CreatedAt.Before(c.At) {
		return true
	}
	return n.CreatedAt.Equal(c.At) && slices.Contains(c.IDs, n.ID)
}

// Advance records n as dispatched. Records older than At are ignored.
func (c *ListenerCheckpoint) Advance(n *Notification) {
	switch {
	case n.CreatedAt.After(c.At):
		c.At = n.CreatedAt
		c.IDs = []string{n.ID}
	case n.CreatedAt.Equal(c.At) && !slices.Contains(c.IDs, n.ID):
		c.IDs = append(c.IDs, n.ID)
	}
}
