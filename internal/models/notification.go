package models

import "time"

type NotificationKind string

const (
	NotificationError   NotificationKind = "error"
	NotificationSuccess NotificationKind = "success"
)

type Notification struct {
	Seq       uint64           `json:"seq"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	ShownAt   time.Time        `json:"shown_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// NotificationEvent is published on every show and clear.
// Notification is nil for a clear.
type NotificationEvent struct {
	Type         string        `json:"type"` // show|clear
	Notification *Notification `json:"notification,omitempty"`
}
