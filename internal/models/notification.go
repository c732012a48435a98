package models

import (
	"encoding/json"
	"time"
)

// NotificationType classifies inbox rows.
type NotificationType string

const (
	NotificationTypeRequestSubmitted NotificationType = "training_request_submitted"
	NotificationTypeStatusChanged    NotificationType = "training_request_status"
	NotificationTypeTrainerAssigned  NotificationType = "trainer_assigned"
	NotificationTypeRequestRejected  NotificationType = "training_request_rejected"
	NotificationTypeRequestCompleted NotificationType = "training_request_completed"
)

// Notification is one inbox row for a single user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Type      NotificationType `db:"type" json:"type"`
	Data      json.RawMessage  `db:"data" json:"data,omitempty"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter narrows inbox queries.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
