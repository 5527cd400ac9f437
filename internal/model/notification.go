package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification types
const (
	NotificationTypeClaimSubmitted = "claim_submitted"
	NotificationTypeStatusUpdate   = "status_update"
)

// Notification is an in-app message owned by the notification store
// after creation; its lifecycle ends when marked read.
type Notification struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	RecipientID    uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	Title          string     `json:"title" db:"title"`
	Message        string     `json:"message" db:"message"`
	Type           string     `json:"notification_type" db:"notification_type"`
	RelatedClaimID *uuid.UUID `json:"related_claim_id,omitempty" db:"related_claim_id"`
	Metadata       JSONMap    `json:"metadata" db:"metadata"`
	IsRead         bool       `json:"is_read" db:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	RecipientID uuid.UUID
	UnreadOnly  bool
	Pagination
}
