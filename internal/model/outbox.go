package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusRetry     OutboxStatus = "retry"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Outbox event types
const (
	EventTypeClaimCreated        = "CLAIM_CREATED"
	EventTypeClaimStatusChanged  = "CLAIM_STATUS_CHANGED"
	EventTypeNotificationCreated = "NOTIFICATION_CREATED"
)

// OutboxEvent is one row of the transactional outbox. The worker drains
// pending rows and publishes them to the message broker.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// NotificationCreatedPayload is the outbox payload for new notifications.
type NotificationCreatedPayload struct {
	NotificationID uuid.UUID  `json:"notification_id"`
	RecipientID    uuid.UUID  `json:"recipient_id"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Type           string     `json:"notification_type"`
	RelatedClaimID *uuid.UUID `json:"related_claim_id,omitempty"`
}

// ClaimStatusChangedPayload is the outbox payload for committed transitions.
type ClaimStatusChangedPayload struct {
	ClaimID     uuid.UUID   `json:"claim_id"`
	ClaimNumber string      `json:"claim_number"`
	FromStatus  ClaimStatus `json:"from_status"`
	ToStatus    ClaimStatus `json:"to_status"`
	ActorID     uuid.UUID   `json:"actor_id"`
	ActorRole   Role        `json:"actor_role"`
	ChangedAt   time.Time   `json:"changed_at"`
}

// ClaimCreatedPayload is the outbox payload for newly submitted claims.
type ClaimCreatedPayload struct {
	ClaimID     uuid.UUID `json:"claim_id"`
	ClaimNumber string    `json:"claim_number"`
	PatientID   uuid.UUID `json:"patient_id"`
	CreatedAt   time.Time `json:"created_at"`
}
