package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction classifies an audited transition attempt.
type AuditAction string

const (
	AuditActionAttempt AuditAction = "ATTEMPT"
	AuditActionSuccess AuditAction = "SUCCESS"
	AuditActionDeny    AuditAction = "DENY"
)

// AuditLogEntry is one immutable record of an attempted transition.
// Entries for a claim are strictly ordered by CreatedAt; the recorder
// guarantees monotonic timestamps per claim.
type AuditLogEntry struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	ClaimID    uuid.UUID   `json:"claim_id" db:"claim_id"`
	ActorID    uuid.UUID   `json:"actor_id" db:"actor_id"`
	ActorRole  Role        `json:"actor_role" db:"actor_role"`
	Action     AuditAction `json:"action" db:"action"`
	FromStatus ClaimStatus `json:"from_status" db:"from_status"`
	ToStatus   ClaimStatus `json:"to_status" db:"to_status"`
	Reason     string      `json:"reason,omitempty" db:"reason"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	ClaimID uuid.UUID
	ActorID uuid.UUID
	Action  AuditAction
	Pagination
}
