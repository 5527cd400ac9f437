package model

import (
	"errors"
	"fmt"
)

// Deny reasons recorded on refused transition attempts.
const (
	DenyReasonTerminalState = "terminal_state"
	DenyReasonNoOp          = "no_op_transition"
	DenyReasonForbidden     = "forbidden_transition"
)

// Domain errors
var (
	ErrClaimNotFound              = errors.New("claim not found")
	ErrClaimAccessDenied          = errors.New("access to claim denied")
	ErrClaimTerminal              = errors.New("claim is in a terminal state")
	ErrClaimNotAcceptingDocuments = errors.New("claim no longer accepts documents")
	ErrExtractedDataFrozen        = errors.New("extracted data can no longer be modified")
	ErrConcurrentModification     = errors.New("claim was modified concurrently, reload and retry")
	ErrNotificationNotFound       = errors.New("notification not found")
	ErrUserNotFound               = errors.New("user not found")
)

// TransitionDeniedError is returned when the state machine refuses a
// requested transition. Reason is one of the deny reason constants.
type TransitionDeniedError struct {
	From   ClaimStatus
	To     ClaimStatus
	Role   Role
	Reason string
}

func (e *TransitionDeniedError) Error() string {
	return fmt.Sprintf("transition %s -> %s denied for role %s: %s", e.From, e.To, e.Role, e.Reason)
}

// PersistenceError wraps a storage failure during a lifecycle operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AuditWriteError reports a failed audit append. Committed marks the
// critical case where the state change already persisted but its audit
// record did not; it must never be folded into a generic persistence
// failure.
type AuditWriteError struct {
	Committed bool
	Err       error
}

func (e *AuditWriteError) Error() string {
	if e.Committed {
		return fmt.Sprintf("audit write failed after commit: %v", e.Err)
	}
	return fmt.Sprintf("audit write failed: %v", e.Err)
}

func (e *AuditWriteError) Unwrap() error { return e.Err }
