package claim

import (
	"github.com/medifast/claims-api/internal/model"
)

// StateMachine decides whether a requested transition is legal and, in a
// separate step, applies an allowed one. Evaluate never mutates the claim;
// Apply is the only place a claim's status changes.
type StateMachine struct {
	matrix *PermissionMatrix
}

func NewStateMachine(matrix *PermissionMatrix) *StateMachine {
	return &StateMachine{matrix: matrix}
}

// Evaluate checks a requested transition against the claim's current
// state. Deny reasons, in precedence order:
//  1. the claim is terminal
//  2. the request is a no-op (re-requesting the current status would
//     duplicate history entries and notifications, so it is refused
//     rather than silently accepted)
//  3. the permission table does not authorize the edge for this role
func (sm *StateMachine) Evaluate(claim *model.Claim, actorRole model.Role, requested model.ClaimStatus) (bool, string) {
	if claim.Status.IsTerminal() {
		return false, model.DenyReasonTerminalState
	}
	if requested == claim.Status {
		return false, model.DenyReasonNoOp
	}
	if !sm.matrix.IsAllowed(claim.Status, requested, actorRole) {
		return false, model.DenyReasonForbidden
	}
	return true, ""
}

// Apply appends the history entry and advances the claim's status and
// timestamp. Callers must only invoke it after Evaluate allowed the
// transition described by t.
func (sm *StateMachine) Apply(claim *model.Claim, t *model.Transition) {
	claim.StatusHistory = append(claim.StatusHistory, model.StatusHistoryEntry{
		Status:        t.To,
		UpdatedBy:     t.ActorID,
		UpdatedByRole: t.ActorRole,
		Timestamp:     t.At,
		Notes:         t.Notes,
	})
	claim.Status = t.To
	claim.UpdatedAt = t.At
}
