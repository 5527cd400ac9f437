package claim

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/medifast/claims-api/internal/model"
)

func newTestClaim(status model.ClaimStatus) *model.Claim {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return &model.Claim{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClaimNumber: "CLM-20250310-AB12CD34",
		PatientID:   uuid.New(),
		Status:      status,
		StatusHistory: model.StatusHistory{{
			Status:        model.ClaimStatusSubmitted,
			UpdatedByRole: model.RolePatient,
			Timestamp:     now,
			Notes:         submittedNote,
		}},
		Version: 1,
	}
}

func TestEvaluateAllowsLegalTransition(t *testing.T) {
	sm := NewStateMachine(NewPermissionMatrix())

	allow, reason := sm.Evaluate(newTestClaim(model.ClaimStatusSubmitted), model.RoleHospital, model.ClaimStatusInReview)
	assert.True(t, allow)
	assert.Empty(t, reason)
}

func TestEvaluateTerminalBeatsEverything(t *testing.T) {
	sm := NewStateMachine(NewPermissionMatrix())

	for _, status := range []model.ClaimStatus{model.ClaimStatusRejected, model.ClaimStatusCompleted} {
		for _, role := range model.AllRoles {
			claim := newTestClaim(status)

			allow, reason := sm.Evaluate(claim, role, model.ClaimStatusInReview)
			assert.False(t, allow)
			assert.Equal(t, model.DenyReasonTerminalState, reason, "role %s from %s", role, status)

			// Even re-requesting the terminal status itself reports
			// terminal, not no-op: terminal wins the precedence order.
			allow, reason = sm.Evaluate(claim, role, status)
			assert.False(t, allow)
			assert.Equal(t, model.DenyReasonTerminalState, reason)
		}
	}
}

func TestEvaluateRejectsNoOp(t *testing.T) {
	sm := NewStateMachine(NewPermissionMatrix())

	for _, role := range model.AllRoles {
		claim := newTestClaim(model.ClaimStatusInReview)
		allow, reason := sm.Evaluate(claim, role, model.ClaimStatusInReview)
		assert.False(t, allow)
		assert.Equal(t, model.DenyReasonNoOp, reason, "role %s", role)
	}
}

func TestEvaluateForbidsUnlistedEdges(t *testing.T) {
	sm := NewStateMachine(NewPermissionMatrix())

	// Hospital may not decide claims.
	allow, reason := sm.Evaluate(newTestClaim(model.ClaimStatusInReview), model.RoleHospital, model.ClaimStatusApproved)
	assert.False(t, allow)
	assert.Equal(t, model.DenyReasonForbidden, reason)

	// Patients may never transition.
	allow, reason = sm.Evaluate(newTestClaim(model.ClaimStatusSubmitted), model.RolePatient, model.ClaimStatusInReview)
	assert.False(t, allow)
	assert.Equal(t, model.DenyReasonForbidden, reason)

	// Skipping a state is not allowed even for admins.
	allow, reason = sm.Evaluate(newTestClaim(model.ClaimStatusSubmitted), model.RoleAdmin, model.ClaimStatusCompleted)
	assert.False(t, allow)
	assert.Equal(t, model.DenyReasonForbidden, reason)
}

func TestEvaluateDoesNotMutateClaim(t *testing.T) {
	sm := NewStateMachine(NewPermissionMatrix())
	claim := newTestClaim(model.ClaimStatusSubmitted)

	sm.Evaluate(claim, model.RoleInsurer, model.ClaimStatusInReview)

	assert.Equal(t, model.ClaimStatusSubmitted, claim.Status)
	assert.Len(t, claim.StatusHistory, 1)
}

func TestApplyAppendsHistoryAndAdvancesStatus(t *testing.T) {
	sm := NewStateMachine(NewPermissionMatrix())
	claim := newTestClaim(model.ClaimStatusSubmitted)
	actorID := uuid.New()
	at := time.Date(2025, 3, 11, 14, 30, 0, 0, time.UTC)

	sm.Apply(claim, &model.Transition{
		ClaimID:   claim.ID,
		From:      model.ClaimStatusSubmitted,
		To:        model.ClaimStatusInReview,
		ActorID:   actorID,
		ActorRole: model.RoleHospital,
		Notes:     "forwarded for review",
		At:        at,
	})

	assert.Equal(t, model.ClaimStatusInReview, claim.Status)
	assert.Equal(t, at, claim.UpdatedAt)
	assert.Len(t, claim.StatusHistory, 2)

	last := claim.StatusHistory[len(claim.StatusHistory)-1]
	assert.Equal(t, model.ClaimStatusInReview, last.Status)
	assert.Equal(t, actorID, last.UpdatedBy)
	assert.Equal(t, model.RoleHospital, last.UpdatedByRole)
	assert.Equal(t, at, last.Timestamp)
	assert.Equal(t, "forwarded for review", last.Notes)
}
