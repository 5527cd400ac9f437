package claim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medifast/claims-api/internal/model"
)

// allowedEdges restates the authorization table row by row. The test walks
// the full (from, to, role) space and checks that everything outside these
// rows is denied.
var allowedEdges = []struct {
	from  model.ClaimStatus
	to    model.ClaimStatus
	roles []model.Role
}{
	{model.ClaimStatusSubmitted, model.ClaimStatusInReview, []model.Role{model.RoleHospital, model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusSubmitted, model.ClaimStatusPendingDocuments, []model.Role{model.RoleHospital, model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusSubmitted, model.ClaimStatusRejected, []model.Role{model.RoleHospital, model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusInReview, model.ClaimStatusUnderInvestigation, []model.Role{model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusInReview, model.ClaimStatusApproved, []model.Role{model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusInReview, model.ClaimStatusRejected, []model.Role{model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusInReview, model.ClaimStatusPendingDocuments, []model.Role{model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusUnderInvestigation, model.ClaimStatusApproved, []model.Role{model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusUnderInvestigation, model.ClaimStatusRejected, []model.Role{model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusUnderInvestigation, model.ClaimStatusPendingDocuments, []model.Role{model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusPendingDocuments, model.ClaimStatusInReview, []model.Role{model.RoleHospital, model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusPendingDocuments, model.ClaimStatusRejected, []model.Role{model.RoleHospital, model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusApproved, model.ClaimStatusPaymentProcessing, []model.Role{model.RoleInsurer, model.RoleAdmin}},
	{model.ClaimStatusPaymentProcessing, model.ClaimStatusCompleted, []model.Role{model.RoleInsurer, model.RoleAdmin}},
}

func TestPermissionMatrixExhaustive(t *testing.T) {
	expected := make(map[string]bool)
	for _, edge := range allowedEdges {
		for _, role := range edge.roles {
			expected[fmt.Sprintf("%s|%s|%s", edge.from, edge.to, role)] = true
		}
	}

	matrix := NewPermissionMatrix()
	for _, from := range model.AllClaimStatuses {
		for _, to := range model.AllClaimStatuses {
			for _, role := range model.AllRoles {
				key := fmt.Sprintf("%s|%s|%s", from, to, role)
				assert.Equal(t, expected[key], matrix.IsAllowed(from, to, role),
					"IsAllowed(%s, %s, %s)", from, to, role)
			}
		}
	}
}

func TestPermissionMatrixPatientsNeverAllowed(t *testing.T) {
	matrix := NewPermissionMatrix()
	for _, from := range model.AllClaimStatuses {
		for _, to := range model.AllClaimStatuses {
			assert.False(t, matrix.IsAllowed(from, to, model.RolePatient),
				"patient must not transition %s -> %s", from, to)
		}
	}
}

func TestPermissionMatrixTerminalStatesHaveNoEdges(t *testing.T) {
	matrix := NewPermissionMatrix()
	for _, from := range []model.ClaimStatus{model.ClaimStatusRejected, model.ClaimStatusCompleted} {
		for _, to := range model.AllClaimStatuses {
			for _, role := range model.AllRoles {
				assert.False(t, matrix.IsAllowed(from, to, role),
					"terminal %s must have no outgoing edge to %s for %s", from, to, role)
			}
		}
	}
}

func TestPermissionMatrixUnknownValues(t *testing.T) {
	matrix := NewPermissionMatrix()
	assert.False(t, matrix.IsAllowed("archived", model.ClaimStatusInReview, model.RoleAdmin))
	assert.False(t, matrix.IsAllowed(model.ClaimStatusSubmitted, "archived", model.RoleAdmin))
	assert.False(t, matrix.IsAllowed(model.ClaimStatusSubmitted, model.ClaimStatusInReview, "auditor"))
}
