package claim

import (
	"github.com/medifast/claims-api/internal/model"
)

// Role sets shared by several edges of the transition graph.
var (
	staffRoles = map[model.Role]bool{
		model.RoleHospital: true,
		model.RoleInsurer:  true,
		model.RoleAdmin:    true,
	}
	reviewerRoles = map[model.Role]bool{
		model.RoleInsurer: true,
		model.RoleAdmin:   true,
	}
)

// allowedTransitions is the full authorization table: for each current
// status, the statuses it may move to and the roles permitted to move it.
// Terminal statuses have no entry. Patients appear nowhere; they create
// claims and append documents but never drive a transition.
var allowedTransitions = map[model.ClaimStatus]map[model.ClaimStatus]map[model.Role]bool{
	model.ClaimStatusSubmitted: {
		model.ClaimStatusInReview:         staffRoles,
		model.ClaimStatusPendingDocuments: staffRoles,
		model.ClaimStatusRejected:         staffRoles,
	},
	model.ClaimStatusInReview: {
		model.ClaimStatusUnderInvestigation: reviewerRoles,
		model.ClaimStatusApproved:           reviewerRoles,
		model.ClaimStatusRejected:           reviewerRoles,
		model.ClaimStatusPendingDocuments:   reviewerRoles,
	},
	model.ClaimStatusUnderInvestigation: {
		model.ClaimStatusApproved:         reviewerRoles,
		model.ClaimStatusRejected:         reviewerRoles,
		model.ClaimStatusPendingDocuments: reviewerRoles,
	},
	model.ClaimStatusPendingDocuments: {
		model.ClaimStatusInReview: staffRoles,
		model.ClaimStatusRejected: staffRoles,
	},
	model.ClaimStatusApproved: {
		model.ClaimStatusPaymentProcessing: reviewerRoles,
	},
	model.ClaimStatusPaymentProcessing: {
		model.ClaimStatusCompleted: reviewerRoles,
	},
}

// PermissionMatrix answers whether a role may move a claim between two
// statuses. It is a pure lookup over the table above: unknown pairs are
// simply not allowed, never an error.
type PermissionMatrix struct{}

func NewPermissionMatrix() *PermissionMatrix {
	return &PermissionMatrix{}
}

func (m *PermissionMatrix) IsAllowed(from, to model.ClaimStatus, role model.Role) bool {
	targets, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	roles, ok := targets[to]
	if !ok {
		return false
	}
	return roles[role]
}
