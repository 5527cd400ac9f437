package model

// ClaimAnalytics summarizes claim activity for the reporting window.
type ClaimAnalytics struct {
	TotalClaims           int64                 `json:"total_claims"`
	ClaimsByStatus        map[ClaimStatus]int64 `json:"claims_by_status"`
	AverageProcessingTime float64               `json:"average_processing_time"`
	TotalClaimAmount      float64               `json:"total_claim_amount"`
	ApprovedAmount        float64               `json:"approved_amount"`
	RejectionRate         float64               `json:"rejection_rate"`
}

// UserAnalytics summarizes the account population.
type UserAnalytics struct {
	TotalUsers                int64          `json:"total_users"`
	ActiveUsers               int64          `json:"active_users"`
	UsersByRole               map[Role]int64 `json:"users_by_role"`
	NewRegistrationsThisMonth int64          `json:"new_registrations_this_month"`
}
