package claim

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medifast/claims-api/internal/model"
)

func newDispatcherFixture() (*Dispatcher, *fakeNotificationRepo, *fakeOutboxRepo) {
	notifs := &fakeNotificationRepo{}
	outbox := &fakeOutboxRepo{}
	return NewDispatcher(notifs, outbox, testMetrics, testLogger()), notifs, outbox
}

func transitionTo(claim *model.Claim, to model.ClaimStatus, notes string) *model.Transition {
	return &model.Transition{
		ClaimID:   claim.ID,
		From:      claim.Status,
		To:        to,
		ActorID:   uuid.New(),
		ActorRole: model.RoleInsurer,
		Notes:     notes,
		At:        time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatchPatientMessagePerStatus(t *testing.T) {
	cases := []struct {
		to      model.ClaimStatus
		notes   string
		message string
	}{
		{model.ClaimStatusInReview, "", "Your claim CLM-20250310-AB12CD34 is now under review."},
		{model.ClaimStatusUnderInvestigation, "", "Your claim CLM-20250310-AB12CD34 requires additional investigation."},
		{model.ClaimStatusApproved, "", "Great news! Your claim CLM-20250310-AB12CD34 has been approved."},
		{model.ClaimStatusRejected, "Policy expired", "Your claim CLM-20250310-AB12CD34 has been rejected. Policy expired"},
		{model.ClaimStatusRejected, "", "Your claim CLM-20250310-AB12CD34 has been rejected."},
		{model.ClaimStatusPendingDocuments, "Need discharge summary", "Additional documents required for claim CLM-20250310-AB12CD34. Need discharge summary"},
		{model.ClaimStatusPendingDocuments, "", "Additional documents required for claim CLM-20250310-AB12CD34."},
		{model.ClaimStatusPaymentProcessing, "", "Payment is being processed for your approved claim CLM-20250310-AB12CD34."},
		{model.ClaimStatusCompleted, "", "Your claim CLM-20250310-AB12CD34 has been completed successfully."},
	}

	for _, tc := range cases {
		t.Run(string(tc.to), func(t *testing.T) {
			d, notifs, _ := newDispatcherFixture()
			claim := newTestClaim(model.ClaimStatusSubmitted)

			d.Dispatch(context.Background(), claim, transitionTo(claim, tc.to, tc.notes))

			patient := notifs.forRecipient(claim.PatientID)
			require.Len(t, patient, 1)
			assert.Equal(t, tc.message, patient[0].Message)
			assert.Equal(t, "Claim Status Update - CLM-20250310-AB12CD34", patient[0].Title)
			assert.Equal(t, model.NotificationTypeStatusUpdate, patient[0].Type)
		})
	}
}

func TestDispatchNotifiesAssignedHospitalDuringReview(t *testing.T) {
	for _, to := range []model.ClaimStatus{model.ClaimStatusInReview, model.ClaimStatusUnderInvestigation} {
		d, notifs, _ := newDispatcherFixture()
		claim := newTestClaim(model.ClaimStatusSubmitted)
		hospitalID := uuid.New()
		claim.AssignedHospital = &hospitalID

		d.Dispatch(context.Background(), claim, transitionTo(claim, to, ""))

		require.Len(t, notifs.all(), 2, "to %s", to)
		hospital := notifs.forRecipient(hospitalID)
		require.Len(t, hospital, 1)
		assert.Equal(t, "Claim CLM-20250310-AB12CD34 has moved to "+string(to)+".", hospital[0].Message)
	}
}

func TestDispatchNotifiesAssignedInsurerOnDecisions(t *testing.T) {
	for _, to := range []model.ClaimStatus{
		model.ClaimStatusApproved,
		model.ClaimStatusRejected,
		model.ClaimStatusPaymentProcessing,
	} {
		d, notifs, _ := newDispatcherFixture()
		claim := newTestClaim(model.ClaimStatusInReview)
		insurerID := uuid.New()
		claim.AssignedInsurer = &insurerID

		d.Dispatch(context.Background(), claim, transitionTo(claim, to, "notes"))

		require.Len(t, notifs.all(), 2, "to %s", to)
		require.Len(t, notifs.forRecipient(insurerID), 1)
	}
}

func TestDispatchSkipsUnassignedStaff(t *testing.T) {
	d, notifs, _ := newDispatcherFixture()
	claim := newTestClaim(model.ClaimStatusSubmitted)

	d.Dispatch(context.Background(), claim, transitionTo(claim, model.ClaimStatusInReview, ""))
	assert.Len(t, notifs.all(), 1, "no hospital assigned, only the patient is notified")
}

func TestDispatchCompletionNotifiesPatientOnly(t *testing.T) {
	d, notifs, _ := newDispatcherFixture()
	claim := newTestClaim(model.ClaimStatusPaymentProcessing)
	hospitalID, insurerID := uuid.New(), uuid.New()
	claim.AssignedHospital = &hospitalID
	claim.AssignedInsurer = &insurerID

	d.Dispatch(context.Background(), claim, transitionTo(claim, model.ClaimStatusCompleted, ""))

	all := notifs.all()
	require.Len(t, all, 1)
	assert.Equal(t, claim.PatientID, all[0].RecipientID)
}

func TestDispatchMetadataDescribesTransition(t *testing.T) {
	d, notifs, _ := newDispatcherFixture()
	claim := newTestClaim(model.ClaimStatusInReview)

	d.Dispatch(context.Background(), claim, transitionTo(claim, model.ClaimStatusApproved, ""))

	all := notifs.all()
	require.Len(t, all, 1)
	assert.Equal(t, claim.ID.String(), all[0].Metadata["claim_id"])
	assert.Equal(t, "in_review", all[0].Metadata["from_status"])
	assert.Equal(t, "approved", all[0].Metadata["to_status"])
	require.NotNil(t, all[0].RelatedClaimID)
	assert.Equal(t, claim.ID, *all[0].RelatedClaimID)
}

func TestDispatchQueuesDeliveryThroughOutbox(t *testing.T) {
	d, notifs, outbox := newDispatcherFixture()
	claim := newTestClaim(model.ClaimStatusSubmitted)
	hospitalID := uuid.New()
	claim.AssignedHospital = &hospitalID

	d.Dispatch(context.Background(), claim, transitionTo(claim, model.ClaimStatusInReview, ""))

	events := outbox.byType(model.EventTypeNotificationCreated)
	require.Len(t, events, 2)

	stored := notifs.all()
	var payload model.NotificationCreatedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, stored[0].ID, payload.NotificationID)
	assert.Equal(t, stored[0].RecipientID, payload.RecipientID)
	assert.Equal(t, stored[0].Message, payload.Message)
}

func TestDispatchSwallowsStoreFailures(t *testing.T) {
	d, notifs, outbox := newDispatcherFixture()
	notifs.failErr = errors.New("insert failed")
	claim := newTestClaim(model.ClaimStatusSubmitted)

	composed := d.Dispatch(context.Background(), claim, transitionTo(claim, model.ClaimStatusInReview, ""))

	// The composed set is still reported, but nothing was stored or queued.
	assert.Len(t, composed, 1)
	assert.Empty(t, notifs.all())
	assert.Empty(t, outbox.events)
}

func TestDispatchClaimSubmitted(t *testing.T) {
	d, notifs, outbox := newDispatcherFixture()
	claim := newTestClaim(model.ClaimStatusSubmitted)

	d.DispatchClaimSubmitted(context.Background(), claim)

	all := notifs.all()
	require.Len(t, all, 1)
	assert.Equal(t, claim.PatientID, all[0].RecipientID)
	assert.Equal(t, "Claim Submitted Successfully", all[0].Title)
	assert.Equal(t, "Your claim CLM-20250310-AB12CD34 has been submitted and is under review.", all[0].Message)
	assert.Equal(t, model.NotificationTypeClaimSubmitted, all[0].Type)
	assert.Equal(t, claim.ID.String(), all[0].Metadata["claim_id"])
	assert.Len(t, outbox.byType(model.EventTypeNotificationCreated), 1)
}
