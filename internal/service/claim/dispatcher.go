package claim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
	"github.com/medifast/claims-api/pkg/logger"
	"github.com/medifast/claims-api/pkg/metrics"
)

// Dispatcher fans a committed transition out into notifications. Recipients
// are computed deterministically from the transition; storing and delivering
// the notifications is best-effort and never affects the already-committed
// status change.
type Dispatcher struct {
	notifications repository.NotificationRepository
	outbox        repository.OutboxRepository
	metrics       *metrics.Metrics
	logger        *logger.Logger
}

func NewDispatcher(notifications repository.NotificationRepository, outbox repository.OutboxRepository, m *metrics.Metrics, l *logger.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		outbox:        outbox,
		metrics:       m,
		logger:        l,
	}
}

// DispatchClaimSubmitted notifies the patient that their claim was
// accepted. Like Dispatch, it is best-effort.
func (d *Dispatcher) DispatchClaimSubmitted(ctx context.Context, claim *model.Claim) {
	claimID := claim.ID
	n := &model.Notification{
		ID:             uuid.New(),
		RecipientID:    claim.PatientID,
		Title:          "Claim Submitted Successfully",
		Message:        fmt.Sprintf("Your claim %s has been submitted and is under review.", claim.ClaimNumber),
		Type:           model.NotificationTypeClaimSubmitted,
		RelatedClaimID: &claimID,
		Metadata: model.JSONMap{
			"claim_id": claim.ID.String(),
		},
	}

	if err := d.notifications.Create(ctx, n); err != nil {
		d.logger.Error(err, "failed to store notification",
			"claim_id", claim.ID, "recipient_id", n.RecipientID)
		return
	}
	d.metrics.NotificationsCreated.Inc()
	d.enqueueDelivery(ctx, n)
}

// Dispatch stores the notifications for a committed transition and queues
// each for delivery through the outbox. Failures are logged and swallowed;
// the external delivery worker owns retries.
func (d *Dispatcher) Dispatch(ctx context.Context, claim *model.Claim, t *model.Transition) []*model.Notification {
	notifications := d.compose(claim, t)

	for _, n := range notifications {
		if err := d.notifications.Create(ctx, n); err != nil {
			d.logger.Error(err, "failed to store notification",
				"claim_id", claim.ID, "recipient_id", n.RecipientID)
			continue
		}
		d.metrics.NotificationsCreated.Inc()
		d.enqueueDelivery(ctx, n)
	}

	return notifications
}

// compose builds the notification set for one transition:
//   - the owning patient is always notified
//   - the assigned hospital is notified when the claim enters review or
//     investigation
//   - the assigned insurer is notified of decisions and payment progress
func (d *Dispatcher) compose(claim *model.Claim, t *model.Transition) []*model.Notification {
	type target struct {
		id      uuid.UUID
		message string
	}

	targets := []target{
		{id: claim.PatientID, message: patientStatusMessage(claim.ClaimNumber, t.To, t.Notes)},
	}

	switch t.To {
	case model.ClaimStatusInReview, model.ClaimStatusUnderInvestigation:
		if claim.AssignedHospital != nil {
			targets = append(targets, target{id: *claim.AssignedHospital, message: staffStatusMessage(claim.ClaimNumber, t.To)})
		}
	case model.ClaimStatusApproved, model.ClaimStatusRejected, model.ClaimStatusPaymentProcessing:
		if claim.AssignedInsurer != nil {
			targets = append(targets, target{id: *claim.AssignedInsurer, message: staffStatusMessage(claim.ClaimNumber, t.To)})
		}
	}

	claimID := claim.ID
	notifications := make([]*model.Notification, 0, len(targets))
	for _, tgt := range targets {
		notifications = append(notifications, &model.Notification{
			ID:             uuid.New(),
			RecipientID:    tgt.id,
			Title:          fmt.Sprintf("Claim Status Update - %s", claim.ClaimNumber),
			Message:        tgt.message,
			Type:           model.NotificationTypeStatusUpdate,
			RelatedClaimID: &claimID,
			Metadata: model.JSONMap{
				"claim_id":    claim.ID.String(),
				"from_status": string(t.From),
				"to_status":   string(t.To),
			},
		})
	}
	return notifications
}

func (d *Dispatcher) enqueueDelivery(ctx context.Context, n *model.Notification) {
	payload, err := json.Marshal(model.NotificationCreatedPayload{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
		RelatedClaimID: n.RelatedClaimID,
	})
	if err != nil {
		d.logger.Error(err, "failed to marshal notification payload", "notification_id", n.ID)
		return
	}

	event := &model.OutboxEvent{
		EventType: model.EventTypeNotificationCreated,
		Payload:   payload,
	}
	if err := d.outbox.Create(ctx, event); err != nil {
		d.logger.Error(err, "failed to enqueue notification delivery", "notification_id", n.ID)
	}
}

func patientStatusMessage(claimNumber string, to model.ClaimStatus, notes string) string {
	switch to {
	case model.ClaimStatusInReview:
		return fmt.Sprintf("Your claim %s is now under review.", claimNumber)
	case model.ClaimStatusUnderInvestigation:
		return fmt.Sprintf("Your claim %s requires additional investigation.", claimNumber)
	case model.ClaimStatusApproved:
		return fmt.Sprintf("Great news! Your claim %s has been approved.", claimNumber)
	case model.ClaimStatusRejected:
		return strings.TrimSpace(fmt.Sprintf("Your claim %s has been rejected. %s", claimNumber, notes))
	case model.ClaimStatusPendingDocuments:
		return strings.TrimSpace(fmt.Sprintf("Additional documents required for claim %s. %s", claimNumber, notes))
	case model.ClaimStatusPaymentProcessing:
		return fmt.Sprintf("Payment is being processed for your approved claim %s.", claimNumber)
	case model.ClaimStatusCompleted:
		return fmt.Sprintf("Your claim %s has been completed successfully.", claimNumber)
	default:
		return fmt.Sprintf("Your claim %s status has been updated to %s.", claimNumber, to)
	}
}

func staffStatusMessage(claimNumber string, to model.ClaimStatus) string {
	return fmt.Sprintf("Claim %s has moved to %s.", claimNumber, to)
}
