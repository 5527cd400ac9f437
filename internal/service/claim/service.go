package claim

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
	"github.com/medifast/claims-api/internal/service/audit"
	"github.com/medifast/claims-api/pkg/logger"
	"github.com/medifast/claims-api/pkg/metrics"
)

const submittedNote = "Claim submitted by patient"

// Service orchestrates the claim lifecycle: it loads claims, asks the
// state machine whether a transition is legal, persists allowed ones
// with an optimistic-concurrency write, and triggers the audit and
// notification side effects in a fixed order.
type Service struct {
	claims     repository.ClaimRepository
	outbox     repository.OutboxRepository
	machine    *StateMachine
	auditor    *audit.Service
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *logger.Logger
	now        func() time.Time
}

func NewService(claims repository.ClaimRepository, outbox repository.OutboxRepository,
	machine *StateMachine, auditor *audit.Service, dispatcher *Dispatcher,
	m *metrics.Metrics, l *logger.Logger) *Service {
	return &Service{
		claims:     claims,
		outbox:     outbox,
		machine:    machine,
		auditor:    auditor,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     l,
		now:        time.Now,
	}
}

// RequestTransition moves a claim to requested on behalf of an actor.
//
// Ordering is load, evaluate, apply in memory, conditional persist,
// audit, notify. A denial is audited before it is returned. A lost
// optimistic write surfaces as ErrConcurrentModification with no side
// effects, so the caller can reload and retry. An audit write that
// fails after the persist committed is returned as AuditWriteError
// with Committed set; the transition itself stands.
func (s *Service) RequestTransition(ctx context.Context, claimID, actorID uuid.UUID,
	actorRole model.Role, requested model.ClaimStatus, notes string) (*model.Claim, error) {

	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if err == model.ErrClaimNotFound {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "load claim", Err: err}
	}

	allow, reason := s.machine.Evaluate(claim, actorRole, requested)
	if !allow {
		return nil, s.deny(ctx, claim, actorID, actorRole, requested, reason)
	}

	transition := model.Transition{
		ClaimID:   claim.ID,
		From:      claim.Status,
		To:        requested,
		ActorID:   actorID,
		ActorRole: actorRole,
		Notes:     notes,
		At:        s.now().UTC(),
	}
	s.machine.Apply(claim, &transition)

	if err := s.claims.CompareAndSwap(ctx, claim); err != nil {
		if err == model.ErrConcurrentModification {
			s.metrics.TransitionsTotal.WithLabelValues(string(requested), metrics.OutcomeConflict).Inc()
			return nil, err
		}
		s.metrics.TransitionsTotal.WithLabelValues(string(requested), metrics.OutcomeError).Inc()
		return nil, &model.PersistenceError{Op: "persist transition", Err: err}
	}
	s.metrics.TransitionsTotal.WithLabelValues(string(requested), metrics.OutcomeSuccess).Inc()

	if err := s.auditor.Record(ctx, &model.AuditLogEntry{
		ClaimID:    claim.ID,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     model.AuditActionSuccess,
		FromStatus: transition.From,
		ToStatus:   transition.To,
	}); err != nil {
		// The status change is committed but unprovable. Surface it as
		// the distinct post-commit audit failure, skip notifications
		// (they must never precede the audit record), and leave the
		// claim in its new state.
		s.logger.Error(err, "audit write failed after committed transition",
			"claim_id", claim.ID, "from", transition.From, "to", transition.To)
		return nil, &model.AuditWriteError{Committed: true, Err: err}
	}

	s.dispatcher.Dispatch(ctx, claim, &transition)
	s.publishStatusChanged(ctx, claim, &transition)

	s.logger.Info("claim transition committed",
		"claim_id", claim.ID, "claim_number", claim.ClaimNumber,
		"from", transition.From, "to", transition.To, "actor_role", actorRole)

	return claim, nil
}

// deny audits a refused attempt and converts the reason into the typed
// error the caller receives. The audit record always precedes the return;
// if it cannot be written the denial is superseded by the audit failure.
func (s *Service) deny(ctx context.Context, claim *model.Claim, actorID uuid.UUID,
	actorRole model.Role, requested model.ClaimStatus, reason string) error {

	if err := s.auditor.Record(ctx, &model.AuditLogEntry{
		ClaimID:    claim.ID,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     model.AuditActionDeny,
		FromStatus: claim.Status,
		ToStatus:   requested,
		Reason:     reason,
	}); err != nil {
		return &model.AuditWriteError{Committed: false, Err: err}
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(requested), metrics.OutcomeDenied).Inc()

	if reason == model.DenyReasonTerminalState {
		return model.ErrClaimTerminal
	}
	return &model.TransitionDeniedError{
		From:   claim.Status,
		To:     requested,
		Role:   actorRole,
		Reason: reason,
	}
}

// CreateClaim registers a new claim in Submitted with its seeded history
// entry, then notifies the patient. Creation is not a transition, so no
// audit entry is written; the seeded history entry is the record.
func (s *Service) CreateClaim(ctx context.Context, patientID uuid.UUID, req *model.CreateClaimRequest) (*model.Claim, error) {
	now := s.now().UTC()

	claim := &model.Claim{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClaimNumber:   model.NewClaimNumber(now),
		PatientID:     patientID,
		Status:        model.ClaimStatusSubmitted,
		ExtractedData: req.ExtractedData,
		Documents:     req.Documents,
		StatusHistory: model.StatusHistory{{
			Status:        model.ClaimStatusSubmitted,
			UpdatedBy:     patientID,
			UpdatedByRole: model.RolePatient,
			Timestamp:     now,
			Notes:         submittedNote,
		}},
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, &model.PersistenceError{Op: "create claim", Err: err}
	}

	s.dispatcher.DispatchClaimSubmitted(ctx, claim)
	s.publishClaimCreated(ctx, claim)

	s.logger.Info("claim submitted",
		"claim_id", claim.ID, "claim_number", claim.ClaimNumber, "patient_id", patientID)

	return claim, nil
}

// AppendDocument attaches one more document to a claim that is still
// accepting them. Only the owning patient or an admin may append.
func (s *Service) AppendDocument(ctx context.Context, claimID uuid.UUID, actor model.ActorRef, doc model.Document) (*model.Claim, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if err == model.ErrClaimNotFound {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "load claim", Err: err}
	}

	if actor.Role != model.RoleAdmin && claim.PatientID != actor.ID {
		return nil, model.ErrClaimAccessDenied
	}
	if !claim.AcceptsDocuments() {
		return nil, model.ErrClaimNotAcceptingDocuments
	}

	now := s.now().UTC()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	claim.Documents = append(claim.Documents, doc)
	claim.UpdatedAt = now

	if err := s.claims.CompareAndSwap(ctx, claim); err != nil {
		if err == model.ErrConcurrentModification {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "append document", Err: err}
	}

	return claim, nil
}

// UpdateExtractedData applies staff corrections to the extraction record.
// Corrections are only possible while the claim is still collecting
// documents; once review starts the record is frozen.
func (s *Service) UpdateExtractedData(ctx context.Context, claimID uuid.UUID, actor model.ActorRef, req *model.UpdateExtractedDataRequest) (*model.Claim, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if err == model.ErrClaimNotFound {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "load claim", Err: err}
	}

	if !actor.Role.IsStaff() {
		return nil, model.ErrClaimAccessDenied
	}
	if !claim.AcceptsDocuments() {
		return nil, model.ErrExtractedDataFrozen
	}

	applyCorrections(&claim.ExtractedData, req)

	if err := s.claims.CompareAndSwap(ctx, claim); err != nil {
		if err == model.ErrConcurrentModification {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "update extracted data", Err: err}
	}

	return claim, nil
}

// AssignClaim sets reviewer assignments. Admin only; assignments may be
// replaced but never cleared.
func (s *Service) AssignClaim(ctx context.Context, claimID uuid.UUID, actor model.ActorRef, req *model.AssignClaimRequest) (*model.Claim, error) {
	if actor.Role != model.RoleAdmin {
		return nil, model.ErrClaimAccessDenied
	}

	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if err == model.ErrClaimNotFound {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "load claim", Err: err}
	}

	if req.AssignedHospital != nil {
		claim.AssignedHospital = req.AssignedHospital
	}
	if req.AssignedInsurer != nil {
		claim.AssignedInsurer = req.AssignedInsurer
	}

	if err := s.claims.CompareAndSwap(ctx, claim); err != nil {
		if err == model.ErrConcurrentModification {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "assign claim", Err: err}
	}

	return claim, nil
}

// GetClaim loads a claim the actor is allowed to see: admins see all,
// patients their own, hospitals and insurers the claims assigned to them.
func (s *Service) GetClaim(ctx context.Context, claimID uuid.UUID, actor model.ActorRef) (*model.Claim, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if err == model.ErrClaimNotFound {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "load claim", Err: err}
	}

	if !canViewClaim(claim, actor) {
		return nil, model.ErrClaimAccessDenied
	}
	return claim, nil
}

// GetClaimByNumber is GetClaim keyed by the human-readable identifier.
func (s *Service) GetClaimByNumber(ctx context.Context, claimNumber string, actor model.ActorRef) (*model.Claim, error) {
	claim, err := s.claims.GetByClaimNumber(ctx, claimNumber)
	if err != nil {
		if err == model.ErrClaimNotFound {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "load claim", Err: err}
	}

	if !canViewClaim(claim, actor) {
		return nil, model.ErrClaimAccessDenied
	}
	return claim, nil
}

// ListClaims returns claims visible to the actor. Patients are always
// scoped to their own claims; staff roles see everything.
func (s *Service) ListClaims(ctx context.Context, actor model.ActorRef, filter *model.ClaimFilter) ([]*model.Claim, int64, error) {
	if actor.Role == model.RolePatient {
		filter.PatientID = actor.ID
	}
	return s.claims.List(ctx, filter)
}

func canViewClaim(claim *model.Claim, actor model.ActorRef) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RolePatient:
		return claim.PatientID == actor.ID
	case model.RoleInsurer:
		return claim.AssignedInsurer != nil && *claim.AssignedInsurer == actor.ID
	case model.RoleHospital:
		return claim.AssignedHospital != nil && *claim.AssignedHospital == actor.ID
	}
	return false
}

func applyCorrections(data *model.ExtractedData, req *model.UpdateExtractedDataRequest) {
	if req.PatientName != nil {
		data.PatientName = *req.PatientName
	}
	if req.PatientID != nil {
		data.PatientID = *req.PatientID
	}
	if req.PatientDOB != nil {
		data.PatientDOB = *req.PatientDOB
	}
	if req.HospitalName != nil {
		data.HospitalName = *req.HospitalName
	}
	if req.DoctorName != nil {
		data.DoctorName = *req.DoctorName
	}
	if req.TreatmentDate != nil {
		data.TreatmentDate = *req.TreatmentDate
	}
	if req.TreatmentType != nil {
		data.TreatmentType = *req.TreatmentType
	}
	if req.Diagnosis != nil {
		data.Diagnosis = *req.Diagnosis
	}
	if req.ClaimAmount != nil {
		data.ClaimAmount = *req.ClaimAmount
	}
	if req.PolicyNumber != nil {
		data.PolicyNumber = *req.PolicyNumber
	}
	if req.ProcedureCodes != nil {
		data.ProcedureCodes = *req.ProcedureCodes
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, claim *model.Claim, t *model.Transition) {
	payload, err := json.Marshal(model.ClaimStatusChangedPayload{
		ClaimID:     claim.ID,
		ClaimNumber: claim.ClaimNumber,
		FromStatus:  t.From,
		ToStatus:    t.To,
		ActorID:     t.ActorID,
		ActorRole:   t.ActorRole,
		ChangedAt:   t.At,
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal status change event", "claim_id", claim.ID)
		return
	}

	event := &model.OutboxEvent{
		EventType: model.EventTypeClaimStatusChanged,
		Payload:   payload,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to enqueue status change event", "claim_id", claim.ID)
	}
}

func (s *Service) publishClaimCreated(ctx context.Context, claim *model.Claim) {
	payload, err := json.Marshal(model.ClaimCreatedPayload{
		ClaimID:     claim.ID,
		ClaimNumber: claim.ClaimNumber,
		PatientID:   claim.PatientID,
		CreatedAt:   claim.CreatedAt,
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal claim created event", "claim_id", claim.ID)
		return
	}

	event := &model.OutboxEvent{
		EventType: model.EventTypeClaimCreated,
		Payload:   payload,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to enqueue claim created event", "claim_id", claim.ID)
	}
}
