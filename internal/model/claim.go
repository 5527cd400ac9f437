package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClaimStatus is the lifecycle state of a claim. Statuses form a fixed
// transition graph; rejected and completed are terminal.
type ClaimStatus string

const (
	ClaimStatusSubmitted          ClaimStatus = "submitted"
	ClaimStatusInReview           ClaimStatus = "in_review"
	ClaimStatusUnderInvestigation ClaimStatus = "under_investigation"
	ClaimStatusPendingDocuments   ClaimStatus = "pending_documents"
	ClaimStatusApproved           ClaimStatus = "approved"
	ClaimStatusPaymentProcessing  ClaimStatus = "payment_processing"
	ClaimStatusRejected           ClaimStatus = "rejected"
	ClaimStatusCompleted          ClaimStatus = "completed"
)

// AllClaimStatuses lists every status, in rough pipeline order.
var AllClaimStatuses = []ClaimStatus{
	ClaimStatusSubmitted,
	ClaimStatusInReview,
	ClaimStatusUnderInvestigation,
	ClaimStatusPendingDocuments,
	ClaimStatusApproved,
	ClaimStatusPaymentProcessing,
	ClaimStatusRejected,
	ClaimStatusCompleted,
}

func (s ClaimStatus) Valid() bool {
	for _, known := range AllClaimStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusRejected || s == ClaimStatusCompleted
}

// Role is the actor role attached to an authenticated user.
type Role string

const (
	RolePatient  Role = "patient"
	RoleHospital Role = "hospital"
	RoleInsurer  Role = "insurer"
	RoleAdmin    Role = "admin"
)

var AllRoles = []Role{RolePatient, RoleHospital, RoleInsurer, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleHospital, RoleInsurer, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role participates in claim review.
func (r Role) IsStaff() bool {
	switch r {
	case RoleHospital, RoleInsurer, RoleAdmin:
		return true
	}
	return false
}

// StatusHistoryEntry is one append-only record of a status change.
type StatusHistoryEntry struct {
	Status        ClaimStatus `json:"status"`
	UpdatedBy     uuid.UUID   `json:"updated_by"`
	UpdatedByRole Role        `json:"updated_by_role"`
	Timestamp     time.Time   `json:"timestamp"`
	Notes         string      `json:"notes,omitempty"`
}

// StatusHistory is the ordered, append-only status trail stored as jsonb.
type StatusHistory []StatusHistoryEntry

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(value interface{}) error {
	if value == nil {
		*h = StatusHistory{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(b, h)
}

// ExtractedData is the structured record produced by document extraction.
// It may be corrected by staff before review starts and is frozen after.
type ExtractedData struct {
	PatientName    string   `json:"patient_name,omitempty"`
	PatientID      string   `json:"patient_id,omitempty"`
	PatientDOB     string   `json:"patient_dob,omitempty"`
	HospitalName   string   `json:"hospital_name,omitempty"`
	DoctorName     string   `json:"doctor_name,omitempty"`
	TreatmentDate  string   `json:"treatment_date,omitempty"`
	TreatmentType  string   `json:"treatment_type,omitempty"`
	Diagnosis      string   `json:"diagnosis,omitempty"`
	ClaimAmount    float64  `json:"claim_amount,omitempty"`
	PolicyNumber   string   `json:"policy_number,omitempty"`
	ProcedureCodes []string `json:"procedure_codes,omitempty"`
}

func (d ExtractedData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *ExtractedData) Scan(value interface{}) error {
	if value == nil {
		*d = ExtractedData{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(b, d)
}

// Document is metadata for one uploaded claim document.
type Document struct {
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	StorageRef  string    `json:"storage_ref"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Documents is the append-only document list stored as jsonb.
type Documents []Document

func (d Documents) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

func (d *Documents) Scan(value interface{}) error {
	if value == nil {
		*d = Documents{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(b, d)
}

// Claim is a health-insurance claim moving through the review pipeline.
// Version is the optimistic-concurrency token: every committed write
// increments it, and conditional updates compare against the value the
// writer previously read.
type Claim struct {
	Base
	ClaimNumber      string        `json:"claim_number" db:"claim_number"`
	PatientID        uuid.UUID     `json:"patient_id" db:"patient_id"`
	Status           ClaimStatus   `json:"status" db:"status"`
	ExtractedData    ExtractedData `json:"extracted_data" db:"extracted_data"`
	Documents        Documents     `json:"documents" db:"documents"`
	StatusHistory    StatusHistory `json:"status_history" db:"status_history"`
	AssignedHospital *uuid.UUID    `json:"assigned_hospital,omitempty" db:"assigned_hospital"`
	AssignedInsurer  *uuid.UUID    `json:"assigned_insurer,omitempty" db:"assigned_insurer"`
	Version          int64         `json:"version" db:"version"`
}

// AcceptsDocuments reports whether documents may still be appended.
func (c *Claim) AcceptsDocuments() bool {
	return c.Status == ClaimStatusSubmitted || c.Status == ClaimStatusPendingDocuments
}

// Transition describes one attempted or applied status change.
type Transition struct {
	ClaimID   uuid.UUID
	From      ClaimStatus
	To        ClaimStatus
	ActorID   uuid.UUID
	ActorRole Role
	Notes     string
	At        time.Time
}

// NewClaimNumber builds a human-readable claim identifier,
// e.g. CLM-20250114-9F2C81AB.
func NewClaimNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("CLM-%s-%s", at.Format("20060102"), suffix)
}

// CreateClaimRequest is the claim submission body. ExtractedData comes
// from the document extraction step that precedes submission.
type CreateClaimRequest struct {
	ExtractedData ExtractedData `json:"extracted_data" binding:"required"`
	Documents     []Document    `json:"documents"`
}

// UpdateClaimStatusRequest is the transition request body.
type UpdateClaimStatusRequest struct {
	Status ClaimStatus `json:"status" binding:"required,claimstatus"`
	Notes  string      `json:"notes"`
}

// UpdateExtractedDataRequest carries staff corrections to extracted data.
// Nil fields are left unchanged.
type UpdateExtractedDataRequest struct {
	PatientName    *string   `json:"patient_name"`
	PatientID      *string   `json:"patient_id"`
	PatientDOB     *string   `json:"patient_dob"`
	HospitalName   *string   `json:"hospital_name"`
	DoctorName     *string   `json:"doctor_name"`
	TreatmentDate  *string   `json:"treatment_date"`
	TreatmentType  *string   `json:"treatment_type"`
	Diagnosis      *string   `json:"diagnosis"`
	ClaimAmount    *float64  `json:"claim_amount"`
	PolicyNumber   *string   `json:"policy_number"`
	ProcedureCodes *[]string `json:"procedure_codes"`
}

// AssignClaimRequest sets reviewer assignments on a claim.
type AssignClaimRequest struct {
	AssignedHospital *uuid.UUID `json:"assigned_hospital"`
	AssignedInsurer  *uuid.UUID `json:"assigned_insurer"`
}

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	Status    ClaimStatus
	PatientID uuid.UUID
	Pagination
}
