package models

import (
	"time"

	"github.com/lib/pq"
)

// AssignmentStatus is the field-visit task status.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "Assigned"
	AssignmentAccepted  AssignmentStatus = "Accepted"
	AssignmentVisited   AssignmentStatus = "Visited"
	AssignmentCompleted AssignmentStatus = "Completed"
	AssignmentCancelled AssignmentStatus = "Cancelled"
)

// Valid reports whether the status is one of the closed set.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentAccepted, AssignmentVisited, AssignmentCompleted, AssignmentCancelled:
		return true
	}
	return false
}

// AssignmentPriority ranks the urgency of a visit.
type AssignmentPriority string

const (
	PriorityLow    AssignmentPriority = "Low"
	PriorityMedium AssignmentPriority = "Medium"
	PriorityHigh   AssignmentPriority = "High"
)

// Valid reports whether the priority is one of the closed set.
func (p AssignmentPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Assignment is a DM-issued field-visit task delegated to an officer.
// ComplaintIDs are loose references, not strong containment.
type Assignment struct {
	ID           string         `db:"id" json:"id"`
	DMID         string         `db:"dm_id" json:"dm"`
	OfficerID    string         `db:"officer_id" json:"officer"`
	ComplaintIDs pq.StringArray `db:"complaint_ids" json:"complaints"`

	District      string `db:"district" json:"district"`
	GramPanchayat string `db:"gram_panchayat" json:"gram_panchayat,omitempty"`
	Block         string `db:"block" json:"block,omitempty"`
	Tahsil        string `db:"tahsil" json:"tahsil,omitempty"`
	Village       string `db:"village" json:"village,omitempty"`

	VisitDate time.Time          `db:"visit_date" json:"visit_date"`
	Priority  AssignmentPriority `db:"priority" json:"priority"`
	Notes     string             `db:"notes" json:"notes,omitempty"`

	Status     AssignmentStatus `db:"status" json:"status"`
	AssignedAt time.Time        `db:"assigned_at" json:"assigned_at"`

	// Visit report, populated once when the officer closes out the visit.
	ActualVisitDate      *time.Time `db:"actual_visit_date" json:"actual_visit_date,omitempty"`
	ComplaintsFound      int        `db:"complaints_found" json:"complaints_found"`
	ComplaintsRegistered int        `db:"complaints_registered" json:"complaints_registered"`
	ComplaintsSolved     int        `db:"complaints_solved" json:"complaints_solved"`
	ReportRemarks        string     `db:"report_remarks" json:"report_remarks,omitempty"`
	ProofFile            string     `db:"proof_file" json:"proof_file,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Append-only action history, oldest first. The latest status always
	// equals the action implied by the last entry.
	History []AssignmentHistoryEntry `db:"-" json:"history"`
}

// AssignmentHistoryEntry records one action performed on an assignment.
type AssignmentHistoryEntry struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"-"`
	ActionBy     string    `db:"action_by" json:"action_by"`
	Action       string    `db:"action" json:"action"`
	Meta         []byte    `db:"meta" json:"meta,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"timestamp"`
}

// CreateAssignmentRequest issues a new field-visit task.
type CreateAssignmentRequest struct {
	OfficerID     string             `json:"officer_id" validate:"required"`
	ComplaintIDs  []string           `json:"complaint_ids"`
	District      string             `json:"district" validate:"required"`
	GramPanchayat string             `json:"gram_panchayat"`
	Block         string             `json:"block"`
	Tahsil        string             `json:"tahsil"`
	Village       string             `json:"village"`
	VisitDate     time.Time          `json:"visit_date" validate:"required"`
	Priority      AssignmentPriority `json:"priority"`
	Notes         string             `json:"notes"`
}

// UpdateAssignmentStatusRequest moves the task status.
type UpdateAssignmentStatusRequest struct {
	Status  AssignmentStatus `json:"status" validate:"required"`
	Remarks string           `json:"remarks"`
}

// VisitReport carries the close-out payload recorded by the officer.
type VisitReport struct {
	ActualVisitDate      time.Time `json:"actual_visit_date"`
	ComplaintsFound      int       `json:"complaints_found"`
	ComplaintsRegistered int       `json:"complaints_registered"`
	ComplaintsSolved     int       `json:"complaints_solved"`
	Remarks              string    `json:"remarks"`
	ProofFile            string    `json:"proof_file,omitempty"`
}
