package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ComplaintStatus is the lifecycle status shared by the complaint record and
// every timeline entry.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "Pending"
	StatusInProgress ComplaintStatus = "In Progress"
	StatusResolved   ComplaintStatus = "Resolved"
	StatusForwarded  ComplaintStatus = "Forwarded"
	StatusRejected   ComplaintStatus = "Rejected"
)

// Valid reports whether the status is one of the closed set.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusForwarded, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status ends the complaint lifecycle.
func (s ComplaintStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// SourceType records who originated the complaint.
type SourceType string

const (
	SourcePublic  SourceType = "Public"
	SourceOfficer SourceType = "Officer"
)

// ForwardTargetType identifies one of the three single-slot forward channels.
type ForwardTargetType string

const (
	ForwardToOfficer    ForwardTargetType = "officer"
	ForwardToDepartment ForwardTargetType = "department"
	ForwardToDM         ForwardTargetType = "dm"
)

// Valid reports whether the target type is one of the closed set.
func (t ForwardTargetType) Valid() bool {
	switch t {
	case ForwardToOfficer, ForwardToDepartment, ForwardToDM:
		return true
	}
	return false
}

// ParseForwardTarget splits the wire encoding "{type}:{actorId}" on the first
// colon and validates the type.
func ParseForwardTarget(raw string) (ForwardTargetType, string, error) {
	idx := strings.Index(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", fmt.Errorf("malformed forward target %q", raw)
	}
	targetType := ForwardTargetType(raw[:idx])
	if !targetType.Valid() {
		return "", "", fmt.Errorf("unknown forward target type %q", raw[:idx])
	}
	return targetType, raw[idx+1:], nil
}

// UpdateCategory selects the officer or department update timeline.
type UpdateCategory string

const (
	UpdateCategoryOfficer    UpdateCategory = "officer"
	UpdateCategoryDepartment UpdateCategory = "department"
)

// Complaint is the central ledger entity. Tracking ID and serial number are
// assigned exactly once at first persistence and never change.
type Complaint struct {
	ID           string     `db:"id" json:"id"`
	TrackingID   string     `db:"tracking_id" json:"tracking_id"`
	SerialNumber int64      `db:"serial_number" json:"serial_number"`
	SourceType   SourceType `db:"source_type" json:"source_type"`

	CitizenID     *string `db:"citizen_id" json:"citizen_id,omitempty"`
	CitizenName   string  `db:"citizen_name" json:"citizen_name,omitempty"`
	CitizenMobile string  `db:"citizen_mobile" json:"citizen_mobile,omitempty"`
	FiledBy       *string `db:"filed_by" json:"filed_by,omitempty"`

	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category,omitempty"`
	Location    string `db:"location" json:"location,omitempty"`

	Village  string `db:"village" json:"village,omitempty"`
	Block    string `db:"block" json:"block,omitempty"`
	Tehsil   string `db:"tehsil" json:"tehsil,omitempty"`
	District string `db:"district" json:"district,omitempty"`
	State    string `db:"state" json:"state,omitempty"`
	Pincode  string `db:"pincode" json:"pincode,omitempty"`
	Landmark string `db:"landmark" json:"landmark,omitempty"`

	Attachments pq.StringArray `db:"attachments" json:"attachments"`

	Status     ComplaintStatus `db:"status" json:"status"`
	ManagedBy  *string         `db:"managed_by" json:"managed_by,omitempty"`
	AssignedTo *string         `db:"assigned_to" json:"assigned_to,omitempty"`

	ForwardedToOfficer    *string `db:"forwarded_to_officer" json:"forwarded_to_officer,omitempty"`
	ForwardedToDepartment *string `db:"forwarded_to_department" json:"forwarded_to_department,omitempty"`
	ForwardedToDM         *string `db:"forwarded_to_dm" json:"forwarded_to_dm,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Loaded timelines, newest entry last. Never mutated after append.
	Forwards          []ComplaintForward `db:"-" json:"forwards"`
	OfficerUpdates    []ComplaintUpdate  `db:"-" json:"officer_updates"`
	DepartmentUpdates []ComplaintUpdate  `db:"-" json:"department_updates"`
	CitizenRemarks    []CitizenRemark    `db:"-" json:"citizen_remarks"`
}

// ComplaintForward is one append-only forwarding record.
type ComplaintForward struct {
	ID          string            `db:"id" json:"id"`
	ComplaintID string            `db:"complaint_id" json:"-"`
	TargetType  ForwardTargetType `db:"target_type" json:"type"`
	TargetID    string            `db:"target_id" json:"to"`
	Remarks     string            `db:"remarks" json:"remarks,omitempty"`
	Attachment  string            `db:"attachment" json:"attachment,omitempty"`
	ForwardedBy string            `db:"forwarded_by" json:"forwarded_by"`
	CreatedAt   time.Time         `db:"created_at" json:"date"`
}

// ComplaintUpdate is one append-only status update in the officer or
// department timeline. Status snapshots the complaint status set by the
// update.
type ComplaintUpdate struct {
	ID          string          `db:"id" json:"id"`
	ComplaintID string          `db:"complaint_id" json:"-"`
	Category    UpdateCategory  `db:"category" json:"-"`
	UpdatedBy   string          `db:"updated_by" json:"updated_by"`
	Role        UserRole        `db:"role" json:"role"`
	Status      ComplaintStatus `db:"status" json:"status"`
	Remarks     string          `db:"remarks" json:"remarks,omitempty"`
	Attachment  string          `db:"attachment" json:"attachment,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"date"`
}

// CitizenRemark is citizen-authored feedback appended to a complaint.
type CitizenRemark struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"-"`
	Remark      string    `db:"remark" json:"remark"`
	Attachment  string    `db:"attachment" json:"attachment,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"date"`
}

// ComplaintFilter narrows ledger list queries. Zero values mean "no
// constraint"; at most one of the role-scope fields is set by ScopeFor.
type ComplaintFilter struct {
	CitizenID             string
	District              string
	ForwardedToDepartment string
	Status                ComplaintStatus
	FiledBy               string
	From                  *time.Time
	To                    *time.Time
	Limit                 int
	Offset                int
}

// ScopeFor returns the per-role visibility predicate for the ledger. This is
// the closed mapping every list endpoint routes through: citizens see their
// own filings, officers their district, departments their forwarded queue,
// DM and admins everything.
func ScopeFor(role UserRole, actor *User) ComplaintFilter {
	switch role {
	case RolePublic:
		return ComplaintFilter{CitizenID: actor.ID}
	case RoleOfficer:
		return ComplaintFilter{District: actor.District}
	case RoleDepartment:
		return ComplaintFilter{ForwardedToDepartment: actor.ID}
	case RoleDM, RoleAdmin, RoleSuperAdmin:
		return ComplaintFilter{}
	}
	// Unknown roles see nothing rather than everything.
	return ComplaintFilter{CitizenID: "\x00none"}
}

// ComplaintStats carries status aggregates for dashboards.
type ComplaintStats struct {
	Total      int `db:"total" json:"total"`
	Pending    int `db:"pending" json:"pending"`
	InProgress int `db:"in_progress" json:"in_progress"`
	Resolved   int `db:"resolved" json:"resolved"`
	Forwarded  int `db:"forwarded" json:"forwarded"`
	Rejected   int `db:"rejected" json:"rejected"`
}
