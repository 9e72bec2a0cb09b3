package models

import "time"

// FileComplaintRequest creates a new complaint. Citizen identity comes from
// the session for portal filings; walk-in filings carry name and mobile
// captured by the officer.
type FileComplaintRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Village     string   `json:"village"`
	Block       string   `json:"block"`
	Tehsil      string   `json:"tehsil"`
	District    string   `json:"district" validate:"required"`
	State       string   `json:"state"`
	Pincode     string   `json:"pincode"`
	Landmark    string   `json:"landmark"`
	CitizenName string   `json:"citizen_name"`
	CitizenMob  string   `json:"citizen_mobile"`
	Attachments []string `json:"attachments"`
}

// UpdateComplaintRequest appends a status update to a complaint timeline.
type UpdateComplaintRequest struct {
	Status     ComplaintStatus `json:"status" validate:"required"`
	Remarks    string          `json:"remarks"`
	Attachment string          `json:"attachment"`
}

// ForwardComplaintRequest hands a complaint to another handler. Target uses
// the "{type}:{id}" wire encoding.
type ForwardComplaintRequest struct {
	ForwardTo  string `json:"forward_to" validate:"required"`
	Remarks    string `json:"remarks"`
	Attachment string `json:"attachment"`
}

// CitizenRemarkRequest appends citizen feedback to a complaint.
type CitizenRemarkRequest struct {
	Remark     string `json:"remark" validate:"required"`
	Attachment string `json:"attachment"`
}

// ComplaintListQuery narrows a scoped ledger listing.
type ComplaintListQuery struct {
	Status ComplaintStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
