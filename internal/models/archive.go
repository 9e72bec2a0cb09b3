package models

import "time"

// DeletedUser is the point-in-time archival snapshot taken when an account is
// soft-deleted. Created once and never mutated.
type DeletedUser struct {
	ID             string    `db:"id" json:"id"`
	OriginalUserID string    `db:"original_user_id" json:"original_user_id"`
	Role           UserRole  `db:"role" json:"role"`
	Email          string    `db:"email" json:"email"`
	UniqueCode     string    `db:"unique_code" json:"unique_code"`
	FullData       []byte    `db:"full_data" json:"full_data"`
	RelatedData    []byte    `db:"related_data" json:"related_data"`
	DeletedBy      string    `db:"deleted_by" json:"deleted_by"`
	Reason         string    `db:"reason" json:"reason,omitempty"`
	DeletedAt      time.Time `db:"deleted_at" json:"deleted_at"`
}

// ArchiveFilter captures filtering criteria for browsing deleted accounts.
type ArchiveFilter struct {
	Role   *UserRole
	Search string
	Limit  int
	Offset int
}
