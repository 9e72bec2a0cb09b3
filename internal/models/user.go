package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RolePublic     UserRole = "public"
	RoleOfficer    UserRole = "officer"
	RoleDepartment UserRole = "department"
	RoleDM         UserRole = "dm"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "superadmin"
)

// Valid reports whether the role is one of the closed set.
func (r UserRole) Valid() bool {
	switch r {
	case RolePublic, RoleOfficer, RoleDepartment, RoleDM, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// UpdateCategory maps a role onto the complaint timeline it writes to.
// Admin and superadmin updates land in the officer timeline, matching the
// portal's original update-record role set.
func (r UserRole) UpdateCategory() UpdateCategory {
	if r == RoleDepartment {
		return UpdateCategoryDepartment
	}
	return UpdateCategoryOfficer
}

// User represents a portal account stored in the users table.
type User struct {
	ID             string     `db:"id" json:"id"`
	UniqueCode     string     `db:"unique_code" json:"unique_code"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Phone          string     `db:"phone" json:"phone"`
	Role           UserRole   `db:"role" json:"role"`
	District       string     `db:"district" json:"district"`
	State          string     `db:"state" json:"state"`
	Pincode        string     `db:"pincode" json:"pincode"`
	DepartmentName string     `db:"department_name" json:"department_name,omitempty"`
	Designation    string     `db:"designation" json:"designation,omitempty"`
	Photo          string     `db:"photo" json:"photo,omitempty"`
	IsDeleted      bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts for display.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ActorRef is the display-safe projection of a user embedded in public
// responses. It never carries credentials.
type ActorRef struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Role  UserRole `json:"role"`
}

// Ref returns the display-safe projection of the user.
func (u *User) Ref() ActorRef {
	return ActorRef{ID: u.ID, Name: u.FullName(), Email: u.Email, Role: u.Role}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role           *UserRole
	District       string
	IncludeDeleted bool
	Search         string
	Page           int
	PageSize       int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
