package domain

import "time"

// Role values seeded as reference data.
const (
	RoleSuperAdmin = "super_admin"
	RoleCompany    = "company"
	RoleTrustee    = "trustee"
)

// User is a platform account. Company and trustee users stay inactive until
// their KYC is approved.
type User struct {
	ID           string      `json:"id"`
	FullName     string      `json:"fullName,omitempty"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	PasswordHash string      `json:"-"`
	State        RecordState `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Role is static reference data.
type Role struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Label string `json:"label"`
}

// Grants is the role and permission set of a user, as carried in tokens.
type Grants struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// ============================================================
// Auth: Request / Response types
// ============================================================

// CreateSuperAdminRequest is the body for POST /v1/auth/super-admin.
type CreateSuperAdminRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the body for the login endpoints.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by the login endpoints.
type LoginResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	AccessToken string      `json:"accessToken"`
	ExpiresIn   int         `json:"expiresIn"`
	User        UserProfile `json:"user"`
}

// UserProfile is the user view returned after login.
type UserProfile struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	FullName    string          `json:"fullName,omitempty"`
	Roles       []string        `json:"roles"`
	Permissions []string        `json:"permissions"`
	Company     *CompanyProfile `json:"company,omitempty"`
}

// UpdatePasswordRequest is the body for POST /v1/auth/update-password.
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// SuperAdminResult is returned by POST /v1/auth/super-admin.
type SuperAdminResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// ActionResult is the bare response envelope.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
