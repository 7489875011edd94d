package domain

import "time"

// OtpChallenge is a one-time code bound to an identifier and a purpose.
type OtpChallenge struct {
	ID         string    `json:"id"`
	Code       string    `json:"-"`
	Type       OtpType   `json:"type"`
	Identifier string    `json:"identifier"`
	Attempts   int       `json:"attempts"`
	IsUsed     bool      `json:"isUsed"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Live reports whether the challenge can still be verified at now.
func (c *OtpChallenge) Live(now time.Time) bool {
	return !c.IsUsed && now.Before(c.ExpiresAt)
}

// RegistrationSession links a phone number, and later an email, through
// their verification steps before a permanent account exists.
type RegistrationSession struct {
	ID            string      `json:"id"`
	PhoneNumber   string      `json:"phoneNumber"`
	Email         string      `json:"email,omitempty"`
	PhoneVerified bool        `json:"phoneVerified"`
	EmailVerified bool        `json:"emailVerified"`
	RoleValue     string      `json:"roleValue"`
	State         RecordState `json:"-"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Expired reports whether the session is past its validity window at now.
func (s *RegistrationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ============================================================
// Registration: Request / Response types
// ============================================================

// SendPhoneOtpRequest is the body for POST /v1/auth/send-phone-otp.
type SendPhoneOtpRequest struct {
	Phone string `json:"phone" validate:"required,min=8,max=15"`
	Role  string `json:"role" validate:"required"`
}

// SendEmailOtpRequest is the body for POST /v1/auth/send-email-otp.
type SendEmailOtpRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// VerifyOtpRequest is the body for the verify-*-otp endpoints.
type VerifyOtpRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Otp       string `json:"otp" validate:"required"`
}

// SessionResult is returned by the OTP and session endpoints.
type SessionResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}
