package domain

import "time"

// Progress step tags.
const (
	StepCompanyKyc            = "company_kyc"
	StepPanVerified           = "pan_verified"
	StepTrusteeDocuments      = "trustee_documents"
	StepTrusteeBankDetails    = "trustee_bank_details"
	StepTrusteeSignatories    = "trustee_authorized_signatories"
	StepInitialize            = "initialize"
	StepFundPosition          = "fund_position"
	StepCreditRatings         = "credit_ratings"
	StepBorrowingDetails      = "borrowing_details"
	StepCapitalDetails        = "capital_details"
	StepProfitabilityDetails  = "profitability_details"
	StepFinancialDetails      = "financial_details"
	StepPreliminaryBondParams = "preliminary_requirements"
)

// AppendStep returns progress with tag appended if it was absent. The input
// slice is never modified.
func AppendStep(progress []string, tag string) []string {
	out := make([]string, 0, len(progress)+1)
	for _, p := range progress {
		if p == tag {
			return append(out, progress...)
		}
	}
	out = append(out, progress...)
	return append(out, tag)
}

// KycApplication tracks the verification workflow of one user in one role.
type KycApplication struct {
	ID               string           `json:"id"`
	RoleValue        string           `json:"roleValue"`
	UsersID          string           `json:"usersId"`
	IdentifierID     string           `json:"identifierId"`
	Status           KycStatus        `json:"status"`
	Mode             VerificationMode `json:"mode"`
	HumanInteraction bool             `json:"humanInteraction"`
	CurrentProgress  []string         `json:"currentProgress"`
	State            RecordState      `json:"-"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// KycDecision is the body for PATCH /v1/auth/handle-kyc-application.
type KycDecision struct {
	UserID       string `json:"userId" validate:"required"`
	RoleValue    string `json:"roleValue" validate:"required"`
	IdentifierID string `json:"identifierId" validate:"required"`
	Status       int    `json:"status"`
}

// KycDecisionResult is the outcome of an approval call.
type KycDecisionResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	KycStatus KycStatus `json:"kycStatus"`
}

// ============================================================
// Identity verification
// ============================================================

// IdentitySubmission is the input of the PAN identity decision. Extracted
// fields come from OCR and may be empty.
type IdentitySubmission struct {
	ClaimedFullName    string
	SubmittedFullName  string
	SubmittedPanNumber string
	SubmittedDOB       string
	ExtractedFullName  string
	ExtractedPanNumber string
	ExtractedDOB       string
}

// HasOCR reports whether every extracted field is present.
func (s IdentitySubmission) HasOCR() bool {
	return s.ExtractedFullName != "" && s.ExtractedPanNumber != "" && s.ExtractedDOB != ""
}

// IdentityOutcome is the result class of an identity decision.
type IdentityOutcome int

const (
	IdentityRejected IdentityOutcome = iota
	IdentityAutoApproved
	IdentityManualReview
)

func (o IdentityOutcome) String() string {
	switch o {
	case IdentityAutoApproved:
		return "auto_approved"
	case IdentityManualReview:
		return "manual_review"
	}
	return "rejected"
}

// IdentityDecision carries the verification fields to persist, or the
// rejection reason.
type IdentityDecision struct {
	Outcome    IdentityOutcome
	Mode       VerificationMode
	Status     KycStatus
	VerifiedAt *time.Time
	Reason     string
}

// ProgressResult is returned by GET /v1/kyc-applications/{id}/progress.
type ProgressResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	CurrentProgress []string `json:"currentProgress"`
}
