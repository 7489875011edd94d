package service

import (
	"strings"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
)

// Rejection reasons of the identity decision.
const (
	ReasonOcrMismatch    = "Fullname does not match with given pan"
	ReasonNameMismatch   = "Fullname does not match with pan card"
	ReasonPanAlreadyUsed = "This PAN is already added for this company/role"
)

// IdentityEngine decides between automatic approval, manual review and
// rejection for a PAN-backed identity. It has no side effects.
type IdentityEngine struct {
	now func() time.Time
}

func NewIdentityEngine(clock func() time.Time) *IdentityEngine {
	return &IdentityEngine{now: nowOr(clock)}
}

// NameMatches reports whether candidate contains claimed, ignoring case and
// surrounding spaces. This is containment, not equality: "Acme" matches
// "Acme Trading Pvt Ltd".
func NameMatches(candidate, claimed string) bool {
	c := strings.ToLower(strings.TrimSpace(candidate))
	if c == "" {
		return false
	}
	return strings.Contains(c, strings.ToLower(strings.TrimSpace(claimed)))
}

// Evaluate classifies a submission.
//
// With complete OCR data the PAN numbers must agree and the claimed name
// must appear in either the extracted or the submitted name. Without OCR
// the submitted name alone decides, and a match only earns manual review.
func (e *IdentityEngine) Evaluate(s domain.IdentitySubmission) domain.IdentityDecision {
	if s.HasOCR() {
		nameOK := NameMatches(s.ExtractedFullName, s.ClaimedFullName) || NameMatches(s.SubmittedFullName, s.ClaimedFullName)
		if nameOK && strings.TrimSpace(s.ExtractedPanNumber) == strings.TrimSpace(s.SubmittedPanNumber) {
			now := e.now()
			return domain.IdentityDecision{
				Outcome:    domain.IdentityAutoApproved,
				Mode:       domain.ModeAuto,
				Status:     domain.KycApproved,
				VerifiedAt: &now,
			}
		}
		return domain.IdentityDecision{Outcome: domain.IdentityRejected, Reason: ReasonOcrMismatch}
	}

	if NameMatches(s.SubmittedFullName, s.ClaimedFullName) {
		return domain.IdentityDecision{
			Outcome: domain.IdentityManualReview,
			Mode:    domain.ModeManual,
			Status:  domain.KycPending,
		}
	}
	return domain.IdentityDecision{Outcome: domain.IdentityRejected, Reason: ReasonNameMismatch}
}
