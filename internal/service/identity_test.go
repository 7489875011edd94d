package service_test

import (
	"testing"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameMatches(t *testing.T) {
	tests := []struct {
		candidate, claimed string
		want               bool
	}{
		{"Ravi Kumar", "Ravi Kumar", true},
		{"  RAVI KUMAR ", "ravi kumar", true},
		{"Acme Trading Pvt Ltd", "Acme", true},
		{"Acme", "Acme Trading Pvt Ltd", false},
		{"Ravi Kumar", "Ravi Sharma", false},
		{"", "Ravi", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.NameMatches(tt.candidate, tt.claimed), "%q contains %q", tt.candidate, tt.claimed)
	}
}

func TestIdentityEngine_AutoApproveWithOCR(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := service.NewIdentityEngine(func() time.Time { return at })

	d := engine.Evaluate(domain.IdentitySubmission{
		ClaimedFullName:    "Ravi Kumar",
		SubmittedFullName:  "Ravi Kumar",
		SubmittedPanNumber: "ABCDE1234F",
		SubmittedDOB:       "1985-06-15",
		ExtractedFullName:  "RAVI KUMAR",
		ExtractedPanNumber: "ABCDE1234F",
		ExtractedDOB:       "1985-06-15",
	})

	assert.Equal(t, domain.IdentityAutoApproved, d.Outcome)
	assert.Equal(t, domain.ModeAuto, d.Mode)
	assert.Equal(t, domain.KycApproved, d.Status)
	require.NotNil(t, d.VerifiedAt)
	assert.True(t, d.VerifiedAt.Equal(at))
}

func TestIdentityEngine_SubmittedNameCoversOCRName(t *testing.T) {
	d := service.NewIdentityEngine(nil).Evaluate(domain.IdentitySubmission{
		ClaimedFullName:    "Ravi Kumar",
		SubmittedFullName:  "Ravi Kumar",
		SubmittedPanNumber: "ABCDE1234F",
		ExtractedFullName:  "R KUMAR",
		ExtractedPanNumber: "ABCDE1234F",
		ExtractedDOB:       "1985-06-15",
	})
	assert.Equal(t, domain.IdentityAutoApproved, d.Outcome)
}

func TestIdentityEngine_RejectsOCRPanMismatch(t *testing.T) {
	d := service.NewIdentityEngine(nil).Evaluate(domain.IdentitySubmission{
		ClaimedFullName:    "Ravi Kumar",
		SubmittedFullName:  "Ravi Kumar",
		SubmittedPanNumber: "ABCDE1234F",
		ExtractedFullName:  "Ravi Kumar",
		ExtractedPanNumber: "ZZZZZ9999Z",
		ExtractedDOB:       "1985-06-15",
	})

	assert.Equal(t, domain.IdentityRejected, d.Outcome)
	assert.Equal(t, service.ReasonOcrMismatch, d.Reason)
	assert.Nil(t, d.VerifiedAt)
}

func TestIdentityEngine_ManualReviewWithoutOCR(t *testing.T) {
	// partial OCR data counts as no OCR
	d := service.NewIdentityEngine(nil).Evaluate(domain.IdentitySubmission{
		ClaimedFullName:    "Ravi Kumar",
		SubmittedFullName:  "Mr Ravi Kumar",
		SubmittedPanNumber: "ABCDE1234F",
		ExtractedPanNumber: "ABCDE1234F",
	})

	assert.Equal(t, domain.IdentityManualReview, d.Outcome)
	assert.Equal(t, domain.ModeManual, d.Mode)
	assert.Equal(t, domain.KycPending, d.Status)
	assert.Nil(t, d.VerifiedAt)
}

func TestIdentityEngine_RejectsNameMismatchWithoutOCR(t *testing.T) {
	d := service.NewIdentityEngine(nil).Evaluate(domain.IdentitySubmission{
		ClaimedFullName:    "Ravi Kumar",
		SubmittedFullName:  "Anil Mehta",
		SubmittedPanNumber: "ABCDE1234F",
	})

	assert.Equal(t, domain.IdentityRejected, d.Outcome)
	assert.Equal(t, service.ReasonNameMismatch, d.Reason)
}
