// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// MediaLedger flips the "used" flag on uploaded file records. Callers treat
// it as best effort.
type MediaLedger interface {
	SetUsed(ctx context.Context, ids []string, used bool) error
}

// HashingService hashes and verifies passwords.
type HashingService interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenClaims are the identity claims carried by an access token.
type TokenClaims struct {
	UserID      string
	Email       string
	Phone       string
	Roles       []string
	Permissions []string
}

// TokenService issues and validates access tokens.
type TokenService interface {
	Issue(claims TokenClaims) (string, error)
	Validate(token string) (*TokenClaims, error)
	TTL() time.Duration
}

// OtpCodeSource produces the code for a new OTP challenge.
type OtpCodeSource interface {
	Code(identifier string, t domain.OtpType) (string, error)
}

// RatioGenerator derives financial ratios for a bond estimation.
type RatioGenerator interface {
	Generate(est *domain.BondEstimation) (*domain.FinancialRatios, error)
}
