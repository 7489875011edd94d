// Package service holds the onboarding, KYC and bond-estimation use cases.
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/observability"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var otpTracer = otel.Tracer("service/otp")

const (
	defaultOtpTTL         = 5 * time.Minute
	defaultOtpMaxAttempts = 3
)

// FixedCodes hands out the same code for every challenge of a type. It is
// the demo mode of the platform.
type FixedCodes struct {
	Phone string
	Email string
}

// DemoCodes are the codes used when OTP_MODE=fixed.
var DemoCodes = FixedCodes{Phone: "1234", Email: "4321"}

func (f FixedCodes) Code(_ string, t domain.OtpType) (string, error) {
	if t == domain.OtpEmail {
		return f.Email, nil
	}
	return f.Phone, nil
}

// RandomCodes generates numeric codes of the given length.
type RandomCodes struct {
	Digits int
}

func (r RandomCodes) Code(string, domain.OtpType) (string, error) {
	n := r.Digits
	if n <= 0 {
		n = 4
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp digit: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// OtpConfig tunes the OtpAuthority.
type OtpConfig struct {
	TTL         time.Duration
	MaxAttempts int
	Clock       func() time.Time
}

// OtpAuthority issues and verifies one-time codes.
type OtpAuthority struct {
	store       port.Store
	codes       port.OtpCodeSource
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	metrics     *observability.Metrics
	logger      *zap.Logger
}

func NewOtpAuthority(store port.Store, codes port.OtpCodeSource, cfg OtpConfig, metrics *observability.Metrics, logger *zap.Logger) *OtpAuthority {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultOtpTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultOtpMaxAttempts
	}
	if codes == nil {
		codes = DemoCodes
	}
	return &OtpAuthority{
		store:       store,
		codes:       codes,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
		now:         nowOr(cfg.Clock),
		metrics:     metrics,
		logger:      logger,
	}
}

// Issue supersedes every live challenge for (identifier, t) and creates a
// new one. Both writes share one transaction, so there is never a moment
// with zero or two live challenges.
func (a *OtpAuthority) Issue(ctx context.Context, identifier string, t domain.OtpType) (string, error) {
	ctx, span := otpTracer.Start(ctx, "OtpAuthority.Issue")
	defer span.End()
	span.SetAttributes(attribute.String("otp.type", t.String()))

	code, err := a.codes.Code(identifier, t)
	if err != nil {
		return "", err
	}

	now := a.now()
	challenge := &domain.OtpChallenge{
		Code:       code,
		Type:       t,
		Identifier: identifier,
		ExpiresAt:  now.Add(a.ttl),
	}
	err = inTx(ctx, a.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		if err := uow.InvalidateChallenges(ctx, identifier, t, now); err != nil {
			return fmt.Errorf("invalidate challenges: %w", err)
		}
		if err := uow.CreateChallenge(ctx, challenge); err != nil {
			return fmt.Errorf("create challenge: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	a.metrics.IncrOtpIssued(t.String())
	a.logger.Debug("otp issued",
		zap.String("challenge_id", challenge.ID),
		zap.String("type", t.String()),
	)
	return challenge.ID, nil
}

// Verify checks code against the newest unused challenge. Every comparison
// first claims one attempt in the store, so concurrent callers can never
// compare more than maxAttempts codes against a challenge or consume it
// twice. The writes it makes on failure (attempt count, expiry) are kept.
func (a *OtpAuthority) Verify(ctx context.Context, identifier string, t domain.OtpType, code string) error {
	ctx, span := otpTracer.Start(ctx, "OtpAuthority.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("otp.type", t.String()))

	result, err := a.verify(ctx, identifier, t, code)
	if result != "" {
		a.metrics.IncrOtpVerification(t.String(), result)
	}
	return err
}

func (a *OtpAuthority) verify(ctx context.Context, identifier string, t domain.OtpType, code string) (string, error) {
	c, err := a.store.LatestUnusedChallenge(ctx, identifier, t)
	if err != nil {
		return "", fmt.Errorf("load challenge: %w", err)
	}
	if c == nil {
		return "not_found", otpNotFound()
	}

	if c.Attempts >= a.maxAttempts {
		return "exhausted", &domain.ErrTooManyAttempts{Max: a.maxAttempts}
	}

	now := a.now()
	if !now.Before(c.ExpiresAt) {
		if err := a.store.MarkChallengeUsed(ctx, c.ID, now); err != nil {
			return "", fmt.Errorf("expire challenge: %w", err)
		}
		return "expired", &domain.ErrExpired{Resource: "OTP"}
	}

	attempts, ok, err := a.store.ClaimChallengeAttempt(ctx, c.ID, a.maxAttempts)
	if err != nil {
		return "", fmt.Errorf("claim attempt: %w", err)
	}
	if !ok {
		return a.lostRace(ctx, identifier, t, c.ID)
	}

	if subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) != 1 {
		a.logger.Info("otp mismatch",
			zap.String("challenge_id", c.ID),
			zap.Int("attempts", attempts),
		)
		return "invalid", &domain.ErrInvalidCode{}
	}

	consumed, err := a.store.ConsumeChallenge(ctx, c.ID, now)
	if err != nil {
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	if !consumed {
		return "not_found", otpNotFound()
	}
	return "verified", nil
}

// lostRace classifies a challenge another caller used up between our read
// and our claim.
func (a *OtpAuthority) lostRace(ctx context.Context, identifier string, t domain.OtpType, id string) (string, error) {
	c, err := a.store.LatestUnusedChallenge(ctx, identifier, t)
	if err != nil {
		return "", fmt.Errorf("reload challenge: %w", err)
	}
	if c == nil || c.ID != id {
		return "not_found", otpNotFound()
	}
	return "exhausted", &domain.ErrTooManyAttempts{Max: a.maxAttempts}
}

func otpNotFound() error {
	return &domain.ErrNotFound{Resource: "otp", Message: "OTP expired or not found"}
}
