package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var sessionTracer = otel.Tracer("service/session")

const defaultSessionTTL = 30 * time.Minute

// SessionConfig tunes the SessionTracker.
type SessionConfig struct {
	TTL   time.Duration
	Env   Env
	Clock func() time.Time
}

// SessionTracker links a phone number, and later an email, through their
// OTP checks before any permanent record exists.
type SessionTracker struct {
	store  port.Store
	otp    *OtpAuthority
	ttl    time.Duration
	env    Env
	now    func() time.Time
	logger *zap.Logger
}

func NewSessionTracker(store port.Store, otp *OtpAuthority, cfg SessionConfig, logger *zap.Logger) *SessionTracker {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	return &SessionTracker{
		store:  store,
		otp:    otp,
		ttl:    cfg.TTL,
		env:    cfg.Env,
		now:    nowOr(cfg.Clock),
		logger: logger,
	}
}

// ============================================================
// Open: POST /v1/auth/send-phone-otp
// ============================================================

func (t *SessionTracker) Open(ctx context.Context, phone, roleValue string) (string, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionTracker.Open")
	defer span.End()
	span.SetAttributes(attribute.String("role", roleValue))

	role, err := t.store.FindRoleByValue(ctx, roleValue)
	if err != nil {
		return "", fmt.Errorf("find role: %w", err)
	}
	if role == nil {
		return "", t.env.invalidRole(roleValue)
	}

	user, err := t.store.FindUserByPhone(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("find user by phone: %w", err)
	}
	if user != nil {
		has, err := t.store.UserHasRole(ctx, user.ID, role.ID)
		if err != nil {
			return "", fmt.Errorf("check user role: %w", err)
		}
		if has {
			return "", &domain.ErrConflict{
				Code:    domain.ConflictPhoneRegistered,
				Message: "Phone number is already registered as " + role.Label,
			}
		}
	}

	if _, err := t.otp.Issue(ctx, phone, domain.OtpPhone); err != nil {
		return "", t.env.internal("Failed to create otp", err)
	}

	now := t.now()
	session := &domain.RegistrationSession{
		PhoneNumber: phone,
		RoleValue:   role.Value,
		State:       domain.StateActive,
		ExpiresAt:   now.Add(t.ttl),
		CreatedAt:   now,
	}
	if err := t.store.CreateSession(ctx, session); err != nil {
		return "", t.env.internal("Failed to create registration session", err)
	}

	t.logger.Info("registration session opened",
		zap.String("session_id", session.ID),
		zap.String("role", role.Value),
	)
	return session.ID, nil
}

// ============================================================
// ConfirmPhone: POST /v1/auth/verify-phone-otp
// ============================================================

func (t *SessionTracker) ConfirmPhone(ctx context.Context, sessionID, code string) error {
	ctx, span := sessionTracer.Start(ctx, "SessionTracker.ConfirmPhone")
	defer span.End()

	session, err := t.usable(ctx, t.store, sessionID)
	if err != nil {
		return err
	}
	if session.PhoneNumber == "" {
		return &domain.ErrInvalidSession{Reason: "Phone number missing in session"}
	}
	if err := t.otp.Verify(ctx, session.PhoneNumber, domain.OtpPhone, code); err != nil {
		return err
	}
	if err := t.store.MarkPhoneVerified(ctx, session.ID); err != nil {
		return fmt.Errorf("mark phone verified: %w", err)
	}
	return nil
}

// ============================================================
// AttachEmail: POST /v1/auth/send-email-otp
// ============================================================

func (t *SessionTracker) AttachEmail(ctx context.Context, sessionID, email string) error {
	ctx, span := sessionTracer.Start(ctx, "SessionTracker.AttachEmail")
	defer span.End()

	session, err := t.usable(ctx, t.store, sessionID)
	if err != nil {
		return err
	}
	if !session.PhoneVerified {
		return &domain.ErrInvalidSession{Reason: "Phone number is not verified"}
	}

	role, err := t.store.FindRoleByValue(ctx, session.RoleValue)
	if err != nil {
		return fmt.Errorf("find role: %w", err)
	}
	if role == nil {
		return t.env.invalidRole(session.RoleValue)
	}

	user, err := t.store.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if user != nil {
		if user.Phone != session.PhoneNumber {
			return &domain.ErrConflict{
				Code:    domain.ConflictEmailOtherUser,
				Message: "Email is already registered with another user",
			}
		}
		has, err := t.store.UserHasRole(ctx, user.ID, role.ID)
		if err != nil {
			return fmt.Errorf("check user role: %w", err)
		}
		if has {
			return &domain.ErrConflict{
				Code:    domain.ConflictEmailRegistered,
				Message: "Email is already registered as " + role.Label,
			}
		}
	}

	if _, err := t.otp.Issue(ctx, email, domain.OtpEmail); err != nil {
		return t.env.internal("Failed to create otp", err)
	}
	if err := t.store.AttachSessionEmail(ctx, session.ID, email); err != nil {
		return fmt.Errorf("attach email: %w", err)
	}
	return nil
}

// ============================================================
// ConfirmEmail: POST /v1/auth/verify-email-otp
// ============================================================

func (t *SessionTracker) ConfirmEmail(ctx context.Context, sessionID, code string) error {
	ctx, span := sessionTracer.Start(ctx, "SessionTracker.ConfirmEmail")
	defer span.End()

	session, err := t.usable(ctx, t.store, sessionID)
	if err != nil {
		return err
	}
	if session.Email == "" {
		return &domain.ErrInvalidSession{Reason: "Email missing in session"}
	}
	if err := t.otp.Verify(ctx, session.Email, domain.OtpEmail, code); err != nil {
		return err
	}
	if err := t.store.MarkEmailVerified(ctx, session.ID); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

// usable loads a session that is neither consumed nor expired.
func (t *SessionTracker) usable(ctx context.Context, repos port.Repositories, id string) (*domain.RegistrationSession, error) {
	session, err := repos.GetSession(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.ErrInvalidSession{Reason: "Invalid session"}
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !session.State.IsActive() {
		return nil, &domain.ErrInvalidSession{Reason: "Invalid session"}
	}
	if session.Expired(t.now()) {
		return nil, &domain.ErrInvalidSession{Reason: "Session expired, please restart signup"}
	}
	return session, nil
}

// Verified loads a session that passed both OTP steps, for use inside a
// registration unit of work.
func (t *SessionTracker) Verified(ctx context.Context, repos port.Repositories, id string) (*domain.RegistrationSession, error) {
	session, err := t.usable(ctx, repos, id)
	if err != nil || !session.PhoneVerified || !session.EmailVerified {
		if err != nil && !isInvalidSession(err) {
			return nil, err
		}
		return nil, &domain.ErrInvalidSession{Reason: "Session is not valid"}
	}
	return session, nil
}
