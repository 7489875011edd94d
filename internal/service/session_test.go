package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionTracker_FullVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.verifiedSession(t, "9876543210", "ops@acme.test")

	s, err := f.sessions.Verified(ctx, f.store, id)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", s.PhoneNumber)
	assert.Equal(t, "ops@acme.test", s.Email)
	assert.Equal(t, domain.RoleCompany, s.RoleValue)
	assert.True(t, s.PhoneVerified)
	assert.True(t, s.EmailVerified)
}

func TestSessionTracker_StepOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.sessions.Open(ctx, "9876543210", domain.RoleCompany)
	require.NoError(t, err)

	var invalid *domain.ErrInvalidSession
	require.ErrorAs(t, f.sessions.AttachEmail(ctx, id, "ops@acme.test"), &invalid)
	assert.Equal(t, "Phone number is not verified", invalid.Reason)

	require.ErrorAs(t, f.sessions.ConfirmEmail(ctx, id, service.DemoCodes.Email), &invalid)
	assert.Equal(t, "Email missing in session", invalid.Reason)

	// half-verified sessions cannot register
	require.NoError(t, f.sessions.ConfirmPhone(ctx, id, service.DemoCodes.Phone))
	_, err = f.sessions.Verified(ctx, f.store, id)
	require.ErrorAs(t, err, &invalid)
}

func TestSessionTracker_UnknownSession(t *testing.T) {
	f := newFixture(t)

	var invalid *domain.ErrInvalidSession
	require.ErrorAs(t, f.sessions.ConfirmPhone(context.Background(), "missing", "1234"), &invalid)
	assert.Equal(t, "Invalid session", invalid.Reason)
}

func TestSessionTracker_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.sessions.Open(ctx, "9876543210", domain.RoleCompany)
	require.NoError(t, err)
	f.clock.Advance(31 * time.Minute)

	var invalid *domain.ErrInvalidSession
	require.ErrorAs(t, f.sessions.ConfirmPhone(ctx, id, service.DemoCodes.Phone), &invalid)
	assert.Equal(t, "Session expired, please restart signup", invalid.Reason)
}

func TestSessionTracker_UnknownRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.sessions.Open(context.Background(), "9876543210", "investor")
	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Invalid role received", validation.Message)

	prod := service.NewSessionTracker(f.store, f.otp, service.SessionConfig{}, zap.NewNop())
	_, err = prod.Open(context.Background(), "9876543210", "investor")
	var internal *domain.ErrInternal
	require.ErrorAs(t, err, &internal)
	assert.Equal(t, "Something went wrong", internal.Message)
}

func TestSessionTracker_RegisteredPhoneAndEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approvedCompany(t, "9876543210", "ops@acme.test")

	_, err := f.sessions.Open(ctx, "9876543210", domain.RoleCompany)
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictPhoneRegistered, conflict.Code)

	// another phone may not claim the registered email
	id, err := f.sessions.Open(ctx, "9123456780", domain.RoleCompany)
	require.NoError(t, err)
	require.NoError(t, f.sessions.ConfirmPhone(ctx, id, service.DemoCodes.Phone))
	require.ErrorAs(t, f.sessions.AttachEmail(ctx, id, "ops@acme.test"), &conflict)
	assert.Equal(t, domain.ConflictEmailOtherUser, conflict.Code)
}
