package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/cache"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/memory"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/observability"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- Fixtures ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store       *memory.Store
	media       *memory.MediaLedger
	metrics     *observability.Metrics
	clock       *fakeClock
	hasher      *service.BcryptHasher
	tokens      *service.JWTTokens
	otp         *service.OtpAuthority
	sessions    *service.SessionTracker
	access      *service.AccessControl
	progress    *service.ProgressTracker
	onboarding  *service.Onboarding
	auth        *service.AuthService
	estimations *service.EstimationWorkflow
}

func newFixture(t *testing.T, media ...domain.MediaRecord) *fixture {
	t.Helper()

	logger := zap.NewNop()
	grants := cache.New[*domain.Grants](time.Minute)
	t.Cleanup(grants.Close)

	f := &fixture{
		store:   memory.New(),
		media:   memory.NewMediaLedger(media...),
		metrics: observability.NewMetrics(),
		clock:   newFakeClock(),
		hasher:  service.NewBcryptHasher(bcrypt.MinCost),
		tokens:  service.NewJWTTokens("test-secret", "bonds-kyc-engine", 15*time.Minute),
	}
	env := service.Env{Development: true}

	f.otp = service.NewOtpAuthority(f.store, service.DemoCodes, service.OtpConfig{
		TTL:         5 * time.Minute,
		MaxAttempts: 3,
		Clock:       f.clock.Now,
	}, f.metrics, logger)
	f.sessions = service.NewSessionTracker(f.store, f.otp, service.SessionConfig{
		TTL:   30 * time.Minute,
		Env:   env,
		Clock: f.clock.Now,
	}, logger)
	f.access = service.NewAccessControl(f.store, grants, f.metrics, logger)
	f.progress = service.NewProgressTracker(f.store)
	f.onboarding = service.NewOnboarding(service.OnboardingDeps{
		Store:    f.store,
		Sessions: f.sessions,
		Identity: service.NewIdentityEngine(f.clock.Now),
		Progress: f.progress,
		Access:   f.access,
		Hasher:   f.hasher,
		Media:    f.media,
		Env:      env,
		Metrics:  f.metrics,
		Logger:   logger,
	})
	f.auth = service.NewAuthService(f.store, f.access, f.hasher, f.tokens, logger)
	f.estimations = service.NewEstimationWorkflow(f.store, service.RandomRatios{}, f.media, env, logger)
	return f
}

// verifiedSession walks a company signup through both OTP steps.
func (f *fixture) verifiedSession(t *testing.T, phone, email string) string {
	t.Helper()
	ctx := context.Background()

	id, err := f.sessions.Open(ctx, phone, domain.RoleCompany)
	require.NoError(t, err)
	require.NoError(t, f.sessions.ConfirmPhone(ctx, id, service.DemoCodes.Phone))
	require.NoError(t, f.sessions.AttachEmail(ctx, id, email))
	require.NoError(t, f.sessions.ConfirmEmail(ctx, id, service.DemoCodes.Email))
	return id
}

func registration(sessionID string) *domain.CompanyRegistration {
	return &domain.CompanyRegistration{
		SessionID:               sessionID,
		Password:                "s3cret-pass",
		CompanyName:             "Acme Steel Pvt Ltd",
		CIN:                     "U27100MH2019PTC123456",
		GSTIN:                   "27ABCDE1234F1Z5",
		UdyamRegistrationNumber: "UDYAM-MH-01-0001234",
		DateOfIncorporation:     "2019-04-01",
		CityOfIncorporation:     "Mumbai",
		StateOfIncorporation:    "Maharashtra",
		CountryOfIncorporation:  "India",
		SubmittedPanDetails: domain.SubmittedPanDetails{
			SubmittedCompanyName: "Acme Steel Pvt Ltd",
			SubmittedPanNumber:   "ABCDE1234F",
			SubmittedDOB:         "2019-04-01",
		},
		PanCardDocumentID:   "media-pan",
		CompanyEntityTypeID: "entity-pvt",
		CompanySectorTypeID: "sector-steel",
	}
}

// approvedCompany registers a company on the automatic path and returns the
// registration result.
func (f *fixture) approvedCompany(t *testing.T, phone, email string) *domain.RegistrationResult {
	t.Helper()

	req := registration(f.verifiedSession(t, phone, email))
	res, err := f.onboarding.RegisterCompany(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, domain.KycApproved, res.KycStatus)
	return res
}
