package service_test

import (
	"context"
	"testing"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCompany_AutomaticPath(t *testing.T) {
	f := newFixture(t, domain.MediaRecord{ID: "media-pan"})
	ctx := context.Background()

	sessionID := f.verifiedSession(t, "9876543210", "ops@acme.test")
	res, err := f.onboarding.RegisterCompany(ctx, registration(sessionID))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.KycApproved, res.KycStatus)

	user, err := f.store.GetUser(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, user.State)
	assert.True(t, f.hasher.Verify("s3cret-pass", user.PasswordHash))

	profile, err := f.store.GetCompanyProfile(ctx, res.CompanyProfileID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, profile.State)

	kyc, err := f.store.GetKycApplication(ctx, res.KycApplicationID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuto, kyc.Mode)
	assert.Equal(t, []string{domain.StepCompanyKyc, domain.StepPanVerified}, kyc.CurrentProgress)

	pan, err := f.store.LatestPanRecord(ctx, res.CompanyProfileID)
	require.NoError(t, err)
	require.NotNil(t, pan)
	assert.Equal(t, domain.KycApproved, pan.Status)
	assert.Equal(t, domain.StateActive, pan.State)

	grants, err := f.access.RolesAndPermissions(ctx, res.UserID, domain.RoleCompany)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleCompany}, grants.Roles)

	media, ok := f.media.Get("media-pan")
	require.True(t, ok)
	assert.True(t, media.IsUsed)

	// the session is spent
	_, err = f.onboarding.RegisterCompany(ctx, registration(sessionID))
	var invalid *domain.ErrInvalidSession
	require.ErrorAs(t, err, &invalid)

	assert.Equal(t, float64(1), f.metrics.Snapshot().AutoRegistrations)
}

func TestRegisterCompany_NameMismatchRollsBack(t *testing.T) {
	f := newFixture(t, domain.MediaRecord{ID: "media-pan"})
	ctx := context.Background()

	sessionID := f.verifiedSession(t, "9876543210", "ops@acme.test")
	req := registration(sessionID)
	req.SubmittedPanDetails.SubmittedCompanyName = "Acme Steels"

	_, err := f.onboarding.RegisterCompany(ctx, req)
	var mismatch *domain.ErrNameMismatch
	require.ErrorAs(t, err, &mismatch)

	user, err := f.store.FindUserByEmail(ctx, "ops@acme.test")
	require.NoError(t, err)
	assert.Nil(t, user)
	exists, err := f.store.CompanyExistsByCIN(ctx, req.CIN)
	require.NoError(t, err)
	assert.False(t, exists)
	media, _ := f.media.Get("media-pan")
	assert.False(t, media.IsUsed)

	// the same session can retry with corrected data
	res, err := f.onboarding.RegisterCompany(ctx, registration(sessionID))
	require.NoError(t, err)
	assert.Equal(t, domain.KycApproved, res.KycStatus)
}

func TestRegisterCompany_OCRMustCorroborate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := registration(f.verifiedSession(t, "9876543210", "ops@acme.test"))
	req.ExtractedPanDetails = &domain.ExtractedPanDetails{
		ExtractedCompanyName: "Acme Steel Pvt Ltd",
		ExtractedPanNumber:   "ZZZZZ9999Z",
		ExtractedDOB:         "2019-04-01",
	}

	_, err := f.onboarding.RegisterCompany(ctx, req)
	var mismatch *domain.ErrNameMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Fullname does not match with given pan", mismatch.Message)
}

func TestRegisterCompany_ManualPathThenApproval(t *testing.T) {
	f := newFixture(t, domain.MediaRecord{ID: "media-pan"})
	ctx := context.Background()

	req := registration(f.verifiedSession(t, "9876543210", "ops@acme.test"))
	req.HumanInteraction = true
	req.SubmittedPanDetails.SubmittedCompanyName = "Acme Steels"

	res, err := f.onboarding.RegisterCompany(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.KycPending, res.KycStatus)

	user, err := f.store.GetUser(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInactive, user.State)
	grants, err := f.access.RolesAndPermissions(ctx, res.UserID, domain.RoleCompany)
	require.NoError(t, err)
	assert.Empty(t, grants.Roles)
	media, _ := f.media.Get("media-pan")
	assert.False(t, media.IsUsed)

	_, err = f.auth.CompanyLogin(ctx, &domain.LoginRequest{Email: "ops@acme.test", Password: "s3cret-pass"})
	var unauthorized *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)

	decision, err := f.onboarding.ApproveOrRejectKyc(ctx, &domain.KycDecision{
		UserID:       res.UserID,
		RoleValue:    domain.RoleCompany,
		IdentifierID: res.CompanyProfileID,
		Status:       int(domain.KycApproved),
	})
	require.NoError(t, err)
	assert.Equal(t, "Company KYC approved successfully", decision.Message)

	kyc, err := f.store.GetKycApplication(ctx, res.KycApplicationID)
	require.NoError(t, err)
	assert.Equal(t, domain.KycApproved, kyc.Status)
	assert.Equal(t, []string{domain.StepCompanyKyc}, kyc.CurrentProgress)

	pan, err := f.store.LatestPanRecord(ctx, res.CompanyProfileID)
	require.NoError(t, err)
	assert.Equal(t, domain.KycApproved, pan.Status)

	// the cached empty grants were dropped by the role assignment
	login, err := f.auth.CompanyLogin(ctx, &domain.LoginRequest{Email: "ops@acme.test", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleCompany}, login.User.Roles)
	require.NotNil(t, login.User.Company)
	assert.Equal(t, res.CompanyProfileID, login.User.Company.ID)
}

func TestApproveOrRejectKyc_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := registration(f.verifiedSession(t, "9876543210", "ops@acme.test"))
	req.HumanInteraction = true
	res, err := f.onboarding.RegisterCompany(ctx, req)
	require.NoError(t, err)

	decision, err := f.onboarding.ApproveOrRejectKyc(ctx, &domain.KycDecision{
		UserID:       res.UserID,
		RoleValue:    domain.RoleCompany,
		IdentifierID: res.CompanyProfileID,
		Status:       int(domain.KycRejected),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KycRejected, decision.KycStatus)

	profile, err := f.store.GetCompanyProfile(ctx, res.CompanyProfileID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInactive, profile.State)

	// rejection still flags the PAN record as approved
	pan, err := f.store.LatestPanRecord(ctx, res.CompanyProfileID)
	require.NoError(t, err)
	assert.Equal(t, domain.KycApproved, pan.Status)

	snap := f.metrics.Snapshot()
	assert.Equal(t, float64(1), snap.ManualRegistrations)
	assert.Equal(t, float64(1), snap.KycRejected)
}

func TestApproveOrRejectKyc_InvalidStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := registration(f.verifiedSession(t, "9876543210", "ops@acme.test"))
	req.HumanInteraction = true
	res, err := f.onboarding.RegisterCompany(ctx, req)
	require.NoError(t, err)

	_, err = f.onboarding.ApproveOrRejectKyc(ctx, &domain.KycDecision{
		UserID:       res.UserID,
		RoleValue:    domain.RoleCompany,
		IdentifierID: res.CompanyProfileID,
		Status:       7,
	})
	var invalid *domain.ErrInvalidStatus
	require.ErrorAs(t, err, &invalid)

	kyc, err := f.store.GetKycApplication(ctx, res.KycApplicationID)
	require.NoError(t, err)
	assert.Equal(t, domain.KycPending, kyc.Status)
}

func TestApproveOrRejectKyc_IdentifierMustMatchApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := registration(f.verifiedSession(t, "9876543210", "ops@acme.test"))
	first.HumanInteraction = true
	a, err := f.onboarding.RegisterCompany(ctx, first)
	require.NoError(t, err)

	second := registration(f.verifiedSession(t, "9123456780", "ops@zenith.test"))
	second.HumanInteraction = true
	second.CIN = "U27100MH2019PTC654321"
	second.GSTIN = "27ZYXWV9876K1Z2"
	second.SubmittedPanDetails.SubmittedPanNumber = "ZYXWV9876K"
	b, err := f.onboarding.RegisterCompany(ctx, second)
	require.NoError(t, err)

	_, err = f.onboarding.ApproveOrRejectKyc(ctx, &domain.KycDecision{
		UserID:       a.UserID,
		RoleValue:    domain.RoleCompany,
		IdentifierID: b.CompanyProfileID,
		Status:       int(domain.KycApproved),
	})
	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)

	profile, err := f.store.GetCompanyProfile(ctx, b.CompanyProfileID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInactive, profile.State)
	kyc, err := f.store.GetKycApplication(ctx, a.KycApplicationID)
	require.NoError(t, err)
	assert.Equal(t, domain.KycPending, kyc.Status)
}

func TestApproveOrRejectKyc_NoApplication(t *testing.T) {
	f := newFixture(t)

	_, err := f.onboarding.ApproveOrRejectKyc(context.Background(), &domain.KycDecision{
		UserID:       "nobody",
		RoleValue:    domain.RoleCompany,
		IdentifierID: "nothing",
		Status:       int(domain.KycApproved),
	})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestRegisterCompany_DuplicateIdentifiers(t *testing.T) {
	f := newFixture(t, domain.MediaRecord{ID: "media-pan"}, domain.MediaRecord{ID: "media-pan-retry"})
	ctx := context.Background()
	f.approvedCompany(t, "9876543210", "ops@acme.test")

	tests := []struct {
		name  string
		edit  func(*domain.CompanyRegistration)
		code  string
		phone string
		email string
	}{
		{
			name:  "cin",
			edit:  func(*domain.CompanyRegistration) {},
			code:  domain.ConflictDuplicateCIN,
			phone: "9111111111",
			email: "a@other.test",
		},
		{
			name:  "gstin",
			edit:  func(r *domain.CompanyRegistration) { r.CIN = "U27100MH2019PTC654321" },
			code:  domain.ConflictDuplicateGSTIN,
			phone: "9222222222",
			email: "b@other.test",
		},
		{
			name: "approved pan",
			edit: func(r *domain.CompanyRegistration) {
				r.CIN = "U27100MH2019PTC777777"
				r.GSTIN = "27ZYXWV9876K1Z2"
			},
			code:  domain.ConflictDuplicatePAN,
			phone: "9333333333",
			email: "c@other.test",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registration(f.verifiedSession(t, tt.phone, tt.email))
			req.PanCardDocumentID = "media-pan-retry"
			tt.edit(req)
			before := f.store.Counts()

			_, err := f.onboarding.RegisterCompany(ctx, req)
			var conflict *domain.ErrConflict
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, tt.code, conflict.Code)

			// nothing from the failed attempt survives
			assert.Equal(t, before, f.store.Counts())
			user, err := f.store.FindUserByEmail(ctx, tt.email)
			require.NoError(t, err)
			assert.Nil(t, user)
			user, err = f.store.FindUserByPhone(ctx, tt.phone)
			require.NoError(t, err)
			assert.Nil(t, user)
			if tt.code == domain.ConflictDuplicatePAN {
				exists, err := f.store.CompanyExistsByCIN(ctx, req.CIN)
				require.NoError(t, err)
				assert.False(t, exists)
				exists, err = f.store.CompanyExistsByGSTIN(ctx, req.GSTIN)
				require.NoError(t, err)
				assert.False(t, exists)
			}
			media, _ := f.media.Get("media-pan-retry")
			assert.False(t, media.IsUsed)
		})
	}
}
