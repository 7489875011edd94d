package service_test

import (
	"context"
	"testing"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTrustee(t *testing.T, f *fixture) *domain.TrusteeProfile {
	t.Helper()
	tp, err := f.store.SeedTrustee(context.Background(), "trustee@bank.test", "9000000001")
	require.NoError(t, err)
	return tp
}

func signatory(name, pan string) domain.SignatoryInput {
	return domain.SignatoryInput{
		FullName:              name,
		Email:                 "signatory@bank.test",
		Phone:                 "9000000002",
		SubmittedPanFullName:  name,
		SubmittedPanNumber:    pan,
		SubmittedDateOfBirth:  "1980-01-01",
		PanCardFileID:         "pan-" + pan,
		BoardResolutionFileID: "board-" + pan,
		DesignationType:       "director",
		DesignationValue:      "Managing Director",
	}
}

func TestUploadTrusteeDocuments(t *testing.T) {
	f := newFixture(t, domain.MediaRecord{ID: "file-1"}, domain.MediaRecord{ID: "file-2"})
	ctx := context.Background()
	tp := seedTrustee(t, f)
	deed := f.store.SeedDocumentType("Trust Deed")
	sebi := f.store.SeedDocumentType("SEBI Registration")

	res, err := f.onboarding.UploadTrusteeDocuments(ctx, &domain.TrusteeDocumentsRequest{
		UsersID: tp.UsersID,
		Documents: []domain.DocumentUpload{
			{DocumentsID: deed, DocumentsFileID: "file-1"},
			{DocumentsID: sebi, DocumentsFileID: "file-2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Document uploaded", res.Message)
	require.Len(t, res.UploadedDocuments, 2)
	for _, d := range res.UploadedDocuments {
		assert.Equal(t, tp.ID, d.IdentifierID)
		assert.Equal(t, domain.RoleTrustee, d.RoleValue)
		assert.Equal(t, domain.ModeManual, d.Mode)
		assert.Equal(t, domain.KycPending, d.Status)
	}
	assert.Equal(t, []string{domain.StepTrusteeDocuments}, res.CurrentProgress)

	for _, id := range []string{"file-1", "file-2"} {
		m, _ := f.media.Get(id)
		assert.True(t, m.IsUsed, id)
	}
}

func TestUploadTrusteeDocuments_InvalidType(t *testing.T) {
	f := newFixture(t, domain.MediaRecord{ID: "file-1"})
	ctx := context.Background()
	tp := seedTrustee(t, f)
	deed := f.store.SeedDocumentType("Trust Deed")

	_, err := f.onboarding.UploadTrusteeDocuments(ctx, &domain.TrusteeDocumentsRequest{
		UsersID: tp.UsersID,
		Documents: []domain.DocumentUpload{
			{DocumentsID: deed, DocumentsFileID: "file-1"},
			{DocumentsID: "no-such-type", DocumentsFileID: "file-2"},
		},
	})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Invalid document type", nf.Message)

	progress, err := f.progress.Progress(ctx, nil, tp.KycApplicationsID)
	require.NoError(t, err)
	assert.Empty(t, progress)
	m, _ := f.media.Get("file-1")
	assert.False(t, m.IsUsed)
}

func TestUploadTrusteeBankDetails(t *testing.T) {
	f := newFixture(t, domain.MediaRecord{ID: "cheque-1"})
	ctx := context.Background()
	tp := seedTrustee(t, f)

	res, err := f.onboarding.UploadTrusteeBankDetails(ctx, &domain.TrusteeBankDetailsRequest{
		UsersID: tp.UsersID,
		BankDetails: domain.BankDetailsInput{
			BankName:           "State Bank of India",
			BankShortCode:      "SBI",
			IfscCode:           "SBIN0000300",
			BranchName:         "Fort",
			BankAddress:        "Mumbai Main Branch",
			AccountHolderName:  "Trustee Services Ltd",
			AccountNumber:      "00000012345678",
			BankAccountProofID: "cheque-1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KycApproved, res.Account.Status)
	assert.Equal(t, domain.ModeManual, res.Account.Mode)
	assert.Equal(t, []string{domain.StepTrusteeBankDetails}, res.CurrentProgress)

	m, _ := f.media.Get("cheque-1")
	assert.True(t, m.IsUsed)
}

func TestUploadSignatories_PartialBatch(t *testing.T) {
	f := newFixture(t,
		domain.MediaRecord{ID: "pan-ABCDE1234F"},
		domain.MediaRecord{ID: "board-ABCDE1234F"},
		domain.MediaRecord{ID: "pan-PQRST5678K"},
	)
	ctx := context.Background()
	tp := seedTrustee(t, f)

	mismatch := signatory("Anil Mehta", "PQRST5678K")
	mismatch.SubmittedPanFullName = "Sunil Shah"

	res, err := f.onboarding.UploadSignatories(ctx, &domain.TrusteeSignatoriesRequest{
		UsersID: tp.UsersID,
		Signatories: []domain.SignatoryInput{
			signatory("Ravi Kumar", "ABCDE1234F"),
			signatory("Ravi Kumar", "ABCDE1234F"),
			mismatch,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Authorize signatories data", res.Message)

	require.Len(t, res.Created, 1)
	assert.Equal(t, domain.ModeManual, res.Created[0].Mode)
	assert.Equal(t, domain.KycPending, res.Created[0].Status)

	require.Len(t, res.Errored, 2)
	assert.Equal(t, service.ReasonPanAlreadyUsed, res.Errored[0].Message)
	assert.Equal(t, "ABCDE1234F", res.Errored[0].SubmittedPanNumber)
	assert.Equal(t, service.ReasonNameMismatch, res.Errored[1].Message)
	assert.Equal(t, []string{domain.StepTrusteeSignatories}, res.CurrentProgress)

	used, _ := f.media.Get("board-ABCDE1234F")
	assert.True(t, used.IsUsed)
	rejected, _ := f.media.Get("pan-PQRST5678K")
	assert.False(t, rejected.IsUsed)
}

func TestUploadSignatories_NothingCreated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tp := seedTrustee(t, f)

	bad := signatory("Anil Mehta", "PQRST5678K")
	bad.SubmittedPanFullName = "Sunil Shah"

	res, err := f.onboarding.UploadSignatories(ctx, &domain.TrusteeSignatoriesRequest{
		UsersID:     tp.UsersID,
		Signatories: []domain.SignatoryInput{bad},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Errored, 1)
	assert.Empty(t, res.CurrentProgress)
}

func TestUploadSignatory_AutoApprovedThenDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tp := seedTrustee(t, f)

	in := signatory("Ravi Kumar", "ABCDE1234F")
	in.ExtractedPanFullName = "RAVI KUMAR"
	in.ExtractedPanNumber = "ABCDE1234F"
	in.ExtractedDateOfBirth = "1980-01-01"

	res, err := f.onboarding.UploadSignatory(ctx, &domain.TrusteeSignatoryRequest{UsersID: tp.UsersID, Signatory: in})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuto, res.Signatory.Mode)
	assert.Equal(t, domain.KycApproved, res.Signatory.Status)
	require.NotNil(t, res.Signatory.VerifiedAt)

	_, err = f.onboarding.UploadSignatory(ctx, &domain.TrusteeSignatoryRequest{UsersID: tp.UsersID, Signatory: in})
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictDuplicateSignatory, conflict.Code)
}

func TestUploadSignatory_Rejected(t *testing.T) {
	f := newFixture(t)
	tp := seedTrustee(t, f)

	in := signatory("Ravi Kumar", "ABCDE1234F")
	in.SubmittedPanFullName = "Anil Mehta"

	_, err := f.onboarding.UploadSignatory(context.Background(), &domain.TrusteeSignatoryRequest{UsersID: tp.UsersID, Signatory: in})
	var mismatch *domain.ErrNameMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, service.ReasonNameMismatch, mismatch.Message)
}

func TestTrusteeUploads_UnknownTrustee(t *testing.T) {
	f := newFixture(t)

	_, err := f.onboarding.UploadTrusteeBankDetails(context.Background(), &domain.TrusteeBankDetailsRequest{UsersID: "nobody"})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Trustee not found", nf.Message)
}
