package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Trustee KYC uploads: /v1/trustee-profiles/*
// ============================================================

func (o *Onboarding) trustee(ctx context.Context, repos port.Repositories, userID string) (*domain.TrusteeProfile, error) {
	t, err := repos.FindTrusteeByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load trustee: %w", err)
	}
	if t == nil || t.State.IsDeleted() {
		return nil, &domain.ErrNotFound{Resource: "trustee", ID: userID, Message: "Trustee not found"}
	}
	return t, nil
}

// UploadTrusteeDocuments records documents for manual review.
func (o *Onboarding) UploadTrusteeDocuments(ctx context.Context, req *domain.TrusteeDocumentsRequest) (*domain.DocumentsResult, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.UploadTrusteeDocuments")
	defer span.End()
	span.SetAttributes(attribute.Int("documents.count", len(req.Documents)))

	result := &domain.DocumentsResult{Success: true, Message: "Document uploaded"}
	err := inTx(ctx, o.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		t, err := o.trustee(ctx, uow, req.UsersID)
		if err != nil {
			return err
		}

		docs := make([]*domain.UserUploadedDocument, 0, len(req.Documents))
		for _, d := range req.Documents {
			ok, err := uow.ActiveDocumentTypeExists(ctx, d.DocumentsID)
			if err != nil {
				return fmt.Errorf("check document type: %w", err)
			}
			if !ok {
				return &domain.ErrNotFound{Resource: "document type", ID: d.DocumentsID, Message: "Invalid document type"}
			}
			docs = append(docs, &domain.UserUploadedDocument{
				UsersID:         req.UsersID,
				IdentifierID:    t.ID,
				RoleValue:       domain.RoleTrustee,
				DocumentsID:     d.DocumentsID,
				DocumentsFileID: d.DocumentsFileID,
				Mode:            domain.ModeManual,
				Status:          domain.KycPending,
				State:           domain.StateActive,
			})
		}
		if err := uow.CreateUploadedDocuments(ctx, docs); err != nil {
			return fmt.Errorf("create documents: %w", err)
		}

		progress, err := o.progress.MarkStep(ctx, uow, t.KycApplicationsID, domain.StepTrusteeDocuments)
		if err != nil {
			return err
		}
		result.UploadedDocuments = docs
		result.CurrentProgress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(result.UploadedDocuments))
	for _, d := range result.UploadedDocuments {
		files = append(files, d.DocumentsFileID)
	}
	markMedia(ctx, o.media, o.logger, files, true)
	return result, nil
}

// UploadTrusteeBankDetails records the trustee bank account.
func (o *Onboarding) UploadTrusteeBankDetails(ctx context.Context, req *domain.TrusteeBankDetailsRequest) (*domain.BankDetailsResult, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.UploadTrusteeBankDetails")
	defer span.End()

	result := &domain.BankDetailsResult{Success: true, Message: "Bank account details saved"}
	err := inTx(ctx, o.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		t, err := o.trustee(ctx, uow, req.UsersID)
		if err != nil {
			return err
		}

		in := req.BankDetails
		account := &domain.BankDetails{
			UsersID:              req.UsersID,
			RoleValue:            domain.RoleTrustee,
			BankName:             in.BankName,
			BankShortCode:        in.BankShortCode,
			IfscCode:             in.IfscCode,
			BranchName:           in.BranchName,
			BankAddress:          in.BankAddress,
			AccountType:          in.AccountType,
			AccountHolderName:    in.AccountHolderName,
			AccountNumber:        in.AccountNumber,
			BankAccountProofType: in.BankAccountProofType,
			BankAccountProofID:   in.BankAccountProofID,
			Mode:                 domain.ModeManual,
			Status:               domain.KycApproved,
			State:                domain.StateActive,
		}
		if err := uow.CreateBankDetails(ctx, account); err != nil {
			return fmt.Errorf("create bank details: %w", err)
		}

		progress, err := o.progress.MarkStep(ctx, uow, t.KycApplicationsID, domain.StepTrusteeBankDetails)
		if err != nil {
			return err
		}
		result.Account = account
		result.CurrentProgress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	markMedia(ctx, o.media, o.logger, []string{result.Account.BankAccountProofID}, true)
	return result, nil
}

func newSignatory(in domain.SignatoryInput, userID, identifierID string) *domain.AuthorizeSignatory {
	return &domain.AuthorizeSignatory{
		UsersID:               userID,
		IdentifierID:          identifierID,
		RoleValue:             domain.RoleTrustee,
		FullName:              in.FullName,
		Email:                 in.Email,
		Phone:                 in.Phone,
		ExtractedPanFullName:  in.ExtractedPanFullName,
		ExtractedPanNumber:    in.ExtractedPanNumber,
		ExtractedDateOfBirth:  in.ExtractedDateOfBirth,
		SubmittedPanFullName:  in.SubmittedPanFullName,
		SubmittedPanNumber:    in.SubmittedPanNumber,
		SubmittedDateOfBirth:  in.SubmittedDateOfBirth,
		PanCardFileID:         in.PanCardFileID,
		BoardResolutionFileID: in.BoardResolutionFileID,
		DesignationType:       in.DesignationType,
		DesignationValue:      in.DesignationValue,
		State:                 domain.StateActive,
	}
}

func signatoryFailure(s *domain.AuthorizeSignatory, msg string) domain.SignatoryError {
	return domain.SignatoryError{
		FullName:           s.FullName,
		Email:              s.Email,
		Phone:              s.Phone,
		SubmittedPanNumber: s.SubmittedPanNumber,
		Message:            msg,
	}
}

// UploadSignatories verifies and stores a batch of signatories. Items that
// fail verification or hit the PAN uniqueness rule are reported back while
// the rest still commit.
func (o *Onboarding) UploadSignatories(ctx context.Context, req *domain.TrusteeSignatoriesRequest) (*domain.SignatoryBatchResult, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.UploadSignatories")
	defer span.End()
	span.SetAttributes(attribute.Int("signatories.count", len(req.Signatories)))

	result := &domain.SignatoryBatchResult{
		Success: true,
		Message: "Authorize signatories data",
		Created: []*domain.AuthorizeSignatory{},
		Errored: []domain.SignatoryError{},
	}
	err := inTx(ctx, o.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		t, err := o.trustee(ctx, uow, req.UsersID)
		if err != nil {
			return err
		}

		for _, in := range req.Signatories {
			sig := newSignatory(in, req.UsersID, t.ID)
			decision := o.identity.Evaluate(sig.IdentitySubmission())
			if decision.Outcome == domain.IdentityRejected {
				result.Errored = append(result.Errored, signatoryFailure(sig, decision.Reason))
				o.metrics.IncrSignatory("rejected")
				continue
			}
			sig.Mode, sig.Status, sig.VerifiedAt = decision.Mode, decision.Status, decision.VerifiedAt

			err := uow.Savepoint(ctx, func(r port.Repositories) error {
				return r.CreateSignatory(ctx, sig)
			})
			if _, dup := asDuplicate(err); dup {
				result.Errored = append(result.Errored, signatoryFailure(sig, ReasonPanAlreadyUsed))
				o.metrics.IncrSignatory("duplicate")
				continue
			}
			if err != nil {
				return fmt.Errorf("create signatory: %w", err)
			}
			result.Created = append(result.Created, sig)
			o.metrics.IncrSignatory(decision.Outcome.String())
		}

		var progress []string
		if len(result.Created) > 0 {
			progress, err = o.progress.MarkStep(ctx, uow, t.KycApplicationsID, domain.StepTrusteeSignatories)
		} else {
			progress, err = o.progress.Progress(ctx, uow, t.KycApplicationsID)
		}
		if err != nil {
			return err
		}
		result.CurrentProgress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("signatory batch stored",
		zap.String("user_id", req.UsersID),
		zap.Int("created", len(result.Created)),
		zap.Int("errored", len(result.Errored)),
	)
	markMedia(ctx, o.media, o.logger, signatoryFiles(result.Created...), true)
	return result, nil
}

// UploadSignatory verifies and stores one signatory. Any verification or
// uniqueness failure fails the request.
func (o *Onboarding) UploadSignatory(ctx context.Context, req *domain.TrusteeSignatoryRequest) (*domain.SignatoryResult, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.UploadSignatory")
	defer span.End()

	result := &domain.SignatoryResult{Success: true, Message: "Authorize signatory data"}
	err := inTx(ctx, o.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		t, err := o.trustee(ctx, uow, req.UsersID)
		if err != nil {
			return err
		}

		sig := newSignatory(req.Signatory, req.UsersID, t.ID)
		decision := o.identity.Evaluate(sig.IdentitySubmission())
		if decision.Outcome == domain.IdentityRejected {
			o.metrics.IncrSignatory("rejected")
			return &domain.ErrNameMismatch{Message: decision.Reason}
		}
		sig.Mode, sig.Status, sig.VerifiedAt = decision.Mode, decision.Status, decision.VerifiedAt

		if err := uow.CreateSignatory(ctx, sig); err != nil {
			if _, dup := asDuplicate(err); dup {
				o.metrics.IncrSignatory("duplicate")
				return &domain.ErrConflict{Code: domain.ConflictDuplicateSignatory, Message: ReasonPanAlreadyUsed}
			}
			return fmt.Errorf("create signatory: %w", err)
		}
		o.metrics.IncrSignatory(decision.Outcome.String())

		progress, err := o.progress.MarkStep(ctx, uow, t.KycApplicationsID, domain.StepTrusteeSignatories)
		if err != nil {
			return err
		}
		result.Signatory = sig
		result.CurrentProgress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	markMedia(ctx, o.media, o.logger, signatoryFiles(result.Signatory), true)
	return result, nil
}

func signatoryFiles(sigs ...*domain.AuthorizeSignatory) []string {
	ids := make([]string, 0, 2*len(sigs))
	for _, s := range sigs {
		ids = append(ids, s.PanCardFileID, s.BoardResolutionFileID)
	}
	return ids
}
