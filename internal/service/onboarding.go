package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/observability"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var onboardingTracer = otel.Tracer("service/onboarding")

// OnboardingDeps are the collaborators of the Onboarding orchestrator.
type OnboardingDeps struct {
	Store    port.Store
	Sessions *SessionTracker
	Identity *IdentityEngine
	Progress *ProgressTracker
	Access   *AccessControl
	Hasher   port.HashingService
	Media    port.MediaLedger
	Env      Env
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// Onboarding creates company and trustee KYC records. Every operation that
// writes more than one row runs in a single READ COMMITTED unit of work.
type Onboarding struct {
	store    port.Store
	sessions *SessionTracker
	identity *IdentityEngine
	progress *ProgressTracker
	access   *AccessControl
	hasher   port.HashingService
	media    port.MediaLedger
	env      Env
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewOnboarding(d OnboardingDeps) *Onboarding {
	return &Onboarding{
		store:    d.Store,
		sessions: d.Sessions,
		identity: d.Identity,
		progress: d.Progress,
		access:   d.Access,
		hasher:   d.Hasher,
		media:    d.Media,
		env:      d.Env,
		metrics:  d.Metrics,
		logger:   d.Logger,
	}
}

// ============================================================
// RegisterCompany: POST /v1/auth/company-registration
// ============================================================

// RegisterCompany creates the user, company profile, PAN record and KYC
// application of a verified registration session. Nothing is persisted
// unless every step succeeds.
func (o *Onboarding) RegisterCompany(ctx context.Context, req *domain.CompanyRegistration) (*domain.RegistrationResult, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.RegisterCompany")
	defer span.End()
	span.SetAttributes(attribute.Bool("kyc.human_interaction", req.HumanInteraction))

	hash, err := o.hasher.Hash(req.Password)
	if err != nil {
		return nil, o.env.internal("Failed to hash password", err)
	}

	result := &domain.RegistrationResult{Success: true, Message: "Registration completed"}
	err = inTx(ctx, o.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		return o.registerCompany(ctx, uow, req, hash, result)
	})
	if err != nil {
		o.metrics.IncrRegistration("failed")
		o.logger.Info("company registration failed", zap.Error(err))
		return nil, err
	}

	outcome := "manual"
	if result.KycStatus == domain.KycApproved {
		outcome = "auto"
		o.access.Invalidate(result.UserID, domain.RoleCompany)
		markMedia(ctx, o.media, o.logger, []string{req.PanCardDocumentID}, true)
	}
	o.metrics.IncrRegistration(outcome)
	o.logger.Info("company registered",
		zap.String("user_id", result.UserID),
		zap.String("company_profile_id", result.CompanyProfileID),
		zap.String("outcome", outcome),
	)
	return result, nil
}

func (o *Onboarding) registerCompany(ctx context.Context, uow port.UnitOfWork, req *domain.CompanyRegistration, hash string, result *domain.RegistrationResult) error {
	session, err := o.sessions.Verified(ctx, uow, req.SessionID)
	if err != nil {
		return err
	}
	if session.RoleValue != domain.RoleCompany {
		return &domain.ErrInvalidSession{Reason: "Session is not valid"}
	}

	if exists, err := uow.CompanyExistsByCIN(ctx, req.CIN); err != nil {
		return fmt.Errorf("check cin: %w", err)
	} else if exists {
		return &domain.ErrConflict{Code: domain.ConflictDuplicateCIN, Message: "CIN already registered"}
	}
	if exists, err := uow.CompanyExistsByGSTIN(ctx, req.GSTIN); err != nil {
		return fmt.Errorf("check gstin: %w", err)
	} else if exists {
		return &domain.ErrConflict{Code: domain.ConflictDuplicateGSTIN, Message: "GSTIN already registered"}
	}

	user := &domain.User{
		Phone:        session.PhoneNumber,
		Email:        session.Email,
		PasswordHash: hash,
		State:        domain.StateInactive,
	}
	if err := uow.CreateUser(ctx, user); err != nil {
		if _, ok := asDuplicate(err); ok {
			return &domain.ErrConflict{Code: domain.ConflictPhoneRegistered, Message: "User already exists with this phone or email"}
		}
		return fmt.Errorf("create user: %w", err)
	}

	profile := &domain.CompanyProfile{
		UsersID:                 user.ID,
		CompanyName:             req.CompanyName,
		CIN:                     req.CIN,
		GSTIN:                   req.GSTIN,
		UdyamRegistrationNumber: req.UdyamRegistrationNumber,
		DateOfIncorporation:     req.DateOfIncorporation,
		CityOfIncorporation:     req.CityOfIncorporation,
		StateOfIncorporation:    req.StateOfIncorporation,
		CountryOfIncorporation:  req.CountryOfIncorporation,
		CompanyEntityTypeID:     req.CompanyEntityTypeID,
		CompanySectorTypeID:     req.CompanySectorTypeID,
		State:                   domain.StateInactive,
	}
	if err := uow.CreateCompanyProfile(ctx, profile); err != nil {
		return companyConflict(err)
	}

	if exists, err := uow.ApprovedPanExists(ctx, req.SubmittedPanDetails.SubmittedPanNumber); err != nil {
		return fmt.Errorf("check pan: %w", err)
	} else if exists {
		return panConflict()
	}

	pan := &domain.PanRecord{
		CompanyProfilesID:    profile.ID,
		SubmittedCompanyName: req.SubmittedPanDetails.SubmittedCompanyName,
		SubmittedPanNumber:   req.SubmittedPanDetails.SubmittedPanNumber,
		SubmittedDOB:         req.SubmittedPanDetails.SubmittedDOB,
		PanCardDocumentID:    req.PanCardDocumentID,
	}
	if x := req.ExtractedPanDetails; x != nil {
		pan.ExtractedCompanyName = x.ExtractedCompanyName
		pan.ExtractedPanNumber = x.ExtractedPanNumber
		pan.ExtractedDOB = x.ExtractedDOB
	}
	kyc := &domain.KycApplication{
		RoleValue:        session.RoleValue,
		UsersID:          user.ID,
		IdentifierID:     profile.ID,
		HumanInteraction: req.HumanInteraction,
		State:            domain.StateActive,
	}

	if req.HumanInteraction {
		pan.Mode, pan.Status, pan.State = domain.ModeManual, domain.KycPending, domain.StateInactive
		kyc.Mode, kyc.Status = domain.ModeManual, domain.KycPending
		kyc.CurrentProgress = []string{domain.StepCompanyKyc}
	} else {
		if err := o.checkCompanyPan(req); err != nil {
			return err
		}
		pan.Mode, pan.Status, pan.State = domain.ModeAuto, domain.KycApproved, domain.StateActive
		kyc.Mode, kyc.Status = domain.ModeAuto, domain.KycApproved
		kyc.CurrentProgress = []string{domain.StepCompanyKyc, domain.StepPanVerified}
	}

	if err := uow.CreatePanRecord(ctx, pan); err != nil {
		if _, ok := asDuplicate(err); ok {
			return panConflict()
		}
		return fmt.Errorf("create pan record: %w", err)
	}
	if err := uow.CreateKycApplication(ctx, kyc); err != nil {
		return fmt.Errorf("create kyc application: %w", err)
	}

	if !req.HumanInteraction {
		if err := uow.SetUserState(ctx, user.ID, domain.StateActive); err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
		if err := uow.SetCompanyState(ctx, profile.ID, domain.StateActive); err != nil {
			return fmt.Errorf("activate company profile: %w", err)
		}
		if err := o.access.AssignRole(ctx, uow, user.ID, domain.RoleCompany); err != nil {
			return o.env.internal("Error while assigning role to user", err)
		}
	}

	if err := uow.ConsumeSession(ctx, session.ID); err != nil {
		return fmt.Errorf("consume session: %w", err)
	}

	result.KycStatus = kyc.Status
	result.UserID = user.ID
	result.CompanyProfileID = profile.ID
	result.KycApplicationID = kyc.ID
	return nil
}

// checkCompanyPan applies the automatic-path checks: the PAN name must equal
// the company name, and OCR data, when complete, must corroborate it.
func (o *Onboarding) checkCompanyPan(req *domain.CompanyRegistration) error {
	if req.SubmittedPanDetails.SubmittedCompanyName != req.CompanyName {
		return &domain.ErrNameMismatch{Message: "PAN details do not match company name"}
	}
	x := req.ExtractedPanDetails
	if x == nil {
		return nil
	}
	sub := domain.IdentitySubmission{
		ClaimedFullName:    req.CompanyName,
		SubmittedFullName:  req.SubmittedPanDetails.SubmittedCompanyName,
		SubmittedPanNumber: req.SubmittedPanDetails.SubmittedPanNumber,
		SubmittedDOB:       req.SubmittedPanDetails.SubmittedDOB,
		ExtractedFullName:  x.ExtractedCompanyName,
		ExtractedPanNumber: x.ExtractedPanNumber,
		ExtractedDOB:       x.ExtractedDOB,
	}
	if !sub.HasOCR() {
		return nil
	}
	if d := o.identity.Evaluate(sub); d.Outcome != domain.IdentityAutoApproved {
		return &domain.ErrNameMismatch{Message: d.Reason}
	}
	return nil
}

func companyConflict(err error) error {
	dup, ok := asDuplicate(err)
	if !ok {
		return fmt.Errorf("create company profile: %w", err)
	}
	if strings.Contains(dup.Key, "gstin") {
		return &domain.ErrConflict{Code: domain.ConflictDuplicateGSTIN, Message: "GSTIN already registered"}
	}
	return &domain.ErrConflict{Code: domain.ConflictDuplicateCIN, Message: "CIN already registered"}
}

func panConflict() error {
	return &domain.ErrConflict{Code: domain.ConflictDuplicatePAN, Message: "Pan already exists with another company"}
}

// ============================================================
// ApproveOrRejectKyc: PATCH /v1/auth/handle-kyc-application
// ============================================================

// ApproveOrRejectKyc applies a super admin decision to the newest active
// KYC application of a company user. A rejection still sets the PAN
// record status to approved, as the platform always has.
func (o *Onboarding) ApproveOrRejectKyc(ctx context.Context, d *domain.KycDecision) (*domain.KycDecisionResult, error) {
	ctx, span := onboardingTracer.Start(ctx, "Onboarding.ApproveOrRejectKyc")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", d.UserID),
		attribute.String("role", d.RoleValue),
		attribute.Int("kyc.status", d.Status),
	)

	status := domain.KycStatus(d.Status)
	result := &domain.KycDecisionResult{Success: true, KycStatus: status}

	err := inTx(ctx, o.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		kyc, err := uow.LatestActiveKyc(ctx, d.UserID, d.RoleValue)
		if err != nil {
			return fmt.Errorf("load kyc application: %w", err)
		}
		if kyc == nil {
			return &domain.ErrNotFound{Resource: "kyc application", Message: "No KYC application found"}
		}
		if d.RoleValue != domain.RoleCompany {
			return &domain.ErrUnsupportedRole{Role: d.RoleValue}
		}
		if kyc.IdentifierID != d.IdentifierID {
			return &domain.ErrValidation{Field: "identifierId", Message: "Identifier does not belong to this KYC application"}
		}

		pan, err := uow.LatestPanRecord(ctx, d.IdentifierID)
		if err != nil {
			return fmt.Errorf("load pan record: %w", err)
		}
		if pan == nil {
			return &domain.ErrNotFound{Resource: "pan record", Message: "Unable to fetch pan card details"}
		}

		switch status {
		case domain.KycApproved:
			if err := uow.SetKycStatus(ctx, kyc.ID, status); err != nil {
				return fmt.Errorf("update kyc status: %w", err)
			}
			if err := uow.SetCompanyState(ctx, d.IdentifierID, domain.StateActive); err != nil {
				return fmt.Errorf("activate company profile: %w", err)
			}
			if err := uow.SetUserState(ctx, d.UserID, domain.StateActive); err != nil {
				return fmt.Errorf("activate user: %w", err)
			}
			if err := o.access.AssignRole(ctx, uow, d.UserID, domain.RoleCompany); err != nil {
				return o.env.internal("Error while assigning role to user", err)
			}
			result.Message = "Company KYC approved successfully"
		case domain.KycRejected:
			if err := uow.SetKycStatus(ctx, kyc.ID, status); err != nil {
				return fmt.Errorf("update kyc status: %w", err)
			}
			if err := uow.SetCompanyState(ctx, d.IdentifierID, domain.StateInactive); err != nil {
				return fmt.Errorf("deactivate company profile: %w", err)
			}
			result.Message = "Company KYC rejected"
		default:
			return &domain.ErrInvalidStatus{Status: d.Status}
		}

		if err := uow.SetPanRecordStatus(ctx, pan.ID, domain.KycApproved); err != nil {
			if _, ok := asDuplicate(err); ok {
				return panConflict()
			}
			return fmt.Errorf("update pan status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	label := "approved"
	if status == domain.KycRejected {
		label = "rejected"
	} else {
		o.access.Invalidate(d.UserID, domain.RoleCompany)
	}
	o.metrics.IncrKycDecision(label)
	o.logger.Info("kyc decision applied",
		zap.String("user_id", d.UserID),
		zap.String("company_profile_id", d.IdentifierID),
		zap.String("decision", label),
	)
	return result, nil
}
