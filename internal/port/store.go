package port

import (
	"context"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
)

// IsolationLevel of a unit of work.
type IsolationLevel int

const (
	ReadCommitted IsolationLevel = iota
	RepeatableRead
	Serializable
)

// Store is the persistence layer. Repository calls made directly on the
// Store run outside any transaction.
type Store interface {
	Repositories
	Begin(ctx context.Context, iso IsolationLevel) (UnitOfWork, error)
	Ping(ctx context.Context) error
}

// UnitOfWork is an open transaction. Rollback after Commit is a no-op, so
// callers can always defer it.
type UnitOfWork interface {
	Repositories
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// Savepoint runs fn in a nested scope. When fn fails its writes are
	// undone and the outer unit of work stays usable.
	Savepoint(ctx context.Context, fn func(Repositories) error) error
}

// Repositories is the full set of repository operations.
// Find* methods return (nil, nil) when nothing matches.
type Repositories interface {
	UserRepository
	RoleRepository
	OtpRepository
	SessionRepository
	CompanyRepository
	TrusteeRepository
	KycRepository
	EstimationRepository
}

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	FindUserByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetUserState(ctx context.Context, id string, state domain.RecordState) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
}

// RoleRepository reads roles and maintains user-role assignments.
type RoleRepository interface {
	FindRoleByValue(ctx context.Context, value string) (*domain.Role, error)
	UserHasRole(ctx context.Context, userID, roleID string) (bool, error)
	RoleAssigned(ctx context.Context, roleID string) (bool, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	RolePermissions(ctx context.Context, userID, roleValue string) (*domain.Grants, error)
}

// OtpRepository persists OTP challenges.
type OtpRepository interface {
	InvalidateChallenges(ctx context.Context, identifier string, t domain.OtpType, now time.Time) error
	CreateChallenge(ctx context.Context, c *domain.OtpChallenge) error
	LatestUnusedChallenge(ctx context.Context, identifier string, t domain.OtpType) (*domain.OtpChallenge, error)
	CountLiveChallenges(ctx context.Context, identifier string, t domain.OtpType, now time.Time) (int, error)
	MarkChallengeUsed(ctx context.Context, id string, now time.Time) error
	// ClaimChallengeAttempt counts one attempt against an unused challenge
	// whose count is still below maxAttempts. ok is false when no attempt
	// could be claimed.
	ClaimChallengeAttempt(ctx context.Context, id string, maxAttempts int) (attempts int, ok bool, err error)
	// ConsumeChallenge marks an unused challenge used. ok is false when it
	// was already used.
	ConsumeChallenge(ctx context.Context, id string, now time.Time) (ok bool, err error)
}

// SessionRepository persists registration sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *domain.RegistrationSession) error
	GetSession(ctx context.Context, id string) (*domain.RegistrationSession, error)
	MarkPhoneVerified(ctx context.Context, id string) error
	AttachSessionEmail(ctx context.Context, id, email string) error
	MarkEmailVerified(ctx context.Context, id string) error
	ConsumeSession(ctx context.Context, id string) error
}

// CompanyRepository persists company profiles and their PAN records.
type CompanyRepository interface {
	CreateCompanyProfile(ctx context.Context, p *domain.CompanyProfile) error
	GetCompanyProfile(ctx context.Context, id string) (*domain.CompanyProfile, error)
	FindActiveCompanyByUser(ctx context.Context, userID string) (*domain.CompanyProfile, error)
	CompanyExistsByCIN(ctx context.Context, cin string) (bool, error)
	CompanyExistsByGSTIN(ctx context.Context, gstin string) (bool, error)
	SetCompanyState(ctx context.Context, id string, state domain.RecordState) error

	CreatePanRecord(ctx context.Context, r *domain.PanRecord) error
	ApprovedPanExists(ctx context.Context, panNumber string) (bool, error)
	LatestPanRecord(ctx context.Context, companyProfileID string) (*domain.PanRecord, error)
	SetPanRecordStatus(ctx context.Context, id string, status domain.KycStatus) error
}

// TrusteeRepository persists trustee KYC uploads.
type TrusteeRepository interface {
	FindTrusteeByUser(ctx context.Context, userID string) (*domain.TrusteeProfile, error)
	ActiveDocumentTypeExists(ctx context.Context, id string) (bool, error)
	CreateUploadedDocuments(ctx context.Context, docs []*domain.UserUploadedDocument) error
	CreateBankDetails(ctx context.Context, b *domain.BankDetails) error
	// CreateSignatory returns *domain.ErrDuplicate when the signatory PAN is
	// already active for the same user, role and identifier.
	CreateSignatory(ctx context.Context, s *domain.AuthorizeSignatory) error
}

// KycRepository persists KYC applications.
type KycRepository interface {
	CreateKycApplication(ctx context.Context, k *domain.KycApplication) error
	GetKycApplication(ctx context.Context, id string) (*domain.KycApplication, error)
	LatestActiveKyc(ctx context.Context, userID, roleValue string) (*domain.KycApplication, error)
	SetKycStatus(ctx context.Context, id string, status domain.KycStatus) error
	// AppendKycProgress appends tag if absent in one atomic step and returns
	// the resulting progress.
	AppendKycProgress(ctx context.Context, id, tag string) ([]string, error)
}

// EstimationRepository persists bond estimations and their child rows.
type EstimationRepository interface {
	CreateEstimation(ctx context.Context, e *domain.BondEstimation) error
	GetEstimation(ctx context.Context, id string) (*domain.BondEstimation, error)
	ListEstimations(ctx context.Context, companyProfileID string, limit, skip int) ([]*domain.BondEstimation, int, error)
	SaveFundPosition(ctx context.Context, id string, fp *domain.FundPosition) error
	SaveCapitalDetails(ctx context.Context, id string, cd *domain.CapitalDetails) error
	SaveProfitabilityDetails(ctx context.Context, id string, pd *domain.ProfitabilityDetails) error
	SaveFinancialRatios(ctx context.Context, id string, fr *domain.FinancialRatios) error
	SavePreliminaryRequirements(ctx context.Context, id string, pr *domain.PreliminaryRequirements) error
	AppendEstimationProgress(ctx context.Context, id, tag string) ([]string, error)

	ListCreditRatings(ctx context.Context, estimationID string) ([]domain.CreditRating, error)
	ReplaceCreditRatings(ctx context.Context, estimationID string, ratings []domain.CreditRating) error
	ListBorrowingDetails(ctx context.Context, estimationID string) ([]domain.BorrowingDetail, error)
	ReplaceBorrowingDetails(ctx context.Context, estimationID string, details []domain.BorrowingDetail) error
}
