package domain

import "time"

// TrusteeProfile is a pre-seeded trustee. Trustees enter the KYC flow through
// the upload endpoints keyed by their user id.
type TrusteeProfile struct {
	ID                string      `json:"id"`
	UsersID           string      `json:"usersId"`
	KycApplicationsID string      `json:"kycApplicationsId"`
	State             RecordState `json:"-"`
}

// DocumentType is reference data for uploadable documents.
type DocumentType struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	State RecordState `json:"-"`
}

// UserUploadedDocument is a document attached to a KYC identity.
type UserUploadedDocument struct {
	ID              string           `json:"id"`
	UsersID         string           `json:"usersId"`
	IdentifierID    string           `json:"identifierId"`
	RoleValue       string           `json:"roleValue"`
	DocumentsID     string           `json:"documentsId"`
	DocumentsFileID string           `json:"documentsFileId"`
	Mode            VerificationMode `json:"mode"`
	Status          KycStatus        `json:"status"`
	VerifiedAt      *time.Time       `json:"verifiedAt,omitempty"`
	State           RecordState      `json:"-"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// BankDetails is a bank account captured during KYC.
type BankDetails struct {
	ID                   string           `json:"id"`
	UsersID              string           `json:"usersId"`
	RoleValue            string           `json:"roleValue"`
	BankName             string           `json:"bankName"`
	BankShortCode        string           `json:"bankShortCode"`
	IfscCode             string           `json:"ifscCode"`
	BranchName           string           `json:"branchName"`
	BankAddress          string           `json:"bankAddress"`
	AccountType          int              `json:"accountType"`
	AccountHolderName    string           `json:"accountHolderName"`
	AccountNumber        string           `json:"accountNumber"`
	BankAccountProofType int              `json:"bankAccountProofType"`
	BankAccountProofID   string           `json:"bankAccountProofId"`
	Mode                 VerificationMode `json:"mode"`
	Status               KycStatus        `json:"status"`
	State                RecordState      `json:"-"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// AuthorizeSignatory is a person authorized to sign for a company or trustee.
type AuthorizeSignatory struct {
	ID                    string           `json:"id"`
	UsersID               string           `json:"usersId"`
	IdentifierID          string           `json:"identifierId"`
	RoleValue             string           `json:"roleValue"`
	FullName              string           `json:"fullName"`
	Email                 string           `json:"email"`
	Phone                 string           `json:"phone"`
	ExtractedPanFullName  string           `json:"extractedPanFullName,omitempty"`
	ExtractedPanNumber    string           `json:"extractedPanNumber,omitempty"`
	ExtractedDateOfBirth  string           `json:"extractedDateOfBirth,omitempty"`
	SubmittedPanFullName  string           `json:"submittedPanFullName"`
	SubmittedPanNumber    string           `json:"submittedPanNumber"`
	SubmittedDateOfBirth  string           `json:"submittedDateOfBirth"`
	PanCardFileID         string           `json:"panCardFileId"`
	BoardResolutionFileID string           `json:"boardResolutionFileId"`
	DesignationType       string           `json:"designationType"`
	DesignationValue      string           `json:"designationValue"`
	Mode                  VerificationMode `json:"mode"`
	Status                KycStatus        `json:"status"`
	VerifiedAt            *time.Time       `json:"verifiedAt,omitempty"`
	State                 RecordState      `json:"-"`
	CreatedAt             time.Time        `json:"createdAt"`
}

// IdentitySubmission returns the identity-decision input of the signatory.
func (a *AuthorizeSignatory) IdentitySubmission() IdentitySubmission {
	return IdentitySubmission{
		ClaimedFullName:    a.FullName,
		SubmittedFullName:  a.SubmittedPanFullName,
		SubmittedPanNumber: a.SubmittedPanNumber,
		SubmittedDOB:       a.SubmittedDateOfBirth,
		ExtractedFullName:  a.ExtractedPanFullName,
		ExtractedPanNumber: a.ExtractedPanNumber,
		ExtractedDOB:       a.ExtractedDateOfBirth,
	}
}

// ============================================================
// Trustee uploads: Request / Response types
// ============================================================

// DocumentUpload references an uploaded file and its document type.
type DocumentUpload struct {
	DocumentsID     string `json:"documentsId" validate:"required"`
	DocumentsFileID string `json:"documentsFileId" validate:"required"`
}

// TrusteeDocumentsRequest is the body for POST /v1/trustee-profiles/kyc-upload-documents.
type TrusteeDocumentsRequest struct {
	UsersID   string           `json:"usersId" validate:"required"`
	Documents []DocumentUpload `json:"documents" validate:"required,min=1,dive"`
}

// BankDetailsInput are the bank account fields of a KYC bank upload.
type BankDetailsInput struct {
	BankName             string `json:"bankName" validate:"required"`
	BankShortCode        string `json:"bankShortCode" validate:"required"`
	IfscCode             string `json:"ifscCode" validate:"required"`
	BranchName           string `json:"branchName" validate:"required"`
	BankAddress          string `json:"bankAddress" validate:"required"`
	AccountType          int    `json:"accountType"`
	AccountHolderName    string `json:"accountHolderName" validate:"required"`
	AccountNumber        string `json:"accountNumber" validate:"required"`
	BankAccountProofType int    `json:"bankAccountProofType"`
	BankAccountProofID   string `json:"bankAccountProofId" validate:"required"`
}

// TrusteeBankDetailsRequest is the body for POST /v1/trustee-profiles/kyc-bank-details.
type TrusteeBankDetailsRequest struct {
	UsersID     string           `json:"usersId" validate:"required"`
	BankDetails BankDetailsInput `json:"bankDetails"`
}

// SignatoryInput is one signatory in an upload request.
type SignatoryInput struct {
	FullName              string `json:"fullName" validate:"required"`
	Email                 string `json:"email" validate:"required,email"`
	Phone                 string `json:"phone" validate:"required"`
	ExtractedPanFullName  string `json:"extractedPanFullName,omitempty"`
	ExtractedPanNumber    string `json:"extractedPanNumber,omitempty"`
	ExtractedDateOfBirth  string `json:"extractedDateOfBirth,omitempty"`
	SubmittedPanFullName  string `json:"submittedPanFullName" validate:"required"`
	SubmittedPanNumber    string `json:"submittedPanNumber" validate:"required"`
	SubmittedDateOfBirth  string `json:"submittedDateOfBirth" validate:"required"`
	PanCardFileID         string `json:"panCardFileId" validate:"required"`
	BoardResolutionFileID string `json:"boardResolutionFileId" validate:"required"`
	DesignationType       string `json:"designationType" validate:"required"`
	DesignationValue      string `json:"designationValue" validate:"required"`
}

// TrusteeSignatoriesRequest is the body for the batch signatory upload.
type TrusteeSignatoriesRequest struct {
	UsersID     string           `json:"usersId" validate:"required"`
	Signatories []SignatoryInput `json:"signatories" validate:"required,min=1,dive"`
}

// TrusteeSignatoryRequest is the body for the single signatory upload.
type TrusteeSignatoryRequest struct {
	UsersID   string         `json:"usersId" validate:"required"`
	Signatory SignatoryInput `json:"signatory"`
}

// SignatoryError is a per-item failure of a batch signatory upload.
type SignatoryError struct {
	FullName           string `json:"fullName"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	SubmittedPanNumber string `json:"submittedPanNumber"`
	Message            string `json:"message"`
}

// SignatoryBatchResult is the outcome of a batch signatory upload.
type SignatoryBatchResult struct {
	Success         bool                  `json:"success"`
	Message         string                `json:"message"`
	Created         []*AuthorizeSignatory `json:"createdAuthorizeSignatories"`
	Errored         []SignatoryError      `json:"erroredAuthorizeSignatories"`
	CurrentProgress []string              `json:"currentProgress"`
}

// SignatoryResult is the outcome of a single signatory upload.
type SignatoryResult struct {
	Success         bool                `json:"success"`
	Message         string              `json:"message"`
	Signatory       *AuthorizeSignatory `json:"signatory"`
	CurrentProgress []string            `json:"currentProgress"`
}

// DocumentsResult is the outcome of a document upload.
type DocumentsResult struct {
	Success           bool                    `json:"success"`
	Message           string                  `json:"message"`
	UploadedDocuments []*UserUploadedDocument `json:"uploadedDocuments"`
	CurrentProgress   []string                `json:"currentProgress"`
}

// BankDetailsResult is the outcome of a bank details upload.
type BankDetailsResult struct {
	Success         bool         `json:"success"`
	Message         string       `json:"message"`
	Account         *BankDetails `json:"account"`
	CurrentProgress []string     `json:"currentProgress"`
}
