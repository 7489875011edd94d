package domain

import "time"

// CompanyProfile is the company-role profile of a user. Its state mirrors
// the KYC approval.
type CompanyProfile struct {
	ID                      string      `json:"id"`
	UsersID                 string      `json:"usersId"`
	CompanyName             string      `json:"companyName"`
	CIN                     string      `json:"CIN"`
	GSTIN                   string      `json:"GSTIN"`
	UdyamRegistrationNumber string      `json:"udyamRegistrationNumber"`
	DateOfIncorporation     string      `json:"dateOfIncorporation"`
	CityOfIncorporation     string      `json:"cityOfIncorporation"`
	StateOfIncorporation    string      `json:"stateOfIncorporation"`
	CountryOfIncorporation  string      `json:"countryOfIncorporation"`
	CompanyEntityTypeID     string      `json:"companyEntityTypeId"`
	CompanySectorTypeID     string      `json:"companySectorTypeId"`
	State                   RecordState `json:"-"`
	CreatedAt               time.Time   `json:"createdAt"`
}

// PanRecord is the PAN card submitted for a company profile.
type PanRecord struct {
	ID                   string           `json:"id"`
	CompanyProfilesID    string           `json:"companyProfilesId"`
	SubmittedCompanyName string           `json:"submittedCompanyName"`
	SubmittedPanNumber   string           `json:"submittedPanNumber"`
	SubmittedDOB         string           `json:"submittedDateOfBirth"`
	ExtractedCompanyName string           `json:"extractedCompanyName,omitempty"`
	ExtractedPanNumber   string           `json:"extractedPanNumber,omitempty"`
	ExtractedDOB         string           `json:"extractedDateOfBirth,omitempty"`
	PanCardDocumentID    string           `json:"panCardDocumentId"`
	Mode                 VerificationMode `json:"mode"`
	Status               KycStatus        `json:"status"`
	State                RecordState      `json:"-"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// ExtractedPanDetails are the OCR fields of a PAN card.
type ExtractedPanDetails struct {
	ExtractedCompanyName string `json:"extractedCompanyName,omitempty"`
	ExtractedPanNumber   string `json:"extractedPanNumber,omitempty" validate:"omitempty,pan"`
	ExtractedDOB         string `json:"extractedDateOfBirth,omitempty" validate:"omitempty,isodate"`
}

// SubmittedPanDetails are the PAN fields typed by the applicant.
type SubmittedPanDetails struct {
	SubmittedCompanyName string `json:"submittedCompanyName" validate:"required"`
	SubmittedPanNumber   string `json:"submittedPanNumber" validate:"required,pan"`
	SubmittedDOB         string `json:"submittedDateOfBirth" validate:"required,isodate"`
}

// CompanyRegistration is the body for POST /v1/auth/company-registration.
type CompanyRegistration struct {
	SessionID               string               `json:"sessionId" validate:"required"`
	Password                string               `json:"password" validate:"required,min=6"`
	CompanyName             string               `json:"companyName" validate:"required"`
	CIN                     string               `json:"CIN" validate:"required,cin"`
	GSTIN                   string               `json:"GSTIN" validate:"required,len=15"`
	UdyamRegistrationNumber string               `json:"udyamRegistrationNumber" validate:"required"`
	DateOfIncorporation     string               `json:"dateOfIncorporation" validate:"required,isodate"`
	CityOfIncorporation     string               `json:"cityOfIncorporation" validate:"required"`
	StateOfIncorporation    string               `json:"stateOfIncorporation" validate:"required"`
	CountryOfIncorporation  string               `json:"countryOfIncorporation" validate:"required"`
	HumanInteraction        bool                 `json:"humanInteraction"`
	ExtractedPanDetails     *ExtractedPanDetails `json:"extractedPanDetails,omitempty"`
	SubmittedPanDetails     SubmittedPanDetails  `json:"submittedPanDetails"`
	PanCardDocumentID       string               `json:"panCardDocumentId" validate:"required"`
	CompanyEntityTypeID     string               `json:"companyEntityTypeId" validate:"required"`
	CompanySectorTypeID     string               `json:"companySectorTypeId" validate:"required"`
}

// RegistrationResult is returned by a successful company registration.
type RegistrationResult struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	KycStatus        KycStatus `json:"kycStatus"`
	UserID           string    `json:"userId"`
	CompanyProfileID string    `json:"companyProfileId"`
	KycApplicationID string    `json:"kycApplicationId"`
}
