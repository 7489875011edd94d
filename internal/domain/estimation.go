package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BondEstimation is a company's step-by-step bond estimation application.
type BondEstimation struct {
	ID                      string                   `json:"id"`
	CompanyProfilesID       string                   `json:"companyProfilesId"`
	CurrentProgress         []string                 `json:"currentProgress"`
	FundPosition            *FundPosition            `json:"fundPosition,omitempty"`
	CapitalDetails          *CapitalDetails          `json:"capitalDetails,omitempty"`
	ProfitabilityDetails    *ProfitabilityDetails    `json:"profitabilityDetails,omitempty"`
	FinancialRatios         *FinancialRatios         `json:"financialRatios,omitempty"`
	PreliminaryRequirements *PreliminaryRequirements `json:"preliminaryRequirements,omitempty"`
	CreditRatings           []CreditRating           `json:"estimationCreditRatings,omitempty"`
	BorrowingDetails        []BorrowingDetail        `json:"estimationBorrowingDetails,omitempty"`
	State                   RecordState              `json:"-"`
	CreatedAt               time.Time                `json:"createdAt"`
}

// FundPosition is the cash and bank position of the company.
type FundPosition struct {
	CashBalance     decimal.Decimal `json:"cashBalance"`
	CashBalanceDate string          `json:"cashBalanceDate" validate:"required,isodate"`
	BankBalance     decimal.Decimal `json:"bankBalance"`
	BankBalanceDate string          `json:"bankBalanceDate" validate:"required,isodate"`
}

// CapitalDetails is the capital structure of the company.
type CapitalDetails struct {
	ShareCapital   decimal.Decimal `json:"shareCapital"`
	ReserveSurplus decimal.Decimal `json:"reserveSurplus"`
	NetWorth       decimal.Decimal `json:"netWorth"`
}

// ProfitabilityDetails are the profit figures of the company.
type ProfitabilityDetails struct {
	NetProfit decimal.Decimal `json:"netProfit"`
	EBIDTA    decimal.Decimal `json:"EBIDTA"`
}

// FinancialRatios are derived from the entered figures.
type FinancialRatios struct {
	DebtEquityRatio          decimal.Decimal `json:"debtEquityRatio"`
	CurrentRatio             decimal.Decimal `json:"currentRatio"`
	NetWorth                 decimal.Decimal `json:"netWorth"`
	QuickRatio               decimal.Decimal `json:"quickRatio"`
	ReturnOnEquity           decimal.Decimal `json:"returnOnEquity"`
	DebtServiceCoverageRatio decimal.Decimal `json:"debtServiceCoverageRatio"`
	ReturnOnAsset            decimal.Decimal `json:"returnOnAsset"`
}

// PreliminaryRequirements are the issuer's first bond parameters.
type PreliminaryRequirements struct {
	IssueAmount          decimal.Decimal `json:"issueAmount"`
	Security             bool            `json:"security"`
	Tenure               int             `json:"tenure" validate:"gt=0"`
	PreferedPaymentCycle int             `json:"preferedPaymentCycle" validate:"oneof=0 1 2"`
}

// Repayment terms of a borrowing.
const (
	RepaymentMonthly   = 0
	RepaymentYearly    = 1
	RepaymentQuarterly = 2
)

// CreditRating is a credit rating row attached to an estimation.
type CreditRating struct {
	ID                     string    `json:"id"`
	BondEstimationsID      string    `json:"bondEstimationsId"`
	ValidFrom              string    `json:"validFrom" validate:"required,isodate"`
	CreditRatingsID        string    `json:"creditRatingsId" validate:"required"`
	CreditRatingAgenciesID string    `json:"creditRatingAgenciesId" validate:"required"`
	RatingLetterID         string    `json:"ratingLetterId" validate:"required"`
	IsActive               bool      `json:"isActive"`
	CreatedAt              time.Time `json:"createdAt"`
}

// BorrowingDetail is an existing borrowing of the company.
type BorrowingDetail struct {
	ID                string          `json:"id"`
	BondEstimationsID string          `json:"bondEstimationsId"`
	LenderName        string          `json:"lenderName" validate:"required"`
	LenderAmount      decimal.Decimal `json:"lenderAmount"`
	RepaymentTerms    int             `json:"repaymentTerms" validate:"oneof=0 1 2"`
	BorrowingType     string          `json:"borrowingType" validate:"required"`
	InterestPayment   decimal.Decimal `json:"interestPayment"`
	MonthlyPrincipal  decimal.Decimal `json:"monthlyPrincipal"`
	MonthlyInterest   decimal.Decimal `json:"monthlyInterest"`
	IsActive          bool            `json:"isActive"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// CreditRatingsRequest is the body for PATCH /v1/bond-estimations/credit-ratings/{id}.
type CreditRatingsRequest struct {
	CreditRatings []CreditRating `json:"creditRatings" validate:"dive"`
}

// BorrowingDetailsRequest is the body for PATCH /v1/bond-estimations/borrowing-details/{id}.
type BorrowingDetailsRequest struct {
	BorrowingDetails []BorrowingDetail `json:"borrowingDetails" validate:"dive"`
}

// EstimationPage is a page of estimations with the total count.
type EstimationPage struct {
	Data  []*BondEstimation `json:"data"`
	Count int               `json:"count"`
}

// MediaRecord is an uploaded file. The KYC engine only flips IsUsed.
type MediaRecord struct {
	ID               string `json:"id"`
	FileURL          string `json:"fileUrl"`
	FileOriginalName string `json:"fileOriginalName"`
	IsUsed           bool   `json:"isUsed"`
}

// EstimationResult is returned by the estimation step endpoints.
type EstimationResult struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	Estimation      *BondEstimation  `json:"estimation,omitempty"`
	FinancialRatios *FinancialRatios `json:"financialRatios,omitempty"`
	CurrentProgress []string         `json:"currentProgress"`
}

// EstimationListResult is returned by GET /v1/bond-estimations.
type EstimationListResult struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	Estimations EstimationPage `json:"estimations"`
}
