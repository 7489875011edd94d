package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type failingRatios struct{}

func (failingRatios) Generate(*domain.BondEstimation) (*domain.FinancialRatios, error) {
	return nil, errors.New("ratio model unavailable")
}

// --- Tests ---

func TestRandomRatios_StayInRange(t *testing.T) {
	inRange := func(v decimal.Decimal, r service.RatioRange) bool {
		return !v.LessThan(decimal.NewFromFloat(r.Min)) && !v.GreaterThan(decimal.NewFromFloat(r.Max))
	}

	for _, g := range []service.RandomRatios{
		{},
		{Float64: func() float64 { return 0 }},
		{Float64: func() float64 { return 0.9999999 }},
	} {
		for i := 0; i < 50; i++ {
			r, err := g.Generate(nil)
			require.NoError(t, err)
			assert.True(t, inRange(r.DebtEquityRatio, service.DebtEquityRange), r.DebtEquityRatio.String())
			assert.True(t, inRange(r.CurrentRatio, service.CurrentRange), r.CurrentRatio.String())
			assert.True(t, inRange(r.NetWorth, service.NetWorthRange), r.NetWorth.String())
			assert.True(t, inRange(r.QuickRatio, service.QuickRange), r.QuickRatio.String())
			assert.True(t, inRange(r.ReturnOnEquity, service.ReturnEquityRange), r.ReturnOnEquity.String())
			assert.True(t, inRange(r.DebtServiceCoverageRatio, service.DSCRRange), r.DebtServiceCoverageRatio.String())
			assert.True(t, inRange(r.ReturnOnAsset, service.ReturnAssetRange), r.ReturnOnAsset.String())
			assert.LessOrEqual(t, -r.ReturnOnAsset.Exponent(), int32(2))
		}
	}

	top, err := service.RandomRatios{Float64: func() float64 { return 0.9999999 }}.Generate(nil)
	require.NoError(t, err)
	assert.True(t, top.CurrentRatio.Equal(decimal.NewFromInt(3)), top.CurrentRatio.String())
}

func TestEstimationWorkflow_Steps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.approvedCompany(t, "9876543210", "ops@acme.test")

	opened, err := f.estimations.Initialize(ctx, company.UserID)
	require.NoError(t, err)
	id := opened.Estimation.ID
	assert.Equal(t, []string{domain.StepInitialize}, opened.CurrentProgress)

	_, err = f.estimations.UpdateFundPosition(ctx, company.UserID, id, &domain.FundPosition{
		CashBalance:     decimal.NewFromInt(1_500_000),
		CashBalanceDate: "2026-02-28",
		BankBalance:     decimal.NewFromInt(9_000_000),
		BankBalanceDate: "2026-02-28",
	})
	require.NoError(t, err)

	res, err := f.estimations.UpdateCapitalDetails(ctx, company.UserID, id, &domain.CapitalDetails{
		ShareCapital:   decimal.NewFromInt(10_000_000),
		ReserveSurplus: decimal.NewFromInt(2_500_000),
		NetWorth:       decimal.NewFromInt(12_500_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "Capital details updated", res.Message)

	// repeating a step does not duplicate its tag
	res, err = f.estimations.UpdateCapitalDetails(ctx, company.UserID, id, &domain.CapitalDetails{
		ShareCapital: decimal.NewFromInt(10_000_000),
		NetWorth:     decimal.NewFromInt(10_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.StepInitialize, domain.StepFundPosition, domain.StepCapitalDetails}, res.CurrentProgress)

	res, err = f.estimations.UpdateProfitabilityDetails(ctx, company.UserID, id, &domain.ProfitabilityDetails{
		NetProfit: decimal.NewFromInt(1_200_000),
		EBIDTA:    decimal.NewFromInt(2_000_000),
	})
	require.NoError(t, err)
	require.NotNil(t, res.FinancialRatios)
	assert.Equal(t, []string{
		domain.StepInitialize,
		domain.StepFundPosition,
		domain.StepCapitalDetails,
		domain.StepProfitabilityDetails,
		domain.StepFinancialDetails,
	}, res.CurrentProgress)

	_, err = f.estimations.UpdatePreliminaryRequirements(ctx, company.UserID, id, &domain.PreliminaryRequirements{
		IssueAmount:          decimal.NewFromInt(50_000_000),
		Security:             true,
		Tenure:               36,
		PreferedPaymentCycle: 1,
	})
	require.NoError(t, err)

	_, err = f.estimations.ReplaceBorrowingDetails(ctx, company.UserID, id, []domain.BorrowingDetail{{
		LenderName:     "HDFC Bank",
		LenderAmount:   decimal.NewFromInt(5_000_000),
		RepaymentTerms: domain.RepaymentMonthly,
		BorrowingType:  "term_loan",
	}})
	require.NoError(t, err)

	got, err := f.estimations.Get(ctx, company.UserID, id)
	require.NoError(t, err)
	est := got.Estimation
	require.NotNil(t, est.CapitalDetails)
	assert.True(t, est.CapitalDetails.NetWorth.Equal(decimal.NewFromInt(10_000_000)))
	require.NotNil(t, est.FinancialRatios)
	assert.True(t, est.FinancialRatios.CurrentRatio.Equal(res.FinancialRatios.CurrentRatio))
	require.NotNil(t, est.PreliminaryRequirements)
	assert.Equal(t, 36, est.PreliminaryRequirements.Tenure)
	require.Len(t, est.BorrowingDetails, 1)
	assert.Equal(t, "HDFC Bank", est.BorrowingDetails[0].LenderName)
	assert.Contains(t, got.CurrentProgress, domain.StepPreliminaryBondParams)
	assert.Contains(t, got.CurrentProgress, domain.StepBorrowingDetails)
}

func TestEstimationWorkflow_ProfitabilityRollsBackOnRatioFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.approvedCompany(t, "9876543210", "ops@acme.test")
	est := service.NewEstimationWorkflow(f.store, failingRatios{}, f.media, service.Env{}, zap.NewNop())

	opened, err := est.Initialize(ctx, company.UserID)
	require.NoError(t, err)

	_, err = est.UpdateProfitabilityDetails(ctx, company.UserID, opened.Estimation.ID, &domain.ProfitabilityDetails{
		NetProfit: decimal.NewFromInt(1),
		EBIDTA:    decimal.NewFromInt(1),
	})
	var internal *domain.ErrInternal
	require.ErrorAs(t, err, &internal)
	assert.Equal(t, "Something went wrong", internal.Message)

	got, err := est.Get(ctx, company.UserID, opened.Estimation.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Estimation.ProfitabilityDetails)
	assert.Equal(t, []string{domain.StepInitialize}, got.CurrentProgress)
}

func TestEstimationWorkflow_CreditRatingLetters(t *testing.T) {
	f := newFixture(t,
		domain.MediaRecord{ID: "letter-1"},
		domain.MediaRecord{ID: "letter-2"},
		domain.MediaRecord{ID: "letter-3"},
	)
	ctx := context.Background()
	company := f.approvedCompany(t, "9876543210", "ops@acme.test")
	opened, err := f.estimations.Initialize(ctx, company.UserID)
	require.NoError(t, err)
	id := opened.Estimation.ID

	rating := func(letter string) domain.CreditRating {
		return domain.CreditRating{
			ValidFrom:              "2025-04-01",
			CreditRatingsID:        "rating-aa",
			CreditRatingAgenciesID: "agency-crisil",
			RatingLetterID:         letter,
		}
	}
	used := func(id string) bool {
		m, ok := f.media.Get(id)
		require.True(t, ok, id)
		return m.IsUsed
	}

	_, err = f.estimations.ReplaceCreditRatings(ctx, company.UserID, id, []domain.CreditRating{rating("letter-1"), rating("letter-2")})
	require.NoError(t, err)
	assert.True(t, used("letter-1"))
	assert.True(t, used("letter-2"))
	assert.False(t, used("letter-3"))

	res, err := f.estimations.ReplaceCreditRatings(ctx, company.UserID, id, []domain.CreditRating{rating("letter-2"), rating("letter-3")})
	require.NoError(t, err)
	assert.Equal(t, "Credit rating added", res.Message)
	assert.False(t, used("letter-1"))
	assert.True(t, used("letter-2"))
	assert.True(t, used("letter-3"))

	got, err := f.estimations.Get(ctx, company.UserID, id)
	require.NoError(t, err)
	require.Len(t, got.Estimation.CreditRatings, 2)
	letters := []string{got.Estimation.CreditRatings[0].RatingLetterID, got.Estimation.CreditRatings[1].RatingLetterID}
	assert.ElementsMatch(t, []string{"letter-2", "letter-3"}, letters)
}

func TestEstimationWorkflow_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.approvedCompany(t, "9876543210", "ops@acme.test")

	other := registration(f.verifiedSession(t, "9123456780", "cfo@globex.test"))
	other.CompanyName = "Globex Metals Ltd"
	other.CIN = "L27200DL2010PLC204567"
	other.GSTIN = "07FGHIJ5678K1Z3"
	other.SubmittedPanDetails.SubmittedCompanyName = "Globex Metals Ltd"
	other.SubmittedPanDetails.SubmittedPanNumber = "FGHIJ5678K"
	intruder, err := f.onboarding.RegisterCompany(ctx, other)
	require.NoError(t, err)

	opened, err := f.estimations.Initialize(ctx, owner.UserID)
	require.NoError(t, err)

	_, err = f.estimations.Get(ctx, intruder.UserID, opened.Estimation.ID)
	var unauthorized *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, "Unauthorize Access", unauthorized.Message)

	_, err = f.estimations.UpdateCapitalDetails(ctx, intruder.UserID, opened.Estimation.ID, &domain.CapitalDetails{})
	require.ErrorAs(t, err, &unauthorized)

	_, err = f.estimations.Get(ctx, owner.UserID, "missing")
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "No bond estimation record found", nf.Message)

	list, err := f.estimations.List(ctx, intruder.UserID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Estimations.Count)
}

func TestEstimationWorkflow_ListPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.approvedCompany(t, "9876543210", "ops@acme.test")

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := f.estimations.Initialize(ctx, company.UserID)
		require.NoError(t, err)
		ids = append(ids, res.Estimation.ID)
	}

	page, err := f.estimations.List(ctx, company.UserID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Estimations.Count)
	require.Len(t, page.Estimations.Data, 2)
	assert.Equal(t, ids[2], page.Estimations.Data[0].ID)

	page, err = f.estimations.List(ctx, company.UserID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Estimations.Data, 1)
	assert.Equal(t, ids[0], page.Estimations.Data[0].ID)
}

func TestEstimationWorkflow_RequiresActiveCompany(t *testing.T) {
	f := newFixture(t)

	_, err := f.estimations.Initialize(context.Background(), "no-company")
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Company not found", nf.Message)
}
