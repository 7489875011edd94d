package service

import (
	"math/rand/v2"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"github.com/shopspring/decimal"
)

// RatioRange is the closed interval a generated ratio falls in.
type RatioRange struct {
	Min, Max float64
}

// Placeholder ranges until real ratio math exists.
var (
	DebtEquityRange   = RatioRange{0.5, 3}
	CurrentRange      = RatioRange{1, 3}
	NetWorthRange     = RatioRange{10, 100}
	QuickRange        = RatioRange{0.8, 2}
	ReturnEquityRange = RatioRange{5, 25}
	DSCRRange         = RatioRange{1, 3}
	ReturnAssetRange  = RatioRange{3, 15}
)

// RandomRatios fills every ratio with a random two-decimal value from its
// range. The estimation figures are ignored.
type RandomRatios struct {
	// Float64 returns a value in [0, 1). Defaults to math/rand/v2.
	Float64 func() float64
}

var _ port.RatioGenerator = RandomRatios{}

func (g RandomRatios) Generate(*domain.BondEstimation) (*domain.FinancialRatios, error) {
	return &domain.FinancialRatios{
		DebtEquityRatio:          g.pick(DebtEquityRange),
		CurrentRatio:             g.pick(CurrentRange),
		NetWorth:                 g.pick(NetWorthRange),
		QuickRatio:               g.pick(QuickRange),
		ReturnOnEquity:           g.pick(ReturnEquityRange),
		DebtServiceCoverageRatio: g.pick(DSCRRange),
		ReturnOnAsset:            g.pick(ReturnAssetRange),
	}, nil
}

func (g RandomRatios) pick(r RatioRange) decimal.Decimal {
	f := g.Float64
	if f == nil {
		f = rand.Float64
	}
	v := decimal.NewFromFloat(r.Min + f()*(r.Max-r.Min)).Round(2)
	// rounding can push a value just past either bound
	lo, hi := decimal.NewFromFloat(r.Min), decimal.NewFromFloat(r.Max)
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
