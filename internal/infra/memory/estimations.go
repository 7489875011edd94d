package memory

import (
	"context"
	"slices"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
)

func (r *repo) CreateEstimation(_ context.Context, e *domain.BondEstimation) error {
	st, unlock := r.lock()
	defer unlock()

	e.ID = newID(e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	if e.CurrentProgress == nil {
		e.CurrentProgress = []string{}
	}
	row := *e
	row.CurrentProgress = slices.Clone(e.CurrentProgress)
	row.CreditRatings = nil
	row.BorrowingDetails = nil
	st.estimations.put(e.ID, row)
	return nil
}

func (r *repo) GetEstimation(_ context.Context, id string) (*domain.BondEstimation, error) {
	st, unlock := r.lock()
	defer unlock()

	e, ok := st.estimations.get(id)
	if !ok {
		return nil, notFound("bond estimation", id)
	}
	e.CurrentProgress = slices.Clone(e.CurrentProgress)
	return &e, nil
}

func (r *repo) ListEstimations(_ context.Context, companyProfileID string, limit, skip int) ([]*domain.BondEstimation, int, error) {
	st, unlock := r.lock()
	defer unlock()

	all := st.estimations.filter(func(x domain.BondEstimation) bool {
		return x.CompanyProfilesID == companyProfileID && !x.State.IsDeleted()
	})
	// newest first
	slices.Reverse(all)
	count := len(all)
	if skip > count {
		skip = count
	}
	end := count
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	out := make([]*domain.BondEstimation, 0, end-skip)
	for i := skip; i < end; i++ {
		e := all[i]
		e.CurrentProgress = slices.Clone(e.CurrentProgress)
		out = append(out, &e)
	}
	return out, count, nil
}

func (r *repo) updateEstimation(id string, fn func(*domain.BondEstimation)) error {
	st, unlock := r.lock()
	defer unlock()

	e, ok := st.estimations.get(id)
	if !ok {
		return notFound("bond estimation", id)
	}
	fn(&e)
	st.estimations.put(id, e)
	return nil
}

func (r *repo) SaveFundPosition(_ context.Context, id string, fp *domain.FundPosition) error {
	v := *fp
	return r.updateEstimation(id, func(e *domain.BondEstimation) { e.FundPosition = &v })
}

func (r *repo) SaveCapitalDetails(_ context.Context, id string, cd *domain.CapitalDetails) error {
	v := *cd
	return r.updateEstimation(id, func(e *domain.BondEstimation) { e.CapitalDetails = &v })
}

func (r *repo) SaveProfitabilityDetails(_ context.Context, id string, pd *domain.ProfitabilityDetails) error {
	v := *pd
	return r.updateEstimation(id, func(e *domain.BondEstimation) { e.ProfitabilityDetails = &v })
}

func (r *repo) SaveFinancialRatios(_ context.Context, id string, fr *domain.FinancialRatios) error {
	v := *fr
	return r.updateEstimation(id, func(e *domain.BondEstimation) { e.FinancialRatios = &v })
}

func (r *repo) SavePreliminaryRequirements(_ context.Context, id string, pr *domain.PreliminaryRequirements) error {
	v := *pr
	return r.updateEstimation(id, func(e *domain.BondEstimation) { e.PreliminaryRequirements = &v })
}

func (r *repo) AppendEstimationProgress(_ context.Context, id, tag string) ([]string, error) {
	var progress []string
	err := r.updateEstimation(id, func(e *domain.BondEstimation) {
		e.CurrentProgress = domain.AppendStep(e.CurrentProgress, tag)
		progress = slices.Clone(e.CurrentProgress)
	})
	return progress, err
}

func (r *repo) ListCreditRatings(_ context.Context, estimationID string) ([]domain.CreditRating, error) {
	st, unlock := r.lock()
	defer unlock()

	return slices.Clone(st.ratings[estimationID]), nil
}

func (r *repo) ReplaceCreditRatings(_ context.Context, estimationID string, ratings []domain.CreditRating) error {
	st, unlock := r.lock()
	defer unlock()

	if _, ok := st.estimations.get(estimationID); !ok {
		return notFound("bond estimation", estimationID)
	}
	now := r.now()
	rows := make([]domain.CreditRating, len(ratings))
	for i, cr := range ratings {
		cr.ID = newID(cr.ID)
		cr.BondEstimationsID = estimationID
		cr.IsActive = true
		if cr.CreatedAt.IsZero() {
			cr.CreatedAt = now
		}
		rows[i] = cr
	}
	st.ratings[estimationID] = rows
	return nil
}

func (r *repo) ListBorrowingDetails(_ context.Context, estimationID string) ([]domain.BorrowingDetail, error) {
	st, unlock := r.lock()
	defer unlock()

	return slices.Clone(st.borrowings[estimationID]), nil
}

func (r *repo) ReplaceBorrowingDetails(_ context.Context, estimationID string, details []domain.BorrowingDetail) error {
	st, unlock := r.lock()
	defer unlock()

	if _, ok := st.estimations.get(estimationID); !ok {
		return notFound("bond estimation", estimationID)
	}
	now := r.now()
	rows := make([]domain.BorrowingDetail, len(details))
	for i, bd := range details {
		bd.ID = newID(bd.ID)
		bd.BondEstimationsID = estimationID
		bd.IsActive = true
		if bd.CreatedAt.IsZero() {
			bd.CreatedAt = now
		}
		rows[i] = bd
	}
	st.borrowings[estimationID] = rows
	return nil
}
