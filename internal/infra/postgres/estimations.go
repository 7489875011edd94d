package postgres

import (
	"context"
	"fmt"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

const estimationColumns = `id, company_profiles_id, current_progress, fund_position, capital_details,
	profitability_details, financial_ratios, preliminary_requirements, is_active, is_deleted, created_at`

func scanEstimation(row pgx.Row) (*domain.BondEstimation, error) {
	var e domain.BondEstimation
	var active, deleted bool
	err := row.Scan(&e.ID, &e.CompanyProfilesID, &e.CurrentProgress, &e.FundPosition, &e.CapitalDetails,
		&e.ProfitabilityDetails, &e.FinancialRatios, &e.PreliminaryRequirements, &active, &deleted, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.State = domain.StateFromFlags(active, deleted)
	if e.CurrentProgress == nil {
		e.CurrentProgress = []string{}
	}
	return &e, nil
}

func (q *queries) CreateEstimation(ctx context.Context, e *domain.BondEstimation) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateEstimation")
	defer span.End()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CurrentProgress == nil {
		e.CurrentProgress = []string{}
	}
	active, deleted := e.State.Flags()
	err := q.db.QueryRow(ctx, `
		INSERT INTO bond_estimations (id, company_profiles_id, current_progress, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		e.ID, e.CompanyProfilesID, e.CurrentProgress, active, deleted,
	).Scan(&e.CreatedAt)
	return mapErr(err)
}

func (q *queries) GetEstimation(ctx context.Context, id string) (*domain.BondEstimation, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetEstimation")
	defer span.End()

	e, err := scanEstimation(q.db.QueryRow(ctx, `SELECT `+estimationColumns+` FROM bond_estimations WHERE id = $1`, id))
	return must(e, err, "bond estimation", id)
}

func (q *queries) ListEstimations(ctx context.Context, companyProfileID string, limit, skip int) ([]*domain.BondEstimation, int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListEstimations")
	defer span.End()
	span.SetAttributes(attribute.Int("page.limit", limit), attribute.Int("page.skip", skip))

	var total int
	if err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM bond_estimations
		WHERE company_profiles_id = $1 AND NOT is_deleted`, companyProfileID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.Query(ctx, `
		SELECT `+estimationColumns+` FROM bond_estimations
		WHERE company_profiles_id = $1 AND NOT is_deleted
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, companyProfileID, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.BondEstimation{}
	for rows.Next() {
		e, err := scanEstimation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// saveSection writes one jsonb section column. column is never user input.
func (q *queries) saveSection(ctx context.Context, id, column string, value any) error {
	ctx, span := tracer.Start(ctx, "Postgres.SaveEstimationSection")
	defer span.End()
	span.SetAttributes(attribute.String("estimation.section", column))

	tag, err := q.db.Exec(ctx, fmt.Sprintf(`UPDATE bond_estimations SET %s = $2 WHERE id = $1`, column), id, value)
	return affected(tag, err, "bond estimation", id)
}

func (q *queries) SaveFundPosition(ctx context.Context, id string, fp *domain.FundPosition) error {
	return q.saveSection(ctx, id, "fund_position", fp)
}

func (q *queries) SaveCapitalDetails(ctx context.Context, id string, cd *domain.CapitalDetails) error {
	return q.saveSection(ctx, id, "capital_details", cd)
}

func (q *queries) SaveProfitabilityDetails(ctx context.Context, id string, pd *domain.ProfitabilityDetails) error {
	return q.saveSection(ctx, id, "profitability_details", pd)
}

func (q *queries) SaveFinancialRatios(ctx context.Context, id string, fr *domain.FinancialRatios) error {
	return q.saveSection(ctx, id, "financial_ratios", fr)
}

func (q *queries) SavePreliminaryRequirements(ctx context.Context, id string, pr *domain.PreliminaryRequirements) error {
	return q.saveSection(ctx, id, "preliminary_requirements", pr)
}

func (q *queries) AppendEstimationProgress(ctx context.Context, id, tag string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Postgres.AppendEstimationProgress")
	defer span.End()
	span.SetAttributes(attribute.String("estimation.step", tag))

	var progress []string
	err := q.db.QueryRow(ctx, `
		UPDATE bond_estimations
		SET current_progress = CASE
			WHEN current_progress ? $2 THEN current_progress
			ELSE current_progress || jsonb_build_array($2::text)
		END
		WHERE id = $1
		RETURNING current_progress`, id, tag,
	).Scan(&progress)
	if _, err := must(&progress, err, "bond estimation", id); err != nil {
		return nil, err
	}
	return progress, nil
}

// --- child rows ---

func (q *queries) ListCreditRatings(ctx context.Context, estimationID string) ([]domain.CreditRating, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListCreditRatings")
	defer span.End()

	rows, err := q.db.Query(ctx, `
		SELECT id, bond_estimations_id, valid_from, credit_ratings_id, credit_rating_agencies_id,
			rating_letter_id, is_active, created_at
		FROM estimation_credit_ratings
		WHERE bond_estimations_id = $1 AND is_active
		ORDER BY created_at`, estimationID)
	if err != nil {
		if malformedID(err) {
			return []domain.CreditRating{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	out := []domain.CreditRating{}
	for rows.Next() {
		var cr domain.CreditRating
		if err := rows.Scan(&cr.ID, &cr.BondEstimationsID, &cr.ValidFrom, &cr.CreditRatingsID,
			&cr.CreditRatingAgenciesID, &cr.RatingLetterID, &cr.IsActive, &cr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// ReplaceCreditRatings deletes every rating of the estimation and inserts the
// new set. Run it inside a unit of work.
func (q *queries) ReplaceCreditRatings(ctx context.Context, estimationID string, ratings []domain.CreditRating) error {
	ctx, span := tracer.Start(ctx, "Postgres.ReplaceCreditRatings")
	defer span.End()
	span.SetAttributes(attribute.Int("ratings.count", len(ratings)))

	if _, err := q.db.Exec(ctx, `DELETE FROM estimation_credit_ratings WHERE bond_estimations_id = $1`, estimationID); err != nil {
		return err
	}
	for _, cr := range ratings {
		id := cr.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := q.db.Exec(ctx, `
			INSERT INTO estimation_credit_ratings (id, bond_estimations_id, valid_from, credit_ratings_id,
				credit_rating_agencies_id, rating_letter_id, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, true)`,
			id, estimationID, cr.ValidFrom, cr.CreditRatingsID, cr.CreditRatingAgenciesID, cr.RatingLetterID)
		if err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (q *queries) ListBorrowingDetails(ctx context.Context, estimationID string) ([]domain.BorrowingDetail, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListBorrowingDetails")
	defer span.End()

	rows, err := q.db.Query(ctx, `
		SELECT id, bond_estimations_id, lender_name, lender_amount, repayment_terms, borrowing_type,
			interest_payment, monthly_principal, monthly_interest, is_active, created_at
		FROM estimation_borrowing_details
		WHERE bond_estimations_id = $1 AND is_active
		ORDER BY created_at`, estimationID)
	if err != nil {
		if malformedID(err) {
			return []domain.BorrowingDetail{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	out := []domain.BorrowingDetail{}
	for rows.Next() {
		var bd domain.BorrowingDetail
		if err := rows.Scan(&bd.ID, &bd.BondEstimationsID, &bd.LenderName, &bd.LenderAmount, &bd.RepaymentTerms,
			&bd.BorrowingType, &bd.InterestPayment, &bd.MonthlyPrincipal, &bd.MonthlyInterest,
			&bd.IsActive, &bd.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, bd)
	}
	return out, rows.Err()
}

func (q *queries) ReplaceBorrowingDetails(ctx context.Context, estimationID string, details []domain.BorrowingDetail) error {
	ctx, span := tracer.Start(ctx, "Postgres.ReplaceBorrowingDetails")
	defer span.End()
	span.SetAttributes(attribute.Int("borrowings.count", len(details)))

	if _, err := q.db.Exec(ctx, `DELETE FROM estimation_borrowing_details WHERE bond_estimations_id = $1`, estimationID); err != nil {
		return err
	}
	for _, bd := range details {
		id := bd.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := q.db.Exec(ctx, `
			INSERT INTO estimation_borrowing_details (id, bond_estimations_id, lender_name, lender_amount,
				repayment_terms, borrowing_type, interest_payment, monthly_principal, monthly_interest, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)`,
			id, estimationID, bd.LenderName, bd.LenderAmount, bd.RepaymentTerms, bd.BorrowingType,
			bd.InterestPayment, bd.MonthlyPrincipal, bd.MonthlyInterest)
		if err != nil {
			return mapErr(err)
		}
	}
	return nil
}
