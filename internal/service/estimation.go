package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var estimationTracer = otel.Tracer("service/estimation")

const defaultEstimationPage = 10

// EstimationWorkflow drives the bond estimation steps of an approved
// company. Every call is scoped to the caller's own active company profile.
type EstimationWorkflow struct {
	store  port.Store
	ratios port.RatioGenerator
	media  port.MediaLedger
	env    Env
	logger *zap.Logger
}

func NewEstimationWorkflow(store port.Store, ratios port.RatioGenerator, media port.MediaLedger, env Env, logger *zap.Logger) *EstimationWorkflow {
	if ratios == nil {
		ratios = RandomRatios{}
	}
	return &EstimationWorkflow{store: store, ratios: ratios, media: media, env: env, logger: logger}
}

func (w *EstimationWorkflow) company(ctx context.Context, repos port.Repositories, userID string) (*domain.CompanyProfile, error) {
	c, err := repos.FindActiveCompanyByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	if c == nil {
		return nil, &domain.ErrNotFound{Resource: "company", ID: userID, Message: "Company not found"}
	}
	return c, nil
}

// owned loads estimation id and checks it belongs to userID's company.
func (w *EstimationWorkflow) owned(ctx context.Context, repos port.Repositories, userID, id string) (*domain.BondEstimation, error) {
	c, err := w.company(ctx, repos, userID)
	if err != nil {
		return nil, err
	}
	est, err := repos.GetEstimation(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.ErrNotFound{Resource: "bond estimation", ID: id, Message: "No bond estimation record found"}
		}
		return nil, fmt.Errorf("get estimation: %w", err)
	}
	if est.State.IsDeleted() {
		return nil, &domain.ErrNotFound{Resource: "bond estimation", ID: id, Message: "No bond estimation record found"}
	}
	if est.CompanyProfilesID != c.ID {
		return nil, &domain.ErrUnauthorized{Message: "Unauthorize Access"}
	}
	return est, nil
}

// ============================================================
// Read: GET /v1/bond-estimations, /v1/bond-estimations/{id}
// ============================================================

// List returns a page of the caller's estimations, newest first. A
// non-positive limit means the default page size.
func (w *EstimationWorkflow) List(ctx context.Context, userID string, limit, skip int) (*domain.EstimationListResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.List")
	defer span.End()

	if limit <= 0 {
		limit = defaultEstimationPage
	}
	if skip < 0 {
		skip = 0
	}
	c, err := w.company(ctx, w.store, userID)
	if err != nil {
		return nil, err
	}
	rows, count, err := w.store.ListEstimations(ctx, c.ID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list estimations: %w", err)
	}
	return &domain.EstimationListResult{
		Success:     true,
		Message:     "Bond Estimations data",
		Estimations: domain.EstimationPage{Data: rows, Count: count},
	}, nil
}

// Get returns one estimation with its credit ratings and borrowing details.
func (w *EstimationWorkflow) Get(ctx context.Context, userID, id string) (*domain.EstimationResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.Get")
	defer span.End()
	span.SetAttributes(attribute.String("estimation.id", id))

	est, err := w.owned(ctx, w.store, userID, id)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ratings, err := w.store.ListCreditRatings(gctx, id)
		if err != nil {
			return fmt.Errorf("list credit ratings: %w", err)
		}
		est.CreditRatings = ratings
		return nil
	})
	g.Go(func() error {
		details, err := w.store.ListBorrowingDetails(gctx, id)
		if err != nil {
			return fmt.Errorf("list borrowing details: %w", err)
		}
		est.BorrowingDetails = details
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.EstimationResult{
		Success:         true,
		Message:         "Bond Estimation Data",
		Estimation:      est,
		CurrentProgress: est.CurrentProgress,
	}, nil
}

// ============================================================
// Steps: POST /initialize, PATCH /{section}/{id}
// ============================================================

// Initialize opens a new estimation for the caller's company.
func (w *EstimationWorkflow) Initialize(ctx context.Context, userID string) (*domain.EstimationResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.Initialize")
	defer span.End()

	c, err := w.company(ctx, w.store, userID)
	if err != nil {
		return nil, err
	}
	est := &domain.BondEstimation{
		CompanyProfilesID: c.ID,
		CurrentProgress:   []string{domain.StepInitialize},
		State:             domain.StateActive,
	}
	if err := w.store.CreateEstimation(ctx, est); err != nil {
		return nil, fmt.Errorf("create estimation: %w", err)
	}

	w.logger.Info("bond estimation initialized",
		zap.String("estimation_id", est.ID),
		zap.String("company_profile_id", c.ID),
	)
	return &domain.EstimationResult{
		Success:         true,
		Message:         "New Bond estimation initialized",
		Estimation:      est,
		CurrentProgress: est.CurrentProgress,
	}, nil
}

// step runs save and the progress append for one section in a unit of work.
func (w *EstimationWorkflow) step(ctx context.Context, userID, id, tag string, save func(port.Repositories) error) ([]string, error) {
	var progress []string
	err := inTx(ctx, w.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		if _, err := w.owned(ctx, uow, userID, id); err != nil {
			return err
		}
		if err := save(uow); err != nil {
			return err
		}
		p, err := uow.AppendEstimationProgress(ctx, id, tag)
		if err != nil {
			return fmt.Errorf("append progress: %w", err)
		}
		progress = p
		return nil
	})
	return progress, err
}

func (w *EstimationWorkflow) UpdateFundPosition(ctx context.Context, userID, id string, fp *domain.FundPosition) (*domain.EstimationResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.UpdateFundPosition")
	defer span.End()

	progress, err := w.step(ctx, userID, id, domain.StepFundPosition, func(r port.Repositories) error {
		return r.SaveFundPosition(ctx, id, fp)
	})
	if err != nil {
		return nil, err
	}
	return &domain.EstimationResult{Success: true, Message: "Fund position updated", CurrentProgress: progress}, nil
}

func (w *EstimationWorkflow) UpdateCapitalDetails(ctx context.Context, userID, id string, cd *domain.CapitalDetails) (*domain.EstimationResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.UpdateCapitalDetails")
	defer span.End()

	progress, err := w.step(ctx, userID, id, domain.StepCapitalDetails, func(r port.Repositories) error {
		return r.SaveCapitalDetails(ctx, id, cd)
	})
	if err != nil {
		return nil, err
	}
	return &domain.EstimationResult{Success: true, Message: "Capital details updated", CurrentProgress: progress}, nil
}

func (w *EstimationWorkflow) UpdatePreliminaryRequirements(ctx context.Context, userID, id string, pr *domain.PreliminaryRequirements) (*domain.EstimationResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.UpdatePreliminaryRequirements")
	defer span.End()

	progress, err := w.step(ctx, userID, id, domain.StepPreliminaryBondParams, func(r port.Repositories) error {
		return r.SavePreliminaryRequirements(ctx, id, pr)
	})
	if err != nil {
		return nil, err
	}
	return &domain.EstimationResult{Success: true, Message: "Preliminary requirements updated", CurrentProgress: progress}, nil
}

// UpdateProfitabilityDetails stores the profit figures and derives the
// financial ratios in the same unit of work.
func (w *EstimationWorkflow) UpdateProfitabilityDetails(ctx context.Context, userID, id string, pd *domain.ProfitabilityDetails) (*domain.EstimationResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.UpdateProfitabilityDetails")
	defer span.End()

	result := &domain.EstimationResult{Success: true, Message: "Profitability Details updated"}
	err := inTx(ctx, w.store, port.ReadCommitted, func(uow port.UnitOfWork) error {
		est, err := w.owned(ctx, uow, userID, id)
		if err != nil {
			return err
		}
		if err := uow.SaveProfitabilityDetails(ctx, id, pd); err != nil {
			return fmt.Errorf("save profitability details: %w", err)
		}
		if _, err := uow.AppendEstimationProgress(ctx, id, domain.StepProfitabilityDetails); err != nil {
			return fmt.Errorf("append progress: %w", err)
		}

		est.ProfitabilityDetails = pd
		ratios, err := w.ratios.Generate(est)
		if err != nil {
			return w.env.internal("Failed to generate financial ratios", err)
		}
		if err := uow.SaveFinancialRatios(ctx, id, ratios); err != nil {
			return fmt.Errorf("save financial ratios: %w", err)
		}
		progress, err := uow.AppendEstimationProgress(ctx, id, domain.StepFinancialDetails)
		if err != nil {
			return fmt.Errorf("append progress: %w", err)
		}
		result.FinancialRatios = ratios
		result.CurrentProgress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceCreditRatings swaps the rating rows of an estimation. Rating
// letters no longer referenced are released in the media ledger and the
// new ones claimed, after commit.
func (w *EstimationWorkflow) ReplaceCreditRatings(ctx context.Context, userID, id string, ratings []domain.CreditRating) (*domain.EstimationResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.ReplaceCreditRatings")
	defer span.End()
	span.SetAttributes(attribute.Int("ratings.count", len(ratings)))

	var previous []domain.CreditRating
	progress, err := w.step(ctx, userID, id, domain.StepCreditRatings, func(r port.Repositories) error {
		old, err := r.ListCreditRatings(ctx, id)
		if err != nil {
			return fmt.Errorf("list credit ratings: %w", err)
		}
		previous = old
		if err := r.ReplaceCreditRatings(ctx, id, ratings); err != nil {
			return fmt.Errorf("replace credit ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.reconcileLetters(ctx, previous, ratings)
	return &domain.EstimationResult{Success: true, Message: "Credit rating added", CurrentProgress: progress}, nil
}

func (w *EstimationWorkflow) reconcileLetters(ctx context.Context, previous, current []domain.CreditRating) {
	claimed := make([]string, 0, len(current))
	keep := make(map[string]bool, len(current))
	for _, r := range current {
		claimed = append(claimed, r.RatingLetterID)
		keep[r.RatingLetterID] = true
	}
	released := make([]string, 0, len(previous))
	for _, r := range previous {
		// a letter kept across the swap must not be released concurrently
		if !keep[r.RatingLetterID] {
			released = append(released, r.RatingLetterID)
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		markMedia(ctx, w.media, w.logger, released, false)
		return nil
	})
	g.Go(func() error {
		markMedia(ctx, w.media, w.logger, claimed, true)
		return nil
	})
	_ = g.Wait()
}

func (w *EstimationWorkflow) ReplaceBorrowingDetails(ctx context.Context, userID, id string, details []domain.BorrowingDetail) (*domain.EstimationResult, error) {
	ctx, span := estimationTracer.Start(ctx, "EstimationWorkflow.ReplaceBorrowingDetails")
	defer span.End()
	span.SetAttributes(attribute.Int("borrowings.count", len(details)))

	progress, err := w.step(ctx, userID, id, domain.StepBorrowingDetails, func(r port.Repositories) error {
		if err := r.ReplaceBorrowingDetails(ctx, id, details); err != nil {
			return fmt.Errorf("replace borrowing details: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &domain.EstimationResult{Success: true, Message: "Borrowing details added", CurrentProgress: progress}, nil
}
