package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 4. Bond estimations
// ============================================================

func listEstimationsHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bond-estimations")
		defer span.End()

		limit, skip := parseWindow(r)
		resp, err := est.List(ctx, UserIDFromContext(ctx), limit, skip)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getEstimationHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bond-estimations/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("estimation.id", id))

		resp, err := est.Get(ctx, UserIDFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func initializeEstimationHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/bond-estimations/initialize")
		defer span.End()

		resp, err := est.Initialize(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

// stepHandler decodes a section body of type T and applies it to the
// estimation named by the {id} path parameter.
func stepHandler[T any](name string, apply func(ctx context.Context, userID, id string, body *T) (*domain.EstimationResult, error), logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), name)
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("estimation.id", id))

		var body T
		if err := decodeJSON(r, &body); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		resp, err := apply(ctx, UserIDFromContext(ctx), id, &body)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func fundPositionHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return stepHandler("PATCH /v1/bond-estimations/fund-positions/{id}", est.UpdateFundPosition, logger)
}

func capitalDetailsHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return stepHandler("PATCH /v1/bond-estimations/capital-details/{id}", est.UpdateCapitalDetails, logger)
}

func profitabilityDetailsHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return stepHandler("PATCH /v1/bond-estimations/profitability-details/{id}", est.UpdateProfitabilityDetails, logger)
}

func preliminaryRequirementsHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return stepHandler("PATCH /v1/bond-estimations/preliminary-requirements/{id}", est.UpdatePreliminaryRequirements, logger)
}

func creditRatingsHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return stepHandler("PATCH /v1/bond-estimations/credit-ratings/{id}",
		func(ctx context.Context, userID, id string, body *domain.CreditRatingsRequest) (*domain.EstimationResult, error) {
			return est.ReplaceCreditRatings(ctx, userID, id, body.CreditRatings)
		}, logger)
}

func borrowingDetailsHandler(est *service.EstimationWorkflow, logger *zap.Logger) http.HandlerFunc {
	return stepHandler("PATCH /v1/bond-estimations/borrowing-details/{id}",
		func(ctx context.Context, userID, id string, body *domain.BorrowingDetailsRequest) (*domain.EstimationResult, error) {
			return est.ReplaceBorrowingDetails(ctx, userID, id, body.BorrowingDetails)
		}, logger)
}
