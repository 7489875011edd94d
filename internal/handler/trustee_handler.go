package handler

import (
	"net/http"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 3. Trustee KYC uploads
// ============================================================

func trusteeDocumentsHandler(onboarding *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trustee-profiles/kyc-upload-documents")
		defer span.End()

		var req domain.TrusteeDocumentsRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		span.SetAttributes(attribute.String("user.id", req.UsersID))

		resp, err := onboarding.UploadTrusteeDocuments(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func trusteeBankDetailsHandler(onboarding *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trustee-profiles/kyc-bank-details")
		defer span.End()

		var req domain.TrusteeBankDetailsRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		span.SetAttributes(attribute.String("user.id", req.UsersID))

		resp, err := onboarding.UploadTrusteeBankDetails(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func trusteeSignatoriesHandler(onboarding *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trustee-profiles/kyc-authorize-signatories")
		defer span.End()

		var req domain.TrusteeSignatoriesRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		span.SetAttributes(attribute.String("user.id", req.UsersID))

		resp, err := onboarding.UploadSignatories(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func trusteeSignatoryHandler(onboarding *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/trustee-profiles/kyc-authorize-signatory")
		defer span.End()

		var req domain.TrusteeSignatoryRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		resp, err := onboarding.UploadSignatory(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
