package handler

import (
	"net/http"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 1. Auth
// ============================================================

func createSuperAdminHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/super-admin")
		defer span.End()

		var req domain.CreateSuperAdminRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		resp, err := authSvc.CreateSuperAdmin(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func superAdminLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/super-admin-login")
		defer span.End()

		var req domain.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		resp, err := authSvc.SuperAdminLogin(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func companyLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/company-login")
		defer span.End()

		var req domain.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		resp, err := authSvc.CompanyLogin(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func updatePasswordHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/update-password")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req domain.UpdatePasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		resp, err := authSvc.UpdatePassword(ctx, userID, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleKycApplicationHandler(onboarding *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/auth/handle-kyc-application")
		defer span.End()

		var req domain.KycDecision
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		span.SetAttributes(attribute.String("user.id", req.UserID), attribute.Int("kyc.status", req.Status))

		resp, err := onboarding.ApproveOrRejectKyc(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
