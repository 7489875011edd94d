package handler

import (
	"net/http"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Registration: OTP verification and company signup
// ============================================================

func sendPhoneOtpHandler(sessions *service.SessionTracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/send-phone-otp")
		defer span.End()

		var req domain.SendPhoneOtpRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		span.SetAttributes(attribute.String("role", req.Role))

		sessionID, err := sessions.Open(ctx, req.Phone, req.Role)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SessionResult{
			Success:   true,
			Message:   "OTP sent successfully",
			SessionID: sessionID,
		})
	}
}

func verifyPhoneOtpHandler(sessions *service.SessionTracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/verify-phone-otp")
		defer span.End()

		var req domain.VerifyOtpRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		if err := sessions.ConfirmPhone(ctx, req.SessionID, req.Otp); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SessionResult{Success: true, Message: "Phone number verified successfully"})
	}
}

func sendEmailOtpHandler(sessions *service.SessionTracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/send-email-otp")
		defer span.End()

		var req domain.SendEmailOtpRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		if err := sessions.AttachEmail(ctx, req.SessionID, req.Email); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SessionResult{
			Success:   true,
			Message:   "OTP sent successfully",
			SessionID: req.SessionID,
		})
	}
}

func verifyEmailOtpHandler(sessions *service.SessionTracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/verify-email-otp")
		defer span.End()

		var req domain.VerifyOtpRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		if err := sessions.ConfirmEmail(ctx, req.SessionID, req.Otp); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SessionResult{Success: true, Message: "Email verified successfully"})
	}
}

func companyRegistrationHandler(onboarding *service.Onboarding, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/company-registration")
		defer span.End()

		var req domain.CompanyRegistration
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		resp, err := onboarding.RegisterCompany(ctx, &req)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

// ============================================================
// KYC progress: GET /v1/kyc-applications/{id}/progress
// ============================================================

func kycProgressHandler(progress *service.ProgressTracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/kyc-applications/{id}/progress")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("kyc.id", id))

		steps, err := progress.Progress(ctx, nil, id)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ProgressResult{
			Success:         true,
			Message:         "KYC application progress",
			CurrentProgress: steps,
		})
	}
}
