package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseWindow reads the limit/skip query pair. Missing or malformed values
// stay zero so the service applies its defaults.
func parseWindow(r *http.Request) (limit, skip int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if v := r.URL.Query().Get("skip"); v != "" {
		if s, err := strconv.Atoi(v); err == nil && s > 0 {
			skip = s
		}
	}
	return
}

// handleServiceError maps domain errors to HTTP responses. Unclassified
// errors carry their detail only in development.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var validation *domain.ErrValidation
	var invalidSession *domain.ErrInvalidSession
	var expired *domain.ErrExpired
	var tooMany *domain.ErrTooManyAttempts
	var invalidCode *domain.ErrInvalidCode
	var conflict *domain.ErrConflict
	var duplicate *domain.ErrDuplicate
	var mismatch *domain.ErrNameMismatch
	var unauthorized *domain.ErrUnauthorized
	var forbidden *domain.ErrForbidden
	var invalidStatus *domain.ErrInvalidStatus
	var unsupportedRole *domain.ErrUnsupportedRole
	var internal *domain.ErrInternal

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &external):
		logger.Error("external service failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidSession), errors.As(err, &expired):
		logger.Debug("invalid session or code", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooMany):
		logger.Warn("otp attempts exhausted", zap.Int("max", tooMany.Max))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidCode):
		logger.Warn("invalid verification code")
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("code", conflict.Code), zap.String("error", err.Error()))
		writeJSON(w, http.StatusConflict, errorResponse{Message: err.Error(), Code: conflict.Code})
	case errors.As(err, &duplicate):
		logger.Debug("duplicate resource", zap.String("key", duplicate.Key))
		writeError(w, http.StatusConflict, "Record already exists")
	case errors.As(err, &mismatch):
		logger.Debug("identity mismatch", zap.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &invalidStatus), errors.As(err, &unsupportedRole):
		logger.Debug("invalid decision", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &internal):
		logger.Error("internal error", zap.Error(err), zap.NamedError("cause", internal.Err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		msg := "Something went wrong"
		if envFromContext(r.Context()).Development {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg)
	}
}
