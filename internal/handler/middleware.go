package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/bonds-kyc-engine/internal/port"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	envKey    contextKey = "env"
)

// EnvMiddleware exposes the deployment environment to error rendering.
func EnvMiddleware(env service.Env) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), envKey, env)))
		})
	}
}

// envFromContext defaults to production when no environment was set.
func envFromContext(ctx context.Context) service.Env {
	env, _ := ctx.Value(envKey).(service.Env)
	return env
}

// JWTAuthMiddleware validates Bearer tokens and injects the claims into context.
func JWTAuthMiddleware(tokens port.TokenService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Authorization header not found")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Authorization header is not of type 'Bearer'")
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccess rejects requests whose token lacks the roles or permissions.
// Mount it after JWTAuthMiddleware.
func RequireAccess(access *service.AccessControl, roles, permissions []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := access.Authorize(ClaimsFromContext(r.Context()), roles, permissions); err != nil {
				handleServiceError(w, r, err, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the authenticated token claims, or nil.
func ClaimsFromContext(ctx context.Context) *port.TokenClaims {
	v, _ := ctx.Value(claimsKey).(*port.TokenClaims)
	return v
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}
