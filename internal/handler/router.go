package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/observability"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services are the application services behind the HTTP surface. Any of
// them may be nil; their routes then answer 503.
type Services struct {
	Store       port.Store
	Tokens      port.TokenService
	Access      *service.AccessControl
	Auth        *service.AuthService
	Sessions    *service.SessionTracker
	Onboarding  *service.Onboarding
	Progress    *service.ProgressTracker
	Estimations *service.EstimationWorkflow
	Env         service.Env
}

func (s Services) ready() bool {
	return s.Store != nil && s.Tokens != nil && s.Access != nil
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(EnvMiddleware(svc.Env))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/onboarding", onboardingMetricsHandler(metrics))

		if !svc.ready() {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "service unavailable: storage not configured")
			}))
			return
		}

		authn := JWTAuthMiddleware(svc.Tokens, logger)
		superAdmin := RequireAccess(svc.Access, []string{domain.RoleSuperAdmin}, nil, logger)
		company := RequireAccess(svc.Access, []string{domain.RoleCompany}, nil, logger)

		// =============================================
		// 1. Auth & registration
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/super-admin", createSuperAdminHandler(svc.Auth, logger))
			r.Post("/super-admin-login", superAdminLoginHandler(svc.Auth, logger))
			r.Post("/company-login", companyLoginHandler(svc.Auth, logger))

			r.Post("/send-phone-otp", sendPhoneOtpHandler(svc.Sessions, logger))
			r.Post("/verify-phone-otp", verifyPhoneOtpHandler(svc.Sessions, logger))
			r.Post("/send-email-otp", sendEmailOtpHandler(svc.Sessions, logger))
			r.Post("/verify-email-otp", verifyEmailOtpHandler(svc.Sessions, logger))
			r.Post("/company-registration", companyRegistrationHandler(svc.Onboarding, logger))

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/update-password", updatePasswordHandler(svc.Auth, logger))
				r.With(superAdmin).Patch("/handle-kyc-application", handleKycApplicationHandler(svc.Onboarding, logger))
			})
		})

		// =============================================
		// 2. KYC progress (super admin)
		// =============================================
		r.With(authn, superAdmin).Get("/kyc-applications/{id}/progress", kycProgressHandler(svc.Progress, logger))

		// =============================================
		// 3. Trustee KYC uploads
		// =============================================
		r.Route("/trustee-profiles", func(r chi.Router) {
			r.Post("/kyc-upload-documents", trusteeDocumentsHandler(svc.Onboarding, logger))
			r.Post("/kyc-bank-details", trusteeBankDetailsHandler(svc.Onboarding, logger))
			r.Post("/kyc-authorize-signatories", trusteeSignatoriesHandler(svc.Onboarding, logger))
			r.Post("/kyc-authorize-signatory", trusteeSignatoryHandler(svc.Onboarding, logger))
		})

		// =============================================
		// 4. Bond estimations (company)
		// =============================================
		r.Route("/bond-estimations", func(r chi.Router) {
			r.Use(authn, company)
			r.Get("/", listEstimationsHandler(svc.Estimations, logger))
			r.Get("/{id}", getEstimationHandler(svc.Estimations, logger))
			r.Post("/initialize", initializeEstimationHandler(svc.Estimations, logger))
			r.Patch("/fund-positions/{id}", fundPositionHandler(svc.Estimations, logger))
			r.Patch("/capital-details/{id}", capitalDetailsHandler(svc.Estimations, logger))
			r.Patch("/profitability-details/{id}", profitabilityDetailsHandler(svc.Estimations, logger))
			r.Patch("/credit-ratings/{id}", creditRatingsHandler(svc.Estimations, logger))
			r.Patch("/borrowing-details/{id}", borrowingDetailsHandler(svc.Estimations, logger))
			r.Patch("/preliminary-requirements/{id}", preliminaryRequirementsHandler(svc.Estimations, logger))
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(store port.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "kyc-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			err := store.Ping(r.Context())
			status := "healthy"
			if err != nil {
				logger.Warn("healthz: store ping failed", zap.Error(err))
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name: "database", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = s.Status
			}
		}
		code := http.StatusOK
		if overall == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func onboardingMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
