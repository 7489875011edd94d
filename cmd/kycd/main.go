package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/config"
	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/handler"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/cache"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/memory"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/observability"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/postgres"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/resilience"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/supabase"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"
	"github.com/boddenberg/bonds-kyc-engine/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	dotenvErr := config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.ServiceName, cfg.AppEnv)
	defer logger.Sync()

	if dotenvErr != nil {
		logger.Warn("ignoring unreadable .env", zap.Error(dotenvErr))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("app_env", cfg.AppEnv),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.String("media_ledger", cfg.MediaLedger),
		zap.String("otp_mode", cfg.OtpMode),
		zap.Duration("otp_ttl", cfg.OtpTTL),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdown, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	var store port.Store
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		if cfg.RunMigrations {
			if err := postgres.Migrate(ctx, pool); err != nil {
				logger.Fatal("failed to apply schema", zap.Error(err))
			}
			logger.Info("schema applied")
		}
		store = postgres.NewStore(pool)
	} else {
		if !cfg.IsDevelopment() {
			logger.Fatal("DATABASE_URL is required outside development")
		}
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = memory.New()
	}

	// --- Role cache ---
	var grants port.Cache[*domain.Grants]
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		grants = cache.NewRedis[*domain.Grants](rdb, "kyc:grants:", cfg.RoleCacheTTL, logger)
	} else {
		local := cache.New[*domain.Grants](cfg.RoleCacheTTL)
		defer local.Close()
		grants = local
	}

	// --- Media ledger ---
	media, err := mediaLedger(cfg, pool, logger)
	if err != nil {
		logger.Fatal("failed to configure media ledger", zap.Error(err))
	}

	// --- Services ---
	env := service.Env{Development: cfg.IsDevelopment()}

	var codes port.OtpCodeSource = service.DemoCodes
	if cfg.OtpMode == "random" {
		codes = service.RandomCodes{Digits: 6}
	}
	otp := service.NewOtpAuthority(store, codes, service.OtpConfig{
		TTL:         cfg.OtpTTL,
		MaxAttempts: cfg.OtpMaxAttempts,
	}, metrics, logger)
	sessions := service.NewSessionTracker(store, otp, service.SessionConfig{TTL: cfg.SessionTTL, Env: env}, logger)

	tokens := service.NewJWTTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL)
	hasher := service.NewBcryptHasher(0)
	access := service.NewAccessControl(store, grants, metrics, logger)
	progress := service.NewProgressTracker(store)

	onboarding := service.NewOnboarding(service.OnboardingDeps{
		Store:    store,
		Sessions: sessions,
		Identity: service.NewIdentityEngine(nil),
		Progress: progress,
		Access:   access,
		Hasher:   hasher,
		Media:    media,
		Env:      env,
		Metrics:  metrics,
		Logger:   logger,
	})

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Store:       store,
		Tokens:      tokens,
		Access:      access,
		Auth:        service.NewAuthService(store, access, hasher, tokens, logger),
		Sessions:    sessions,
		Onboarding:  onboarding,
		Progress:    progress,
		Estimations: service.NewEstimationWorkflow(store, service.RandomRatios{}, media, env, logger),
		Env:         env,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func mediaLedger(cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (port.MediaLedger, error) {
	switch cfg.MediaLedger {
	case "supabase":
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("MEDIA_LEDGER=supabase requires SUPABASE_URL")
		}
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase-media", logger),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		logger.Info("media ledger: supabase", zap.String("supabase_url", cfg.SupabaseURL))
		return supabase.NewMediaLedger(client), nil
	case "postgres":
		if pool != nil {
			logger.Info("media ledger: postgres")
			return postgres.NewMediaLedger(pool), nil
		}
		logger.Warn("media ledger: postgres requested without DATABASE_URL, using memory")
		return memory.NewMediaLedger(), nil
	case "memory", "":
		return memory.NewMediaLedger(), nil
	}
	return nil, fmt.Errorf("unknown MEDIA_LEDGER %q", cfg.MediaLedger)
}
