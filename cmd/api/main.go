package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastionauth/bastion/internal/auth"
	"github.com/bastionauth/bastion/internal/background"
	"github.com/bastionauth/bastion/internal/config"
	"github.com/bastionauth/bastion/internal/database"
	"github.com/bastionauth/bastion/internal/handlers"
	middlewareCustom "github.com/bastionauth/bastion/internal/middleware"
	"github.com/bastionauth/bastion/internal/models"
	"github.com/bastionauth/bastion/internal/repositories"
	"github.com/bastionauth/bastion/internal/routes"
	"github.com/bastionauth/bastion/internal/services"
	"github.com/bastionauth/bastion/internal/throttle"
	pkgauth "github.com/bastionauth/bastion/pkg/auth"
	pkghttp "github.com/bastionauth/bastion/pkg/http"
	pkglogger "github.com/bastionauth/bastion/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Apply pending migrations before opening the pool
	if cfg.Database.MigrateOnStart {
		migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.Migrate(migrateCtx, cfg.Database.DSN(), logger); err != nil {
			migrateCancel()
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		migrateCancel()
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)

	// Address throttle: shared Redis when configured, in-process otherwise.
	// The in-process store needs a periodic sweep; Redis expires keys itself.
	var throttleStore throttle.Store
	var janitor *background.Janitor
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			pingCancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		pingCancel()
		throttleStore = throttle.NewRedisStore(redisClient, cfg.Auth.IPLockoutDuration)
		logger.Info("address throttle backed by redis", slog.String("addr", cfg.Redis.Addr))
	} else {
		memStore := throttle.NewMemoryStore(cfg.Auth.IPLockoutDuration)
		throttleStore = memStore
		janitor = background.NewJanitor(memStore, logger, cfg.Auth.ThrottleSweepInterval)
		logger.Info("address throttle backed by in-process store")
	}

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	// Timing delay for rejection paths
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Initialize services
	loginService := services.NewLoginService(
		accountRepo,
		throttleStore,
		pkgauth.BcryptVerifier{},
		tokenManager,
		timingDelay,
		services.LoginConfig{
			MaxFailedAttempts:  cfg.Auth.MaxFailedAttempts,
			SuspensionDuration: cfg.Auth.SuspensionDuration,
			MaxAddressFailures: cfg.Auth.MaxFailedAttemptsIP,
		},
		logger,
		pkglogger.NewAuditLogger(logger),
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginService, cfg.Server.Env)

	// Bootstrap a seed account if configured
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureSeedAccount(seedCtx, accountRepo, logger); err != nil {
		logger.Error("failed to ensure seed account", slog.Any("error", err))
	}
	seedCancel()

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	corsConfig := middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler)

	// Liveness probe
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Readiness probe with database check
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start throttle sweep when running on the in-process store
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()
	if janitor != nil {
		go janitor.Start(janitorCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	janitorCancel()
	if janitor != nil {
		janitor.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureSeedAccount creates a first account if SEED_EMAIL and SEED_PASSWORD
// are set, so a fresh deployment has something to log in with.
func ensureSeedAccount(ctx context.Context, accountRepo *repositories.AccountRepository, logger *slog.Logger) error {
	seedEmail := os.Getenv("SEED_EMAIL")
	seedPassword := os.Getenv("SEED_PASSWORD")

	if seedEmail == "" || seedPassword == "" {
		logger.Info("no SEED_EMAIL or SEED_PASSWORD set, skipping seed account creation")
		return nil
	}

	_, err := accountRepo.GetByEmail(ctx, seedEmail)
	if err == nil {
		logger.Info("seed account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if seed account exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(seedPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	account := &models.Account{
		Email:        seedEmail,
		PasswordHash: hashedPassword,
		Name:         "Seed User",
		Role:         "user",
	}

	if _, err := accountRepo.Create(ctx, account); err != nil {
		return fmt.Errorf("failed to create seed account: %w", err)
	}

	logger.Info("seed account created successfully")
	return nil
}
