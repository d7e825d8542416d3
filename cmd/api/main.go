package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"provably-fair-dice/config"
	"provably-fair-dice/internal/adapter/http/handler"
	"provably-fair-dice/internal/adapter/http/middleware"
	pgStorage "provably-fair-dice/internal/adapter/storage/postgres"
	redisStorage "provably-fair-dice/internal/adapter/storage/redis"
	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/internal/service"
	"provably-fair-dice/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	programID, err := domain.ParseAddress(cfg.Program.ID)
	if err != nil {
		log.Fatal().Err(err).Str("program_id", cfg.Program.ID).Msg("Invalid program ID")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("program_id", programID.String()).
		Msg("Starting provably fair dice")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	betRepo := pgStorage.NewBetRepo(pool)
	settlementRepo := pgStorage.NewSettlementRepo(pool)
	houseRepo := pgStorage.NewHouseRepo(pool)
	webhookRepo := pgStorage.NewWebhookRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	nonceStore := redisStorage.NewNonceStore(rdb)
	settlementCache := redisStorage.NewSettlementCache(rdb)
	slotClock := redisStorage.NewSlotClock(rdb)
	go slotClock.Run(ctx, cfg.Clock.SlotInterval, logger.Component(log, "slot_clock"))

	// Initialize core services
	sigSvc := service.NewEd25519SignatureService()
	verifier := service.NewEd25519Program()

	signingKey, err := cfg.Webhook.SigningKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid webhook signing key")
	}

	// Initialize business services
	diceSvc := service.NewDiceService(
		accountRepo,
		betRepo,
		settlementRepo,
		settlementCache,
		slotClock,
		transactor,
		service.DiceConfig{ProgramID: programID, FaucetEnabled: cfg.Ledger.FaucetEnabled},
		logger.Component(log, "dice"),
	)
	reportingSvc := service.NewReportingService(accountRepo, betRepo, settlementRepo, settlementCache, programID, logger.Component(log, "reporting"))
	houseSvc := service.NewHouseService(houseRepo, logger.Component(log, "houses"))
	notificationSvc := service.NewNotificationService(
		houseRepo,
		webhookRepo,
		sigSvc,
		&http.Client{Timeout: cfg.Webhook.Timeout},
		service.NotificationConfig{SigningKey: signingKey, RetryIntervals: cfg.Webhook.RetryIntervals},
		logger.Component(log, "notifications"),
	)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)

	apiSpec, err := os.ReadFile(cfg.Server.APISpecPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Server.APISpecPath).Msg("OpenAPI document not found, /swagger disabled")
	}

	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.RateLimit.Enabled {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}
	rateLimitRules, err := middleware.WithOverrides(middleware.DefaultRateLimitRules(), cfg.RateLimit.Limits)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid rate limit configuration")
	}

	gin.SetMode(cfg.Server.Mode)
	router := handler.SetupRouter(handler.RouterDeps{
		DiceSvc:      diceSvc,
		ReportingSvc: reportingSvc,
		Verifier:     verifier,
		SigSvc:       sigSvc,
		NonceStore:   nonceStore,
		AuthOptions: middleware.AuthOptions{
			MaxClockDrift: cfg.Auth.MaxClockDrift,
			NonceTTL:      cfg.Auth.NonceTTL,
		},
		RateLimitStore:  rateLimitStore,
		RateLimitRules:  rateLimitRules,
		HealthCheckers:  []ports.HealthChecker{pgHealth, slotClock},
		Clock:           slotClock,
		APISpec:         apiSpec,
		HouseSvc:        houseSvc,
		NotificationSvc: notificationSvc,
		AuditSvc:        auditSvc,
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
