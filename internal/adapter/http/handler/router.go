package handler

import (
	"provably-fair-dice/internal/adapter/http/middleware"
	redisStore "provably-fair-dice/internal/adapter/storage/redis"
	"provably-fair-dice/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DiceSvc         ports.DiceService
	ReportingSvc    ports.ReportingService
	Verifier        ports.SignatureVerifier
	SigSvc          ports.SignatureService
	NonceStore      ports.NonceStore
	AuthOptions     middleware.AuthOptions
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	Clock           ports.Clock
	RateLimitRules  map[string]middleware.RateLimitRule // nil = defaults
	APISpec         []byte
	HouseSvc        ports.HouseService        // nil = house registry disabled
	NotificationSvc ports.NotificationService // nil = webhooks disabled
	AuditSvc        ports.AuditService        // nil = audit logging disabled
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
// The caller picks the gin mode.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.Clock, deps.HealthCheckers...))

	docs := NewAPIDocs(deps.APISpec)
	r.GET("/swagger", docs.UI)
	r.GET("/swagger/spec", docs.Spec)

	rl := middleware.NewRateLimits(deps.RateLimitStore, deps.RateLimitRules, deps.Logger).For

	// Signed requests carry X-Signer, X-Signature, X-Timestamp and X-Nonce.
	signed := middleware.SignerAuth(deps.SigSvc, deps.NonceStore, deps.AuthOptions, deps.Logger)

	v1 := r.Group("/api/v1")

	vaultHandler := NewVaultHandler(deps.DiceSvc, deps.ReportingSvc)
	vaults := v1.Group("/vaults")
	{
		vaults.POST("/fund", rl("vaults_fund"), signed, vaultHandler.Fund)
		vaults.GET("/:address", rl("reads"), vaultHandler.GetVault)
	}

	betHandler := NewBetHandler(deps.DiceSvc, deps.ReportingSvc, deps.Verifier, deps.NotificationSvc)
	bets := v1.Group("/bets")
	{
		bets.POST("", rl("bets_place"), signed, betHandler.PlaceBet)
		bets.GET("/:address", rl("reads"), betHandler.GetBet)
		bets.POST("/:address/resolve", rl("bets_resolve"), signed, betHandler.Resolve)
		bets.POST("/:address/refund", rl("bets_refund"), signed, betHandler.Refund)
		bets.GET("/:address/settlement", rl("reads"), betHandler.GetSettlement)
	}
	v1.GET("/players/:address/bets", rl("reads"), betHandler.ListOpenBets)

	accountHandler := NewAccountHandler(deps.DiceSvc, deps.ReportingSvc)
	accounts := v1.Group("/accounts")
	{
		accounts.POST("/deposit", rl("deposit"), signed, accountHandler.Deposit)
		accounts.GET("/:address/balance", rl("reads"), accountHandler.GetBalance)
	}

	// --- House registry ---
	if deps.HouseSvc != nil {
		houseHandler := NewHouseHandler(deps.HouseSvc)
		houses := v1.Group("/houses")
		{
			houses.POST("", rl("house_manage"), signed, houseHandler.Register)
			houses.PUT("/webhook", rl("house_manage"), signed, houseHandler.UpdateWebhookURL)
			houses.GET("/:address", rl("reads"), houseHandler.GetProfile)
		}
	}

	return r
}
