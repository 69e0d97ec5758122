package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	bankingapp "github.com/inmova/backend/internal/application/banking"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/inmova/backend/internal/infrastructure/auth"
	"github.com/inmova/backend/internal/infrastructure/cache"
	"github.com/inmova/backend/internal/infrastructure/config"
	"github.com/inmova/backend/internal/infrastructure/logger"
	"github.com/inmova/backend/internal/infrastructure/persistence"
	"github.com/inmova/backend/internal/infrastructure/provider"
	"github.com/inmova/backend/internal/interfaces/http/handler"
	"github.com/inmova/backend/internal/interfaces/http/middleware"
	"github.com/inmova/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting INMOVA Banking Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Idempotency store: Redis when enabled, in-memory otherwise
	var idempotency shared.IdempotencyStore
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisIdempotencyStore(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		idempotency = redisStore
		log.Info("Redis idempotency store connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		memStore := cache.NewInMemoryIdempotencyStore()
		defer func() { _ = memStore.Close() }()
		idempotency = memStore
		log.Info("Using in-memory idempotency store")
	}

	// Repositories
	transactionRepo := persistence.NewGormBankTransactionRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	payoutRepo := persistence.NewGormPayoutRepository(db.DB)
	collectionRepo := persistence.NewGormSepaCollectionRepository(db.DB)
	connectionRepo := persistence.NewGormBankConnectionRepository(db.DB)
	eventRepo := persistence.NewGormWebhookEventRepository(db.DB)

	// Provider client and webhook signature verifier
	providerClient := provider.NewClient(&cfg.Provider, log)
	verifier := provider.NewSignatureVerifier(cfg.Webhook.Secret)

	// Application services
	matchConfig := banking.MatchConfig{
		SEPADateWindowDays:   cfg.Reconciliation.SEPADateWindowDays,
		PayoutDateWindowDays: cfg.Reconciliation.PayoutDateWindowDays,
	}
	reconciliationService := bankingapp.NewReconciliationService(bankingapp.ReconciliationServiceConfig{
		Transactions: transactionRepo,
		Payments:     paymentRepo,
		Payouts:      payoutRepo,
		Collections:  collectionRepo,
		Connections:  connectionRepo,
		MatchConfig:  matchConfig,
		Logger:       log,
	})
	syncService := bankingapp.NewSyncService(bankingapp.SyncServiceConfig{
		API:            providerClient,
		Collections:    collectionRepo,
		Payouts:        payoutRepo,
		Connections:    connectionRepo,
		Reconciliation: reconciliationService,
		Logger:         log,
	})
	webhookService := bankingapp.NewWebhookService(bankingapp.WebhookServiceConfig{
		Verifier:    verifier,
		API:         providerClient,
		Events:      eventRepo,
		Collections: collectionRepo,
		Payouts:     payoutRepo,
		Connections: connectionRepo,
		Idempotency: idempotency,
		EventTTL:    cfg.Webhook.EventTTL,
		Logger:      log,
	})

	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP engine and middleware
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.CORS(cfg.HTTP.CORSAllowOrigins))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow))
	}

	// Handlers and routes
	webhookHandler := handler.NewWebhookHandler(webhookService, cfg.Reconciliation.RetryBatchSize)
	bankingHandler := handler.NewBankingHandler(reconciliationService, syncService)
	systemHandler := handler.NewSystemHandler(db)

	r := router.NewRouter(engine)
	r.RegisterPublic(systemHandler)
	r.RegisterPublic(router.RegistrarFunc(webhookHandler.RegisterPublicRoutes))
	r.Register(bankingHandler)
	r.Register(webhookHandler)
	r.Setup(middleware.JWTAuthMiddleware(jwtService))

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
