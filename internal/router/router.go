package router

import (
	"time"

	"pesaflow/config"
	"pesaflow/internal/handler"
	"pesaflow/internal/middleware"
	"pesaflow/internal/repository"
	"pesaflow/internal/service"
	"pesaflow/internal/webhook"
	"pesaflow/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	intentRepo := repository.NewPaymentIntentRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	webhookLogRepo := repository.NewWebhookLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Payment processor
	var provider payment.Provider
	if cfg.Provider.UseMock {
		provider = payment.NewMockProvider()
		logger.Warn("using mock payment provider")
	} else {
		provider = payment.NewMomoProvider(
			cfg.Provider.BaseURL,
			cfg.Provider.Email,
			cfg.Provider.Password,
			cfg.Provider.WebhookBaseURL,
			cfg.Provider.Timeout,
		)
	}

	verifier := webhook.NewVerifier(cfg.Payment.WebhookSecret, cfg.Payment.WebhookTolerance)

	// Services
	notifSvc := service.NewNotificationService(notificationRepo, logger)
	paymentSvc := service.NewPaymentService(&cfg.Payment, intentRepo, provider, cfg.Provider.Timeout, logger)
	reconcileSvc := service.NewReconcileService(intentRepo, walletRepo, webhookLogRepo, notifSvc, logger)
	withdrawalSvc := service.NewWithdrawalService(
		&cfg.Withdrawal, withdrawalRepo, walletRepo, userRepo,
		provider, notifSvc, cfg.Provider.Timeout, logger,
	)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	webhookHandler := handler.NewWebhookHandler(verifier, reconcileSvc, withdrawalSvc, webhookLogRepo, logger)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalSvc)
	adminHandler := handler.NewAdminHandler(withdrawalSvc)
	walletHandler := handler.NewWalletHandler(walletRepo)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	optionalAuthMw := middleware.OptionalAuth(&cfg.JWT)
	limiter := middleware.NewRateLimiter(100, 60*time.Second)

	api := r.Group("/api/v1")
	{
		payments := api.Group("/payments")
		{
			payments.POST("/momo", optionalAuthMw, middleware.RateLimit(limiter), paymentHandler.Initiate)
			payments.GET("/:id", paymentHandler.Get)
			payments.GET("", authMw, paymentHandler.ListMine)
		}

		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/payment", webhookHandler.HandlePayment)
			webhooks.POST("/payout", webhookHandler.HandlePayout)
		}

		wallet := api.Group("/wallet")
		wallet.Use(authMw)
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.GET("/transactions", walletHandler.ListTransactions)
		}

		withdrawals := api.Group("/withdrawals")
		withdrawals.Use(authMw, middleware.RateLimit(limiter))
		{
			withdrawals.POST("", withdrawalHandler.Create)
			withdrawals.GET("", withdrawalHandler.ListMine)
			withdrawals.GET("/:id", withdrawalHandler.Get)
		}

		api.GET("/notifications", authMw, notificationHandler.ListMine)

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/withdrawals/pending", adminHandler.ListPendingWithdrawals)
			admin.POST("/withdrawals/:id/decision", adminHandler.Decide)
			admin.GET("/notifications", notificationHandler.ListAdmin)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
