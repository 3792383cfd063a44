package main

import (
	"context"
	"time"

	"github.com/paysync/paysync/internal/api"
	v1 "github.com/paysync/paysync/internal/api/v1"
	"github.com/paysync/paysync/internal/cache"
	"github.com/paysync/paysync/internal/config"
	stripeclient "github.com/paysync/paysync/internal/integration/stripe"
	"github.com/paysync/paysync/internal/integration/stripe/webhook"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/postgres"
	"github.com/paysync/paysync/internal/repository"
	"github.com/paysync/paysync/internal/sentry"
	"github.com/paysync/paysync/internal/service"
	"go.uber.org/fx"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// Load .env if present; real deployments configure via the environment
	_ = godotenv.Load()

	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,

			// Repositories
			repository.NewWebhookEventRepository,
			repository.NewTransactionRepository,
			repository.NewSubscriptionRepository,
			repository.NewUserRepository,

			// Stripe integration
			stripeclient.NewClient,
			stripeclient.NewCustomerService,
			stripeclient.NewCheckoutService,
			webhook.NewHandler,
			provideEventHandler,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewTransactionRecorder,
			service.NewWebhookService,
			service.NewSubscriptionService,
			service.NewTransactionService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			loadPriceArtifact,
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideEventHandler(h *webhook.Handler) service.EventHandler {
	return h
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	stripeClient *stripeclient.Client,
	checkoutSvc *stripeclient.CheckoutService,
	webhookService service.WebhookService,
	subscriptionService service.SubscriptionService,
	transactionService service.TransactionService,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(logger),
		Webhook:      v1.NewWebhookHandler(cfg, stripeClient, webhookService, logger),
		Checkout:     v1.NewCheckoutHandler(checkoutSvc, logger),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, logger),
		Transaction:  v1.NewTransactionHandler(transactionService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func loadPriceArtifact(cfg *config.Configuration, log *logger.Logger) error {
	if cfg.Stripe.PriceArtifactPath == "" {
		return nil
	}
	if err := cfg.LoadPriceArtifact(cfg.Stripe.PriceArtifactPath); err != nil {
		return err
	}
	log.Infow("loaded price artifact",
		"path", cfg.Stripe.PriceArtifactPath,
		"plans", len(cfg.Stripe.PriceIDs))
	return nil
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infof("Starting API server on %s", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
