package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/paysync/paysync/internal/api/v1"
	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/rest/middleware"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Webhook      *v1.WebhookHandler
	Checkout     *v1.CheckoutHandler
	Subscription *v1.SubscriptionHandler
	Transaction  *v1.TransactionHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// Webhook deliveries authenticate with the provider signature, not an
	// API key, so they live outside the v1 group.
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/stripe", handlers.Webhook.HandleStripeWebhook)
	}

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	checkout := router.Group("/checkout")
	{
		checkout.POST("/sessions", handlers.Checkout.CreateCheckoutSession)
	}

	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.GET("", handlers.Subscription.ListSubscriptions)
		subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
	}

	transactions := router.Group("/transactions")
	{
		transactions.GET("", handlers.Transaction.ListTransactions)
		transactions.GET("/:id", handlers.Transaction.GetTransaction)
	}
}
