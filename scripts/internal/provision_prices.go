package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/paysync/paysync/internal/config"
	stripeclient "github.com/paysync/paysync/internal/integration/stripe"
	"github.com/paysync/paysync/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

// planDefinition is one entry of the plans JSON file
type planDefinition struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Interval string `json:"interval"`
}

// ProvisionPrices creates a Stripe product and recurring price for each plan
// in the plans file and writes the PRICE_<PLAN> artifact consumed by the
// server at startup. Reprovisioning overwrites the artifact; existing Stripe
// objects are not deduplicated.
func ProvisionPrices() error {
	plansFile := os.Getenv("PLANS_FILE")
	if plansFile == "" {
		return fmt.Errorf("PLANS_FILE is required")
	}
	artifactPath := os.Getenv("ARTIFACT_PATH")
	if artifactPath == "" {
		artifactPath = "stripe_prices.env"
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	data, err := os.ReadFile(plansFile)
	if err != nil {
		return fmt.Errorf("failed to read plans file: %w", err)
	}

	var plans []planDefinition
	if err := json.Unmarshal(data, &plans); err != nil {
		return fmt.Errorf("failed to parse plans file: %w", err)
	}

	client := stripeclient.NewClient(cfg, log)
	ctx := context.Background()

	artifact := make(map[string]string, len(plans))
	for _, plan := range plans {
		if plan.Name == "" || plan.Amount <= 0 {
			return fmt.Errorf("invalid plan definition: %+v", plan)
		}

		product, err := client.API().V1Products.Create(ctx, &stripe.ProductCreateParams{
			Name: stripe.String(plan.Name),
		})
		if err != nil {
			return fmt.Errorf("failed to create product for plan %s: %w", plan.Name, err)
		}

		price, err := client.API().V1Prices.Create(ctx, &stripe.PriceCreateParams{
			Product:    stripe.String(product.ID),
			UnitAmount: stripe.Int64(plan.Amount),
			Currency:   stripe.String(plan.Currency),
			Recurring: &stripe.PriceCreateRecurringParams{
				Interval: stripe.String(plan.Interval),
			},
			Nickname: stripe.String(plan.Name),
		})
		if err != nil {
			return fmt.Errorf("failed to create price for plan %s: %w", plan.Name, err)
		}

		key := "PRICE_" + strings.ToUpper(config.NormalizePlanName(plan.Name))
		artifact[key] = price.ID

		log.Infow("provisioned plan",
			"plan", plan.Name,
			"product_id", product.ID,
			"price_id", price.ID)
	}

	if cfg.Stripe.WebhookSecret != "" {
		artifact["STRIPE_WEBHOOK_SECRET"] = cfg.Stripe.WebhookSecret
	}

	if err := godotenv.Write(artifact, artifactPath); err != nil {
		return fmt.Errorf("failed to write price artifact: %w", err)
	}

	fmt.Printf("Wrote %d prices to %s\n", len(plans), artifactPath)
	return nil
}
