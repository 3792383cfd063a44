package config

import (
	"strings"

	"github.com/joho/godotenv"
	ierr "github.com/paysync/paysync/internal/errors"
)

const (
	priceKeyPrefix   = "PRICE_"
	webhookSecretKey = "STRIPE_WEBHOOK_SECRET"
)

// LoadPriceArtifact reads the flat key=value file written by the provisioning
// script and merges it into the Stripe configuration. Keys of the form
// PRICE_<PLAN> map normalized plan names to Stripe price ids; the file may
// also carry the webhook signing secret. The service never writes this file.
func (c *Configuration) LoadPriceArtifact(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to read price artifact %s", path).
			Mark(ierr.ErrValidation)
	}

	if c.Stripe.PriceIDs == nil {
		c.Stripe.PriceIDs = make(map[string]string)
	}

	for key, value := range values {
		if value == "" {
			continue
		}
		if key == webhookSecretKey {
			if c.Stripe.WebhookSecret == "" {
				c.Stripe.WebhookSecret = value
			}
			continue
		}
		if plan, ok := strings.CutPrefix(key, priceKeyPrefix); ok {
			c.Stripe.PriceIDs[NormalizePlanName(plan)] = value
		}
	}

	return nil
}

// NormalizePlanName maps a plan name to its artifact key form. Artifact keys
// are env-style (PRICE_PRO_MONTHLY), so dashes become underscores; lookups
// must apply the same mapping or a dashed plan name could never resolve.
func NormalizePlanName(plan string) string {
	plan = strings.ToLower(strings.TrimSpace(plan))
	return strings.ReplaceAll(plan, "-", "_")
}

// PriceIDForPlan resolves a normalized plan name to a configured price id
func (c *Configuration) PriceIDForPlan(plan string) (string, bool) {
	id, ok := c.Stripe.PriceIDs[NormalizePlanName(plan)]
	return id, ok
}
