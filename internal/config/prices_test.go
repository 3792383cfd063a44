package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stripe_prices.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPriceArtifact(t *testing.T) {
	t.Run("merges price keys with normalized plan names", func(t *testing.T) {
		cfg := GetDefaultConfig()
		path := writeArtifact(t, "PRICE_PRO=price_123\nPRICE_BASIC=price_456\n")

		require.NoError(t, cfg.LoadPriceArtifact(path))

		assert.Equal(t, "price_123", cfg.Stripe.PriceIDs["pro"])
		assert.Equal(t, "price_456", cfg.Stripe.PriceIDs["basic"])
	})

	t.Run("webhook secret fills in only when unset", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Stripe.WebhookSecret = ""
		path := writeArtifact(t, "STRIPE_WEBHOOK_SECRET=whsec_from_artifact\nPRICE_PRO=price_123\n")

		require.NoError(t, cfg.LoadPriceArtifact(path))
		assert.Equal(t, "whsec_from_artifact", cfg.Stripe.WebhookSecret)

		// A secret already present in the environment wins over the artifact.
		cfg2 := GetDefaultConfig()
		require.NoError(t, cfg2.LoadPriceArtifact(path))
		assert.Equal(t, "whsec_paysync", cfg2.Stripe.WebhookSecret)
	})

	t.Run("empty values and unrelated keys are ignored", func(t *testing.T) {
		cfg := GetDefaultConfig()
		path := writeArtifact(t, "PRICE_PRO=\nSOME_OTHER_KEY=value\n")

		require.NoError(t, cfg.LoadPriceArtifact(path))
		assert.Empty(t, cfg.Stripe.PriceIDs)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		cfg := GetDefaultConfig()
		err := cfg.LoadPriceArtifact(filepath.Join(t.TempDir(), "absent.env"))
		assert.Error(t, err)
	})
}

func TestPriceIDForPlan(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Stripe.PriceIDs = map[string]string{"pro": "price_123"}

	id, ok := cfg.PriceIDForPlan("  Pro ")
	assert.True(t, ok)
	assert.Equal(t, "price_123", id)

	_, ok = cfg.PriceIDForPlan("enterprise")
	assert.False(t, ok)
}

func TestPriceIDForPlanDashedName(t *testing.T) {
	// The provisioning script writes PRICE_PRO_MONTHLY for a plan named
	// pro-monthly; the dashed name must still resolve.
	cfg := GetDefaultConfig()
	path := writeArtifact(t, "PRICE_PRO_MONTHLY=price_789\n")
	require.NoError(t, cfg.LoadPriceArtifact(path))

	id, ok := cfg.PriceIDForPlan("pro-monthly")
	assert.True(t, ok)
	assert.Equal(t, "price_789", id)
	assert.Equal(t, "pro_monthly", NormalizePlanName("Pro-Monthly"))
}
