package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveEpoch(t *testing.T) {
	jan2025 := int64(1735689600)

	t.Run("picks first plausible candidate", func(t *testing.T) {
		got := resolveEpoch(jan2025, jan2025+100)
		assert.NotNil(t, got)
		assert.Equal(t, time.Unix(jan2025, 0).UTC(), *got)
	})

	t.Run("skips zero and falls through", func(t *testing.T) {
		got := resolveEpoch(0, jan2025)
		assert.NotNil(t, got)
		assert.Equal(t, time.Unix(jan2025, 0).UTC(), *got)
	})

	t.Run("rejects implausible epochs", func(t *testing.T) {
		// Epochs before 2000 are treated as absent, never as epoch zero.
		assert.Nil(t, resolveEpoch(0))
		assert.Nil(t, resolveEpoch(-1))
		assert.Nil(t, resolveEpoch(100000))
	})

	t.Run("no candidates yields nil", func(t *testing.T) {
		assert.Nil(t, resolveEpoch())
	})

	t.Run("implausible candidate falls through to later one", func(t *testing.T) {
		got := resolveEpoch(100000, jan2025)
		assert.NotNil(t, got)
		assert.Equal(t, time.Unix(jan2025, 0).UTC(), *got)
	})
}
