package webhook

import (
	"time"

	"github.com/paysync/paysync/internal/logger"
)

// Provider timestamps arrive as epoch seconds; an absent field is serialized
// as zero. Zero and anything before 2000-01-01 is treated as absent so a
// missing field never materializes as the Unix epoch.
var minPlausibleEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

// resolveEpoch returns the first plausible candidate as a UTC time, or nil
// when no candidate qualifies.
func resolveEpoch(candidates ...int64) *time.Time {
	for _, c := range candidates {
		if c >= minPlausibleEpoch {
			t := time.Unix(c, 0).UTC()
			return &t
		}
	}
	return nil
}

// resolveEpochLogged is resolveEpoch with a warning for every non-zero
// candidate that gets rejected, so silently dropped provider data shows up
// in the logs.
func resolveEpochLogged(log *logger.Logger, field string, candidates ...int64) *time.Time {
	for _, c := range candidates {
		if c >= minPlausibleEpoch {
			t := time.Unix(c, 0).UTC()
			return &t
		}
		if c > 0 {
			log.Warnw("rejecting implausible timestamp",
				"field", field,
				"epoch_seconds", c)
		}
	}
	return nil
}
