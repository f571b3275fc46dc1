package strategy

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// MeanTracker maintains a smoothed moving average of the feed price.
// Updates are rate limited: observations arriving within MinInterval of
// the previous accepted one change neither the average nor LastEval.
type MeanTracker struct {
	// Average is the current smoothed price in whole stable units.
	Average sdkmath.LegacyDec
	// Period is the smoothing length in observations.
	Period int64
	// MinInterval is the minimum spacing between accepted observations.
	MinInterval time.Duration
	// LastEval is the timestamp of the last accepted observation.
	LastEval time.Time
}

// NewMeanTracker seeds the tracker with an initial mean.
func NewMeanTracker(initial sdkmath.LegacyDec, period int64, minInterval time.Duration) MeanTracker {
	if period < 1 {
		period = 1
	}
	return MeanTracker{
		Average:     initial,
		Period:      period,
		MinInterval: minInterval,
	}
}

// Observe folds a price into the average unless the rate limit applies.
// Reports whether the observation was accepted.
func (m *MeanTracker) Observe(price sdkmath.LegacyDec, now time.Time) bool {
	if !m.LastEval.IsZero() && now.Sub(m.LastEval) < m.MinInterval {
		return false
	}
	m.Average = m.Average.MulInt64(m.Period - 1).Add(price).QuoInt64(m.Period)
	m.LastEval = now
	return true
}
