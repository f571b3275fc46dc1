package strategy_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault/rebalancer/internal/strategy"
)

func TestMeanTrackerFoldsObservations(t *testing.T) {
	m := strategy.NewMeanTracker(sdkmath.LegacyNewDec(100), 10, time.Hour)
	now := time.Now()

	require.True(t, m.Observe(sdkmath.LegacyNewDec(110), now))
	// (100*9 + 110) / 10 = 101
	require.Equal(t, sdkmath.LegacyNewDec(101), m.Average)

	require.True(t, m.Observe(sdkmath.LegacyNewDec(111), now.Add(time.Hour)))
	// (101*9 + 111) / 10 = 102
	require.Equal(t, sdkmath.LegacyNewDec(102), m.Average)
}

func TestMeanTrackerRateLimit(t *testing.T) {
	m := strategy.NewMeanTracker(sdkmath.LegacyNewDec(100), 10, time.Hour)
	now := time.Now()

	require.True(t, m.Observe(sdkmath.LegacyNewDec(110), now))
	accepted := m.LastEval
	average := m.Average

	// An observation inside the interval changes nothing.
	require.False(t, m.Observe(sdkmath.LegacyNewDec(500), now.Add(30*time.Minute)))
	require.Equal(t, average, m.Average)
	require.Equal(t, accepted, m.LastEval)

	// Exactly one interval later it is accepted again.
	require.True(t, m.Observe(sdkmath.LegacyNewDec(110), now.Add(time.Hour)))
}

func TestMeanTrackerPeriodOne(t *testing.T) {
	m := strategy.NewMeanTracker(sdkmath.LegacyNewDec(100), 1, 0)
	require.True(t, m.Observe(sdkmath.LegacyNewDec(250), time.Now()))
	// Period one tracks the last price directly.
	require.Equal(t, sdkmath.LegacyNewDec(250), m.Average)
}
