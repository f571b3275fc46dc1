package strategy_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault/rebalancer/internal/strategy"
	"github.com/openvault/rebalancer/internal/types"
)

func newTrendFollowing(t *testing.T, averageDec string) *strategy.TrendFollowing {
	t.Helper()
	mean := strategy.NewMeanTracker(sdkmath.LegacyMustNewDecFromStr(averageDec), 10, time.Hour)
	s, err := strategy.NewTrendFollowing(mean, 20, 10, time.Hour)
	require.NoError(t, err)
	return s
}

func TestTrendFollowingBuysAboveAverage(t *testing.T) {
	s := newTrendFollowing(t, "2000")
	now := time.Now()

	// Balanced book, price above the average: spend 10% of the stable side.
	decision, err := s.Evaluate(holdings(100_000_000, "0.05"), quoteAt("2100", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionBuy, decision.Action)
	require.Equal(t, sdkmath.NewInt(10_000_000), decision.Amount)
}

func TestTrendFollowingSellsBelowAverage(t *testing.T) {
	s := newTrendFollowing(t, "2000")
	now := time.Now()

	decision, err := s.Evaluate(holdings(100_000_000, "0.05"), quoteAt("1900", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionSell, decision.Action)

	// 10% of the 0.05 ETH risk balance.
	expected := sdkmath.LegacyMustNewDecFromStr("0.005").
		Mul(sdkmath.LegacyNewDec(10).Power(riskDecimals)).TruncateInt()
	require.Equal(t, expected, decision.Amount)
}

func TestTrendFollowingHoldsAtAverage(t *testing.T) {
	s := newTrendFollowing(t, "2000")
	now := time.Now()

	decision, err := s.Evaluate(holdings(100_000_000, "0.05"), quoteAt("2000", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
}

func TestTrendFollowingEnforcesAllocationFloorFirst(t *testing.T) {
	s := newTrendFollowing(t, "2000")
	now := time.Now()

	// All-stable book: regardless of the signal the strategy first buys
	// the risk side up to its 20% floor.
	decision, err := s.Evaluate(holdings(100_000_000, "0"), quoteAt("1900", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionBuy, decision.Action)
	require.Equal(t, sdkmath.NewInt(20_000_000), decision.Amount)
}

func TestTrendFollowingFloorStopsSelling(t *testing.T) {
	s := newTrendFollowing(t, "2100")
	now := time.Now()

	// Downtrend but the risk side already sits at its floor: 20 USDC of
	// risk value against 80 stable is exactly 20% of the book.
	decision, err := s.Evaluate(holdings(80_000_000, "0.01"), quoteAt("2000", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
}

func TestTrendFollowingEmptyPoolHolds(t *testing.T) {
	s := newTrendFollowing(t, "2000")
	now := time.Now()

	decision, err := s.Evaluate(holdings(0, "0"), quoteAt("2100", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
}

func TestTrendFollowingRejectsStaleQuote(t *testing.T) {
	s := newTrendFollowing(t, "2000")
	now := time.Now()

	_, err := s.Evaluate(holdings(100_000_000, "0.05"), quoteAt("2100", now.Add(-2*time.Hour)), now)
	require.ErrorIs(t, err, types.ErrStalePrice)
}
