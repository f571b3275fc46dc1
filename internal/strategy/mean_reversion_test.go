package strategy_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault/rebalancer/internal/strategy"
	"github.com/openvault/rebalancer/internal/types"
)

func newMeanReversion(t *testing.T, averageDec string) *strategy.MeanReversion {
	t.Helper()
	mean := strategy.NewMeanTracker(sdkmath.LegacyMustNewDecFromStr(averageDec), 10, time.Hour)
	s, err := strategy.NewMeanReversion(mean, 66, 33, 20, 10, time.Hour)
	require.NoError(t, err)
	return s
}

func TestMeanReversionSellsAtUpperTrigger(t *testing.T) {
	s := newMeanReversion(t, "2000")
	now := time.Now()

	// Exactly on the +66% trigger (inclusive): take profit.
	decision, err := s.Evaluate(holdings(100_000_000, "0.03"), quoteAt("3320", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionSell, decision.Action)

	expected := sdkmath.LegacyMustNewDecFromStr("0.003").
		Mul(sdkmath.LegacyNewDec(10).Power(riskDecimals)).TruncateInt()
	require.Equal(t, expected, decision.Amount)
}

func TestMeanReversionBuysAtLowerTrigger(t *testing.T) {
	s := newMeanReversion(t, "2000")
	now := time.Now()

	// Exactly on the -33% trigger (inclusive): accumulate.
	decision, err := s.Evaluate(holdings(100_000_000, "0.05"), quoteAt("1340", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionBuy, decision.Action)
	require.Equal(t, sdkmath.NewInt(10_000_000), decision.Amount)
}

func TestMeanReversionHoldsBetweenTriggers(t *testing.T) {
	now := time.Now()

	for _, price := range []string{"1400", "2000", "3300"} {
		s := newMeanReversion(t, "2000")
		decision, err := s.Evaluate(holdings(100_000_000, "0.05"), quoteAt(price, now), now)
		require.NoError(t, err)
		require.Equal(t, types.ActionHold, decision.Action, "price %s", price)
	}
}

func TestMeanReversionFloorStopsSelling(t *testing.T) {
	s := newMeanReversion(t, "2000")
	now := time.Now()

	// Overextended price but the risk side is at its 20% floor already.
	decision, err := s.Evaluate(holdings(80_000_000, "0.005"), quoteAt("4000", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
}

func TestMeanReversionEnforcesAllocationFloorFirst(t *testing.T) {
	s := newMeanReversion(t, "2000")
	now := time.Now()

	// All-risk book: sell down to the stable floor before any signal.
	decision, err := s.Evaluate(holdings(0, "0.05"), quoteAt("2000", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionSell, decision.Action)

	// 20 USDC deficit at 2000 is 0.01 ETH.
	expected := sdkmath.LegacyMustNewDecFromStr("0.01").
		Mul(sdkmath.LegacyNewDec(10).Power(riskDecimals)).TruncateInt()
	require.Equal(t, expected, decision.Amount)
}

func TestMeanReversionRejectsStaleQuote(t *testing.T) {
	s := newMeanReversion(t, "2000")
	now := time.Now()

	_, err := s.Evaluate(holdings(100_000_000, "0.05"), quoteAt("2000", now.Add(-2*time.Hour)), now)
	require.ErrorIs(t, err, types.ErrStalePrice)
}

func TestNewMeanReversionValidation(t *testing.T) {
	mean := strategy.NewMeanTracker(sdkmath.LegacyNewDec(2000), 10, time.Hour)

	_, err := strategy.NewMeanReversion(mean, -1, 33, 20, 10, 0)
	require.Error(t, err)

	_, err = strategy.NewMeanReversion(mean, 66, 101, 20, 10, 0)
	require.Error(t, err)

	_, err = strategy.NewMeanReversion(mean, 66, 33, 60, 10, 0)
	require.Error(t, err)
}
