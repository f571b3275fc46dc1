package strategy_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault/rebalancer/internal/strategy"
	"github.com/openvault/rebalancer/internal/types"
)

const (
	stableDecimals = 6
	riskDecimals   = 18
)

func holdings(stable int64, riskWhole string) types.Holdings {
	risk, err := sdkmath.LegacyNewDecFromStr(riskWhole)
	if err != nil {
		panic(err)
	}
	return types.Holdings{
		StableBalance:  sdkmath.NewInt(stable),
		RiskBalance:    risk.Mul(sdkmath.LegacyNewDec(10).Power(riskDecimals)).TruncateInt(),
		StableDecimals: stableDecimals,
		RiskDecimals:   riskDecimals,
	}
}

func quoteAt(price string, ts time.Time) types.PriceQuote {
	return types.PriceQuote{Price: sdkmath.LegacyMustNewDecFromStr(price), Timestamp: ts}
}

func TestFixedThresholdHoldsInsideBand(t *testing.T) {
	s, err := strategy.NewFixedThreshold(60, 2, time.Hour)
	require.NoError(t, err)

	now := time.Now()

	// 80 USDC + 0.06 ETH at 2000: risk value 120 of 200 total, exactly
	// on target, nothing to do.
	decision, err := s.Evaluate(holdings(80_000_000, "0.06"), quoteAt("2000", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)

	// Price drifts to 1960: risk value 117.6 of 197.6, still inside the
	// 2% band around the 118.56 target.
	decision, err = s.Evaluate(holdings(80_000_000, "0.06"), quoteAt("1960", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
}

func TestFixedThresholdBuysBackToTarget(t *testing.T) {
	s, err := strategy.NewFixedThreshold(60, 2, time.Hour)
	require.NoError(t, err)

	now := time.Now()

	// Price drops to 1900: risk value 114 of 194, target 116.4, band
	// 2.328. The shortfall breaches the band and the strategy buys the
	// exact 2.4 USDC needed to return to target.
	decision, err := s.Evaluate(holdings(80_000_000, "0.06"), quoteAt("1900", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionBuy, decision.Action)
	require.Equal(t, sdkmath.NewInt(2_400_000), decision.Amount)
}

func TestFixedThresholdSellsBackToTarget(t *testing.T) {
	s, err := strategy.NewFixedThreshold(60, 2, time.Hour)
	require.NoError(t, err)

	now := time.Now()

	// Price jumps to 2500: risk value 150 of 230, target 138. Sell the
	// 12 USDC of excess, converted to risk units at the feed price.
	decision, err := s.Evaluate(holdings(80_000_000, "0.06"), quoteAt("2500", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionSell, decision.Action)

	expected := sdkmath.LegacyMustNewDecFromStr("0.0048"). // 12 / 2500
								Mul(sdkmath.LegacyNewDec(10).Power(riskDecimals)).TruncateInt()
	require.Equal(t, expected, decision.Amount)
}

func TestFixedThresholdFullTargetSpendsEntireStableBalance(t *testing.T) {
	s, err := strategy.NewFixedThreshold(100, 0, time.Hour)
	require.NoError(t, err)

	now := time.Now()

	// A 100% risk target converts every stable unit.
	decision, err := s.Evaluate(holdings(5_000_000, "0.001"), quoteAt("2000", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionBuy, decision.Action)
	require.Equal(t, sdkmath.NewInt(5_000_000), decision.Amount)
}

func TestFixedThresholdEmptyPoolHolds(t *testing.T) {
	s, err := strategy.NewFixedThreshold(60, 2, time.Hour)
	require.NoError(t, err)

	now := time.Now()
	decision, err := s.Evaluate(holdings(0, "0"), quoteAt("2000", now), now)
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
}

func TestFixedThresholdRejectsStaleQuote(t *testing.T) {
	s, err := strategy.NewFixedThreshold(60, 2, time.Minute)
	require.NoError(t, err)

	now := time.Now()
	_, err = s.Evaluate(holdings(80_000_000, "0.06"), quoteAt("2000", now.Add(-2*time.Minute)), now)
	require.ErrorIs(t, err, types.ErrStalePrice)
}

func TestNewFixedThresholdValidation(t *testing.T) {
	_, err := strategy.NewFixedThreshold(101, 2, 0)
	require.Error(t, err)

	_, err = strategy.NewFixedThreshold(60, -1, 0)
	require.Error(t, err)
}
