package pool_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault/rebalancer/internal/types"
)

type captureRecorder struct {
	swaps     []types.SwapRecord
	summaries []types.PoolSummary
}

func (r *captureRecorder) RecordSwap(rec types.SwapRecord) { r.swaps = append(r.swaps, rec) }

func (r *captureRecorder) RecordSummary(sum types.PoolSummary) {
	r.summaries = append(r.summaries, sum)
}

func TestInvestRebalancesTowardsTarget(t *testing.T) {
	f := newSixtyFortyFixture(t)
	f.fund(t, "alice", 60_000_000)
	_, err := f.pool.Deposit("alice", sdkmath.NewInt(60_000_000))
	require.NoError(t, err)

	decision, err := f.pool.Invest()
	require.NoError(t, err)
	require.Equal(t, types.ActionBuy, decision.Action)
	require.Equal(t, sdkmath.NewInt(36_000_000), decision.Amount)

	require.Equal(t, sdkmath.NewInt(24_000_000), f.pool.StableBalance())
	require.Equal(t, eth("0.018"), f.pool.RiskBalance())

	// The ledgers moved with the internal accounting.
	require.Equal(t, sdkmath.NewInt(24_000_000), f.stable.BalanceOf(poolAddr))
	require.Equal(t, eth("0.018"), f.risk.BalanceOf(poolAddr))
}

func TestInvestGatedByUpdateInterval(t *testing.T) {
	f := newSixtyFortyFixture(t)
	f.fund(t, "alice", 60_000_000)
	_, err := f.pool.Deposit("alice", sdkmath.NewInt(60_000_000))
	require.NoError(t, err)

	_, err = f.pool.Invest()
	require.NoError(t, err)
	require.Len(t, f.pool.Swaps(), 1)

	// A big price move inside the interval is ignored without error.
	f.clock.Advance(5 * time.Minute)
	f.setPrice("4000")
	decision, err := f.pool.Invest()
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
	require.Len(t, f.pool.Swaps(), 1)

	// Once the interval has elapsed the same move is acted on.
	f.clock.Advance(10 * time.Minute)
	f.setPrice("4000")
	decision, err = f.pool.Invest()
	require.NoError(t, err)
	require.Equal(t, types.ActionSell, decision.Action)
	require.Len(t, f.pool.Swaps(), 2)
}

func TestInvestHoldsInsideBand(t *testing.T) {
	f := newSixtyFortyFixture(t)
	f.fund(t, "alice", 60_000_000)
	_, err := f.pool.Deposit("alice", sdkmath.NewInt(60_000_000))
	require.NoError(t, err)

	_, err = f.pool.Invest()
	require.NoError(t, err)

	// Balanced book, unchanged price: nothing to trade.
	f.clock.Advance(15 * time.Minute)
	f.setPrice("2000")
	decision, err := f.pool.Invest()
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
	require.Len(t, f.pool.Swaps(), 1)
}

func TestInvestAbortsOnSlippage(t *testing.T) {
	f := newSixtyFortyFixture(t)
	f.fund(t, "alice", 60_000_000)
	_, err := f.pool.Deposit("alice", sdkmath.NewInt(60_000_000))
	require.NoError(t, err)

	// Fills come in 10% short of the quote, far past the 0.5% threshold.
	f.venue.SetExecutionRate(sdkmath.LegacyMustNewDecFromStr("0.9"))

	_, err = f.pool.Invest()
	require.ErrorIs(t, err, types.ErrSlippageExceeded)

	// Nothing moved and nothing was logged.
	require.Equal(t, sdkmath.NewInt(60_000_000), f.pool.StableBalance())
	require.True(t, f.pool.RiskBalance().IsZero())
	require.Empty(t, f.pool.Swaps())

	// The gate did not advance: a healthy retry trades immediately.
	f.venue.SetExecutionRate(sdkmath.LegacyOneDec())
	decision, err := f.pool.Invest()
	require.NoError(t, err)
	require.Equal(t, types.ActionBuy, decision.Action)
}

func TestInvestEmptyPoolHolds(t *testing.T) {
	f := newSixtyFortyFixture(t)

	decision, err := f.pool.Invest()
	require.NoError(t, err)
	require.Equal(t, types.ActionHold, decision.Action)
	require.Empty(t, f.pool.Swaps())
}

func TestSwapLog(t *testing.T) {
	f := newSixtyFortyFixture(t)
	f.fund(t, "alice", 60_000_000)
	_, err := f.pool.Deposit("alice", sdkmath.NewInt(60_000_000))
	require.NoError(t, err)

	_, err = f.pool.Invest()
	require.NoError(t, err)

	swaps := f.pool.Swaps()
	require.Len(t, swaps, 1)
	require.Equal(t, types.ActionBuy, swaps[0].Side)
	require.Equal(t, sdkmath.NewInt(36_000_000), swaps[0].AmountIn)
	require.Equal(t, eth("0.018"), swaps[0].AmountOut)
	require.Equal(t, sdkmath.LegacyNewDec(2000), swaps[0].FeedPrice)

	rec, err := f.pool.Swap(0)
	require.NoError(t, err)
	require.Equal(t, swaps[0], rec)

	_, err = f.pool.Swap(1)
	require.Error(t, err)
	_, err = f.pool.Swap(-1)
	require.Error(t, err)
}

func TestInvestNotifiesRecorder(t *testing.T) {
	rec := &captureRecorder{}
	f := newSixtyFortyFixtureWithRecorder(t, rec)
	f.fund(t, "alice", 60_000_000)
	_, err := f.pool.Deposit("alice", sdkmath.NewInt(60_000_000))
	require.NoError(t, err)

	_, err = f.pool.Invest()
	require.NoError(t, err)

	require.Len(t, rec.swaps, 1)
	require.Equal(t, sdkmath.NewInt(36_000_000), rec.swaps[0].AmountIn)
	require.Len(t, rec.summaries, 1)
	require.Equal(t, "24000000", rec.summaries[0].StableBalance)
	require.Equal(t, "60000000", rec.summaries[0].TotalShares)

	// Hold cycles record nothing.
	f.clock.Advance(15 * time.Minute)
	f.setPrice("2000")
	_, err = f.pool.Invest()
	require.NoError(t, err)
	require.Len(t, rec.swaps, 1)
	require.Len(t, rec.summaries, 1)
}

func TestInvestSummaryReflectsLastCycle(t *testing.T) {
	f := newSixtyFortyFixture(t)
	f.fund(t, "alice", 60_000_000)
	_, err := f.pool.Deposit("alice", sdkmath.NewInt(60_000_000))
	require.NoError(t, err)

	before := f.pool.LastInvest()
	require.True(t, before.IsZero())

	_, err = f.pool.Invest()
	require.NoError(t, err)
	require.Equal(t, f.clock.Now(), f.pool.LastInvest())

	sum, err := f.pool.Summary()
	require.NoError(t, err)
	require.Equal(t, "24000000", sum.StableBalance)
	require.Equal(t, "60000000", sum.TotalValue)
	require.Equal(t, 1, sum.SwapCount)
}
