package strategy

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/openvault/rebalancer/internal/types"
)

// TrendFollowing buys the risk asset while the price trades above its
// moving average and sells while it trades below. Before consulting the
// signal it enforces a minimum allocation on both sides of the book, so a
// freshly funded pool is first pulled inside the [min, 100-min] band.
type TrendFollowing struct {
	Mean MeanTracker
	// MinAllocationPercent is the floor either asset's allocation may
	// not be traded through, 0..50.
	MinAllocationPercent int64
	// SwapPercent sizes each signal trade as a percentage of the balance
	// being spent.
	SwapPercent int64
	// MaxQuoteAge is the oldest acceptable price quote; zero disables.
	MaxQuoteAge time.Duration
}

// NewTrendFollowing validates the parameters and builds the strategy.
func NewTrendFollowing(mean MeanTracker, minAllocationPercent, swapPercent int64, maxQuoteAge time.Duration) (*TrendFollowing, error) {
	if minAllocationPercent < 0 || minAllocationPercent > 50 {
		return nil, fmt.Errorf("min allocation percent must be within 0..50, got %d", minAllocationPercent)
	}
	if swapPercent < 0 || swapPercent > 100 {
		return nil, fmt.Errorf("swap percent must be within 0..100, got %d", swapPercent)
	}
	return &TrendFollowing{
		Mean:                 mean,
		MinAllocationPercent: minAllocationPercent,
		SwapPercent:          swapPercent,
		MaxQuoteAge:          maxQuoteAge,
	}, nil
}

func (s *TrendFollowing) Name() string { return "trend_follow" }

func (s *TrendFollowing) Evaluate(h types.Holdings, quote types.PriceQuote, now time.Time) (types.Decision, error) {
	if err := checkQuote(quote, now, s.MaxQuoteAge); err != nil {
		return types.Hold(), err
	}

	// Signal against the average as it stood before this observation.
	average := s.Mean.Average
	s.Mean.Observe(quote.Price, now)

	totalValue := h.TotalValue(quote.Price)
	if totalValue.IsZero() {
		return types.Hold(), nil
	}

	if decision, ok := allocationBoundsTrade(h, quote.Price, totalValue, s.MinAllocationPercent); ok {
		return decision, nil
	}

	stableValue := sdkmath.LegacyNewDecFromInt(h.StableBalance)
	riskValue := sdkmath.LegacyNewDecFromInt(h.RiskValue(quote.Price))
	minValue := sdkmath.LegacyNewDecFromInt(totalValue).MulInt64(s.MinAllocationPercent).QuoInt64(100)

	switch {
	case quote.Price.GT(average):
		// uptrend: spend stable, unless already at the floor
		if stableValue.LTE(minValue) {
			return types.Hold(), nil
		}
		return types.Decision{Action: types.ActionBuy, Amount: percentOf(h.StableBalance, s.SwapPercent)}, nil
	case quote.Price.LT(average):
		if riskValue.LTE(minValue) {
			return types.Hold(), nil
		}
		return types.Decision{Action: types.ActionSell, Amount: percentOf(h.RiskBalance, s.SwapPercent)}, nil
	default:
		return types.Hold(), nil
	}
}

// allocationBoundsTrade returns the trade that pulls a lopsided book back
// to the minimum allocation, or ok=false when both sides already satisfy
// the floor.
func allocationBoundsTrade(h types.Holdings, price sdkmath.LegacyDec, totalValue sdkmath.Int, minPercent int64) (types.Decision, bool) {
	minValue := sdkmath.LegacyNewDecFromInt(totalValue).MulInt64(minPercent).QuoInt64(100)
	riskValue := sdkmath.LegacyNewDecFromInt(h.RiskValue(price))
	stableValue := sdkmath.LegacyNewDecFromInt(h.StableBalance)

	if riskValue.LT(minValue) {
		amount := minInt(minValue.Sub(riskValue).TruncateInt(), h.StableBalance)
		if amount.IsPositive() {
			return types.Decision{Action: types.ActionBuy, Amount: amount}, true
		}
	}
	if stableValue.LT(minValue) {
		deficit := minValue.Sub(stableValue)
		amount := minInt(valueToRiskUnits(deficit, price, h.StableDecimals, h.RiskDecimals), h.RiskBalance)
		if amount.IsPositive() {
			return types.Decision{Action: types.ActionSell, Amount: amount}, true
		}
	}
	return types.Hold(), false
}
