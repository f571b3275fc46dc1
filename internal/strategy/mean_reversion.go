package strategy

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/openvault/rebalancer/internal/types"
)

// MeanReversion takes profit when the price overextends above its moving
// average and accumulates when it drops far below. The trigger bands may
// be asymmetric (a +66%/-33% configuration is typical). The same minimum
// allocation floor as TrendFollowing applies on both sides.
type MeanReversion struct {
	Mean MeanTracker
	// UpTriggerPercent sells once price >= mean * (1 + up/100).
	UpTriggerPercent int64
	// DownTriggerPercent buys once price <= mean * (1 - down/100).
	DownTriggerPercent int64
	// MinAllocationPercent is the floor either asset's allocation may
	// not be traded through, 0..50.
	MinAllocationPercent int64
	// SwapPercent sizes each trigger trade as a percentage of the
	// balance being spent.
	SwapPercent int64
	// MaxQuoteAge is the oldest acceptable price quote; zero disables.
	MaxQuoteAge time.Duration
}

// NewMeanReversion validates the parameters and builds the strategy.
func NewMeanReversion(mean MeanTracker, upTriggerPercent, downTriggerPercent, minAllocationPercent, swapPercent int64, maxQuoteAge time.Duration) (*MeanReversion, error) {
	if upTriggerPercent < 0 {
		return nil, fmt.Errorf("up trigger percent must not be negative, got %d", upTriggerPercent)
	}
	if downTriggerPercent < 0 || downTriggerPercent > 100 {
		return nil, fmt.Errorf("down trigger percent must be within 0..100, got %d", downTriggerPercent)
	}
	if minAllocationPercent < 0 || minAllocationPercent > 50 {
		return nil, fmt.Errorf("min allocation percent must be within 0..50, got %d", minAllocationPercent)
	}
	if swapPercent < 0 || swapPercent > 100 {
		return nil, fmt.Errorf("swap percent must be within 0..100, got %d", swapPercent)
	}
	return &MeanReversion{
		Mean:                 mean,
		UpTriggerPercent:     upTriggerPercent,
		DownTriggerPercent:   downTriggerPercent,
		MinAllocationPercent: minAllocationPercent,
		SwapPercent:          swapPercent,
		MaxQuoteAge:          maxQuoteAge,
	}, nil
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) Evaluate(h types.Holdings, quote types.PriceQuote, now time.Time) (types.Decision, error) {
	if err := checkQuote(quote, now, s.MaxQuoteAge); err != nil {
		return types.Hold(), err
	}

	// Triggers compare against the average as it stood before this
	// observation, so an exact threshold price still fires.
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

	upper := average.MulInt64(100 + s.UpTriggerPercent).QuoInt64(100)
	lower := average.MulInt64(100 - s.DownTriggerPercent).QuoInt64(100)

	switch {
	case quote.Price.GTE(upper):
		// overextended: take profit, unless risk already at the floor
		if riskValue.LTE(minValue) {
			return types.Hold(), nil
		}
		return types.Decision{Action: types.ActionSell, Amount: percentOf(h.RiskBalance, s.SwapPercent)}, nil
	case quote.Price.LTE(lower):
		if stableValue.LTE(minValue) {
			return types.Hold(), nil
		}
		return types.Decision{Action: types.ActionBuy, Amount: percentOf(h.StableBalance, s.SwapPercent)}, nil
	default:
		return types.Hold(), nil
	}
}
