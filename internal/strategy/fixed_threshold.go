package strategy

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/openvault/rebalancer/internal/types"
)

// FixedThreshold keeps a constant fraction of the portfolio in the risk
// asset. While the risk allocation stays inside a band around the target
// it holds; once the allocation drifts outside the band it trades back to
// the target exactly, not merely to the band edge.
//
// The band is relative to the target: with a 60% target and a 2%
// threshold the hold region is [58.8%, 61.2%] of portfolio value.
type FixedThreshold struct {
	// TargetRiskPercent is the desired risk-asset allocation, 0..100.
	TargetRiskPercent int64
	// ThresholdPercent is the tolerated drift as a percentage of the target.
	ThresholdPercent int64
	// MaxQuoteAge is the oldest acceptable price quote; zero disables.
	MaxQuoteAge time.Duration
}

// NewFixedThreshold validates the parameters and builds the strategy.
func NewFixedThreshold(targetRiskPercent, thresholdPercent int64, maxQuoteAge time.Duration) (*FixedThreshold, error) {
	if targetRiskPercent < 0 || targetRiskPercent > 100 {
		return nil, fmt.Errorf("target risk percent must be within 0..100, got %d", targetRiskPercent)
	}
	if thresholdPercent < 0 || thresholdPercent > 100 {
		return nil, fmt.Errorf("threshold percent must be within 0..100, got %d", thresholdPercent)
	}
	return &FixedThreshold{
		TargetRiskPercent: targetRiskPercent,
		ThresholdPercent:  thresholdPercent,
		MaxQuoteAge:       maxQuoteAge,
	}, nil
}

func (s *FixedThreshold) Name() string { return "fixed_threshold" }

func (s *FixedThreshold) Evaluate(h types.Holdings, quote types.PriceQuote, now time.Time) (types.Decision, error) {
	if err := checkQuote(quote, now, s.MaxQuoteAge); err != nil {
		return types.Hold(), err
	}

	totalValue := h.TotalValue(quote.Price)
	if totalValue.IsZero() {
		return types.Hold(), nil
	}

	riskValue := sdkmath.LegacyNewDecFromInt(h.RiskValue(quote.Price))
	targetValue := sdkmath.LegacyNewDecFromInt(totalValue).MulInt64(s.TargetRiskPercent).QuoInt64(100)
	band := targetValue.MulInt64(s.ThresholdPercent).QuoInt64(100)

	if riskValue.GTE(targetValue.Sub(band)) && riskValue.LTE(targetValue.Add(band)) {
		return types.Hold(), nil
	}

	if riskValue.LT(targetValue) {
		amount := minInt(targetValue.Sub(riskValue).TruncateInt(), h.StableBalance)
		return types.Decision{Action: types.ActionBuy, Amount: amount}, nil
	}

	sellValue := riskValue.Sub(targetValue)
	amount := minInt(valueToRiskUnits(sellValue, quote.Price, h.StableDecimals, h.RiskDecimals), h.RiskBalance)
	return types.Decision{Action: types.ActionSell, Amount: amount}, nil
}
