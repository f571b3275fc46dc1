// Package strategy holds the rebalancing strategies the pool controller
// can be configured with. Every variant answers the same question: given
// the current holdings and a fresh price quote, should the pool buy the
// risk asset, sell it, or do nothing, and with what size.
package strategy

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/openvault/rebalancer/internal/types"
	"github.com/openvault/rebalancer/internal/utils"
)

// Strategy decides the next trade. Implementations may keep internal
// state (moving averages); the pool serializes calls so no locking is
// required inside a strategy.
type Strategy interface {
	Name() string
	Evaluate(h types.Holdings, quote types.PriceQuote, now time.Time) (types.Decision, error)
}

// checkQuote rejects quotes older than maxAge. A zero maxAge disables
// the check.
func checkQuote(quote types.PriceQuote, now time.Time, maxAge time.Duration) error {
	if maxAge <= 0 {
		return nil
	}
	if age := quote.Age(now); age > maxAge {
		return fmt.Errorf("%w: quote is %s old, max %s", types.ErrStalePrice, age, maxAge)
	}
	return nil
}

// valueToRiskUnits converts a stable smallest-unit value into risk
// smallest units at the given price, truncating.
func valueToRiskUnits(value sdkmath.LegacyDec, price sdkmath.LegacyDec, stableDecimals, riskDecimals int) sdkmath.Int {
	if !value.IsPositive() || !price.IsPositive() {
		return sdkmath.ZeroInt()
	}
	denom := price.Mul(utils.Pow10Dec(stableDecimals))
	return value.Mul(utils.Pow10Dec(riskDecimals)).QuoTruncate(denom).TruncateInt()
}

// percentOf returns amount * percent / 100, truncating.
func percentOf(amount sdkmath.Int, percent int64) sdkmath.Int {
	return amount.MulRaw(percent).QuoRaw(100)
}

func minInt(a, b sdkmath.Int) sdkmath.Int {
	if a.LT(b) {
		return a
	}
	return b
}
