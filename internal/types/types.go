/*

Shared domain types for the rebalancing pool: trade actions emitted by
strategies, oracle quotes, swap log entries and the read-only summaries
served by the web layer.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Action is the trade direction emitted by a strategy evaluation.
// Buy converts the stable asset into the risk asset, Sell the reverse.
type Action string

const (
	ActionHold Action = "HOLD"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Decision is the outcome of a strategy evaluation. Amount is denominated
// in the token being spent: stable units for a Buy, risk units for a Sell.
type Decision struct {
	Action Action      `json:"action"`
	Amount sdkmath.Int `json:"amount"`
}

// Hold returns a no-trade decision.
func Hold() Decision {
	return Decision{Action: ActionHold, Amount: sdkmath.ZeroInt()}
}

// PriceQuote is the oracle's answer: the risk asset price in whole
// stable-asset units per whole risk unit, plus the feed timestamp used
// for staleness checks.
type PriceQuote struct {
	Price     sdkmath.LegacyDec `json:"price"`
	Timestamp time.Time         `json:"timestamp"`
}

// Age returns how old the quote is relative to now.
func (q PriceQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}

// SwapRecord is one entry of the pool's append-only swap log.
type SwapRecord struct {
	Side      Action            `json:"side"`
	AmountIn  sdkmath.Int       `json:"amount_in"`
	AmountOut sdkmath.Int       `json:"amount_out"`
	FeedPrice sdkmath.LegacyDec `json:"feed_price"`
	Timestamp time.Time         `json:"timestamp"`
}

// Holdings is the balance view handed to strategies. Amounts are in
// smallest units of the respective asset.
type Holdings struct {
	StableBalance  sdkmath.Int
	RiskBalance    sdkmath.Int
	StableDecimals int
	RiskDecimals   int
}

// RiskValue values the risk balance in stable smallest units at the
// given price, truncating any sub-unit remainder.
func (h Holdings) RiskValue(price sdkmath.LegacyDec) sdkmath.Int {
	if h.RiskBalance.IsNil() || h.RiskBalance.IsZero() {
		return sdkmath.ZeroInt()
	}
	value := price.MulInt(h.RiskBalance)
	for i := 0; i < h.StableDecimals; i++ {
		value = value.MulInt64(10)
	}
	for i := 0; i < h.RiskDecimals; i++ {
		value = value.QuoInt64(10)
	}
	return value.TruncateInt()
}

// TotalValue is the portfolio value in stable smallest units.
func (h Holdings) TotalValue(price sdkmath.LegacyDec) sdkmath.Int {
	return h.StableBalance.Add(h.RiskValue(price))
}

// PoolSummary is the observable pool state served over HTTP and persisted
// in snapshots.
type PoolSummary struct {
	StableBalance string    `json:"stable_balance"`
	RiskBalance   string    `json:"risk_balance"`
	TotalValue    string    `json:"total_value"`
	TotalShares   string    `json:"total_shares"`
	FeesAccrued   string    `json:"fees_accrued"`
	FeedPrice     string    `json:"feed_price"`
	SwapCount     int       `json:"swap_count"`
	LastInvest    time.Time `json:"last_invest"`
}

// AccountSummary is the per-depositor observable state.
type AccountSummary struct {
	Address    string `json:"address"`
	Shares     string `json:"shares"`
	Value      string `json:"value"`
	Percentage string `json:"percentage"`
	Deposited  string `json:"deposited"`
	Withdrawn  string `json:"withdrawn"`
}
