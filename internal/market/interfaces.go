// Package market defines the external collaborators the pool depends on:
// the price oracle, the swap venue and the fungible token ledgers. The
// pool only ever talks to these interfaces, so tests and the sim mode can
// substitute deterministic implementations.
package market

import (
	sdkmath "cosmossdk.io/math"

	"github.com/openvault/rebalancer/internal/types"
)

// PriceOracle supplies the current risk-asset price in stable-asset terms.
type PriceOracle interface {
	// LatestPrice returns the most recent quote together with its feed
	// timestamp. Staleness is judged by the caller.
	LatestPrice() (types.PriceQuote, error)
}

// SwapVenue executes stable<->risk conversions at a quoted price.
type SwapVenue interface {
	// Quote returns the expected amount out for a prospective swap
	// without executing it.
	Quote(tokenIn, tokenOut string, amountIn sdkmath.Int) (sdkmath.Int, error)

	// Swap executes the conversion and returns the realized amount out.
	// Returns types.ErrSlippageExceeded when the realized rate would
	// violate minAmountOut; in that case no balances have moved.
	Swap(tokenIn, tokenOut string, amountIn, minAmountOut sdkmath.Int) (sdkmath.Int, error)
}

// Token is the fungible-asset ledger primitive for the stable and risk
// assets. Transfers either complete atomically or fail without effect.
type Token interface {
	Denom() string
	BalanceOf(account string) sdkmath.Int
	Transfer(from, to string, amount sdkmath.Int) error
	Approve(owner, spender string, amount sdkmath.Int)
	// TransferFrom moves previously approved funds from owner to spender.
	TransferFrom(owner, spender string, amount sdkmath.Int) error
}
