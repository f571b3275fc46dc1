/*

Deterministic in-process implementations of the market collaborators.
Used by the sim run mode and by the test suites; they mirror the mock
router and feed the live system integrates with.

*/

package market

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/openvault/rebalancer/internal/types"
	"github.com/openvault/rebalancer/internal/utils"
)

// SimOracle is a settable price feed.
type SimOracle struct {
	mu    sync.Mutex
	quote types.PriceQuote
}

// NewSimOracle creates an oracle quoting the given whole-unit price at
// the given timestamp.
func NewSimOracle(price sdkmath.LegacyDec, ts time.Time) *SimOracle {
	return &SimOracle{quote: types.PriceQuote{Price: price, Timestamp: ts}}
}

// SetPrice updates the quoted price and its feed timestamp.
func (o *SimOracle) SetPrice(price sdkmath.LegacyDec, ts time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quote = types.PriceQuote{Price: price, Timestamp: ts}
}

func (o *SimOracle) LatestPrice() (types.PriceQuote, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.quote, nil
}

// SimVenue swaps at the oracle price with a configurable execution rate.
// An ExecutionRate below one shaves the amount out, which is how tests
// force a slippage breach.
type SimVenue struct {
	mu sync.Mutex

	oracle         *SimOracle
	stableDenom    string
	riskDenom      string
	stableDecimals int
	riskDecimals   int

	// ExecutionRate multiplies the quoted amount out at execution time.
	// 1.0 means the swap fills exactly at the quoted price.
	executionRate sdkmath.LegacyDec

	stable *SimToken
	risk   *SimToken
	// account under which the venue holds its own inventory
	address string
	// ledger account swaps settle against; no token movement when empty
	counterparty string
}

// NewSimVenue wires a venue over the given oracle and token ledgers.
func NewSimVenue(oracle *SimOracle, stable, risk *SimToken, stableDecimals, riskDecimals int) *SimVenue {
	return &SimVenue{
		oracle:         oracle,
		stableDenom:    stable.Denom(),
		riskDenom:      risk.Denom(),
		stableDecimals: stableDecimals,
		riskDecimals:   riskDecimals,
		executionRate:  sdkmath.LegacyOneDec(),
		stable:         stable,
		risk:           risk,
		address:        "sim-venue",
	}
}

// Address returns the venue's own ledger account, which holds the
// inventory backing its side of every swap.
func (v *SimVenue) Address() string { return v.address }

// SetExecutionRate changes the fill quality of subsequent swaps.
func (v *SimVenue) SetExecutionRate(rate sdkmath.LegacyDec) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.executionRate = rate
}

// SetCounterparty names the ledger account swaps settle against, so the
// token balances move alongside the pool's internal accounting.
func (v *SimVenue) SetCounterparty(account string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.counterparty = account
}

func (v *SimVenue) Quote(tokenIn, tokenOut string, amountIn sdkmath.Int) (sdkmath.Int, error) {
	quote, err := v.oracle.LatestPrice()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return v.convert(tokenIn, tokenOut, amountIn, quote.Price)
}

func (v *SimVenue) Swap(tokenIn, tokenOut string, amountIn, minAmountOut sdkmath.Int) (sdkmath.Int, error) {
	quoted, err := v.Quote(tokenIn, tokenOut, amountIn)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	v.mu.Lock()
	rate := v.executionRate
	counterparty := v.counterparty
	v.mu.Unlock()

	amountOut := rate.MulInt(quoted).TruncateInt()
	if amountOut.LT(minAmountOut) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: realized %s below minimum %s",
			types.ErrSlippageExceeded, amountOut.String(), minAmountOut.String())
	}

	if counterparty != "" {
		in, out := v.ledgerFor(tokenIn), v.ledgerFor(tokenOut)
		if err := in.Transfer(counterparty, v.address, amountIn); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("swap settlement failed: %w", err)
		}
		if err := out.Transfer(v.address, counterparty, amountOut); err != nil {
			// return the leg already taken
			_ = in.Transfer(v.address, counterparty, amountIn)
			return sdkmath.ZeroInt(), fmt.Errorf("swap settlement failed: %w", err)
		}
	}
	return amountOut, nil
}

func (v *SimVenue) ledgerFor(denom string) *SimToken {
	if denom == v.stableDenom {
		return v.stable
	}
	return v.risk
}

// convert prices amountIn of tokenIn into tokenOut units at the feed price.
func (v *SimVenue) convert(tokenIn, tokenOut string, amountIn sdkmath.Int, price sdkmath.LegacyDec) (sdkmath.Int, error) {
	if amountIn.IsNil() || amountIn.IsNegative() {
		return sdkmath.ZeroInt(), types.ErrInvalidAmount
	}
	switch {
	case tokenIn == v.stableDenom && tokenOut == v.riskDenom:
		// stable -> risk: whole amount / price, rescaled to risk units
		whole := sdkmath.LegacyNewDecFromInt(amountIn).Quo(utils.Pow10Dec(v.stableDecimals))
		outWhole := whole.QuoTruncate(price)
		return outWhole.Mul(utils.Pow10Dec(v.riskDecimals)).TruncateInt(), nil
	case tokenIn == v.riskDenom && tokenOut == v.stableDenom:
		whole := sdkmath.LegacyNewDecFromInt(amountIn).Quo(utils.Pow10Dec(v.riskDecimals))
		outWhole := whole.Mul(price)
		return outWhole.Mul(utils.Pow10Dec(v.stableDecimals)).TruncateInt(), nil
	default:
		return sdkmath.ZeroInt(), fmt.Errorf("unsupported pair %s/%s", tokenIn, tokenOut)
	}
}

// SimToken is an in-memory fungible token ledger with allowance semantics.
type SimToken struct {
	mu         sync.Mutex
	denom      string
	balances   map[string]sdkmath.Int
	allowances map[string]map[string]sdkmath.Int
}

// NewSimToken creates a ledger and credits the initial balances.
func NewSimToken(denom string, initial map[string]sdkmath.Int) *SimToken {
	balances := make(map[string]sdkmath.Int, len(initial))
	for account, amount := range initial {
		balances[account] = amount
	}
	return &SimToken{
		denom:      denom,
		balances:   balances,
		allowances: make(map[string]map[string]sdkmath.Int),
	}
}

func (t *SimToken) Denom() string { return t.denom }

func (t *SimToken) BalanceOf(account string) sdkmath.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceLocked(account)
}

func (t *SimToken) balanceLocked(account string) sdkmath.Int {
	if balance, ok := t.balances[account]; ok {
		return balance
	}
	return sdkmath.ZeroInt()
}

// Mint credits new units to an account. Test and sim setup only.
func (t *SimToken) Mint(account string, amount sdkmath.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = t.balanceLocked(account).Add(amount)
}

func (t *SimToken) Transfer(from, to string, amount sdkmath.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferLocked(from, to, amount)
}

func (t *SimToken) transferLocked(from, to string, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInvalidAmount
	}
	balance := t.balanceLocked(from)
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s",
			types.ErrInsufficientBalance, from, balance.String(), t.denom, amount.String())
	}
	t.balances[from] = balance.Sub(amount)
	t.balances[to] = t.balanceLocked(to).Add(amount)
	return nil
}

func (t *SimToken) Approve(owner, spender string, amount sdkmath.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[string]sdkmath.Int)
	}
	t.allowances[owner][spender] = amount
}

func (t *SimToken) TransferFrom(owner, spender string, amount sdkmath.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := sdkmath.ZeroInt()
	if granted, ok := t.allowances[owner][spender]; ok {
		allowance = granted
	}
	if allowance.LT(amount) {
		return fmt.Errorf("%w: %s approved %s %s for %s, needs %s",
			types.ErrInsufficientAllowance, owner, allowance.String(), t.denom, spender, amount.String())
	}
	if err := t.transferLocked(owner, spender, amount); err != nil {
		return err
	}
	t.allowances[owner][spender] = allowance.Sub(amount)
	return nil
}
