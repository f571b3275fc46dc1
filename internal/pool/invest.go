package pool

import (
	"fmt"
	"time"

	"github.com/openvault/rebalancer/internal/types"
)

// Invest runs one rebalancing cycle: evaluate the strategy against the
// current holdings and price, and execute the resulting trade with
// slippage protection. Calls arriving before UpdateInterval has elapsed
// since the last completed cycle are no-ops. A failed swap leaves the
// pool untouched and does not advance the gate.
func (p *Pool) Invest() (types.Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.cfg.UpdateInterval > 0 && !p.lastInvest.IsZero() && now.Sub(p.lastInvest) < p.cfg.UpdateInterval {
		p.log.Debug().
			Time("lastInvest", p.lastInvest).
			Dur("updateInterval", p.cfg.UpdateInterval).
			Msg("Invest called within update interval, skipping")
		return types.Hold(), nil
	}

	quote, err := p.fetchQuote(now)
	if err != nil {
		return types.Hold(), err
	}

	decision, err := p.strat.Evaluate(p.holdingsLocked(), quote, now)
	if err != nil {
		return types.Hold(), fmt.Errorf("strategy evaluation failed: %w", err)
	}

	if decision.Action == types.ActionHold || decision.Amount.IsZero() {
		p.lastInvest = now
		p.log.Debug().Str("strategy", p.strat.Name()).Msg("Strategy decided to hold")
		return types.Hold(), nil
	}

	rec, err := p.executeSwapLocked(decision, quote)
	if err != nil {
		return types.Hold(), err
	}
	p.lastInvest = now

	if err := p.checkInvariantsLocked(); err != nil {
		p.log.Error().Err(err).Msg("Invariant check failed after rebalance")
		return types.Hold(), err
	}

	if p.recorder != nil {
		p.recorder.RecordSwap(rec)
		p.recorder.RecordSummary(p.summaryLocked(quote.Price))
	}

	p.log.Info().
		Str("side", string(rec.Side)).
		Str("amountIn", rec.AmountIn.String()).
		Str("amountOut", rec.AmountOut.String()).
		Str("feedPrice", rec.FeedPrice.String()).
		Msg("Rebalance executed")
	return decision, nil
}

// executeSwapLocked carries a strategy decision to the venue. The
// minimum acceptable output is the venue's own quote minus the
// configured slippage threshold; anything worse fails the whole cycle.
func (p *Pool) executeSwapLocked(decision types.Decision, quote types.PriceQuote) (types.SwapRecord, error) {
	var tokenIn, tokenOut string
	switch decision.Action {
	case types.ActionBuy:
		if decision.Amount.GT(p.stableBalance) {
			return types.SwapRecord{}, fmt.Errorf("%w: buy of %s exceeds stable balance %s",
				types.ErrInsufficientBalance, decision.Amount.String(), p.stableBalance.String())
		}
		tokenIn, tokenOut = p.stable.Denom(), p.risk.Denom()
	case types.ActionSell:
		if decision.Amount.GT(p.riskBalance) {
			return types.SwapRecord{}, fmt.Errorf("%w: sell of %s exceeds risk balance %s",
				types.ErrInsufficientBalance, decision.Amount.String(), p.riskBalance.String())
		}
		tokenIn, tokenOut = p.risk.Denom(), p.stable.Denom()
	default:
		return types.SwapRecord{}, fmt.Errorf("unexpected action %q", decision.Action)
	}

	expected, err := p.venue.Quote(tokenIn, tokenOut, decision.Amount)
	if err != nil {
		return types.SwapRecord{}, fmt.Errorf("failed to quote swap: %w", err)
	}
	minAmountOut := expected.MulRaw(10000 - p.cfg.SlippageThresholdBps).QuoRaw(10000)

	p.log.Debug().
		Str("side", string(decision.Action)).
		Str("amountIn", decision.Amount.String()).
		Str("expectedOut", expected.String()).
		Str("minAmountOut", minAmountOut.String()).
		Msg("Executing swap")

	amountOut, err := p.venue.Swap(tokenIn, tokenOut, decision.Amount, minAmountOut)
	if err != nil {
		return types.SwapRecord{}, fmt.Errorf("swap execution failed: %w", err)
	}
	if amountOut.LT(minAmountOut) {
		return types.SwapRecord{}, fmt.Errorf("%w: received %s, minimum %s",
			types.ErrSlippageExceeded, amountOut.String(), minAmountOut.String())
	}

	switch decision.Action {
	case types.ActionBuy:
		p.stableBalance = p.stableBalance.Sub(decision.Amount)
		p.riskBalance = p.riskBalance.Add(amountOut)
	case types.ActionSell:
		p.riskBalance = p.riskBalance.Sub(decision.Amount)
		p.stableBalance = p.stableBalance.Add(amountOut)
	}

	rec := types.SwapRecord{
		Side:      decision.Action,
		AmountIn:  decision.Amount,
		AmountOut: amountOut,
		FeedPrice: quote.Price,
		Timestamp: p.now(),
	}
	p.swaps = append(p.swaps, rec)
	return rec, nil
}

// LastInvest reports when the last completed cycle ran; the zero time
// before the first one.
func (p *Pool) LastInvest() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastInvest
}
