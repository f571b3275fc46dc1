/*

Performance fees. The pool charges only on the appreciation of withdrawn
shares over their acquisition value: the gain fraction is measured
against the depositor's weighted-average cost basis and capped at 100%,
so shares acquired with no recorded basis pay the full rate. With no
appreciation the fee is exactly zero.

*/

package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/openvault/rebalancer/internal/utils"
)

// FeesForWithdraw quotes the fee, in shares, a withdrawal of shareAmount
// by addr would incur at the current price.
func (p *Pool) FeesForWithdraw(addr string, shareAmount sdkmath.Int) (sdkmath.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acct, ok := p.accounts[addr]
	if !ok || shareAmount.IsNil() || !shareAmount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	quote, err := p.fetchQuote(p.now())
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return p.feeSharesLocked(acct, shareAmount, quote.Price), nil
}

func (p *Pool) feeSharesLocked(acct *account, shareAmount sdkmath.Int, price sdkmath.LegacyDec) sdkmath.Int {
	if p.cfg.FeesPerc == 0 {
		return sdkmath.ZeroInt()
	}
	gain := gainFraction(acct.basisPerShare, p.valuePerShareLocked(price))
	if !gain.IsPositive() {
		return sdkmath.ZeroInt()
	}
	feeRate := sdkmath.LegacyNewDec(p.cfg.FeesPerc).QuoTruncate(utils.Pow10Dec(p.cfg.FeesPercDecimals))
	return gain.Mul(feeRate).MulInt(shareAmount).TruncateInt()
}

// gainFraction is the appreciation of one share over its acquisition
// value, as a fraction of that value, clamped to [0, 1]. A zero basis
// against a positive value counts as pure gain.
func gainFraction(basis, valuePerShare sdkmath.LegacyDec) sdkmath.LegacyDec {
	if !valuePerShare.IsPositive() {
		return sdkmath.LegacyZeroDec()
	}
	if !basis.IsPositive() {
		return sdkmath.LegacyOneDec()
	}
	if valuePerShare.LTE(basis) {
		return sdkmath.LegacyZeroDec()
	}
	gain := valuePerShare.Sub(basis).QuoTruncate(basis)
	if gain.GT(sdkmath.LegacyOneDec()) {
		return sdkmath.LegacyOneDec()
	}
	return gain
}

// CollectFees redeems the accrued fee shares to the pool owner. A
// minShares floor lets the owner skip dust collections; while the
// accrual is below the floor nothing happens. Returns the payout value.
func (p *Pool) CollectFees(minShares sdkmath.Int) (sdkmath.Int, error) {
	if minShares.IsNil() {
		minShares = sdkmath.ZeroInt()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.feesAccrued.IsZero() || p.feesAccrued.LT(minShares) {
		p.log.Debug().
			Str("accrued", p.feesAccrued.String()).
			Str("minShares", minShares.String()).
			Msg("Fee collection skipped")
		return sdkmath.ZeroInt(), nil
	}

	quote, err := p.fetchQuote(p.now())
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	redeem := p.feesAccrued
	payout, err := p.redeemLocked(p.cfg.Owner, redeem, quote.Price)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to collect fees: %w", err)
	}
	p.feesAccrued = sdkmath.ZeroInt()

	if err := p.checkInvariantsLocked(); err != nil {
		p.log.Error().Err(err).Msg("Invariant check failed after fee collection")
		return sdkmath.ZeroInt(), err
	}

	p.log.Info().
		Str("shares", redeem.String()).
		Str("payout", payout.String()).
		Str("owner", p.cfg.Owner).
		Msg("Fees collected")
	return payout, nil
}
