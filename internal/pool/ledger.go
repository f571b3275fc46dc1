/*

Share issuance, redemption and transfer. Shares are minted 1:1 against
the first deposit and value-weighted afterwards; withdrawals are redeemed
in kind, pro-rata to the pool's current stable/risk split, so no swap is
forced by an exit. Cost basis travels with the shares.

*/

package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/openvault/rebalancer/internal/types"
	"github.com/openvault/rebalancer/internal/utils"
)

func (p *Pool) getOrCreateLocked(addr string) *account {
	if acct, ok := p.accounts[addr]; ok {
		return acct
	}
	acct := &account{
		shares:        sdkmath.ZeroInt(),
		basisPerShare: sdkmath.LegacyZeroDec(),
		deposited:     sdkmath.ZeroInt(),
		withdrawn:     sdkmath.ZeroInt(),
	}
	p.accounts[addr] = acct
	return acct
}

// Deposit pulls amount stable units from the depositor and mints shares.
// The cash stays in the stable balance until the next Invest; deposits
// never trigger a buy of the risk asset. Returns the minted shares.
func (p *Pool) Deposit(depositor string, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: deposit of %v", types.ErrInvalidAmount, amount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var minted sdkmath.Int
	if p.totalShares.IsZero() {
		// first deposit: 1:1 against stable units, rescaled to share decimals
		var err error
		minted, err = utils.Rescale(amount, p.cfg.StableDecimals, p.cfg.ShareDecimals)
		if err != nil {
			return sdkmath.ZeroInt(), err
		}
	} else {
		quote, err := p.fetchQuote(p.now())
		if err != nil {
			return sdkmath.ZeroInt(), err
		}
		totalValue := p.holdingsLocked().TotalValue(quote.Price)
		if totalValue.IsZero() {
			return sdkmath.ZeroInt(), fmt.Errorf("%w: shares outstanding with zero value", types.ErrInvariantViolation)
		}
		minted = amount.Mul(p.totalShares).Quo(totalValue)
	}
	if !minted.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: deposit too small to mint shares", types.ErrInvalidAmount)
	}

	if err := p.stable.TransferFrom(depositor, p.cfg.Address, amount); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to pull deposit: %w", err)
	}

	acct := p.getOrCreateLocked(depositor)
	acct.basisPerShare = mergeBasis(acct.basisPerShare, acct.shares, sdkmath.LegacyNewDecFromInt(amount), minted)
	acct.shares = acct.shares.Add(minted)
	acct.deposited = acct.deposited.Add(amount)

	p.stableBalance = p.stableBalance.Add(amount)
	p.totalShares = p.totalShares.Add(minted)

	if err := p.checkInvariantsLocked(); err != nil {
		p.log.Error().Err(err).Msg("Invariant check failed after deposit")
		return sdkmath.ZeroInt(), err
	}

	p.log.Info().
		Str("depositor", depositor).
		Str("amount", amount.String()).
		Str("minted", minted.String()).
		Str("totalShares", p.totalShares.String()).
		Msg("Deposit processed")
	return minted, nil
}

// mergeBasis folds newly acquired shares with a known acquisition value
// into an account's weighted-average basis per share.
func mergeBasis(basis sdkmath.LegacyDec, shares sdkmath.Int, addedValue sdkmath.LegacyDec, addedShares sdkmath.Int) sdkmath.LegacyDec {
	combined := shares.Add(addedShares)
	if !combined.IsPositive() {
		return sdkmath.LegacyZeroDec()
	}
	total := basis.MulInt(shares).Add(addedValue)
	return total.QuoTruncate(sdkmath.LegacyNewDecFromInt(combined))
}

// WithdrawShares burns shareAmount from the withdrawer, moves the
// performance fee into the pool's accrued fee shares, and pays out the
// remainder in kind from both balances pro-rata. Returns the net payout
// value in stable smallest units.
func (p *Pool) WithdrawShares(withdrawer string, shareAmount sdkmath.Int) (sdkmath.Int, error) {
	if shareAmount.IsNil() || !shareAmount.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: withdrawal of %v", types.ErrInvalidAmount, shareAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[withdrawer]
	if !ok || shareAmount.GT(acct.shares) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", types.ErrInsufficientShares, withdrawer)
	}

	quote, err := p.fetchQuote(p.now())
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	feeShares := p.feeSharesLocked(acct, shareAmount, quote.Price)
	redeem := shareAmount.Sub(feeShares)

	netValue, err := p.redeemLocked(withdrawer, redeem, quote.Price)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	acct.shares = acct.shares.Sub(shareAmount)
	acct.withdrawn = acct.withdrawn.Add(netValue)
	p.feesAccrued = p.feesAccrued.Add(feeShares)

	if err := p.checkInvariantsLocked(); err != nil {
		p.log.Error().Err(err).Msg("Invariant check failed after withdrawal")
		return sdkmath.ZeroInt(), err
	}

	p.log.Info().
		Str("withdrawer", withdrawer).
		Str("shares", shareAmount.String()).
		Str("feeShares", feeShares.String()).
		Str("netValue", netValue.String()).
		Msg("Withdrawal processed")
	return netValue, nil
}

// Withdraw is the value-denominated entry point: it converts a stable
// value into shares at the current price and redeems those.
func (p *Pool) Withdraw(withdrawer string, value sdkmath.Int) (sdkmath.Int, error) {
	if value.IsNil() || !value.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: withdrawal of %v", types.ErrInvalidAmount, value)
	}

	p.mu.RLock()
	quote, err := p.fetchQuote(p.now())
	if err != nil {
		p.mu.RUnlock()
		return sdkmath.ZeroInt(), err
	}
	totalValue := p.holdingsLocked().TotalValue(quote.Price)
	totalShares := p.totalShares
	p.mu.RUnlock()

	if totalValue.IsZero() || totalShares.IsZero() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: empty pool", types.ErrInsufficientShares)
	}
	shares := value.Mul(totalShares).Quo(totalValue)
	return p.WithdrawShares(withdrawer, shares)
}

// redeemLocked burns share units against a pro-rata slice of both
// balances, transfers the assets out, and returns the payout value in
// stable terms. Callers adjust the per-account bookkeeping.
func (p *Pool) redeemLocked(recipient string, shares sdkmath.Int, price sdkmath.LegacyDec) (sdkmath.Int, error) {
	if shares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	stableOut := p.stableBalance.Mul(shares).Quo(p.totalShares)
	riskOut := p.riskBalance.Mul(shares).Quo(p.totalShares)

	if stableOut.IsPositive() {
		if err := p.stable.Transfer(p.cfg.Address, recipient, stableOut); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("failed to pay out stable asset: %w", err)
		}
	}
	if riskOut.IsPositive() {
		if err := p.risk.Transfer(p.cfg.Address, recipient, riskOut); err != nil {
			// roll back the stable leg so the operation stays atomic
			if stableOut.IsPositive() {
				if revertErr := p.stable.Transfer(recipient, p.cfg.Address, stableOut); revertErr != nil {
					p.log.Error().Err(revertErr).Msg("Failed to revert stable leg of aborted redemption")
				}
			}
			return sdkmath.ZeroInt(), fmt.Errorf("failed to pay out risk asset: %w", err)
		}
	}

	p.stableBalance = p.stableBalance.Sub(stableOut)
	p.riskBalance = p.riskBalance.Sub(riskOut)
	p.totalShares = p.totalShares.Sub(shares)

	riskOutValue := types.Holdings{
		RiskBalance:    riskOut,
		StableBalance:  sdkmath.ZeroInt(),
		StableDecimals: p.cfg.StableDecimals,
		RiskDecimals:   p.cfg.RiskDecimals,
	}.RiskValue(price)
	return stableOut.Add(riskOutValue), nil
}

// Transfer moves shares between accounts without touching the balances.
// The recipient inherits the sender's basis weighted into its own, so a
// later withdrawal still pays fees on the full gain since the original
// acquisition.
func (p *Pool) Transfer(from, to string, shareAmount sdkmath.Int) error {
	if shareAmount.IsNil() || !shareAmount.IsPositive() {
		return fmt.Errorf("%w: transfer of %v", types.ErrInvalidAmount, shareAmount)
	}
	if from == to {
		return fmt.Errorf("%w: self transfer", types.ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sender, ok := p.accounts[from]
	if !ok || shareAmount.GT(sender.shares) {
		return fmt.Errorf("%w: %s", types.ErrInsufficientShares, from)
	}

	recipient := p.getOrCreateLocked(to)
	movedValue := sender.basisPerShare.MulInt(shareAmount)
	recipient.basisPerShare = mergeBasis(recipient.basisPerShare, recipient.shares, movedValue, shareAmount)
	recipient.shares = recipient.shares.Add(shareAmount)
	sender.shares = sender.shares.Sub(shareAmount)

	if err := p.checkInvariantsLocked(); err != nil {
		p.log.Error().Err(err).Msg("Invariant check failed after transfer")
		return err
	}

	p.log.Info().
		Str("from", from).
		Str("to", to).
		Str("shares", shareAmount.String()).
		Msg("Share transfer processed")
	return nil
}
