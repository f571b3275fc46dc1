// Package pool implements the two-asset investment pool: proportional
// share accounting, performance fees on realized gains, and the periodic
// rebalancing cycle driven by a pluggable strategy.
//
// All state-mutating entry points serialize on a single lock; every
// operation is all-or-nothing. External collaborators (oracle, venue,
// token ledgers) are injected through the market interfaces.
package pool

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/openvault/rebalancer/internal/logger"
	"github.com/openvault/rebalancer/internal/market"
	"github.com/openvault/rebalancer/internal/strategy"
	"github.com/openvault/rebalancer/internal/types"
	"github.com/openvault/rebalancer/internal/utils"
)

// Ownership percentages are reported at this fixed precision, truncated.
const portfolioPercentageDecimals = 8

// Config holds the pool's accounting and safety parameters.
type Config struct {
	// Address is the pool's own account on the token ledgers.
	Address string
	// Owner receives collected fees.
	Owner string

	StableDecimals int
	RiskDecimals   int
	ShareDecimals  int

	// FeesPerc scaled by 10^FeesPercDecimals is the performance fee rate
	// applied to the gain fraction of withdrawn value (100 with 4
	// decimals = 1%).
	FeesPerc         int64
	FeesPercDecimals int

	// SlippageThresholdBps bounds the shortfall a swap may realize
	// against its quote before the whole invest call fails.
	SlippageThresholdBps int64
	// UpdateInterval gates Invest; calls arriving earlier are no-ops.
	UpdateInterval time.Duration
	// MaxPriceAge is the oldest oracle quote any operation will act on.
	MaxPriceAge time.Duration
}

// account tracks one depositor. basisPerShare is the weighted-average
// acquisition value per share in stable smallest units; deposits and
// incoming transfers update it, withdrawals never do.
type account struct {
	shares        sdkmath.Int
	basisPerShare sdkmath.LegacyDec
	deposited     sdkmath.Int
	withdrawn     sdkmath.Int
}

// Recorder receives executed swaps and post-operation summaries for
// persistence. Failures there must not fail the pool operation.
type Recorder interface {
	RecordSwap(rec types.SwapRecord)
	RecordSummary(sum types.PoolSummary)
}

// Pool is the investment pool. Create with New.
type Pool struct {
	mu  sync.RWMutex
	cfg Config
	log zerolog.Logger

	oracle market.PriceOracle
	venue  market.SwapVenue
	stable market.Token
	risk   market.Token
	strat  strategy.Strategy

	stableBalance sdkmath.Int
	riskBalance   sdkmath.Int
	totalShares   sdkmath.Int
	feesAccrued   sdkmath.Int

	accounts map[string]*account
	swaps    []types.SwapRecord

	lastInvest time.Time

	recorder Recorder
	now      func() time.Time
}

// Option customizes a Pool at construction time.
type Option func(*Pool)

// WithRecorder wires swap/summary persistence.
func WithRecorder(r Recorder) Option {
	return func(p *Pool) { p.recorder = r }
}

// WithClock overrides the time source. Tests use this to drive the
// invest gate and moving-average rate limits deterministically.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// New validates the configuration and dependencies and builds a pool.
func New(cfg Config, oracle market.PriceOracle, venue market.SwapVenue, stable, risk market.Token, strat strategy.Strategy, opts ...Option) (*Pool, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("pool configuration invalid: %w", err)
	}
	if oracle == nil {
		return nil, fmt.Errorf("price oracle cannot be nil")
	}
	if venue == nil {
		return nil, fmt.Errorf("swap venue cannot be nil")
	}
	if stable == nil || risk == nil {
		return nil, fmt.Errorf("token ledgers cannot be nil")
	}
	if strat == nil {
		return nil, fmt.Errorf("strategy cannot be nil")
	}

	p := &Pool{
		cfg:           cfg,
		log:           logger.GetForComponent("pool"),
		oracle:        oracle,
		venue:         venue,
		stable:        stable,
		risk:          risk,
		strat:         strat,
		stableBalance: sdkmath.ZeroInt(),
		riskBalance:   sdkmath.ZeroInt(),
		totalShares:   sdkmath.ZeroInt(),
		feesAccrued:   sdkmath.ZeroInt(),
		accounts:      make(map[string]*account),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.log.Info().
		Str("strategy", strat.Name()).
		Int64("feesPerc", cfg.FeesPerc).
		Int64("slippageThresholdBps", cfg.SlippageThresholdBps).
		Dur("updateInterval", cfg.UpdateInterval).
		Msg("Pool created")
	return p, nil
}

func validateConfig(cfg Config) error {
	if cfg.Address == "" {
		return fmt.Errorf("pool address cannot be empty")
	}
	if cfg.Owner == "" {
		return fmt.Errorf("pool owner cannot be empty")
	}
	for _, decimals := range []int{cfg.StableDecimals, cfg.RiskDecimals, cfg.ShareDecimals} {
		if decimals < 0 || decimals > 18 {
			return fmt.Errorf("decimals must be within 0..18, got %d", decimals)
		}
	}
	if cfg.FeesPerc < 0 {
		return fmt.Errorf("fees percentage cannot be negative")
	}
	if cfg.FeesPercDecimals < 0 || cfg.FeesPercDecimals > 18 {
		return fmt.Errorf("fees percentage decimals must be within 0..18, got %d", cfg.FeesPercDecimals)
	}
	if cfg.SlippageThresholdBps < 0 || cfg.SlippageThresholdBps > 10000 {
		return fmt.Errorf("slippage threshold must be within 0..10000 bps, got %d", cfg.SlippageThresholdBps)
	}
	return nil
}

// holdingsLocked snapshots the balances for valuation and strategies.
func (p *Pool) holdingsLocked() types.Holdings {
	return types.Holdings{
		StableBalance:  p.stableBalance,
		RiskBalance:    p.riskBalance,
		StableDecimals: p.cfg.StableDecimals,
		RiskDecimals:   p.cfg.RiskDecimals,
	}
}

// fetchQuote reads the oracle and enforces the staleness bound.
func (p *Pool) fetchQuote(now time.Time) (types.PriceQuote, error) {
	quote, err := p.oracle.LatestPrice()
	if err != nil {
		return types.PriceQuote{}, fmt.Errorf("failed to fetch price: %w", err)
	}
	if p.cfg.MaxPriceAge > 0 && quote.Age(now) > p.cfg.MaxPriceAge {
		return types.PriceQuote{}, fmt.Errorf("%w: quote is %s old, max %s",
			types.ErrStalePrice, quote.Age(now), p.cfg.MaxPriceAge)
	}
	return quote, nil
}

// valuePerShareLocked is the current value of one share unit in stable
// smallest units. Zero when no shares exist.
func (p *Pool) valuePerShareLocked(price sdkmath.LegacyDec) sdkmath.LegacyDec {
	if p.totalShares.IsZero() {
		return sdkmath.LegacyZeroDec()
	}
	totalValue := p.holdingsLocked().TotalValue(price)
	return sdkmath.LegacyNewDecFromInt(totalValue).QuoTruncate(sdkmath.LegacyNewDecFromInt(p.totalShares))
}

// checkInvariantsLocked asserts the ledger's internal consistency. Any
// failure indicates a bug, not a caller mistake.
func (p *Pool) checkInvariantsLocked() error {
	if p.stableBalance.IsNegative() || p.riskBalance.IsNegative() {
		return fmt.Errorf("%w: negative balance (stable=%s risk=%s)",
			types.ErrInvariantViolation, p.stableBalance.String(), p.riskBalance.String())
	}
	if p.totalShares.IsNegative() || p.feesAccrued.IsNegative() {
		return fmt.Errorf("%w: negative shares (total=%s fees=%s)",
			types.ErrInvariantViolation, p.totalShares.String(), p.feesAccrued.String())
	}

	sum := p.feesAccrued
	for _, acct := range p.accounts {
		sum = sum.Add(acct.shares)
	}
	if !sum.Equal(p.totalShares) {
		return fmt.Errorf("%w: share sum %s != total shares %s",
			types.ErrInvariantViolation, sum.String(), p.totalShares.String())
	}

	holdingsEmpty := p.stableBalance.IsZero() && p.riskBalance.IsZero()
	if p.totalShares.IsZero() != holdingsEmpty {
		return fmt.Errorf("%w: shares %s with stable=%s risk=%s",
			types.ErrInvariantViolation, p.totalShares.String(), p.stableBalance.String(), p.riskBalance.String())
	}
	return nil
}

// --- reads ---

// TotalValue returns the portfolio value in stable smallest units at the
// latest oracle price.
func (p *Pool) TotalValue() (sdkmath.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	quote, err := p.fetchQuote(p.now())
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return p.holdingsLocked().TotalValue(quote.Price), nil
}

// StableBalance returns the stable-asset balance in smallest units.
func (p *Pool) StableBalance() sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stableBalance
}

// RiskBalance returns the risk-asset balance in smallest units.
func (p *Pool) RiskBalance() sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.riskBalance
}

// TotalShares returns the outstanding share supply.
func (p *Pool) TotalShares() sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalShares
}

// FeesAccrued returns the uncollected fee shares held by the pool.
func (p *Pool) FeesAccrued() sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.feesAccrued
}

// ShareBalance returns a depositor's share balance; zero for unknowns.
func (p *Pool) ShareBalance(addr string) sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if acct, ok := p.accounts[addr]; ok {
		return acct.shares
	}
	return sdkmath.ZeroInt()
}

// AccountValue returns a depositor's slice of the portfolio value.
func (p *Pool) AccountValue(addr string) (sdkmath.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acct, ok := p.accounts[addr]
	if !ok || p.totalShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	quote, err := p.fetchQuote(p.now())
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	totalValue := p.holdingsLocked().TotalValue(quote.Price)
	return totalValue.Mul(acct.shares).Quo(p.totalShares), nil
}

// OwnershipPercentage returns a depositor's share of the pool as a
// percentage, truncated at 8-decimal fixed precision (33.333333, 62.5).
func (p *Pool) OwnershipPercentage(addr string) sdkmath.LegacyDec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ownershipPercentageLocked(addr)
}

func (p *Pool) ownershipPercentageLocked(addr string) sdkmath.LegacyDec {
	acct, ok := p.accounts[addr]
	if !ok || p.totalShares.IsZero() {
		return sdkmath.LegacyZeroDec()
	}
	scale := utils.Pow10Int(portfolioPercentageDecimals)
	fraction := acct.shares.Mul(scale).Quo(p.totalShares)
	return sdkmath.LegacyNewDecFromInt(fraction).
		MulInt64(100).
		QuoTruncate(sdkmath.LegacyNewDecFromInt(scale))
}

// Deposits returns a depositor's lifetime deposits in stable units.
func (p *Pool) Deposits(addr string) sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if acct, ok := p.accounts[addr]; ok {
		return acct.deposited
	}
	return sdkmath.ZeroInt()
}

// Withdrawals returns a depositor's lifetime withdrawals in stable units.
func (p *Pool) Withdrawals(addr string) sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if acct, ok := p.accounts[addr]; ok {
		return acct.withdrawn
	}
	return sdkmath.ZeroInt()
}

// Swaps returns a copy of the append-only swap log.
func (p *Pool) Swaps() []types.SwapRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.SwapRecord, len(p.swaps))
	copy(out, p.swaps)
	return out
}

// Swap returns the log entry at the given index.
func (p *Pool) Swap(index int) (types.SwapRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if index < 0 || index >= len(p.swaps) {
		return types.SwapRecord{}, fmt.Errorf("swap index %d out of range (%d entries)", index, len(p.swaps))
	}
	return p.swaps[index], nil
}

// Summary returns the observable pool state for the web layer.
func (p *Pool) Summary() (types.PoolSummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	quote, err := p.fetchQuote(p.now())
	if err != nil {
		return types.PoolSummary{}, err
	}
	return p.summaryLocked(quote.Price), nil
}

func (p *Pool) summaryLocked(price sdkmath.LegacyDec) types.PoolSummary {
	return types.PoolSummary{
		StableBalance: p.stableBalance.String(),
		RiskBalance:   p.riskBalance.String(),
		TotalValue:    p.holdingsLocked().TotalValue(price).String(),
		TotalShares:   p.totalShares.String(),
		FeesAccrued:   p.feesAccrued.String(),
		FeedPrice:     price.String(),
		SwapCount:     len(p.swaps),
		LastInvest:    p.lastInvest,
	}
}

// AccountSummaryFor returns the observable per-depositor state.
func (p *Pool) AccountSummaryFor(addr string) (types.AccountSummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acct, ok := p.accounts[addr]
	if !ok {
		return types.AccountSummary{}, fmt.Errorf("%w: %s", types.ErrUnknownAccount, addr)
	}

	quote, err := p.fetchQuote(p.now())
	if err != nil {
		return types.AccountSummary{}, err
	}

	value := sdkmath.ZeroInt()
	if !p.totalShares.IsZero() {
		value = p.holdingsLocked().TotalValue(quote.Price).Mul(acct.shares).Quo(p.totalShares)
	}
	return types.AccountSummary{
		Address:    addr,
		Shares:     acct.shares.String(),
		Value:      value.String(),
		Percentage: p.ownershipPercentageLocked(addr).String(),
		Deposited:  acct.deposited.String(),
		Withdrawn:  acct.withdrawn.String(),
	}, nil
}
