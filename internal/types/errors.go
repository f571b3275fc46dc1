package types

import "errors"

// Input errors. The caller can recover by correcting the request.
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientShares    = errors.New("share amount exceeds balance")
	ErrInsufficientBalance   = errors.New("token balance too low")
	ErrInsufficientAllowance = errors.New("token allowance too low")
	ErrUnknownAccount        = errors.New("unknown account")
)

// Market errors. Transient; the caller retries on the next tick.
var (
	ErrStalePrice       = errors.New("price feed is stale")
	ErrSlippageExceeded = errors.New("swap slippage exceeds threshold")
)

// ErrInvariantViolation marks a state that must never occur under a correct
// implementation. Operations returning it have not mutated the ledger.
var ErrInvariantViolation = errors.New("ledger invariant violated")
