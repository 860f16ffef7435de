package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Validation errors (caller error, no state change)
var (
	// ErrInvalidParameters is returned by pool creation when the target or
	// deadline offset is not positive.
	ErrInvalidParameters = errors.New("invalid pool parameters: target and deadline offset must be positive")

	// ErrInvalidAmount is returned when a contribution or reported return
	// amount fails basic validation.
	ErrInvalidAmount = errors.New("amount is invalid")

	// ErrExceedsTarget is returned when a contribution would push the pool
	// past its funding target. Excess contributions are rejected, not trimmed.
	ErrExceedsTarget = errors.New("contribution exceeds remaining pool capacity")

	// ErrDeadlinePassed is returned when a contribution arrives after the
	// pool's funding deadline.
	ErrDeadlinePassed = errors.New("pool deadline has passed")

	// ErrDeadlineNotReached is returned when the operator tries to close a
	// pool before its deadline.
	ErrDeadlineNotReached = errors.New("pool deadline has not been reached yet")

	// ErrPoolNotFound is returned when no pool matches the given identifier.
	ErrPoolNotFound = errors.New("pool not found")
)

// State errors (operation invalid for the pool's current lifecycle state)
var (
	// ErrPoolNotOpen is returned when a contribution or close is attempted on
	// a pool that is not in StatusOpen.
	ErrPoolNotOpen = errors.New("pool is not open")

	// ErrPoolNotClosed is returned when a return report is attempted on a
	// pool that is not in StatusClosed.
	ErrPoolNotClosed = errors.New("pool is not closed")

	// ErrPoolNotClaimable is returned when a claim is attempted before the
	// pool reached complete or stuck.
	ErrPoolNotClaimable = errors.New("pool is not claimable yet")

	// ErrPoolNotEligible is returned when an inactivity check targets a pool
	// that is not in a monitored state (closed or complete).
	ErrPoolNotEligible = errors.New("pool is not eligible for recovery")

	// ErrOperatorStillActive is returned when the inactivity period has not
	// elapsed since the operator's last action.
	ErrOperatorStillActive = errors.New("operator is still within the activity window")
)

// Claim errors
var (
	// ErrAlreadyClaimed is returned on a second claim attempt for the same
	// (pool, contributor) pair.
	ErrAlreadyClaimed = errors.New("payout has already been claimed")

	// ErrNothingToClaim is returned when the caller has no contribution in
	// the pool or a zero payout.
	ErrNothingToClaim = errors.New("nothing to claim")

	// ErrTransferFailed is returned when the value transfer behind a claim
	// fails; the whole claim is rolled back.
	ErrTransferFailed = errors.New("value transfer failed")
)

// Wallet errors
var (
	// ErrWalletNotFound is returned when no wallet exists for the principal.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientBalance is returned when a principal's balance is too
	// low to fund a contribution.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

// Auth errors
var (
	// ErrUnauthorized is returned when an operator-only action is attempted
	// by a different principal, or no valid token is present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenInvalid is returned when a token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects the "entity not found" sentinels so IsNotFound can
// stay in sync automatically.
var notFoundErrors = []error{
	ErrPoolNotFound,
	ErrWalletNotFound,
	ErrNothingToClaim,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this when translating domain errors into
// HTTP 404 responses instead of comparing values directly.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a lifecycle-state
// conflict rather than bad input.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrPoolNotOpen,
		ErrPoolNotClosed,
		ErrPoolNotClaimable,
		ErrPoolNotEligible,
		ErrOperatorStillActive,
		ErrAlreadyClaimed,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for caller-input errors that map to HTTP 400.
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrInvalidParameters,
		ErrInvalidAmount,
		ErrExceedsTarget,
		ErrDeadlinePassed,
		ErrDeadlineNotReached,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrTokenInvalid,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
