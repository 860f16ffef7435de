// Package domain defines the core business entities and types for the
// capital-pooling and return-distribution ledger.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// PoolStatus represents the lifecycle state of a pool.
type PoolStatus string

const (
	StatusOpen     PoolStatus = "open"     // accepting contributions
	StatusClosed   PoolStatus = "closed"   // funding window over, awaiting the operator's return report
	StatusComplete PoolStatus = "complete" // return reported, payouts computed, claims open
	StatusStuck    PoolStatus = "stuck"    // operator inactive; principal-recovery claims open
)

// IsValid returns true if s is one of the four recognised states.
func (s PoolStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusComplete, StatusStuck:
		return true
	}
	return false
}

// PayoutScale is the number of decimal places payouts are truncated to.
// It matches the DECIMAL(18,4) money columns, so the minimal unit is 0.0001.
const PayoutScale = 4

// MinimalUnit returns the smallest representable payout increment (0.0001).
func MinimalUnit() decimal.Decimal {
	return decimal.New(1, -PayoutScale)
}

// ──────────────────────────────────────────────────────────────────────────────
// Pool
// ──────────────────────────────────────────────────────────────────────────────

// Pool represents one funding campaign: an operator raises capital up to
// TargetAmount before Deadline, later reports an aggregate return, and
// contributors claim their proportional payouts.
type Pool struct {
	ID                   int64            `json:"id"                     db:"id"`
	Operator             uuid.UUID        `json:"operator"               db:"operator"`
	TargetAmount         decimal.Decimal  `json:"target_amount"          db:"target_amount"`
	AmountRaised         decimal.Decimal  `json:"amount_raised"          db:"amount_raised"`
	Deadline             time.Time        `json:"deadline"               db:"deadline"`
	Status               PoolStatus       `json:"status"                 db:"status"`
	TotalReturn          *decimal.Decimal `json:"total_return"           db:"total_return"`
	TotalProfit          *decimal.Decimal `json:"total_profit"           db:"total_profit"`
	LastOperatorActivity time.Time        `json:"last_operator_activity" db:"last_operator_activity"`
	ClosedAt             *time.Time       `json:"closed_at"              db:"closed_at"`
	CompletedAt          *time.Time       `json:"completed_at"           db:"completed_at"`
	CreatedAt            time.Time        `json:"created_at"             db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"             db:"updated_at"`
}

// IsOpen returns true while the pool is accepting contributions.
func (p *Pool) IsOpen() bool { return p.Status == StatusOpen }

// IsClosed returns true after funding ended but before the return was reported.
func (p *Pool) IsClosed() bool { return p.Status == StatusClosed }

// IsComplete returns true once the return has been reported and distributed.
func (p *Pool) IsComplete() bool { return p.Status == StatusComplete }

// IsStuck returns true when the pool entered the emergency-recovery state.
func (p *Pool) IsStuck() bool { return p.Status == StatusStuck }

// IsClaimable returns true when contributors may collect payouts:
// either the normal path (complete) or the recovery path (stuck).
func (p *Pool) IsClaimable() bool { return p.IsComplete() || p.IsStuck() }

// Distributed reports whether the distribution engine has run for this pool.
// A pool that went stuck straight from closed has no computed payouts, and
// claims fall back to each contributor's principal.
func (p *Pool) Distributed() bool { return p.TotalReturn != nil }

// Remaining returns the capacity left before the funding target is reached.
func (p *Pool) Remaining() decimal.Decimal {
	return p.TargetAmount.Sub(p.AmountRaised)
}

// FillPercent returns how much of the target has been raised (0–100).
func (p *Pool) FillPercent() decimal.Decimal {
	if p.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return p.AmountRaised.Div(p.TargetAmount).Mul(decimal.NewFromInt(100))
}

// DeadlinePassed returns true once the contribution window has expired.
func (p *Pool) DeadlinePassed(now time.Time) bool {
	return now.After(p.Deadline)
}

// TimeLeft returns the duration remaining until the contribution deadline.
// Returns 0 if the deadline has already passed.
func (p *Pool) TimeLeft() time.Duration {
	remaining := time.Until(p.Deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecoveryEligible returns true when the operator has been silent long enough
// for anyone to flip the pool into the stuck state. Only closed and complete
// pools are monitored.
func (p *Pool) RecoveryEligible(now time.Time, inactivityPeriod time.Duration) bool {
	if !p.IsClosed() && !p.IsComplete() {
		return false
	}
	return now.After(p.LastOperatorActivity.Add(inactivityPeriod))
}

// CanAccept checks every precondition for a contribution of amount at the
// given instant and returns the sentinel error for the first violated one,
// or nil when the contribution is admissible. Pool state and deadline take
// precedence over amount validation. minAmount is the configured
// contribution floor; zero disables it.
func (p *Pool) CanAccept(amount, minAmount decimal.Decimal, now time.Time) error {
	if !p.IsOpen() {
		return ErrPoolNotOpen
	}
	if p.DeadlinePassed(now) {
		return ErrDeadlinePassed
	}
	if !amount.IsPositive() || amount.LessThan(minAmount) {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(p.Remaining()) {
		return ErrExceedsTarget
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PoolSummary — lightweight read model for WS broadcasts and list endpoints
// ──────────────────────────────────────────────────────────────────────────────

// PoolSummary is a derived, read-only view of a Pool used for broadcasting.
type PoolSummary struct {
	ID           int64           `json:"id"`
	Operator     uuid.UUID       `json:"operator"`
	Status       PoolStatus      `json:"status"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	AmountRaised decimal.Decimal `json:"amount_raised"`
	Remaining    decimal.Decimal `json:"remaining"`
	FillPercent  decimal.Decimal `json:"fill_percent"`
	Deadline     time.Time       `json:"deadline"`
	TimeLeftSec  int64           `json:"time_left_sec"`
}

// ToSummary builds a PoolSummary from the pool.
func (p *Pool) ToSummary() PoolSummary {
	return PoolSummary{
		ID:           p.ID,
		Operator:     p.Operator,
		Status:       p.Status,
		TargetAmount: p.TargetAmount,
		AmountRaised: p.AmountRaised,
		Remaining:    p.Remaining(),
		FillPercent:  p.FillPercent(),
		Deadline:     p.Deadline,
		TimeLeftSec:  int64(p.TimeLeft().Seconds()),
	}
}
