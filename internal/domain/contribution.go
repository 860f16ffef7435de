package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Contribution
// ──────────────────────────────────────────────────────────────────────────────

// Contribution is one contributor's locked principal inside a Pool.
// There is at most one record per (pool, contributor): a repeat contribution
// from the same principal increases Amount on the existing record.
type Contribution struct {
	ID          uuid.UUID  `json:"id"           db:"id"`
	PoolID      int64      `json:"pool_id"      db:"pool_id"`
	Contributor uuid.UUID  `json:"contributor"  db:"contributor"`

	// Amount is the locked principal. It only ever grows, and only through
	// the contributor's own repeat contributions while the pool is open.
	Amount decimal.Decimal `json:"amount" db:"amount"`

	// OwnershipShare is the fraction (0–1) of the pool attributed to this
	// record. While the pool is open it is a snapshot taken when this record
	// was last touched (amount / raised-at-that-instant) and is informational
	// only. The distribution engine overwrites it with the authoritative
	// amount / finalAmountRaised when the return is reported.
	OwnershipShare decimal.Decimal `json:"ownership_share" db:"ownership_share"`

	// PayoutAmount is zero until the distribution engine computes it.
	PayoutAmount decimal.Decimal `json:"payout_amount" db:"payout_amount"`

	HasClaimed    bool       `json:"has_claimed"    db:"has_claimed"`
	ContributedAt time.Time  `json:"contributed_at" db:"contributed_at"`
	ClaimedAt     *time.Time `json:"claimed_at"     db:"claimed_at"`
	UpdatedAt     time.Time  `json:"updated_at"     db:"updated_at"`
}

// ShareOf returns this contribution's exact fraction of finalRaised.
// Returns decimal.Zero when finalRaised is zero (empty pool guard).
func (c *Contribution) ShareOf(finalRaised decimal.Decimal) decimal.Decimal {
	if finalRaised.IsZero() {
		return decimal.Zero
	}
	return c.Amount.Div(finalRaised)
}

// PayoutForShare returns the payout for an already-determined ownership
// share: principal plus the share of the signed totalProfit, truncated
// toward zero at PayoutScale decimal places and floored at zero — a loss can
// consume the principal but never go below it.
func (c *Contribution) PayoutForShare(totalProfit, share decimal.Decimal) decimal.Decimal {
	payout := c.Amount.Add(totalProfit.Mul(share)).RoundDown(PayoutScale)
	if payout.IsNegative() {
		return decimal.Zero
	}
	return payout
}

// ComputePayout returns the contributor's final payout for a pool that raised
// finalRaised and ended with the signed totalProfit:
//
//	share       = Amount / finalRaised
//	profitShare = totalProfit × share      (carries the sign of totalProfit)
//	payout      = Amount + profitShare
func (c *Contribution) ComputePayout(totalProfit, finalRaised decimal.Decimal) decimal.Decimal {
	return c.PayoutForShare(totalProfit, c.ShareOf(finalRaised))
}

// AssignShares returns the authoritative ownership share for each
// contribution of a pool that raised finalRaised, in input order. Every
// record but the last gets amount / finalRaised; the last gets the remainder
// 1 − sum(previous), so the stored shares sum to exactly 1 even when the
// divisions do not terminate (division truncates at decimal's division
// precision, and three equal thirds would otherwise sum to 0.999…).
func AssignShares(contributions []*Contribution, finalRaised decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(contributions))
	if len(contributions) == 0 || finalRaised.IsZero() {
		return shares
	}
	acc := decimal.Zero
	for i, c := range contributions[:len(contributions)-1] {
		shares[i] = c.ShareOf(finalRaised)
		acc = acc.Add(shares[i])
	}
	shares[len(shares)-1] = decimal.NewFromInt(1).Sub(acc)
	return shares
}

// ──────────────────────────────────────────────────────────────────────────────
// Value objects
// ──────────────────────────────────────────────────────────────────────────────

// ContributeRequest carries the validated inputs for a contribution.
type ContributeRequest struct {
	PoolID      int64
	Contributor uuid.UUID
	Amount      decimal.Decimal
}

// ContributionResponse is the API-safe view of a contribution.
type ContributionResponse struct {
	ID             uuid.UUID       `json:"id"`
	PoolID         int64           `json:"pool_id"`
	Amount         decimal.Decimal `json:"amount"`
	OwnershipShare decimal.Decimal `json:"ownership_share"`
	PayoutAmount   decimal.Decimal `json:"payout_amount"`
	HasClaimed     bool            `json:"has_claimed"`
	ContributedAt  time.Time       `json:"contributed_at"`
	ClaimedAt      *time.Time      `json:"claimed_at,omitempty"`
}

// ToResponse converts a Contribution to its API response form.
func (c *Contribution) ToResponse() ContributionResponse {
	return ContributionResponse{
		ID:             c.ID,
		PoolID:         c.PoolID,
		Amount:         c.Amount,
		OwnershipShare: c.OwnershipShare,
		PayoutAmount:   c.PayoutAmount,
		HasClaimed:     c.HasClaimed,
		ContributedAt:  c.ContributedAt,
		ClaimedAt:      c.ClaimedAt,
	}
}
