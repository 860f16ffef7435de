package domain_test

import (
	"testing"

	"github.com/openfund/pooling/internal/domain"
	"github.com/shopspring/decimal"
)

func contribution(amount int64) *domain.Contribution {
	return &domain.Contribution{Amount: decimal.NewFromInt(amount)}
}

// TestProportionalProfitDistribution validates the payout calculation used by
// DistributionService. No I/O — pure arithmetic.
//
//	Scenario:
//	  raised = 1 000  (contributors: 400 + 600)
//	  reported return = 1 200  → profit = +200
//
//	Expected:
//	  payout(400) = 400 + 200 × 0.4 = 480
//	  payout(600) = 600 + 200 × 0.6 = 720
//	  sum = 1 200, nothing left behind
func TestProportionalProfitDistribution(t *testing.T) {
	raised := decimal.NewFromInt(1000)
	profit := decimal.NewFromInt(200) // return 1200 − raised 1000

	a := contribution(400)
	b := contribution(600)

	payoutA := a.ComputePayout(profit, raised)
	payoutB := b.ComputePayout(profit, raised)

	if want := decimal.NewFromInt(480); !payoutA.Equal(want) {
		t.Errorf("payout(400) = %s, want %s", payoutA, want)
	}
	if want := decimal.NewFromInt(720); !payoutB.Equal(want) {
		t.Errorf("payout(600) = %s, want %s", payoutB, want)
	}
	if sum := payoutA.Add(payoutB); !sum.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("payout sum = %s, want 1200", sum)
	}
}

// TestProportionalLossDistribution covers a reported return below the raised
// total: the signed profit is negative and each contributor absorbs the loss
// in proportion to their share.
//
//	raised = 1 000, return = 800 → profit = −200
//	payout(500) = 500 + (−200 × 0.5) = 400
func TestProportionalLossDistribution(t *testing.T) {
	raised := decimal.NewFromInt(1000)
	loss := decimal.NewFromInt(-200)

	c := contribution(500)
	payout := c.ComputePayout(loss, raised)

	if want := decimal.NewFromInt(400); !payout.Equal(want) {
		t.Errorf("payout under loss = %s, want %s", payout, want)
	}
}

// TestTotalLossFloorsAtZero: a return of zero wipes out the principal, and
// the payout floors at zero rather than going negative.
func TestTotalLossFloorsAtZero(t *testing.T) {
	raised := decimal.NewFromInt(1000)
	totalLoss := decimal.NewFromInt(-1000) // return 0

	c := contribution(250)
	payout := c.ComputePayout(totalLoss, raised)

	if !payout.IsZero() {
		t.Errorf("payout on zero return = %s, want 0", payout)
	}
	if payout.IsNegative() {
		t.Errorf("payout must never be negative, got %s", payout)
	}
}

// TestSingleContributorGetsExactReturn: with one contributor holding 100% of
// the pool the payout equals the reported return exactly — no truncation
// residual is possible.
func TestSingleContributorGetsExactReturn(t *testing.T) {
	raised := decimal.NewFromInt(777)
	profit := decimal.NewFromFloat(123.4567)

	c := contribution(777)
	payout := c.ComputePayout(profit, raised)

	if want := decimal.NewFromFloat(900.4567); !payout.Equal(want) {
		t.Errorf("sole contributor payout = %s, want %s", payout, want)
	}
}

// TestRoundingResidualBound: payouts truncate toward zero at the minimal
// unit, so the undistributed residual over n contributors is bounded by
// (n−1) minimal units and the pool never pays out more than the return.
//
//	raised = 3 × 1, return = 2 → profit = −1, share = 1/3 each
//	exact payout each = 2/3 = 0.6666…, truncated to 0.6666
func TestRoundingResidualBound(t *testing.T) {
	raised := decimal.NewFromInt(3)
	profit := decimal.NewFromInt(-1)
	totalReturn := decimal.NewFromInt(2)

	paid := decimal.Zero
	const n = 3
	for i := 0; i < n; i++ {
		paid = paid.Add(contribution(1).ComputePayout(profit, raised))
	}

	want := decimal.NewFromFloat(0.6666).Mul(decimal.NewFromInt(n))
	if !paid.Equal(want) {
		t.Errorf("total paid = %s, want %s", paid, want)
	}

	residual := totalReturn.Sub(paid)
	if residual.IsNegative() {
		t.Errorf("pool overpaid by %s", residual.Neg())
	}
	maxResidual := domain.MinimalUnit().Mul(decimal.NewFromInt(n - 1))
	if residual.GreaterThan(maxResidual) {
		t.Errorf("residual %s exceeds bound %s", residual, maxResidual)
	}
}

// TestShareFromFinalTotal: the authoritative share is computed from the
// frozen final raised amount, so shares across all records sum to exactly 1
// no matter in which order contributions arrived.
func TestShareFromFinalTotal(t *testing.T) {
	raised := decimal.NewFromInt(1000)

	amounts := []int64{100, 250, 650}
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(contribution(a).ShareOf(raised))
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		t.Errorf("share sum = %s, want 1", sum)
	}

	// Empty pool guard.
	if !contribution(100).ShareOf(decimal.Zero).IsZero() {
		t.Error("share of an empty pool should be 0")
	}
}

// TestAssignedSharesSumExactlyToOne: raw division truncates at decimal's
// division precision, so three equal contributions into a pool of 3 would
// each store 0.3333…3 and sum to just under 1. AssignShares gives the last
// record the remainder, restoring an exact sum of 1.
func TestAssignedSharesSumExactlyToOne(t *testing.T) {
	raised := decimal.NewFromInt(3)
	cs := []*domain.Contribution{contribution(1), contribution(1), contribution(1)}

	shares := domain.AssignShares(cs, raised)

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		t.Errorf("assigned share sum = %s, want exactly 1", sum)
	}

	// Each share must still be a faithful third.
	third := decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	tolerance := decimal.New(1, -15)
	for i, s := range shares {
		if s.Sub(third).Abs().GreaterThan(tolerance) {
			t.Errorf("share[%d] = %s, want ≈ %s", i, s, third)
		}
	}

	// A sole contributor gets exactly 1, not a truncated quotient.
	sole := domain.AssignShares([]*domain.Contribution{contribution(7)}, decimal.NewFromInt(7))
	if !sole[0].Equal(decimal.NewFromInt(1)) {
		t.Errorf("sole contributor share = %s, want 1", sole[0])
	}
}

// TestAssignedSharePayoutsStayWithinReturn: the remainder-absorbing last
// share must not break the payout-sum invariant — the pool still never pays
// out more than the reported return, and the residual stays within
// (n−1) minimal units.
func TestAssignedSharePayoutsStayWithinReturn(t *testing.T) {
	raised := decimal.NewFromInt(3)
	totalReturn := decimal.NewFromInt(103)
	profit := totalReturn.Sub(raised)

	cs := []*domain.Contribution{contribution(1), contribution(1), contribution(1)}
	shares := domain.AssignShares(cs, raised)

	paid := decimal.Zero
	for i, c := range cs {
		paid = paid.Add(c.PayoutForShare(profit, shares[i]))
	}

	residual := totalReturn.Sub(paid)
	if residual.IsNegative() {
		t.Errorf("pool overpaid by %s", residual.Neg())
	}
	maxResidual := domain.MinimalUnit().Mul(decimal.NewFromInt(int64(len(cs) - 1)))
	if residual.GreaterThan(maxResidual) {
		t.Errorf("residual %s exceeds bound %s", residual, maxResidual)
	}
}
