package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/pooling/internal/domain"
	"github.com/shopspring/decimal"
)

func openPool(target int64, deadline time.Time) *domain.Pool {
	return &domain.Pool{
		ID:           1,
		Operator:     uuid.New(),
		TargetAmount: decimal.NewFromInt(target),
		AmountRaised: decimal.Zero,
		Deadline:     deadline,
		Status:       domain.StatusOpen,
	}
}

// ── Lifecycle predicates ──────────────────────────────────────────────────────

func TestPoolStatusPredicates(t *testing.T) {
	cases := []struct {
		status    domain.PoolStatus
		claimable bool
	}{
		{domain.StatusOpen, false},
		{domain.StatusClosed, false},
		{domain.StatusComplete, true},
		{domain.StatusStuck, true},
	}
	for _, tc := range cases {
		p := &domain.Pool{Status: tc.status}
		if p.IsClaimable() != tc.claimable {
			t.Errorf("status %s: IsClaimable() = %v, want %v", tc.status, p.IsClaimable(), tc.claimable)
		}
	}

	if domain.PoolStatus("pending").IsValid() {
		t.Error("unknown status should not be valid")
	}
}

func TestDistributedDistinguishesRecoveryRegime(t *testing.T) {
	p := &domain.Pool{Status: domain.StatusStuck}
	if p.Distributed() {
		t.Error("pool without a reported return should not count as distributed")
	}
	ret := decimal.NewFromInt(1200)
	p.TotalReturn = &ret
	if !p.Distributed() {
		t.Error("pool with a reported return should count as distributed")
	}
}

// ── CanAccept ─────────────────────────────────────────────────────────────────

func TestCanAccept(t *testing.T) {
	now := time.Now().UTC()
	p := openPool(1000, now.Add(time.Hour))
	p.AmountRaised = decimal.NewFromInt(900)

	cases := []struct {
		name   string
		amount decimal.Decimal
		at     time.Time
		status domain.PoolStatus
		want   error
	}{
		{"admissible", decimal.NewFromInt(50), now, domain.StatusOpen, nil},
		{"exact remaining capacity", decimal.NewFromInt(100), now, domain.StatusOpen, nil},
		{"exceeds remaining capacity", decimal.NewFromInt(101), now, domain.StatusOpen, domain.ErrExceedsTarget},
		{"zero amount", decimal.Zero, now, domain.StatusOpen, domain.ErrInvalidAmount},
		{"negative amount", decimal.NewFromInt(-5), now, domain.StatusOpen, domain.ErrInvalidAmount},
		{"after deadline", decimal.NewFromInt(50), now.Add(2 * time.Hour), domain.StatusOpen, domain.ErrDeadlinePassed},
		{"pool closed", decimal.NewFromInt(50), now, domain.StatusClosed, domain.ErrPoolNotOpen},
		{"pool complete", decimal.NewFromInt(50), now, domain.StatusComplete, domain.ErrPoolNotOpen},
	}
	for _, tc := range cases {
		p.Status = tc.status
		err := p.CanAccept(tc.amount, decimal.Zero, tc.at)
		if !errors.Is(err, tc.want) && !(err == nil && tc.want == nil) {
			t.Errorf("%s: CanAccept = %v, want %v", tc.name, err, tc.want)
		}
	}
}

// TestCanAcceptContributionFloor: the configured floor rejects small amounts
// only after the pool's own preconditions pass — a sub-floor amount on a
// closed pool reports the state error, not the amount error — and a floor of
// one minimal unit admits any representable positive amount.
func TestCanAcceptContributionFloor(t *testing.T) {
	now := time.Now().UTC()
	p := openPool(1000, now.Add(time.Hour))
	floor := decimal.NewFromInt(1)

	small := decimal.NewFromFloat(0.5)
	if err := p.CanAccept(small, floor, now); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("below-floor amount: CanAccept = %v, want ErrInvalidAmount", err)
	}
	if err := p.CanAccept(small, domain.MinimalUnit(), now); err != nil {
		t.Errorf("minimal-unit floor must admit 0.5, got %v", err)
	}

	p.Status = domain.StatusClosed
	if err := p.CanAccept(small, floor, now); !errors.Is(err, domain.ErrPoolNotOpen) {
		t.Errorf("state check must precede the floor, got %v", err)
	}
}

// ── Recovery eligibility ──────────────────────────────────────────────────────

func TestRecoveryEligible(t *testing.T) {
	now := time.Now().UTC()
	window := 7 * 24 * time.Hour

	p := &domain.Pool{
		Status:               domain.StatusClosed,
		LastOperatorActivity: now.Add(-8 * 24 * time.Hour),
	}
	if !p.RecoveryEligible(now, window) {
		t.Error("closed pool with 8 days of silence should be recovery eligible")
	}

	p.LastOperatorActivity = now.Add(-6 * 24 * time.Hour)
	if p.RecoveryEligible(now, window) {
		t.Error("6 days of silence is inside the window, not eligible")
	}

	p.LastOperatorActivity = now.Add(-8 * 24 * time.Hour)
	p.Status = domain.StatusOpen
	if p.RecoveryEligible(now, window) {
		t.Error("open pools are never recovery eligible")
	}

	p.Status = domain.StatusStuck
	if p.RecoveryEligible(now, window) {
		t.Error("stuck pools are already recovered, not eligible again")
	}
}

// ── Fill metrics ──────────────────────────────────────────────────────────────

func TestFillPercentAndRemaining(t *testing.T) {
	p := openPool(1000, time.Now().Add(time.Hour))
	p.AmountRaised = decimal.NewFromInt(250)

	if want := decimal.NewFromInt(750); !p.Remaining().Equal(want) {
		t.Errorf("Remaining = %s, want %s", p.Remaining(), want)
	}
	if want := decimal.NewFromInt(25); !p.FillPercent().Equal(want) {
		t.Errorf("FillPercent = %s, want %s", p.FillPercent(), want)
	}

	// Zero-target guard (never created through the service, but the math
	// must not divide by zero).
	p.TargetAmount = decimal.Zero
	if !p.FillPercent().IsZero() {
		t.Errorf("FillPercent on zero target = %s, want 0", p.FillPercent())
	}
}
