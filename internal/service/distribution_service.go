package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openfund/pooling/internal/config"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/repository"
	"github.com/shopspring/decimal"
)

// DistributionService handles pool settlement: the operator reports the
// aggregate return, the engine derives the signed profit or loss, computes
// every contributor's payout from their locked principal, and moves the pool
// to complete — all in one transaction, so a failure leaves neither payouts
// nor a stale status behind.
type DistributionService struct {
	db          *sqlx.DB
	poolRepo    *repository.PoolRepository
	contribRepo *repository.ContributionRepository
	cfg         *config.Config
	broadcaster Broadcaster // injected after the WS hub is built
	logger      *slog.Logger
}

// NewDistributionService builds a DistributionService.
func NewDistributionService(
	db *sqlx.DB,
	poolRepo *repository.PoolRepository,
	contribRepo *repository.ContributionRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *DistributionService {
	return &DistributionService{
		db:          db,
		poolRepo:    poolRepo,
		contribRepo: contribRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *DistributionService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// ReportReturn — closed → complete, with payout computation
// ──────────────────────────────────────────────────────────────────────────────

// ReportReturn records the operator's aggregate return for a closed pool and
// distributes it.
//
// The authoritative ownership share for every contributor is computed here,
// once, as amount / amountRaised — amountRaised has been frozen since the
// pool left open. The last record absorbs the division remainder
// (domain.AssignShares), so the stored shares sum to exactly 1 even for
// non-terminating divisions. Each payout is principal plus the share of the
// signed profit, truncated toward zero at the minimal unit; the truncation
// residual (at most contributors−1 minimal units) stays in the pool and is
// not redistributed.
func (s *DistributionService) ReportReturn(ctx context.Context, poolID int64, caller uuid.UUID, returnAmount decimal.Decimal) (*domain.Pool, error) {
	if returnAmount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("distribution_service.ReportReturn: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	pool, err := s.poolRepo.GetByIDForUpdate(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Operator != caller {
		err = domain.ErrUnauthorized
		return nil, err
	}
	if !pool.IsClosed() {
		err = domain.ErrPoolNotClosed
		return nil, err
	}

	totalProfit := returnAmount.Sub(pool.AmountRaised)

	contributions, err := s.contribRepo.ListByPoolTx(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}

	shares := domain.AssignShares(contributions, pool.AmountRaised)
	paidOut := decimal.Zero
	for i, c := range contributions {
		payout := c.PayoutForShare(totalProfit, shares[i])
		if err = s.contribRepo.SetPayout(ctx, tx, c.ID, shares[i], payout); err != nil {
			return nil, err
		}
		paidOut = paidOut.Add(payout)
	}

	if err = s.poolRepo.MarkComplete(ctx, tx, poolID, returnAmount, totalProfit); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("distribution_service.ReportReturn: commit: %w", err)
	}

	pool.Status = domain.StatusComplete
	pool.TotalReturn = &returnAmount
	pool.TotalProfit = &totalProfit

	s.logger.Info("pool distributed",
		"pool_id", poolID,
		"raised", pool.AmountRaised.StringFixed(domain.PayoutScale),
		"return", returnAmount.StringFixed(domain.PayoutScale),
		"profit", totalProfit.StringFixed(domain.PayoutScale),
		"contributors", len(contributions),
		"residual", returnAmount.Sub(paidOut).StringFixed(domain.PayoutScale),
	)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastReturnDistributed(pool, len(contributions))
		s.broadcaster.BroadcastPoolStatusChanged(pool)
	}
	return pool, nil
}
