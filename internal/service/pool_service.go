package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openfund/pooling/internal/config"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/repository"
	"github.com/shopspring/decimal"
)

// PoolService is the pool registry and lifecycle front door: it creates
// pools, answers existence/lookup queries, and performs the operator-only
// manual close once the funding deadline has passed.
type PoolService struct {
	db          *sqlx.DB
	poolRepo    *repository.PoolRepository
	contribRepo *repository.ContributionRepository
	cfg         *config.Config
	broadcaster Broadcaster // injected after the WS hub is built
}

// NewPoolService creates a PoolService.
func NewPoolService(
	db *sqlx.DB,
	poolRepo *repository.PoolRepository,
	contribRepo *repository.ContributionRepository,
	cfg *config.Config,
) *PoolService {
	return &PoolService{
		db:          db,
		poolRepo:    poolRepo,
		contribRepo: contribRepo,
		cfg:         cfg,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *PoolService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

// Create registers a new pool for operator with the given funding target and
// deadline offset from now. The store assigns the sequential identifier.
func (s *PoolService) Create(ctx context.Context, operator uuid.UUID, target decimal.Decimal, deadlineOffset time.Duration) (*domain.Pool, error) {
	if !target.IsPositive() || deadlineOffset <= 0 {
		return nil, domain.ErrInvalidParameters
	}

	now := time.Now().UTC()
	pool := &domain.Pool{
		Operator:             operator,
		TargetAmount:         target,
		AmountRaised:         decimal.Zero,
		Deadline:             now.Add(deadlineOffset),
		Status:               domain.StatusOpen,
		LastOperatorActivity: now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.poolRepo.Create(ctx, pool); err != nil {
		return nil, fmt.Errorf("pool_service.Create: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastPoolCreated(pool)
	}
	return pool, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// Get returns the pool with the given identifier.
func (s *PoolService) Get(ctx context.Context, poolID int64) (*domain.Pool, error) {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("pool_service.Get: %w", err)
	}
	return pool, nil
}

// Exists reports whether the pool is registered.
func (s *PoolService) Exists(ctx context.Context, poolID int64) (bool, error) {
	found, err := s.poolRepo.Exists(ctx, poolID)
	if err != nil {
		return false, fmt.Errorf("pool_service.Exists: %w", err)
	}
	return found, nil
}

// List returns paginated pools, optionally filtered by status.
func (s *PoolService) List(ctx context.Context, limit, offset int, status string) ([]*domain.Pool, int, error) {
	if status != "" && !domain.PoolStatus(status).IsValid() {
		return nil, 0, domain.ErrInvalidParameters
	}
	pools, total, err := s.poolRepo.List(ctx, limit, offset, status)
	if err != nil {
		return nil, 0, fmt.Errorf("pool_service.List: %w", err)
	}
	return pools, total, nil
}

// Contributions returns a pool's contribution records in arrival order.
func (s *PoolService) Contributions(ctx context.Context, poolID int64) ([]*domain.Contribution, error) {
	if _, err := s.poolRepo.GetByID(ctx, poolID); err != nil {
		return nil, fmt.Errorf("pool_service.Contributions: %w", err)
	}
	cs, err := s.contribRepo.ListByPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("pool_service.Contributions: %w", err)
	}
	return cs, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Close
// ──────────────────────────────────────────────────────────────────────────────

// Close is the operator's manual open→closed transition, allowed only after
// the deadline. Pools that hit their target exactly close automatically
// inside Contribute instead.
func (s *PoolService) Close(ctx context.Context, poolID int64, caller uuid.UUID) (*domain.Pool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pool_service.Close: begin tx: %w", err)
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
	if !pool.IsOpen() {
		err = domain.ErrPoolNotOpen
		return nil, err
	}
	if !pool.DeadlinePassed(time.Now().UTC()) {
		err = domain.ErrDeadlineNotReached
		return nil, err
	}

	if err = s.poolRepo.Close(ctx, tx, poolID, true); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("pool_service.Close: commit: %w", err)
	}

	pool.Status = domain.StatusClosed
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPoolStatusChanged(pool)
	}
	return pool, nil
}
