package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/openfund/pooling/internal/config"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/repository"
)

// RecoveryService is the safety valve for operator abandonment. Any caller
// may flag a pool whose operator has gone silent past the inactivity window;
// the pool moves to stuck and its contributors become claim-eligible. A
// background sweep performs the same check across all candidate pools.
type RecoveryService struct {
	db          *sqlx.DB
	poolRepo    *repository.PoolRepository
	cfg         *config.Config
	broadcaster Broadcaster // injected after the WS hub is built
	logger      *slog.Logger
}

// NewRecoveryService creates a RecoveryService.
func NewRecoveryService(db *sqlx.DB, poolRepo *repository.PoolRepository, cfg *config.Config, logger *slog.Logger) *RecoveryService {
	return &RecoveryService{
		db:       db,
		poolRepo: poolRepo,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *RecoveryService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// CheckInactivity moves one closed or complete pool to stuck when the
// operator has been inactive for the full inactivity window. Permissionless:
// the caller does not have to hold a stake in the pool.
func (s *RecoveryService) CheckInactivity(ctx context.Context, poolID int64) (*domain.Pool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("recovery_service.CheckInactivity: begin tx: %w", err)
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
	if !pool.IsClosed() && !pool.IsComplete() {
		err = domain.ErrPoolNotEligible
		return nil, err
	}

	now := time.Now().UTC()
	if !pool.RecoveryEligible(now, s.cfg.Ledger.InactivityPeriod) {
		err = domain.ErrOperatorStillActive
		return nil, err
	}

	if err = s.poolRepo.MarkStuck(ctx, tx, poolID); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("recovery_service.CheckInactivity: commit: %w", err)
	}

	pool.Status = domain.StatusStuck

	s.logger.Warn("pool marked stuck",
		"pool_id", poolID,
		"operator", pool.Operator,
		"last_activity", pool.LastOperatorActivity,
	)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastPoolStatusChanged(pool)
	}
	return pool, nil
}

// SweepInactive runs the inactivity check across every candidate pool. A
// failure on one pool is logged and does not stop the sweep. Returns the
// number of pools flagged.
func (s *RecoveryService) SweepInactive(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-s.cfg.Ledger.InactivityPeriod)
	pools, err := s.poolRepo.ListRecoverable(ctx, cutoff)
	if err != nil {
		s.logger.Error("recovery sweep: list candidates", "error", err)
		return 0
	}

	flagged := 0
	for _, p := range pools {
		if _, err := s.CheckInactivity(ctx, p.ID); err != nil {
			// Lost the race with a claim or a late operator action; skip.
			if domain.IsConflict(err) {
				continue
			}
			s.logger.Error("recovery sweep: pool check", "pool_id", p.ID, "error", err)
			continue
		}
		flagged++
	}
	if flagged > 0 {
		s.logger.Info("recovery sweep flagged pools", "count", flagged)
	}
	return flagged
}
