package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openfund/pooling/internal/domain"
	"github.com/shopspring/decimal"
)

// PoolRepository handles all database operations for Pools. It is the ground
// truth for pool existence and owns the sequential identifier assignment
// (BIGSERIAL).
type PoolRepository struct {
	db *sqlx.DB
}

// NewPoolRepository creates a new PoolRepository.
func NewPoolRepository(db *sqlx.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// Create inserts a new pool row and fills in the assigned sequential ID.
func (r *PoolRepository) Create(ctx context.Context, p *domain.Pool) error {
	query := `
		INSERT INTO pools
			(operator, target_amount, amount_raised, deadline, status,
			 last_operator_activity, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.db.GetContext(ctx, &p.ID, query,
		p.Operator, p.TargetAmount, p.AmountRaised, p.Deadline, p.Status,
		p.LastOperatorActivity, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pool_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a pool by its identifier.
func (r *PoolRepository) GetByID(ctx context.Context, id int64) (*domain.Pool, error) {
	var p domain.Pool
	err := r.db.GetContext(ctx, &p, `SELECT * FROM pools WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPoolNotFound
		}
		return nil, fmt.Errorf("pool_repo.GetByID: %w", err)
	}
	return &p, nil
}

// Exists reports whether a pool with the given identifier is registered.
func (r *PoolRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var found bool
	err := r.db.GetContext(ctx, &found,
		`SELECT EXISTS (SELECT 1 FROM pools WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("pool_repo.Exists: %w", err)
	}
	return found, nil
}

// GetByIDForUpdate fetches a pool inside tx and locks its row. Every
// state-mutating operation acquires this lock first, so mutations on one pool
// are fully serialized while other pools proceed concurrently.
func (r *PoolRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Pool, error) {
	var p domain.Pool
	err := tx.GetContext(ctx, &p, `SELECT * FROM pools WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPoolNotFound
		}
		return nil, fmt.Errorf("pool_repo.GetByIDForUpdate: %w", err)
	}
	return &p, nil
}

// AddToRaised increments amount_raised inside tx. The caller must already
// hold the pool row lock and have checked the target cap.
func (r *PoolRepository) AddToRaised(ctx context.Context, tx *sqlx.Tx, id int64, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE pools SET amount_raised = amount_raised + $1, updated_at = now() WHERE id = $2`,
		amount, id)
	if err != nil {
		return fmt.Errorf("pool_repo.AddToRaised: %w", err)
	}
	return nil
}

// Close transitions an open pool to closed inside tx. When operatorAction is
// true (manual close by the operator) last_operator_activity is refreshed;
// the contribution-triggered auto-close leaves it untouched.
func (r *PoolRepository) Close(ctx context.Context, tx *sqlx.Tx, id int64, operatorAction bool) error {
	query := `
		UPDATE pools
		SET status     = 'closed',
		    closed_at  = now(),
		    updated_at = now()
		WHERE id = $1 AND status = 'open'`
	if operatorAction {
		query = `
		UPDATE pools
		SET status                 = 'closed',
		    closed_at              = now(),
		    last_operator_activity = now(),
		    updated_at             = now()
		WHERE id = $1 AND status = 'open'`
	}
	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("pool_repo.Close: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPoolNotOpen
	}
	return nil
}

// MarkComplete records the reported return and signed profit and moves a
// closed pool to complete, all inside tx. The status guard makes the
// transition strictly forward and single-shot.
func (r *PoolRepository) MarkComplete(ctx context.Context, tx *sqlx.Tx, id int64, totalReturn, totalProfit decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE pools
		SET status                 = 'complete',
		    total_return           = $1,
		    total_profit           = $2,
		    completed_at           = now(),
		    last_operator_activity = now(),
		    updated_at             = now()
		WHERE id = $3 AND status = 'closed'`,
		totalReturn, totalProfit, id)
	if err != nil {
		return fmt.Errorf("pool_repo.MarkComplete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPoolNotClosed
	}
	return nil
}

// MarkStuck flips a closed or complete pool into the stuck state inside tx.
func (r *PoolRepository) MarkStuck(ctx context.Context, tx *sqlx.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE pools
		SET status = 'stuck', updated_at = now()
		WHERE id = $1 AND status IN ('closed', 'complete')`,
		id)
	if err != nil {
		return fmt.Errorf("pool_repo.MarkStuck: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPoolNotEligible
	}
	return nil
}

// List returns a paginated slice of pools filtered by optional status.
// status="" returns all statuses. Returns (pools, totalCount, error).
func (r *PoolRepository) List(ctx context.Context, limit, offset int, status string) ([]*domain.Pool, int, error) {
	var pools []*domain.Pool
	var total int

	if status != "" {
		if err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM pools WHERE status = $1`, status); err != nil {
			return nil, 0, fmt.Errorf("pool_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &pools,
			`SELECT * FROM pools WHERE status = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
			status, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("pool_repo.List select: %w", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM pools`); err != nil {
			return nil, 0, fmt.Errorf("pool_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &pools,
			`SELECT * FROM pools ORDER BY id DESC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, fmt.Errorf("pool_repo.List select: %w", err)
		}
	}
	return pools, total, nil
}

// ListByOperator returns the pools created by one operator, newest first.
func (r *PoolRepository) ListByOperator(ctx context.Context, operator uuid.UUID, limit, offset int) ([]*domain.Pool, error) {
	var pools []*domain.Pool
	err := r.db.SelectContext(ctx, &pools,
		`SELECT * FROM pools WHERE operator = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		operator, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pool_repo.ListByOperator: %w", err)
	}
	return pools, nil
}

// ListOpen returns every pool currently accepting contributions.
func (r *PoolRepository) ListOpen(ctx context.Context) ([]*domain.Pool, error) {
	var pools []*domain.Pool
	err := r.db.SelectContext(ctx, &pools,
		`SELECT * FROM pools WHERE status = 'open' ORDER BY deadline ASC`)
	if err != nil {
		return nil, fmt.Errorf("pool_repo.ListOpen: %w", err)
	}
	return pools, nil
}

// ListRecoverable returns the pools the inactivity monitor should flip to
// stuck: closed or complete, with no operator action since cutoff.
func (r *PoolRepository) ListRecoverable(ctx context.Context, cutoff time.Time) ([]*domain.Pool, error) {
	var pools []*domain.Pool
	err := r.db.SelectContext(ctx, &pools, `
		SELECT * FROM pools
		WHERE status IN ('closed', 'complete')
		  AND last_operator_activity < $1
		ORDER BY last_operator_activity ASC`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("pool_repo.ListRecoverable: %w", err)
	}
	return pools, nil
}
