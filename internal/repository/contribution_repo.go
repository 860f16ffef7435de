package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openfund/pooling/internal/domain"
	"github.com/shopspring/decimal"
)

// ContributionRepository handles all database operations for Contributions.
// The table enforces at most one row per (pool, contributor); the ordered
// per-pool listing is the canonical iteration view for distribution.
type ContributionRepository struct {
	db *sqlx.DB
}

// NewContributionRepository creates a new ContributionRepository.
func NewContributionRepository(db *sqlx.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Upsert inserts or replaces the (pool, contributor) record inside tx.
// Amount and OwnershipShare are absolute values — the service computes the
// combined amount and its snapshot share before calling. contributed_at of an
// existing record is preserved so the ordered view keeps first-arrival order.
func (r *ContributionRepository) Upsert(ctx context.Context, tx *sqlx.Tx, c *domain.Contribution) error {
	query := `
		INSERT INTO contributions
			(id, pool_id, contributor, amount, ownership_share, payout_amount,
			 has_claimed, contributed_at, updated_at)
		VALUES
			(:id, :pool_id, :contributor, :amount, :ownership_share, :payout_amount,
			 :has_claimed, :contributed_at, :updated_at)
		ON CONFLICT (pool_id, contributor) DO UPDATE
		SET amount          = EXCLUDED.amount,
		    ownership_share = EXCLUDED.ownership_share,
		    updated_at      = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("contribution_repo.Upsert: %w", err)
	}
	return nil
}

// GetByPoolAndContributor fetches one contributor's record in a pool.
func (r *ContributionRepository) GetByPoolAndContributor(ctx context.Context, poolID int64, contributor uuid.UUID) (*domain.Contribution, error) {
	var c domain.Contribution
	err := r.db.GetContext(ctx, &c,
		`SELECT * FROM contributions WHERE pool_id = $1 AND contributor = $2`,
		poolID, contributor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNothingToClaim
		}
		return nil, fmt.Errorf("contribution_repo.GetByPoolAndContributor: %w", err)
	}
	return &c, nil
}

// GetByPoolAndContributorTx is the transactional variant used while the pool
// row lock is held. Returns (nil, nil) when no record exists yet, so the
// ledger can distinguish first-time contributions from top-ups.
func (r *ContributionRepository) GetByPoolAndContributorTx(ctx context.Context, tx *sqlx.Tx, poolID int64, contributor uuid.UUID) (*domain.Contribution, error) {
	var c domain.Contribution
	err := tx.GetContext(ctx, &c,
		`SELECT * FROM contributions WHERE pool_id = $1 AND contributor = $2`,
		poolID, contributor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("contribution_repo.GetByPoolAndContributorTx: %w", err)
	}
	return &c, nil
}

// ListByPool returns a pool's contributions in arrival order.
func (r *ContributionRepository) ListByPool(ctx context.Context, poolID int64) ([]*domain.Contribution, error) {
	var cs []*domain.Contribution
	err := r.db.SelectContext(ctx, &cs,
		`SELECT * FROM contributions WHERE pool_id = $1 ORDER BY contributed_at ASC, id ASC`,
		poolID)
	if err != nil {
		return nil, fmt.Errorf("contribution_repo.ListByPool: %w", err)
	}
	return cs, nil
}

// ListByPoolTx is the transactional variant used by the distribution engine
// so it iterates the exact contribution set frozen under the pool row lock.
func (r *ContributionRepository) ListByPoolTx(ctx context.Context, tx *sqlx.Tx, poolID int64) ([]*domain.Contribution, error) {
	var cs []*domain.Contribution
	err := tx.SelectContext(ctx, &cs,
		`SELECT * FROM contributions WHERE pool_id = $1 ORDER BY contributed_at ASC, id ASC`,
		poolID)
	if err != nil {
		return nil, fmt.Errorf("contribution_repo.ListByPoolTx: %w", err)
	}
	return cs, nil
}

// ListByContributor returns one principal's contributions across all pools,
// newest first, paginated.
func (r *ContributionRepository) ListByContributor(ctx context.Context, contributor uuid.UUID, limit, offset int) ([]*domain.Contribution, error) {
	var cs []*domain.Contribution
	err := r.db.SelectContext(ctx, &cs,
		`SELECT * FROM contributions WHERE contributor = $1 ORDER BY contributed_at DESC LIMIT $2 OFFSET $3`,
		contributor, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("contribution_repo.ListByContributor: %w", err)
	}
	return cs, nil
}

// SetPayout writes the authoritative share and computed payout for one
// record inside the distribution transaction.
func (r *ContributionRepository) SetPayout(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, share, payout decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE contributions
		SET ownership_share = $1,
		    payout_amount   = $2,
		    updated_at      = now()
		WHERE id = $3`,
		share, payout, id)
	if err != nil {
		return fmt.Errorf("contribution_repo.SetPayout: %w", err)
	}
	return nil
}

// MarkClaimed flips has_claimed inside tx. Only rows that are still
// unclaimed match, so a concurrent double-claim loses here and surfaces as
// ErrAlreadyClaimed.
func (r *ContributionRepository) MarkClaimed(ctx context.Context, tx *sqlx.Tx, poolID int64, contributor uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE contributions
		SET has_claimed = TRUE,
		    claimed_at  = now(),
		    updated_at  = now()
		WHERE pool_id = $1 AND contributor = $2 AND has_claimed = FALSE`,
		poolID, contributor)
	if err != nil {
		return fmt.Errorf("contribution_repo.MarkClaimed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyClaimed
	}
	return nil
}

// CountByPool returns the number of contribution records in a pool.
func (r *ContributionRepository) CountByPool(ctx context.Context, poolID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM contributions WHERE pool_id = $1`, poolID)
	if err != nil {
		return 0, fmt.Errorf("contribution_repo.CountByPool: %w", err)
	}
	return n, nil
}
