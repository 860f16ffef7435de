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

// ContributionService is the contribution ledger. All money movement for a
// contribution — wallet deduction, pool total, record upsert, audit log, and
// the exact-target auto-close — happens inside a single PostgreSQL
// transaction holding the pool row lock.
type ContributionService struct {
	db          *sqlx.DB
	poolRepo    *repository.PoolRepository
	contribRepo *repository.ContributionRepository
	walletRepo  *repository.WalletRepository
	cfg         *config.Config
	broadcaster Broadcaster // injected after the WS hub is built
}

// NewContributionService creates a ContributionService.
func NewContributionService(
	db *sqlx.DB,
	poolRepo *repository.PoolRepository,
	contribRepo *repository.ContributionRepository,
	walletRepo *repository.WalletRepository,
	cfg *config.Config,
) *ContributionService {
	return &ContributionService{
		db:          db,
		poolRepo:    poolRepo,
		contribRepo: contribRepo,
		walletRepo:  walletRepo,
		cfg:         cfg,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *ContributionService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// Contribute
// ──────────────────────────────────────────────────────────────────────────────

// Contribute validates the request, atomically deducts the contributor's
// wallet, grows the pool total, and upserts the contribution record. A repeat
// contribution from the same principal increases the existing record rather
// than creating a second one.
//
// The stored ownership share is a snapshot of amount / raised-after-this-
// contribution, taken only for the record being touched — already-locked
// shares of other contributors are never recalculated. The distribution
// engine later computes the authoritative share from the frozen final total.
//
// When the contribution lands exactly on the target the pool auto-closes in
// the same transaction, so no later contribution can ever slip in.
func (s *ContributionService) Contribute(ctx context.Context, req domain.ContributeRequest) (*domain.Contribution, error) {
	// ── 1. Begin transaction ─────────────────────────────────────────────────
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("contribution_service.Contribute: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// ── 2. Lock the pool row — serializes all mutations on this pool ─────────
	pool, err := s.poolRepo.GetByIDForUpdate(ctx, tx, req.PoolID)
	if err != nil {
		return nil, err
	}

	// ── 3. Admissibility checks against the locked state ─────────────────────
	// Pool existence and state are checked before the amount, so a bad amount
	// on a missing or closed pool still reports the pool error.
	now := time.Now().UTC()
	minAmount := decimal.NewFromFloat(s.cfg.Ledger.MinContribution)
	if err = pool.CanAccept(req.Amount, minAmount, now); err != nil {
		return nil, err
	}

	// ── 4. Deduct the contributor's wallet (FOR UPDATE inside) ───────────────
	if err = s.walletRepo.Deduct(ctx, tx, req.Contributor, req.Amount); err != nil {
		return nil, err
	}

	// ── 5. Upsert the contribution record with its snapshot share ────────────
	existing, err := s.contribRepo.GetByPoolAndContributorTx(ctx, tx, req.PoolID, req.Contributor)
	if err != nil {
		return nil, err
	}

	combined := req.Amount
	contributedAt := now
	recordID := uuid.New()
	if existing != nil {
		combined = existing.Amount.Add(req.Amount)
		contributedAt = existing.ContributedAt
		recordID = existing.ID
	}
	raisedAfter := pool.AmountRaised.Add(req.Amount)

	contribution := &domain.Contribution{
		ID:             recordID,
		PoolID:         req.PoolID,
		Contributor:    req.Contributor,
		Amount:         combined,
		OwnershipShare: combined.Div(raisedAfter),
		PayoutAmount:   decimal.Zero,
		HasClaimed:     false,
		ContributedAt:  contributedAt,
		UpdatedAt:      now,
	}
	if err = s.contribRepo.Upsert(ctx, tx, contribution); err != nil {
		return nil, err
	}

	// ── 6. Grow the pool total ───────────────────────────────────────────────
	if err = s.poolRepo.AddToRaised(ctx, tx, req.PoolID, req.Amount); err != nil {
		return nil, err
	}

	// ── 7. Auto-close on exact target hit (atomic with this contribution) ────
	autoClosed := raisedAfter.Equal(pool.TargetAmount)
	if autoClosed {
		if err = s.poolRepo.Close(ctx, tx, req.PoolID, false); err != nil {
			return nil, err
		}
	}

	// ── 8. Audit log ─────────────────────────────────────────────────────────
	wallet, err := s.walletRepo.GetByOwnerTx(ctx, tx, req.Contributor)
	if err != nil {
		return nil, err
	}
	poolIDCopy := req.PoolID
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          domain.TxContribution,
		Amount:        req.Amount,
		BalanceBefore: wallet.Balance.Add(req.Amount),
		BalanceAfter:  wallet.Balance,
		PoolID:        &poolIDCopy,
		Description:   fmt.Sprintf("Contribution to pool %d", req.PoolID),
		CreatedAt:     now,
	}
	if err = s.walletRepo.LogTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	// ── 9. Commit ────────────────────────────────────────────────────────────
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("contribution_service.Contribute: commit: %w", err)
	}

	// ── 10. Async: notify observers ───────────────────────────────────────────
	pool.AmountRaised = raisedAfter
	if autoClosed {
		pool.Status = domain.StatusClosed
	}
	go s.postContributeAsync(pool, contribution, autoClosed)

	return contribution, nil
}

// postContributeAsync pushes observer notifications after a committed
// contribution. Runs in a goroutine; a dropped message is never an error.
func (s *ContributionService) postContributeAsync(pool *domain.Pool, c *domain.Contribution, autoClosed bool) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastContributionAccepted(pool, c)
	if autoClosed {
		s.broadcaster.BroadcastPoolStatusChanged(pool)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetMyContributions returns a principal's contributions across pools, paginated.
func (s *ContributionService) GetMyContributions(ctx context.Context, contributor uuid.UUID, limit, offset int) ([]*domain.Contribution, error) {
	cs, err := s.contribRepo.ListByContributor(ctx, contributor, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("contribution_service.GetMyContributions: %w", err)
	}
	return cs, nil
}

// GetContribution returns one contributor's record in a pool.
func (s *ContributionService) GetContribution(ctx context.Context, poolID int64, contributor uuid.UUID) (*domain.Contribution, error) {
	c, err := s.contribRepo.GetByPoolAndContributor(ctx, poolID, contributor)
	if err != nil {
		return nil, fmt.Errorf("contribution_service.GetContribution: %w", err)
	}
	return c, nil
}
