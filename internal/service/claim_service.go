package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/repository"
	"github.com/shopspring/decimal"
)

// ClaimService pays out a contributor's settled entitlement. A claim is
// one-shot: the record is flagged claimed and the wallet credited in the same
// transaction, so a failed transfer rolls the flag back and the claim can be
// retried, while a second concurrent claim loses the row-level race and gets
// ErrAlreadyClaimed.
type ClaimService struct {
	db          *sqlx.DB
	poolRepo    *repository.PoolRepository
	contribRepo *repository.ContributionRepository
	walletRepo  *repository.WalletRepository
	broadcaster Broadcaster // injected after the WS hub is built
	logger      *slog.Logger
}

// NewClaimService creates a ClaimService.
func NewClaimService(
	db *sqlx.DB,
	poolRepo *repository.PoolRepository,
	contribRepo *repository.ContributionRepository,
	walletRepo *repository.WalletRepository,
	logger *slog.Logger,
) *ClaimService {
	return &ClaimService{
		db:          db,
		poolRepo:    poolRepo,
		contribRepo: contribRepo,
		walletRepo:  walletRepo,
		logger:      logger,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *ClaimService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ClaimResult is what a successful claim paid and under which regime.
type ClaimResult struct {
	PoolID      int64           `json:"pool_id"`
	Contributor uuid.UUID       `json:"contributor"`
	Amount      decimal.Decimal `json:"amount"`
	Type        domain.TxType   `json:"type"`
	ClaimedAt   time.Time       `json:"claimed_at"`
}

// Claim pays out the caller's entitlement from a complete or stuck pool.
//
// The amount depends on how the pool ended: after a normal distribution it is
// the computed payout, principal plus the share of signed profit. A pool
// marked stuck before any distribution ran has no payouts on record, so the
// contributor recovers their raw principal instead.
func (s *ClaimService) Claim(ctx context.Context, poolID int64, contributor uuid.UUID) (*ClaimResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim_service.Claim: begin tx: %w", err)
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
	if !pool.IsClaimable() {
		err = domain.ErrPoolNotClaimable
		return nil, err
	}

	contribution, err := s.contribRepo.GetByPoolAndContributorTx(ctx, tx, poolID, contributor)
	if err != nil {
		return nil, err
	}
	if contribution == nil {
		err = domain.ErrNothingToClaim
		return nil, err
	}

	payout := contribution.PayoutAmount
	txType := domain.TxPayout
	if pool.IsStuck() && !pool.Distributed() {
		// Recovery path: nothing was ever distributed, return the principal.
		payout = contribution.Amount
		txType = domain.TxRecovery
	}
	if !payout.IsPositive() {
		err = domain.ErrNothingToClaim
		return nil, err
	}

	// Flag first. The guarded UPDATE is the single-winner gate; if the wallet
	// credit below fails, the rollback restores the flag and the claim stays
	// retryable.
	if err = s.contribRepo.MarkClaimed(ctx, tx, poolID, contributor); err != nil {
		return nil, err
	}

	// Wallet creation rides the claim transaction so a failed transfer
	// leaves no stray wallet row behind.
	if err = s.walletRepo.EnsureWalletTx(ctx, tx, contributor); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		return nil, err
	}
	if err = s.walletRepo.Credit(ctx, tx, contributor, payout); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		return nil, err
	}

	now := time.Now().UTC()
	wallet, err := s.walletRepo.GetByOwnerTx(ctx, tx, contributor)
	if err != nil {
		return nil, err
	}
	poolIDCopy := poolID
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          txType,
		Amount:        payout,
		BalanceBefore: wallet.Balance.Sub(payout),
		BalanceAfter:  wallet.Balance,
		PoolID:        &poolIDCopy,
		Description:   fmt.Sprintf("Claim from pool %d", poolID),
		CreatedAt:     now,
	}
	if err = s.walletRepo.LogTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim_service.Claim: commit: %w", err)
	}

	s.logger.Info("claim processed",
		"pool_id", poolID,
		"contributor", contributor,
		"amount", payout.StringFixed(domain.PayoutScale),
		"type", string(txType),
	)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastClaimProcessed(poolID, contributor, payout, txType)
	}

	return &ClaimResult{
		PoolID:      poolID,
		Contributor: contributor,
		Amount:      payout,
		Type:        txType,
		ClaimedAt:   now,
	}, nil
}
