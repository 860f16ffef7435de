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

// WalletRepository is the value-transfer primitive. Every movement happens
// inside a caller-supplied transaction so a failed transfer rolls the whole
// operation back, and every movement is mirrored into wallet_transactions.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetByOwner fetches the wallet belonging to a principal.
func (r *WalletRepository) GetByOwner(ctx context.Context, owner uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE owner = $1`, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet_repo.GetByOwner: %w", err)
	}
	return &w, nil
}

// GetByOwnerTx fetches the wallet inside tx without locking it.
func (r *WalletRepository) GetByOwnerTx(ctx context.Context, tx *sqlx.Tx, owner uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := tx.GetContext(ctx, &w, `SELECT * FROM wallets WHERE owner = $1`, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet_repo.GetByOwnerTx: %w", err)
	}
	return &w, nil
}

// EnsureWallet creates a zero-balance wallet for owner if none exists and
// returns it. Used when a principal first touches the ledger.
func (r *WalletRepository) EnsureWallet(ctx context.Context, owner uuid.UUID) (*domain.Wallet, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, owner, balance, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (owner) DO NOTHING`,
		uuid.New(), owner, now)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.EnsureWallet: %w", err)
	}
	return r.GetByOwner(ctx, owner)
}

// EnsureWalletTx is the transactional variant of EnsureWallet. The insert
// runs inside tx, so a rollback of the surrounding operation discards the
// wallet row along with everything else.
func (r *WalletRepository) EnsureWalletTx(ctx context.Context, tx *sqlx.Tx, owner uuid.UUID) error {
	now := time.Now().UTC()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, owner, balance, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (owner) DO NOTHING`,
		uuid.New(), owner, now)
	if err != nil {
		return fmt.Errorf("wallet_repo.EnsureWalletTx: %w", err)
	}
	return nil
}

// Deduct subtracts amount from a principal's balance inside tx. The row is
// locked FOR UPDATE so the balance check and the update are atomic; returns
// ErrInsufficientBalance when the balance would go negative.
func (r *WalletRepository) Deduct(ctx context.Context, tx *sqlx.Tx, owner uuid.UUID, amount decimal.Decimal) error {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance,
		`SELECT balance FROM wallets WHERE owner = $1 FOR UPDATE`, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrWalletNotFound
		}
		return fmt.Errorf("wallet_repo.Deduct lock: %w", err)
	}

	if balance.LessThan(amount) {
		return domain.ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance - $1, updated_at = now() WHERE owner = $2`,
		amount, owner)
	if err != nil {
		return fmt.Errorf("wallet_repo.Deduct update: %w", err)
	}
	return nil
}

// Credit adds amount to a principal's balance inside tx.
// Returns ErrWalletNotFound when the principal has no wallet.
func (r *WalletRepository) Credit(ctx context.Context, tx *sqlx.Tx, owner uuid.UUID, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE owner = $2`,
		amount, owner)
	if err != nil {
		return fmt.Errorf("wallet_repo.Credit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

// LogTransaction appends an audit record inside tx.
func (r *WalletRepository) LogTransaction(ctx context.Context, tx *sqlx.Tx, txn *domain.Transaction) error {
	query := `
		INSERT INTO wallet_transactions
			(id, wallet_id, type, amount, balance_before, balance_after, pool_id, description, created_at)
		VALUES
			(:id, :wallet_id, :type, :amount, :balance_before, :balance_after, :pool_id, :description, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, txn); err != nil {
		return fmt.Errorf("wallet_repo.LogTransaction: %w", err)
	}
	return nil
}

// Deposit credits external funds to a principal's wallet in its own
// transaction, creating the wallet on first use, and logs the movement.
func (r *WalletRepository) Deposit(ctx context.Context, owner uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	wallet, err := r.EnsureWallet(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.Deposit: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.Deposit: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.Credit(ctx, tx, owner, amount); err != nil {
		return nil, fmt.Errorf("wallet_repo.Deposit credit: %w", err)
	}

	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          domain.TxDeposit,
		Amount:        amount,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance.Add(amount),
		Description:   "Wallet deposit",
		CreatedAt:     time.Now().UTC(),
	}
	if err = r.LogTransaction(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("wallet_repo.Deposit log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("wallet_repo.Deposit commit: %w", err)
	}
	return r.GetByOwner(ctx, owner)
}

// GetTransactions returns paginated transaction history for a principal.
func (r *WalletRepository) GetTransactions(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	err := r.db.SelectContext(ctx, &txns, `
		SELECT wt.*
		FROM wallet_transactions wt
		JOIN wallets w ON w.id = wt.wallet_id
		WHERE w.owner = $1
		ORDER BY wt.created_at DESC
		LIMIT $2 OFFSET $3`,
		owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.GetTransactions: %w", err)
	}
	return txns, nil
}
