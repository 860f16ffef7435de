package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Wallet — the value-transfer primitive behind contributions and claims
// ──────────────────────────────────────────────────────────────────────────────

// Wallet holds one principal's balance. The ledger never moves value outside
// a wallet transaction: contributions deduct, claims credit, and every
// movement leaves an audit row.
type Wallet struct {
	ID        uuid.UUID       `json:"id"         db:"id"`
	Owner     uuid.UUID       `json:"owner"      db:"owner"`
	Balance   decimal.Decimal `json:"balance"    db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// TxType classifies a wallet transaction.
type TxType string

const (
	TxDeposit      TxType = "deposit"      // external funds credited to the wallet
	TxContribution TxType = "contribution" // principal locked into a pool
	TxPayout       TxType = "payout"       // distributed payout claimed from a complete pool
	TxRecovery     TxType = "recovery"     // principal recovered from a stuck pool
)

// Transaction is one append-only audit record of a balance movement.
type Transaction struct {
	ID            uuid.UUID       `json:"id"             db:"id"`
	WalletID      uuid.UUID       `json:"wallet_id"      db:"wallet_id"`
	Type          TxType          `json:"type"           db:"type"`
	Amount        decimal.Decimal `json:"amount"         db:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before" db:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"  db:"balance_after"`
	PoolID        *int64          `json:"pool_id"        db:"pool_id"`
	Description   string          `json:"description"    db:"description"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
}
