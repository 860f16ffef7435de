// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/openfund/pooling/internal/domain"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypePoolCreated          MsgType = "pool_created"
	MsgTypeContributionAccepted MsgType = "contribution_accepted"
	MsgTypePoolStatusChanged    MsgType = "pool_status_changed"
	MsgTypeReturnDistributed    MsgType = "return_distributed"
	MsgTypeClaimProcessed       MsgType = "claim_processed"
	MsgTypePoolTicker           MsgType = "pool_ticker"
	MsgTypeError                MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// PoolCreatedMessage — broadcast when an operator opens a new pool.
// ──────────────────────────────────────────────────────────────────────────────

// PoolCreatedMessage carries the identity and terms of a freshly opened pool.
type PoolCreatedMessage struct {
	Type         MsgType         `json:"type"`
	PoolID       int64           `json:"pool_id"`
	Operator     uuid.UUID       `json:"operator"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Deadline     time.Time       `json:"deadline"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ContributionAcceptedMessage — broadcast after a contribution commits.
// ──────────────────────────────────────────────────────────────────────────────

// ContributionAcceptedMessage notifies all clients that a pool's fill changed.
type ContributionAcceptedMessage struct {
	Type         MsgType         `json:"type"`
	PoolID       int64           `json:"pool_id"`
	Contributor  uuid.UUID       `json:"contributor"`
	Amount       decimal.Decimal `json:"amount"` // contributor's running total
	AmountRaised decimal.Decimal `json:"amount_raised"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	FillPercent  decimal.Decimal `json:"fill_percent"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// PoolStatusChangedMessage — broadcast on every lifecycle transition.
// ──────────────────────────────────────────────────────────────────────────────

// PoolStatusChangedMessage tells clients a pool moved between lifecycle states.
type PoolStatusChangedMessage struct {
	Type      MsgType           `json:"type"`
	PoolID    int64             `json:"pool_id"`
	Status    domain.PoolStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ReturnDistributedMessage — broadcast when an operator settles a pool.
// ──────────────────────────────────────────────────────────────────────────────

// ReturnDistributedMessage tells clients the reported return and derived
// profit; holders of a stake can now claim.
type ReturnDistributedMessage struct {
	Type         MsgType         `json:"type"`
	PoolID       int64           `json:"pool_id"`
	AmountRaised decimal.Decimal `json:"amount_raised"`
	TotalReturn  decimal.Decimal `json:"total_return"`
	TotalProfit  decimal.Decimal `json:"total_profit"` // signed; negative on loss
	Contributors int             `json:"contributors"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ClaimProcessedMessage — broadcast after a payout or recovery claim.
// ──────────────────────────────────────────────────────────────────────────────

// ClaimProcessedMessage records a completed claim. Type distinguishes a
// normal payout from a principal recovery out of a stuck pool.
type ClaimProcessedMessage struct {
	Type        MsgType         `json:"type"`
	PoolID      int64           `json:"pool_id"`
	Contributor uuid.UUID       `json:"contributor"`
	Amount      decimal.Decimal `json:"amount"`
	ClaimType   domain.TxType   `json:"claim_type"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// PoolTickerMessage — periodic snapshot of every open pool.
// ──────────────────────────────────────────────────────────────────────────────

// PoolTickerMessage carries fill state and countdown for the open pools.
type PoolTickerMessage struct {
	Type      MsgType               `json:"type"`
	Pools     []*domain.PoolSummary `json:"pools"`
	Timestamp time.Time             `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
