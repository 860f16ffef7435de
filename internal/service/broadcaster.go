package service

import (
	"github.com/google/uuid"
	"github.com/openfund/pooling/internal/domain"
	"github.com/shopspring/decimal"
)

// Broadcaster is the minimal notification interface the services need from
// the websocket hub. Notifications are fire-and-forget observer events, not
// part of the transactional contract — they are emitted after commit and a
// lost message is never an error. Implemented by ws.Hub.
type Broadcaster interface {
	BroadcastPoolCreated(p *domain.Pool)
	BroadcastPoolStatusChanged(p *domain.Pool)
	BroadcastContributionAccepted(p *domain.Pool, c *domain.Contribution)
	BroadcastReturnDistributed(p *domain.Pool, contributors int)
	BroadcastClaimProcessed(poolID int64, contributor uuid.UUID, amount decimal.Decimal, txType domain.TxType)
}
