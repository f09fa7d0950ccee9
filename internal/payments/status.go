package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imrishuroy/abc-church-payments/internal/transactions"
)

// Normalized result codes returned to polling clients.
const (
	CodeCompleted = "0"
	CodePending   = "PENDING"
	CodeFailed    = "1"
	CodeExpired   = "EXPIRED"
)

const (
	pendingDesc   = "The transaction is being processed"
	completedDesc = "The service request is processed successfully."
	expiredDesc   = "No result was received for this transaction in time"
)

// Status is the polled view of a transaction.
type Status struct {
	ResultCode string `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// StatusQuery reads transaction state from the store only; it never calls
// the provider.
type StatusQuery struct {
	store      transactions.Store
	pendingTTL time.Duration
	nowFunc    func() time.Time
}

// NewStatusQuery returns a StatusQuery. A positive pendingTTL makes PENDING
// records older than the TTL report CodeExpired; the record itself is untouched.
func NewStatusQuery(store transactions.Store, pendingTTL time.Duration) *StatusQuery {
	return &StatusQuery{
		store:      store,
		pendingTTL: pendingTTL,
		nowFunc:    time.Now,
	}
}

func (q *StatusQuery) Query(ctx context.Context, checkoutRequestID string) (*Status, error) {
	if strings.TrimSpace(checkoutRequestID) == "" {
		return nil, invalid("checkoutRequestId", "checkoutRequestId is required")
	}
	p, err := q.store.FindByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("find transaction %s: %w", checkoutRequestID, err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return q.normalize(*p), nil
}

func (q *StatusQuery) normalize(p transactions.PaymentIntent) *Status {
	switch p.Status {
	case transactions.StatusPending:
		if q.pendingTTL > 0 && q.nowFunc().Sub(p.CreatedAt) > q.pendingTTL {
			return &Status{ResultCode: CodeExpired, ResultDesc: expiredDesc}
		}
		return &Status{ResultCode: CodePending, ResultDesc: pendingDesc}
	case transactions.StatusCompleted:
		desc := p.ResultDesc
		if desc == "" {
			desc = completedDesc
		}
		return &Status{ResultCode: CodeCompleted, ResultDesc: desc}
	default:
		return &Status{ResultCode: CodeFailed, ResultDesc: p.ResultDesc}
	}
}
