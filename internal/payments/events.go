package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/imrishuroy/abc-church-payments/internal/transactions"
)

// Event types published after a callback resolves a transaction.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
)

// PaymentEvent is the payload sent from API -> SQS -> Worker.
type PaymentEvent struct {
	EventID            string    `json:"event_id"`
	Type               string    `json:"type"`
	CheckoutRequestID  string    `json:"checkout_request_id"`
	MerchantRequestID  string    `json:"merchant_request_id,omitempty"`
	HouseholdID        *string   `json:"household_id,omitempty"`
	PhoneNumber        string    `json:"phone_number"`
	Amount             float64   `json:"amount"`
	Status             string    `json:"status"`
	ResultCode         int       `json:"result_code"`
	ResultDesc         string    `json:"result_desc,omitempty"`
	MpesaReceiptNumber string    `json:"mpesa_receipt_number,omitempty"`
	TransactionDate    string    `json:"transaction_date,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// EventPublisher hands payment outcomes to downstream consumers.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, ev PaymentEvent) error
}

// Observer receives payment lifecycle signals for metrics.
type Observer interface {
	Initiated(ctx context.Context, amount float64)
	Resolved(ctx context.Context, status string, amount float64)
}

// Observers fans out to every observer in the list.
type Observers []Observer

func (o Observers) Initiated(ctx context.Context, amount float64) {
	for _, obs := range o {
		obs.Initiated(ctx, amount)
	}
}

func (o Observers) Resolved(ctx context.Context, status string, amount float64) {
	for _, obs := range o {
		obs.Resolved(ctx, status, amount)
	}
}

func newPaymentEvent(p transactions.PaymentIntent, now time.Time) PaymentEvent {
	ev := PaymentEvent{
		EventID:            uuid.NewString(),
		Type:               EventPaymentFailed,
		CheckoutRequestID:  p.CheckoutRequestID,
		MerchantRequestID:  p.MerchantRequestID,
		HouseholdID:        p.HouseholdID,
		PhoneNumber:        p.PhoneNumber,
		Amount:             p.Amount,
		Status:             p.Status,
		ResultDesc:         p.ResultDesc,
		MpesaReceiptNumber: p.MpesaReceiptNumber,
		TransactionDate:    p.TransactionDate,
		OccurredAt:         now,
	}
	if p.Status == transactions.StatusCompleted {
		ev.Type = EventPaymentCompleted
	}
	if p.ResultCode != nil {
		ev.ResultCode = *p.ResultCode
	}
	return ev
}
