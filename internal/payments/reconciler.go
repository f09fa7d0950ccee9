package payments

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/imrishuroy/abc-church-payments/internal/transactions"
	"github.com/rs/zerolog"
)

// Outcome reports what a callback did. Every outcome is acknowledged to the
// provider; only the store failing is surfaced as an error.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeUnknown   Outcome = "unknown_transaction"
	OutcomeMalformed Outcome = "malformed"
)

// Reconciler applies asynchronous STK callbacks to PENDING transactions.
type Reconciler struct {
	secret    string
	store     transactions.Store
	publisher EventPublisher
	observer  Observer
	nowFunc   func() time.Time
}

// NewReconciler wires a Reconciler. publisher and observer may be nil.
func NewReconciler(secret string, store transactions.Store, publisher EventPublisher, observer Observer) *Reconciler {
	return &Reconciler{
		secret:    secret,
		store:     store,
		publisher: publisher,
		observer:  observer,
		nowFunc:   time.Now,
	}
}

// HandleCallback authenticates the callback by its query secret and resolves
// the matching PENDING transaction. The first callback for a checkout id wins.
func (r *Reconciler) HandleCallback(ctx context.Context, raw []byte, querySecret string) (Outcome, error) {
	log := zerolog.Ctx(ctx)

	if r.secret == "" || subtle.ConstantTimeCompare([]byte(querySecret), []byte(r.secret)) != 1 {
		return "", ErrForbidden
	}

	cb, code, err := ParseCallback(raw)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring malformed mpesa callback")
		return OutcomeMalformed, nil
	}
	clog := log.With().Str("checkout_request_id", cb.CheckoutRequestID).Int("result_code", code).Logger()

	current, err := r.store.FindByCheckoutID(ctx, cb.CheckoutRequestID)
	if err != nil {
		return "", fmt.Errorf("find transaction %s: %w", cb.CheckoutRequestID, err)
	}
	if current == nil {
		clog.Warn().Msg("callback for unknown transaction acknowledged")
		return OutcomeUnknown, nil
	}
	if current.IsFinal() {
		clog.Info().Str("status", current.Status).Msg("duplicate callback ignored")
		return OutcomeDuplicate, nil
	}

	next := resolve(*current, cb, code)
	if err := r.store.Update(ctx, next); err != nil {
		if errors.Is(err, transactions.ErrStatusMismatch) {
			clog.Info().Msg("callback lost race to a concurrent delivery")
			return OutcomeDuplicate, nil
		}
		return "", fmt.Errorf("update transaction %s: %w", cb.CheckoutRequestID, err)
	}

	if r.observer != nil {
		r.observer.Resolved(ctx, next.Status, next.Amount)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishPaymentEvent(ctx, newPaymentEvent(next, r.nowFunc().UTC())); err != nil {
			clog.Error().Err(err).Msg("failed to publish payment event")
		}
	}

	clog.Info().Str("status", next.Status).Str("result_desc", next.ResultDesc).Msg("transaction resolved")
	if next.Status == transactions.StatusCompleted {
		return OutcomeCompleted, nil
	}
	return OutcomeFailed, nil
}

// resolve builds the final record. Missing metadata items leave their fields
// unset; the requested amount stands in when no settled amount is reported.
func resolve(current transactions.PaymentIntent, cb *StkCallback, code int) transactions.PaymentIntent {
	next := current
	next.ResultCode = &code
	next.ResultDesc = cb.ResultDesc

	if code != 0 {
		next.Status = transactions.StatusFailed
		next.MpesaReceiptNumber = ""
		next.TransactionDate = ""
		return next
	}

	next.Status = transactions.StatusCompleted
	if amount, ok := cb.metaFloat("Amount"); ok && amount > 0 {
		next.Amount = amount
	}
	next.MpesaReceiptNumber = cb.metaString("MpesaReceiptNumber")
	next.TransactionDate = cb.metaString("TransactionDate")
	return next
}
