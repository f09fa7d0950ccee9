package transactions

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateKey is returned by Create when the checkout request id is taken.
	ErrDuplicateKey = errors.New("transaction already exists")

	// ErrStatusMismatch is returned by Update when the stored record is no
	// longer PENDING (or does not exist). The first writer wins.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")

	// ErrInvalidTransition is returned for writes that would break the
	// PENDING -> COMPLETED|FAILED|CANCELLED lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store persists payment intents keyed by checkout request id.
type Store interface {
	// Create inserts a new PENDING intent.
	Create(ctx context.Context, intent PaymentIntent) error
	// FindByCheckoutID returns (nil, nil) when no record matches.
	FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*PaymentIntent, error)
	// Update moves a PENDING record to its final state in one conditional write.
	Update(ctx context.Context, intent PaymentIntent) error
	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]PaymentIntent, error)
}

func checkCreate(intent *PaymentIntent) error {
	if intent.CheckoutRequestID == "" {
		return fmt.Errorf("%w: missing checkout request id", ErrInvalidTransition)
	}
	if intent.Status == "" {
		intent.Status = StatusPending
	}
	if intent.Status != StatusPending {
		return fmt.Errorf("%w: new transactions must be %s, got %s", ErrInvalidTransition, StatusPending, intent.Status)
	}
	return nil
}

func checkUpdate(intent PaymentIntent) error {
	switch intent.Status {
	case StatusCompleted:
		return nil
	case StatusFailed, StatusCancelled:
		if intent.MpesaReceiptNumber != "" || intent.TransactionDate != "" {
			return fmt.Errorf("%w: receipt fields are only valid on %s", ErrInvalidTransition, StatusCompleted)
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot move %s to %q", ErrInvalidTransition, intent.CheckoutRequestID, intent.Status)
	}
}

func sortNewestFirst(items []PaymentIntent) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
