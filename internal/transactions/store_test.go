package transactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/abc-church-payments/internal/aws"
)

// The shared client bundle must be usable as this store's client.
var _ DynamoDBAPI = aws.DynamoDBAPI(nil)

func storeFactories() map[string]func() Store {
	return map[string]func() Store{
		"dynamo": func() Store { return NewDynamoStore(newMockDynamo(), "transactions") },
		"memory": func() Store { return NewMemoryStore() },
	}
}

func pendingIntent(id string) PaymentIntent {
	household := "hh-1"
	return PaymentIntent{
		CheckoutRequestID: id,
		MerchantRequestID: "mr-" + id,
		Amount:            500,
		PhoneNumber:       "254712345678",
		HouseholdID:       &household,
		Status:            StatusPending,
	}
}

func TestStore_CreateAndFind(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			ctx := context.Background()

			if err := s.Create(ctx, pendingIntent("ws_CO_1")); err != nil {
				t.Fatalf("Create error: %v", err)
			}

			got, err := s.FindByCheckoutID(ctx, "ws_CO_1")
			if err != nil {
				t.Fatalf("Find error: %v", err)
			}
			if got == nil {
				t.Fatalf("expected record, got nil")
			}
			if got.Status != StatusPending {
				t.Fatalf("expected PENDING, got %s", got.Status)
			}
			if got.HouseholdID == nil || *got.HouseholdID != "hh-1" {
				t.Fatalf("household id mismatch: %v", got.HouseholdID)
			}
			if got.ResultCode != nil || got.MpesaReceiptNumber != "" {
				t.Fatalf("result fields must be empty while pending: %+v", got)
			}
			if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
				t.Fatalf("timestamps not set")
			}

			missing, err := s.FindByCheckoutID(ctx, "nope")
			if err != nil {
				t.Fatalf("Find error: %v", err)
			}
			if missing != nil {
				t.Fatalf("expected nil for unknown id, got %+v", missing)
			}
		})
	}
}

func TestStore_CreateDuplicateRejected(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			ctx := context.Background()

			if err := s.Create(ctx, pendingIntent("dup")); err != nil {
				t.Fatalf("Create error: %v", err)
			}
			second := pendingIntent("dup")
			second.Amount = 1
			err := s.Create(ctx, second)
			if !errors.Is(err, ErrDuplicateKey) {
				t.Fatalf("expected ErrDuplicateKey, got %v", err)
			}

			got, _ := s.FindByCheckoutID(ctx, "dup")
			if got.Amount != 500 {
				t.Fatalf("existing record was overwritten: %+v", got)
			}
		})
	}
}

func TestStore_CreateRejectsNonPending(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			p := pendingIntent("x")
			p.Status = StatusCompleted
			if err := newStore().Create(context.Background(), p); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestStore_UpdateCompletesOnce(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			ctx := context.Background()
			if err := s.Create(ctx, pendingIntent("c1")); err != nil {
				t.Fatalf("Create error: %v", err)
			}

			zero := 0
			done := PaymentIntent{
				CheckoutRequestID:  "c1",
				Status:             StatusCompleted,
				ResultCode:         &zero,
				ResultDesc:         "The service request is processed successfully.",
				Amount:             450,
				MpesaReceiptNumber: "ABC123",
				TransactionDate:    "20240101120000",
			}
			if err := s.Update(ctx, done); err != nil {
				t.Fatalf("Update error: %v", err)
			}

			got, _ := s.FindByCheckoutID(ctx, "c1")
			if got.Status != StatusCompleted || got.Amount != 450 || got.MpesaReceiptNumber != "ABC123" || got.TransactionDate != "20240101120000" {
				t.Fatalf("unexpected record after update: %+v", got)
			}
			if got.ResultCode == nil || *got.ResultCode != 0 {
				t.Fatalf("result code not stored: %v", got.ResultCode)
			}

			one := 1
			again := PaymentIntent{CheckoutRequestID: "c1", Status: StatusFailed, ResultCode: &one, ResultDesc: "late"}
			if err := s.Update(ctx, again); !errors.Is(err, ErrStatusMismatch) {
				t.Fatalf("expected ErrStatusMismatch on second transition, got %v", err)
			}
			got, _ = s.FindByCheckoutID(ctx, "c1")
			if got.Status != StatusCompleted || got.ResultDesc == "late" {
				t.Fatalf("final record mutated: %+v", got)
			}
		})
	}
}

func TestStore_UpdateRules(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			ctx := context.Background()
			_ = s.Create(ctx, pendingIntent("r1"))

			bad := PaymentIntent{CheckoutRequestID: "r1", Status: StatusFailed, MpesaReceiptNumber: "X"}
			if err := s.Update(ctx, bad); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition for receipt on FAILED, got %v", err)
			}
			back := PaymentIntent{CheckoutRequestID: "r1", Status: StatusPending}
			if err := s.Update(ctx, back); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition for PENDING target, got %v", err)
			}
			missing := PaymentIntent{CheckoutRequestID: "ghost", Status: StatusFailed}
			if err := s.Update(ctx, missing); !errors.Is(err, ErrStatusMismatch) {
				t.Fatalf("expected ErrStatusMismatch for unknown id, got %v", err)
			}
		})
	}
}

func TestStore_ListAllNewestFirst(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			ctx := context.Background()
			base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				p := pendingIntent(fmt.Sprintf("id-%d", i))
				p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				if err := s.Create(ctx, p); err != nil {
					t.Fatalf("Create error: %v", err)
				}
			}

			all, err := s.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll error: %v", err)
			}
			if len(all) != 5 {
				t.Fatalf("expected 5 records, got %d", len(all))
			}
			for i := 0; i < 5; i++ {
				want := fmt.Sprintf("id-%d", 4-i)
				if all[i].CheckoutRequestID != want {
					t.Fatalf("position %d: expected %s, got %s", i, want, all[i].CheckoutRequestID)
				}
			}
		})
	}
}

func TestDynamoStore_ListAllFollowsPages(t *testing.T) {
	mock := newMockDynamo()
	s := NewDynamoStore(mock, "transactions")
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = s.Create(ctx, pendingIntent(fmt.Sprintf("p-%d", i)))
	}
	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 records, got %d", len(all))
	}
	if mock.scans != 3 {
		t.Fatalf("expected 3 scan pages, got %d", mock.scans)
	}
}

func TestDynamoStore_StoresStatusAsString(t *testing.T) {
	mock := newMockDynamo()
	s := NewDynamoStore(mock, "transactions")
	_ = s.Create(context.Background(), pendingIntent("raw"))

	item := mock.items["raw"]
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusPending {
		t.Fatalf("status not stored as PENDING, got %+v", item["status"])
	}
	if _, ok := item["result_code"]; ok {
		t.Fatalf("result_code must be absent while pending")
	}
}

func TestStore_ConcurrentUpdatesFirstWriterWins(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			ctx := context.Background()
			_ = s.Create(ctx, pendingIntent("race"))

			const workers = 20
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				winners  int
				mismatch int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					code := i
					status := StatusFailed
					if i%2 == 0 {
						status = StatusCompleted
					}
					err := s.Update(ctx, PaymentIntent{CheckoutRequestID: "race", Status: status, ResultCode: &code})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						winners++
					case errors.Is(err, ErrStatusMismatch):
						mismatch++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(i)
			}
			wg.Wait()

			if winners != 1 || mismatch != workers-1 {
				t.Fatalf("expected exactly one winner, got winners=%d mismatches=%d", winners, mismatch)
			}
		})
	}
}
