package contributions

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/abc-church-payments/internal/aws"
)

// The shared client bundle must be usable as this store's client.
var _ DynamoDBAPI = aws.DynamoDBAPI(nil)

func TestCreateIfNotExists_AndGet(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "contributions-table")
	ctx := context.Background()

	c := Contribution{
		ContributionID: "ws_CO_1",
		HouseholdID:    "hh-1",
		Regular:        500,
		ReceiptNumber:  "ABC123",
		Date:           "2024-01-01",
		Source:         SourceMpesa,
	}

	created, err := s.CreateIfNotExists(ctx, c)
	if err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	// redelivery books nothing
	c.Regular = 9999
	created, err = s.CreateIfNotExists(ctx, c)
	if err != nil {
		t.Fatalf("second CreateIfNotExists error: %v", err)
	}
	if created {
		t.Fatalf("expected created=false on duplicate")
	}

	got, err := s.Get(ctx, "ws_CO_1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected contribution, got nil")
	}
	if got.Regular != 500 || got.ReceiptNumber != "ABC123" || got.HouseholdID != "hh-1" {
		t.Fatalf("unexpected contribution: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	if item := mock.table["ws_CO_1"]; item["regular"].(*types.AttributeValueMemberN).Value != "500" {
		t.Fatalf("regular should be stored as a number, got %+v", item["regular"])
	}
}

func TestGet_NotFound(t *testing.T) {
	s := NewStore(newSimpleMock(), "contributions-table")
	got, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestCreateIfNotExists_Invalid(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "contributions-table")

	_, err := s.CreateIfNotExists(context.Background(), Contribution{ContributionID: "x"})
	if !errors.Is(err, ErrInvalidContribution) {
		t.Fatalf("expected ErrInvalidContribution, got %v", err)
	}
	if mock.putCalls != 0 {
		t.Fatalf("invalid entries must not reach DynamoDB")
	}
}

func TestCreateIfNotExists_PutError(t *testing.T) {
	mock := newSimpleMock()
	mock.putErr = errors.New("throughput exceeded")
	s := NewStore(mock, "contributions-table")

	_, err := s.CreateIfNotExists(context.Background(), Contribution{ContributionID: "x", HouseholdID: "h"})
	if !errors.Is(err, mock.putErr) {
		t.Fatalf("expected wrapped put error, got %v", err)
	}
}

func TestCreateIfNotExists_ConcurrentBooksOnce(t *testing.T) {
	s := NewStore(newSimpleMock(), "contributions-table")
	var created int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CreateIfNotExists(context.Background(), Contribution{ContributionID: "same", HouseholdID: "h", Regular: 1})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if ok {
				atomic.AddInt32(&created, 1)
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("expected exactly one booking, got %d", created)
	}
}
