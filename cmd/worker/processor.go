package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/imrishuroy/abc-church-payments/internal/contributions"
	"github.com/imrishuroy/abc-church-payments/internal/mpesa"
	"github.com/imrishuroy/abc-church-payments/internal/payments"
	"github.com/rs/zerolog"
)

// ContributionBooker is the ledger write the worker needs.
type ContributionBooker interface {
	CreateIfNotExists(ctx context.Context, c contributions.Contribution) (bool, error)
}

// Processor turns payment events from SQS into contribution entries.
type Processor struct {
	ledger ContributionBooker
}

// NewProcessor creates a worker processor around the contribution ledger.
func NewProcessor(ledger ContributionBooker) *Processor {
	return &Processor{ledger: ledger}
}

// Handle processes an SQS batch. Messages that fail to book are reported as
// batch item failures so only they are redelivered; undecodable bodies are
// logged and dropped since a retry cannot fix them.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	log := zerolog.Ctx(ctx)
	log.Debug().Int("records", len(ev.Records)).Msg("received sqs batch")

	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			log.Error().Err(err).Str("message_id", rec.MessageId).Msg("worker error")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var ev payments.PaymentEvent
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("message_id", rec.MessageId).Msg("dropping undecodable payment event")
		return nil
	}
	log := zerolog.Ctx(ctx).With().
		Str("event_id", ev.EventID).
		Str("checkout_request_id", ev.CheckoutRequestID).
		Logger()

	entry, ok := contributionFor(ev)
	if !ok {
		log.Debug().Str("type", ev.Type).Msg("payment event needs no booking")
		return nil
	}

	created, err := p.ledger.CreateIfNotExists(ctx, entry)
	if err != nil {
		return fmt.Errorf("book contribution %s: %w", entry.ContributionID, err)
	}
	if !created {
		log.Info().Msg("contribution already booked")
		return nil
	}
	log.Info().
		Str("household_id", entry.HouseholdID).
		Float64("amount", entry.Regular).
		Str("receipt", entry.ReceiptNumber).
		Msg("contribution booked")
	return nil
}

// contributionFor maps a completed, household-linked payment to its ledger
// entry. Other events book nothing.
func contributionFor(ev payments.PaymentEvent) (contributions.Contribution, bool) {
	if ev.Type != payments.EventPaymentCompleted || ev.CheckoutRequestID == "" {
		return contributions.Contribution{}, false
	}
	if ev.HouseholdID == nil || strings.TrimSpace(*ev.HouseholdID) == "" {
		return contributions.Contribution{}, false
	}

	date := ev.OccurredAt.UTC().Format("2006-01-02")
	if t, err := mpesa.ParseTimestamp(ev.TransactionDate); err == nil {
		date = t.Format("2006-01-02")
	}

	return contributions.Contribution{
		ContributionID: ev.CheckoutRequestID,
		HouseholdID:    *ev.HouseholdID,
		Regular:        ev.Amount,
		ReceiptNumber:  ev.MpesaReceiptNumber,
		Date:           date,
		PhoneNumber:    ev.PhoneNumber,
		Source:         contributions.SourceMpesa,
	}, true
}
