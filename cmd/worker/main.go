package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/imrishuroy/abc-church-payments/internal/aws"
	"github.com/imrishuroy/abc-church-payments/internal/config"
	"github.com/imrishuroy/abc-church-payments/internal/contributions"
	"github.com/imrishuroy/abc-church-payments/internal/logger"
)

const (
	serviceName = "abc-church-payments-worker"
	localBody   = `{"event_id":"local-1","type":"payment.completed","checkout_request_id":"ws_CO_local","household_id":"hh-local","amount":1,"status":"COMPLETED"}`
)

type sqsHandler func(context.Context, events.SQSEvent) (events.SQSEventResponse, error)

// runLocal feeds one message through h and fails on a handler error or a
// reported item failure.
func runLocal(ctx context.Context, h sqsHandler, body string) error {
	if body == "" {
		body = localBody
	}
	resp, err := h(ctx, events.SQSEvent{
		Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
	})
	if err != nil {
		return err
	}
	if len(resp.BatchItemFailures) > 0 {
		return fmt.Errorf("message %s failed", resp.BatchItemFailures[0].ItemIdentifier)
	}
	return nil
}

func main() {
	log := logger.New(logger.Options{ServiceName: serviceName})

	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := log.WithContext(context.Background())

	clients, err := aws.NewAWSClients(ctx, cfg.AWS.Region, cfg.AWS.EndpointOverride)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init aws clients")
	}
	p := NewProcessor(contributions.NewStore(clients.DynamoDB, cfg.Storage.ContributionsTable))

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if cfg.App.RunLocal {
		if err := runLocal(ctx, p.Handle, os.Getenv("LOCAL_SQS_BODY")); err != nil {
			log.Fatal().Err(err).Msg("local handler error")
		}
		return
	}

	lambda.StartWithOptions(p.Handle, lambda.WithContext(ctx))
}
