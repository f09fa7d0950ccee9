package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/imrishuroy/abc-church-payments/internal/aws"
	"github.com/imrishuroy/abc-church-payments/internal/payments"
)

// Publisher sends payment events to an SQS queue.
type Publisher struct {
	SQS      aws.SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient aws.SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// PublishPaymentEvent sends ev as a JSON message. The event type and checkout
// id travel as message attributes so consumers can filter without decoding.
func (p *Publisher) PublishPaymentEvent(ctx context.Context, ev payments.PaymentEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	attrs := map[string]string{
		"event_type":          ev.Type,
		"checkout_request_id": ev.CheckoutRequestID,
	}
	if ev.HouseholdID != nil {
		attrs["household_id"] = *ev.HouseholdID
	}
	return p.send(ctx, string(body), attrs)
}

func (p *Publisher) send(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: awsString(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }

var _ payments.EventPublisher = (*Publisher)(nil)
