package notify

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/imrishuroy/abc-church-payments/internal/aws"
	"github.com/imrishuroy/abc-church-payments/internal/payments"
	"github.com/rs/zerolog"
)

// DefaultNamespace is used when no CloudWatch namespace is configured.
const DefaultNamespace = "ABCChurch/Payments"

// MetricsPublisher reports payment lifecycle counts and amounts to CloudWatch.
// Failures are logged and never surface to the payment flow.
type MetricsPublisher struct {
	CW        aws.CloudWatchAPI
	Namespace string
	nowFunc   func() time.Time
}

func NewMetricsPublisher(cw aws.CloudWatchAPI, namespace string) *MetricsPublisher {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &MetricsPublisher{CW: cw, Namespace: namespace, nowFunc: time.Now}
}

func (m *MetricsPublisher) Initiated(ctx context.Context, amount float64) {
	m.put(ctx, "PaymentsInitiated", "", amount)
}

func (m *MetricsPublisher) Resolved(ctx context.Context, status string, amount float64) {
	m.put(ctx, "PaymentsResolved", status, amount)
}

func (m *MetricsPublisher) put(ctx context.Context, name, status string, amount float64) {
	var dims []cwtypes.Dimension
	if status != "" {
		dims = []cwtypes.Dimension{{Name: awsString("Status"), Value: awsString(status)}}
	}
	ts := m.nowFunc().UTC()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: awsString(m.Namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString(name),
				Dimensions: dims,
				Timestamp:  &ts,
				Unit:       cwtypes.StandardUnitCount,
				Value:      float64Ptr(1),
			},
			{
				MetricName: awsString(name + "Amount"),
				Dimensions: dims,
				Timestamp:  &ts,
				Unit:       cwtypes.StandardUnitNone,
				Value:      float64Ptr(amount),
			},
		},
	}
	if _, err := m.CW.PutMetricData(ctx, input); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("metric", name).Msg("cloudwatch put metric failed")
	}
}

func float64Ptr(v float64) *float64 { return &v }

var _ payments.Observer = (*MetricsPublisher)(nil)
