// Package telemetry publishes outreach run metrics to CloudWatch.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"outreach/internal/sequencer"
	"outreach/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRunMetrics emits one PutMetricData call per completed run:
//
//   - OutreachSent: Dims {Stage} -- one datum per stage, zero included
//   - OutreachErrors, OutreachSkipped: no dims
//   - QuotaRemaining: daily limit minus messages sent today, floored at zero
//   - RunDuration: milliseconds
type CloudWatchRunMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

var _ sequencer.RunObserver = (*CloudWatchRunMetrics)(nil)

// NewCloudWatchRunMetrics publishes under namespace, or types.MetricNamespace
// when empty.
func NewCloudWatchRunMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRunMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRunMetrics{client: client, namespace: namespace, logger: logger}
}

// ObserveRun implements sequencer.RunObserver.
func (m *CloudWatchRunMetrics) ObserveRun(ctx context.Context, s *sequencer.RunSummary) error {
	ts := s.StartedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	data := []cwtypes.MetricDatum{
		stageDatum(types.StageDay1, s.Day1Sent, ts),
		stageDatum(types.StageDay3, s.Day3Sent, ts),
		stageDatum(types.StageDay7, s.Day7Sent, ts),
		countDatum(types.MetricOutreachErrors, s.Errors, ts),
		countDatum(types.MetricOutreachSkipped, s.Skipped, ts),
		countDatum(types.MetricQuotaRemaining, max(s.DailyLimit-s.EmailsSentToday, 0), ts),
		{
			MetricName: aws.String(types.MetricRunDuration),
			Value:      aws.Float64(float64(s.DurationMS)),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Timestamp:  aws.Time(ts),
		},
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("telemetry: put run metrics: %w", err)
	}

	m.logger.DebugContext(ctx, "run metrics published", "namespace", m.namespace, "datums", len(data))
	return nil
}

func stageDatum(stage types.Stage, sent int, ts time.Time) cwtypes.MetricDatum {
	d := countDatum(types.MetricOutreachSent, sent, ts)
	d.Dimensions = []cwtypes.Dimension{
		{Name: aws.String(types.DimStage), Value: aws.String(string(stage))},
	}
	return d
}

func countDatum(name string, n int, ts time.Time) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  aws.Time(ts),
	}
}
