// Package queue publishes outreach run reports to SQS for downstream ops
// consumers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"outreach/internal/config"
	"outreach/internal/sequencer"
	"outreach/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// RunReport is the message body: the run summary plus a report id that
// consumers use to drop redelivered messages.
type RunReport struct {
	ReportID  string `json:"reportId"`
	RequestID string `json:"requestId,omitempty"`
	*sequencer.RunSummary
}

// RunReporter sends one RunReport per completed run.
type RunReporter struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

var _ sequencer.RunObserver = (*RunReporter)(nil)

// NewRunReporter returns nil when no report queue is configured, so callers
// can skip registering it.
func NewRunReporter(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *RunReporter {
	if awsCfg.RunReportQueue == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunReporter{client: client, queueURL: awsCfg.RunReportQueue, logger: logger}
}

// ObserveRun implements sequencer.RunObserver.
func (r *RunReporter) ObserveRun(ctx context.Context, s *sequencer.RunSummary) error {
	report := RunReport{
		ReportID:   uuid.NewString(),
		RequestID:  types.GetRequestID(ctx),
		RunSummary: s,
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal run report: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"job_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(sequencer.JobType),
			},
			"total_sent": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.Itoa(s.TotalSent)),
			},
		},
	}

	if _, err := r.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send run report to %s: %w", r.queueURL, err)
	}

	r.logger.InfoContext(ctx, "run report sent",
		"queue_url", r.queueURL,
		"report_id", report.ReportID,
		"total_sent", s.TotalSent,
		"errors", s.Errors,
	)
	return nil
}
