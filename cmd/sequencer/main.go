// Package main is the entry point for the outreach sequencer Lambda.
//
// An EventBridge schedule invokes it with an empty payload (or
// {"task":"run"}) to perform one production run. A payload carrying
// testEmail sends a single test message instead and touches no sequences.
//
// With APP_ENV=local the payload is read from stdin and the result printed
// to stdout:
//
//	echo '{"testEmail":"me@example.com","testCity":"Austin","testRegion":"TX","testVariant":"A"}' | go run ./cmd/sequencer
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"outreach/internal/app"
	"outreach/internal/notifications/email"
	"outreach/internal/sequencer"
	"outreach/internal/types"
)

const (
	taskRun  = "run"
	taskTest = "test"
)

// Runner is the subset of sequencer.Runner the handler calls.
type Runner interface {
	Run(ctx context.Context) (*sequencer.RunSummary, error)
	SendTest(ctx context.Context, req sequencer.TestRequest) (sequencer.DispatchResult, error)
}

// invocation is the union of both payload shapes.
type invocation struct {
	Task string `json:"task"`
	sequencer.TestRequest
}

// Handler dispatches one Lambda invocation.
type Handler struct {
	runner Runner
	logger *slog.Logger
}

// Handle returns a *sequencer.RunSummary for runs and a
// sequencer.DispatchResult for test sends.
func (h *Handler) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ctx = types.WithRequestID(ctx, lc.AwsRequestID)
	}

	inv, err := parseInvocation(payload)
	if err != nil {
		return nil, err
	}

	switch inv.Task {
	case taskTest:
		h.logger.InfoContext(ctx, "test send requested",
			"to", email.RedactEmail(inv.Email),
			"variant", inv.Variant,
			"stage", inv.Stage,
		)
		return h.runner.SendTest(ctx, inv.TestRequest)
	default:
		summary, err := h.runner.Run(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "outreach run failed", "error", err)
			return nil, err
		}
		return summary, nil
	}
}

func parseInvocation(payload json.RawMessage) (invocation, error) {
	var inv invocation
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		inv.Task = taskRun
		return inv, nil
	}
	if err := json.Unmarshal(trimmed, &inv); err != nil {
		return inv, types.NewAppError(types.ErrCodeValidationPayload, "payload is not a JSON object", err)
	}

	switch {
	case inv.Task == "" && inv.Email != "":
		inv.Task = taskTest
	case inv.Task == "":
		inv.Task = taskRun
	case inv.Task != taskRun && inv.Task != taskTest:
		return inv, types.NewAppErrorWithDetails(types.ErrCodeValidationPayload,
			fmt.Sprintf("unknown task %q", inv.Task), nil, map[string]any{"field": "task"})
	}
	return inv, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := app.NewLogger(cfg.LogLevel)
	logger.Info("outreach sequencer initializing (cold start)",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"daily_limit", cfg.Outreach.DailyLimit,
		"email_provider", cfg.Email.Provider,
	)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring sequencer: %w", err)
	}
	defer a.Close()

	h := &Handler{runner: a.Runner, logger: logger}

	if cfg.Environment == "local" {
		return runLocal(ctx, h, os.Stdin, os.Stdout)
	}

	lambda.Start(h.Handle)
	return nil
}

// runLocal feeds one stdin payload through the handler.
func runLocal(ctx context.Context, h *Handler, in io.Reader, out io.Writer) error {
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	result, err := h.Handle(ctx, payload)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
