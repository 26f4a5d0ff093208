package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outreach/internal/config"
	"outreach/internal/types"
)

// Deps are the collaborators of an Engine.
type Deps struct {
	Contacts   ContactDirectory
	Events     EventSource
	Sequences  SequenceStore
	Stats      DailyStats
	Dispatcher Dispatcher
	// Variants defaults to a math/rand coin.
	Variants *VariantSelector
	Logger   *slog.Logger
}

// Engine runs the three outreach phases.
type Engine struct {
	contacts   ContactDirectory
	events     EventSource
	sequences  SequenceStore
	stats      DailyStats
	dispatcher Dispatcher
	variants   *VariantSelector
	cfg        config.OutreachConfig
	logger     *slog.Logger
}

func NewEngine(deps Deps, cfg config.OutreachConfig) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	variants := deps.Variants
	if variants == nil {
		variants = NewVariantSelector(nil)
	}
	return &Engine{
		contacts:   deps.Contacts,
		events:     deps.Events,
		sequences:  deps.Sequences,
		stats:      deps.Stats,
		dispatcher: deps.Dispatcher,
		variants:   variants,
		cfg:        cfg,
		logger:     logger.With("component", "sequencer"),
	}
}

// Run executes one production run at now.
//
// The budget is computed from the daily counter once, then handed to Day 7,
// Day 3 and Day 1 in that order, each receiving what the earlier phases left.
// A phase whose budget is zero is not started. The counter is incremented by
// the total afterwards; a failed increment is logged and does not fail the run.
func (e *Engine) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	now = now.UTC()
	started := time.Now()

	sentToday, err := e.stats.SentOn(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("reading daily stats: %w", err)
	}

	budget := NewBudget(e.cfg.DailyLimit, sentToday)
	summary := &RunSummary{DailyLimit: e.cfg.DailyLimit, StartedAt: now}

	e.logger.InfoContext(ctx, "outreach run started",
		"daily_limit", budget.Limit,
		"sent_today", sentToday,
		"remaining", budget.Remaining(),
	)

	phases := []struct {
		stage types.Stage
		run   func(ctx context.Context, now time.Time, remaining int, ledger stageLedger) PhaseResult
	}{
		{types.StageDay7, e.finish},
		{types.StageDay3, e.advance},
		{types.StageDay1, e.create},
	}

	ledger := make(stageLedger)
	for _, p := range phases {
		if budget.Exhausted() {
			e.logger.InfoContext(ctx, "phase skipped, budget exhausted", "stage", p.stage)
			continue
		}
		res := p.run(ctx, now, budget.Remaining(), ledger)
		res.Stage = p.stage
		if res.Err != nil {
			e.logger.ErrorContext(ctx, "phase aborted", "stage", p.stage, "error", res.Err)
		}
		e.logger.InfoContext(ctx, "phase complete",
			"stage", p.stage,
			"sent", res.Sent,
			"errors", res.Errors,
			"skipped", res.Skipped,
		)
		budget = budget.Consume(res.Sent)
		summary.add(res)
	}

	if summary.TotalSent > 0 {
		if err := e.stats.Increment(ctx, now, summary.TotalSent); err != nil {
			e.logger.ErrorContext(ctx, "failed to increment daily stats",
				"sent", summary.TotalSent,
				"error", err,
			)
		}
	}

	summary.EmailsSentToday = sentToday + summary.TotalSent
	summary.Success = true
	summary.DurationMS = time.Since(started).Milliseconds()

	e.logger.InfoContext(ctx, "outreach run finished",
		"day1_sent", summary.Day1Sent,
		"day3_sent", summary.Day3Sent,
		"day7_sent", summary.Day7Sent,
		"errors", summary.Errors,
		"skipped", summary.Skipped,
		"emails_sent_today", summary.EmailsSentToday,
	)
	return summary, nil
}

// send dispatches msg and reports whether the provider accepted it.
func (e *Engine) send(ctx context.Context, msg Message) (DispatchResult, bool) {
	res, err := e.dispatcher.Dispatch(ctx, msg)
	if err != nil {
		e.logger.WarnContext(ctx, "dispatch failed",
			"stage", msg.Stage,
			"contact_id", msg.Contact.ID,
			"sequence_id", msg.SequenceID,
			"error", err,
		)
		return res, false
	}
	if !res.Success {
		e.logger.WarnContext(ctx, "dispatch rejected",
			"stage", msg.Stage,
			"contact_id", msg.Contact.ID,
			"sequence_id", msg.SequenceID,
		)
		return res, false
	}
	return res, true
}

// logUnrecorded reports a send whose sequence write failed. The pairing has
// no record of the send and will be dispatched again by a later run.
func (e *Engine) logUnrecorded(ctx context.Context, stage types.Stage, contactID, sequenceID, providerID string, err error) {
	e.logger.ErrorContext(ctx, "message sent but sequence write failed; pairing will be re-sent",
		"stage", stage,
		"contact_id", contactID,
		"sequence_id", sequenceID,
		"provider_message_id", providerID,
		"error", err,
	)
}

// listingCity is the geography the sequence's listing belongs to, which
// Day 1 matched to the contact by GeoKey.
func listingCity(c types.SequenceCandidate) (city, region string) {
	if c.Sequence.Snapshot.City != "" && c.Sequence.Snapshot.Region != "" {
		return c.Sequence.Snapshot.City, c.Sequence.Snapshot.Region
	}
	return c.Contact.City, c.Contact.Region
}

func (e *Engine) cityQuery(city, region string, now time.Time) types.CityEventQuery {
	return types.CityEventQuery{
		City:         city,
		Region:       region,
		Since:        now.Add(-e.cfg.ContextLookback),
		ExcludeTypes: e.cfg.ExcludedEventTypes,
		Limit:        e.cfg.ContextEventLimit,
	}
}
