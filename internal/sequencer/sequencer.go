// Package sequencer implements the outreach drip engine.
//
// A run spends one shared daily send budget across three phases in fixed
// priority order: Day 7 finisher, Day 3 advancer, Day 1 creator. Each phase
// processes its candidates one at a time so the budget and the in-memory
// idempotency guard stay exact without locking. Per-item failures are counted
// and never abort a phase; a failed input read aborts only its own phase.
package sequencer

import (
	"context"
	"time"

	"outreach/internal/types"
)

// ContactDirectory reads outreach recipients.
type ContactDirectory interface {
	// ListActive returns active contacts with a city and region.
	ListActive(ctx context.Context) ([]types.Contact, error)
}

// EventSource reads observed property transactions.
type EventSource interface {
	ListRecent(ctx context.Context, q types.EventQuery) ([]types.Event, error)
	ListRecentInCity(ctx context.Context, q types.CityEventQuery) ([]types.Event, error)
	CountRecentInCity(ctx context.Context, q types.CityEventQuery) (int, error)
}

// SequenceStore persists sequences.
type SequenceStore interface {
	// ListPairs returns every existing (contact, event) pair in one read.
	ListPairs(ctx context.Context) ([]types.PairKey, error)

	// Create inserts a sequence; an existing pair is a conflict error.
	Create(ctx context.Context, s *types.Sequence) error

	// SQL: day1_sent_at <= cutoff AND day3_sent_at IS NULL AND status = 'active'
	ListDay3Due(ctx context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error)

	// SQL: day3_sent_at <= cutoff AND day7_sent_at IS NULL AND status = 'active'
	ListDay7Due(ctx context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error)

	// SQL: day3_sent_at IS NULL AND day1_sent_at <= cutoff AND day7_sent_at IS NULL AND status = 'active'
	ListDay7Fallback(ctx context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error)

	MarkDay3Sent(ctx context.Context, id string, at time.Time) error

	// MarkDay7Sent also transitions the sequence to completed.
	MarkDay7Sent(ctx context.Context, id string, at time.Time) error
}

// DailyStats is the per-UTC-date send counter.
type DailyStats interface {
	SentOn(ctx context.Context, day time.Time) (int, error)
	Increment(ctx context.Context, day time.Time, n int) error
}

// Dispatcher renders and sends one message.
type Dispatcher interface {
	// Dispatch returns Success=false with a nil error when the provider
	// accepted the call but refused the recipient.
	Dispatch(ctx context.Context, msg Message) (DispatchResult, error)
}

// Message is everything a dispatcher needs to render one stage.
type Message struct {
	Stage   types.Stage
	Variant types.Variant
	Contact types.Contact
	// Listing is the event that started the sequence.
	Listing types.EventSnapshot
	// CityEvents holds other recent listings in the city (Day 3).
	CityEvents []types.Event
	// CityEventCount is the number of recent listings in the city. Its window
	// differs by stage:
	//   - Day 1: matched events within EventLookback, including Listing,
	//     bounded by EventBatchSize.
	//   - Day 3: len(CityEvents), so other listings only, at most
	//     ContextEventLimit.
	//   - Day 7: all city events within ContextLookback, including Listing
	//     when it is still inside the window.
	CityEventCount int
	// SequenceID is empty for Day 1 (not yet created) and test sends.
	SequenceID string
}

// DispatchResult is the outcome of one send.
type DispatchResult struct {
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
}

// PhaseResult reports one phase. Sent counts messages the provider accepted,
// including those whose sequence write then failed; those failures are also
// counted in Errors.
type PhaseResult struct {
	Stage   types.Stage
	Sent    int
	Errors  int
	Skipped int
	// Err is set when the phase could not read its inputs.
	Err error
}

// RunSummary is the response of a production run.
type RunSummary struct {
	Success         bool     `json:"success"`
	Day1Sent        int      `json:"day1Sent"`
	Day3Sent        int      `json:"day3Sent"`
	Day7Sent        int      `json:"day7Sent"`
	Errors          int      `json:"errors"`
	Skipped         int      `json:"skipped"`
	TotalSent       int      `json:"totalSent"`
	EmailsSentToday int      `json:"emailsSentToday"`
	DailyLimit      int      `json:"dailyLimit"`
	FailedPhases    []string `json:"failedPhases,omitempty"`
	SkippedReason   string   `json:"skippedReason,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
}

func (s *RunSummary) add(r PhaseResult) {
	switch r.Stage {
	case types.StageDay1:
		s.Day1Sent = r.Sent
	case types.StageDay3:
		s.Day3Sent = r.Sent
	case types.StageDay7:
		s.Day7Sent = r.Sent
	}
	s.TotalSent += r.Sent
	s.Errors += r.Errors
	s.Skipped += r.Skipped
	if r.Err != nil {
		s.FailedPhases = append(s.FailedPhases, string(r.Stage))
	}
}
