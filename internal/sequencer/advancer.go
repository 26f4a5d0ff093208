package sequencer

import (
	"context"
	"time"

	"outreach/internal/types"
)

func day3Due(now time.Time, delay time.Duration) func(types.Sequence) bool {
	return func(s types.Sequence) bool {
		return s.Status == types.SequenceStatusActive &&
			s.Day3SentAt == nil &&
			s.Day7SentAt == nil &&
			s.Day1SentAt != nil &&
			now.Sub(*s.Day1SentAt) >= delay
	}
}

// advance is the Day 3 phase. The message carries other recent listings in
// the contact's city; when there are none the sequence is left as it is for
// this run without an error. Only the Day 7 fallback eventually moves such a
// sequence on.
func (e *Engine) advance(ctx context.Context, now time.Time, remaining int, ledger stageLedger) PhaseResult {
	var res PhaseResult

	due, err := e.sequences.ListDay3Due(ctx, now.Add(-e.cfg.Day3Delay), e.cfg.Day3BatchSize)
	if err != nil {
		res.Err = err
		return res
	}

	eligible := day3Due(now, e.cfg.Day3Delay)
	for _, c := range due {
		seq := c.Sequence
		if !eligible(seq) {
			continue
		}
		if ledger.has(seq.ID) {
			e.logger.WarnContext(ctx, "day3 held back, sequence already sent a stage this run", "sequence_id", seq.ID)
			res.Skipped++
			continue
		}
		if !c.Contact.IsActive() || res.Sent >= remaining {
			res.Skipped++
			continue
		}

		city, region := listingCity(c)
		q := e.cityQuery(city, region, now)
		q.ExcludeEventID = seq.EventID
		cityEvents, err := e.events.ListRecentInCity(ctx, q)
		if err != nil {
			e.logger.WarnContext(ctx, "failed to load city events", "sequence_id", seq.ID, "error", err)
			res.Errors++
			continue
		}
		if len(cityEvents) == 0 {
			e.logger.DebugContext(ctx, "no city activity, day3 deferred", "sequence_id", seq.ID)
			res.Skipped++
			continue
		}

		sent, ok := e.send(ctx, Message{
			Stage:          types.StageDay3,
			Variant:        e.variants.ForSequence(seq),
			Contact:        c.Contact,
			Listing:        seq.Snapshot,
			CityEvents:     cityEvents,
			CityEventCount: len(cityEvents),
			SequenceID:     seq.ID,
		})
		if !ok {
			res.Errors++
			continue
		}
		res.Sent++

		if err := e.sequences.MarkDay3Sent(ctx, seq.ID, now); err != nil {
			e.logUnrecorded(ctx, types.StageDay3, c.Contact.ID, seq.ID, sent.ProviderMessageID, err)
			res.Errors++
		}
	}
	return res
}
