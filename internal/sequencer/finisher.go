package sequencer

import (
	"context"
	"time"

	"outreach/internal/types"
)

// day7Due is Path A: Day 3 went out at least delay ago.
func day7Due(now time.Time, delay time.Duration) func(types.Sequence) bool {
	return func(s types.Sequence) bool {
		return s.Status == types.SequenceStatusActive &&
			s.Day7SentAt == nil &&
			s.Day3SentAt != nil &&
			now.Sub(*s.Day3SentAt) >= delay
	}
}

// day7Fallback is Path B: Day 3 never went out and Day 1 is at least delay
// old. It rescues sequences the Day 3 phase keeps skipping.
func day7Fallback(now time.Time, delay time.Duration) func(types.Sequence) bool {
	return func(s types.Sequence) bool {
		return s.Status == types.SequenceStatusActive &&
			s.Day7SentAt == nil &&
			s.Day3SentAt == nil &&
			s.Day1SentAt != nil &&
			now.Sub(*s.Day1SentAt) >= delay
	}
}

// unionByID keeps candidates from each list that satisfy its predicate,
// in list order, dropping repeated sequence ids.
func unionByID(lists [][]types.SequenceCandidate, preds []func(types.Sequence) bool) []types.SequenceCandidate {
	seen := make(map[string]struct{})
	var out []types.SequenceCandidate
	for i, list := range lists {
		for _, c := range list {
			if !preds[i](c.Sequence) {
				continue
			}
			if _, dup := seen[c.Sequence.ID]; dup {
				continue
			}
			seen[c.Sequence.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// finish is the Day 7 phase. Once remaining sends are used up, the rest of
// the eligible rows are counted as skipped.
func (e *Engine) finish(ctx context.Context, now time.Time, remaining int, ledger stageLedger) PhaseResult {
	var res PhaseResult

	due, err := e.sequences.ListDay7Due(ctx, now.Add(-e.cfg.Day7Delay), e.cfg.Day7BatchSize)
	if err != nil {
		res.Err = err
		return res
	}
	fallback, err := e.sequences.ListDay7Fallback(ctx, now.Add(-e.cfg.Day7FallbackDelay), e.cfg.Day7BatchSize)
	if err != nil {
		res.Err = err
		return res
	}

	candidates := unionByID(
		[][]types.SequenceCandidate{due, fallback},
		[]func(types.Sequence) bool{day7Due(now, e.cfg.Day7Delay), day7Fallback(now, e.cfg.Day7FallbackDelay)},
	)

	for _, c := range candidates {
		seq := c.Sequence
		if !c.Contact.IsActive() || res.Sent >= remaining {
			res.Skipped++
			continue
		}

		city, region := listingCity(c)
		count, err := e.events.CountRecentInCity(ctx, e.cityQuery(city, region, now))
		if err != nil {
			e.logger.WarnContext(ctx, "failed to count city events", "sequence_id", seq.ID, "error", err)
			res.Errors++
			continue
		}

		sent, ok := e.send(ctx, Message{
			Stage:          types.StageDay7,
			Variant:        e.variants.ForSequence(seq),
			Contact:        c.Contact,
			Listing:        seq.Snapshot,
			CityEventCount: count,
			SequenceID:     seq.ID,
		})
		if !ok {
			res.Errors++
			continue
		}
		res.Sent++
		ledger.mark(seq.ID)

		if err := e.sequences.MarkDay7Sent(ctx, seq.ID, now); err != nil {
			e.logUnrecorded(ctx, types.StageDay7, c.Contact.ID, seq.ID, sent.ProviderMessageID, err)
			res.Errors++
		}
	}
	return res
}
