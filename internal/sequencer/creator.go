package sequencer

import (
	"context"
	"time"

	"outreach/internal/types"
)

// create is the Day 1 phase.
//
// Recent events are joined to contacts through the MatchingIndex, and every
// resulting pair not already in the IdempotencyGuard gets one Day 1 message.
// The phase stops at the first new pair once the budget is spent. A pair is
// added to the guard as soon as its message is accepted, before the insert,
// so a failed insert cannot cause a second send in the same run.
func (e *Engine) create(ctx context.Context, now time.Time, remaining int, _ stageLedger) PhaseResult {
	var res PhaseResult

	contacts, err := e.contacts.ListActive(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	index := NewMatchingIndex(contacts)
	if index.Keys() == 0 {
		return res
	}

	events, err := e.events.ListRecent(ctx, types.EventQuery{
		Since:        now.Add(-e.cfg.EventLookback),
		ExcludeTypes: e.cfg.ExcludedEventTypes,
		Limit:        e.cfg.EventBatchSize,
	})
	if err != nil {
		res.Err = err
		return res
	}
	matched := index.Filter(events)
	if len(matched) == 0 {
		return res
	}
	counts := CountByKey(matched)

	pairs, err := e.sequences.ListPairs(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	guard := NewIdempotencyGuard(pairs)

	e.logger.DebugContext(ctx, "day1 candidates loaded",
		"contacts", len(contacts),
		"events", len(events),
		"matched_events", len(matched),
		"existing_pairs", guard.Len(),
	)

	for _, ev := range matched {
		key := NormalizeKey(ev.City, ev.Region)
		snapshot := types.SnapshotOf(ev)

		for _, contact := range index.Contacts(key) {
			pair := types.PairKey{ContactID: contact.ID, EventID: ev.ID}
			if guard.Has(pair) {
				res.Skipped++
				continue
			}
			if res.Sent >= remaining {
				return res
			}

			variant := e.variants.Assign()
			sent, ok := e.send(ctx, Message{
				Stage:          types.StageDay1,
				Variant:        variant,
				Contact:        contact,
				Listing:        snapshot,
				CityEventCount: counts[key],
			})
			if !ok {
				res.Errors++
				continue
			}
			res.Sent++
			guard.Add(pair)

			sentAt := now
			seq := &types.Sequence{
				ContactID:  contact.ID,
				EventID:    ev.ID,
				Snapshot:   snapshot,
				Day1SentAt: &sentAt,
				Variant:    variant,
				Status:     types.SequenceStatusActive,
				CreatedAt:  now,
			}
			if err := e.sequences.Create(ctx, seq); err != nil {
				e.logUnrecorded(ctx, types.StageDay1, contact.ID, seq.ID, sent.ProviderMessageID, err)
				res.Errors++
			}
		}
	}
	return res
}
