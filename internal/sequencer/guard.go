package sequencer

import "outreach/internal/types"

// IdempotencyGuard is the set of (contact, event) pairs that already have a
// sequence. It is loaded once per run from a single bulk read and grows as
// the Day 1 phase dispatches, so a pair is never sent twice in one run even
// when the sequence insert fails.
type IdempotencyGuard struct {
	pairs map[types.PairKey]struct{}
}

func NewIdempotencyGuard(existing []types.PairKey) *IdempotencyGuard {
	g := &IdempotencyGuard{pairs: make(map[types.PairKey]struct{}, len(existing))}
	for _, p := range existing {
		g.pairs[p] = struct{}{}
	}
	return g
}

func (g *IdempotencyGuard) Has(p types.PairKey) bool {
	_, ok := g.pairs[p]
	return ok
}

func (g *IdempotencyGuard) Add(p types.PairKey) {
	g.pairs[p] = struct{}{}
}

func (g *IdempotencyGuard) Len() int {
	return len(g.pairs)
}

// stageLedger holds the ids of sequences that were dispatched a stage earlier
// in the run. A later phase skips them even when the stage write failed and
// the row still looks due, so one run never sends two stages of a sequence.
type stageLedger map[string]struct{}

func (l stageLedger) mark(sequenceID string) {
	l[sequenceID] = struct{}{}
}

func (l stageLedger) has(sequenceID string) bool {
	_, ok := l[sequenceID]
	return ok
}
