package sequencer

import (
	"math/rand/v2"

	"outreach/internal/types"
)

// VariantSelector assigns the A/B label once, at sequence creation. Later
// stages read the stored label through ForSequence and never re-roll.
type VariantSelector struct {
	flip func() bool
}

// NewVariantSelector uses flip as an independent fair coin per pairing.
// A nil flip uses math/rand/v2.
func NewVariantSelector(flip func() bool) *VariantSelector {
	if flip == nil {
		flip = func() bool { return rand.IntN(2) == 0 }
	}
	return &VariantSelector{flip: flip}
}

// Assign draws a label for a new sequence.
func (s *VariantSelector) Assign() types.Variant {
	if s.flip() {
		return types.VariantA
	}
	return types.VariantB
}

// ForSequence returns the stored label. Rows written before variants were
// recorded fall back to A.
func (s *VariantSelector) ForSequence(seq types.Sequence) types.Variant {
	if seq.Variant.Valid() {
		return seq.Variant
	}
	return types.VariantA
}
