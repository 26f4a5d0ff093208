package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"outreach/internal/types"
)

func TestBudget(t *testing.T) {
	tests := []struct {
		name             string
		limit, sentToday int
		want             int
	}{
		{"fresh day", 200, 0, 200},
		{"partly used", 5, 3, 2},
		{"exactly used", 5, 5, 0},
		{"over used", 5, 9, 0},
		{"zero limit", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBudget(tt.limit, tt.sentToday)
			assert.Equal(t, tt.want, b.Remaining())
			assert.Equal(t, tt.want == 0, b.Exhausted())
		})
	}
}

func TestBudget_ConsumeIsByValue(t *testing.T) {
	b := NewBudget(5, 1)
	next := b.Consume(3)

	assert.Equal(t, 4, b.Remaining())
	assert.Equal(t, 1, next.Remaining())
	assert.Equal(t, 0, next.Consume(5).Remaining())
}

func TestIdempotencyGuard(t *testing.T) {
	a := types.PairKey{ContactID: "c1", EventID: "e1"}
	b := types.PairKey{ContactID: "c1", EventID: "e2"}

	g := NewIdempotencyGuard([]types.PairKey{a, a})
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Has(a))
	assert.False(t, g.Has(b))

	g.Add(b)
	assert.True(t, g.Has(b))
	assert.Equal(t, 2, g.Len())
}

func TestVariantSelector(t *testing.T) {
	s := NewVariantSelector(alternate())
	assert.Equal(t, types.VariantA, s.Assign())
	assert.Equal(t, types.VariantB, s.Assign())

	assert.Equal(t, types.VariantB, s.ForSequence(types.Sequence{Variant: types.VariantB}))
	assert.Equal(t, types.VariantA, s.ForSequence(types.Sequence{}))
	assert.Equal(t, types.VariantA, s.ForSequence(types.Sequence{Variant: "Z"}))
}

func TestVariantSelector_DefaultCoinUsesBothLabels(t *testing.T) {
	s := NewVariantSelector(nil)
	seen := map[types.Variant]bool{}
	for range 200 {
		seen[s.Assign()] = true
	}
	assert.True(t, seen[types.VariantA])
	assert.True(t, seen[types.VariantB])
}
