package sequencer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"outreach/internal/types"
)

func TestDay7Predicates(t *testing.T) {
	due := day7Due(testNow, 96*time.Hour)
	fallback := day7Fallback(testNow, 168*time.Hour)

	tests := []struct {
		name         string
		seq          types.Sequence
		wantDue      bool
		wantFallback bool
	}{
		{
			name:    "day3 old enough",
			seq:     types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(200 * time.Hour), Day3SentAt: ago(96 * time.Hour)},
			wantDue: true,
		},
		{
			name: "day3 too recent",
			seq:  types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(200 * time.Hour), Day3SentAt: ago(95 * time.Hour)},
		},
		{
			name:         "no day3, day1 past fallback",
			seq:          types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(168 * time.Hour)},
			wantFallback: true,
		},
		{
			name: "no day3, day1 before fallback",
			seq:  types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(167 * time.Hour)},
		},
		{
			name: "already finished",
			seq:  types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(300 * time.Hour), Day3SentAt: ago(200 * time.Hour), Day7SentAt: ago(time.Hour)},
		},
		{
			name: "completed",
			seq:  types.Sequence{Status: types.SequenceStatusCompleted, Day1SentAt: ago(300 * time.Hour)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantDue, due(tt.seq))
			assert.Equal(t, tt.wantFallback, fallback(tt.seq))
		})
	}
}

func TestUnionByID(t *testing.T) {
	cand := func(id string, day3 *time.Time) types.SequenceCandidate {
		return types.SequenceCandidate{Sequence: types.Sequence{
			ID: id, Status: types.SequenceStatusActive,
			Day1SentAt: ago(200 * time.Hour), Day3SentAt: day3,
		}}
	}
	normal := []types.SequenceCandidate{
		cand("a", ago(100*time.Hour)),
		cand("b", ago(10*time.Hour)), // fails Path A
		cand("a", ago(100*time.Hour)),
	}
	rescue := []types.SequenceCandidate{
		cand("c", nil),
		cand("a", ago(100*time.Hour)), // fails Path B
		cand("c", nil),
	}

	got := unionByID(
		[][]types.SequenceCandidate{normal, rescue},
		[]func(types.Sequence) bool{day7Due(testNow, 96*time.Hour), day7Fallback(testNow, 168*time.Hour)},
	)

	var ids []string
	for _, c := range got {
		ids = append(ids, c.Sequence.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestDay3Due(t *testing.T) {
	due := day3Due(testNow, 72*time.Hour)

	assert.True(t, due(types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(72 * time.Hour)}))
	assert.False(t, due(types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(71 * time.Hour)}))
	assert.False(t, due(types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(80 * time.Hour), Day3SentAt: ago(time.Hour)}))
	assert.False(t, due(types.Sequence{Status: types.SequenceStatusActive, Day1SentAt: ago(200 * time.Hour), Day7SentAt: ago(time.Hour)}))
	assert.False(t, due(types.Sequence{Status: types.SequenceStatusActive}))
}
