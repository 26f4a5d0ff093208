package sequencer

// Budget is the daily send quota threaded through the phases by value.
// Limit and SentToday are fixed at run start; Used grows as phases report.
type Budget struct {
	Limit     int
	SentToday int
	Used      int
}

// NewBudget starts a run's budget.
func NewBudget(limit, sentToday int) Budget {
	return Budget{Limit: limit, SentToday: sentToday}
}

// Remaining is max(0, Limit - SentToday - Used).
func (b Budget) Remaining() int {
	return max(0, b.Limit-b.SentToday-b.Used)
}

// Exhausted reports whether no sends remain.
func (b Budget) Exhausted() bool {
	return b.Remaining() == 0
}

// Consume returns a copy with n more sends used.
func (b Budget) Consume(n int) Budget {
	b.Used += n
	return b
}
