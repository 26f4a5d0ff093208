package types

// ContactStatus represents the lifecycle state of a directory contact.
// Anything other than active is terminal for outreach purposes.
type ContactStatus string

const (
	ContactStatusActive       ContactStatus = "active"
	ContactStatusInactive     ContactStatus = "inactive"
	ContactStatusUnsubscribed ContactStatus = "unsubscribed"
	ContactStatusBounced      ContactStatus = "bounced"
)

// SequenceStatus represents the lifecycle state of a sequence. The only
// transition is active -> completed.
type SequenceStatus string

const (
	SequenceStatusActive    SequenceStatus = "active"
	SequenceStatusCompleted SequenceStatus = "completed"
)

// Variant is the A/B message form assigned once per sequence.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantA || v == VariantB
}

// Stage identifies one step of the drip.
type Stage string

const (
	StageDay1 Stage = "day1"
	StageDay3 Stage = "day3"
	StageDay7 Stage = "day7"
)

// Stages lists the drip stages in send order.
var Stages = []Stage{StageDay1, StageDay3, StageDay7}
