package types

import (
	"fmt"
	"time"
)

// Contact is a directory entry representing an outreach recipient. Contacts
// are created and mutated by the directory import; the sequencer only reads them.
type Contact struct {
	ID               string        `json:"id" db:"id"`
	OrganizationName string        `json:"organization_name" db:"organization_name"`
	Email            string        `json:"email" db:"email"`
	City             string        `json:"city" db:"city"`
	Region           string        `json:"region" db:"region"`
	Status           ContactStatus `json:"status" db:"status"`
	// AuthToken is opaque to the sequencer. It is only embedded in the claim
	// link rendered into outgoing messages.
	AuthToken string `json:"-" db:"auth_token"`
}

// IsActive reports whether the contact may receive outreach.
func (c Contact) IsActive() bool {
	return c.Status == ContactStatusActive
}

// Event is an observed property transaction.
type Event struct {
	ID         string    `json:"id" db:"id"`
	Address    string    `json:"address" db:"address"`
	City       string    `json:"city" db:"city"`
	Region     string    `json:"region" db:"region"`
	PostalCode string    `json:"postal_code" db:"postal_code"`
	Price      int64     `json:"price" db:"price"`
	Beds       int       `json:"beds" db:"beds"`
	Baths      float64   `json:"baths" db:"baths"`
	ObservedAt time.Time `json:"observed_at" db:"observed_at"`
	Type       string    `json:"type" db:"type"`
}

// EventSnapshot is the denormalized copy of event fields captured on the
// sequence at creation time so later stages render the same listing even if
// the source event changes.
type EventSnapshot struct {
	Address string  `json:"address" db:"event_address"`
	City    string  `json:"city" db:"event_city"`
	Region  string  `json:"region" db:"event_region"`
	Price   int64   `json:"price" db:"event_price"`
	Beds    int     `json:"beds" db:"event_beds"`
	Baths   float64 `json:"baths" db:"event_baths"`
}

// SnapshotOf copies the template-relevant fields of an event.
func SnapshotOf(e Event) EventSnapshot {
	return EventSnapshot{
		Address: e.Address,
		City:    e.City,
		Region:  e.Region,
		Price:   e.Price,
		Beds:    e.Beds,
		Baths:   e.Baths,
	}
}

// Sequence tracks one contact×event pairing through the Day 1 / Day 3 / Day 7
// drip. (ContactID, EventID) is unique.
type Sequence struct {
	ID         string         `json:"id" db:"id"`
	ContactID  string         `json:"contact_id" db:"contact_id"`
	EventID    string         `json:"event_id" db:"event_id"`
	Snapshot   EventSnapshot  `json:"snapshot" db:"-"`
	Day1SentAt *time.Time     `json:"day1_sent_at,omitempty" db:"day1_sent_at"`
	Day3SentAt *time.Time     `json:"day3_sent_at,omitempty" db:"day3_sent_at"`
	Day7SentAt *time.Time     `json:"day7_sent_at,omitempty" db:"day7_sent_at"`
	Variant    Variant        `json:"email_variant" db:"email_variant"`
	Status     SequenceStatus `json:"status" db:"status"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// Pair returns the composite key of the sequence.
func (s Sequence) Pair() PairKey {
	return PairKey{ContactID: s.ContactID, EventID: s.EventID}
}

// SequenceCandidate is a sequence joined with its contact, as returned by the
// stage eligibility queries.
type SequenceCandidate struct {
	Sequence Sequence
	Contact  Contact
}

// PairKey is the composite (contact, event) identity of a sequence.
type PairKey struct {
	ContactID string
	EventID   string
}

// String renders the key as "contact:event".
func (k PairKey) String() string {
	return fmt.Sprintf("%s:%s", k.ContactID, k.EventID)
}

// SendInput defines the contract for email transmission. Content is
// pre-rendered; providers never apply server-side templates.
type SendInput struct {
	To       string
	From     SenderIdentity
	Subject  string
	BodyHTML string
	BodyText string
	// Tags are correlation labels (stage, variant, sequence) passed to the
	// provider for its event stream.
	Tags map[string]string
}

// SenderIdentity defines the sender for outgoing emails.
type SenderIdentity struct {
	Name    string
	Address string
}
