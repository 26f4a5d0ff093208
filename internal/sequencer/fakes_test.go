package sequencer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"outreach/internal/config"
	"outreach/internal/types"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testConfig() config.OutreachConfig {
	return config.OutreachConfig{
		DailyLimit:         200,
		Day3Delay:          72 * time.Hour,
		Day7Delay:          96 * time.Hour,
		Day7FallbackDelay:  168 * time.Hour,
		EventLookback:      48 * time.Hour,
		ContextLookback:    168 * time.Hour,
		EventBatchSize:     500,
		Day3BatchSize:      100,
		Day7BatchSize:      100,
		ContextEventLimit:  5,
		ExcludedEventTypes: []string{"land"},
		LockTTL:            15 * time.Minute,
		ClaimBaseURL:       "https://example.test/claim/",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

// memStore is an in-memory stand-in for the Postgres repositories. Candidate
// queries mirror the SQL predicates but do not filter on contact status, so
// the engine's own checks are exercised.
type memStore struct {
	mu sync.Mutex

	contacts  []types.Contact
	events    []types.Event
	sequences []*types.Sequence
	daily     map[string]int

	// errs fails the named method.
	errs map[string]error
	// createErr, when set, is consulted by Create.
	createErr func(*types.Sequence) error

	calls  map[string]int
	nextID int
}

func newMemStore() *memStore {
	return &memStore{
		daily: make(map[string]int),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (m *memStore) hit(name string) error {
	m.calls[name]++
	return m.errs[name]
}

func (m *memStore) contact(id string) types.Contact {
	for _, c := range m.contacts {
		if c.ID == id {
			return c
		}
	}
	return types.Contact{ID: id}
}

func (m *memStore) seq(contactID, eventID string) *types.Sequence {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sequences {
		if s.ContactID == contactID && s.EventID == eventID {
			return s
		}
	}
	return nil
}

func (m *memStore) addSequence(s types.Sequence) *types.Sequence {
	if s.Status == "" {
		s.Status = types.SequenceStatusActive
	}
	if s.Variant == "" {
		s.Variant = types.VariantA
	}
	cp := s
	m.sequences = append(m.sequences, &cp)
	return &cp
}

func (m *memStore) ListActive(_ context.Context) ([]types.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListActive"); err != nil {
		return nil, err
	}
	return slices.Clone(m.contacts), nil
}

func excluded(e types.Event, exclude []string) bool {
	return slices.Contains(exclude, e.Type)
}

func (m *memStore) ListRecent(_ context.Context, q types.EventQuery) ([]types.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListRecent"); err != nil {
		return nil, err
	}
	var out []types.Event
	for _, e := range m.events {
		if e.ObservedAt.Before(q.Since) || excluded(e, q.ExcludeTypes) {
			continue
		}
		out = append(out, e)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) inCity(q types.CityEventQuery) []types.Event {
	var out []types.Event
	for _, e := range m.events {
		if types.NormalizeGeoKey(e.City, e.Region) != types.NormalizeGeoKey(q.City, q.Region) {
			continue
		}
		if e.ID == q.ExcludeEventID || e.ObservedAt.Before(q.Since) || excluded(e, q.ExcludeTypes) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *memStore) ListRecentInCity(_ context.Context, q types.CityEventQuery) ([]types.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListRecentInCity"); err != nil {
		return nil, err
	}
	out := m.inCity(q)
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) CountRecentInCity(_ context.Context, q types.CityEventQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CountRecentInCity"); err != nil {
		return 0, err
	}
	return len(m.inCity(q)), nil
}

func (m *memStore) ListPairs(_ context.Context) ([]types.PairKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListPairs"); err != nil {
		return nil, err
	}
	pairs := make([]types.PairKey, 0, len(m.sequences))
	for _, s := range m.sequences {
		pairs = append(pairs, s.Pair())
	}
	return pairs, nil
}

func (m *memStore) Create(_ context.Context, s *types.Sequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("Create"); err != nil {
		return err
	}
	if m.createErr != nil {
		if err := m.createErr(s); err != nil {
			return err
		}
	}
	for _, existing := range m.sequences {
		if existing.Pair() == s.Pair() {
			return types.NewAppError(types.ErrCodeConflictSequenceExists, "sequence exists", nil)
		}
	}
	m.nextID++
	s.ID = fmt.Sprintf("seq-%d", m.nextID)
	cp := *s
	m.sequences = append(m.sequences, &cp)
	return nil
}

func (m *memStore) candidates(name string, limit int, match func(*types.Sequence) bool) ([]types.SequenceCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(name); err != nil {
		return nil, err
	}
	var out []types.SequenceCandidate
	for _, s := range m.sequences {
		if s.Status != types.SequenceStatusActive || s.Day7SentAt != nil || !match(s) {
			continue
		}
		out = append(out, types.SequenceCandidate{Sequence: *s, Contact: m.contact(s.ContactID)})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ListDay3Due(_ context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error) {
	return m.candidates("ListDay3Due", limit, func(s *types.Sequence) bool {
		return s.Day3SentAt == nil && s.Day1SentAt != nil && !s.Day1SentAt.After(cutoff)
	})
}

func (m *memStore) ListDay7Due(_ context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error) {
	return m.candidates("ListDay7Due", limit, func(s *types.Sequence) bool {
		return s.Day3SentAt != nil && !s.Day3SentAt.After(cutoff)
	})
}

func (m *memStore) ListDay7Fallback(_ context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error) {
	return m.candidates("ListDay7Fallback", limit, func(s *types.Sequence) bool {
		return s.Day3SentAt == nil && s.Day1SentAt != nil && !s.Day1SentAt.After(cutoff)
	})
}

func (m *memStore) find(id string) *types.Sequence {
	for _, s := range m.sequences {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *memStore) MarkDay3Sent(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("MarkDay3Sent"); err != nil {
		return err
	}
	s := m.find(id)
	if s == nil || s.Day3SentAt != nil || s.Status != types.SequenceStatusActive {
		return types.NewAppError(types.ErrCodeConflictStageAlreadySent, "day3 already sent", nil)
	}
	s.Day3SentAt = &at
	return nil
}

func (m *memStore) MarkDay7Sent(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("MarkDay7Sent"); err != nil {
		return err
	}
	s := m.find(id)
	if s == nil || s.Day7SentAt != nil || s.Status != types.SequenceStatusActive {
		return types.NewAppError(types.ErrCodeConflictStageAlreadySent, "day7 already sent", nil)
	}
	s.Day7SentAt = &at
	s.Status = types.SequenceStatusCompleted
	return nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func (m *memStore) SentOn(_ context.Context, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("SentOn"); err != nil {
		return 0, err
	}
	return m.daily[dayKey(day)], nil
}

func (m *memStore) Increment(_ context.Context, day time.Time, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("Increment"); err != nil {
		return err
	}
	m.daily[dayKey(day)] += n
	return nil
}

// fakeDispatcher records every message. fail decides per message.
type fakeDispatcher struct {
	mu   sync.Mutex
	sent []Message
	fail func(Message) (bool, error)
}

func (d *fakeDispatcher) Dispatch(_ context.Context, msg Message) (DispatchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		rejected, err := d.fail(msg)
		if err != nil {
			return DispatchResult{}, err
		}
		if rejected {
			return DispatchResult{Success: false}, nil
		}
	}
	d.sent = append(d.sent, msg)
	return DispatchResult{Success: true, ProviderMessageID: fmt.Sprintf("msg-%d", len(d.sent))}, nil
}

func (d *fakeDispatcher) stages() []types.Stage {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]types.Stage, 0, len(d.sent))
	for _, m := range d.sent {
		out = append(out, m.Stage)
	}
	return out
}

// alternate is a deterministic coin: A, B, A, B...
func alternate() func() bool {
	n := 0
	return func() bool {
		n++
		return n%2 == 1
	}
}

func newTestEngine(store *memStore, disp *fakeDispatcher, cfg config.OutreachConfig) *Engine {
	return NewEngine(Deps{
		Contacts:   store,
		Events:     store,
		Sequences:  store,
		Stats:      store,
		Dispatcher: disp,
		Variants:   NewVariantSelector(alternate()),
		Logger:     quietLogger(),
	}, cfg)
}

func activeContact(id, city, region string) types.Contact {
	return types.Contact{
		ID:               id,
		OrganizationName: "Org " + id,
		Email:            id + "@example.test",
		City:             city,
		Region:           region,
		Status:           types.ContactStatusActive,
		AuthToken:        "tok-" + id,
	}
}

func event(id, city, region string, observed time.Time) types.Event {
	return types.Event{
		ID:         id,
		Address:    id + " Main St",
		City:       city,
		Region:     region,
		PostalCode: "78701",
		Price:      425000,
		Beds:       3,
		Baths:      2,
		ObservedAt: observed,
		Type:       "residential",
	}
}
