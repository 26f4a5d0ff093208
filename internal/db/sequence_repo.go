package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"outreach/internal/types"
)

// SequenceRepository persists contact×event sequences. Stage writes are
// guarded in SQL so a stale candidate can never move a timestamp backward or
// reopen a completed sequence.
type SequenceRepository struct {
	db DBTX
}

func NewSequenceRepository(db DBTX) *SequenceRepository {
	return &SequenceRepository{db: db}
}

const sequenceColumns = `s.id, s.contact_id, s.event_id,
	s.event_address, s.event_city, s.event_region, s.event_price, s.event_beds, s.event_baths::float8,
	s.day1_sent_at, s.day3_sent_at, s.day7_sent_at, s.email_variant, s.status, s.created_at`

const candidateColumns = sequenceColumns + `,
	c.id, c.organization_name, c.email, c.city, c.region, c.status, c.auth_token`

// ListPairs returns every existing (contact, event) pair. It is the single
// bulk read that seeds the in-run idempotency guard.
func (r *SequenceRepository) ListPairs(ctx context.Context) ([]types.PairKey, error) {
	rows, err := r.db.Query(ctx, `SELECT contact_id, event_id FROM sequences`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list sequence pairs", err)
	}
	defer rows.Close()

	var pairs []types.PairKey
	for rows.Next() {
		var p types.PairKey
		if err := rows.Scan(&p.ContactID, &p.EventID); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan sequence pair", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating sequence pairs", err)
	}
	return pairs, nil
}

// Create inserts a new sequence. An ID is generated when empty. An existing
// row for the same pair is left untouched and reported as a conflict.
func (r *SequenceRepository) Create(ctx context.Context, s *types.Sequence) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = types.SequenceStatusActive
	}

	tag, err := r.db.Exec(ctx,
		`INSERT INTO sequences
		 (id, contact_id, event_id,
		  event_address, event_city, event_region, event_price, event_beds, event_baths,
		  day1_sent_at, email_variant, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (contact_id, event_id) DO NOTHING`,
		s.ID,
		s.ContactID,
		s.EventID,
		s.Snapshot.Address,
		s.Snapshot.City,
		s.Snapshot.Region,
		s.Snapshot.Price,
		s.Snapshot.Beds,
		s.Snapshot.Baths,
		s.Day1SentAt,
		string(s.Variant),
		string(s.Status),
		s.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create sequence", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppErrorWithDetails(types.ErrCodeConflictSequenceExists, "sequence already exists for pair", nil,
			map[string]any{"contact_id": s.ContactID, "event_id": s.EventID})
	}
	return nil
}

// GetByID returns one sequence.
func (r *SequenceRepository) GetByID(ctx context.Context, id string) (*types.Sequence, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sequenceColumns+` FROM sequences s WHERE s.id = $1`,
		id,
	)
	s, err := scanSequence(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSequence, "sequence not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get sequence", err)
	}
	return &s, nil
}

// ListDay3Due returns active sequences whose Day 1 went out at or before
// cutoff and that have no Day 3 yet, oldest first.
func (r *SequenceRepository) ListDay3Due(ctx context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error) {
	return r.listCandidates(ctx,
		`s.day1_sent_at IS NOT NULL
		 AND s.day1_sent_at <= $1
		 AND s.day3_sent_at IS NULL
		 AND s.day7_sent_at IS NULL`,
		`s.day1_sent_at`,
		cutoff, limit, "day3 due")
}

// ListDay7Due returns active sequences whose Day 3 went out at or before
// cutoff and that have no Day 7 yet.
func (r *SequenceRepository) ListDay7Due(ctx context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error) {
	return r.listCandidates(ctx,
		`s.day3_sent_at IS NOT NULL
		 AND s.day3_sent_at <= $1
		 AND s.day7_sent_at IS NULL`,
		`s.day3_sent_at`,
		cutoff, limit, "day7 due")
}

// ListDay7Fallback returns active sequences that never received Day 3 and
// whose Day 1 went out at or before cutoff.
func (r *SequenceRepository) ListDay7Fallback(ctx context.Context, cutoff time.Time, limit int) ([]types.SequenceCandidate, error) {
	return r.listCandidates(ctx,
		`s.day3_sent_at IS NULL
		 AND s.day1_sent_at IS NOT NULL
		 AND s.day1_sent_at <= $1
		 AND s.day7_sent_at IS NULL`,
		`s.day1_sent_at`,
		cutoff, limit, "day7 fallback")
}

// listCandidates joins the contact so the caller can render without a second
// lookup. Inactive contacts are filtered here so they cannot fill the batch.
func (r *SequenceRepository) listCandidates(ctx context.Context, where, orderBy string, cutoff time.Time, limit int, label string) ([]types.SequenceCandidate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+candidateColumns+`
		 FROM sequences s
		 JOIN contacts c ON c.id = s.contact_id
		 WHERE `+where+`
		   AND s.status = $2
		   AND c.status = $3
		 ORDER BY `+orderBy+` ASC, s.id
		 LIMIT $4`,
		cutoff,
		string(types.SequenceStatusActive),
		string(types.ContactStatusActive),
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list "+label+" sequences", err)
	}
	defer rows.Close()

	var out []types.SequenceCandidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan "+label+" sequence", err)
		}
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating "+label+" sequences", err)
	}
	return out, nil
}

// MarkDay3Sent records the Day 3 send. The guard rejects a second write, a
// write after Day 7, and a timestamp earlier than Day 1.
func (r *SequenceRepository) MarkDay3Sent(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sequences
		 SET day3_sent_at = $2
		 WHERE id = $1
		   AND day3_sent_at IS NULL
		   AND day7_sent_at IS NULL
		   AND status = $3
		   AND day1_sent_at <= $2`,
		id,
		at,
		string(types.SequenceStatusActive),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark day3 sent", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppErrorWithDetails(types.ErrCodeConflictStageAlreadySent, "day3 not writable", nil,
			map[string]any{"sequence_id": id})
	}
	return nil
}

// MarkDay7Sent records the Day 7 send and completes the sequence.
func (r *SequenceRepository) MarkDay7Sent(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sequences
		 SET day7_sent_at = $2, status = $4
		 WHERE id = $1
		   AND day7_sent_at IS NULL
		   AND status = $3
		   AND COALESCE(day3_sent_at, day1_sent_at) <= $2`,
		id,
		at,
		string(types.SequenceStatusActive),
		string(types.SequenceStatusCompleted),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark day7 sent", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppErrorWithDetails(types.ErrCodeConflictStageAlreadySent, "day7 not writable", nil,
			map[string]any{"sequence_id": id})
	}
	return nil
}

func sequenceDest(s *types.Sequence, variant, status *string) []any {
	return []any{
		&s.ID,
		&s.ContactID,
		&s.EventID,
		&s.Snapshot.Address,
		&s.Snapshot.City,
		&s.Snapshot.Region,
		&s.Snapshot.Price,
		&s.Snapshot.Beds,
		&s.Snapshot.Baths,
		&s.Day1SentAt,
		&s.Day3SentAt,
		&s.Day7SentAt,
		variant,
		status,
		&s.CreatedAt,
	}
}

func scanSequence(row scanner) (types.Sequence, error) {
	var (
		s               types.Sequence
		variant, status string
	)
	if err := row.Scan(sequenceDest(&s, &variant, &status)...); err != nil {
		return types.Sequence{}, err
	}
	s.Variant = types.Variant(variant)
	s.Status = types.SequenceStatus(status)
	return s, nil
}

func scanCandidate(row scanner) (types.SequenceCandidate, error) {
	var (
		cand                           types.SequenceCandidate
		variant, status, contactStatus string
	)
	dest := sequenceDest(&cand.Sequence, &variant, &status)
	c := &cand.Contact
	dest = append(dest, &c.ID, &c.OrganizationName, &c.Email, &c.City, &c.Region, &contactStatus, &c.AuthToken)
	if err := row.Scan(dest...); err != nil {
		return types.SequenceCandidate{}, err
	}
	cand.Sequence.Variant = types.Variant(variant)
	cand.Sequence.Status = types.SequenceStatus(status)
	c.Status = types.ContactStatus(contactStatus)
	return cand, nil
}
