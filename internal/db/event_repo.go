package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"outreach/internal/types"
)

// EventRepository reads observed property transactions.
type EventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, address, city, region, COALESCE(postal_code, ''), COALESCE(price, 0),
	COALESCE(beds, 0), COALESCE(baths, 0)::float8, observed_at, COALESCE(type, '')`

// ListRecent returns events observed at or after q.Since, newest first.
func (r *EventRepository) ListRecent(ctx context.Context, q types.EventQuery) ([]types.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE observed_at >= $1
		   AND NOT (COALESCE(type, '') = ANY($2::text[]))
		 ORDER BY observed_at DESC, id
		 LIMIT $3`,
		q.Since,
		textArray(q.ExcludeTypes),
		q.Limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list recent events", err)
	}
	return collectEvents(rows)
}

// ListRecentInCity returns up to q.Limit events in the city, newest first.
//
// The city is compared by types.GeoKey, which SQL cannot compute, so the
// query narrows by region and window and rows are matched here. Rows stream
// from the cursor and the scan stops at q.Limit matches.
func (r *EventRepository) ListRecentInCity(ctx context.Context, q types.CityEventQuery) ([]types.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE upper(trim(region)) = $1
		   AND observed_at >= $2
		   AND id <> $3
		   AND NOT (COALESCE(type, '') = ANY($4::text[]))
		 ORDER BY observed_at DESC, id`,
		types.NormalizeRegion(q.Region),
		q.Since,
		q.ExcludeEventID,
		textArray(q.ExcludeTypes),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list city events", err)
	}
	defer rows.Close()

	key := types.NormalizeGeoKey(q.City, q.Region)
	var events []types.Event
	for len(events) < q.Limit && rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan event", err)
		}
		if types.NormalizeGeoKey(e.City, q.Region) == key {
			events = append(events, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating city events", err)
	}
	return events, nil
}

// CountRecentInCity counts events in the city since q.Since. Limit is ignored.
// Counts are grouped by raw city spelling and summed for spellings that share
// the query's GeoKey.
func (r *EventRepository) CountRecentInCity(ctx context.Context, q types.CityEventQuery) (int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT city, COUNT(*)::int
		 FROM events
		 WHERE upper(trim(region)) = $1
		   AND observed_at >= $2
		   AND id <> $3
		   AND NOT (COALESCE(type, '') = ANY($4::text[]))
		 GROUP BY city`,
		types.NormalizeRegion(q.Region),
		q.Since,
		q.ExcludeEventID,
		textArray(q.ExcludeTypes),
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count city events", err)
	}
	defer rows.Close()

	key := types.NormalizeGeoKey(q.City, q.Region)
	total := 0
	for rows.Next() {
		var (
			city string
			n    int
		)
		if err := rows.Scan(&city, &n); err != nil {
			return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to scan city count", err)
		}
		if types.NormalizeGeoKey(city, q.Region) == key {
			total += n
		}
	}
	if err := rows.Err(); err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "error iterating city counts", err)
	}
	return total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (types.Event, error) {
	var e types.Event
	err := row.Scan(
		&e.ID,
		&e.Address,
		&e.City,
		&e.Region,
		&e.PostalCode,
		&e.Price,
		&e.Beds,
		&e.Baths,
		&e.ObservedAt,
		&e.Type,
	)
	return e, err
}

func collectEvents(rows pgx.Rows) ([]types.Event, error) {
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating events", err)
	}
	return events, nil
}

// textArray keeps a nil slice from encoding as SQL NULL, which would make
// "= ANY(NULL)" filter out every row.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
