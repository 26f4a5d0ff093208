package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"outreach/internal/types"
)

// DailyStatsRepository stores the per-UTC-date send counter.
type DailyStatsRepository struct {
	db DBTX
}

func NewDailyStatsRepository(db DBTX) *DailyStatsRepository {
	return &DailyStatsRepository{db: db}
}

// SentOn returns the count recorded for day's UTC date. A missing row is 0.
func (r *DailyStatsRepository) SentOn(ctx context.Context, day time.Time) (int, error) {
	var sent int
	err := r.db.QueryRow(ctx,
		`SELECT sent FROM daily_stats WHERE date = $1`,
		utcDate(day),
	).Scan(&sent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to read daily stats", err)
	}
	return sent, nil
}

// Increment atomically adds n to day's counter, creating the row if needed.
func (r *DailyStatsRepository) Increment(ctx context.Context, day time.Time, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO daily_stats (date, sent)
		 VALUES ($1, $2)
		 ON CONFLICT (date) DO UPDATE SET sent = daily_stats.sent + EXCLUDED.sent`,
		utcDate(day),
		n,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to increment daily stats", err)
	}
	return nil
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
