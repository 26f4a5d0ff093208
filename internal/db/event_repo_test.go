package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"outreach/internal/types"
)

func eventRow(id, city string, observed time.Time) []any {
	return []any{id, "1 Main St", city, "TX", "78701", int64(300000), 2, 1.5, observed, "sale"}
}

func TestEventRepository_ListRecent(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepository(db)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := newMockRows([][]any{
		eventRow("e-2", "Austin", since.Add(2*time.Hour)),
		eventRow("e-1", "Dallas", since.Add(time.Hour)),
	})
	db.On("Query", mock.Anything, sqlContains("FROM events", "ANY($2::text[])", "ORDER BY observed_at DESC"),
		[]any{since, []string{"land"}, 500}).Return(rows, nil)

	events, err := repo.ListRecent(context.Background(), types.EventQuery{Since: since, ExcludeTypes: []string{"land"}, Limit: 500})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e-2", events[0].ID)
	assert.Equal(t, 1.5, events[0].Baths)
	assert.Equal(t, "sale", events[1].Type)
	db.AssertExpectations(t)
}

func TestEventRepository_ListRecent_NilExcludeTypesEncodesEmptyArray(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepository(db)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{since, []string{}, 10}).
		Return(newMockRows(nil), nil)

	events, err := repo.ListRecent(context.Background(), types.EventQuery{Since: since, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, events)
	db.AssertExpectations(t)
}

func TestEventRepository_ListRecentInCity(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepository(db)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	q := types.CityEventQuery{City: "San José", Region: " ca", Since: since, ExcludeEventID: "e-1", ExcludeTypes: []string{"land"}, Limit: 2}
	rows := newMockRows([][]any{
		eventRow("e-9", "San Jose", since.Add(3*time.Hour)),
		eventRow("e-8", "Santa Clara", since.Add(2*time.Hour)),
		eventRow("e-7", "SAN  JOSÉ", since.Add(time.Hour)),
		eventRow("e-6", "san jose", since),
	})
	db.On("Query", mock.Anything, sqlContains("upper(trim(region)) = $1", "id <> $3", "ORDER BY observed_at DESC"),
		[]any{"CA", since, "e-1", []string{"land"}}).
		Return(rows, nil)

	events, err := repo.ListRecentInCity(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e-9", events[0].ID)
	assert.Equal(t, "e-7", events[1].ID)
	assert.True(t, rows.closed)
	db.AssertExpectations(t)
}

func TestEventRepository_CountRecentInCity(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepository(db)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	db.On("Query", mock.Anything, sqlContains("GROUP BY city"), []any{"TX", since, "", []string{}}).
		Return(newMockRows([][]any{
			{"Austin", 4},
			{" austin ", 3},
			{"Dallas", 9},
		}), nil)

	n, err := repo.CountRecentInCity(context.Background(), types.CityEventQuery{City: "AUSTIN", Region: "tx", Since: since})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestEventRepository_CountRecentInCity_Error(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("timeout"))

	_, err := repo.CountRecentInCity(context.Background(), types.CityEventQuery{City: "Austin", Region: "TX"})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
