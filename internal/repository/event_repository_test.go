package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func eventRows(events ...models.CalendarEvent) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "title", "description", "start_datetime", "end_datetime", "is_all_day", "location", "color", "recurrence_rule", "task_id", "created_at", "updated_at"})
	for _, e := range events {
		rows.AddRow(e.ID, e.Title, e.Description, e.StartDatetime, e.EndDatetime, e.IsAllDay, e.Location, e.Color, e.RecurrenceRule, e.TaskID, e.CreatedAt, e.UpdatedAt)
	}
	return rows
}

func TestEventRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	event := &models.CalendarEvent{Title: "Standup", StartDatetime: start}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO calendar_events")).
		WithArgs("Standup", nil, start, nil, false, nil, nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Create(context.Background(), event))
	assert.Equal(t, int64(42), event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.Equal(t, event.CreatedAt, event.UpdatedAt)
}

func TestEventRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEventRepositoryGetByIDsEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	result, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestEventRepositoryGetByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1)")).
		WithArgs(pq.Array([]int64{5, 6})).
		WillReturnRows(eventRows(
			models.CalendarEvent{ID: 5, Title: "A", StartDatetime: start},
			models.CalendarEvent{ID: 6, Title: "B", StartDatetime: start},
		))

	result, err := repo.GetByIDs(context.Background(), []int64{5, 6})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "A", result[5].Title)
	assert.Equal(t, "B", result[6].Title)
}

func TestEventRepositoryListWithBounds(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	taskID := int64(7)

	mock.ExpectQuery(regexp.QuoteMeta("start_datetime::date >= $1 AND start_datetime::date <= $2 AND task_id = $3")).
		WithArgs(from, to, taskID).
		WillReturnRows(eventRows(models.CalendarEvent{ID: 1, Title: "Review", StartDatetime: from}))

	events, err := repo.List(context.Background(), models.EventFilter{StartDate: &from, EndDate: &to, TaskID: &taskID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].ID)
}

func TestEventRepositoryListUnfiltered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 ORDER BY start_datetime ASC, id ASC")).
		WillReturnRows(eventRows())

	events, err := repo.List(context.Background(), models.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventRepositoryListForWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	rule := "FREQ=WEEKLY"

	mock.ExpectQuery(regexp.QuoteMeta("OR (recurrence_rule IS NOT NULL AND start_datetime::date <= $2)")).
		WithArgs(from, to).
		WillReturnRows(eventRows(models.CalendarEvent{ID: 3, Title: "Weekly sync", StartDatetime: from.AddDate(0, -1, 0), RecurrenceRule: &rule}))

	events, err := repo.ListForWindow(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsRecurring())
}

func TestEventRepositoryFindOverlapping(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	exclude := int64(4)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(end_datetime, start_datetime) > $1")).
		WithArgs(start, end, exclude).
		WillReturnRows(eventRows(models.CalendarEvent{ID: 9, Title: "Dentist", StartDatetime: start.Add(45 * time.Minute)}))

	events, err := repo.FindOverlapping(context.Background(), start, end, &exclude)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(9), events[0].ID)
}

func TestEventRepositoryFindOverlappingNoExclusion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(end_datetime, start_datetime) > $1")).
		WithArgs(start, start, nil).
		WillReturnRows(eventRows())

	events, err := repo.FindOverlapping(context.Background(), start, start, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	event := &models.CalendarEvent{ID: 2, Title: "Renamed", StartDatetime: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE calendar_events SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), event))
	assert.False(t, event.UpdatedAt.IsZero())
}

func TestEventRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM calendar_events WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestEventRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM calendar_events WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestEventRepositoryDeleteByIDsEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	// No statement expected for an empty set.
	require.NoError(t, repo.DeleteByIDs(context.Background(), nil))
}

func TestEventRepositoryDeleteByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM calendar_events WHERE id = ANY($1)")).
		WithArgs(pq.Array([]int64{3, 4})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteByIDs(context.Background(), []int64{3, 4}))
}
