package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pulseplan/pulseplan-api/internal/models"
)

const exceptionColumns = "id, parent_event_id, exception_date, cancelled, modified_event_id, created_at"

// ExceptionRepository persists per-occurrence exceptions of recurring events.
type ExceptionRepository struct {
	db *sqlx.DB
}

// NewExceptionRepository constructs an exception repository.
func NewExceptionRepository(db *sqlx.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Upsert inserts an exception, replacing any existing one for the same
// parent and date.
func (r *ExceptionRepository) Upsert(ctx context.Context, exc *models.EventException) error {
	exc.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO calendar_event_exceptions (parent_event_id, exception_date, cancelled, modified_event_id, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (parent_event_id, exception_date)
DO UPDATE SET cancelled = EXCLUDED.cancelled, modified_event_id = EXCLUDED.modified_event_id
RETURNING id`
	if err := r.db.GetContext(ctx, &exc.ID, query,
		exc.ParentEventID, exc.ExceptionDate, exc.Cancelled, exc.ModifiedEventID, exc.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert event exception: %w", err)
	}
	return nil
}

// GetByID fetches an exception.
func (r *ExceptionRepository) GetByID(ctx context.Context, id int64) (*models.EventException, error) {
	query := fmt.Sprintf("SELECT %s FROM calendar_event_exceptions WHERE id = $1", exceptionColumns)
	var exc models.EventException
	if err := r.db.GetContext(ctx, &exc, query, id); err != nil {
		return nil, err
	}
	return &exc, nil
}

// ListByParent returns all exceptions of one recurring event.
func (r *ExceptionRepository) ListByParent(ctx context.Context, parentID int64) ([]models.EventException, error) {
	query := fmt.Sprintf("SELECT %s FROM calendar_event_exceptions WHERE parent_event_id = $1 ORDER BY exception_date ASC", exceptionColumns)
	var exceptions []models.EventException
	if err := r.db.SelectContext(ctx, &exceptions, query, parentID); err != nil {
		return nil, fmt.Errorf("list event exceptions: %w", err)
	}
	return exceptions, nil
}

// ListByParents returns exceptions for a set of recurring events, grouped by
// parent id.
func (r *ExceptionRepository) ListByParents(ctx context.Context, parentIDs []int64) (map[int64][]models.EventException, error) {
	grouped := make(map[int64][]models.EventException, len(parentIDs))
	if len(parentIDs) == 0 {
		return grouped, nil
	}
	query := fmt.Sprintf("SELECT %s FROM calendar_event_exceptions WHERE parent_event_id = ANY($1) ORDER BY exception_date ASC", exceptionColumns)
	var exceptions []models.EventException
	if err := r.db.SelectContext(ctx, &exceptions, query, pq.Array(parentIDs)); err != nil {
		return nil, fmt.Errorf("list event exceptions: %w", err)
	}
	for _, exc := range exceptions {
		grouped[exc.ParentEventID] = append(grouped[exc.ParentEventID], exc)
	}
	return grouped, nil
}

// Delete removes an exception, reporting whether a row was deleted.
func (r *ExceptionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM calendar_event_exceptions WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete event exception: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete event exception: %w", err)
	}
	return affected > 0, nil
}

// DeleteForEvent removes exceptions referencing the event as parent or as
// modification override.
func (r *ExceptionRepository) DeleteForEvent(ctx context.Context, eventID int64) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM calendar_event_exceptions WHERE parent_event_id = $1 OR modified_event_id = $1", eventID); err != nil {
		return fmt.Errorf("delete event exceptions: %w", err)
	}
	return nil
}
