package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulseplan/pulseplan-api/internal/models"
)

// TaskRepository reads task data owned by the task domain. The calendar only
// ever reads here; task writes happen elsewhere.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a read-only task repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Lookup fetches the summary of a single task.
func (r *TaskRepository) Lookup(ctx context.Context, id int64) (*models.TaskSummary, error) {
	const query = "SELECT id, title, completed, priority FROM tasks WHERE id = $1"
	var task models.TaskSummary
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// Deadlines returns tasks due inside [from, to], ordered by due date
// ascending, then priority high before medium before low.
func (r *TaskRepository) Deadlines(ctx context.Context, from, to time.Time) ([]models.TaskDeadline, error) {
	const query = `SELECT id, title, due_date, priority, completed FROM tasks
WHERE due_date::date >= $1 AND due_date::date <= $2
ORDER BY due_date ASC, CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END ASC, id ASC`
	var deadlines []models.TaskDeadline
	if err := r.db.SelectContext(ctx, &deadlines, query, from, to); err != nil {
		return nil, fmt.Errorf("list task deadlines: %w", err)
	}
	return deadlines, nil
}
