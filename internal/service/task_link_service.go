package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pulseplan/pulseplan-api/internal/models"
)

// taskDirectory is the read-only surface the calendar consumes from the task
// domain. sql.ErrNoRows signals an absent task.
type taskDirectory interface {
	Lookup(ctx context.Context, id int64) (*models.TaskSummary, error)
	Deadlines(ctx context.Context, from, to time.Time) ([]models.TaskDeadline, error)
}

// TaskLinkService resolves weak task references on a best-effort basis. Any
// lookup failure degrades to "absent": events render without task metadata
// rather than failing the caller.
type TaskLinkService struct {
	tasks  taskDirectory
	logger *zap.Logger
}

// NewTaskLinkService constructs the resolver.
func NewTaskLinkService(tasks taskDirectory, logger *zap.Logger) *TaskLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskLinkService{tasks: tasks, logger: logger}
}

// Lookup returns the task summary, or nil when the task is gone or the task
// domain cannot be reached.
func (s *TaskLinkService) Lookup(ctx context.Context, id int64) *models.TaskSummary {
	task, err := s.tasks.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("task lookup failed", zap.Int64("task_id", id), zap.Error(err))
		}
		return nil
	}
	return task
}

// Exists checks whether the referenced task exists. Unlike Lookup, an
// infrastructure failure is surfaced so create validation can refuse rather
// than guess.
func (s *TaskLinkService) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.tasks.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Deadlines returns tasks due inside the window, or nil on failure so view
// assembly degrades to omitting the overlay.
func (s *TaskLinkService) Deadlines(ctx context.Context, from, to time.Time) []models.TaskDeadline {
	deadlines, err := s.tasks.Deadlines(ctx, from, to)
	if err != nil {
		s.logger.Warn("task deadline fetch failed", zap.Error(err))
		return nil
	}
	return deadlines
}
