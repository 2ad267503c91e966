package models

import "time"

// TaskPriority is the closed priority set used by the task domain.
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// Rank orders priorities for sorting: high before medium before low.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityHigh:
		return 0
	case TaskPriorityMedium:
		return 1
	default:
		return 2
	}
}

// TaskSummary is the read-only slice of a task the calendar embeds into
// event responses. The calendar never owns or mutates the task itself.
type TaskSummary struct {
	ID        int64        `db:"id" json:"id"`
	Title     string       `db:"title" json:"title"`
	Completed bool         `db:"completed" json:"completed"`
	Priority  TaskPriority `db:"priority" json:"priority"`
}

// TaskDeadline is a task due inside a view window, returned as an overlay
// alongside the calendar grid.
type TaskDeadline struct {
	ID        int64        `db:"id" json:"id"`
	Title     string       `db:"title" json:"title"`
	DueDate   time.Time    `db:"due_date" json:"due_date"`
	Priority  TaskPriority `db:"priority" json:"priority"`
	Completed bool         `db:"completed" json:"completed"`
}
