package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan-api/internal/models"
)

type taskDirectoryStub struct {
	summary     *models.TaskSummary
	lookupErr   error
	deadlines   []models.TaskDeadline
	deadlineErr error
}

func (s *taskDirectoryStub) Lookup(ctx context.Context, id int64) (*models.TaskSummary, error) {
	return s.summary, s.lookupErr
}

func (s *taskDirectoryStub) Deadlines(ctx context.Context, from, to time.Time) ([]models.TaskDeadline, error) {
	return s.deadlines, s.deadlineErr
}

func TestTaskLinkLookup(t *testing.T) {
	svc := NewTaskLinkService(&taskDirectoryStub{
		summary: &models.TaskSummary{ID: 7, Title: "Ship release"},
	}, nil)

	task := svc.Lookup(context.Background(), 7)
	require.NotNil(t, task)
	assert.Equal(t, "Ship release", task.Title)
}

func TestTaskLinkLookupDegradesOnFailure(t *testing.T) {
	assert.Nil(t, NewTaskLinkService(&taskDirectoryStub{lookupErr: sql.ErrNoRows}, nil).Lookup(context.Background(), 7))
	assert.Nil(t, NewTaskLinkService(&taskDirectoryStub{lookupErr: errors.New("connection refused")}, nil).Lookup(context.Background(), 7))
}

func TestTaskLinkExists(t *testing.T) {
	exists, err := NewTaskLinkService(&taskDirectoryStub{summary: &models.TaskSummary{ID: 7}}, nil).Exists(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTaskLinkExistsAbsent(t *testing.T) {
	exists, err := NewTaskLinkService(&taskDirectoryStub{lookupErr: sql.ErrNoRows}, nil).Exists(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTaskLinkExistsSurfacesInfraFailure(t *testing.T) {
	infraErr := errors.New("connection refused")
	_, err := NewTaskLinkService(&taskDirectoryStub{lookupErr: infraErr}, nil).Exists(context.Background(), 7)
	assert.ErrorIs(t, err, infraErr)
}

func TestTaskLinkDeadlinesDegradeToNil(t *testing.T) {
	svc := NewTaskLinkService(&taskDirectoryStub{deadlineErr: errors.New("timeout")}, nil)
	assert.Nil(t, svc.Deadlines(context.Background(), time.Now(), time.Now()))
}
