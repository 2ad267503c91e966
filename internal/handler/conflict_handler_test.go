package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan-api/internal/dto"
	"github.com/pulseplan/pulseplan-api/internal/models"
)

type conflictServiceMock struct {
	resp    *dto.ConflictCheckResponse
	err     error
	lastReq dto.ConflictCheckRequest
}

func (m *conflictServiceMock) Check(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

func TestConflictHandlerCheck(t *testing.T) {
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	mockSvc := &conflictServiceMock{resp: &dto.ConflictCheckResponse{
		HasConflicts: true,
		Conflicts: []dto.Conflict{{
			Event:          dto.EventResponse{CalendarEvent: models.CalendarEvent{ID: 9, Title: "Dentist"}},
			OverlapStart:   start.Add(45 * time.Minute),
			OverlapEnd:     end,
			OverlapMinutes: 15,
		}},
	}}
	handler := NewConflictHandler(mockSvc)

	body, _ := json.Marshal(dto.ConflictCheckRequest{StartDatetime: start, EndDatetime: &end})
	c, w := testContext(t, http.MethodPost, "/calendar/conflicts/check", body)
	handler.Check(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, start, mockSvc.lastReq.StartDatetime)
	assert.Contains(t, w.Body.String(), `"has_conflicts":true`)
	assert.Contains(t, w.Body.String(), `"overlap_minutes":15`)
}

func TestConflictHandlerCheckInvalidBody(t *testing.T) {
	handler := NewConflictHandler(&conflictServiceMock{})

	c, w := testContext(t, http.MethodPost, "/calendar/conflicts/check", []byte(`{"start_datetime":`))
	handler.Check(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
