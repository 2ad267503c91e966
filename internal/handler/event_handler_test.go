package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan-api/internal/dto"
	"github.com/pulseplan/pulseplan-api/internal/models"
	"github.com/pulseplan/pulseplan-api/internal/service"
	appErrors "github.com/pulseplan/pulseplan-api/pkg/errors"
)

type eventServiceMock struct {
	createResp   *dto.EventResponse
	createErr    error
	getResp      *dto.EventResponse
	getErr       error
	listResp     []dto.EventResponse
	deleteResp   *dto.DeleteEventResponse
	excResp      *models.EventException
	excListResp  []models.EventException
	deleteExcErr error

	lastListReq    service.ListEventsRequest
	lastDeleteID   int64
	lastSeriesFlag bool
	createCalled   bool
}

func (m *eventServiceMock) Create(ctx context.Context, req dto.CreateEventRequest) (*dto.EventResponse, error) {
	m.createCalled = true
	return m.createResp, m.createErr
}

func (m *eventServiceMock) Get(ctx context.Context, id int64) (*dto.EventResponse, error) {
	return m.getResp, m.getErr
}

func (m *eventServiceMock) List(ctx context.Context, req service.ListEventsRequest) ([]dto.EventResponse, error) {
	m.lastListReq = req
	return m.listResp, nil
}

func (m *eventServiceMock) Update(ctx context.Context, id int64, req dto.UpdateEventRequest) (*dto.EventResponse, error) {
	return m.getResp, m.getErr
}

func (m *eventServiceMock) Delete(ctx context.Context, id int64, deleteSeries bool) (*dto.DeleteEventResponse, error) {
	m.lastDeleteID = id
	m.lastSeriesFlag = deleteSeries
	return m.deleteResp, nil
}

func (m *eventServiceMock) CreateException(ctx context.Context, parentID int64, req dto.CreateExceptionRequest) (*models.EventException, error) {
	return m.excResp, nil
}

func (m *eventServiceMock) ListExceptions(ctx context.Context, parentID int64) ([]models.EventException, error) {
	return m.excListResp, nil
}

func (m *eventServiceMock) DeleteException(ctx context.Context, parentID, excID int64) error {
	return m.deleteExcErr
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != nil {
		reader = bytes.NewBuffer(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestEventHandlerCreate(t *testing.T) {
	mockSvc := &eventServiceMock{createResp: &dto.EventResponse{
		CalendarEvent: models.CalendarEvent{ID: 1, Title: "Standup"},
	}}
	handler := NewEventHandler(mockSvc)

	body, _ := json.Marshal(map[string]interface{}{
		"title":          "Standup",
		"start_datetime": time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	c, w := testContext(t, http.MethodPost, "/calendar/events", body)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
	assert.Contains(t, w.Body.String(), `"title":"Standup"`)
}

func TestEventHandlerCreateInvalidBody(t *testing.T) {
	handler := NewEventHandler(&eventServiceMock{})

	c, w := testContext(t, http.MethodPost, "/calendar/events", []byte(`{"title":`))
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerCreateServiceError(t *testing.T) {
	mockSvc := &eventServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "End datetime must be after start datetime")}
	handler := NewEventHandler(mockSvc)

	body, _ := json.Marshal(map[string]interface{}{
		"title":          "Backwards",
		"start_datetime": time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	c, w := testContext(t, http.MethodPost, "/calendar/events", body)
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "End datetime must be after start datetime")
}

func TestEventHandlerGetInvalidID(t *testing.T) {
	handler := NewEventHandler(&eventServiceMock{})

	c, w := testContext(t, http.MethodGet, "/calendar/events/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerGetNotFound(t *testing.T) {
	handler := NewEventHandler(&eventServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "event not found")})

	c, w := testContext(t, http.MethodGet, "/calendar/events/99", nil)
	c.Params = gin.Params{{Key: "id", Value: "99"}}
	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventHandlerListParsesQuery(t *testing.T) {
	mockSvc := &eventServiceMock{}
	handler := NewEventHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/calendar/events?start_date=2024-03-01&end_date=2024-03-31&task_id=7&include_tasks=true", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastListReq.StartDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *mockSvc.lastListReq.StartDate)
	require.NotNil(t, mockSvc.lastListReq.TaskID)
	assert.Equal(t, int64(7), *mockSvc.lastListReq.TaskID)
	assert.True(t, mockSvc.lastListReq.IncludeTasks)
}

func TestEventHandlerListBadDate(t *testing.T) {
	handler := NewEventHandler(&eventServiceMock{})

	c, w := testContext(t, http.MethodGet, "/calendar/events?start_date=03-01-2024", nil)
	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerDeleteForwardsSeriesFlag(t *testing.T) {
	mockSvc := &eventServiceMock{deleteResp: &dto.DeleteEventResponse{Success: true, Message: "Recurring event deleted"}}
	handler := NewEventHandler(mockSvc)

	c, w := testContext(t, http.MethodDelete, "/calendar/events/2?delete_series=true", nil)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), mockSvc.lastDeleteID)
	assert.True(t, mockSvc.lastSeriesFlag)
}

func TestEventHandlerCreateException(t *testing.T) {
	mockSvc := &eventServiceMock{excResp: &models.EventException{ID: 11, ParentEventID: 2, Cancelled: true}}
	handler := NewEventHandler(mockSvc)

	body, _ := json.Marshal(dto.CreateExceptionRequest{ExceptionDate: "2024-03-13", Cancelled: true})
	c, w := testContext(t, http.MethodPost, "/calendar/events/2/exceptions", body)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.CreateException(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelled":true`)
}

func TestEventHandlerDeleteException(t *testing.T) {
	handler := NewEventHandler(&eventServiceMock{})

	c, w := testContext(t, http.MethodDelete, "/calendar/events/2/exceptions/11", nil)
	c.Params = gin.Params{{Key: "id", Value: "2"}, {Key: "excID", Value: "11"}}
	handler.DeleteException(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}
