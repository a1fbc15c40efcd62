package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qserveu/config"
	"qserveu/internal/status"
	"qserveu/models"
	"qserveu/notify"
	"qserveu/services"
	"qserveu/store"
	"qserveu/utils"
)

// stubStore overrides only the store calls a given test path touches; the
// embedded interface panics on anything unexpected.
type stubStore struct {
	store.Store

	office        *models.Office
	active        *models.Ticket
	latest        *models.Ticket
	activeNumbers []string
	cancelMatched bool
	inserted      *models.Ticket
	feedback      *models.Feedback
}

func (s *stubStore) ActiveTicket(_ context.Context, _ string, _ time.Time) (*models.Ticket, error) {
	if s.active == nil {
		return nil, status.ErrNotFound
	}
	return s.active, nil
}

func (s *stubStore) LatestTicket(_ context.Context, _ string, _ time.Time) (*models.Ticket, error) {
	if s.latest == nil {
		return nil, status.ErrNotFound
	}
	copied := *s.latest
	return &copied, nil
}

func (s *stubStore) GetOffice(_ context.Context, _ string) (*models.Office, error) {
	if s.office == nil {
		return nil, status.ErrNotFound
	}
	return s.office, nil
}

func (s *stubStore) ActiveNumbers(_ context.Context, _ string) ([]string, error) {
	return s.activeNumbers, nil
}

func (s *stubStore) FreedNumbersSince(_ context.Context, _ string, _ time.Time) ([]string, error) {
	return nil, nil
}

func (s *stubStore) CountWaiting(_ context.Context, _ string) (int, error) {
	return len(s.activeNumbers), nil
}

func (s *stubStore) CountWaitingBefore(_ context.Context, _ string, _ time.Time) (int, error) {
	return len(s.activeNumbers), nil
}

func (s *stubStore) InsertTicket(_ context.Context, t *models.Ticket) error {
	t.ID = "ticket-1"
	s.inserted = t
	return nil
}

func (s *stubStore) MarkCancelled(_ context.Context, _, _, _ string, _ time.Time) (bool, error) {
	return s.cancelMatched, nil
}

func (s *stubStore) InsertFeedback(_ context.Context, f *models.Feedback) error {
	s.feedback = f
	return nil
}

func newTestHandlers(st store.Store, cfg *config.Config) (*QueueHandler, *FeedbackHandler, *notify.Manager) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queueService := services.NewQueueService(st, services.NewLocalLocker(), cfg, logger)
	pollers := notify.NewManager(context.Background(), queueService,
		func(string) []notify.Sink { return nil }, time.Minute, 0, logger)
	wifi := utils.NewWifiDetector()
	return NewQueueHandler(queueService, pollers, wifi, cfg), NewFeedbackHandler(queueService), pollers
}

func testConfig() *config.Config {
	return &config.Config{
		ActiveLookback: 24 * time.Hour,
		NumberCooldown: 10 * time.Minute,
	}
}

func jsonRequest(method, target, body string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("student_id", "stu-1")
	return rec, c
}

func TestQueueHandler_RequestTicket_Created(t *testing.T) {
	st := &stubStore{office: &models.Office{ID: "registrar", Name: "Registrar", QueuePrefix: "A"}}
	handler, _, pollers := newTestHandlers(st, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodPost, "/api/queue", `{"office_id":"registrar","purpose":"Transcript"}`)

	require.NoError(t, handler.RequestTicket(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Message string        `json:"message"`
		Ticket  models.Ticket `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Queue requested", body.Message)
	assert.Equal(t, "A001", body.Ticket.Number)
	assert.Equal(t, models.StatusWaiting, body.Ticket.Status)
	require.NotNil(t, st.inserted)
}

func TestQueueHandler_RequestTicket_MissingOffice(t *testing.T) {
	handler, _, pollers := newTestHandlers(&stubStore{}, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodPost, "/api/queue", `{"purpose":"Transcript"}`)

	require.NoError(t, handler.RequestTicket(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueHandler_RequestTicket_OfficeNotFound(t *testing.T) {
	handler, _, pollers := newTestHandlers(&stubStore{}, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodPost, "/api/queue", `{"office_id":"nowhere"}`)

	require.NoError(t, handler.RequestTicket(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueueHandler_RequestTicket_AlreadyQueuedConflict(t *testing.T) {
	st := &stubStore{
		office: &models.Office{ID: "registrar", Name: "Registrar", QueuePrefix: "A"},
		active: &models.Ticket{Number: "A004", Status: models.StatusWaiting, CreatedAt: time.Now().UTC()},
	}
	handler, _, pollers := newTestHandlers(st, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodPost, "/api/queue", `{"office_id":"registrar"}`)

	require.NoError(t, handler.RequestTicket(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "A004")
}

func TestQueueHandler_CurrentTicket_NullWhenNone(t *testing.T) {
	handler, _, pollers := newTestHandlers(&stubStore{}, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodGet, "/api/queue/current", "")

	require.NoError(t, handler.CurrentTicket(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "null", string(body["ticket"]))
}

func TestQueueHandler_CurrentTicket_Waiting(t *testing.T) {
	st := &stubStore{
		latest:        &models.Ticket{Number: "A005", OfficeID: "registrar", Status: models.StatusWaiting, CreatedAt: time.Now().UTC()},
		activeNumbers: []string{"A001", "A002"},
	}
	handler, _, pollers := newTestHandlers(st, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodGet, "/api/queue/current", "")

	require.NoError(t, handler.CurrentTicket(c))

	var body struct {
		Ticket models.Ticket `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "A005", body.Ticket.Number)
	assert.Equal(t, 2, body.Ticket.PeopleAhead)
}

func TestQueueHandler_CancelTicket_OK(t *testing.T) {
	handler, _, pollers := newTestHandlers(&stubStore{cancelMatched: true}, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodPost, "/api/queue/ticket-1/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("ticket-1")

	require.NoError(t, handler.CancelTicket(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cancelled successfully")
}

func TestQueueHandler_CancelTicket_Conflict(t *testing.T) {
	handler, _, pollers := newTestHandlers(&stubStore{cancelMatched: false}, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodPost, "/api/queue/ticket-1/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("ticket-1")

	require.NoError(t, handler.CancelTicket(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFeedbackHandler_Submit_RatingOutOfRange(t *testing.T) {
	_, handler, pollers := newTestHandlers(&stubStore{}, testConfig())
	defer pollers.Shutdown()

	for _, rating := range []int{0, 6, -1} {
		rec, c := jsonRequest(http.MethodPost, "/api/feedback",
			`{"office_id":"registrar","ticket_id":"t1","rating":`+strconv.Itoa(rating)+`}`)

		require.NoError(t, handler.Submit(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "rating %d accepted", rating)
	}
}

func TestFeedbackHandler_Submit_Created(t *testing.T) {
	st := &stubStore{}
	_, handler, pollers := newTestHandlers(st, testConfig())
	defer pollers.Shutdown()

	rec, c := jsonRequest(http.MethodPost, "/api/feedback",
		`{"office_id":"registrar","ticket_id":"t1","rating":5,"comment":"fast"}`)

	require.NoError(t, handler.Submit(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, st.feedback)
	assert.Equal(t, "stu-1", st.feedback.StudentID)
	assert.Equal(t, 5, st.feedback.Rating)
}
