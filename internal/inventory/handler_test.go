package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketblitz/internal/pkg/ginutil"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).Register(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReserveEndpoint(t *testing.T) {
	store := newMemStore(testEvent(1, 5))
	r := newTestRouter(newTestService(store, newMemCache()))

	w := doRequest(t, r, http.MethodPost, "/inventory/1/reserve?count=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out["reserved"])
	assert.Equal(t, 3, store.events[1].AvailableTickets)
}

func TestReserveEndpointSoldOut(t *testing.T) {
	r := newTestRouter(newTestService(newMemStore(testEvent(1, 1)), newMemCache()))

	w := doRequest(t, r, http.MethodPost, "/inventory/1/reserve?count=2", "")
	require.Equal(t, http.StatusOK, w.Code, "sold out is a business outcome, not an HTTP error")

	var out map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.False(t, out["reserved"])
}

func TestReserveEndpointErrors(t *testing.T) {
	r := newTestRouter(newTestService(newMemStore(testEvent(1, 5)), newMemCache()))

	cases := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"bad id", "/inventory/abc/reserve?count=1", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing count", "/inventory/1/reserve", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"zero count", "/inventory/1/reserve?count=0", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown event", "/inventory/9/reserve?count=1", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, r, http.MethodPost, tc.path, "")
			assert.Equal(t, tc.status, w.Code)

			var body ginutil.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, string(body.Code))
		})
	}
}

func TestReleaseEndpoint(t *testing.T) {
	store := newMemStore(testEvent(1, 5))
	store.events[1].AvailableTickets = 2
	r := newTestRouter(newTestService(store, newMemCache()))

	w := doRequest(t, r, http.MethodPut, "/inventory/1/release?count=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, store.events[1].AvailableTickets)
}

func TestCreateAndGetEvent(t *testing.T) {
	r := newTestRouter(newTestService(newMemStore(), newMemCache()))

	w := doRequest(t, r, http.MethodPost, "/events", `{"title":"Club Show","price":"30.00","totalTickets":200}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 200, created.AvailableTickets)

	w = doRequest(t, r, http.MethodGet, "/events/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Club Show", got.Title)
}

func TestCreateEventMalformedBody(t *testing.T) {
	r := newTestRouter(newTestService(newMemStore(), newMemCache()))

	w := doRequest(t, r, http.MethodPost, "/events", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEvents(t *testing.T) {
	store := newMemStore(testEvent(1, 5), testEvent(2, 8))
	r := newTestRouter(newTestService(store, newMemCache()))

	w := doRequest(t, r, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out, 2)
}
