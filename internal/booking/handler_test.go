package booking

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

func doRequest(t *testing.T, r *gin.Engine, method, path, body, authToken string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookTicketEndpoint(t *testing.T) {
	store := newMemStore()
	ob := &memOutbox{}
	r := newTestRouter(newTestService(store, ob, &fakeUsers{valid: true}, happyInventory()))

	w := doRequest(t, r, http.MethodPost, "/bookings", `{"userId":1,"eventId":2,"ticketCount":3}`, "Bearer tok")
	require.Equal(t, http.StatusCreated, w.Code)

	var b Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, StatusPending, b.Status)
	assert.NotZero(t, b.ID)
	assert.Len(t, ob.payloads, 1, "booking.created is queued alongside the row")
}

func TestBookTicketEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		users  *fakeUsers
		inv    *fakeInventory
		body   string
		status int
		code   string
	}{
		{
			"malformed body",
			&fakeUsers{valid: true}, happyInventory(),
			`{broken`, http.StatusBadRequest, "VALIDATION_ERROR",
		},
		{
			"unknown user",
			&fakeUsers{valid: false}, happyInventory(),
			`{"userId":9,"eventId":2,"ticketCount":1}`, http.StatusUnprocessableEntity, "INVALID_USER",
		},
		{
			"sold out",
			&fakeUsers{valid: true}, &fakeInventory{event: happyInventory().event, reserved: false},
			`{"userId":1,"eventId":2,"ticketCount":1}`, http.StatusConflict, "SOLD_OUT",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(newTestService(newMemStore(), &memOutbox{}, tc.users, tc.inv))

			w := doRequest(t, r, http.MethodPost, "/bookings", tc.body, "")
			assert.Equal(t, tc.status, w.Code)

			var body ginutil.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, string(body.Code))
		})
	}
}

func TestGetBookingEndpoint(t *testing.T) {
	store := newMemStore()
	store.bookings[7] = &Booking{ID: 7, Status: StatusConfirmed}
	r := newTestRouter(newTestService(store, &memOutbox{}, &fakeUsers{valid: true}, happyInventory()))

	w := doRequest(t, r, http.MethodGet, "/bookings/7", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var b Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, StatusConfirmed, b.Status)

	w = doRequest(t, r, http.MethodGet, "/bookings/8", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
