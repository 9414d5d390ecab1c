package app_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridebook/internal/app"
	"ridebook/internal/auth"
	"ridebook/internal/domain"
	"ridebook/internal/handler"
	"ridebook/internal/service"
	"ridebook/internal/tests"
)

type apiFixture struct {
	router *gin.Engine
	store  *tests.MockStore
	tokens map[string]string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := tests.NewMockStore()
	cache := tests.NewMockStatusCache()
	logger := tests.DiscardLogger()
	jwtSvc := auth.NewJWTService("test-secret", "ridebook", time.Hour)

	notifier := service.NewNotificationService(&tests.MockPublisher{}, logger)
	ledger := service.NewLedgerService(store, logger)
	users := service.NewUserService(store, ledger, logger)
	rides := service.NewRideService(store, cache, decimal.Zero, logger)
	lifecycle := service.NewLifecycleService(store, notifier, cache, nil, decimal.Zero, logger)

	router := app.NewRouter(app.RouterDeps{
		RideHandler: handler.NewRideHandler(rides, lifecycle),
		UserHandler: handler.NewUserHandler(users),
		TokenParser: jwtSvc,
		Logger:      logger,
	})

	f := &apiFixture{router: router, store: store, tokens: make(map[string]string)}
	for id, role := range map[string]domain.Role{
		"customer-1": domain.RoleCustomer,
		"rider-1":    domain.RoleRider,
		"rider-2":    domain.RoleRider,
		"staff-1":    domain.RoleStaff,
	} {
		balance := "0.00"
		if role == domain.RoleCustomer {
			balance = "500.00"
		}
		u := store.AddUser(id, role, balance)
		token, err := jwtSvc.GenerateToken(u)
		require.NoError(t, err)
		f.tokens[id] = token
	}
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, as string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+f.tokens[as])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *apiFixture) requestRide(t *testing.T, price string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/v1/rides", "customer-1", map[string]any{
		"pickup":      "CLARK_MAIN",
		"destination": "SM_CLARK",
		"price":       price,
		"description": "two bags",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[handler.TransitionResponse](t, w)
	return res.Ride.ID
}

func TestHealth(t *testing.T) {
	f := newAPI(t)
	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	f := newAPI(t)
	w := f.do(t, http.MethodGet, "/v1/rides", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_FullRideLifecycle(t *testing.T) {
	f := newAPI(t)
	rideID := f.requestRide(t, "120.00")

	w := f.do(t, http.MethodGet, "/v1/rides/available", "rider-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	available := decode[[]handler.RideResponse](t, w)
	require.Len(t, available, 1)
	assert.Equal(t, "Clark Main Gate", available[0].PickupName)

	w = f.do(t, http.MethodPost, "/v1/rides/"+rideID+"/accept", "rider-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[handler.TransitionResponse](t, w)
	assert.Equal(t, "ACCEPTED", accepted.Ride.Status)
	assert.Equal(t, "rider-1", accepted.Ride.RiderID)

	w = f.do(t, http.MethodPost, "/v1/rides/"+rideID+"/accept", "rider-2", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, step := range []string{"arrive", "start"} {
		w = f.do(t, http.MethodPost, "/v1/rides/"+rideID+"/"+step, "rider-1", map[string]string{"description": step})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/v1/rides/"+rideID+"/complete", "rider-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	completed := decode[handler.TransitionResponse](t, w)
	assert.Equal(t, "COMPLETED", completed.Ride.Status)
	require.NotNil(t, completed.Transfer)
	assert.Equal(t, "120.00", completed.Transfer.Amount)
	assert.Equal(t, domain.RidePayoutReference(rideID), completed.Transfer.Reference)

	w = f.do(t, http.MethodGet, "/v1/rides/"+rideID+"/status", "customer-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[handler.StatusResponse](t, w)
	assert.Equal(t, "COMPLETED", status.Status)
	assert.Equal(t, 5, status.EventCount)
	assert.True(t, status.HistoryConsistent)
	require.NotNil(t, status.CustomerBalance)
	require.NotNil(t, status.RiderBalance)
	assert.Equal(t, "380.00", *status.CustomerBalance)
	assert.Equal(t, "120.00", *status.RiderBalance)
	assert.Empty(t, status.AllowedActions)

	w = f.do(t, http.MethodGet, "/v1/rides/"+rideID+"/events", "rider-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[[]handler.EventResponse](t, w)
	require.Len(t, events, 5)
	assert.Equal(t, 1, events[0].Step)
	assert.Equal(t, "two bags", events[0].Description)
	assert.Equal(t, 5, events[4].Step)
}

func TestAPI_CompleteWithoutFunds(t *testing.T) {
	f := newAPI(t)
	rideID := f.requestRide(t, "600.00")

	for _, step := range []string{"accept", "start"} {
		w := f.do(t, http.MethodPost, "/v1/rides/"+rideID+"/"+step, "rider-1", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodPost, "/v1/rides/"+rideID+"/complete", "rider-1", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, domain.RideStatusOngoing, f.store.Ride(rideID).Status)
	assert.True(t, f.store.Balance("customer-1").Equal(decimal.RequireFromString("500.00")))
}

func TestAPI_ErrorMapping(t *testing.T) {
	f := newAPI(t)
	rideID := f.requestRide(t, "80.00")

	tests := []struct {
		name   string
		method string
		path   string
		as     string
		body   any
		want   int
	}{
		{name: "unknown ride", method: http.MethodGet, path: "/v1/rides/nope", as: "staff-1", want: http.StatusNotFound},
		{name: "well-formed unknown ride", method: http.MethodGet, path: "/v1/rides/7d3c3f0e-9d8a-4c43-8a57-2f6f7f7f0a11", as: "staff-1", want: http.StatusNotFound},
		{name: "malformed id status", method: http.MethodGet, path: "/v1/rides/abc/status", as: "customer-1", want: http.StatusNotFound},
		{name: "malformed id accept", method: http.MethodPost, path: "/v1/rides/abc/accept", as: "rider-1", want: http.StatusNotFound},
		{name: "malformed id events", method: http.MethodGet, path: "/v1/rides/abc/events", as: "customer-1", want: http.StatusNotFound},
		{name: "malformed id delete", method: http.MethodDelete, path: "/v1/rides/abc", as: "customer-1", want: http.StatusNotFound},
		{name: "price below floor", method: http.MethodPost, path: "/v1/rides", as: "customer-1",
			body: map[string]any{"pickup": "CLARK_MAIN", "destination": "SM_CLARK", "price": "10"}, want: http.StatusBadRequest},
		{name: "same endpoints", method: http.MethodPost, path: "/v1/rides", as: "customer-1",
			body: map[string]any{"pickup": "CLARK_MAIN", "destination": "CLARK_MAIN", "price": "80"}, want: http.StatusBadRequest},
		{name: "rider cannot request", method: http.MethodPost, path: "/v1/rides", as: "rider-1",
			body: map[string]any{"pickup": "CLARK_MAIN", "destination": "SM_CLARK", "price": "80"}, want: http.StatusConflict},
		{name: "malformed body", method: http.MethodPost, path: "/v1/rides", as: "customer-1", body: "not an object", want: http.StatusBadRequest},
		{name: "drop before accept", method: http.MethodPost, path: "/v1/rides/" + rideID + "/drop", as: "customer-1", want: http.StatusConflict},
		{name: "outsider cancels", method: http.MethodPost, path: "/v1/rides/" + rideID + "/cancel", as: "rider-2", want: http.StatusForbidden},
		{name: "customer lists users", method: http.MethodGet, path: "/v1/users", as: "customer-1", want: http.StatusForbidden},
		{name: "recent events bad limit", method: http.MethodGet, path: "/v1/events/recent?limit=x", as: "staff-1", want: http.StatusBadRequest},
		{name: "unknown status filter", method: http.MethodGet, path: "/v1/rides?status=LOST", as: "staff-1", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.as, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAPI_EditAndDeletePendingRide(t *testing.T) {
	f := newAPI(t)
	rideID := f.requestRide(t, "80.00")

	w := f.do(t, http.MethodPut, "/v1/rides/"+rideID, "customer-1", map[string]any{
		"pickup":         "CLARK_AIRPORT",
		"destination":    "FONTANA",
		"price":          "95.50",
		"total_distance": "12.40",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[handler.RideResponse](t, w)
	assert.Equal(t, "CLARK_AIRPORT", updated.Pickup)
	assert.Equal(t, "95.50", updated.Price)
	assert.Equal(t, "12.40", updated.TotalDistance)

	w = f.do(t, http.MethodDelete, "/v1/rides/"+rideID, "customer-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, f.store.Ride(rideID))
}

func TestAPI_StaffUserManagement(t *testing.T) {
	f := newAPI(t)

	w := f.do(t, http.MethodPost, "/v1/users/register", "staff-1", map[string]any{
		"username":   "jdoe",
		"first_name": "Jane",
		"last_name":  "Doe",
		"role":       "RIDER",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[handler.UserResponse](t, w)
	assert.Equal(t, "0.00", created.Balance)

	w = f.do(t, http.MethodPost, "/v1/users/register", "staff-1", map[string]any{
		"username": "jdoe", "first_name": "Jane", "last_name": "Doe", "role": "RIDER",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/v1/users/"+created.ID+"/balance", "staff-1", map[string]any{"amount": "25.75"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "25.75", decode[handler.UserResponse](t, w).Balance)

	w = f.do(t, http.MethodPost, "/v1/users/"+created.ID+"/balance", "staff-1", map[string]any{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/v1/users?role=RIDER", "staff-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]handler.UserResponse](t, w), 3)
}

func TestAPI_MalformedRideIDReportsNotFound(t *testing.T) {
	f := newAPI(t)

	w := f.do(t, http.MethodGet, "/v1/rides/abc/status", "customer-1", nil)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	body := decode[handler.ErrorResponse](t, w)
	assert.Equal(t, "not_found", body.Code)
	assert.NotEqual(t, "internal server error", body.Error)
}

func TestAPI_UserStats(t *testing.T) {
	f := newAPI(t)
	rideID := f.requestRide(t, "120.00")
	for _, step := range []string{"accept", "start", "complete"} {
		w := f.do(t, http.MethodPost, "/v1/rides/"+rideID+"/"+step, "rider-1", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodGet, "/v1/users/rider-1/stats", "rider-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[handler.StatsResponse](t, w)
	assert.Equal(t, "RIDER", stats.Role)
	assert.Equal(t, 1, stats.CompletedRides)
	assert.Equal(t, "120.00", stats.Amount)

	w = f.do(t, http.MethodGet, "/v1/users/rider-1/stats", "customer-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
