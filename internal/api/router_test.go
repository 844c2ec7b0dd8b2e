package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/auth"
	"github.com/hackgods/steammaster-scheduling/internal/booking"
	"github.com/hackgods/steammaster-scheduling/internal/catalog"
	"github.com/hackgods/steammaster-scheduling/internal/logging"
	"github.com/hackgods/steammaster-scheduling/internal/loyalty"
	"github.com/hackgods/steammaster-scheduling/internal/metrics"
	"github.com/hackgods/steammaster-scheduling/internal/notify"
	redisclient "github.com/hackgods/steammaster-scheduling/internal/redis"
)

// upstream fakes the external booking API.
type upstream struct {
	mu       sync.Mutex
	cats     []catalog.Category
	svcs     []catalog.Service
	appts    []appointment.Appointment
	listErr  error
	patchErr error
	seq      int
}

func (u *upstream) ListCategories(context.Context) ([]catalog.Category, error) {
	return u.cats, nil
}

func (u *upstream) ListServices(context.Context) ([]catalog.Service, error) {
	return u.svcs, nil
}

func (u *upstream) ListAppointments(_ context.Context, f appointment.Filter) ([]appointment.Appointment, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.listErr != nil {
		return nil, u.listErr
	}
	out := make([]appointment.Appointment, 0)
	for _, a := range u.appts {
		if !f.Date.IsZero() && a.AppointmentDate.String() != f.Date.String() {
			continue
		}
		if f.CustomerEmail != "" && a.CustomerEmail != f.CustomerEmail {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (u *upstream) CreateAppointment(_ context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seq++
	a := appointment.Appointment{
		ID:              "created-" + string(rune('0'+u.seq)),
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		TotalPrice:      req.TotalPrice,
		Status:          appointment.StatusScheduled,
	}
	u.appts = append(u.appts, a)
	return &a, nil
}

func (u *upstream) PatchStatus(_ context.Context, id string, status appointment.Status) (*appointment.Appointment, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.patchErr != nil {
		return nil, u.patchErr
	}
	for i := range u.appts {
		if u.appts[i].ID == id {
			u.appts[i].Status = status
			a := u.appts[i]
			return &a, nil
		}
	}
	return nil, errors.New("404 not found")
}

type testEnv struct {
	handler  http.Handler
	appts    *appointment.Service
	upstream *upstream
	sender   *notify.StubEmailSender
	tokens   *auth.Tokens
}

func newTestEnv(t *testing.T, checks ...HealthCheck) *testEnv {
	t.Helper()

	day := appointment.NewDate(2026, time.March, 2)
	up := &upstream{
		cats: []catalog.Category{
			{ID: "p1", Name: "Utvändig tvätt"},
			{ID: "c1", Name: "Personbil", Parent: "p1"},
			{ID: "p2", Name: "Rekond"},
		},
		svcs: []catalog.Service{
			{ID: "s1", Name: "Sedan", Price: decimal.NewFromInt(499), Category: "c1"},
			{ID: "s2", Name: "SUV", Price: decimal.NewFromInt(699), Category: "p1"},
			{ID: "s3", Name: "Rekonditionering", Price: decimal.NewFromInt(2999), Category: "p2"},
		},
		appts: []appointment.Appointment{
			{ID: "a1", CustomerName: "Eva", CustomerEmail: "eva@example.com", AppointmentDate: day, AppointmentTime: "10:00", ServiceNames: []string{"Sedan"}, Status: appointment.StatusScheduled},
			{ID: "a2", CustomerName: "Olle", CustomerEmail: "olle@example.com", AppointmentDate: day, AppointmentTime: "09:00", ServiceNames: []string{"SUV"}, Status: appointment.StatusAttended},
		},
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := logging.Discard()

	appts := appointment.NewService(up, appointment.NewStore(), m, logger)
	sender := notify.NewStubEmailSender(logger)
	tokens := auth.NewTokens("test-secret", time.Hour)

	handler := NewRouter(RouterConfig{
		Appointments: appts,
		Catalog:      catalog.New(up, m),
		Booking:      booking.NewService(up, redisclient.NewRedisSlotLocker(rdb, 5*time.Second), booking.DefaultHours(), m, logger),
		Loyalty:      loyalty.NewService(appts, loyalty.NewMemoryStorage(), m, logger),
		OTP:          auth.NewOTPService(auth.NewMemoryCodeStore(), sender, tokens, auth.OTPConfig{TTL: time.Minute}, m, logger),
		Tokens:       tokens,
		Checks:       checks,
		Gatherer:     reg,
		Logger:       logger,
		Env:          "test",
		Version:      "v-test",
	})
	return &testEnv{handler: handler, appts: appts, upstream: up, sender: sender, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t,
		HealthCheck{Name: "redis", Ping: func(context.Context) error { return nil }},
		HealthCheck{Name: "postgres", Ping: func(context.Context) error { return errors.New("down") }},
	)

	rec := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", resp.Dependencies["redis"])
	assert.Equal(t, "down", resp.Dependencies["postgres"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/catalog/categories", nil, "")

	rec := env.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "steammaster_")
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/catalog/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[CategoriesResponse](t, rec)
	require.Len(t, cats.Categories, 2)
	assert.Equal(t, "p1", cats.Categories[0].ID)

	rec = env.do(t, http.MethodGet, "/catalog/services?parent=p1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	svcs := decode[ServicesResponse](t, rec)
	require.Len(t, svcs.Services, 2)
	assert.True(t, decimal.NewFromInt(1198).Equal(svcs.Total))
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	req := BookingRequest{
		ParentCategoryID: "p1",
		ServiceIDs:       []string{"s1", "s2"},
		Name:             "Anna",
		Phone:            "0701111111",
		Email:            "anna@example.com",
		Address:          "Storgatan 1",
		Date:             "2099-05-04",
		Time:             "11:30",
	}

	rec := env.do(t, http.MethodPost, "/bookings", req, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[appointment.Appointment](t, rec)
	assert.Equal(t, "11:30", created.AppointmentTime)
	assert.True(t, decimal.NewFromInt(1198).Equal(created.TotalPrice))

	rec = env.do(t, http.MethodPost, "/bookings", req, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/bookings/slots?date=2099-05-04", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[SlotsResponse](t, rec)
	assert.NotContains(t, slots.Slots, "11:30")
	assert.Contains(t, slots.Slots, "12:00")
}

func TestBookingDuplicateServiceIDs(t *testing.T) {
	env := newTestEnv(t)
	req := BookingRequest{
		ParentCategoryID: "p1",
		ServiceIDs:       []string{"s1", "s1", "s2", "s1"},
		Name:             "Anna",
		Phone:            "0701111111",
		Email:            "anna@example.com",
		Address:          "Storgatan 1",
		Date:             "2099-05-04",
		Time:             "12:00",
	}

	rec := env.do(t, http.MethodPost, "/bookings", req, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[appointment.Appointment](t, rec)
	assert.True(t, decimal.NewFromInt(1198).Equal(created.TotalPrice), created.TotalPrice.String())
}

func TestBookingValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/bookings", BookingRequest{ParentCategoryID: "p1"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decode[ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/bookings", BookingRequest{ParentCategoryID: "p1", ServiceIDs: []string{"nope"}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_service", decode[ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodGet, "/bookings/slots?date=tomorrow", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.upstream.mu.Lock()
	assert.Len(t, env.upstream.appts, 2)
	env.upstream.mu.Unlock()
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/dashboard/appointments", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[AppointmentsResponse](t, rec)
	require.Len(t, list.Appointments, 2)
	assert.Equal(t, "a2", list.Appointments[0].ID, "sorted by time")
	assert.Equal(t, []string{"2026-03-02"}, list.Dates)

	rec = env.do(t, http.MethodGet, "/dashboard/summary", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[appointment.Summary](t, rec)
	assert.Equal(t, 2, sum.Metrics.Scheduled)
	assert.Equal(t, 1, sum.Metrics.Attended)

	rec = env.do(t, http.MethodGet, "/dashboard/kanban", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	kb := decode[KanbanResponse](t, rec)
	require.Len(t, kb.Columns, 4)
	assert.Len(t, kb.Columns[0].Appointments, 1)
	assert.Empty(t, kb.Columns[3].Appointments)

	rec = env.do(t, http.MethodGet, "/dashboard/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "appointments.json")
}

func TestDashboardStatusUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/dashboard/appointments", nil, "")

	rec := env.do(t, http.MethodPost, "/dashboard/appointments/a1/select", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, "/dashboard/appointments/a1/status", StatusUpdateRequest{Status: appointment.StatusNoShow}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, appointment.StatusNoShow, decode[appointment.Appointment](t, rec).Status)

	rec = env.do(t, http.MethodPatch, "/dashboard/appointments/a1/status", StatusUpdateRequest{Status: "done"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown upstream too, so the remote patch fails
	rec = env.do(t, http.MethodPatch, "/dashboard/appointments/zzz/status", StatusUpdateRequest{Status: appointment.StatusAttended}, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = env.do(t, http.MethodPost, "/dashboard/appointments/zzz/select", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.upstream.mu.Lock()
	env.upstream.patchErr = errors.New("boom")
	env.upstream.mu.Unlock()
	rec = env.do(t, http.MethodPatch, "/dashboard/appointments/a1/status", StatusUpdateRequest{Status: appointment.StatusAttended}, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "remote_update_failed", decode[ErrorResponse](t, rec).Error)

	// local state keeps the last successful status, selection included
	sel, ok := env.appts.Store().Selected()
	require.True(t, ok)
	assert.Equal(t, appointment.StatusNoShow, sel.Status)
	got, _ := env.appts.Store().Get("a1")
	assert.Equal(t, appointment.StatusNoShow, got.Status)
}

func TestDashboardFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.listErr = errors.New("timeout")

	rec := env.do(t, http.MethodGet, "/dashboard/appointments", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "fetch_failed", decode[ErrorResponse](t, rec).Error)
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/me/loyalty", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/me/loyalty", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/otp", OTPRequest{Email: "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/otp", OTPRequest{Email: "Eva@Example.com"}, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	sent := env.sender.Sent()
	require.Len(t, sent, 1)
	code := codePattern.FindString(sent[0].Body)
	require.NotEmpty(t, code)

	rec = env.do(t, http.MethodPost, "/auth/otp/verify", OTPVerifyRequest{Email: "eva@example.com", Code: "000000x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/otp/verify", OTPVerifyRequest{Email: "eva@example.com", Code: code}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[SessionResponse](t, rec)
	assert.Equal(t, "eva@example.com", session.Email)

	rec = env.do(t, http.MethodGet, "/me/bookings", nil, session.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[MyBookingsResponse](t, rec)
	require.Len(t, mine.Appointments, 1)
	assert.Equal(t, "a1", mine.Appointments[0].ID)

	rec = env.do(t, http.MethodGet, "/me/loyalty", nil, session.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	acc := decode[LoyaltyResponse](t, rec)
	assert.Equal(t, 20, acc.EarnedPoints)
	assert.Equal(t, 20, acc.Balance)

	rec = env.do(t, http.MethodPost, "/me/loyalty/redeem", RedeemRequest{Reward: "wash"}, session.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[loyalty.Redemption](t, rec).Accepted)

	rec = env.do(t, http.MethodPost, "/me/loyalty/redeem", RedeemRequest{Reward: "yacht"}, session.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/me/loyalty/invite", nil, session.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	acc = decode[LoyaltyResponse](t, rec)
	assert.Equal(t, loyalty.InviteBonus, acc.InvitePoints)
	assert.Equal(t, 70, acc.Balance)

	rec = env.do(t, http.MethodDelete, "/me/loyalty", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, "/me/loyalty", nil, session.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	acc = decode[LoyaltyResponse](t, rec)
	assert.Zero(t, acc.InvitePoints)
	assert.Equal(t, 20, acc.EarnedPoints)
	assert.Equal(t, 20, acc.Balance)
}

func TestDashboardStatusUpdateOutsideFilteredView(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/dashboard/appointments?date=2026-03-09", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, env.appts.Store().List())

	rec = env.do(t, http.MethodPatch, "/dashboard/appointments/a2/status", StatusUpdateRequest{Status: appointment.StatusCancelled}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[appointment.Appointment](t, rec)
	assert.Equal(t, "a2", got.ID)
	assert.Equal(t, "Olle", got.CustomerName)
	assert.Equal(t, appointment.StatusCancelled, got.Status)

	env.upstream.mu.Lock()
	defer env.upstream.mu.Unlock()
	assert.Equal(t, appointment.StatusCancelled, env.upstream.appts[1].Status)
}

func TestHandleErrorHidesInternalDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "debug")

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, errors.New("dial tcp 10.0.0.7:5432: password authentication failed"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me/loyalty", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "internal_error", body.Error)
	assert.Equal(t, "internal server error", body.Details)
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
	assert.Contains(t, buf.String(), "password authentication failed")
}
