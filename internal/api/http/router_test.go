package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/api/http/handlers"
	"github.com/spec-kit/campus-console/internal/auth"
	"github.com/spec-kit/campus-console/internal/backend"
	"github.com/spec-kit/campus-console/internal/config"
	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/mutation"
	"github.com/spec-kit/campus-console/internal/notification"
	"github.com/spec-kit/campus-console/internal/observability"
	"github.com/spec-kit/campus-console/internal/persistence"
	"github.com/spec-kit/campus-console/internal/service"
	"github.com/spec-kit/campus-console/internal/store"
)

type upstream struct {
	mu       sync.Mutex
	decide   int
	sessions []string
}

func (u *upstream) handler() nethttp.Handler {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("GET /admin/enrollments", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		u.record(r)
		_, _ = io.WriteString(w, `{"enrollments":[
			{"id":"E1","status":"PENDING","studentName":"Ada Lovelace","courseCode":"CS101","department":"CS","createdAt":"2026-09-01T09:00:00Z","version":1},
			{"id":"E2","status":"PENDING","studentName":"Alan Turing","courseCode":"CS102","department":"CS","createdAt":"2026-09-02T09:00:00Z","version":1}
		]}`)
	})
	mux.HandleFunc("PATCH /admin/enrollments/E1/decide", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		u.record(r)
		_, _ = io.WriteString(w, `{"status":"APPROVED","version":5}`)
	})
	mux.HandleFunc("PATCH /admin/enrollments/E2/decide", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		u.record(r)
		w.WriteHeader(nethttp.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"registrar offline"}`)
	})
	mux.HandleFunc("GET /admin/staff", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		u.record(r)
		_, _ = io.WriteString(w, `{"staff":[{"id":"S1","name":"Grace","email":"grace@campus.edu","status":"active","createdAt":"2026-01-01T00:00:00Z"}]}`)
	})
	mux.HandleFunc("PATCH /admin/staff/S1/toggle-status", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		u.record(r)
		_, _ = io.WriteString(w, `{"status":"inactive"}`)
	})
	return mux
}

func (u *upstream) record(r *nethttp.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sessions = append(u.sessions, r.Header.Get("Authorization"))
	if strings.HasSuffix(r.URL.Path, "/decide") {
		u.decide++
	}
}

type testServer struct {
	app      *fiber.App
	upstream *upstream
	bus      *notification.Bus
	token    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	t.Cleanup(srv.Close)

	client := backend.New(srv.URL, "service-token", time.Second, nil)
	bus := notification.NewBus()
	metrics := observability.NewMetrics()

	enrollStore := store.New(domain.KindEnrollment)
	enrollments := service.NewEnrollmentConsole(service.EnrollmentDependencies{
		Backend:     client,
		Store:       enrollStore,
		Coordinator: mutation.NewCoordinator(enrollStore, bus, nil, mutation.Config{Timeout: time.Second}),
	})
	staffStore := store.New(domain.KindStaff)
	staff := service.NewStaffConsole(service.StaffDependencies{
		Backend:     client,
		Store:       staffStore,
		Coordinator: mutation.NewCoordinator(staffStore, bus, nil, mutation.Config{Timeout: time.Second}),
	})
	require.NoError(t, enrollments.Refresh(context.Background(), nil))
	require.NoError(t, staff.Refresh(context.Background(), nil))

	tokens := auth.NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", Issuer: "campus-identity"})
	token, _, err := tokens.Issue("admin-1", "Admin", auth.RoleAdmin)
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("campus-console", "test", &persistence.JournalDB{}, nil, nil),
		Enrollments:    handlers.NewEnrollmentsHandler(enrollments),
		Staff:          handlers.NewStaffHandler(staff),
		Notifications:  handlers.NewNotificationsHandler(bus),
		Mutations:      handlers.NewMutationsHandler(nil),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &testServer{app: app, upstream: up, bus: bus, token: token}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestListEnrollmentsNewestFirst(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/console/enrollments?status=PENDING", "")
	require.Equal(t, nethttp.StatusOK, status)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "E2", data[0].(map[string]any)["id"])
}

func TestDecisionCommitForwardsSession(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/console/enrollments/E1/decision", `{"action":"APPROVE"}`)
	require.Equal(t, nethttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "APPROVED", data["status"])
	assert.Equal(t, float64(5), data["version"])
	assert.Equal(t, false, data["pending"])

	s.upstream.mu.Lock()
	last := s.upstream.sessions[len(s.upstream.sessions)-1]
	s.upstream.mu.Unlock()
	assert.Equal(t, "Bearer "+s.token, last)
}

func TestDecisionFailureRollsBackAndNotifies(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/console/enrollments/E2/decision", `{"action":"REJECT","note":"full"}`)
	assert.Equal(t, nethttp.StatusBadGateway, status)
	assert.Equal(t, "UPSTREAM_FAILED", errorCode(body))

	_, body = s.do(t, nethttp.MethodGet, "/console/enrollments/E2", "")
	assert.Equal(t, "PENDING", body["data"].(map[string]any)["status"])

	_, body = s.do(t, nethttp.MethodGet, "/console/notifications", "")
	notes := body["data"].([]any)
	require.Len(t, notes, 1)
	note := notes[0].(map[string]any)
	assert.Equal(t, "error", note["kind"])
	assert.Contains(t, note["message"], "registrar offline")

	status, _ = s.do(t, nethttp.MethodDelete, "/console/notifications/"+note["handle"].(string), "")
	assert.Equal(t, nethttp.StatusNoContent, status)
	assert.Empty(t, s.bus.List())
}

func TestDecisionValidation(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/console/enrollments/E1/decision", `{"action":"MAYBE"}`)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	assert.Zero(t, s.upstream.decide)

	status, body = s.do(t, nethttp.MethodPost, "/console/enrollments/nope/decision", `{"action":"APPROVE"}`)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestToggleStaffStatus(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/console/staff/S1/toggle-status", "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "inactive", body["data"].(map[string]any)["status"])
}

func TestConsoleRequiresToken(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/console/staff", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestMutationsJournalDisabled(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/console/mutations", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, status)
	assert.Equal(t, "JOURNAL_DISABLED", errorCode(body))
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/console/nothing-here", "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	_, _ = s.do(t, nethttp.MethodGet, "/console/staff", "")
	resp, err = s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "console_http_requests_total")
}
