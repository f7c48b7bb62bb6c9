package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-console/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "service-token", time.Second, nil)
}

func TestListEnrollmentsSendsQueryAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/admin/enrollments", r.URL.Path)
		assert.Equal(t, "PENDING", r.URL.Query().Get("status"))
		assert.False(t, r.URL.Query().Has("search"))
		assert.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"enrollments":[{"id":"E1","status":"PENDING","studentName":"Ada","courseCode":"CS101","credits":3,
			"advisor":{"id":"A1","name":"Dr. Knuth"},"createdAt":"2026-09-01T09:00:00Z"}]}`))
	})

	recs, err := c.ListEnrollments(context.Background(), EnrollmentQuery{Status: "PENDING"})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	e := domain.EnrollmentFromRecord(recs[0])
	assert.Equal(t, "E1", e.ID)
	assert.Equal(t, domain.KindEnrollment, recs[0].Kind)
	assert.Equal(t, 3, e.Credits)
	require.NotNil(t, e.Advisor)
	assert.Equal(t, "A1", e.Advisor.ID)
	assert.Equal(t, 2026, e.CreatedAt.Year())
}

func TestSessionTokenOverridesServiceToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-jwt", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"enrollment":{"id":"E2","status":"APPROVED"}}`))
	})

	rec, err := c.GetEnrollment(WithSession(context.Background(), "admin-jwt"), "E2")
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentStatusApproved, rec.Status)
}

func TestDecideEnrollmentBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/admin/enrollments/E1/decide", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"action": "REJECT", "note": "full"}, body)
		_, _ = w.Write([]byte(`{"status":"REJECTED","version":4}`))
	})

	res, err := c.DecideEnrollment(context.Background(), "E1", domain.DecisionReject, "full")
	require.NoError(t, err)
	assert.Equal(t, StatusResult{Status: domain.EnrollmentStatusRejected, Version: 4}, res)
}

func TestNon2xxBecomesHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"database unavailable"}`))
	})

	_, err := c.ToggleStaffStatus(context.Background(), "S1")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, "database unavailable", httpErr.Message)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestNotFoundMatchesSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"no such staff"}}`))
	})

	_, err := c.GetStaff(context.Background(), "S9")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "no such staff")
}

func TestUpdateStaffSendsOnlySetFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"title": "Registrar"}, body)
		_, _ = w.Write([]byte(`{"name":"Grace","title":"Registrar","status":"active","roles":[{"id":"r1","name":"Advisor"}]}`))
	})
	title := "Registrar"

	rec, err := c.UpdateStaff(context.Background(), "S1", StaffUpdate{Title: &title})
	require.NoError(t, err)

	s := domain.StaffMemberFromRecord(rec)
	assert.Equal(t, "S1", s.ID)
	assert.Equal(t, "Registrar", s.Title)
	assert.True(t, s.HasRole("Advisor"))
}

func TestDeadlineSurfacesAsContextError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.AssignAdvisor(ctx, "E1", "A2")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStaffUpdateFields(t *testing.T) {
	name, phone := "Grace", "555"
	assert.Equal(t, map[string]any{
		domain.FieldName:  "Grace",
		domain.FieldPhone: "555",
	}, StaffUpdate{Name: &name, Phone: &phone}.Fields())
}
