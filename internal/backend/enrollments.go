package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/spec-kit/campus-console/internal/domain"
)

// EnrollmentQuery is the server-side filter of an enrollment listing.
type EnrollmentQuery struct {
	Status     string
	Department string
	Search     string
}

func (q EnrollmentQuery) values() url.Values {
	v := url.Values{}
	setIf(v, "status", q.Status)
	setIf(v, "department", q.Department)
	setIf(v, "search", q.Search)
	return v
}

type enrollmentWire struct {
	ID          string             `json:"id"`
	Status      domain.Status      `json:"status"`
	StudentID   string             `json:"studentId"`
	StudentName string             `json:"studentName"`
	CourseCode  string             `json:"courseCode"`
	CourseTitle string             `json:"courseTitle"`
	Department  string             `json:"department"`
	Advisor     *domain.AdvisorRef `json:"advisor,omitempty"`
	Note        string             `json:"note,omitempty"`
	Credits     int                `json:"credits"`
	CreatedAt   time.Time          `json:"createdAt"`
	Version     int64              `json:"version,omitempty"`
}

func (w enrollmentWire) record() domain.Record {
	return domain.Enrollment{
		ID:          w.ID,
		Status:      w.Status,
		StudentID:   w.StudentID,
		StudentName: w.StudentName,
		CourseCode:  w.CourseCode,
		CourseTitle: w.CourseTitle,
		Department:  w.Department,
		Advisor:     w.Advisor,
		Note:        w.Note,
		Credits:     w.Credits,
		CreatedAt:   w.CreatedAt,
		Version:     w.Version,
	}.Record()
}

// ListEnrollments calls GET /admin/enrollments.
func (c *Client) ListEnrollments(ctx context.Context, q EnrollmentQuery) ([]domain.Record, error) {
	var resp struct {
		Enrollments []enrollmentWire `json:"enrollments"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/enrollments", q.values(), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Record, 0, len(resp.Enrollments))
	for _, w := range resp.Enrollments {
		out = append(out, w.record())
	}
	return out, nil
}

// GetEnrollment calls GET /admin/enrollments/:id.
func (c *Client) GetEnrollment(ctx context.Context, id string) (domain.Record, error) {
	var resp struct {
		Enrollment enrollmentWire `json:"enrollment"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/enrollments/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return domain.Record{}, err
	}
	return resp.Enrollment.record(), nil
}

// StatusResult is the body of decide and toggle responses.
type StatusResult struct {
	Status  domain.Status `json:"status"`
	Version int64         `json:"version,omitempty"`
}

// DecideEnrollment calls PATCH /admin/enrollments/:id/decide.
func (c *Client) DecideEnrollment(ctx context.Context, id string, action domain.DecisionAction, note string) (StatusResult, error) {
	body := map[string]string{"action": string(action)}
	if note != "" {
		body["note"] = note
	}
	var resp StatusResult
	err := c.do(ctx, http.MethodPatch, "/admin/enrollments/"+url.PathEscape(id)+"/decide", nil, body, &resp)
	return resp, err
}

// AssignAdvisor calls PATCH /admin/enrollments/:id/assign-advisor.
func (c *Client) AssignAdvisor(ctx context.Context, id, advisorID string) (domain.AdvisorRef, error) {
	body := map[string]string{"advisorId": advisorID}
	var resp struct {
		Advisor domain.AdvisorRef `json:"advisor"`
	}
	err := c.do(ctx, http.MethodPatch, "/admin/enrollments/"+url.PathEscape(id)+"/assign-advisor", nil, body, &resp)
	return resp.Advisor, err
}
