package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/spec-kit/campus-console/internal/domain"
)

// StaffQuery is the server-side filter of a staff listing.
type StaffQuery struct {
	Role       string
	Department string
	Status     string
	Search     string
}

func (q StaffQuery) values() url.Values {
	v := url.Values{}
	setIf(v, "role", q.Role)
	setIf(v, "department", q.Department)
	setIf(v, "status", q.Status)
	setIf(v, "search", q.Search)
	return v
}

type staffWire struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Title      string           `json:"title,omitempty"`
	Department string           `json:"department,omitempty"`
	Phone      string           `json:"phone,omitempty"`
	Roles      []domain.RoleRef `json:"roles,omitempty"`
	Status     domain.Status    `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	Version    int64            `json:"version,omitempty"`
}

func (w staffWire) record() domain.Record {
	return domain.StaffMember{
		ID:         w.ID,
		Name:       w.Name,
		Email:      w.Email,
		Title:      w.Title,
		Department: w.Department,
		Phone:      w.Phone,
		Roles:      w.Roles,
		Status:     w.Status,
		CreatedAt:  w.CreatedAt,
		Version:    w.Version,
	}.Record()
}

// StaffUpdate holds the editable staff fields. Nil fields are left unchanged.
type StaffUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Title      *string `json:"title,omitempty"`
	Department *string `json:"department,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// Fields returns the set fields keyed by record field name.
func (u StaffUpdate) Fields() map[string]any {
	out := map[string]any{}
	set := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	set(domain.FieldName, u.Name)
	set(domain.FieldEmail, u.Email)
	set(domain.FieldTitle, u.Title)
	set(domain.FieldDepartment, u.Department)
	set(domain.FieldPhone, u.Phone)
	return out
}

// ListStaff calls GET /admin/staff.
func (c *Client) ListStaff(ctx context.Context, q StaffQuery) ([]domain.Record, error) {
	var resp struct {
		Staff []staffWire `json:"staff"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/staff", q.values(), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Record, 0, len(resp.Staff))
	for _, w := range resp.Staff {
		out = append(out, w.record())
	}
	return out, nil
}

// GetStaff calls GET /admin/staff/:id, which answers {"staff": {...}}.
func (c *Client) GetStaff(ctx context.Context, id string) (domain.Record, error) {
	var resp struct {
		Staff staffWire `json:"staff"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/staff/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return domain.Record{}, err
	}
	return resp.Staff.record(), nil
}

// UpdateStaff calls PATCH /admin/staff/:id and returns the stored record.
func (c *Client) UpdateStaff(ctx context.Context, id string, u StaffUpdate) (domain.Record, error) {
	var resp staffWire
	if err := c.do(ctx, http.MethodPatch, "/admin/staff/"+url.PathEscape(id), nil, u, &resp); err != nil {
		return domain.Record{}, err
	}
	if resp.ID == "" {
		resp.ID = id
	}
	return resp.record(), nil
}

// ToggleStaffStatus calls PATCH /admin/staff/:id/toggle-status.
func (c *Client) ToggleStaffStatus(ctx context.Context, id string) (StatusResult, error) {
	var resp StatusResult
	err := c.do(ctx, http.MethodPatch, "/admin/staff/"+url.PathEscape(id)+"/toggle-status", nil, nil, &resp)
	return resp, err
}
