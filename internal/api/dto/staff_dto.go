package dto

import (
	"time"

	"github.com/spec-kit/campus-console/internal/backend"
	"github.com/spec-kit/campus-console/internal/domain"
)

// StaffRefreshRequest is the server-side query of a reload.
type StaffRefreshRequest struct {
	Role       string `json:"role" validate:"omitempty,max=64"`
	Department string `json:"department" validate:"omitempty,max=64"`
	Status     string `json:"status" validate:"omitempty,oneof=active inactive pending"`
	Search     string `json:"search" validate:"omitempty,max=128"`
}

// StaffUpdateRequest carries the edited fields. Omitted fields are unchanged.
type StaffUpdateRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=128"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Title      *string `json:"title" validate:"omitempty,max=128"`
	Department *string `json:"department" validate:"omitempty,max=64"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
}

// Update converts the request to the backend payload.
func (r StaffUpdateRequest) Update() backend.StaffUpdate {
	return backend.StaffUpdate{
		Name:       r.Name,
		Email:      r.Email,
		Title:      r.Title,
		Department: r.Department,
		Phone:      r.Phone,
	}
}

// RoleResponse is a role granted to a member.
type RoleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StaffResponse is one directory entry as held by the console.
type StaffResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Title      string         `json:"title,omitempty"`
	Department string         `json:"department"`
	Phone      string         `json:"phone,omitempty"`
	Roles      []RoleResponse `json:"roles"`
	Status     domain.Status  `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	Version    int64          `json:"version"`
	Pending    bool           `json:"pending"`
}

// NewStaffResponse maps the domain view.
func NewStaffResponse(s domain.StaffMember) StaffResponse {
	roles := make([]RoleResponse, 0, len(s.Roles))
	for _, r := range s.Roles {
		roles = append(roles, RoleResponse{ID: r.ID, Name: r.Name})
	}
	return StaffResponse{
		ID:         s.ID,
		Name:       s.Name,
		Email:      s.Email,
		Title:      s.Title,
		Department: s.Department,
		Phone:      s.Phone,
		Roles:      roles,
		Status:     s.Status,
		CreatedAt:  s.CreatedAt,
		Version:    s.Version,
		Pending:    s.Pending,
	}
}
