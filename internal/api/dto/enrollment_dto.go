package dto

import (
	"time"

	"github.com/spec-kit/campus-console/internal/domain"
)

// EnrollmentRefreshRequest is the server-side query of a reload.
type EnrollmentRefreshRequest struct {
	Status     string `json:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED CANCELLED DROP"`
	Department string `json:"department" validate:"omitempty,max=64"`
	Search     string `json:"search" validate:"omitempty,max=128"`
}

// DecisionRequest approves or rejects an enrollment.
type DecisionRequest struct {
	Action domain.DecisionAction `json:"action" validate:"required,oneof=APPROVE REJECT"`
	Note   string                `json:"note" validate:"omitempty,max=500"`
}

// AssignAdvisorRequest payload.
type AssignAdvisorRequest struct {
	AdvisorID string `json:"advisor_id" validate:"required"`
}

// AdvisorResponse is the embedded advisor reference.
type AdvisorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// EnrollmentResponse is one enrollment as held by the console.
type EnrollmentResponse struct {
	ID          string           `json:"id"`
	Status      domain.Status    `json:"status"`
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name"`
	CourseCode  string           `json:"course_code"`
	CourseTitle string           `json:"course_title"`
	Department  string           `json:"department"`
	Advisor     *AdvisorResponse `json:"advisor,omitempty"`
	Note        string           `json:"note,omitempty"`
	Credits     int              `json:"credits"`
	CreatedAt   time.Time        `json:"created_at"`
	Version     int64            `json:"version"`
	Pending     bool             `json:"pending"`
}

// NewEnrollmentResponse maps the domain view.
func NewEnrollmentResponse(e domain.Enrollment) EnrollmentResponse {
	resp := EnrollmentResponse{
		ID:          e.ID,
		Status:      e.Status,
		StudentID:   e.StudentID,
		StudentName: e.StudentName,
		CourseCode:  e.CourseCode,
		CourseTitle: e.CourseTitle,
		Department:  e.Department,
		Note:        e.Note,
		Credits:     e.Credits,
		CreatedAt:   e.CreatedAt,
		Version:     e.Version,
		Pending:     e.Pending,
	}
	if e.Advisor != nil {
		resp.Advisor = &AdvisorResponse{ID: e.Advisor.ID, Name: e.Advisor.Name, Email: e.Advisor.Email}
	}
	return resp
}
