package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-console/internal/api/dto"
	"github.com/spec-kit/campus-console/internal/backend"
	"github.com/spec-kit/campus-console/internal/service"
)

// EnrollmentsHandler exposes the enrollment console.
type EnrollmentsHandler struct {
	console *service.EnrollmentConsole
}

// NewEnrollmentsHandler constructs handler.
func NewEnrollmentsHandler(console *service.EnrollmentConsole) *EnrollmentsHandler {
	return &EnrollmentsHandler{console: console}
}

// List handles GET /console/enrollments.
func (h *EnrollmentsHandler) List(c *fiber.Ctx) error {
	items := h.console.List(filterFromQuery(c))
	out := make([]dto.EnrollmentResponse, 0, len(items))
	for _, e := range items {
		out = append(out, dto.NewEnrollmentResponse(e))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /console/enrollments/:id.
func (h *EnrollmentsHandler) Get(c *fiber.Ctx) error {
	e, err := h.console.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEnrollmentResponse(e)})
}

// Refresh handles POST /console/enrollments/refresh.
func (h *EnrollmentsHandler) Refresh(c *fiber.Ctx) error {
	var req dto.EnrollmentRefreshRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	q := backend.EnrollmentQuery{Status: req.Status, Department: req.Department, Search: req.Search}
	if err := h.console.Refresh(c.UserContext(), &q); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Decide handles POST /console/enrollments/:id/decision.
func (h *EnrollmentsHandler) Decide(c *fiber.Ctx) error {
	var req dto.DecisionRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	e, err := h.console.Decide(c.UserContext(), c.Params("id"), req.Action, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEnrollmentResponse(e)})
}

// AssignAdvisor handles POST /console/enrollments/:id/advisor.
func (h *EnrollmentsHandler) AssignAdvisor(c *fiber.Ctx) error {
	var req dto.AssignAdvisorRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	e, err := h.console.AssignAdvisor(c.UserContext(), c.Params("id"), req.AdvisorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEnrollmentResponse(e)})
}
