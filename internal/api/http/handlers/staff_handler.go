package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-console/internal/api/dto"
	"github.com/spec-kit/campus-console/internal/backend"
	"github.com/spec-kit/campus-console/internal/service"
)

// StaffHandler exposes the staff directory console.
type StaffHandler struct {
	console *service.StaffConsole
}

// NewStaffHandler constructs handler.
func NewStaffHandler(console *service.StaffConsole) *StaffHandler {
	return &StaffHandler{console: console}
}

// List handles GET /console/staff.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	items := h.console.List(filterFromQuery(c))
	out := make([]dto.StaffResponse, 0, len(items))
	for _, s := range items {
		out = append(out, dto.NewStaffResponse(s))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /console/staff/:id.
func (h *StaffHandler) Get(c *fiber.Ctx) error {
	s, err := h.console.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(s)})
}

// Refresh handles POST /console/staff/refresh.
func (h *StaffHandler) Refresh(c *fiber.Ctx) error {
	var req dto.StaffRefreshRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	q := backend.StaffQuery{Role: req.Role, Department: req.Department, Status: req.Status, Search: req.Search}
	if err := h.console.Refresh(c.UserContext(), &q); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Update handles PATCH /console/staff/:id.
func (h *StaffHandler) Update(c *fiber.Ctx) error {
	var req dto.StaffUpdateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	s, err := h.console.Update(c.UserContext(), c.Params("id"), req.Update())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(s)})
}

// ToggleStatus handles POST /console/staff/:id/toggle-status.
func (h *StaffHandler) ToggleStatus(c *fiber.Ctx) error {
	s, err := h.console.ToggleStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(s)})
}
