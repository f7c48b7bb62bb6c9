package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-console/internal/api/dto"
	"github.com/spec-kit/campus-console/internal/notification"
	apperrors "github.com/spec-kit/campus-console/pkg/util/errorutil"
)

// NotificationsHandler exposes the notification stack.
type NotificationsHandler struct {
	bus *notification.Bus
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(bus *notification.Bus) *NotificationsHandler {
	return &NotificationsHandler{bus: bus}
}

// List handles GET /console/notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	items := h.bus.List()
	out := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, dto.NewNotificationResponse(n))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Dismiss handles DELETE /console/notifications/:handle.
func (h *NotificationsHandler) Dismiss(c *fiber.Ctx) error {
	handle, err := notification.ParseHandle(c.Params("handle"))
	if err != nil {
		return apperrors.NewValidationError("invalid notification handle", map[string]any{"handle": c.Params("handle")})
	}
	if !h.bus.Dismiss(handle) {
		return apperrors.NewNotFound("notification", map[string]any{"handle": handle.String()})
	}
	return c.SendStatus(http.StatusNoContent)
}
