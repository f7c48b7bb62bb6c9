package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-console/internal/persistence"
)

// PushStatus reports the push channel state.
type PushStatus interface {
	Connected() bool
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	serviceName string
	version     string
	journal     *persistence.JournalDB
	broker      *persistence.PushBroker
	push        PushStatus
}

// NewHealthHandler returns a new handler instance. Nil dependencies are
// reported as disabled and do not affect readiness.
func NewHealthHandler(serviceName, version string, journal *persistence.JournalDB, broker *persistence.PushBroker, push PushStatus) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, journal: journal, broker: broker, push: push}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	check := func(name string, enabled bool, ping func(context.Context) error) {
		if !enabled {
			depStatus[name] = "disabled"
			return
		}
		if err := ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			return
		}
		depStatus[name] = "ok"
	}
	check("journal", h.journal.Enabled(), h.journal.Ping)
	check("push_broker", h.broker != nil, h.broker.Ping)

	switch {
	case h.push == nil:
		depStatus["push"] = "disabled"
	case h.push.Connected():
		depStatus["push"] = "ok"
	default:
		depStatus["push"] = "disconnected"
		ready = false
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
