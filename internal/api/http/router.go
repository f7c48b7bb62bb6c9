package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/campus-console/internal/api/http/handlers"
	"github.com/spec-kit/campus-console/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Enrollments    *handlers.EnrollmentsHandler
	Staff          *handlers.StaffHandler
	Notifications  *handlers.NotificationsHandler
	Mutations      *handlers.MutationsHandler
	Metrics        http.Handler
	AuthMiddleware *auth.AuthMiddleware
	RequiredRole   string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	role := cfg.RequiredRole
	if role == "" {
		role = auth.RoleAdmin
	}
	console := app.Group("/console", cfg.AuthMiddleware.Handle, auth.RequireRole(role))

	enrollments := console.Group("/enrollments")
	enrollments.Get("/", cfg.Enrollments.List)
	enrollments.Post("/refresh", cfg.Enrollments.Refresh)
	enrollments.Get("/:id", cfg.Enrollments.Get)
	enrollments.Post("/:id/decision", cfg.Enrollments.Decide)
	enrollments.Post("/:id/advisor", cfg.Enrollments.AssignAdvisor)

	staff := console.Group("/staff")
	staff.Get("/", cfg.Staff.List)
	staff.Post("/refresh", cfg.Staff.Refresh)
	staff.Get("/:id", cfg.Staff.Get)
	staff.Patch("/:id", cfg.Staff.Update)
	staff.Post("/:id/toggle-status", cfg.Staff.ToggleStatus)

	console.Get("/notifications", cfg.Notifications.List)
	console.Delete("/notifications/:handle", cfg.Notifications.Dismiss)

	console.Get("/mutations", cfg.Mutations.List)
}
