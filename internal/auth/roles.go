package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/campus-console/pkg/util/errorutil"
)

// RoleAdmin is the role allowed on the console.
const RoleAdmin = "ADMIN"

// RequireRole ensures the principal holds one of the allowed roles.
// Role names compare case-insensitively.
func RequireRole(allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[strings.ToUpper(role)] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[strings.ToUpper(principal.Role)]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
