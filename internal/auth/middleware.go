package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-console/internal/backend"
	apperrors "github.com/spec-kit/campus-console/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated admin.
type Principal struct {
	SubjectID string
	Name      string
	Email     string
	Role      string
}

// AuthMiddleware validates bearer tokens. The raw token is forwarded to the
// backend as the caller's session.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Verify(parts[1])
	if errors.Is(err, ErrTokenExpired) {
		return apperrors.NewUnauthorized("token expired")
	}
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{
		SubjectID: claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		Role:      claims.Role,
	})
	c.SetUserContext(backend.WithSession(c.UserContext(), parts[1]))
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
