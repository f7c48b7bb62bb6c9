package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-console/internal/backend"
	"github.com/spec-kit/campus-console/internal/config"
	apperrors "github.com/spec-kit/campus-console/pkg/util/errorutil"
)

func newTokens(secret string) *TokenManager {
	return NewTokenManager(config.AuthConfig{JWTSecret: secret, Issuer: "campus-identity", TokenTTL: 5 * time.Minute})
}

func TestTokenRoundTrip(t *testing.T) {
	tm := newTokens("secret")
	token, exp, err := tm.Issue("u1", "Ada", RoleAdmin)
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "campus-identity", claims.Issuer)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = newTokens("other").Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	foreign := NewTokenManager(config.AuthConfig{JWTSecret: "secret", Issuer: "library-portal"})
	token, _, err := foreign.Issue("u1", "Ada", RoleAdmin)
	require.NoError(t, err)

	_, err = newTokens("secret").Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyExpiryHonoursClockSkew(t *testing.T) {
	tm := newTokens("secret")
	issued := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, exp, err := tm.Issue("u1", "Ada", RoleAdmin)
	require.NoError(t, err)

	tm.now = func() time.Time { return exp.Add(clockSkew / 2) }
	_, err = tm.Verify(token)
	assert.NoError(t, err)

	tm.now = func() time.Time { return exp.Add(2 * clockSkew) }
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRequiresSubject(t *testing.T) {
	tm := newTokens("secret")
	token, _, err := tm.Issue("", "Nobody", RoleAdmin)
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func newApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tm)
	app.Get("/who", mw.Handle, RequireRole(RoleAdmin), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		session, _ := backend.SessionFrom(c.UserContext())
		return c.JSON(fiber.Map{"sub": p.SubjectID, "session": session != ""})
	})
	return app
}

func TestMiddlewareStatuses(t *testing.T) {
	tm := newTokens("secret")
	admin, _, err := tm.Issue("u1", "Ada", "admin")
	require.NoError(t, err)
	doctor, _, err := tm.Issue("u2", "House", "DOCTOR")
	require.NoError(t, err)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, err := tm.Issue("u3", "Grace", RoleAdmin)
	require.NoError(t, err)
	tm.now = time.Now

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"expired", "Bearer " + stale, http.StatusUnauthorized},
		{"wrong role", "Bearer " + doctor, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusOK},
	}
	app := newApp(tm)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
