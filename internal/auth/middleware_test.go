package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetshop/sweetshop-api/internal/auth"
)

func newProtectedApp(t *testing.T, tokens auth.TokenService) *fiber.App {
	t.Helper()

	app := fiber.New()

	protected := app.Group("/protected", auth.Protected(tokens, nil))
	protected.Get("/", func(c *fiber.Ctx) error {
		claims, ok := auth.ClaimsFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"uid": claims.UserID(), "role": claims.Role()})
	})

	admin := app.Group("/admin", auth.Protected(tokens, nil), auth.RequireAdmin())
	admin.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return app
}

func doAuthed(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func mintToken(t *testing.T, tokens auth.TokenService, role string) string {
	t.Helper()

	token, err := tokens.Generate(auth.NewIdentityFromUser(&auth.User{
		ID:    uuid.New(),
		Email: "user@example.com",
		Role:  role,
	}))
	require.NoError(t, err)
	return token
}

func TestProtected(t *testing.T) {
	tokens := auth.NewTokenService([]byte(testSigningKey), 24, "sweetshop-api", nil)
	app := newProtectedApp(t, tokens)

	t.Run("valid token passes", func(t *testing.T) {
		res := doAuthed(t, app, "/protected/", mintToken(t, tokens, auth.RoleCustomer))
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		res := doAuthed(t, app, "/protected/", "")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("malformed header is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/protected/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Basic dXNlcjpwYXNz")

		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		res := doAuthed(t, app, "/protected/", "not.a.token")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		expired := auth.NewTokenService([]byte(testSigningKey), -1, "sweetshop-api", nil)

		res := doAuthed(t, app, "/protected/", mintToken(t, expired, auth.RoleCustomer))
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("token signed with another key is unauthorized", func(t *testing.T) {
		other := auth.NewTokenService([]byte("other-key"), 24, "sweetshop-api", nil)

		res := doAuthed(t, app, "/protected/", mintToken(t, other, auth.RoleCustomer))
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})
}

func TestRequireAdmin(t *testing.T) {
	tokens := auth.NewTokenService([]byte(testSigningKey), 24, "sweetshop-api", nil)
	app := newProtectedApp(t, tokens)

	t.Run("admin passes", func(t *testing.T) {
		res := doAuthed(t, app, "/admin/", mintToken(t, tokens, auth.RoleAdmin))
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("customer is forbidden", func(t *testing.T) {
		res := doAuthed(t, app, "/admin/", mintToken(t, tokens, auth.RoleCustomer))
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		res := doAuthed(t, app, "/admin/", "")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})
}
