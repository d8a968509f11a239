package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClaimsContextKey is where Protected stores validated claims on the
// request context.
const ClaimsContextKey = "auth_claims"

const authScheme = "Bearer"

// Protected requires a valid bearer token. Validated claims are stored on
// the request locals for downstream handlers.
func Protected(tokens TokenService, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		raw, err := tokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return RespondError(c, logger, err)
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			return RespondError(c, logger, err)
		}

		c.Locals(ClaimsContextKey, claims)

		return c.Next()
	}
}

// RequireAdmin blocks sessions without the admin role. Must run after
// Protected.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(ClaimsContextKey).(AuthClaims)
		if !ok {
			return RespondError(c, nil, ErrTokenMalformed)
		}

		if !claims.HasRole(RoleAdmin) {
			return RespondError(c, nil, ErrForbidden)
		}

		return c.Next()
	}
}

// ClaimsFromContext returns the claims Protected stored, if any.
func ClaimsFromContext(c *fiber.Ctx) (AuthClaims, bool) {
	claims, ok := c.Locals(ClaimsContextKey).(AuthClaims)
	return claims, ok
}

func tokenFromHeader(header string) (string, error) {
	l := len(authScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], authScheme) {
		return strings.TrimSpace(header[l:]), nil
	}
	return "", ErrTokenMalformed
}
