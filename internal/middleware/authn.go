package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bantah-app/bantah/internal/provider"
	"github.com/bantah-app/bantah/internal/session"
	"github.com/bantah-app/bantah/internal/users"
)

// Authenticate resolves the caller's identity. A bearer token is verified
// against the identity provider and upserts the local user; without one, a
// valid session cookie is accepted instead. Session read errors fall through
// to token verification rather than failing the request.
func Authenticate(verifier provider.Verifier, userService *users.Service, sessions *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			if sessions != nil {
				if cookie := c.Cookies(session.CookieName); cookie != "" {
					if ident, err := sessions.Resolve(c.UserContext(), cookie); err == nil {
						attachIdentity(c, ident)
						return c.Next()
					}
				}
			}
			return fiber.NewError(http.StatusUnauthorized, "missing authorization")
		}

		token := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := verifier.Verify(c.UserContext(), token)
		if err != nil || claims == nil || claims.ID() == "" {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		user, err := userService.EnsureFromClaims(c.UserContext(), claims)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "could not resolve user")
		}

		attachIdentity(c, session.IdentityFromUser(user))
		return c.Next()
	}
}

func attachIdentity(c *fiber.Ctx, ident session.Identity) {
	c.Locals("user_id", ident.ID)
	c.Locals("is_admin", ident.Admin)
	c.Locals("identity", ident)
}

// RequireAdmin rejects callers whose resolved identity lacks the admin flag.
// Must run after Authenticate.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, _ := c.Locals("is_admin").(bool)
		if !admin {
			return fiber.NewError(http.StatusForbidden, "admin required")
		}
		return c.Next()
	}
}
