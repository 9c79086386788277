package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bantah-app/bantah/internal/middleware"
	"github.com/bantah-app/bantah/internal/provider"
	"github.com/bantah-app/bantah/internal/session"
	"github.com/bantah-app/bantah/internal/users"
)

// RegisterAuthRoutes wires session creation and teardown plus the profile
// endpoint. Session creation exchanges a provider bearer token for a cookie
// so browser clients do not replay the provider token on every request.
func RegisterAuthRoutes(router fiber.Router, authn fiber.Handler, verifier provider.Verifier, userService *users.Service, sessions *session.Store, d Deps) {
	rateLimiter := middleware.SessionRateLimit(d.Cache, 10)

	router.Post("/auth/session", rateLimiter, func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
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

		ident := session.IdentityFromUser(user)
		sessionToken, err := sessions.Create(c.UserContext(), ident)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "could not create session")
		}

		c.Cookie(&fiber.Cookie{
			Name:     session.CookieName,
			Value:    sessionToken,
			Expires:  time.Now().Add(d.Cfg.SessionTTL),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"token": sessionToken,
			"user": fiber.Map{
				"id":         ident.ID,
				"email":      ident.Email,
				"first_name": ident.FirstName,
				"last_name":  ident.LastName,
				"username":   ident.Username,
				"is_admin":   ident.Admin,
			},
		})
	})

	router.Delete("/auth/session", func(c *fiber.Ctx) error {
		if cookie := c.Cookies(session.CookieName); cookie != "" {
			if err := sessions.Destroy(c.UserContext(), cookie); err != nil {
				return fiber.NewError(http.StatusInternalServerError, "could not destroy session")
			}
		}
		c.Cookie(&fiber.Cookie{
			Name:     session.CookieName,
			Value:    "",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
		})
		return c.SendStatus(http.StatusNoContent)
	})

	router.Get("/me", authn, func(c *fiber.Ctx) error {
		ident, _ := c.Locals("identity").(session.Identity)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"id":         ident.ID,
			"email":      ident.Email,
			"first_name": ident.FirstName,
			"last_name":  ident.LastName,
			"username":   ident.Username,
			"is_admin":   ident.Admin,
			"sub": fiber.Map{
				"id":    ident.ID,
				"email": ident.Email,
				"name":  strings.TrimSpace(ident.FirstName + " " + ident.LastName),
			},
		})
	})
}
