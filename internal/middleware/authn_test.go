package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bantah-app/bantah/internal/provider"
	"github.com/bantah-app/bantah/internal/session"
	"github.com/bantah-app/bantah/internal/users"
)

func newAuthApp(t *testing.T, verifier provider.Verifier, sessions *session.Store) (*fiber.App, *users.Service) {
	t.Helper()
	userService := users.NewService(users.NewMemoryRepository(), nil)

	app := fiber.New()
	app.Use(Authenticate(verifier, userService, sessions))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		return c.JSON(fiber.Map{"user_id": uid})
	})
	return app, userService
}

func validClaims(id string) *provider.Claims {
	return &provider.Claims{Subject: id, Email: id + "@x.com", GivenName: "Test"}
}

func TestAuthenticateNoCredential(t *testing.T) {
	verifier := provider.VerifierFunc(func(context.Context, string) (*provider.Claims, error) {
		return nil, provider.ErrInvalidToken
	})
	app, _ := newAuthApp(t, verifier, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticateInvalidToken(t *testing.T) {
	verifier := provider.VerifierFunc(func(context.Context, string) (*provider.Claims, error) {
		return nil, provider.ErrInvalidToken
	})
	app, _ := newAuthApp(t, verifier, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer bad-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticateMissingSubject(t *testing.T) {
	verifier := provider.VerifierFunc(func(context.Context, string) (*provider.Claims, error) {
		return &provider.Claims{}, nil
	})
	app, _ := newAuthApp(t, verifier, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticateUpsertFailure(t *testing.T) {
	verifier := provider.VerifierFunc(func(context.Context, string) (*provider.Claims, error) {
		return validClaims("did:privy:abc"), nil
	})
	userService := users.NewService(failingUserRepo{}, nil)

	app := fiber.New()
	app.Use(Authenticate(verifier, userService, nil))
	app.Get("/whoami", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAuthenticateValidTokenUpserts(t *testing.T) {
	verifier := provider.VerifierFunc(func(context.Context, string) (*provider.Claims, error) {
		return validClaims("did:privy:abc"), nil
	})
	app, userService := newAuthApp(t, verifier, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer good-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := userService.Get(context.Background(), "did:privy:abc")
	require.NoError(t, err)
	require.Equal(t, "did:privy:abc@x.com", user.Email)
}

func TestAuthenticateSessionFallback(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	sessions := session.NewStore(cache, "test-secret", time.Hour)

	token, err := sessions.Create(context.Background(), session.Identity{ID: "u1", Email: "u1@x.com"})
	require.NoError(t, err)

	verifier := provider.VerifierFunc(func(context.Context, string) (*provider.Claims, error) {
		return nil, provider.ErrInvalidToken
	})
	app, _ := newAuthApp(t, verifier, sessions)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A garbage cookie must not authenticate.
	req2 := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req2.AddCookie(&http.Cookie{Name: session.CookieName, Value: "garbage"})

	resp2, err := app.Test(req2)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("is_admin", c.Get("X-Test-Admin") == "yes")
		return c.Next()
	})
	app.Use(RequireAdmin())
	app.Get("/admin", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Test-Admin", "yes")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

type failingUserRepo struct{}

func (failingUserRepo) Create(context.Context, users.User) error { return errors.New("db down") }
func (failingUserRepo) FindByID(context.Context, string) (users.User, error) {
	return users.User{}, errors.New("db down")
}
func (failingUserRepo) FindByEmail(context.Context, string) (users.User, error) {
	return users.User{}, errors.New("db down")
}
func (failingUserRepo) LinkTelegram(context.Context, string, string, string) error {
	return errors.New("db down")
}
