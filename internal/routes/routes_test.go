package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bantah-app/bantah/internal/config"
	"github.com/bantah-app/bantah/internal/logging"
	"github.com/bantah-app/bantah/internal/provider"
)

// testVerifier accepts any token of the form "tok-<subject>" and derives the
// claims from the subject.
func testVerifier() provider.Verifier {
	return provider.VerifierFunc(func(_ context.Context, token string) (*provider.Claims, error) {
		if len(token) < 5 || token[:4] != "tok-" {
			return nil, provider.ErrInvalidToken
		}
		sub := token[4:]
		return &provider.Claims{
			Subject:   sub,
			Email:     sub + "@x.com",
			GivenName: "Test",
		}, nil
	})
}

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	cfg := config.Config{
		AppName:        "bantah-test",
		AppEnv:         "dev",
		SessionSecret:  "test-secret",
		SessionTTL:     time.Hour,
		IdempotencyTTL: time.Minute,
		AdminIDs:       []string{"admin-1"},
	}

	// Immutable matches the production fiber.Config: stored ids must not
	// alias fasthttp's reusable request buffers.
	app := fiber.New(fiber.Config{Immutable: true})
	err = Setup(app, Deps{
		Cfg:      cfg,
		Cache:    cache,
		Logger:   logging.Discard(),
		Verifier: testVerifier(),
	})
	require.NoError(t, err)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		req.Header.Set("Idempotency-Key", fmt.Sprintf("%s-%s-%d", method, path, time.Now().UnixNano()))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func TestHealthAndPing(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	app := setupApp(t)

	// No credential at all.
	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Invalid provider token.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Exchange a provider token for a session.
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/session", "tok-alice", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionToken, _ := body["token"].(string)
	require.NotEmpty(t, sessionToken)

	user, _ := body["user"].(map[string]any)
	require.Equal(t, "alice", user["id"])
	require.Equal(t, "alice@x.com", user["email"])

	// Cookie-based access without a bearer token.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: "bantah_session", Value: sessionToken})
	meResp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	// Destroy the session; the cookie stops working.
	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/auth/session", nil)
	delReq.AddCookie(&http.Cookie{Name: "bantah_session", Value: sessionToken})
	delResp, err := app.Test(delReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: "bantah_session", Value: sessionToken})
	meResp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, meResp.StatusCode)
}

func TestWalletFlow(t *testing.T) {
	app := setupApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/wallet/deposit", "tok-alice",
		map[string]any{"amount": 100})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.EqualValues(t, 100, body["money"])

	// Overdraft rejected, balance unchanged.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/withdraw", "tok-alice",
		map[string]any{"amount": 150})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 100, body["money"])

	// Swap 10 money into 100 coins.
	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/wallet/swap", "tok-alice",
		map[string]any{"amount": 10, "direction": "to-coin"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.EqualValues(t, 90, body["money"])
	require.EqualValues(t, 100, body["coins"])

	// Gift coins to bob, who then sees them and a notification.
	_, _ = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-bob", nil)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/gift", "tok-alice",
		map[string]any{"to_user_id": "bob", "amount": 40})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 40, body["coins"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/notifications/unread-count", "tok-bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["unread"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/transactions", "tok-alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	txs, _ := body["transactions"].([]any)
	require.NotEmpty(t, txs)
}

func TestChallengeFlow(t *testing.T) {
	app := setupApp(t)

	// Fund both players with coins via deposit + swap.
	doJSON(t, app, http.MethodPost, "/api/v1/wallet/deposit", "tok-alice", map[string]any{"amount": 50})
	doJSON(t, app, http.MethodPost, "/api/v1/wallet/swap", "tok-alice", map[string]any{"amount": 50, "direction": "to-coin"})
	doJSON(t, app, http.MethodPost, "/api/v1/wallet/deposit", "tok-bob", map[string]any{"amount": 50})
	doJSON(t, app, http.MethodPost, "/api/v1/wallet/swap", "tok-bob", map[string]any{"amount": 50, "direction": "to-coin"})

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/challenges/", "tok-alice", map[string]any{
		"challenged_id": "bob",
		"title":         "First to run 5k",
		"category":      "fitness",
		"stake":         200,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "pending", body["status"])
	challengeID, _ := body["id"].(string)
	require.NotEmpty(t, challengeID)

	// Stake escrowed from alice's 500 coins.
	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-alice", nil)
	require.EqualValues(t, 300, body["coins"])

	// Only bob may accept.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/challenges/"+challengeID+"/accept", "tok-mallory", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/challenges/"+challengeID+"/accept", "tok-bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "active", body["status"])

	// Non-admin cannot resolve.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/challenges/"+challengeID+"/resolve", "tok-bob",
		map[string]any{"winner": "bob"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/challenges/"+challengeID+"/resolve", "tok-admin-1",
		map[string]any{"winner": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "completed", body["status"])

	// Winner holds both stakes: 500 - 200 + 400.
	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-bob", nil)
	require.EqualValues(t, 700, body["coins"])
}

func TestChallengeDeclineRestoresBalance(t *testing.T) {
	app := setupApp(t)

	doJSON(t, app, http.MethodPost, "/api/v1/wallet/deposit", "tok-alice", map[string]any{"amount": 30})
	doJSON(t, app, http.MethodPost, "/api/v1/wallet/swap", "tok-alice", map[string]any{"amount": 30, "direction": "to-coin"})

	_, body := doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-alice", nil)
	require.EqualValues(t, 300, body["coins"])

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/challenges/", "tok-alice", map[string]any{
		"challenged_id": "bob",
		"title":         "Chess match",
		"category":      "games",
		"stake":         120,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	challengeID, _ := body["id"].(string)

	_, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-alice", nil)
	require.EqualValues(t, 180, body["coins"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/challenges/"+challengeID+"/decline", "tok-bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "cancelled", body["status"])

	_, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-alice", nil)
	require.EqualValues(t, 300, body["coins"])
}

func TestNotificationPreferences(t *testing.T) {
	app := setupApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/notifications/preferences", "tok-alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["in_app_enabled"])

	resp, body = doJSON(t, app, http.MethodPut, "/api/v1/notifications/preferences", "tok-alice",
		map[string]any{"in_app_enabled": false, "push_enabled": true, "telegram_enabled": false, "frequency": "daily"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["in_app_enabled"])
	require.Equal(t, "daily", body["frequency"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/notifications/mute/users/spammer", "tok-alice", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/notifications/preferences", "tok-alice", nil)
	muted, _ := body["muted_users"].([]any)
	require.Len(t, muted, 1)
}

func TestIdempotentDeposit(t *testing.T) {
	app := setupApp(t)

	makeReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/deposit",
			bytes.NewReader([]byte(`{"amount": 100}`)))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-alice")
		req.Header.Set("Idempotency-Key", "dep-once")
		return req
	}

	resp, err := app.Test(makeReq(), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Replay with the same key must not double-credit.
	resp, err = app.Test(makeReq(), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, body := doJSON(t, app, http.MethodGet, "/api/v1/wallet/", "tok-alice", nil)
	require.EqualValues(t, 100, body["money"])
}
