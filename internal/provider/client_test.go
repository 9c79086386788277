package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bantah-app/bantah/internal/logging"
)

func TestClientVerifyDecodesClaims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("privy-app-id") != "app-id" {
			t.Errorf("missing app id header")
		}
		if r.Header.Get("privy-app-secret") != "app-secret" {
			t.Errorf("missing app secret header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"sub": "did:privy:abc",
			"email": "jo.doe@x.com",
			"given_name": "Jo",
			"linkedAccounts": [{"type": "telegram", "telegramUserId": "42", "telegramUsername": "jodoe"}]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "app-secret", logging.Discard())
	claims, err := client.Verify(context.Background(), "provider-token")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ID() != "did:privy:abc" {
		t.Fatalf("unexpected id %q", claims.ID())
	}
	tg, ok := claims.Telegram()
	if !ok || tg.TelegramUserID != "42" {
		t.Fatalf("unexpected telegram linkage %+v", tg)
	}
}

func TestClientVerifyRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "app-secret", logging.Discard())
	_, err := client.Verify(context.Background(), "expired")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestClientVerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "app-secret", logging.Discard())
	_, err := client.Verify(context.Background(), "tok")
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected transport-class error, got %v", err)
	}
}

func TestClientVerifyMissingSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email": "noone@x.com"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "app-id", "app-secret", logging.Discard())
	_, err := client.Verify(context.Background(), "tok")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
