package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrInvalidToken indicates the provider rejected the presented bearer token.
var ErrInvalidToken = errors.New("invalid provider token")

// Verifier exchanges a bearer token for verified identity claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// VerifierFunc adapts a function to the Verifier interface. Used by tests.
type VerifierFunc func(ctx context.Context, token string) (*Claims, error)

// Verify calls the wrapped function.
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Claims, error) {
	return f(ctx, token)
}

// Client verifies tokens against the hosted identity provider API.
type Client struct {
	baseURL   string
	appID     string
	appSecret string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient builds a provider client with a bounded request timeout.
func NewClient(baseURL, appID, appSecret string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		appID:     appID,
		appSecret: appSecret,
		http:      &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// Verify exchanges the bearer token for the provider's view of the identity.
// An invalid or expired token yields ErrInvalidToken; transport failures are
// logged and surfaced as errors. Both are terminal for the request - nothing
// is retried here.
func (c *Client) Verify(ctx context.Context, token string) (*Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	// The Authorization header carries the user token; app credentials ride
	// in dedicated headers so the two cannot clobber each other.
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("privy-app-id", c.appID)
	req.Header.Set("privy-app-secret", c.appSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("provider verification transport failure", slog.Any("error", err))
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		if c.logger != nil {
			c.logger.Error("provider verification unexpected status", slog.Int("status", resp.StatusCode))
		}
		return nil, fmt.Errorf("verify token: unexpected status %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if claims.ID() == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
