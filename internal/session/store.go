package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bantah-app/bantah/internal/users"
)

const sessionPrefix = "session:v1:"

// CookieName is the cookie carrying the signed session token.
const CookieName = "bantah_session"

// ErrNoSession indicates the token did not resolve to a live session.
var ErrNoSession = errors.New("no active session")

// Identity is the normalized principal attached to authenticated requests.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Admin     bool   `json:"admin"`
}

// IdentityFromUser projects a stored user onto the request identity.
func IdentityFromUser(u users.User) Identity {
	return Identity{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Admin:     u.Admin,
	}
}

// Store keeps session identities in Redis, addressed by signed HS256 tokens.
// The token only carries the session id; the identity itself lives server-side
// with an explicit create/destroy lifecycle.
type Store struct {
	cache  *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewStore builds a session store.
func NewStore(cache *redis.Client, secret string, ttl time.Duration) *Store {
	return &Store{cache: cache, secret: []byte(secret), ttl: ttl}
}

// Create persists the identity and returns a signed session token.
func (s *Store) Create(ctx context.Context, ident Identity) (string, error) {
	if s.cache == nil {
		return "", ErrNoSession
	}
	payload, err := json.Marshal(ident)
	if err != nil {
		return "", fmt.Errorf("encode session identity: %w", err)
	}

	sid := uuid.NewString()
	if err := s.cache.Set(ctx, sessionPrefix+sid, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"sub": ident.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Resolve verifies the token signature and loads the stored identity.
func (s *Store) Resolve(ctx context.Context, token string) (Identity, error) {
	if s.cache == nil {
		return Identity{}, ErrNoSession
	}
	sid, err := s.sessionID(token)
	if err != nil {
		return Identity{}, err
	}

	payload, err := s.cache.Get(ctx, sessionPrefix+sid).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrNoSession
		}
		return Identity{}, fmt.Errorf("load session: %w", err)
	}

	var ident Identity
	if err := json.Unmarshal([]byte(payload), &ident); err != nil {
		return Identity{}, fmt.Errorf("decode session identity: %w", err)
	}
	return ident, nil
}

// Destroy removes the session backing the token. Unknown sessions are a no-op.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if s.cache == nil {
		return nil
	}
	sid, err := s.sessionID(token)
	if err != nil {
		return err
	}
	return s.cache.Del(ctx, sessionPrefix+sid).Err()
}

func (s *Store) sessionID(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrNoSession
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrNoSession
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", ErrNoSession
	}
	return sid, nil
}
