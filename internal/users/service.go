package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bantah-app/bantah/internal/provider"
)

const providerEmailDomain = "privy.user"

// Service reconciles verified provider claims with the local user store.
type Service struct {
	repo     Repository
	adminIDs map[string]struct{}
}

// NewService creates a user service. Subjects in adminIDs receive the admin
// flag when their account is first created.
func NewService(repo Repository, adminIDs []string) *Service {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Service{repo: repo, adminIDs: admins}
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// EnsureFromClaims finds or creates the local user for the verified claims.
// Lookup order is subject id, then email; creation happens only when both
// miss. Telegram linkage discovered in the claims is recorded exactly once.
// Repeat calls with identical claims perform no writes.
func (s *Service) EnsureFromClaims(ctx context.Context, claims *provider.Claims) (User, error) {
	id := claims.ID()
	if id == "" {
		return User{}, errors.New("claims carry no subject id")
	}

	user, err := s.repo.FindByID(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		user, err = s.findOrCreateByEmail(ctx, id, claims)
		if err != nil {
			return User{}, err
		}
	default:
		return User{}, err
	}

	return s.linkTelegram(ctx, user, claims)
}

func (s *Service) findOrCreateByEmail(ctx context.Context, id string, claims *provider.Claims) (User, error) {
	email := claims.Email
	if email == "" {
		email = fmt.Sprintf("%s@%s", id, providerEmailDomain)
	}

	// Reconciliation by email takes precedence over creating a duplicate:
	// a pre-existing account with the same address is reused as-is.
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	_, isAdmin := s.adminIDs[id]
	user := User{
		ID:           id,
		Email:        email,
		Password:     string(placeholder),
		FirstName:    firstNameFromClaims(claims, email),
		LastName:     lastNameFromClaims(claims),
		Username:     usernameFromEmail(email, id),
		ProfileImage: claims.Picture,
		Admin:        isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) linkTelegram(ctx context.Context, user User, claims *provider.Claims) (User, error) {
	acct, ok := claims.Telegram()
	if !ok || user.TelegramLinked {
		return user, nil
	}

	username := acct.TelegramUsername
	if username == "" {
		username = "tg_" + acct.TelegramUserID
	}
	if err := s.repo.LinkTelegram(ctx, user.ID, acct.TelegramUserID, username); err != nil {
		return User{}, err
	}
	user.TelegramID = acct.TelegramUserID
	user.TelegramUsername = username
	user.TelegramLinked = true
	return user, nil
}

func firstNameFromClaims(claims *provider.Claims, email string) string {
	if claims.GivenName != "" {
		return claims.GivenName
	}
	if claims.Name != "" {
		return claims.Name
	}
	if initials := initialsFromEmail(email); initials != "" {
		return initials
	}
	return "User"
}

func lastNameFromClaims(claims *provider.Claims) string {
	if claims.FamilyName != "" {
		return claims.FamilyName
	}
	return "User"
}

func usernameFromEmail(email, id string) string {
	if local := localPart(email); local != "" {
		return local
	}
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return "user_" + suffix
}

// initialsFromEmail derives a two-letter display fallback from the email local
// part: first letters of the first two alphanumeric tokens, or the first two
// characters of a single token, uppercased. Empty local part yields "".
func initialsFromEmail(email string) string {
	local := localPart(email)
	if local == "" {
		return ""
	}

	tokens := strings.FieldsFunc(local, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	switch {
	case len(tokens) == 0:
		return ""
	case len(tokens) == 1:
		runes := []rune(tokens[0])
		if len(runes) == 1 {
			return strings.ToUpper(string(runes[0]))
		}
		return strings.ToUpper(string(runes[:2]))
	default:
		return strings.ToUpper(string([]rune(tokens[0])[0:1]) + string([]rune(tokens[1])[0:1]))
	}
}

func localPart(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return ""
	}
	return email[:at]
}
