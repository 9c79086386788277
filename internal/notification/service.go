package notification

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bantah-app/bantah/internal/users"
)

// Service stores in-app notifications and fans deliveries out to telegram
// when the recipient has a linked account. It implements Notifier.
type Service struct {
	repo     Repository
	users    users.Repository
	telegram TelegramSender
	logger   *slog.Logger
}

// NewService builds a notification service. telegram may be nil when no bot
// token is configured.
func NewService(repo Repository, userRepo users.Repository, telegram TelegramSender, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: userRepo, telegram: telegram, logger: logger}
}

// Send stores the message as an in-app notification and pushes it to
// telegram, honoring the recipient's preferences and mute lists. Channel
// delivery failures are logged, never surfaced to the triggering request.
func (s *Service) Send(ctx context.Context, message Message) error {
	prefs := s.preferencesOrDefault(ctx, message.Destination)

	if message.FromUserID != "" && prefs.MutedUser(message.FromUserID) {
		return nil
	}
	if message.ChallengeID != "" && prefs.MutedChallenge(message.ChallengeID) {
		return nil
	}

	if prefs.InAppEnabled {
		n := Notification{
			ID:        uuid.NewString(),
			UserID:    message.Destination,
			Kind:      message.Kind,
			Title:     message.Title,
			Body:      message.Body,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.Insert(ctx, n); err != nil {
			return err
		}
	}

	if prefs.TelegramEnabled && s.telegram != nil {
		s.sendTelegram(ctx, message)
	}
	return nil
}

func (s *Service) sendTelegram(ctx context.Context, message Message) {
	user, err := s.users.FindByID(ctx, message.Destination)
	if err != nil || !user.TelegramLinked {
		return
	}
	chatID, err := strconv.ParseInt(user.TelegramID, 10, 64)
	if err != nil {
		s.logger.Warn("telegram id not numeric", "user_id", user.ID)
		return
	}
	text := message.Title
	if message.Body != "" {
		text += "\n" + message.Body
	}
	if err := s.telegram.SendText(chatID, text); err != nil {
		s.logger.Warn("telegram delivery failed", "user_id", user.ID, "error", err)
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	return s.repo.List(ctx, userID, limit)
}

// UnreadCount returns the user's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead marks a single notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every notification for the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// Preferences returns the user's preferences, falling back to defaults when
// none have been saved.
func (s *Service) Preferences(ctx context.Context, userID string) (Preferences, error) {
	prefs, err := s.repo.Preferences(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoPreferences) {
			return DefaultPreferences(userID), nil
		}
		return Preferences{}, err
	}
	return prefs, nil
}

// UpdatePreferences replaces the user's channel and frequency settings.
// Mute lists are managed separately and carried over unchanged.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, inApp, push, telegram bool, frequency string) (Preferences, error) {
	prefs := s.preferencesOrDefault(ctx, userID)
	prefs.InAppEnabled = inApp
	prefs.PushEnabled = push
	prefs.TelegramEnabled = telegram
	if frequency != "" {
		prefs.Frequency = frequency
	}
	if err := s.repo.SavePreferences(ctx, prefs); err != nil {
		return Preferences{}, err
	}
	return prefs, nil
}

// MuteChallenge adds the challenge to the user's mute list. Idempotent.
func (s *Service) MuteChallenge(ctx context.Context, userID, challengeID string) error {
	prefs := s.preferencesOrDefault(ctx, userID)
	if prefs.MutedChallenge(challengeID) {
		return nil
	}
	prefs.MutedChallenges = append(prefs.MutedChallenges, challengeID)
	return s.repo.SavePreferences(ctx, prefs)
}

// UnmuteChallenge removes the challenge from the user's mute list. Idempotent.
func (s *Service) UnmuteChallenge(ctx context.Context, userID, challengeID string) error {
	prefs := s.preferencesOrDefault(ctx, userID)
	if !prefs.MutedChallenge(challengeID) {
		return nil
	}
	prefs.MutedChallenges = remove(prefs.MutedChallenges, challengeID)
	return s.repo.SavePreferences(ctx, prefs)
}

// MuteUser adds the user to the recipient's mute list. Idempotent.
func (s *Service) MuteUser(ctx context.Context, userID, mutedID string) error {
	prefs := s.preferencesOrDefault(ctx, userID)
	if prefs.MutedUser(mutedID) {
		return nil
	}
	prefs.MutedUsers = append(prefs.MutedUsers, mutedID)
	return s.repo.SavePreferences(ctx, prefs)
}

// UnmuteUser removes the user from the recipient's mute list. Idempotent.
func (s *Service) UnmuteUser(ctx context.Context, userID, mutedID string) error {
	prefs := s.preferencesOrDefault(ctx, userID)
	if !prefs.MutedUser(mutedID) {
		return nil
	}
	prefs.MutedUsers = remove(prefs.MutedUsers, mutedID)
	return s.repo.SavePreferences(ctx, prefs)
}

func (s *Service) preferencesOrDefault(ctx context.Context, userID string) Preferences {
	prefs, err := s.repo.Preferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNoPreferences) {
			s.logger.Warn("preferences lookup failed", "user_id", userID, "error", err)
		}
		return DefaultPreferences(userID)
	}
	return prefs
}

func remove(set []string, id string) []string {
	out := set[:0]
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
