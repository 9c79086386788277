package notification

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes notification HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a notification HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type preferencesRequest struct {
	InAppEnabled    bool   `json:"in_app_enabled"`
	PushEnabled     bool   `json:"push_enabled"`
	TelegramEnabled bool   `json:"telegram_enabled"`
	Frequency       string `json:"frequency"`
}

type preferencesResponse struct {
	InAppEnabled    bool     `json:"in_app_enabled"`
	PushEnabled     bool     `json:"push_enabled"`
	TelegramEnabled bool     `json:"telegram_enabled"`
	Frequency       string   `json:"frequency"`
	MutedChallenges []string `json:"muted_challenges"`
	MutedUsers      []string `json:"muted_users"`
}

func toPreferencesResponse(p Preferences) preferencesResponse {
	return preferencesResponse{
		InAppEnabled:    p.InAppEnabled,
		PushEnabled:     p.PushEnabled,
		TelegramEnabled: p.TelegramEnabled,
		Frequency:       p.Frequency,
		MutedChallenges: p.MutedChallenges,
		MutedUsers:      p.MutedUsers,
	}
}

// List returns the authenticated user's notifications.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.service.List(c.UserContext(), uid, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			Title:     n.Title,
			Body:      n.Body,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"notifications": out})
}

// UnreadCount returns the number of unread notifications.
func (h *Handler) UnreadCount(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	count, err := h.service.UnreadCount(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"unread": count})
}

// MarkRead marks one notification as read.
func (h *Handler) MarkRead(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.MarkRead(c.UserContext(), uid, c.Params("notificationId")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "notification not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// MarkAllRead marks every notification as read.
func (h *Handler) MarkAllRead(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.MarkAllRead(c.UserContext(), uid); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetPreferences returns the user's notification preferences.
func (h *Handler) GetPreferences(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	prefs, err := h.service.Preferences(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toPreferencesResponse(prefs))
}

// UpdatePreferences replaces channel and frequency settings.
func (h *Handler) UpdatePreferences(c *fiber.Ctx) error {
	var req preferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Frequency != "" && req.Frequency != FrequencyInstant && req.Frequency != FrequencyDaily {
		return fiber.NewError(http.StatusBadRequest, "frequency must be instant or daily")
	}
	uid, _ := c.Locals("user_id").(string)
	prefs, err := h.service.UpdatePreferences(c.UserContext(), uid,
		req.InAppEnabled, req.PushEnabled, req.TelegramEnabled, req.Frequency)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toPreferencesResponse(prefs))
}

// MuteChallenge mutes notifications from a challenge.
func (h *Handler) MuteChallenge(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.MuteChallenge(c.UserContext(), uid, c.Params("challengeId")); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// UnmuteChallenge removes a challenge mute.
func (h *Handler) UnmuteChallenge(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.UnmuteChallenge(c.UserContext(), uid, c.Params("challengeId")); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// MuteUser mutes notifications triggered by another user.
func (h *Handler) MuteUser(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.MuteUser(c.UserContext(), uid, c.Params("userId")); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// UnmuteUser removes a user mute.
func (h *Handler) UnmuteUser(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.UnmuteUser(c.UserContext(), uid, c.Params("userId")); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}
