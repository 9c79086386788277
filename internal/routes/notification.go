package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bantah-app/bantah/internal/notification"
)

// RegisterNotificationRoutes wires the notification inbox and preference
// endpoints onto the authenticated group.
func RegisterNotificationRoutes(router fiber.Router, h *notification.Handler) {
	g := router.Group("/notifications")

	g.Get("/", h.List)
	g.Get("/unread-count", h.UnreadCount)
	g.Post("/read-all", h.MarkAllRead)
	g.Post("/:notificationId/read", h.MarkRead)

	g.Get("/preferences", h.GetPreferences)
	g.Put("/preferences", h.UpdatePreferences)

	g.Post("/mute/challenges/:challengeId", h.MuteChallenge)
	g.Delete("/mute/challenges/:challengeId", h.UnmuteChallenge)
	g.Post("/mute/users/:userId", h.MuteUser)
	g.Delete("/mute/users/:userId", h.UnmuteUser)
}
