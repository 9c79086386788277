package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bantah-app/bantah/internal/challenge"
	"github.com/bantah-app/bantah/internal/middleware"
)

// RegisterChallengeRoutes wires challenge endpoints onto the authenticated
// group. Stake-moving mutations go through the idempotency middleware;
// pin and resolve are admin only.
func RegisterChallengeRoutes(router fiber.Router, h *challenge.Handler, idem fiber.Handler) {
	handlers := []fiber.Handler{}
	if idem != nil {
		handlers = append(handlers, idem)
	}
	g := router.Group("/challenges", handlers...)

	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Get("/mine", h.Mine)
	g.Get("/:challengeId", h.Get)
	g.Post("/:challengeId/accept", h.Accept)
	g.Post("/:challengeId/decline", h.Decline)
	g.Post("/:challengeId/join", h.Join)
	g.Post("/:challengeId/dispute", h.Dispute)

	admin := g.Group("", middleware.RequireAdmin())
	admin.Post("/:challengeId/pin", h.Pin)
	admin.Delete("/:challengeId/pin", h.Unpin)
	admin.Post("/:challengeId/resolve", h.Resolve)
}
