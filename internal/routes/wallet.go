package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bantah-app/bantah/internal/wallet"
)

// RegisterWalletRoutes wires wallet endpoints onto the authenticated group.
// Mutations go through the idempotency middleware when Redis is available.
func RegisterWalletRoutes(router fiber.Router, h *wallet.Handler, idem fiber.Handler) {
	handlers := []fiber.Handler{}
	if idem != nil {
		handlers = append(handlers, idem)
	}
	g := router.Group("/wallet", handlers...)

	g.Get("/", h.Overview)
	g.Get("/transactions", h.History)
	g.Post("/deposit", h.Deposit)
	g.Post("/withdraw", h.Withdraw)
	g.Post("/swap", h.Swap)
	g.Post("/gift", h.Gift)
}
