package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Overview returns both balances for the authenticated user.
func (h *Handler) Overview(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	balance, err := h.service.Overview(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(balanceResponse(balance))
}

// History returns recent transactions for the authenticated user.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.service.History(c.UserContext(), uid, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": transactionResponses(list)})
}

// Deposit credits the money balance.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.Deposit(c.UserContext(), uid, req.Amount)
	if err != nil {
		return walletError(err)
	}
	return c.Status(http.StatusCreated).JSON(mutationResponse(res))
}

// Withdraw debits the money balance.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.Withdraw(c.UserContext(), uid, req.Amount)
	if err != nil {
		return walletError(err)
	}
	return c.Status(http.StatusCreated).JSON(mutationResponse(res))
}

// Swap converts between denominations.
func (h *Handler) Swap(c *fiber.Ctx) error {
	var req SwapRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	direction := SwapDirection(req.Direction)
	if direction != SwapToCoins && direction != SwapToMoney {
		return fiber.NewError(http.StatusBadRequest, "direction must be to-coin or to-money")
	}
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.Swap(c.UserContext(), uid, req.Amount, direction)
	if err != nil {
		return walletError(err)
	}
	return c.Status(http.StatusCreated).JSON(mutationResponse(res))
}

// Gift sends coins to another user.
func (h *Handler) Gift(c *fiber.Ctx) error {
	var req GiftRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ToUserID == "" {
		return fiber.NewError(http.StatusBadRequest, "to_user_id is required")
	}
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.Gift(c.UserContext(), uid, req.ToUserID, req.Amount)
	if err != nil {
		return walletError(err)
	}
	return c.Status(http.StatusCreated).JSON(mutationResponse(res))
}

func walletError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
