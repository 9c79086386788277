package challenge

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bantah-app/bantah/internal/wallet"
)

// Handler exposes challenge HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a challenge HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	ChallengedID string     `json:"challenged_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Stake        int64      `json:"stake"`
	DueDate      *time.Time `json:"due_date"`
	AdminCreated bool       `json:"admin_created"`
	BonusAmount  int64      `json:"bonus_amount"`
}

type joinRequest struct {
	Side  string `json:"side"`
	Stake int64  `json:"stake"`
}

type resolveRequest struct {
	Winner string `json:"winner"`
}

type challengeResponse struct {
	ID               string    `json:"id"`
	ChallengerID     string    `json:"challenger_id"`
	ChallengedID     string    `json:"challenged_id,omitempty"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Category         string    `json:"category"`
	Stake            int64     `json:"stake"`
	Status           string    `json:"status"`
	AdminCreated     bool      `json:"admin_created"`
	DueDate          time.Time `json:"due_date,omitempty"`
	Pinned           bool      `json:"pinned"`
	BonusAmount      int64     `json:"bonus_amount,omitempty"`
	ParticipantCount int       `json:"participant_count"`
	WinnerID         string    `json:"winner_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toResponse(ch Challenge) challengeResponse {
	return challengeResponse{
		ID:               ch.ID,
		ChallengerID:     ch.ChallengerID,
		ChallengedID:     ch.ChallengedID,
		Title:            ch.Title,
		Description:      ch.Description,
		Category:         ch.Category,
		Stake:            ch.Stake,
		Status:           string(ch.Status),
		AdminCreated:     ch.AdminCreated,
		DueDate:          ch.DueDate,
		Pinned:           ch.Pinned,
		BonusAmount:      ch.BonusAmount,
		ParticipantCount: ch.ParticipantCount,
		WinnerID:         ch.WinnerID,
		CreatedAt:        ch.CreatedAt,
	}
}

// Create opens a challenge for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	admin, _ := c.Locals("is_admin").(bool)
	if req.AdminCreated && !admin {
		return fiber.NewError(http.StatusForbidden, "admin challenges require admin")
	}
	uid, _ := c.Locals("user_id").(string)

	input := CreateInput{
		ChallengerID: uid,
		ChallengedID: req.ChallengedID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Stake:        req.Stake,
		AdminCreated: req.AdminCreated,
		BonusAmount:  req.BonusAmount,
	}
	if req.DueDate != nil {
		input.DueDate = req.DueDate.UTC()
	}

	ch, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(ch))
}

// List returns recent challenges, optionally filtered by status.
func (h *Handler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.service.List(c.UserContext(), Status(c.Query("status")), limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]challengeResponse, 0, len(list))
	for _, ch := range list {
		out = append(out, toResponse(ch))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"challenges": out})
}

// Mine returns the authenticated user's challenges.
func (h *Handler) Mine(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.service.ListForUser(c.UserContext(), uid, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]challengeResponse, 0, len(list))
	for _, ch := range list {
		out = append(out, toResponse(ch))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"challenges": out})
}

// Get returns a single challenge.
func (h *Handler) Get(c *fiber.Ctx) error {
	ch, err := h.service.Get(c.UserContext(), c.Params("challengeId"))
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(ch))
}

// Accept activates a pending peer challenge.
func (h *Handler) Accept(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	ch, err := h.service.Accept(c.UserContext(), c.Params("challengeId"), uid)
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(ch))
}

// Decline cancels a pending peer challenge.
func (h *Handler) Decline(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	ch, err := h.service.Decline(c.UserContext(), c.Params("challengeId"), uid)
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(ch))
}

// Join adds the authenticated user to an open admin challenge.
func (h *Handler) Join(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	ch, err := h.service.Join(c.UserContext(), c.Params("challengeId"), uid, req.Side, req.Stake)
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(ch))
}

// Pin marks a challenge as pinned.
func (h *Handler) Pin(c *fiber.Ctx) error {
	ch, err := h.service.Pin(c.UserContext(), c.Params("challengeId"))
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(ch))
}

// Unpin clears the pinned flag.
func (h *Handler) Unpin(c *fiber.Ctx) error {
	ch, err := h.service.Unpin(c.UserContext(), c.Params("challengeId"))
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(ch))
}

// Resolve completes a challenge and pays the winners.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ch, err := h.service.Resolve(c.UserContext(), c.Params("challengeId"), req.Winner)
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(ch))
}

// Dispute flags an active challenge.
func (h *Handler) Dispute(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	ch, err := h.service.Dispute(c.UserContext(), c.Params("challengeId"), uid)
	if err != nil {
		return challengeError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(ch))
}

func challengeError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "challenge not found")
	case errors.Is(err, ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(http.StatusConflict, "invalid status transition")
	case errors.Is(err, ErrAlreadyJoined):
		return fiber.NewError(http.StatusConflict, "already joined")
	case errors.Is(err, ErrNotAllowed):
		return fiber.NewError(http.StatusForbidden, "not allowed")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, wallet.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	case errors.Is(err, wallet.ErrWalletNotFound):
		return fiber.NewError(http.StatusBadRequest, "wallet not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
