package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwasomola/malipo/internal/core/domain"
	"github.com/mwasomola/malipo/internal/core/service"
)

type TransferHandler struct {
	Service *service.Settlement
}

type CreateTransferRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId"`
}

type TransferResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Amount     string    `json:"amount"`
	Reversed   bool      `json:"reversed"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toResponse(t *domain.Transfer) TransferResponse {
	return TransferResponse{
		ID:         t.ID.String(),
		SenderID:   t.SenderID.String(),
		ReceiverID: t.ReceiverID.String(),
		Amount:     t.Amount.StringFixed(2),
		Reversed:   t.Reversed,
		CreatedAt:  t.CreatedAt,
	}
}

// CreateTransfer settles a transfer between two accounts.
func (h *TransferHandler) CreateTransfer(c *fiber.Ctx) error {
	var req CreateTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	senderID, err := uuid.Parse(req.SenderID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sender id"})
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid receiver id"})
	}

	transfer, err := h.Service.CreateTransfer(c.Context(), senderID, receiverID, req.Amount)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(http.StatusCreated).JSON(toResponse(transfer))
}

// RevertTransfer undoes a previously settled transfer.
func (h *TransferHandler) RevertTransfer(c *fiber.Ctx) error {
	transferID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transfer id"})
	}

	reversal, err := h.Service.RevertTransfer(c.Context(), transferID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(toResponse(reversal))
}

// ListTransfers returns the full ledger.
func (h *TransferHandler) ListTransfers(c *fiber.Ctx) error {
	transfers, err := h.Service.ListTransfers(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	out := make([]TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, toResponse(t))
	}
	return c.JSON(fiber.Map{"transfers": out})
}

// errorResponse maps each error kind to a stable status and message without
// leaking storage or network details.
func errorResponse(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrAuthorizationUnavailable):
		msg = domain.ErrAuthorizationUnavailable.Error()
	case status >= http.StatusInternalServerError:
		slog.Error("transfer request failed", "error", err)
		msg = "unexpected error"
	}

	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransferNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuthorizationDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAuthorizationUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrMerchantNotPermitted),
		errors.Is(err, domain.ErrAlreadyReversed),
		errors.Is(err, domain.ErrInvalidReversalState),
		errors.Is(err, domain.ErrInsufficientFundsForReversal):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
