package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/middleware"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/transfer"
)

type TransactionHandler struct {
	Engine *transfer.Engine
}

type TransferRequest struct {
	SourceAcc      string `json:"sourceAcc"`
	DestinationAcc string `json:"destinationAcc"`
	Amount         int64  `json:"amount"`
	Description    string `json:"description"`
}

// Transfer runs the transfer protocol for the authenticated user.
func (h *TransactionHandler) Transfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return failed(c, http.StatusBadRequest, "Invalid request body")
	}

	// Unparseable account ids get the same answer as absent ones.
	sourceID, _ := uuid.Parse(req.SourceAcc)
	destID, _ := uuid.Parse(req.DestinationAcc)

	result, err := h.Engine.Transfer(c.Context(), transfer.Request{
		SourceAcc:      sourceID,
		DestinationAcc: destID,
		Amount:         req.Amount,
		Description:    req.Description,
		UserID:         middleware.UserID(c),
	})
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return failed(c, http.StatusBadRequest, vErr.Reason)
		}
		var tErr *domain.TransferError
		if errors.As(err, &tErr) && tErr.Code == domain.CodeInsufficientFunds {
			return failed(c, http.StatusBadRequest, domain.ErrInsufficientFunds.Error())
		}
		slog.Error("transfer failed", "error", err)
		return failed(c, http.StatusInternalServerError, "Transfer could not be completed")
	}

	return succeeded(c, http.StatusOK, result)
}

// GetTransactions returns the user's statement: completed incoming and
// outgoing transactions across all active accounts.
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	stmt, err := h.Engine.ListTransactionsForUser(c.Context(), middleware.UserID(c))
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		return failed(c, http.StatusInternalServerError, "Could not fetch transactions")
	}
	return succeeded(c, http.StatusOK, stmt)
}
