package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/middleware"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/account"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

type AccountHandler struct {
	Service *account.Service
}

// CreateAccount opens a new account for the authenticated user.
func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	acc, err := h.Service.Create(c.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrAccountLimitReached) {
			return failed(c, http.StatusBadRequest, "You can't have more accounts")
		}
		slog.Error("failed to create account", "error", err)
		return failed(c, http.StatusInternalServerError, "Could not create account")
	}
	slog.Info("account created", "account_id", acc.ID, "number", acc.Number)
	return succeeded(c, http.StatusCreated, acc)
}

// GetAccounts lists the user's active accounts.
func (h *AccountHandler) GetAccounts(c *fiber.Ctx) error {
	accounts, err := h.Service.ListActive(c.Context(), middleware.UserID(c))
	if err != nil {
		slog.Error("failed to list accounts", "error", err)
		return failed(c, http.StatusInternalServerError, "Could not fetch accounts")
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return succeeded(c, http.StatusOK, accounts)
}

// GetAccountByNumber resolves an active account to its id and owner display
// name, for picking a transfer counterparty.
func (h *AccountHandler) GetAccountByNumber(c *fiber.Ctx) error {
	number := c.Query("number")
	if number == "" {
		return failed(c, http.StatusBadRequest, "Account number is required")
	}

	info, err := h.Service.FindByNumber(c.Context(), number)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return failed(c, http.StatusBadRequest, "Account not found")
		}
		slog.Error("account lookup failed", "error", err)
		return failed(c, http.StatusInternalServerError, "Could not fetch account")
	}
	return succeeded(c, http.StatusOK, info)
}

// DeactivateAccount soft-deletes an empty account owned by the caller.
func (h *AccountHandler) DeactivateAccount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return failed(c, http.StatusBadRequest, "Invalid account id")
	}

	err = h.Service.Deactivate(c.Context(), id, middleware.UserID(c))
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return failed(c, http.StatusBadRequest, "Account not found")
	case errors.Is(err, domain.ErrUnauthorized):
		return failed(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrAccountNotEmpty):
		return failed(c, http.StatusBadRequest, "Account not empty")
	case err != nil:
		slog.Error("failed to deactivate account", "account_id", id, "error", err)
		return failed(c, http.StatusInternalServerError, "Could not deactivate account")
	}
	slog.Info("account deactivated", "account_id", id)
	return succeeded(c, http.StatusOK, fmt.Sprintf("account %s deactivated", id))
}
