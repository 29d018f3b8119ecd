package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/security"
)

// UserStore is the slice of storage the registration endpoint needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	SaveAPIKey(ctx context.Context, userID uuid.UUID, keyHash string) error
}

// UserHandler is the minimal identity bootstrap. Real credential handling
// lives outside this service; this endpoint only mints the user record and
// the API key that stands in for a verified session.
type UserHandler struct {
	Store UserStore
}

type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return failed(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		return failed(c, http.StatusBadRequest, "Email, first name and last name are required")
	}

	user := &domain.User{
		ID:        uuid.New(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Active:    true,
	}
	if err := h.Store.CreateUser(c.Context(), user); err != nil {
		slog.Error("failed to create user", "error", err)
		return failed(c, http.StatusInternalServerError, "Could not create user")
	}

	realKey, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		slog.Error("failed to generate api key", "error", err)
		return failed(c, http.StatusInternalServerError, "Could not create user")
	}
	if err := h.Store.SaveAPIKey(c.Context(), user.ID, keyHash); err != nil {
		slog.Error("failed to save api key", "error", err)
		return failed(c, http.StatusInternalServerError, "Could not create user")
	}

	slog.Info("user registered", "user_id", user.ID)
	// The raw key is returned exactly once; only its hash is stored.
	return succeeded(c, http.StatusCreated, fiber.Map{
		"user":    user,
		"api_key": realKey,
	})
}
