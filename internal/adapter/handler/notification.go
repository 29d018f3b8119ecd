package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/middleware"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/notification"
)

type NotificationHandler struct {
	Service *notification.Service
}

func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	list, err := h.Service.ListForUser(c.Context(), middleware.UserID(c))
	if err != nil {
		slog.Error("failed to list notifications", "error", err)
		return failed(c, http.StatusInternalServerError, "Could not fetch notifications")
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return succeeded(c, http.StatusOK, list)
}

// MarkRead flags one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return failed(c, http.StatusBadRequest, "Invalid notification id")
	}

	n, err := h.Service.MarkRead(c.Context(), id, middleware.UserID(c))
	switch {
	case errors.Is(err, domain.ErrNotificationNotFound):
		return failed(c, http.StatusNotFound, "Notification not found")
	case errors.Is(err, domain.ErrUnauthorized):
		return failed(c, http.StatusUnauthorized, "Unauthorized")
	case err != nil:
		slog.Error("failed to mark notification read", "notification_id", id, "error", err)
		return failed(c, http.StatusInternalServerError, "Could not update notification")
	}
	return succeeded(c, http.StatusOK, n)
}

func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return failed(c, http.StatusBadRequest, "Invalid notification id")
	}

	err = h.Service.Delete(c.Context(), id, middleware.UserID(c))
	switch {
	case errors.Is(err, domain.ErrNotificationNotFound):
		return failed(c, http.StatusNotFound, "Notification not found")
	case errors.Is(err, domain.ErrUnauthorized):
		return failed(c, http.StatusUnauthorized, "Unauthorized")
	case err != nil:
		slog.Error("failed to delete notification", "notification_id", id, "error", err)
		return failed(c, http.StatusInternalServerError, "Could not delete notification")
	}
	return succeeded(c, http.StatusOK, nil)
}
