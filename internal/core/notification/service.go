// Package notification owns the per-user notification records: the sink the
// transfer engine enqueues into, and the read model (list, mark read,
// delete) behind the notifications routes.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

type Store interface {
	AddNotification(ctx context.Context, n *domain.Notification) error
	GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListNotificationsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	DeleteNotification(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Notify enqueues a credit notification for the destination owner. It
// satisfies the transfer engine's sink contract; delivery happens later in
// the dispatcher.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, sourceName string, amount domain.Money) error {
	now := time.Now().UTC()
	n := &domain.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Message:     fmt.Sprintf("You received a new transfer from %s for %s", sourceName, amount),
		CreatedAt:   now,
		Delivery:    domain.DeliveryQueued,
		NextAttempt: now,
	}
	return s.store.AddNotification(ctx, n)
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	return s.store.ListNotificationsForUser(ctx, userID)
}

// MarkRead flags a notification as read by its owner.
func (s *Service) MarkRead(ctx context.Context, id, requestingUserID uuid.UUID) (*domain.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != requestingUserID {
		return nil, domain.ErrUnauthorized
	}
	if err := s.store.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}

// Delete removes a notification; only the owner may do it.
func (s *Service) Delete(ctx context.Context, id, requestingUserID uuid.UUID) error {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != requestingUserID {
		return domain.ErrUnauthorized
	}
	return s.store.DeleteNotification(ctx, id)
}
