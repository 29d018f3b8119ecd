package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, user_id, message, created_at, is_read, delivery, attempts, next_attempt`

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.CreatedAt, &n.Read, &n.Delivery, &n.Attempts, &n.NextAttempt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning notification: %w", err)
	}
	return &n, nil
}

func (r *NotificationRepository) AddNotification(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, message, created_at, is_read, delivery, attempts, next_attempt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Message, n.CreatedAt, n.Read, n.Delivery, n.Attempts, n.NextAttempt)
	if err != nil {
		return fmt.Errorf("adding notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return scanNotification(r.db.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
}

func (r *NotificationRepository) ListNotificationsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// NextUndelivered claims the oldest due queued notification. SKIP LOCKED
// keeps multiple dispatcher instances from picking the same row.
func (r *NotificationRepository) NextUndelivered(ctx context.Context, now time.Time) (*domain.Notification, error) {
	return scanNotification(r.db.QueryRow(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE delivery = $1 AND next_attempt <= $2
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, domain.DeliveryQueued, now))
}

func (r *NotificationRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE notifications SET delivery = $2 WHERE id = $1`, id, domain.DeliveryDelivered)
	if err != nil {
		return fmt.Errorf("marking notification delivered: %w", err)
	}
	return nil
}

func (r *NotificationRepository) RescheduleDelivery(ctx context.Context, id uuid.UUID, attempts int, next time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE notifications SET attempts = $2, next_attempt = $3 WHERE id = $1`, id, attempts, next)
	if err != nil {
		return fmt.Errorf("rescheduling notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) MarkDeliveryFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE notifications SET delivery = $2 WHERE id = $1`, id, domain.DeliveryFailed)
	if err != nil {
		return fmt.Errorf("marking notification failed: %w", err)
	}
	return nil
}
