package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/transfer"
)

type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, tx *domain.Transaction) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO transactions (id, amount, description, source_acc, destination_acc, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, tx.Amount, tx.Description, tx.SourceAcc, tx.DestinationAcc, tx.Status, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording transaction: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := r.db.QueryRow(ctx, `
		SELECT id, amount, description, source_acc, destination_acc, status, created_at
		FROM transactions WHERE id = $1`, id).
		Scan(&tx.ID, &tx.Amount, &tx.Description, &tx.SourceAcc, &tx.DestinationAcc, &tx.Status, &tx.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading transaction: %w", err)
	}
	return &tx, nil
}

// UpdateStatus applies the one-way transition table inside the statement:
// only a pending row may move, and only to a terminal status.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.TransactionStatus) error {
	if !domain.StatusPending.CanTransition(to) {
		return fmt.Errorf("%w: pending -> %s", domain.ErrIllegalTransition, to)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = $2 WHERE id = $1 AND status = $3`,
		id, to, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("updating transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, current.Status, to)
	}
	return nil
}

func (r *LedgerRepository) ListByAccounts(ctx context.Context, accountIDs []uuid.UUID, dir transfer.Direction, status domain.TransactionStatus) ([]domain.Transaction, error) {
	column := "destination_acc"
	if dir == transfer.Outgoing {
		column = "source_acc"
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, amount, description, source_acc, destination_acc, status, created_at
		FROM transactions
		WHERE `+column+` = ANY($1) AND status = $2
		ORDER BY created_at`, accountIDs, status)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.Amount, &tx.Description, &tx.SourceAcc, &tx.DestinationAcc, &tx.Status, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
