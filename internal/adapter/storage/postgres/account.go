package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, number, currency, balance, user_id, active, last_transaction, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	var last *time.Time
	err := row.Scan(&acc.ID, &acc.Number, &acc.Currency, &acc.Balance, &acc.UserID, &acc.Active, &last, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	if last != nil {
		acc.LastTransaction = *last
	}
	return &acc, nil
}

func (r *AccountRepository) CreateAccount(ctx context.Context, acc *domain.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, number, currency, balance, user_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		acc.ID, acc.Number, acc.Currency, acc.Balance, acc.UserID, acc.Active, acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrNumberTaken
		}
		return fmt.Errorf("creating account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	pending, err := r.pendingFor(ctx, id)
	if err != nil {
		return nil, err
	}
	acc.Pending = pending
	return acc, nil
}

func (r *AccountRepository) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE number = $1 AND active`, number))
}

func (r *AccountRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking account number: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 AND active ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	return out, rows.Err()
}

func (r *AccountRepository) pendingFor(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT transaction_id FROM account_pending WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing pending transactions: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *AccountRepository) AddPending(ctx context.Context, accountID, txID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO account_pending (account_id, transaction_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, accountID, txID)
	if err != nil {
		return fmt.Errorf("adding pending marker: %w", err)
	}
	return nil
}

func (r *AccountRepository) RemovePending(ctx context.Context, accountID, txID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM account_pending WHERE account_id = $1 AND transaction_id = $2`, accountID, txID)
	if err != nil {
		return fmt.Errorf("removing pending marker: %w", err)
	}
	return nil
}

func (r *AccountRepository) TouchLastTransaction(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET last_transaction = $2 WHERE id = $1`, accountID, at)
	if err != nil {
		return fmt.Errorf("updating last transaction time: %w", err)
	}
	return nil
}

// MoveBalance debits the source and credits the destination in one
// database transaction. Both rows are locked in ascending id order so
// concurrent transfers touching either account serialize without
// deadlocking, and transfers on disjoint pairs do not block each other.
// The funds check runs on the locked balance; the engine's earlier check is
// advisory.
func (r *AccountRepository) MoveBalance(ctx context.Context, sourceID, destID uuid.UUID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	first, second := sourceID, destID
	if bytes.Compare(destID[:], sourceID[:]) < 0 {
		first, second = destID, sourceID
	}
	balances := map[uuid.UUID]int64{}
	for _, id := range []uuid.UUID{first, second} {
		var balance int64
		err := tx.QueryRow(ctx,
			`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		balances[id] = balance
	}

	if balances[sourceID] < amount {
		return domain.ErrInsufficientFunds
	}

	debit, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE id = $2`, amount, sourceID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	credit, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2`, amount, destID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	// Both rows were locked above, so anything but exactly one row per side
	// means the update applied asymmetrically; the rollback undoes it.
	if debit.RowsAffected() != 1 || credit.RowsAffected() != 1 {
		return domain.ErrInvariantViolation
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Deactivate soft-deletes an account only while its balance is zero; the
// condition is part of the statement so a concurrent credit cannot slip in.
func (r *AccountRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET active = FALSE WHERE id = $1 AND balance = 0`, id)
	if err != nil {
		return fmt.Errorf("deactivating account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		acc, err := r.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.Balance != 0 {
			return domain.ErrAccountNotEmpty
		}
	}
	return nil
}
