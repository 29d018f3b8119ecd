// Package account owns the account lifecycle: creation with a unique
// externally-facing number, active listings, counterparty lookup by number,
// and soft deactivation of empty accounts.
package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

type Store interface {
	CreateAccount(ctx context.Context, acc *domain.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error)
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// numberAttempts bounds the generate-and-check loop for account numbers.
// Collisions are astronomically unlikely at this scale but never assumed
// away.
const numberAttempts = 5

type Service struct {
	store          Store
	users          UserDirectory
	openingBalance int64
	maxAccounts    int
}

func NewService(store Store, users UserDirectory, openingBalance int64, maxAccounts int) *Service {
	return &Service{store: store, users: users, openingBalance: openingBalance, maxAccounts: maxAccounts}
}

// Create opens an account for the user, capped at the configured number of
// active accounts. The number is IBAN-styled and checked for uniqueness
// before use; the insert re-checks it, so a racing duplicate still loses.
func (s *Service) Create(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	active, err := s.store.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting active accounts: %w", err)
	}
	if len(active) >= s.maxAccounts {
		return nil, domain.ErrAccountLimitReached
	}

	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := generateNumber()
		if err != nil {
			return nil, err
		}
		if taken, err := s.store.NumberExists(ctx, number); err != nil {
			return nil, fmt.Errorf("checking account number: %w", err)
		} else if taken {
			continue
		}

		acc := &domain.Account{
			ID:        uuid.New(),
			Number:    number,
			Currency:  domain.DefaultCurrency,
			Balance:   s.openingBalance,
			UserID:    userID,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		err = s.store.CreateAccount(ctx, acc)
		if errors.Is(err, domain.ErrNumberTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating account: %w", err)
		}
		return acc, nil
	}
	return nil, fmt.Errorf("%w: could not allocate a unique account number", domain.ErrStorageUnavailable)
}

// generateNumber produces an IBAN-styled account number with a random
// 8-digit tail, e.g. "ES99 1234 5555 6666 04821736".
func generateNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("generating account number: %w", err)
	}
	return fmt.Sprintf("ES99 1234 5555 6666 %08d", n.Int64()), nil
}

// ListActive returns the user's active accounts.
func (s *Service) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	return s.store.ListActiveForUser(ctx, userID)
}

// FindByNumber resolves an active account's id and owner display name.
// This is how a sender identifies a counterparty before transferring.
func (s *Service) FindByNumber(ctx context.Context, number string) (*domain.AccountInfo, error) {
	acc, err := s.store.GetAccountByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	info := &domain.AccountInfo{ID: acc.ID, Number: acc.Number}
	if owner, err := s.users.GetUser(ctx, acc.UserID); err == nil {
		info.Owner = owner.DisplayName()
	}
	return info, nil
}

// Deactivate soft-deletes the account. Only the owner may do it and only
// when the balance is exactly zero; the store applies the balance condition
// atomically. Accounts are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, id, requestingUserID uuid.UUID) error {
	acc, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if acc.UserID != requestingUserID {
		return domain.ErrUnauthorized
	}
	return s.store.Deactivate(ctx, id)
}
