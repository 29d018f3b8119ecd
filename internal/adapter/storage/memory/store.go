// Package memory is the in-process storage backend. It implements the same
// contracts as the postgres package and is used in development mode and by
// the concurrency property tests. Lock discipline mirrors the postgres
// backend: the two accounts of a transfer are locked in ascending id order,
// so disjoint pairs never contend.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/transfer"
)

type accountRec struct {
	mu  sync.Mutex
	acc domain.Account
}

// Store holds every record behind a single registry lock plus one mutex per
// account for balance movement. The registry lock is never held while an
// account mutex is held.
type Store struct {
	mu            sync.RWMutex
	accounts      map[uuid.UUID]*accountRec
	numbers       map[string]uuid.UUID
	transactions  map[uuid.UUID]*domain.Transaction
	notifications map[uuid.UUID]*domain.Notification
	users         map[uuid.UUID]*domain.User
	apiKeys       map[string]uuid.UUID

	// beforeCredit, when set, runs after the debit and before the credit of
	// MoveBalance. Tests use it to force the destination-side update to fail.
	beforeCredit func() error
}

func New() *Store {
	return &Store{
		accounts:      make(map[uuid.UUID]*accountRec),
		numbers:       make(map[string]uuid.UUID),
		transactions:  make(map[uuid.UUID]*domain.Transaction),
		notifications: make(map[uuid.UUID]*domain.Notification),
		users:         make(map[uuid.UUID]*domain.User),
		apiKeys:       make(map[string]uuid.UUID),
	}
}

// --- accounts ---

func (s *Store) CreateAccount(ctx context.Context, acc *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.numbers[acc.Number]; taken {
		return domain.ErrNumberTaken
	}
	cp := *acc
	cp.Pending = append([]uuid.UUID(nil), acc.Pending...)
	s.accounts[acc.ID] = &accountRec{acc: cp}
	s.numbers[acc.Number] = acc.ID
	return nil
}

func (s *Store) record(id uuid.UUID) (*accountRec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return rec, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	cp := rec.acc
	cp.Pending = append([]uuid.UUID(nil), rec.acc.Pending...)
	return &cp, nil
}

// GetAccountByNumber only matches active accounts, like the lookup a sender
// uses to resolve a counterparty.
func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	s.mu.RLock()
	id, ok := s.numbers[number]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	acc, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (s *Store) NumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.numbers[number]
	return ok, nil
}

func (s *Store) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	s.mu.RLock()
	recs := make([]*accountRec, 0, 4)
	for _, rec := range s.accounts {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	var out []domain.Account
	for _, rec := range recs {
		rec.mu.Lock()
		if rec.acc.UserID == userID && rec.acc.Active {
			cp := rec.acc
			cp.Pending = append([]uuid.UUID(nil), rec.acc.Pending...)
			out = append(out, cp)
		}
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AddPending(ctx context.Context, accountID, txID uuid.UUID) error {
	rec, err := s.record(accountID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.acc.Pending = append(rec.acc.Pending, txID)
	return nil
}

func (s *Store) RemovePending(ctx context.Context, accountID, txID uuid.UUID) error {
	rec, err := s.record(accountID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, id := range rec.acc.Pending {
		if id == txID {
			rec.acc.Pending = append(rec.acc.Pending[:i], rec.acc.Pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) TouchLastTransaction(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	rec, err := s.record(accountID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.acc.LastTransaction = at
	return nil
}

// MoveBalance is the atomic dual-balance update. Both account mutexes are
// held for the whole movement, acquired in ascending id order to avoid
// deadlock, and the source balance is re-checked under the lock; the
// precondition-time check in the engine is advisory only.
func (s *Store) MoveBalance(ctx context.Context, sourceID, destID uuid.UUID, amount int64) error {
	src, err := s.record(sourceID)
	if err != nil {
		return err
	}
	dst, err := s.record(destID)
	if err != nil {
		return err
	}

	first, second := src, dst
	if bytes.Compare(destID[:], sourceID[:]) < 0 {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if src.acc.Balance < amount {
		return domain.ErrInsufficientFunds
	}

	src.acc.Balance -= amount
	if s.beforeCredit != nil {
		if err := s.beforeCredit(); err != nil {
			src.acc.Balance += amount
			return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
	}
	dst.acc.Balance += amount
	return nil
}

// Deactivate soft-deletes an account, conditional on a zero balance. The
// balance check happens under the account lock so it cannot race a
// concurrent credit.
func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) error {
	rec, err := s.record(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.acc.Balance != 0 {
		return domain.ErrAccountNotEmpty
	}
	rec.acc.Active = false
	return nil
}

// --- transaction ledger ---

func (s *Store) Append(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.transactions[tx.ID] = &cp
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

// UpdateStatus enforces the one-way transition table.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if !tx.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, tx.Status, to)
	}
	tx.Status = to
	return nil
}

func (s *Store) ListByAccounts(ctx context.Context, accountIDs []uuid.UUID, dir transfer.Direction, status domain.TransactionStatus) ([]domain.Transaction, error) {
	wanted := make(map[uuid.UUID]bool, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.Status != status {
			continue
		}
		side := tx.DestinationAcc
		if dir == transfer.Outgoing {
			side = tx.SourceAcc
		}
		if wanted[side] {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- notifications ---

func (s *Store) AddNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *Store) ListNotificationsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkRead(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

func (s *Store) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return domain.ErrNotificationNotFound
	}
	delete(s.notifications, id)
	return nil
}

// NextUndelivered returns the oldest queued notification that is due, or
// ErrNotificationNotFound when the queue is empty.
func (s *Store) NextUndelivered(ctx context.Context, now time.Time) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var next *domain.Notification
	for _, n := range s.notifications {
		if n.Delivery != domain.DeliveryQueued || n.NextAttempt.After(now) {
			continue
		}
		if next == nil || n.CreatedAt.Before(next.CreatedAt) {
			next = n
		}
	}
	if next == nil {
		return nil, domain.ErrNotificationNotFound
	}
	cp := *next
	return &cp, nil
}

func (s *Store) setDelivery(id uuid.UUID, state domain.DeliveryState, attempts int, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	n.Delivery = state
	n.Attempts = attempts
	n.NextAttempt = next
	return nil
}

func (s *Store) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	n, err := s.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	return s.setDelivery(id, domain.DeliveryDelivered, n.Attempts, n.NextAttempt)
}

func (s *Store) RescheduleDelivery(ctx context.Context, id uuid.UUID, attempts int, next time.Time) error {
	return s.setDelivery(id, domain.DeliveryQueued, attempts, next)
}

func (s *Store) MarkDeliveryFailed(ctx context.Context, id uuid.UUID) error {
	n, err := s.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	return s.setDelivery(id, domain.DeliveryFailed, n.Attempts, n.NextAttempt)
}

// --- users and api keys ---

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) SaveAPIKey(ctx context.Context, userID uuid.UUID, keyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[keyHash] = userID
	return nil
}

func (s *Store) ResolveAPIKey(ctx context.Context, keyHash string) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.apiKeys[keyHash]
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return userID, nil
}
