package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/transfer"
)

func seedAccount(t *testing.T, s *Store, number string, balance int64) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		ID:        uuid.New(),
		Number:    number,
		Currency:  domain.EUR,
		Balance:   balance,
		UserID:    uuid.New(),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func TestCreateAccount_NumberTaken(t *testing.T) {
	t.Parallel()
	s := New()
	seedAccount(t, s, "ES99 1234 5555 6666 00000001", 0)

	dup := &domain.Account{ID: uuid.New(), Number: "ES99 1234 5555 6666 00000001", Active: true}
	err := s.CreateAccount(context.Background(), dup)
	assert.ErrorIs(t, err, domain.ErrNumberTaken)
}

func TestGetAccountByNumber_SkipsInactive(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "ES99 1234 5555 6666 00000002", 0)

	found, err := s.GetAccountByNumber(ctx, acc.Number)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, found.ID)

	require.NoError(t, s.Deactivate(ctx, acc.ID))
	_, err = s.GetAccountByNumber(ctx, acc.Number)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestMoveBalance(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	src := seedAccount(t, s, "ES99 1234 5555 6666 00000003", 100)
	dst := seedAccount(t, s, "ES99 1234 5555 6666 00000004", 0)

	require.NoError(t, s.MoveBalance(ctx, src.ID, dst.ID, 60))

	after, err := s.GetAccount(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), after.Balance)
	after, err = s.GetAccount(ctx, dst.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), after.Balance)

	// The remaining 40 cannot cover 60; nothing changes.
	err = s.MoveBalance(ctx, src.ID, dst.ID, 60)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	after, err = s.GetAccount(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), after.Balance)

	err = s.MoveBalance(ctx, uuid.New(), dst.ID, 1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestMoveBalance_CreditFailureRestoresSource(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	src := seedAccount(t, s, "ES99 1234 5555 6666 00000005", 100)
	dst := seedAccount(t, s, "ES99 1234 5555 6666 00000006", 0)

	s.beforeCredit = func() error { return errors.New("disk full") }
	err := s.MoveBalance(ctx, src.ID, dst.ID, 60)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)

	// The debit must not survive a failed credit.
	after, getErr := s.GetAccount(ctx, src.ID)
	require.NoError(t, getErr)
	assert.Equal(t, int64(100), after.Balance)
	after, getErr = s.GetAccount(ctx, dst.ID)
	require.NoError(t, getErr)
	assert.Equal(t, int64(0), after.Balance)
}

func TestMoveBalance_ConcurrentOppositeDirections(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "ES99 1234 5555 6666 00000007", 10_000)
	b := seedAccount(t, s, "ES99 1234 5555 6666 00000008", 10_000)

	// A->B and B->A at once would deadlock without the id-ordered locking.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.MoveBalance(ctx, a.ID, b.ID, 7))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.MoveBalance(ctx, b.ID, a.ID, 7))
		}()
	}
	wg.Wait()

	after, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), after.Balance)
	after, err = s.GetAccount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), after.Balance)
}

func TestDeactivate(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	loaded := seedAccount(t, s, "ES99 1234 5555 6666 00000009", 50)
	assert.ErrorIs(t, s.Deactivate(ctx, loaded.ID), domain.ErrAccountNotEmpty)

	empty := seedAccount(t, s, "ES99 1234 5555 6666 00000010", 0)
	require.NoError(t, s.Deactivate(ctx, empty.ID))

	listed, err := s.ListActiveForUser(ctx, empty.UserID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	assert.ErrorIs(t, s.Deactivate(ctx, uuid.New()), domain.ErrAccountNotFound)
}

func TestPendingMarkers(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "ES99 1234 5555 6666 00000011", 0)

	tx1, tx2 := uuid.New(), uuid.New()
	require.NoError(t, s.AddPending(ctx, acc.ID, tx1))
	require.NoError(t, s.AddPending(ctx, acc.ID, tx2))

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tx1, tx2}, got.Pending)

	require.NoError(t, s.RemovePending(ctx, acc.ID, tx1))
	got, err = s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tx2}, got.Pending)

	// Removing an absent marker is a no-op, not an error.
	require.NoError(t, s.RemovePending(ctx, acc.ID, tx1))
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	newTx := func(status domain.TransactionStatus) uuid.UUID {
		id := uuid.New()
		require.NoError(t, s.Append(ctx, &domain.Transaction{
			ID: id, Amount: 1, SourceAcc: uuid.New(), DestinationAcc: uuid.New(),
			Status: status, CreatedAt: time.Now().UTC(),
		}))
		return id
	}

	id := newTx(domain.StatusPending)
	require.NoError(t, s.UpdateStatus(ctx, id, domain.StatusCompleted))
	// Terminal states never change again.
	assert.ErrorIs(t, s.UpdateStatus(ctx, id, domain.StatusCancelled), domain.ErrIllegalTransition)
	assert.ErrorIs(t, s.UpdateStatus(ctx, id, domain.StatusCompleted), domain.ErrIllegalTransition)

	id = newTx(domain.StatusPending)
	require.NoError(t, s.UpdateStatus(ctx, id, domain.StatusCancelled))
	assert.ErrorIs(t, s.UpdateStatus(ctx, id, domain.StatusCompleted), domain.ErrIllegalTransition)

	assert.ErrorIs(t, s.UpdateStatus(ctx, uuid.New(), domain.StatusCompleted), domain.ErrTransactionNotFound)
}

func TestListByAccounts(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	base := time.Now().UTC()
	put := func(src, dst uuid.UUID, status domain.TransactionStatus, offset time.Duration) {
		require.NoError(t, s.Append(ctx, &domain.Transaction{
			ID: uuid.New(), Amount: 1, SourceAcc: src, DestinationAcc: dst,
			Status: status, CreatedAt: base.Add(offset),
		}))
	}
	put(a, b, domain.StatusCompleted, 0)
	put(b, a, domain.StatusCompleted, time.Second)
	put(a, c, domain.StatusCancelled, 2*time.Second)
	put(c, b, domain.StatusCompleted, 3*time.Second)

	out, err := s.ListByAccounts(ctx, []uuid.UUID{a}, transfer.Outgoing, domain.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, b, out[0].DestinationAcc)

	in, err := s.ListByAccounts(ctx, []uuid.UUID{a, b}, transfer.Incoming, domain.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, in, 3)
	// Oldest first.
	assert.True(t, in[0].CreatedAt.Before(in[1].CreatedAt))
	assert.True(t, in[1].CreatedAt.Before(in[2].CreatedAt))
}

func TestNotificationQueue(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.NextUndelivered(ctx, now)
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)

	older := &domain.Notification{
		ID: uuid.New(), UserID: uuid.New(), Message: "first",
		CreatedAt: now.Add(-2 * time.Minute), Delivery: domain.DeliveryQueued, NextAttempt: now.Add(-time.Minute),
	}
	newer := &domain.Notification{
		ID: uuid.New(), UserID: uuid.New(), Message: "second",
		CreatedAt: now.Add(-time.Minute), Delivery: domain.DeliveryQueued, NextAttempt: now.Add(-time.Minute),
	}
	deferred := &domain.Notification{
		ID: uuid.New(), UserID: uuid.New(), Message: "later",
		CreatedAt: now.Add(-3 * time.Minute), Delivery: domain.DeliveryQueued, NextAttempt: now.Add(time.Hour),
	}
	for _, n := range []*domain.Notification{older, newer, deferred} {
		require.NoError(t, s.AddNotification(ctx, n))
	}

	// Oldest due notification wins; the deferred one is invisible until its
	// next attempt time.
	got, err := s.NextUndelivered(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	require.NoError(t, s.MarkDelivered(ctx, older.ID))
	got, err = s.NextUndelivered(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	require.NoError(t, s.RescheduleDelivery(ctx, newer.ID, 1, now.Add(time.Hour)))
	_, err = s.NextUndelivered(ctx, now)
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)

	require.NoError(t, s.MarkDeliveryFailed(ctx, deferred.ID))
	_, err = s.NextUndelivered(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
}

func TestAPIKeys(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, s.SaveAPIKey(ctx, userID, "hash-1"))
	got, err := s.ResolveAPIKey(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = s.ResolveAPIKey(ctx, "hash-2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
