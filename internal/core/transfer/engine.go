// Package transfer implements the funds-transfer core: a three-phase
// protocol (intent, atomic mutation, finalize) that moves money between two
// accounts and always resolves a recorded attempt to a terminal status.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

// AccountStore is the slice of account storage the engine needs. MoveBalance
// is the atomic dual-balance update: both sides apply or neither does, the
// two rows are isolated against concurrent movers, and sufficient funds are
// re-verified under the lock.
type AccountStore interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	AddPending(ctx context.Context, accountID, txID uuid.UUID) error
	RemovePending(ctx context.Context, accountID, txID uuid.UUID) error
	MoveBalance(ctx context.Context, sourceID, destID uuid.UUID, amount int64) error
	TouchLastTransaction(ctx context.Context, accountID uuid.UUID, at time.Time) error
}

// Ledger records transfer attempts. UpdateStatus enforces the one-way
// transition table and fails with domain.ErrIllegalTransition otherwise.
type Ledger interface {
	Append(ctx context.Context, tx *domain.Transaction) error
	UpdateStatus(ctx context.Context, id uuid.UUID, to domain.TransactionStatus) error
	ListByAccounts(ctx context.Context, accountIDs []uuid.UUID, dir Direction, status domain.TransactionStatus) ([]domain.Transaction, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// NotificationSink receives "credit occurred" events. Fire and forget: a
// sink failure never rolls back a completed transfer.
type NotificationSink interface {
	Notify(ctx context.Context, userID uuid.UUID, sourceName string, amount domain.Money) error
}

// Direction selects which side of a transaction an account query matches.
type Direction int

const (
	Incoming Direction = iota
	Outgoing
)

// Request carries one transfer order. UserID is the verified caller
// identity supplied by the auth boundary.
type Request struct {
	SourceAcc      uuid.UUID
	DestinationAcc uuid.UUID
	Amount         int64
	Description    string
	UserID         uuid.UUID
}

// Result is returned for a completed transfer, with the counterparty
// display info populated.
type Result struct {
	Transaction *domain.Transaction `json:"transaction"`
	Source      domain.AccountInfo  `json:"source"`
	Destination domain.AccountInfo  `json:"destination"`
}

// Engine orchestrates transfers over explicitly injected stores; it owns no
// ambient connection state.
type Engine struct {
	accounts AccountStore
	ledger   Ledger
	users    UserDirectory
	sink     NotificationSink
	log      *slog.Logger
}

func NewEngine(accounts AccountStore, ledger Ledger, users UserDirectory, sink NotificationSink, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{accounts: accounts, ledger: ledger, users: users, sink: sink, log: log}
}

// attempt tracks one transfer through the protocol states:
// validating -> pending -> completed | cancelled. validate/begin/cancel/
// complete are the only transitions; the ledger's transition table backs
// them up.
type attempt struct {
	tx     *domain.Transaction
	source *domain.Account
	dest   *domain.Account
}

// Transfer runs the full protocol. Precondition failures return a
// *domain.ValidationError and leave no trace in the ledger. Once the intent
// phase has recorded the attempt, the call always drives it to a terminal
// status before returning; mutation failures come back as *domain.TransferError.
func (e *Engine) Transfer(ctx context.Context, req Request) (*Result, error) {
	at, err := e.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := e.begin(ctx, at); err != nil {
		return nil, err
	}

	if err := e.accounts.MoveBalance(ctx, req.SourceAcc, req.DestinationAcc, req.Amount); err != nil {
		return nil, e.cancel(ctx, at, err)
	}

	return e.complete(ctx, at)
}

// validate checks the preconditions in order; the first failure wins. These
// checks are advisory: the balance is re-verified inside MoveBalance, where
// it is authoritative.
func (e *Engine) validate(ctx context.Context, req Request) (*attempt, error) {
	switch {
	case req.Amount == 0 || req.Description == "" || req.SourceAcc == uuid.Nil || req.DestinationAcc == uuid.Nil:
		return nil, domain.Validation("transaction information is incomplete")
	case req.Amount < 0:
		return nil, domain.Validation("amount must be greater than 0")
	case req.SourceAcc == req.DestinationAcc:
		return nil, domain.Validation("source and destination accounts must be different")
	}

	source, err := e.accounts.GetAccount(ctx, req.SourceAcc)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.Validation("source account does not exist")
		}
		return nil, fmt.Errorf("loading source account: %w", err)
	}
	dest, err := e.accounts.GetAccount(ctx, req.DestinationAcc)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.Validation("destination account does not exist")
		}
		return nil, fmt.Errorf("loading destination account: %w", err)
	}

	switch {
	case source.UserID != req.UserID:
		return nil, domain.Validation("source account does not belong to the user")
	case source.Balance < req.Amount:
		return nil, domain.Validation("source account does not have enough balance")
	case len(req.Description) < 5 || len(req.Description) > 100:
		return nil, domain.Validation("description must be between 5 and 100 characters")
	}

	return &attempt{
		tx: &domain.Transaction{
			ID:             uuid.New(),
			Amount:         req.Amount,
			Description:    req.Description,
			SourceAcc:      req.SourceAcc,
			DestinationAcc: req.DestinationAcc,
			Status:         domain.StatusPending,
			CreatedAt:      time.Now().UTC(),
		},
		source: source,
		dest:   dest,
	}, nil
}

// begin is the intent phase: the attempt becomes durable and visible before
// any money moves, so a crash from here on is auditable.
func (e *Engine) begin(ctx context.Context, at *attempt) error {
	if err := e.ledger.Append(ctx, at.tx); err != nil {
		return &domain.TransferError{
			Code:          domain.CodeStorageUnavailable,
			TransactionID: at.tx.ID.String(),
			Err:           fmt.Errorf("recording transfer intent: %w", err),
		}
	}
	if err := e.accounts.AddPending(ctx, at.tx.SourceAcc, at.tx.ID); err != nil {
		// The ledger row exists, so resolve it before surfacing the error.
		return e.cancel(ctx, at, fmt.Errorf("marking transfer pending: %w", err))
	}
	return nil
}

// cancel resolves a recorded attempt to cancelled. It is the single exit for
// every post-intent failure; the pending transaction is never left behind.
func (e *Engine) cancel(ctx context.Context, at *attempt, cause error) error {
	at.tx.Status = domain.StatusCancelled
	if err := e.ledger.UpdateStatus(ctx, at.tx.ID, domain.StatusCancelled); err != nil {
		e.log.Error("failed to mark transaction cancelled", "transaction_id", at.tx.ID, "error", err)
	}
	if err := e.accounts.RemovePending(ctx, at.tx.SourceAcc, at.tx.ID); err != nil {
		e.log.Error("failed to clear pending marker", "transaction_id", at.tx.ID, "error", err)
	}

	code := domain.CodeStorageUnavailable
	switch {
	case errors.Is(cause, domain.ErrInsufficientFunds):
		code = domain.CodeInsufficientFunds
	case errors.Is(cause, domain.ErrInvariantViolation):
		code = domain.CodeInvariantViolation
		e.log.Error("ALARM: asymmetric balance update detected", "transaction_id", at.tx.ID, "error", cause)
	}
	return &domain.TransferError{Code: code, TransactionID: at.tx.ID.String(), Err: cause}
}

// complete finalizes a successful mutation and emits the credit
// notification. The money has already moved, so finalization errors are
// surfaced but never converted into a cancellation.
func (e *Engine) complete(ctx context.Context, at *attempt) (*Result, error) {
	if err := e.ledger.UpdateStatus(ctx, at.tx.ID, domain.StatusCompleted); err != nil {
		e.log.Error("ALARM: balances moved but status update failed", "transaction_id", at.tx.ID, "error", err)
		return nil, fmt.Errorf("finalizing transaction %s: %w", at.tx.ID, err)
	}
	at.tx.Status = domain.StatusCompleted

	if err := e.accounts.RemovePending(ctx, at.tx.SourceAcc, at.tx.ID); err != nil {
		e.log.Error("failed to clear pending marker", "transaction_id", at.tx.ID, "error", err)
	}
	if err := e.accounts.TouchLastTransaction(ctx, at.tx.SourceAcc, time.Now().UTC()); err != nil {
		e.log.Error("failed to update last transaction time", "account_id", at.tx.SourceAcc, "error", err)
	}

	e.notify(ctx, at)

	res := &Result{Transaction: at.tx}
	res.Source, res.Destination = e.displayInfo(ctx, at.source), e.displayInfo(ctx, at.dest)
	return res, nil
}

func (e *Engine) notify(ctx context.Context, at *attempt) {
	benefactor, err := e.users.GetUser(ctx, at.source.UserID)
	if err != nil {
		e.log.Error("notification skipped: source owner lookup failed", "user_id", at.source.UserID, "error", err)
		return
	}
	amount := domain.NewMoney(at.tx.Amount, at.dest.Currency)
	if err := e.sink.Notify(ctx, at.dest.UserID, benefactor.DisplayName(), amount); err != nil {
		e.log.Error("notification delivery failed", "user_id", at.dest.UserID, "error", err)
	}
}

func (e *Engine) displayInfo(ctx context.Context, acc *domain.Account) domain.AccountInfo {
	info := domain.AccountInfo{ID: acc.ID, Number: acc.Number}
	if owner, err := e.users.GetUser(ctx, acc.UserID); err == nil {
		info.Owner = owner.DisplayName()
	}
	return info
}

// Statement is the per-user read model: completed transactions split by
// direction, each with counterparty display info.
type Statement struct {
	Incoming []Entry `json:"incomingTransactions"`
	Outgoing []Entry `json:"outgoingTransactions"`
}

type Entry struct {
	Transaction  domain.Transaction `json:"transaction"`
	Counterparty domain.AccountInfo `json:"counterparty"`
}

// ListTransactionsForUser returns the statement across all of the user's
// active accounts. Read-only; plays no part in transfer correctness.
func (e *Engine) ListTransactionsForUser(ctx context.Context, userID uuid.UUID) (*Statement, error) {
	accounts, err := e.accounts.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	ids := make([]uuid.UUID, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}

	stmt := &Statement{Incoming: []Entry{}, Outgoing: []Entry{}}
	if len(ids) == 0 {
		return stmt, nil
	}

	incoming, err := e.ledger.ListByAccounts(ctx, ids, Incoming, domain.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("listing incoming transactions: %w", err)
	}
	for _, tx := range incoming {
		stmt.Incoming = append(stmt.Incoming, Entry{Transaction: tx, Counterparty: e.counterparty(ctx, tx.SourceAcc)})
	}

	outgoing, err := e.ledger.ListByAccounts(ctx, ids, Outgoing, domain.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("listing outgoing transactions: %w", err)
	}
	for _, tx := range outgoing {
		stmt.Outgoing = append(stmt.Outgoing, Entry{Transaction: tx, Counterparty: e.counterparty(ctx, tx.DestinationAcc)})
	}
	return stmt, nil
}

func (e *Engine) counterparty(ctx context.Context, accountID uuid.UUID) domain.AccountInfo {
	acc, err := e.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return domain.AccountInfo{ID: accountID}
	}
	return e.displayInfo(ctx, acc)
}
