package domain

// TransactionStatus is a closed set. Transitions are one-way: a pending
// transaction settles to completed or cancelled and never moves again.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition is the transition table the ledger enforces on every
// status update.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	return s == StatusPending && (to == StatusCompleted || to == StatusCancelled)
}
