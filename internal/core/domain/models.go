package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the account holder. Credentials and token issuance live outside
// this service; only the verified user id ever crosses the boundary.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Active    bool      `json:"active"`
}

// DisplayName is what shows up in transfer notifications.
func (u User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// Account holds a balance in minor units. Number, currency and owner are
// fixed at creation; deactivation is the only lifecycle change afterwards.
type Account struct {
	ID       uuid.UUID `json:"id"`
	Number   string    `json:"number"`
	Currency Currency  `json:"currency"`
	Balance  int64     `json:"balance"`
	UserID   uuid.UUID `json:"user"`
	Active   bool      `json:"active"`
	// Pending holds the ids of transactions currently in flight with this
	// account as source.
	Pending         []uuid.UUID `json:"pendingTransactions"`
	LastTransaction time.Time   `json:"lastTransaction"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// Transaction is the unit of auditability. Every field except Status is
// immutable once the record exists.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	Amount         int64             `json:"amount"`
	Description    string            `json:"description"`
	SourceAcc      uuid.UUID         `json:"sourceAcc"`
	DestinationAcc uuid.UUID         `json:"destinationAcc"`
	Status         TransactionStatus `json:"status"`
	CreatedAt      time.Time         `json:"date"`
}

// AccountInfo is the display projection attached to transfer results and
// statement rows: the counterparty's number and owner name, nothing else.
type AccountInfo struct {
	ID     uuid.UUID `json:"id"`
	Number string    `json:"number"`
	Owner  string    `json:"owner"`
}

// DeliveryState tracks outbound dispatch of a notification, separately from
// the user-facing Read flag.
type DeliveryState string

const (
	DeliveryQueued    DeliveryState = "queued"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryFailed    DeliveryState = "failed"
)

// Notification is the record the transfer engine enqueues for the
// destination owner. Delivery/Attempts/NextAttempt drive the background
// dispatcher; Read is the user-facing flag.
type Notification struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user"`
	Message     string        `json:"message"`
	CreatedAt   time.Time     `json:"date"`
	Read        bool          `json:"read"`
	Delivery    DeliveryState `json:"-"`
	Attempts    int           `json:"-"`
	NextAttempt time.Time     `json:"-"`
}
