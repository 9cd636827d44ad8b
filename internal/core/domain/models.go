package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountKind string

const (
	KindPersonal AccountKind = "personal"
	KindMerchant AccountKind = "merchant"
)

// Account represents a customer's wallet. The balance is an exact decimal
// fixed at two fractional places and never goes negative.
type Account struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Document     string
	Email        string
	PasswordHash string
	Balance      decimal.Decimal
	Kind         AccountKind
	CreatedAt    time.Time
}

// FullName joins the display name fields for notification messages.
func (a *Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Transfer represents a settled movement of money between two accounts.
// Reversed is the only mutable field: it flips to true exactly once, when
// the transfer is undone. Reversal entries are created with Reversed already
// true, which keeps them from ever being reversed themselves.
type Transfer struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Amount     decimal.Decimal
	Reversed   bool
	CreatedAt  time.Time
}
