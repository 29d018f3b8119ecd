package domain

import (
	"errors"
	"fmt"
)

type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// DefaultCurrency is assigned to new accounts; the field is immutable
// afterwards and conversion is out of scope.
const DefaultCurrency = EUR

// Money holds an amount in minor units (cents). 10.50 EUR is 1050.
// Balances and transfer amounts are never represented in floating point.
type Money struct {
	Amount   int64
	Currency Currency
}

func NewMoney(amount int64, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Add adds two Money values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: cannot add %s to %s", other.Currency, m.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Subtract subtracts without ever going negative.
func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, errors.New("currency mismatch")
	}
	if m.Amount < other.Amount {
		return Money{}, ErrInsufficientFunds
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// String renders major.minor with the currency code, e.g. "105.00 EUR".
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, m.Currency)
}
