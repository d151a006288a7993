package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseCategory string

const (
	ExpenseVenue         ExpenseCategory = "Venue"
	ExpenseDecoration    ExpenseCategory = "Decoration"
	ExpenseFood          ExpenseCategory = "Food"
	ExpenseMusic         ExpenseCategory = "Music"
	ExpenseTransport     ExpenseCategory = "Transport"
	ExpenseMiscellaneous ExpenseCategory = "Miscellaneous"
)

var ExpenseCategories = []ExpenseCategory{
	ExpenseVenue, ExpenseDecoration, ExpenseFood, ExpenseMusic, ExpenseTransport, ExpenseMiscellaneous,
}

func (c ExpenseCategory) Valid() bool {
	for _, v := range ExpenseCategories {
		if c == v {
			return true
		}
	}
	return false
}

type Expense struct {
	ID       int64           `json:"id"`
	EventID  int64           `json:"eventId"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category ExpenseCategory `json:"category"`
	Date     time.Time       `json:"date"`
	Notes    string          `json:"notes,omitempty"`
}

func (e *Expense) GetID() int64   { return e.ID }
func (e *Expense) SetID(id int64) { e.ID = id }
