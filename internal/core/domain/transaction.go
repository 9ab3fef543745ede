package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// SalesCategory is the ledger category of the entry posted for every order.
const SalesCategory = "Sales"

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction is one ledger entry. Entries are appended, never edited.
type Transaction struct {
	ID          int64           `json:"id"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Date        time.Time       `json:"date"` // civil date, midnight UTC
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   int64           `json:"created_by"`
}

// CivilDate truncates t to its calendar date in t's location and returns that
// date at midnight UTC, the form used for Transaction.Date.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
