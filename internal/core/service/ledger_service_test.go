package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/visio/internal/core/domain"
)

func TestRecordTransaction(t *testing.T) {
	repo := openRepo(t)
	now := time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)
	plus7 := time.FixedZone("UTC+7", 7*3600)
	svc := NewLedgerService(repo, fixedClock(&now), WithLocation(plus7))

	txn, err := svc.RecordTransaction(context.Background(), RecordTransactionInput{
		Type:     "Expense",
		Category: "Rent",
		Amount:   decimal.RequireFromString("2000.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionExpense, txn.Type)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), txn.Date, "date defaults to today in the reporting location")

	explicit := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err = svc.RecordTransaction(context.Background(), RecordTransactionInput{
		Type:   domain.TransactionIncome,
		Amount: decimal.NewFromInt(10),
		Date:   &explicit,
	})
	require.NoError(t, err)

	txns, err := svc.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "Rent", txns[0].Category, "most recent date first")
	assert.Equal(t, explicit, txns[1].Date)
}

func TestRecordTransaction_Validation(t *testing.T) {
	svc := NewLedgerService(openRepo(t))

	_, err := svc.RecordTransaction(context.Background(), RecordTransactionInput{Type: "refund", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.RecordTransaction(context.Background(), RecordTransactionInput{Type: domain.TransactionIncome, Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
