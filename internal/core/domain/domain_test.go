package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want OrderStatus
		ok   bool
	}{
		{"pending", OrderStatusPending, true},
		{" Shipped ", OrderStatusShipped, true},
		{"CANCELLED", OrderStatusCancelled, true},
		{"lost", OrderStatus("lost"), false},
		{"", OrderStatus(""), false},
	}
	for _, tt := range tests {
		got, ok := ParseOrderStatus(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestOrderStatusLabel(t *testing.T) {
	assert.Equal(t, "Pending", OrderStatusPending.Label())
	assert.Equal(t, "Delivered", OrderStatusDelivered.Label())
	assert.Equal(t, "", OrderStatus("").Label())
}

func TestApplyStockDelta(t *testing.T) {
	assert.Equal(t, 7, ApplyStockDelta(10, -3))
	assert.Equal(t, 0, ApplyStockDelta(10, -10))
	assert.Equal(t, 0, ApplyStockDelta(2, -5), "floors at zero")
	assert.Equal(t, 15, ApplyStockDelta(10, 5))

	assert.Equal(t, MaxQuantity, ApplyStockDelta(10, math.MaxInt), "saturates instead of wrapping")
	assert.Equal(t, MaxQuantity, ApplyStockDelta(MaxQuantity, 1))
	assert.Equal(t, 0, ApplyStockDelta(10, math.MinInt))
	assert.Equal(t, 0, ApplyStockDelta(-1, math.MinInt))
}

func TestOrderItemsTotal(t *testing.T) {
	o := Order{Items: []OrderItem{
		{Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
		{Quantity: 2, UnitPrice: decimal.RequireFromString("5.00")},
	}}
	assert.True(t, o.ItemsTotal().Equal(decimal.NewFromInt(40)))
}

func TestProductStock(t *testing.T) {
	p := Product{Price: decimal.RequireFromString("2.50"), StockQuantity: 4, MinStockLevel: 4}
	assert.True(t, p.IsLowStock(), "threshold is inclusive")
	assert.True(t, p.StockValue().Equal(decimal.NewFromInt(10)))

	p.StockQuantity = 5
	assert.False(t, p.IsLowStock())
}

func TestCivilDate(t *testing.T) {
	plus7 := time.FixedZone("UTC+7", 7*3600)
	at := time.Date(2026, 3, 15, 2, 30, 0, 0, plus7) // 2026-03-14 19:30 UTC

	got := CivilDate(at)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestTransactionTypeValid(t *testing.T) {
	assert.True(t, TransactionIncome.Valid())
	assert.True(t, TransactionExpense.Valid())
	assert.False(t, TransactionType("refund").Valid())
}

func TestErrorKinds(t *testing.T) {
	notFound := fmt.Errorf("load order: %w", NewNotFound("order", 42))
	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.NotErrorIs(t, notFound, ErrValidation)
	assert.EqualError(t, notFound, "load order: order 42 not found")

	var nf *NotFoundError
	assert.True(t, errors.As(notFound, &nf))
	assert.Equal(t, "order", nf.Entity)

	invalid := NewValidation("quantity", "must be positive")
	assert.ErrorIs(t, invalid, ErrValidation)
	assert.EqualError(t, invalid, "invalid quantity: must be positive")
	assert.EqualError(t, NewValidation("", "empty order"), "invalid input: empty order")
}
