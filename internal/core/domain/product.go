package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultMinStockLevel = 10

// MaxQuantity is the largest stock level or quantity the INT columns hold.
const MaxQuantity = math.MaxInt32

type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"` // reorder threshold
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// StockValue is the product's inventory value at the current price.
func (p Product) StockValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.StockQuantity)))
}

// ApplyStockDelta returns stock moved by delta, clamped to [0, MaxQuantity].
func ApplyStockDelta(stock, delta int) int {
	stock = min(max(stock, 0), MaxQuantity)
	if delta > MaxQuantity-stock {
		return MaxQuantity
	}
	if delta < -stock {
		return 0
	}
	return stock + delta
}
