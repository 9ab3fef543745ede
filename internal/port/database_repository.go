package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/visio/internal/core/domain"
)

type DatabaseRepository interface {
	// RunInTx runs fn inside one storage transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	// ReadSnapshot runs fn inside one read-only transaction so that every query
	// issued through the reader observes the same state.
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context, r SnapshotReader) error) error

	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)

	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error

	CreateCustomer(ctx context.Context, c *domain.Customer) error
	CreateEmployee(ctx context.Context, e *domain.Employee) error
	CountCustomers(ctx context.Context) (int, error)

	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// TxRepository is the write surface bound to one storage transaction.
type TxRepository interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)

	// LockProducts loads and row-locks the given products in ascending id order.
	// Ids with no matching product are absent from the result.
	LockProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	UpdateProductStock(ctx context.Context, id int64, stock int) error

	InsertOrder(ctx context.Context, order *domain.Order) error
	InsertOrderItem(ctx context.Context, item *domain.OrderItem) error
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error

	// LockOrder returns nil, nil when the order does not exist.
	LockOrder(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	// DeleteOrder removes the order together with its items.
	DeleteOrder(ctx context.Context, id int64) error
}

// OrderTotal is one non-cancelled order reduced to what time series need.
type OrderTotal struct {
	CreatedAt time.Time
	Amount    decimal.Decimal
}

// LedgerLine is one ledger entry reduced to what time series need.
type LedgerLine struct {
	Date   time.Time
	Type   domain.TransactionType
	Amount decimal.Decimal
}

// EntityCounts carries the catalogue-wide counters of the dashboard.
type EntityCounts struct {
	Customers       int
	Products        int
	LowStock        int
	ActiveEmployees int
}

// OrderCounts carries the order-wide counters of the dashboard.
type OrderCounts struct {
	Total   int
	Pending int
	Revenue decimal.Decimal
}

// SnapshotReader is the read surface used by reports. Grouped results carry the
// raw category or department, empty when the record has none.
type SnapshotReader interface {
	OrderCounts(ctx context.Context) (OrderCounts, error)
	EntityCounts(ctx context.Context) (EntityCounts, error)
	LedgerTotals(ctx context.Context) (income, expense decimal.Decimal, err error)
	StatusCounts(ctx context.Context) (map[domain.OrderStatus]int, error)

	// OrderTotalsSince lists non-cancelled orders created at or after since.
	OrderTotalsSince(ctx context.Context, since time.Time) ([]OrderTotal, error)
	// LedgerSince lists ledger entries dated on or after since.
	LedgerSince(ctx context.Context, since time.Time) ([]LedgerLine, error)

	TopProducts(ctx context.Context, limit int) ([]domain.ProductSales, error)
	RevenueByCategory(ctx context.Context) ([]domain.CategoryAmount, error)
	LedgerByCategory(ctx context.Context, typ domain.TransactionType) ([]domain.CategoryAmount, error)
	EmployeesByDepartment(ctx context.Context) ([]domain.DepartmentCount, error)

	RecentOrders(ctx context.Context, limit int) ([]domain.Order, error)
	LowStockProducts(ctx context.Context, limit int) ([]domain.Product, error)
	// SalesOrders lists non-cancelled orders with created_at in [from, to]; nil bounds are open.
	SalesOrders(ctx context.Context, from, to *time.Time) ([]domain.Order, error)
	Products(ctx context.Context) ([]domain.Product, error)
}
