// Package seed loads the sample catalogue and a month of order history into an
// empty store.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/core/service"
	"github.com/rl1809/visio/internal/port"
)

const (
	historyDays   = 30
	historyOrders = 15

	numberAttempts = 100
)

var customers = []domain.Customer{
	{Name: "Acme Corporation", Email: "contact@acme.com", Phone: "555-0101", Address: "123 Business Ave"},
	{Name: "TechStart Inc", Email: "hello@techstart.io", Phone: "555-0102", Address: "456 Innovation Blvd"},
	{Name: "Global Traders", Email: "info@globaltraders.com", Phone: "555-0103", Address: "789 Commerce St"},
	{Name: "Local Shop", Email: "shop@local.com", Phone: "555-0104", Address: "321 Main Street"},
	{Name: "Digital Solutions", Email: "support@digitalsolutions.net", Phone: "555-0105", Address: "654 Tech Park"},
}

var products = []struct {
	sku, name, category, price, cost string
	stock, min                       int
}{
	{"LP-001", "Laptop Pro 15", "Electronics", "1299.99", "900", 50, 10},
	{"WM-002", "Wireless Mouse", "Accessories", "29.99", "15", 200, 50},
	{"UC-003", "USB-C Hub", "Accessories", "59.99", "30", 100, 20},
	{"MN-004", `Monitor 27"`, "Electronics", "349.99", "200", 30, 10},
	{"KM-005", "Keyboard Mechanical", "Accessories", "89.99", "50", 75, 15},
	{"WC-006", "Webcam HD", "Electronics", "79.99", "40", 60, 15},
	{"DL-007", "Desk Lamp LED", "Office", "45.99", "20", 8, 10},
	{"NP-008", "Notebook Pack", "Office", "12.99", "5", 5, 20},
}

var employees = []domain.Employee{
	{Name: "John Smith", Email: "john.smith@company.com", Department: "Sales", Position: "Manager"},
	{Name: "Sarah Johnson", Email: "sarah.j@company.com", Department: "Engineering", Position: "Senior"},
	{Name: "Mike Wilson", Email: "mike.w@company.com", Department: "HR", Position: "Manager"},
	{Name: "Emily Brown", Email: "emily.b@company.com", Department: "Finance", Position: "Director"},
	{Name: "David Lee", Email: "david.l@company.com", Department: "Marketing", Position: "Senior"},
}

var expenseCategories = []string{"Rent", "Utilities", "Salaries", "Marketing", "Supplies", "Equipment", "Software"}

// historyStatuses excludes cancelled so every seeded order counts as revenue.
var historyStatuses = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
	domain.OrderStatusShipped,
	domain.OrderStatusDelivered,
}

// Load inserts sample data when the store has no customers and reports whether it
// did. Historical orders are backdated and leave stock untouched. Their numbers
// are claimed through numbers so live orders never draw one of them.
func Load(ctx context.Context, repo port.DatabaseRepository, numbers *service.OrderNumbers, now time.Time) (bool, error) {
	n, err := repo.CountCustomers(ctx)
	if err != nil {
		return false, fmt.Errorf("count customers: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	rng := rand.New(rand.NewPCG(uint64(now.UnixNano()), 0x5eed))
	now = now.UTC()

	customerIDs := make([]int64, 0, len(customers))
	for _, c := range customers {
		c.CreatedAt = now
		if err := repo.CreateCustomer(ctx, &c); err != nil {
			return false, fmt.Errorf("seed customer %s: %w", c.Email, err)
		}
		customerIDs = append(customerIDs, c.ID)
	}

	catalog := make([]domain.Product, 0, len(products))
	for _, sp := range products {
		p := domain.Product{
			SKU:           sp.sku,
			Name:          sp.name,
			Category:      sp.category,
			Price:         decimal.RequireFromString(sp.price),
			Cost:          decimal.RequireFromString(sp.cost),
			StockQuantity: sp.stock,
			MinStockLevel: sp.min,
			CreatedAt:     now,
		}
		if err := repo.CreateProduct(ctx, &p); err != nil {
			return false, fmt.Errorf("seed product %s: %w", p.SKU, err)
		}
		catalog = append(catalog, p)
	}

	codes := make(map[string]bool, len(employees))
	for _, e := range employees {
		for e.EmployeeCode == "" || codes[e.EmployeeCode] {
			e.EmployeeCode = fmt.Sprintf("EMP-%05d", 10000+rng.IntN(90000))
		}
		codes[e.EmployeeCode] = true
		e.Status = domain.EmployeeStatusActive
		e.HireDate = domain.CivilDate(now.AddDate(0, 0, -(30 + rng.IntN(336))))
		if err := repo.CreateEmployee(ctx, &e); err != nil {
			return false, fmt.Errorf("seed employee %s: %w", e.Email, err)
		}
	}

	err = repo.RunInTx(ctx, func(ctx context.Context, tx port.TxRepository) error {
		for range historyOrders {
			if err := seedOrder(ctx, tx, rng, now, customerIDs, catalog, numbers); err != nil {
				return err
			}
		}
		for _, category := range expenseCategories {
			txn := domain.Transaction{
				Type:        domain.TransactionExpense,
				Category:    category,
				Amount:      decimal.NewFromInt(int64(200 + rng.IntN(2801))),
				Description: "Business expense",
				Date:        domain.CivilDate(now.AddDate(0, 0, -rng.IntN(historyDays+1))),
				CreatedAt:   now,
			}
			if err := tx.InsertTransaction(ctx, &txn); err != nil {
				return fmt.Errorf("seed expense %s: %w", category, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func seedOrder(ctx context.Context, tx port.TxRepository, rng *rand.Rand, now time.Time, customerIDs []int64, catalog []domain.Product, numbers *service.OrderNumbers) error {
	created := now.AddDate(0, 0, -rng.IntN(historyDays+1))
	number, err := claimNumber(ctx, numbers, rng, created)
	if err != nil {
		return err
	}

	items := make([]domain.OrderItem, 1+rng.IntN(4))
	total := decimal.Zero
	for i := range items {
		p := catalog[rng.IntN(len(catalog))]
		items[i] = domain.OrderItem{ProductID: p.ID, Quantity: 1 + rng.IntN(5), UnitPrice: p.Price}
		total = total.Add(items[i].LineTotal())
	}

	order := domain.Order{
		OrderNumber: number,
		CustomerID:  customerIDs[rng.IntN(len(customerIDs))],
		Status:      historyStatuses[rng.IntN(len(historyStatuses))],
		TotalAmount: total,
		CreatedAt:   created,
	}
	if err := tx.InsertOrder(ctx, &order); err != nil {
		return fmt.Errorf("seed order %s: %w", number, err)
	}
	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.InsertOrderItem(ctx, &items[i]); err != nil {
			return fmt.Errorf("seed order item: %w", err)
		}
	}

	txn := domain.Transaction{
		Type:        domain.TransactionIncome,
		Category:    domain.SalesCategory,
		Amount:      total,
		Description: "Order " + number,
		Reference:   number,
		Date:        domain.CivilDate(created),
		CreatedAt:   created,
	}
	if err := tx.InsertTransaction(ctx, &txn); err != nil {
		return fmt.Errorf("seed sales entry %s: %w", number, err)
	}
	return nil
}

func claimNumber(ctx context.Context, numbers *service.OrderNumbers, rng *rand.Rand, day time.Time) (string, error) {
	for range numberAttempts {
		number := service.FormatOrderNumber(day, 1000+rng.IntN(9000))
		ok, err := numbers.Claim(ctx, number)
		if err != nil {
			return "", err
		}
		if ok {
			return number, nil
		}
	}
	return "", domain.ErrOrderNumberExhausted
}
