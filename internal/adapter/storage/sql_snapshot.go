package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

var _ port.SnapshotReader = (*sqlSnapshot)(nil)

type sqlSnapshot struct {
	q querier
}

func (s *sqlSnapshot) OrderCounts(ctx context.Context) (port.OrderCounts, error) {
	var c port.OrderCounts
	err := s.q.queryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END), 0)
		FROM orders`,
		string(domain.OrderStatusPending), string(domain.OrderStatusCancelled),
	).Scan(&c.Total, &c.Pending, &c.Revenue)
	if err != nil {
		return port.OrderCounts{}, fmt.Errorf("count orders: %w", err)
	}
	return c, nil
}

func (s *sqlSnapshot) EntityCounts(ctx context.Context) (port.EntityCounts, error) {
	var c port.EntityCounts
	err := s.q.queryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM products WHERE stock_quantity <= min_stock_level),
			(SELECT COUNT(*) FROM employees WHERE status = ?)`,
		domain.EmployeeStatusActive,
	).Scan(&c.Customers, &c.Products, &c.LowStock, &c.ActiveEmployees)
	if err != nil {
		return port.EntityCounts{}, fmt.Errorf("count entities: %w", err)
	}
	return c, nil
}

func (s *sqlSnapshot) LedgerTotals(ctx context.Context) (income, expense decimal.Decimal, err error) {
	err = s.q.queryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN transaction_type = ? THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN transaction_type = ? THEN amount ELSE 0 END), 0)
		FROM transactions`,
		string(domain.TransactionIncome), string(domain.TransactionExpense),
	).Scan(&income, &expense)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum ledger: %w", err)
	}
	return income, expense, nil
}

func (s *sqlSnapshot) StatusCounts(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := s.q.query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.OrderStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *sqlSnapshot) OrderTotalsSince(ctx context.Context, since time.Time) ([]port.OrderTotal, error) {
	rows, err := s.q.query(ctx, `
		SELECT created_at, total_amount FROM orders
		WHERE status <> ? AND created_at >= ?
		ORDER BY created_at`,
		string(domain.OrderStatusCancelled), since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query order totals: %w", err)
	}
	defer rows.Close()

	var totals []port.OrderTotal
	for rows.Next() {
		var t port.OrderTotal
		if err := rows.Scan(&t.CreatedAt, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan order total: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (s *sqlSnapshot) LedgerSince(ctx context.Context, since time.Time) ([]port.LedgerLine, error) {
	rows, err := s.q.query(ctx, `
		SELECT date, transaction_type, amount FROM transactions
		WHERE date >= ?
		ORDER BY date, id`,
		domain.CivilDate(since),
	)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var lines []port.LedgerLine
	for rows.Next() {
		var (
			l   port.LedgerLine
			typ string
		)
		if err := rows.Scan(&l.Date, &typ, &l.Amount); err != nil {
			return nil, fmt.Errorf("scan ledger line: %w", err)
		}
		l.Date = domain.CivilDate(l.Date)
		l.Type = domain.TransactionType(typ)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *sqlSnapshot) TopProducts(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	rows, err := s.q.query(ctx, `
		SELECT p.id, p.name, SUM(oi.quantity) AS sold
		FROM products p
		JOIN order_items oi ON oi.product_id = p.id
		GROUP BY p.id, p.name
		ORDER BY sold DESC, p.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()

	var top []domain.ProductSales
	for rows.Next() {
		var ps domain.ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Sold); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		top = append(top, ps)
	}
	return top, rows.Err()
}

func (s *sqlSnapshot) RevenueByCategory(ctx context.Context) ([]domain.CategoryAmount, error) {
	return s.categoryAmounts(ctx, `
		SELECT COALESCE(p.category, ''), SUM(oi.quantity * oi.unit_price)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.status <> ?
		GROUP BY COALESCE(p.category, '')
		ORDER BY 1`, string(domain.OrderStatusCancelled))
}

func (s *sqlSnapshot) LedgerByCategory(ctx context.Context, typ domain.TransactionType) ([]domain.CategoryAmount, error) {
	return s.categoryAmounts(ctx, `
		SELECT COALESCE(category, ''), SUM(amount)
		FROM transactions
		WHERE transaction_type = ?
		GROUP BY COALESCE(category, '')
		ORDER BY 1`, string(typ))
}

func (s *sqlSnapshot) categoryAmounts(ctx context.Context, query string, args ...any) ([]domain.CategoryAmount, error) {
	rows, err := s.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category amounts: %w", err)
	}
	defer rows.Close()

	var out []domain.CategoryAmount
	for rows.Next() {
		var ca domain.CategoryAmount
		if err := rows.Scan(&ca.Category, &ca.Amount); err != nil {
			return nil, fmt.Errorf("scan category amount: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

func (s *sqlSnapshot) EmployeesByDepartment(ctx context.Context) ([]domain.DepartmentCount, error) {
	rows, err := s.q.query(ctx, `
		SELECT COALESCE(department, ''), COUNT(*)
		FROM employees
		WHERE status = ?
		GROUP BY COALESCE(department, '')
		ORDER BY 1`, domain.EmployeeStatusActive)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	var out []domain.DepartmentCount
	for rows.Next() {
		var dc domain.DepartmentCount
		if err := rows.Scan(&dc.Department, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (s *sqlSnapshot) RecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.q.orders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (s *sqlSnapshot) LowStockProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.q.products(ctx, `SELECT `+productColumns+` FROM products
		WHERE stock_quantity <= min_stock_level
		ORDER BY stock_quantity, id LIMIT ?`, limit)
}

func (s *sqlSnapshot) SalesOrders(ctx context.Context, from, to *time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status <> ?`
	args := []any{string(domain.OrderStatusCancelled)}
	if from != nil {
		query += ` AND created_at >= ?`
		args = append(args, from.UTC())
	}
	if to != nil {
		query += ` AND created_at <= ?`
		args = append(args, to.UTC())
	}
	return s.q.orders(ctx, query+` ORDER BY created_at DESC, id DESC`, args...)
}

func (s *sqlSnapshot) Products(ctx context.Context) ([]domain.Product, error) {
	return s.q.products(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}
