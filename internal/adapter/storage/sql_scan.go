package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rl1809/visio/internal/core/domain"
)

const (
	orderColumns       = "id, order_number, customer_id, status, total_amount, created_at, created_by"
	orderItemColumns   = "id, order_id, product_id, quantity, unit_price"
	productColumns     = "id, sku, name, category, price, cost, stock_quantity, min_stock_level, description, created_at"
	transactionColumns = "id, transaction_type, category, amount, description, reference, date, created_at, created_by"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// querier binds a connection or transaction to the dialect used to rebind its queries.
type querier struct {
	db      dbtx
	dialect Dialect
}

func (q querier) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q querier) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q querier) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}

// insert runs an INSERT and returns the generated id.
func (q querier) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if q.dialect.returning {
		var id int64
		err := q.queryRow(ctx, strings.TrimSpace(query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q querier) orders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q querier) orderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := q.query(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q querier) products(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanOrder(s scanner) (domain.Order, error) {
	var (
		o         domain.Order
		status    string
		createdBy sql.NullInt64
	)
	if err := s.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &status, &o.TotalAmount, &o.CreatedAt, &createdBy); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.CreatedBy = createdBy.Int64
	return o, nil
}

func scanProduct(s scanner) (domain.Product, error) {
	var (
		p                     domain.Product
		category, description sql.NullString
	)
	err := s.Scan(&p.ID, &p.SKU, &p.Name, &category, &p.Price, &p.Cost,
		&p.StockQuantity, &p.MinStockLevel, &description, &p.CreatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.Category = category.String
	p.Description = description.String
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func scanTransaction(s scanner) (domain.Transaction, error) {
	var (
		t                                domain.Transaction
		typ                              string
		category, description, reference sql.NullString
		createdBy                        sql.NullInt64
	)
	err := s.Scan(&t.ID, &typ, &category, &t.Amount, &description, &reference, &t.Date, &t.CreatedAt, &createdBy)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Type = domain.TransactionType(typ)
	t.Category = category.String
	t.Description = description.String
	t.Reference = reference.String
	t.Date = domain.CivilDate(t.Date)
	t.CreatedAt = t.CreatedAt.UTC()
	t.CreatedBy = createdBy.Int64
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
