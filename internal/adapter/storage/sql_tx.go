package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

var _ port.TxRepository = (*sqlTx)(nil)

type sqlTx struct {
	q querier
}

func (t *sqlTx) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := t.q.queryRow(ctx, `SELECT 1 FROM customers WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query customer: %w", err)
	}
	return true, nil
}

func (t *sqlTx) LockProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	locked := make(map[int64]*domain.Product, len(ids))
	if len(ids) == 0 {
		return locked, nil
	}

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	args := make([]any, len(sorted))
	for i, id := range sorted {
		args[i] = id
	}

	products, err := t.q.products(ctx, `SELECT `+productColumns+` FROM products
		WHERE id IN (`+placeholders(len(args))+`) ORDER BY id`+t.q.dialect.lockClause, args...)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	for i := range products {
		locked[products[i].ID] = &products[i]
	}
	return locked, nil
}

func (t *sqlTx) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	if _, err := t.q.exec(ctx, `UPDATE products SET stock_quantity = ? WHERE id = ?`, stock, id); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	id, err := t.q.insert(ctx, `
		INSERT INTO orders (order_number, customer_id, status, total_amount, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.OrderNumber, order.CustomerID, string(order.Status), order.TotalAmount,
		order.CreatedAt.UTC(), nullID(order.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.ID = id
	return nil
}

func (t *sqlTx) InsertOrderItem(ctx context.Context, item *domain.OrderItem) error {
	id, err := t.q.insert(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES (?, ?, ?, ?)`,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	item.ID = id
	return nil
}

func (t *sqlTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	id, err := t.q.insert(ctx, `
		INSERT INTO transactions (transaction_type, category, amount, description, reference, date, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(txn.Type), nullString(txn.Category), txn.Amount, nullString(txn.Description),
		nullString(txn.Reference), domain.CivilDate(txn.Date), txn.CreatedAt.UTC(), nullID(txn.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	txn.ID = id
	return nil
}

func (t *sqlTx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(t.q.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`+t.q.dialect.lockClause, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return &order, nil
}

func (t *sqlTx) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	if _, err := t.q.exec(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (t *sqlTx) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := t.q.exec(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if _, err := t.q.exec(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}
