package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

var _ port.DatabaseRepository = (*SQLAdapter)(nil)

type SQLConfig struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

// OpenSQL connects, tunes the pool and applies the schema.
func OpenSQL(ctx context.Context, cfg SQLConfig) (*SQLAdapter, error) {
	db, err := sql.Open(cfg.Dialect.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect.Name, err)
	}

	if cfg.Dialect.singleWriter {
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Dialect.Name, err)
	}

	adapter := NewSQLAdapter(db, cfg.Dialect)
	if err := adapter.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return adapter, nil
}

// Migrate applies the dialect's schema. Every statement is idempotent.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	script, err := a.dialect.schema()
	if err != nil {
		return err
	}
	for _, stmt := range splitStatements(script) {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (a *SQLAdapter) DB() *sql.DB { return a.db }

func (a *SQLAdapter) Dialect() Dialect { return a.dialect }

func (a *SQLAdapter) Close() error { return a.db.Close() }

func (a *SQLAdapter) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.TxRepository) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlTx{q: querier{tx, a.dialect}}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (a *SQLAdapter) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, r port.SnapshotReader) error) error {
	tx, err := a.db.BeginTx(ctx, a.dialect.snapshotTx)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlSnapshot{q: querier{tx, a.dialect}}); err != nil {
		return err
	}
	return tx.Commit()
}

func (a *SQLAdapter) q() querier { return querier{a.db, a.dialect} }

func (a *SQLAdapter) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	q := a.q()
	order, err := scanOrder(q.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := q.orderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (a *SQLAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return a.q().orders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (a *SQLAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(a.q().queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (a *SQLAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return a.q().products(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC`)
}

// SearchProducts matches query against product names, ignoring case.
func (a *SQLAdapter) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return a.q().products(ctx, `SELECT `+productColumns+` FROM products
		WHERE LOWER(name) LIKE ? ESCAPE '!'
		ORDER BY name, id LIMIT ?`, pattern, limit)
}

func (a *SQLAdapter) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	id, err := a.q().insert(ctx, `
		INSERT INTO products (sku, name, category, price, cost, stock_quantity, min_stock_level, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SKU, p.Name, nullString(p.Category), p.Price, p.Cost, p.StockQuantity, p.MinStockLevel,
		nullString(p.Description), p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID = id
	return nil
}

func (a *SQLAdapter) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	id, err := a.q().insert(ctx, `
		INSERT INTO customers (name, email, phone, address, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Email, nullString(c.Phone), nullString(c.Address), c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	c.ID = id
	return nil
}

func (a *SQLAdapter) CreateEmployee(ctx context.Context, e *domain.Employee) error {
	if e.Status == "" {
		e.Status = domain.EmployeeStatusActive
	}
	var hireDate any
	if !e.HireDate.IsZero() {
		hireDate = domain.CivilDate(e.HireDate)
	}
	id, err := a.q().insert(ctx, `
		INSERT INTO employees (employee_code, name, email, department, position, status, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EmployeeCode, e.Name, e.Email, nullString(e.Department), nullString(e.Position), e.Status,
		hireDate, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	e.ID = id
	return nil
}

func (a *SQLAdapter) CountCustomers(ctx context.Context) (int, error) {
	var n int
	if err := a.q().queryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (a *SQLAdapter) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := a.q().query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
