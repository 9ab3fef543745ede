package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

const requestKeyTTL = 24 * time.Hour

var tracer = otel.Tracer("github.com/rl1809/visio/internal/core/service")

type CreateOrderInput struct {
	// RequestID makes the call idempotent when set.
	RequestID  string
	CustomerID int64
	Items      []domain.LineItem
	CreatedBy  int64
}

type CreateOrderResult struct {
	Order       domain.Order       `json:"order"`
	Transaction domain.Transaction `json:"transaction"`
}

// OrderService creates orders and manages their lifecycle.
type OrderService struct {
	db      port.DatabaseRepository
	cache   port.CacheRepository
	numbers *OrderNumbers
	options
}

func NewOrderService(db port.DatabaseRepository, cache port.CacheRepository, opts ...Option) *OrderService {
	return &OrderService{
		db:      db,
		cache:   cache,
		numbers: NewOrderNumbers(cache),
		options: buildOptions(opts),
	}
}

// CreateOrder prices the requested items, decrements stock and posts the matching
// income entry in one storage transaction. Items naming a missing product are
// skipped. Stock is floored at zero rather than rejecting the order.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (result *CreateOrderResult, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.metrics.OrderFailed(failureReason(err))
		}
	}()

	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	if in.RequestID != "" {
		key := "order-request:" + in.RequestID
		ok, claimErr := s.cache.SetIdempotency(ctx, key, requestKeyTTL)
		if claimErr != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", claimErr)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if releaseErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); releaseErr != nil {
				s.logger.WarnContext(ctx, "release request key", "request_id", in.RequestID, "error", releaseErr)
			}
		}()
	}

	now := s.today()
	number, err := s.numbers.Next(ctx, now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.number", number))

	result = &CreateOrderResult{}
	err = s.db.RunInTx(ctx, func(ctx context.Context, tx port.TxRepository) error {
		return s.placeOrder(ctx, tx, in, number, now, result)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create order failed",
			"order_number", number, "customer_id", in.CustomerID, "error", err)
		if releaseErr := s.numbers.Release(context.WithoutCancel(ctx), number); releaseErr != nil {
			s.logger.WarnContext(ctx, "release order number", "order_number", number, "error", releaseErr)
		}
		return nil, consistency("create order", err)
	}

	s.metrics.OrderCreated(result.Order.TotalAmount)
	s.logger.InfoContext(ctx, "order created",
		"order_id", result.Order.ID,
		"order_number", number,
		"total", result.Order.TotalAmount.String(),
		"items", len(result.Order.Items))
	return result, nil
}

func (s *OrderService) placeOrder(ctx context.Context, tx port.TxRepository, in CreateOrderInput, number string, now time.Time, result *CreateOrderResult) error {
	exists, err := tx.CustomerExists(ctx, in.CustomerID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.NewNotFound("customer", in.CustomerID)
	}

	ids := distinctProductIDs(in.Items)
	products, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return err
	}

	order := domain.Order{
		OrderNumber: number,
		CustomerID:  in.CustomerID,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now.UTC(),
		CreatedBy:   in.CreatedBy,
	}
	total := decimal.Zero
	for _, li := range in.Items {
		product, ok := products[li.ProductID]
		if !ok {
			continue
		}
		item := domain.OrderItem{
			ProductID: product.ID,
			Quantity:  li.Quantity,
			UnitPrice: product.Price,
		}
		order.Items = append(order.Items, item)
		total = total.Add(item.LineTotal())
		product.StockQuantity = domain.ApplyStockDelta(product.StockQuantity, -li.Quantity)
	}
	if len(order.Items) == 0 {
		return domain.NewValidation("items", "none of the requested products exist")
	}
	order.TotalAmount = total

	if err := tx.InsertOrder(ctx, &order); err != nil {
		return err
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if err := tx.InsertOrderItem(ctx, &order.Items[i]); err != nil {
			return err
		}
	}

	for _, id := range ids {
		if product, ok := products[id]; ok {
			if err := tx.UpdateProductStock(ctx, id, product.StockQuantity); err != nil {
				return err
			}
		}
	}

	txn := domain.Transaction{
		Type:        domain.TransactionIncome,
		Category:    domain.SalesCategory,
		Amount:      total,
		Description: "Order " + number,
		Reference:   number,
		Date:        domain.CivilDate(now),
		CreatedAt:   now.UTC(),
		CreatedBy:   in.CreatedBy,
	}
	if err := tx.InsertTransaction(ctx, &txn); err != nil {
		return err
	}

	result.Order = order
	result.Transaction = txn
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.db.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, domain.NewNotFound("order", id)
	}
	return order, nil
}

// ListOrders returns every order, newest first, without items.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.db.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func validateOrderInput(in CreateOrderInput) error {
	if in.CustomerID <= 0 {
		return domain.NewValidation("customer_id", "must be positive")
	}
	if len(in.Items) == 0 {
		return domain.NewValidation("items", "at least one item is required")
	}
	for i, li := range in.Items {
		if li.ProductID <= 0 {
			return domain.NewValidation(fmt.Sprintf("items[%d].product_id", i), "must be positive")
		}
		if li.Quantity <= 0 {
			return domain.NewValidation(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if li.Quantity > domain.MaxQuantity {
			return domain.NewValidation(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("must not exceed %d", domain.MaxQuantity))
		}
	}
	return nil
}

// distinctProductIDs returns the referenced ids in ascending order, the order
// rows are locked in.
func distinctProductIDs(items []domain.LineItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, li := range items {
		if _, ok := seen[li.ProductID]; ok {
			continue
		}
		seen[li.ProductID] = struct{}{}
		ids = append(ids, li.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// consistency passes caller-facing errors through and marks anything else
// raised inside a write transaction as a consistency failure.
func consistency(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrConsistency, op, err)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return "duplicate"
	case errors.Is(err, domain.ErrConsistency):
		return "consistency"
	}
	return "other"
}
