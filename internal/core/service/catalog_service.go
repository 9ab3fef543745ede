package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

const searchLimit = 10

type CreateProductInput struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	StockQuantity int             `json:"stock_quantity"`
	// MinStockLevel defaults to domain.DefaultMinStockLevel when nil.
	MinStockLevel *int   `json:"min_stock_level"`
	Description   string `json:"description"`
}

type CatalogService struct {
	db port.DatabaseRepository
	options
}

func NewCatalogService(db port.DatabaseRepository, opts ...Option) *CatalogService {
	return &CatalogService{db: db, options: buildOptions(opts)}
}

func (s *CatalogService) CreateProduct(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	p := &domain.Product{
		SKU:           strings.TrimSpace(in.SKU),
		Name:          strings.TrimSpace(in.Name),
		Category:      strings.TrimSpace(in.Category),
		Price:         in.Price,
		Cost:          in.Cost,
		StockQuantity: in.StockQuantity,
		MinStockLevel: domain.DefaultMinStockLevel,
		Description:   in.Description,
		CreatedAt:     s.now().UTC(),
	}
	if in.MinStockLevel != nil {
		p.MinStockLevel = *in.MinStockLevel
	}

	switch {
	case p.SKU == "":
		return nil, domain.NewValidation("sku", "is required")
	case p.Name == "":
		return nil, domain.NewValidation("name", "is required")
	case p.Price.IsNegative():
		return nil, domain.NewValidation("price", "must not be negative")
	case p.Cost.IsNegative():
		return nil, domain.NewValidation("cost", "must not be negative")
	case p.StockQuantity < 0:
		return nil, domain.NewValidation("stock_quantity", "must not be negative")
	case p.StockQuantity > domain.MaxQuantity:
		return nil, domain.NewValidation("stock_quantity", fmt.Sprintf("must not exceed %d", domain.MaxQuantity))
	case p.MinStockLevel < 0:
		return nil, domain.NewValidation("min_stock_level", "must not be negative")
	case p.MinStockLevel > domain.MaxQuantity:
		return nil, domain.NewValidation("min_stock_level", fmt.Sprintf("must not exceed %d", domain.MaxQuantity))
	}

	if err := s.db.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.InfoContext(ctx, "product created", "product_id", p.ID, "sku", p.SKU)
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.db.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, domain.NewNotFound("product", id)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.db.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// SearchProducts matches names case-insensitively and returns at most 10 products.
// An empty query returns nothing.
func (s *CatalogService) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	products, err := s.db.SearchProducts(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

// AdjustStock moves a product's stock by delta, clamped to [0, domain.MaxQuantity].
// It has no ledger effect.
func (s *CatalogService) AdjustStock(ctx context.Context, productID int64, delta int) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.AdjustStock")
	defer span.End()

	if delta > domain.MaxQuantity || delta < -domain.MaxQuantity {
		return nil, domain.NewValidation("adjustment", fmt.Sprintf("must be within -%d..%d", domain.MaxQuantity, domain.MaxQuantity))
	}

	var adjusted *domain.Product
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx port.TxRepository) error {
		locked, err := tx.LockProducts(ctx, []int64{productID})
		if err != nil {
			return err
		}
		p, ok := locked[productID]
		if !ok {
			return domain.NewNotFound("product", productID)
		}
		p.StockQuantity = domain.ApplyStockDelta(p.StockQuantity, delta)
		if err := tx.UpdateProductStock(ctx, productID, p.StockQuantity); err != nil {
			return err
		}
		adjusted = p
		return nil
	})
	if err != nil {
		return nil, consistency("adjust stock", err)
	}

	s.logger.InfoContext(ctx, "stock adjusted",
		"product_id", productID, "delta", delta, "stock", adjusted.StockQuantity)
	return adjusted, nil
}
