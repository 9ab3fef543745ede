package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

type RecordTransactionInput struct {
	Type        domain.TransactionType
	Category    string
	Amount      decimal.Decimal
	Description string
	Reference   string
	// Date defaults to today in the reporting location.
	Date      *time.Time
	CreatedBy int64
}

// LedgerService appends manual entries to the flat income/expense ledger.
type LedgerService struct {
	db port.DatabaseRepository
	options
}

func NewLedgerService(db port.DatabaseRepository, opts ...Option) *LedgerService {
	return &LedgerService{db: db, options: buildOptions(opts)}
}

func (s *LedgerService) RecordTransaction(ctx context.Context, in RecordTransactionInput) (*domain.Transaction, error) {
	typ := domain.TransactionType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	if !typ.Valid() {
		return nil, domain.NewValidation("type", "must be income or expense")
	}
	if in.Amount.IsNegative() {
		return nil, domain.NewValidation("amount", "must not be negative")
	}

	now := s.today()
	date := domain.CivilDate(now)
	if in.Date != nil && !in.Date.IsZero() {
		date = domain.CivilDate(*in.Date)
	}

	txn := &domain.Transaction{
		Type:        typ,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Description: in.Description,
		Reference:   in.Reference,
		Date:        date,
		CreatedAt:   now.UTC(),
		CreatedBy:   in.CreatedBy,
	}
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx port.TxRepository) error {
		return tx.InsertTransaction(ctx, txn)
	})
	if err != nil {
		return nil, consistency("record transaction", err)
	}

	s.metrics.LedgerEntry(string(typ))
	s.logger.InfoContext(ctx, "transaction recorded",
		"transaction_id", txn.ID, "type", typ, "amount", txn.Amount.String())
	return txn, nil
}

// ListTransactions returns the ledger, most recent date first.
func (s *LedgerService) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	txns, err := s.db.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}
