package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

type ExportKind string

const (
	ExportDashboard ExportKind = "dashboard"
	ExportSales     ExportKind = "sales"
	ExportInventory ExportKind = "inventory"
	ExportFinancial ExportKind = "financial"
)

func ParseExportKind(s string) (ExportKind, error) {
	switch k := ExportKind(s); k {
	case ExportDashboard, ExportSales, ExportInventory, ExportFinancial:
		return k, nil
	}
	return "", domain.NewValidation("kind", fmt.Sprintf("unknown report %q", s))
}

// ExportService renders reports as JSON documents into a blob store.
type ExportService struct {
	reports *ReportService
	blobs   port.BlobStore
	exports metric.Int64Counter
	options
}

func NewExportService(reports *ReportService, blobs port.BlobStore, opts ...Option) *ExportService {
	// The global meter is a no-op until telemetry is initialised.
	counter, _ := otel.Meter("github.com/rl1809/visio/internal/core/service").Int64Counter(
		"visio.report.exports",
		metric.WithDescription("Reports written to the blob store."),
	)
	return &ExportService{
		reports: reports,
		blobs:   blobs,
		exports: counter,
		options: buildOptions(opts),
	}
}

// ExportKey is the blob key for a report rendered at the service's current time.
func (s *ExportService) ExportKey(kind ExportKind) string {
	return fmt.Sprintf("reports/%s/%s-%s.json", kind, s.now().UTC().Format("20060102-150405"), uuid.NewString())
}

func (s *ExportService) Export(ctx context.Context, kind ExportKind) (port.BlobInfo, error) {
	ctx, span := tracer.Start(ctx, "ExportService.Export")
	defer span.End()

	var (
		report any
		err    error
	)
	switch kind {
	case ExportDashboard:
		report, err = s.reports.Overview(ctx)
	case ExportSales:
		report, err = s.reports.SalesReport(ctx, nil, nil)
	case ExportInventory:
		report, err = s.reports.InventoryReport(ctx)
	case ExportFinancial:
		report, err = s.reports.FinancialReport(ctx)
	default:
		return port.BlobInfo{}, domain.NewValidation("kind", fmt.Sprintf("unknown report %q", kind))
	}
	if err != nil {
		return port.BlobInfo{}, err
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return port.BlobInfo{}, fmt.Errorf("encode %s report: %w", kind, err)
	}

	key := s.ExportKey(kind)
	info, err := s.blobs.Put(ctx, key, bytes.NewReader(body), "application/json")
	if err != nil {
		return port.BlobInfo{}, fmt.Errorf("store %s report: %w", kind, err)
	}

	if s.exports != nil {
		s.exports.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("driver", string(s.blobs.Driver())),
		))
	}
	s.logger.InfoContext(ctx, "report exported", "kind", kind, "key", info.Key, "size", info.Size)
	return info, nil
}

// ListExports lists previously exported reports of kind, or of every kind when empty.
func (s *ExportService) ListExports(ctx context.Context, kind ExportKind) ([]port.BlobInfo, error) {
	prefix := "reports/"
	if kind != "" {
		prefix += string(kind) + "/"
	}
	infos, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	return infos, nil
}
