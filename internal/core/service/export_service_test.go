package service

import (
	"context"
	"encoding/json"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/visio/internal/adapter/blob"
	"github.com/rl1809/visio/internal/core/domain"
)

func newExportService(t *testing.T, now *time.Time) (*ExportService, *blob.Filesystem) {
	t.Helper()
	repo := openRepo(t)
	customer := addCustomer(t, repo, "a@example.com")
	p := addProduct(t, repo, "A", "Tools", "4.00", 20)
	placeOrder(t, NewOrderService(repo, newMockCacheRepo(), fixedClock(now)), customer.ID, p.ID, 2)

	store, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	reports := NewReportService(repo, fixedClock(now), WithLocation(time.UTC))
	return NewExportService(reports, store, fixedClock(now)), store
}

func TestExportKey(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 4, 5, 0, time.UTC)
	svc, _ := newExportService(t, &now)

	key := svc.ExportKey(ExportSales)
	assert.Regexp(t, regexp.MustCompile(`^reports/sales/20260315-090405-[0-9a-f-]{36}\.json$`), key)
	assert.NotEqual(t, key, svc.ExportKey(ExportSales), "keys are unique within one second")
}

func TestExport_WritesReport(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	svc, store := newExportService(t, &now)
	ctx := context.Background()

	info, err := svc.Export(ctx, ExportSales)
	require.NoError(t, err)
	assert.Contains(t, info.Key, "reports/sales/")
	assert.Equal(t, "application/json", info.ContentType)
	assert.Positive(t, info.Size)

	_, rc, err := store.Get(ctx, info.Key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	var report domain.SalesReport
	require.NoError(t, json.Unmarshal(body, &report))
	require.Len(t, report.Orders, 1)
	assert.Equal(t, "8", report.TotalSales.String())
}

func TestExport_EveryKind(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	svc, _ := newExportService(t, &now)
	ctx := context.Background()

	for _, kind := range []ExportKind{ExportDashboard, ExportSales, ExportInventory, ExportFinancial} {
		_, err := svc.Export(ctx, kind)
		require.NoError(t, err, kind)
	}

	all, err := svc.ListExports(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	inventory, err := svc.ListExports(ctx, ExportInventory)
	require.NoError(t, err)
	require.Len(t, inventory, 1)
	assert.Contains(t, inventory[0].Key, "reports/inventory/")
}

func TestExport_UnknownKind(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	svc, store := newExportService(t, &now)

	_, err := svc.Export(context.Background(), ExportKind("payroll"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	infos, err := store.List(context.Background(), "reports/")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestParseExportKind(t *testing.T) {
	kind, err := ParseExportKind("financial")
	require.NoError(t, err)
	assert.Equal(t, ExportFinancial, kind)

	_, err = ParseExportKind("Financial")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
