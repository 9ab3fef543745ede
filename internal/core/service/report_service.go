package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

const (
	dailyWindow     = 7
	monthlyWindow   = 6
	topProductLimit = 5
	overviewLimit   = 5
)

// ReportService computes dashboard and report figures. Each call reads from one
// snapshot so the figures of one report agree with each other.
type ReportService struct {
	db port.DatabaseRepository
	options
}

func NewReportService(db port.DatabaseRepository, opts ...Option) *ReportService {
	return &ReportService{db: db, options: buildOptions(opts)}
}

// read runs fn in a snapshot and records the report's latency.
func (s *ReportService) read(ctx context.Context, name string, fn func(ctx context.Context, r port.SnapshotReader) error) error {
	ctx, span := tracer.Start(ctx, "ReportService."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("report.name", name)))
	defer span.End()
	defer s.metrics.ObserveReport(name, time.Now())

	if err := s.db.ReadSnapshot(ctx, fn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("compute %s: %w", name, err)
	}
	return nil
}

func (s *ReportService) Dashboard(ctx context.Context) (stats domain.DashboardStats, err error) {
	err = s.read(ctx, "dashboard_stats", func(ctx context.Context, r port.SnapshotReader) error {
		stats, err = s.dashboard(ctx, r)
		return err
	})
	return stats, err
}

func (s *ReportService) DailySales(ctx context.Context) (out []domain.DailySales, err error) {
	err = s.read(ctx, "daily_sales", func(ctx context.Context, r port.SnapshotReader) error {
		out, err = s.dailySales(ctx, r)
		return err
	})
	return out, err
}

func (s *ReportService) OrderStatusBreakdown(ctx context.Context) (out []domain.StatusCount, err error) {
	err = s.read(ctx, "order_status", func(ctx context.Context, r port.SnapshotReader) error {
		out, err = orderStatus(ctx, r)
		return err
	})
	return out, err
}

func (s *ReportService) TopProducts(ctx context.Context) (out []domain.ProductSales, err error) {
	err = s.read(ctx, "top_products", func(ctx context.Context, r port.SnapshotReader) error {
		out, err = topProducts(ctx, r)
		return err
	})
	return out, err
}

func (s *ReportService) RevenueByCategory(ctx context.Context) (out []domain.CategoryAmount, err error) {
	err = s.read(ctx, "revenue_by_category", func(ctx context.Context, r port.SnapshotReader) error {
		out, err = revenueByCategory(ctx, r)
		return err
	})
	return out, err
}

func (s *ReportService) MonthlyRevenue(ctx context.Context) (out []domain.MonthlyRevenue, err error) {
	err = s.read(ctx, "monthly_revenue", func(ctx context.Context, r port.SnapshotReader) error {
		out, err = s.monthlyRevenue(ctx, r)
		return err
	})
	return out, err
}

func (s *ReportService) ExpenseByCategory(ctx context.Context) (out []domain.CategoryAmount, err error) {
	err = s.read(ctx, "expense_by_category", func(ctx context.Context, r port.SnapshotReader) error {
		out, err = ledgerByCategory(ctx, r, domain.TransactionExpense)
		return err
	})
	return out, err
}

func (s *ReportService) EmployeesByDepartment(ctx context.Context) (out []domain.DepartmentCount, err error) {
	err = s.read(ctx, "employees_by_department", func(ctx context.Context, r port.SnapshotReader) error {
		out, err = employeesByDepartment(ctx, r)
		return err
	})
	return out, err
}

func (s *ReportService) IncomeVsExpense(ctx context.Context) (out []domain.DailyCashflow, err error) {
	err = s.read(ctx, "income_vs_expense", func(ctx context.Context, r port.SnapshotReader) error {
		out, err = s.incomeVsExpense(ctx, r)
		return err
	})
	return out, err
}

// Overview computes the whole dashboard page from one snapshot.
func (s *ReportService) Overview(ctx context.Context) (*domain.Overview, error) {
	var o domain.Overview
	err := s.read(ctx, "dashboard", func(ctx context.Context, r port.SnapshotReader) error {
		var err error
		if o.Stats, err = s.dashboard(ctx, r); err != nil {
			return err
		}
		if o.DailySales, err = s.dailySales(ctx, r); err != nil {
			return err
		}
		if o.OrderStatus, err = orderStatus(ctx, r); err != nil {
			return err
		}
		if o.TopProducts, err = topProducts(ctx, r); err != nil {
			return err
		}
		if o.RecentOrders, err = r.RecentOrders(ctx, overviewLimit); err != nil {
			return err
		}
		if o.LowStockProducts, err = r.LowStockProducts(ctx, overviewLimit); err != nil {
			return err
		}
		if o.RevenueByCategory, err = revenueByCategory(ctx, r); err != nil {
			return err
		}
		if o.MonthlyRevenue, err = s.monthlyRevenue(ctx, r); err != nil {
			return err
		}
		if o.ExpenseByCategory, err = ledgerByCategory(ctx, r, domain.TransactionExpense); err != nil {
			return err
		}
		if o.EmployeesByDepartment, err = employeesByDepartment(ctx, r); err != nil {
			return err
		}
		o.IncomeVsExpense, err = s.incomeVsExpense(ctx, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	if o.RecentOrders == nil {
		o.RecentOrders = []domain.Order{}
	}
	if o.LowStockProducts == nil {
		o.LowStockProducts = []domain.Product{}
	}
	return &o, nil
}

// SalesReport lists non-cancelled orders created within [from, to]. Nil bounds
// are open.
func (s *ReportService) SalesReport(ctx context.Context, from, to *time.Time) (*domain.SalesReport, error) {
	report := &domain.SalesReport{From: from, To: to, TotalSales: decimal.Zero}
	err := s.read(ctx, "sales", func(ctx context.Context, r port.SnapshotReader) error {
		orders, err := r.SalesOrders(ctx, from, to)
		if err != nil {
			return err
		}
		report.Orders = orders
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.Orders == nil {
		report.Orders = []domain.Order{}
	}
	for _, o := range report.Orders {
		report.TotalSales = report.TotalSales.Add(o.TotalAmount)
	}
	report.TotalSales = report.TotalSales.Round(2)
	return report, nil
}

func (s *ReportService) InventoryReport(ctx context.Context) (*domain.InventoryReport, error) {
	var products []domain.Product
	err := s.read(ctx, "inventory", func(ctx context.Context, r port.SnapshotReader) error {
		var err error
		products, err = r.Products(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &domain.InventoryReport{
		Products:   products,
		TotalValue: decimal.Zero,
		LowStock:   []domain.Product{},
		OutOfStock: []domain.Product{},
	}
	if report.Products == nil {
		report.Products = []domain.Product{}
	}
	for _, p := range products {
		report.TotalValue = report.TotalValue.Add(p.StockValue())
		if p.IsLowStock() {
			report.LowStock = append(report.LowStock, p)
		}
		if p.StockQuantity == 0 {
			report.OutOfStock = append(report.OutOfStock, p)
		}
	}
	report.TotalValue = report.TotalValue.Round(2)
	return report, nil
}

func (s *ReportService) FinancialReport(ctx context.Context) (*domain.FinancialReport, error) {
	var report domain.FinancialReport
	err := s.read(ctx, "financial", func(ctx context.Context, r port.SnapshotReader) error {
		var err error
		if report.IncomeByCategory, err = ledgerByCategory(ctx, r, domain.TransactionIncome); err != nil {
			return err
		}
		if report.ExpenseByCategory, err = ledgerByCategory(ctx, r, domain.TransactionExpense); err != nil {
			return err
		}
		income, expense, err := r.LedgerTotals(ctx)
		if err != nil {
			return err
		}
		report.TotalIncome = income.Round(2)
		report.TotalExpense = expense.Round(2)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *ReportService) dashboard(ctx context.Context, r port.SnapshotReader) (domain.DashboardStats, error) {
	orders, err := r.OrderCounts(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	entities, err := r.EntityCounts(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	income, expense, err := r.LedgerTotals(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	return domain.DashboardStats{
		TotalOrders:    orders.Total,
		TotalRevenue:   orders.Revenue.Round(2),
		PendingOrders:  orders.Pending,
		TotalCustomers: entities.Customers,
		TotalProducts:  entities.Products,
		LowStockCount:  entities.LowStock,
		TotalEmployees: entities.ActiveEmployees,
		TotalIncome:    income.Round(2),
		TotalExpense:   expense.Round(2),
		NetProfit:      income.Sub(expense).Round(2),
	}, nil
}

// trailingDays returns the last n calendar days ending today, oldest first, as
// midnight in the reporting location.
func (s *ReportService) trailingDays(n int) []time.Time {
	now := s.today()
	days := make([]time.Time, n)
	for i := range days {
		days[i] = time.Date(now.Year(), now.Month(), now.Day()-(n-1-i), 0, 0, 0, 0, s.loc)
	}
	return days
}

func (s *ReportService) dailySales(ctx context.Context, r port.SnapshotReader) ([]domain.DailySales, error) {
	days := s.trailingDays(dailyWindow)
	totals, err := r.OrderTotalsSince(ctx, days[0])
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]decimal.Decimal, len(days))
	for _, t := range totals {
		key := t.CreatedAt.In(s.loc).Format(time.DateOnly)
		byDay[key] = byDay[key].Add(t.Amount)
	}

	out := make([]domain.DailySales, len(days))
	for i, day := range days {
		out[i] = domain.DailySales{
			Date:  domain.CivilDate(day),
			Label: day.Format("Jan 02"),
			Sales: byDay[day.Format(time.DateOnly)].Round(2),
		}
	}
	return out, nil
}

func (s *ReportService) incomeVsExpense(ctx context.Context, r port.SnapshotReader) ([]domain.DailyCashflow, error) {
	days := s.trailingDays(dailyWindow)
	lines, err := r.LedgerSince(ctx, days[0])
	if err != nil {
		return nil, err
	}

	type flows struct{ income, expense decimal.Decimal }
	byDay := make(map[string]flows, len(days))
	for _, l := range lines {
		key := l.Date.Format(time.DateOnly)
		f := byDay[key]
		switch l.Type {
		case domain.TransactionIncome:
			f.income = f.income.Add(l.Amount)
		case domain.TransactionExpense:
			f.expense = f.expense.Add(l.Amount)
		}
		byDay[key] = f
	}

	out := make([]domain.DailyCashflow, len(days))
	for i, day := range days {
		f := byDay[day.Format(time.DateOnly)]
		out[i] = domain.DailyCashflow{
			Date:    domain.CivilDate(day),
			Label:   day.Format("Jan 02"),
			Income:  f.income.Round(2),
			Expense: f.expense.Round(2),
		}
	}
	return out, nil
}

func (s *ReportService) monthlyRevenue(ctx context.Context, r port.SnapshotReader) ([]domain.MonthlyRevenue, error) {
	now := s.today()
	months := make([]time.Time, monthlyWindow)
	for i := range months {
		months[i] = time.Date(now.Year(), now.Month()-time.Month(monthlyWindow-1-i), 1, 0, 0, 0, 0, s.loc)
	}

	totals, err := r.OrderTotalsSince(ctx, months[0])
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]decimal.Decimal, len(months))
	for _, t := range totals {
		key := t.CreatedAt.In(s.loc).Format("2006-01")
		byMonth[key] = byMonth[key].Add(t.Amount)
	}

	out := make([]domain.MonthlyRevenue, len(months))
	for i, month := range months {
		out[i] = domain.MonthlyRevenue{
			Month:   domain.CivilDate(month),
			Label:   month.Format("Jan"),
			Revenue: byMonth[month.Format("2006-01")].Round(2),
		}
	}
	return out, nil
}

func orderStatus(ctx context.Context, r port.SnapshotReader) ([]domain.StatusCount, error) {
	counts, err := r.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StatusCount, len(domain.OrderStatuses))
	for i, status := range domain.OrderStatuses {
		out[i] = domain.StatusCount{Status: status, Label: status.Label(), Count: counts[status]}
	}
	return out, nil
}

func topProducts(ctx context.Context, r port.SnapshotReader) ([]domain.ProductSales, error) {
	top, err := r.TopProducts(ctx, topProductLimit)
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []domain.ProductSales{}
	}
	return top, nil
}

func revenueByCategory(ctx context.Context, r port.SnapshotReader) ([]domain.CategoryAmount, error) {
	rows, err := r.RevenueByCategory(ctx)
	if err != nil {
		return nil, err
	}
	return labelCategories(rows, domain.UncategorizedLabel), nil
}

func ledgerByCategory(ctx context.Context, r port.SnapshotReader, typ domain.TransactionType) ([]domain.CategoryAmount, error) {
	rows, err := r.LedgerByCategory(ctx, typ)
	if err != nil {
		return nil, err
	}
	return labelCategories(rows, domain.OtherCategoryLabel), nil
}

func employeesByDepartment(ctx context.Context, r port.SnapshotReader) ([]domain.DepartmentCount, error) {
	rows, err := r.EmployeesByDepartment(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DepartmentCount, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		if row.Department == "" {
			row.Department = domain.UnassignedLabel
		}
		if i, ok := index[row.Department]; ok {
			out[i].Count += row.Count
			continue
		}
		index[row.Department] = len(out)
		out = append(out, row)
	}
	return out, nil
}

// labelCategories names the empty category with fallback, merging it into an
// existing group of that name, and rounds every amount.
func labelCategories(rows []domain.CategoryAmount, fallback string) []domain.CategoryAmount {
	out := make([]domain.CategoryAmount, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		if row.Category == "" {
			row.Category = fallback
		}
		if i, ok := index[row.Category]; ok {
			out[i].Amount = out[i].Amount.Add(row.Amount)
			continue
		}
		index[row.Category] = len(out)
		out = append(out, row)
	}
	for i := range out {
		out[i].Amount = out[i].Amount.Round(2)
	}
	return out
}
