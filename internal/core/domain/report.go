package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	UncategorizedLabel = "Uncategorized"
	OtherCategoryLabel = "Other"
	UnassignedLabel    = "Unassigned"
)

type DashboardStats struct {
	TotalOrders    int             `json:"total_orders"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	PendingOrders  int             `json:"pending_orders"`
	TotalCustomers int             `json:"total_customers"`
	TotalProducts  int             `json:"total_products"`
	LowStockCount  int             `json:"low_stock_count"`
	TotalEmployees int             `json:"total_employees"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	NetProfit      decimal.Decimal `json:"net_profit"`
}

type DailySales struct {
	Date  time.Time       `json:"date"`
	Label string          `json:"label"`
	Sales decimal.Decimal `json:"sales"`
}

type StatusCount struct {
	Status OrderStatus `json:"status"`
	Label  string      `json:"label"`
	Count  int         `json:"count"`
}

type ProductSales struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Sold      int    `json:"sold"`
}

type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type MonthlyRevenue struct {
	Month   time.Time       `json:"month"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int    `json:"count"`
}

type DailyCashflow struct {
	Date    time.Time       `json:"date"`
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Overview is the full dashboard, computed from one read snapshot.
type Overview struct {
	Stats                 DashboardStats    `json:"stats"`
	DailySales            []DailySales      `json:"daily_sales"`
	OrderStatus           []StatusCount     `json:"order_status"`
	TopProducts           []ProductSales    `json:"top_products"`
	RecentOrders          []Order           `json:"recent_orders"`
	LowStockProducts      []Product         `json:"low_stock_products"`
	RevenueByCategory     []CategoryAmount  `json:"revenue_by_category"`
	MonthlyRevenue        []MonthlyRevenue  `json:"monthly_revenue"`
	ExpenseByCategory     []CategoryAmount  `json:"expense_by_category"`
	EmployeesByDepartment []DepartmentCount `json:"employees_by_department"`
	IncomeVsExpense       []DailyCashflow   `json:"income_vs_expense"`
}

type SalesReport struct {
	From       *time.Time      `json:"from,omitempty"`
	To         *time.Time      `json:"to,omitempty"`
	Orders     []Order         `json:"orders"`
	TotalSales decimal.Decimal `json:"total_sales"`
}

type InventoryReport struct {
	Products   []Product       `json:"products"`
	TotalValue decimal.Decimal `json:"total_value"`
	LowStock   []Product       `json:"low_stock"`
	OutOfStock []Product       `json:"out_of_stock"`
}

type FinancialReport struct {
	IncomeByCategory  []CategoryAmount `json:"income_by_category"`
	ExpenseByCategory []CategoryAmount `json:"expense_by_category"`
	TotalIncome       decimal.Decimal  `json:"total_income"`
	TotalExpense      decimal.Decimal  `json:"total_expense"`
}
