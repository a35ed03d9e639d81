package model

import "github.com/shopspring/decimal"

// StatusBreakdown is one GROUP BY status row of a document table.
type StatusBreakdown struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// MonthlyAmount is a YYYY-MM bucket of a trend series.
type MonthlyAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type FinanceTotals struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Invoices decimal.Decimal `json:"invoices"`
	Bills    decimal.Decimal `json:"bills"`
	Profit   decimal.Decimal `json:"profit"`
}

type PendingCounts struct {
	Expenses int64 `json:"expenses"`
	Invoices int64 `json:"invoices"`
}

// FinanceAnalytics is the finance dashboard payload.
type FinanceAnalytics struct {
	SalesOrderStats    []StatusBreakdown `json:"sales_order_stats"`
	PurchaseOrderStats []StatusBreakdown `json:"purchase_order_stats"`
	InvoiceStats       []StatusBreakdown `json:"invoice_stats"`
	BillStats          []StatusBreakdown `json:"bill_stats"`
	ExpenseStats       []StatusBreakdown `json:"expense_stats"`
	RevenueTrends      []MonthlyAmount   `json:"revenue_trends"`
	ExpenseTrends      []MonthlyAmount   `json:"expense_trends"`
	Totals             FinanceTotals     `json:"totals"`
	Pending            PendingCounts     `json:"pending"`
}
