package service

import (
	"context"
	"time"

	"oneflow/internal/model"
	"oneflow/internal/repository"
	"oneflow/internal/workflow"
	"oneflow/pkg/apperror"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// trendMonths is the number of calendar months in the trend series, current month included.
const trendMonths = 6

// --- DTOs ---

type FinancialSummary struct {
	TotalRevenue string `json:"total_revenue"`
	TotalCosts   string `json:"total_costs"`
	Profit       string `json:"profit"`
	ProfitMargin string `json:"profit_margin"` // percent, two decimals
}

type ProjectFinancialsResponse struct {
	Project        ProjectResponse    `json:"project"`
	SalesOrders    []DocumentResponse `json:"sales_orders"`
	PurchaseOrders []DocumentResponse `json:"purchase_orders"`
	Invoices       []DocumentResponse `json:"invoices"`
	Bills          []DocumentResponse `json:"bills"`
	Expenses       []ExpenseResponse  `json:"expenses"`
	Summary        FinancialSummary   `json:"summary"`
}

// --- Interface ---

type FinanceService interface {
	Analytics(ctx context.Context) (*model.FinanceAnalytics, error)
	ProjectFinancials(ctx context.Context, projectID uint) (*ProjectFinancialsResponse, error)
}

type financeService struct {
	analyticsRepo repository.AnalyticsRepository
	billingRepo   repository.BillingRepository
	expenseRepo   repository.ExpenseRepository
	projectRepo   repository.ProjectRepository
	log           *zap.Logger
	now           func() time.Time
}

func NewFinanceService(
	analyticsRepo repository.AnalyticsRepository,
	billingRepo repository.BillingRepository,
	expenseRepo repository.ExpenseRepository,
	projectRepo repository.ProjectRepository,
	log *zap.Logger,
) FinanceService {
	return &financeService{
		analyticsRepo: analyticsRepo,
		billingRepo:   billingRepo,
		expenseRepo:   expenseRepo,
		projectRepo:   projectRepo,
		log:           log,
		now:           time.Now,
	}
}

// --- Implementation ---

func (s *financeService) Analytics(ctx context.Context) (*model.FinanceAnalytics, error) {
	out := &model.FinanceAnalytics{}

	breakdowns := []struct {
		kind workflow.Kind
		dst  *[]model.StatusBreakdown
	}{
		{workflow.KindSalesOrder, &out.SalesOrderStats},
		{workflow.KindPurchaseOrder, &out.PurchaseOrderStats},
		{workflow.KindInvoice, &out.InvoiceStats},
		{workflow.KindBill, &out.BillStats},
		{workflow.KindExpense, &out.ExpenseStats},
	}
	for _, b := range breakdowns {
		rows, err := s.analyticsRepo.StatusBreakdown(ctx, b.kind)
		if err != nil {
			return nil, s.persistence("failed to group by status", err)
		}
		*b.dst = nonNil(rows)
	}

	since := trendStart(s.now())
	revenue, err := s.analyticsRepo.MonthlyTotals(ctx, workflow.KindSalesOrder, since)
	if err != nil {
		return nil, s.persistence("failed to load revenue trend", err)
	}
	expenses, err := s.analyticsRepo.MonthlyTotals(ctx, workflow.KindExpense, since)
	if err != nil {
		return nil, s.persistence("failed to load expense trend", err)
	}
	out.RevenueTrends = nonNil(revenue)
	out.ExpenseTrends = nonNil(expenses)

	totals := []struct {
		kind workflow.Kind
		dst  *decimal.Decimal
	}{
		{workflow.KindSalesOrder, &out.Totals.Revenue},
		{workflow.KindExpense, &out.Totals.Expenses},
		{workflow.KindInvoice, &out.Totals.Invoices},
		{workflow.KindBill, &out.Totals.Bills},
	}
	for _, t := range totals {
		sum, err := s.analyticsRepo.Total(ctx, t.kind)
		if err != nil {
			return nil, s.persistence("failed to sum totals", err)
		}
		*t.dst = sum
	}
	out.Totals.Profit = out.Totals.Revenue.Sub(out.Totals.Expenses)

	if out.Pending.Expenses, err = s.analyticsRepo.CountByStatus(ctx, workflow.KindExpense, workflow.ExpensePending); err != nil {
		return nil, s.persistence("failed to count pending expenses", err)
	}
	// invoices still waiting to be sent count as pending
	if out.Pending.Invoices, err = s.analyticsRepo.CountByStatus(ctx, workflow.KindInvoice, workflow.StatusDraft); err != nil {
		return nil, s.persistence("failed to count pending invoices", err)
	}

	return out, nil
}

// ProjectFinancials sums the documents and native expenses of one project.
// Mirror expenses are skipped; their documents are already counted.
func (s *financeService) ProjectFinancials(ctx context.Context, projectID uint) (*ProjectFinancialsResponse, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, storeError(err, "Project not found", "failed to fetch project")
	}

	res := &ProjectFinancialsResponse{Project: toProjectResponse(project)}
	sums := make(map[workflow.Kind]decimal.Decimal, len(workflow.DocumentKinds))

	for _, kind := range workflow.DocumentKinds {
		docs, err := s.billingRepo.ListByProject(ctx, kind, projectID)
		if err != nil {
			return nil, s.persistence("failed to list project documents", err)
		}

		list := make([]DocumentResponse, 0, len(docs))
		sum := decimal.Zero
		for _, d := range docs {
			sum = sum.Add(d.Base().TotalAmount)
			list = append(list, toDocumentResponse(d))
		}
		sums[kind] = sum

		switch kind {
		case workflow.KindSalesOrder:
			res.SalesOrders = list
		case workflow.KindPurchaseOrder:
			res.PurchaseOrders = list
		case workflow.KindInvoice:
			res.Invoices = list
		case workflow.KindBill:
			res.Bills = list
		}
	}

	expenses, err := s.expenseRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, s.persistence("failed to list project expenses", err)
	}
	expenseSum := decimal.Zero
	res.Expenses = make([]ExpenseResponse, 0, len(expenses))
	for i := range expenses {
		if expenses[i].IsMirror() {
			continue
		}
		expenseSum = expenseSum.Add(expenses[i].Amount)
		res.Expenses = append(res.Expenses, toExpenseResponse(&expenses[i]))
	}

	revenue := sums[workflow.KindSalesOrder].Add(sums[workflow.KindInvoice])
	costs := sums[workflow.KindPurchaseOrder].Add(sums[workflow.KindBill]).Add(expenseSum)
	res.Summary = summarize(revenue, costs)
	return res, nil
}

// --- Helpers ---

func (s *financeService) persistence(msg string, err error) error {
	s.log.Error(msg, zap.Error(err))
	return apperror.Persistence(msg, err)
}

func summarize(revenue, costs decimal.Decimal) FinancialSummary {
	profit := revenue.Sub(costs)
	margin := decimal.Zero
	if !revenue.IsZero() {
		margin = profit.Div(revenue).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return FinancialSummary{
		TotalRevenue: revenue.StringFixed(2),
		TotalCosts:   costs.StringFixed(2),
		Profit:       profit.StringFixed(2),
		ProfitMargin: margin.StringFixed(2),
	}
}

// trendStart is the first day of the oldest month in the trend window.
func trendStart(now time.Time) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -(trendMonths - 1), 0)
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
