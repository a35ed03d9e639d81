package repository

import (
	"context"
	"fmt"
	"time"

	"oneflow/internal/model"
	"oneflow/internal/workflow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// tableSource names the table and columns aggregated for one record kind.
// scope restricts the rows; mirror expenses are left out so documents are
// not counted twice.
type tableSource struct {
	table  string
	amount string
	date   string
	scope  string
}

var analyticsSources = map[workflow.Kind]tableSource{
	workflow.KindSalesOrder:    {table: "sales_orders", amount: "total_amount", date: "date"},
	workflow.KindPurchaseOrder: {table: "purchase_orders", amount: "total_amount", date: "date"},
	workflow.KindInvoice:       {table: "invoices", amount: "total_amount", date: "date"},
	workflow.KindBill:          {table: "bills", amount: "total_amount", date: "date"},
	workflow.KindExpense:       {table: "expenses", amount: "amount", date: "created_at", scope: "type = 'expense'"},
}

type AnalyticsRepository interface {
	StatusBreakdown(ctx context.Context, kind workflow.Kind) ([]model.StatusBreakdown, error)
	MonthlyTotals(ctx context.Context, kind workflow.Kind, since time.Time) ([]model.MonthlyAmount, error)
	Total(ctx context.Context, kind workflow.Kind) (decimal.Decimal, error)
	CountByStatus(ctx context.Context, kind workflow.Kind, status string) (int64, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (s tableSource) query(db *gorm.DB) *gorm.DB {
	db = db.Table(s.table)
	if s.scope != "" {
		db = db.Where(s.scope)
	}
	return db
}

func sourceFor(kind workflow.Kind) (tableSource, error) {
	src, ok := analyticsSources[kind]
	if !ok {
		return tableSource{}, fmt.Errorf("no analytics source for kind %q", kind)
	}
	return src, nil
}

func (r *analyticsRepository) StatusBreakdown(ctx context.Context, kind workflow.Kind) ([]model.StatusBreakdown, error) {
	src, err := sourceFor(kind)
	if err != nil {
		return nil, err
	}

	var rows []model.StatusBreakdown
	if err := src.query(GetDB(ctx, r.db)).
		Select(fmt.Sprintf("status, COUNT(id) AS count, COALESCE(SUM(%s), 0) AS total", src.amount)).
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group %s by status: %w", src.table, err)
	}
	return rows, nil
}

// MonthlyTotals sums amounts per YYYY-MM bucket from since onwards.
func (r *analyticsRepository) MonthlyTotals(ctx context.Context, kind workflow.Kind, since time.Time) ([]model.MonthlyAmount, error) {
	src, err := sourceFor(kind)
	if err != nil {
		return nil, err
	}

	bucket := fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM')", src.date)

	var rows []model.MonthlyAmount
	if err := src.query(GetDB(ctx, r.db)).
		Select(fmt.Sprintf("%s AS month, COALESCE(SUM(%s), 0) AS amount", bucket, src.amount)).
		Where(src.date+" >= ?", since).
		Group(bucket).
		Order("month ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query monthly totals of %s: %w", src.table, err)
	}
	return rows, nil
}

func (r *analyticsRepository) Total(ctx context.Context, kind workflow.Kind) (decimal.Decimal, error) {
	src, err := sourceFor(kind)
	if err != nil {
		return decimal.Zero, err
	}

	var result struct {
		Total decimal.Decimal
	}
	if err := src.query(GetDB(ctx, r.db)).
		Select(fmt.Sprintf("COALESCE(SUM(%s), 0) AS total", src.amount)).
		Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s: %w", src.table, err)
	}
	return result.Total, nil
}

func (r *analyticsRepository) CountByStatus(ctx context.Context, kind workflow.Kind, status string) (int64, error) {
	src, err := sourceFor(kind)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := src.query(GetDB(ctx, r.db)).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", src.table, err)
	}
	return count, nil
}
