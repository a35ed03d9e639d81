package repository

import (
	"context"
	"testing"
	"time"

	"oneflow/internal/model"
	"oneflow/internal/workflow"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the application schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection would get its own in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Expense{},
		&model.SalesOrder{},
		&model.PurchaseOrder{},
		&model.Invoice{},
		&model.Bill{},
	))
	// gen_random_uuid() only exists on PostgreSQL
	require.NoError(t, db.Exec(`CREATE TABLE audit_logs (
		id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		user_id INTEGER,
		action TEXT NOT NULL,
		entity_id TEXT,
		entity_name TEXT,
		details TEXT,
		created_at DATETIME
	)`).Error)
	return db
}

func seedProject(t *testing.T, db *gorm.DB) (*model.User, *model.Project) {
	t.Helper()
	ctx := context.Background()

	user := &model.User{Name: "Mai", Email: "mai@oneflow.test", Password: "hash", Role: model.RoleProjectManager}
	require.NoError(t, NewUserRepository(db).Create(ctx, user))

	project := &model.Project{Title: "Warehouse fit-out", ManagerID: &user.ID}
	require.NoError(t, NewProjectRepository(db).Create(ctx, project))
	return user, project
}

func newSalesOrder(ref string, projectID *uint) *model.SalesOrder {
	return &model.SalesOrder{
		DocumentBase: model.DocumentBase{
			ReferenceNo: ref,
			Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			TotalAmount: decimal.RequireFromString("1500.00"),
			ProjectID:   projectID,
			Status:      workflow.StatusDraft,
		},
		CustomerName: "Tech Corp",
	}
}

func newPurchaseOrder(ref string, projectID *uint) *model.PurchaseOrder {
	return &model.PurchaseOrder{
		DocumentBase: model.DocumentBase{
			ReferenceNo: ref,
			Date:        time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
			TotalAmount: decimal.RequireFromString("600.00"),
			ProjectID:   projectID,
			Status:      workflow.StatusDraft,
		},
		SupplierName: "Acme Supplies",
	}
}

func mirrorOf(doc model.BillingDocument, userID uint) *model.Expense {
	id := doc.Base().ID
	return &model.Expense{
		UserID:      userID,
		ProjectID:   *doc.Base().ProjectID,
		Amount:      doc.Base().TotalAmount,
		Description: model.DescribeDocument(doc),
		Status:      workflow.ExpensePending,
		Type:        string(doc.Kind()),
		ReferenceID: &id,
	}
}

func countRows(t *testing.T, db *gorm.DB, table interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(table).Count(&n).Error)
	return n
}
