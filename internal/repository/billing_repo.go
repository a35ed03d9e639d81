package repository

import (
	"context"
	"fmt"

	"oneflow/internal/model"
	"oneflow/internal/workflow"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillingRepository stores the four billing document kinds, one table each.
type BillingRepository interface {
	Create(ctx context.Context, doc model.BillingDocument) error
	FindByID(ctx context.Context, kind workflow.Kind, id uint) (model.BillingDocument, error)
	List(ctx context.Context, kind workflow.Kind, offset, limit int) ([]model.BillingDocument, int64, error)
	ListAll(ctx context.Context, kind workflow.Kind) ([]model.BillingDocument, error)
	ListByProject(ctx context.Context, kind workflow.Kind, projectID uint) ([]model.BillingDocument, error)
	Save(ctx context.Context, doc model.BillingDocument) error
	UpdateStatus(ctx context.Context, kind workflow.Kind, id uint, status string) error
	Delete(ctx context.Context, kind workflow.Kind, id uint) error
}

type billingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &billingRepository{db: db}
}

func (r *billingRepository) Create(ctx context.Context, doc model.BillingDocument) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(doc).Error
}

func (r *billingRepository) FindByID(ctx context.Context, kind workflow.Kind, id uint) (model.BillingDocument, error) {
	doc, err := newDocument(kind)
	if err != nil {
		return nil, err
	}
	if err := withRelations(GetDB(ctx, r.db), kind).First(doc, id).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *billingRepository) List(ctx context.Context, kind workflow.Kind, offset, limit int) ([]model.BillingDocument, int64, error) {
	doc, err := newDocument(kind)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	db := GetDB(ctx, r.db)
	if err := db.Model(doc).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	docs, err := findDocuments(kind, withRelations(db, kind).Order("date desc, id desc").Offset(offset).Limit(limit))
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// ListAll returns every document of kind, newest first by creation time.
func (r *billingRepository) ListAll(ctx context.Context, kind workflow.Kind) ([]model.BillingDocument, error) {
	return findDocuments(kind, withRelations(GetDB(ctx, r.db), kind).Order("created_at desc, id desc"))
}

func (r *billingRepository) ListByProject(ctx context.Context, kind workflow.Kind, projectID uint) ([]model.BillingDocument, error) {
	return findDocuments(kind, GetDB(ctx, r.db).Where("project_id = ?", projectID).Order("date desc, id desc"))
}

func (r *billingRepository) Save(ctx context.Context, doc model.BillingDocument) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(doc).Error
}

func (r *billingRepository) UpdateStatus(ctx context.Context, kind workflow.Kind, id uint, status string) error {
	doc, err := newDocument(kind)
	if err != nil {
		return err
	}
	res := GetDB(ctx, r.db).Model(doc).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *billingRepository) Delete(ctx context.Context, kind workflow.Kind, id uint) error {
	doc, err := newDocument(kind)
	if err != nil {
		return err
	}
	res := GetDB(ctx, r.db).Delete(doc, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func newDocument(kind workflow.Kind) (model.BillingDocument, error) {
	doc := model.NewDocument(kind)
	if doc == nil {
		return nil, fmt.Errorf("%q is not a billing document kind", kind)
	}
	return doc, nil
}

func withRelations(db *gorm.DB, kind workflow.Kind) *gorm.DB {
	db = db.Preload("Project")
	switch kind {
	case workflow.KindInvoice:
		db = db.Preload("SalesOrder")
	case workflow.KindBill:
		db = db.Preload("PurchaseOrder")
	}
	return db
}

func findDocuments(kind workflow.Kind, db *gorm.DB) ([]model.BillingDocument, error) {
	switch kind {
	case workflow.KindSalesOrder:
		return findAs[model.SalesOrder](db)
	case workflow.KindPurchaseOrder:
		return findAs[model.PurchaseOrder](db)
	case workflow.KindInvoice:
		return findAs[model.Invoice](db)
	case workflow.KindBill:
		return findAs[model.Bill](db)
	default:
		return nil, fmt.Errorf("%q is not a billing document kind", kind)
	}
}

func findAs[T any, P interface {
	*T
	model.BillingDocument
}](db *gorm.DB) ([]model.BillingDocument, error) {
	var rows []T
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]model.BillingDocument, len(rows))
	for i := range rows {
		docs[i] = P(&rows[i])
	}
	return docs, nil
}
