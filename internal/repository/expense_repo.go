package repository

import (
	"context"

	"oneflow/internal/model"

	"gorm.io/gorm"
)

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindByID(ctx context.Context, id uint) (*model.Expense, error)
	ListAll(ctx context.Context) ([]model.Expense, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Expense, error)
	ListByStatus(ctx context.Context, status string) ([]model.Expense, error)
	ListByProject(ctx context.Context, projectID uint) ([]model.Expense, error)
	UpdateDecision(ctx context.Context, id uint, status string, approvedByPM bool) error
	DeleteMirrors(ctx context.Context, docType string, referenceID uint) error
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Omit("User", "Project").Create(expense).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, id uint) (*model.Expense, error) {
	var expense model.Expense
	if err := r.withOwners(ctx).First(&expense, id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// ListAll returns every expense row, mirrors included, newest first.
func (r *expenseRepository) ListAll(ctx context.Context) ([]model.Expense, error) {
	var expenses []model.Expense
	err := r.withOwners(ctx).Order("created_at desc, id desc").Find(&expenses).Error
	return expenses, err
}

func (r *expenseRepository) ListByUser(ctx context.Context, userID uint) ([]model.Expense, error) {
	var expenses []model.Expense
	err := GetDB(ctx, r.db).Preload("Project").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&expenses).Error
	return expenses, err
}

func (r *expenseRepository) ListByStatus(ctx context.Context, status string) ([]model.Expense, error) {
	var expenses []model.Expense
	err := r.withOwners(ctx).Where("status = ?", status).Order("created_at desc, id desc").Find(&expenses).Error
	return expenses, err
}

func (r *expenseRepository) ListByProject(ctx context.Context, projectID uint) ([]model.Expense, error) {
	var expenses []model.Expense
	err := GetDB(ctx, r.db).Where("project_id = ?", projectID).Order("created_at desc, id desc").Find(&expenses).Error
	return expenses, err
}

// UpdateDecision writes only the review columns of one row.
func (r *expenseRepository) UpdateDecision(ctx context.Context, id uint, status string, approvedByPM bool) error {
	res := GetDB(ctx, r.db).Model(&model.Expense{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":         status,
		"approved_by_pm": approvedByPM,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *expenseRepository) DeleteMirrors(ctx context.Context, docType string, referenceID uint) error {
	return GetDB(ctx, r.db).
		Where("type = ? AND reference_id = ?", docType, referenceID).
		Delete(&model.Expense{}).Error
}

func (r *expenseRepository) withOwners(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).
		Preload("User").
		Preload("Project")
}
