package service

import (
	"context"
	"strings"

	"oneflow/internal/model"
	"oneflow/internal/repository"
	"oneflow/internal/workflow"
	"oneflow/pkg/apperror"

	"go.uber.org/zap"
)

// --- DTOs ---

type SubmitExpenseRequest struct {
	ProjectID   uint   `json:"project_id" binding:"required"`
	Amount      string `json:"amount" binding:"required,money"` // Decimal string
	Description string `json:"description" binding:"required"`
}

type ExpenseResponse struct {
	ID           uint          `json:"id"`
	UserID       uint          `json:"user_id"`
	ProjectID    uint          `json:"project_id"`
	Amount       string        `json:"amount"`
	Description  string        `json:"description"`
	Status       string        `json:"status"`
	ApprovedByPM bool          `json:"approved_by_pm"`
	Type         string        `json:"type"`
	ReferenceID  *uint         `json:"reference_id"`
	User         *QueueUser    `json:"user,omitempty"`
	Project      *QueueProject `json:"project,omitempty"`
	CreatedAt    string        `json:"created_at"`
}

// --- Interface ---

type ExpenseService interface {
	Submit(ctx context.Context, userID uint, req SubmitExpenseRequest) (*ExpenseResponse, error)
	ListMine(ctx context.Context, userID uint) ([]ExpenseResponse, error)
	ListPending(ctx context.Context) ([]ExpenseResponse, error)
}

type expenseService struct {
	expenseRepo repository.ExpenseRepository
	projectRepo repository.ProjectRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    Notifier
	log         *zap.Logger
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	projectRepo repository.ProjectRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) ExpenseService {
	return &expenseService{
		expenseRepo: expenseRepo,
		projectRepo: projectRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifierOrNoop(notifier),
		log:         log,
	}
}

// --- Implementation ---

func (s *expenseService) Submit(ctx context.Context, userID uint, req SubmitExpenseRequest) (*ExpenseResponse, error) {
	amount, err := parseMoney(req.Amount)
	if err != nil {
		return nil, apperror.InvalidInput("invalid amount", err)
	}
	if amount.IsZero() {
		return nil, apperror.InvalidInput("amount must be greater than 0", nil)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, apperror.InvalidInput("description is required", nil)
	}

	project, err := s.projectRepo.FindByID(ctx, req.ProjectID)
	if err != nil {
		return nil, storeError(err, "Project not found", "failed to fetch project")
	}

	expense := &model.Expense{
		UserID:      userID,
		ProjectID:   project.ID,
		Amount:      amount,
		Description: description,
		Status:      workflow.InitialStatus(workflow.KindExpense),
		Type:        string(workflow.KindExpense),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return apperror.Persistence("failed to create expense", err)
		}
		return writeAudit(txCtx, s.auditRepo, userID, model.ActionSubmitExpense,
			workflow.ExpenseRef(expense.ID).String(), project.Title,
			map[string]string{"amount": amount.StringFixed(2), "project_id": uintString(project.ID)})
	})
	if err != nil {
		s.log.Error("failed to submit expense", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}

	expense.Project = project
	res := toExpenseResponse(expense)
	s.notifier.Publish(EventExpenseSubmitted, res)
	return &res, nil
}

func (s *expenseService) ListMine(ctx context.Context, userID uint) ([]ExpenseResponse, error) {
	expenses, err := s.expenseRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Persistence("failed to list expenses", err)
	}
	return toExpenseResponses(expenses), nil
}

func (s *expenseService) ListPending(ctx context.Context) ([]ExpenseResponse, error) {
	expenses, err := s.expenseRepo.ListByStatus(ctx, workflow.ExpensePending)
	if err != nil {
		return nil, apperror.Persistence("failed to list pending expenses", err)
	}
	return toExpenseResponses(expenses), nil
}

// --- Helpers ---

func toExpenseResponses(expenses []model.Expense) []ExpenseResponse {
	res := make([]ExpenseResponse, 0, len(expenses))
	for i := range expenses {
		res = append(res, toExpenseResponse(&expenses[i]))
	}
	return res
}

func toExpenseResponse(e *model.Expense) ExpenseResponse {
	res := ExpenseResponse{
		ID:           e.ID,
		UserID:       e.UserID,
		ProjectID:    e.ProjectID,
		Amount:       e.Amount.StringFixed(2),
		Description:  e.Description,
		Status:       e.Status,
		ApprovedByPM: e.ApprovedByPM,
		Type:         e.Type,
		ReferenceID:  e.ReferenceID,
		CreatedAt:    e.CreatedAt.Format(timeLayout),
	}
	if e.User != nil {
		res.User = &QueueUser{ID: e.User.ID, Name: e.User.Name, Email: e.User.Email}
	}
	if e.Project != nil {
		res.Project = &QueueProject{ID: e.Project.ID, Title: e.Project.Title}
	}
	return res
}
