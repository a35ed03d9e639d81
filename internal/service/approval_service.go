package service

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"oneflow/internal/model"
	"oneflow/internal/report"
	"oneflow/internal/repository"
	"oneflow/internal/workflow"
	"oneflow/pkg/apperror"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

type DecisionRequest struct {
	Action string `json:"action" binding:"required"` // approve or reject
}

// ReviewExpenseRequest is the body of the older per-expense review route.
type ReviewExpenseRequest struct {
	Status string `json:"status" binding:"required"` // approved or rejected
}

type QueueUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type QueueProject struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// QueueItem is one entry of the project manager review queue.
type QueueItem struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Amount       string        `json:"amount"`
	Description  string        `json:"description"`
	Status       string        `json:"status"`
	ApprovedByPM bool          `json:"approved_by_pm"`
	CreatedAt    time.Time     `json:"created_at"`
	OriginalID   uint          `json:"original_id"`
	ProjectID    *uint         `json:"project_id"`
	ReferenceNo  string        `json:"reference_no,omitempty"`
	CustomerName string        `json:"customer_name,omitempty"`
	SupplierName string        `json:"supplier_name,omitempty"`
	ReferenceID  *uint         `json:"reference_id,omitempty"`
	User         *QueueUser    `json:"user,omitempty"`
	Project      *QueueProject `json:"project,omitempty"`

	source workflow.Kind // record kind behind ID; mirrors are expenses
}

type DecisionResult struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	Action         string      `json:"action"`
	PreviousStatus string      `json:"previous_status"`
	Status         string      `json:"status"`
	ApprovedByPM   bool        `json:"approved_by_pm"`
	Message        string      `json:"message"`
	Document       interface{} `json:"document"`
}

// --- Interface ---

type ApprovalService interface {
	ListQueue(ctx context.Context) ([]QueueItem, error)
	ExportQueue(ctx context.Context) ([]byte, error)
	Decide(ctx context.Context, rawID, rawAction string, actorID uint) (*DecisionResult, error)
	ReviewExpense(ctx context.Context, rawID, status string, actorID uint) (*DecisionResult, error)
}

type approvalService struct {
	expenseRepo repository.ExpenseRepository
	billingRepo repository.BillingRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    Notifier
	log         *zap.Logger
}

func NewApprovalService(
	expenseRepo repository.ExpenseRepository,
	billingRepo repository.BillingRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) ApprovalService {
	return &approvalService{
		expenseRepo: expenseRepo,
		billingRepo: billingRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifierOrNoop(notifier),
		log:         log,
	}
}

// --- Implementation ---

// ListQueue merges expenses and the four billing kinds into one feed.
// The reads are independent; nothing is written.
func (s *approvalService) ListQueue(ctx context.Context) ([]QueueItem, error) {
	expenses, err := s.expenseRepo.ListAll(ctx)
	if err != nil {
		return nil, apperror.Persistence("failed to list expenses", err)
	}

	items := make([]QueueItem, 0, len(expenses))
	for i := range expenses {
		items = append(items, expenseQueueItem(&expenses[i]))
	}

	for _, kind := range workflow.DocumentKinds {
		docs, err := s.billingRepo.ListAll(ctx, kind)
		if err != nil {
			return nil, apperror.Persistence(fmt.Sprintf("failed to list %s documents", kind), err)
		}
		for _, doc := range docs {
			items = append(items, documentQueueItem(doc))
		}
	}

	slices.SortFunc(items, compareQueueItems)
	return items, nil
}

func (s *approvalService) ExportQueue(ctx context.Context) ([]byte, error) {
	items, err := s.ListQueue(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]report.QueueRow, 0, len(items))
	for _, it := range items {
		amount, _ := decimal.RequireFromString(it.Amount).Float64()
		rows = append(rows, report.QueueRow{
			ID:           it.ID,
			Type:         it.Type,
			Description:  it.Description,
			Amount:       amount,
			Status:       it.Status,
			ApprovedByPM: it.ApprovedByPM,
			CreatedAt:    it.CreatedAt,
		})
	}

	var buf bytes.Buffer
	if err := report.WriteQueue(&buf, rows); err != nil {
		return nil, apperror.Persistence("failed to render approval export", err)
	}
	return buf.Bytes(), nil
}

func (s *approvalService) Decide(ctx context.Context, rawID, rawAction string, actorID uint) (*DecisionResult, error) {
	action, err := workflow.ParseAction(rawAction)
	if err != nil {
		return nil, apperror.InvalidInput("invalid request", err)
	}
	ref, err := workflow.ParseDocumentRef(rawID)
	if err != nil {
		return nil, apperror.InvalidInput("invalid request", err)
	}
	return s.decide(ctx, ref, action, actorID)
}

// ReviewExpense maps {status: approved|rejected} on a plain expense id onto Decide.
func (s *approvalService) ReviewExpense(ctx context.Context, rawID, status string, actorID uint) (*DecisionResult, error) {
	var action workflow.Action
	switch status {
	case workflow.ExpenseApproved:
		action = workflow.ActionApprove
	case workflow.ExpenseRejected:
		action = workflow.ActionReject
	default:
		return nil, apperror.InvalidInput("Invalid status", nil)
	}

	ref, err := workflow.ParseDocumentRef(rawID)
	if err != nil {
		return nil, apperror.InvalidInput("invalid request", err)
	}
	if ref.Kind != workflow.KindExpense {
		return nil, apperror.InvalidInput("invalid request", fmt.Errorf("%w: %q is not an expense id", workflow.ErrInvalidRef, rawID))
	}
	return s.decide(ctx, ref, action, actorID)
}

func (s *approvalService) decide(ctx context.Context, ref workflow.DocumentRef, action workflow.Action, actorID uint) (*DecisionResult, error) {
	var result *DecisionResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if ref.Kind == workflow.KindExpense {
			result, err = s.decideExpense(txCtx, ref, action)
		} else {
			result, err = s.decideDocument(txCtx, ref, action)
		}
		if err != nil {
			return err
		}

		auditAction := model.ActionApproveDocument
		if action == workflow.ActionReject {
			auditAction = model.ActionRejectDocument
		}
		return writeAudit(txCtx, s.auditRepo, actorID, auditAction, ref.String(), ref.Kind.Label(), map[string]interface{}{
			"ref":  ref.String(),
			"kind": string(ref.Kind),
			"from": result.PreviousStatus,
			"to":   result.Status,
		})
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindPersistence {
			s.log.Error("approval decision failed", zap.String("ref", ref.String()), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("approval decided",
		zap.String("ref", result.ID),
		zap.String("action", result.Action),
		zap.String("from", result.PreviousStatus),
		zap.String("to", result.Status),
		zap.Uint("actor_id", actorID),
	)
	s.notifier.Publish(EventApprovalDecided, map[string]interface{}{
		"id":             result.ID,
		"type":           result.Type,
		"status":         result.Status,
		"approved_by_pm": result.ApprovedByPM,
	})
	return result, nil
}

func (s *approvalService) decideExpense(ctx context.Context, ref workflow.DocumentRef, action workflow.Action) (*DecisionResult, error) {
	expense, err := s.expenseRepo.FindByID(ctx, ref.ID)
	if err != nil {
		return nil, storeError(err, "Expense not found", "failed to load expense")
	}
	if expense.IsMirror() {
		return nil, mirrorDecisionError(expense)
	}

	from := expense.Status
	to, err := workflow.Next(ref.Kind, action, from)
	if err != nil {
		return nil, transitionError(ref.Kind, action, from, err)
	}

	approved := action == workflow.ActionApprove
	if err := s.expenseRepo.UpdateDecision(ctx, expense.ID, to, approved); err != nil {
		return nil, storeError(err, "Expense not found", "failed to update expense")
	}
	expense.Status = to
	expense.ApprovedByPM = approved

	return &DecisionResult{
		ID:             ref.String(),
		Type:           string(ref.Kind),
		Action:         string(action),
		PreviousStatus: from,
		Status:         to,
		ApprovedByPM:   approved,
		Message:        "Expense " + action.PastTense() + " by PM",
		Document:       expense,
	}, nil
}

// decideDocument updates only the document. Mirror expenses keep their status.
func (s *approvalService) decideDocument(ctx context.Context, ref workflow.DocumentRef, action workflow.Action) (*DecisionResult, error) {
	notFound := ref.Kind.Label() + " not found"

	doc, err := s.billingRepo.FindByID(ctx, ref.Kind, ref.ID)
	if err != nil {
		return nil, storeError(err, notFound, "failed to load document")
	}

	from := doc.Base().Status
	to, err := workflow.Next(ref.Kind, action, from)
	if err != nil {
		return nil, transitionError(ref.Kind, action, from, err)
	}

	if err := s.billingRepo.UpdateStatus(ctx, ref.Kind, ref.ID, to); err != nil {
		return nil, storeError(err, notFound, "failed to update document status")
	}
	doc.Base().Status = to

	return &DecisionResult{
		ID:             ref.String(),
		Type:           string(ref.Kind),
		Action:         string(action),
		PreviousStatus: from,
		Status:         to,
		ApprovedByPM:   workflow.ApprovedByPM(to),
		Message:        ref.Kind.Label() + " " + action.PastTense(),
		Document:       doc,
	}, nil
}

// --- Helpers ---

func transitionError(kind workflow.Kind, action workflow.Action, from string, err error) error {
	if errors.Is(err, workflow.ErrInvalidTransition) {
		return apperror.Conflict(fmt.Sprintf("%s in status %q cannot be %s", kind.Label(), from, action.PastTense()), err)
	}
	return apperror.InvalidInput("invalid request", err)
}

// mirrorDecisionError points the caller at the document a mirror row shadows.
func mirrorDecisionError(e *model.Expense) error {
	msg := "Expense mirrors a billing document; decide the document instead"
	if e.ReferenceID != nil {
		doc := workflow.DocumentRef{Kind: workflow.Kind(e.Type), ID: *e.ReferenceID}
		msg = "Expense mirrors " + doc.String() + "; decide " + doc.String() + " instead"
	}
	return apperror.InvalidInput(msg, nil)
}

func expenseQueueItem(e *model.Expense) QueueItem {
	projectID := e.ProjectID
	item := QueueItem{
		ID:           workflow.ExpenseRef(e.ID).String(),
		Type:         e.Type,
		Amount:       e.Amount.StringFixed(2),
		Description:  e.Description,
		Status:       e.Status,
		ApprovedByPM: e.ApprovedByPM,
		CreatedAt:    e.CreatedAt,
		OriginalID:   e.ID,
		ProjectID:    &projectID,
		ReferenceID:  e.ReferenceID,
		source:       workflow.KindExpense,
	}
	if item.Type == "" {
		item.Type = string(workflow.KindExpense)
	}
	if e.User != nil {
		item.User = &QueueUser{ID: e.User.ID, Name: e.User.Name, Email: e.User.Email}
	}
	if e.Project != nil {
		item.Project = &QueueProject{ID: e.Project.ID, Title: e.Project.Title}
	}
	return item
}

func documentQueueItem(doc model.BillingDocument) QueueItem {
	base := doc.Base()
	item := QueueItem{
		ID:           model.DocumentRefOf(doc).String(),
		Type:         string(doc.Kind()),
		Amount:       base.TotalAmount.StringFixed(2),
		Description:  model.DescribeDocument(doc),
		Status:       base.Status,
		ApprovedByPM: workflow.ApprovedByPM(base.Status),
		CreatedAt:    base.CreatedAt,
		OriginalID:   base.ID,
		ProjectID:    base.ProjectID,
		ReferenceNo:  base.ReferenceNo,
		source:       doc.Kind(),
	}
	switch doc.Kind() {
	case workflow.KindSalesOrder, workflow.KindInvoice:
		item.CustomerName = doc.Counterparty()
	default:
		item.SupplierName = doc.Counterparty()
	}
	if p := model.ProjectOf(doc); p != nil {
		item.Project = &QueueProject{ID: p.ID, Title: p.Title}
	}
	return item
}

var queueKindRank = map[workflow.Kind]int{
	workflow.KindExpense:       0,
	workflow.KindSalesOrder:    1,
	workflow.KindPurchaseOrder: 2,
	workflow.KindInvoice:       3,
	workflow.KindBill:          4,
}

// compareQueueItems orders newest first. Ties fall back to a fixed kind
// order and then to the higher id, so the order is total.
func compareQueueItems(a, b QueueItem) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(queueKindRank[a.source], queueKindRank[b.source]); c != 0 {
		return c
	}
	return cmp.Compare(b.OriginalID, a.OriginalID)
}
