package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oneflow/internal/model"
	"oneflow/internal/repository"
	"oneflow/internal/workflow"
	"oneflow/pkg/apperror"
	"oneflow/pkg/pagination"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

// CreateDocumentRequest covers all four billing kinds. Sales orders and
// invoices take customer_name, purchase orders and bills take supplier_name.
type CreateDocumentRequest struct {
	ReferenceNo     string `json:"reference_no" binding:"required,max=50"`
	Date            string `json:"date" binding:"required,isodate"`
	TotalAmount     string `json:"total_amount" binding:"required,money"`
	CustomerName    string `json:"customer_name" binding:"omitempty,max=255"`
	SupplierName    string `json:"supplier_name" binding:"omitempty,max=255"`
	Description     string `json:"description"`
	ProjectID       *uint  `json:"project_id"`
	SalesOrderID    *uint  `json:"sales_order_id"`
	PurchaseOrderID *uint  `json:"purchase_order_id"`
	Status          string `json:"status"`
}

// UpdateDocumentRequest changes only the fields that are present.
type UpdateDocumentRequest struct {
	ReferenceNo     *string `json:"reference_no" binding:"omitempty,min=1,max=50"`
	Date            *string `json:"date" binding:"omitempty,isodate"`
	TotalAmount     *string `json:"total_amount" binding:"omitempty,money"`
	CustomerName    *string `json:"customer_name" binding:"omitempty,min=1,max=255"`
	SupplierName    *string `json:"supplier_name" binding:"omitempty,min=1,max=255"`
	Description     *string `json:"description"`
	ProjectID       *uint   `json:"project_id"` // 0 unlinks
	SalesOrderID    *uint   `json:"sales_order_id"`
	PurchaseOrderID *uint   `json:"purchase_order_id"`
	Status          *string `json:"status"`
}

type LinkedOrder struct {
	ID          uint   `json:"id"`
	ReferenceNo string `json:"reference_no"`
}

type DocumentResponse struct {
	ID              uint          `json:"id"`
	QueueID         string        `json:"queue_id"`
	Type            string        `json:"type"`
	ReferenceNo     string        `json:"reference_no"`
	Date            string        `json:"date"`
	CustomerName    string        `json:"customer_name,omitempty"`
	SupplierName    string        `json:"supplier_name,omitempty"`
	Description     string        `json:"description"`
	TotalAmount     string        `json:"total_amount"`
	Status          string        `json:"status"`
	ProjectID       *uint         `json:"project_id"`
	Project         *QueueProject `json:"project,omitempty"`
	SalesOrderID    *uint         `json:"sales_order_id,omitempty"`
	SalesOrder      *LinkedOrder  `json:"sales_order,omitempty"`
	PurchaseOrderID *uint         `json:"purchase_order_id,omitempty"`
	PurchaseOrder   *LinkedOrder  `json:"purchase_order,omitempty"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
}

// --- Interface ---

type BillingService interface {
	Create(ctx context.Context, kind workflow.Kind, actorID uint, req CreateDocumentRequest) (*DocumentResponse, error)
	Get(ctx context.Context, kind workflow.Kind, id uint) (*DocumentResponse, error)
	List(ctx context.Context, kind workflow.Kind, page, limit int) ([]DocumentResponse, int64, error)
	Update(ctx context.Context, kind workflow.Kind, id, actorID uint, req UpdateDocumentRequest) (*DocumentResponse, error)
	Delete(ctx context.Context, kind workflow.Kind, id, actorID uint) error
}

type billingService struct {
	billingRepo repository.BillingRepository
	expenseRepo repository.ExpenseRepository
	projectRepo repository.ProjectRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    Notifier
	log         *zap.Logger
}

func NewBillingService(
	billingRepo repository.BillingRepository,
	expenseRepo repository.ExpenseRepository,
	projectRepo repository.ProjectRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	log *zap.Logger,
) BillingService {
	return &billingService{
		billingRepo: billingRepo,
		expenseRepo: expenseRepo,
		projectRepo: projectRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifierOrNoop(notifier),
		log:         log,
	}
}

// --- Implementation ---

// Create stores a billing document. When it is attached to a project, a
// pending mirror expense is written in the same transaction so the document
// shows up in the project manager queue.
func (s *billingService) Create(ctx context.Context, kind workflow.Kind, actorID uint, req CreateDocumentRequest) (*DocumentResponse, error) {
	if !kind.IsDocument() {
		return nil, apperror.InvalidInput("invalid request", fmt.Errorf("%q is not a billing document kind", kind))
	}

	doc := model.NewDocument(kind)
	base := doc.Base()

	base.ReferenceNo = strings.TrimSpace(req.ReferenceNo)
	if base.ReferenceNo == "" {
		return nil, apperror.InvalidInput("reference_no is required", nil)
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, apperror.InvalidInput("invalid date", fmt.Errorf("expected YYYY-MM-DD, got %q", req.Date))
	}
	base.Date = date

	amount, err := parseMoney(req.TotalAmount)
	if err != nil {
		return nil, apperror.InvalidInput("invalid total_amount", err)
	}
	base.TotalAmount = amount

	counterparty, field := req.CustomerName, "customer_name"
	if !sellsToCustomer(kind) {
		counterparty, field = req.SupplierName, "supplier_name"
	}
	counterparty = strings.TrimSpace(counterparty)
	if counterparty == "" {
		return nil, apperror.InvalidInput(field+" is required", nil)
	}
	doc.SetCounterparty(counterparty)

	base.Status = workflow.InitialStatus(kind)
	if req.Status != "" {
		base.Status = req.Status
	}
	if err := checkStatus(kind, base.Status); err != nil {
		return nil, err
	}

	base.Description = req.Description
	base.ProjectID = req.ProjectID

	if err := s.checkProject(ctx, req.ProjectID); err != nil {
		return nil, err
	}
	if err := s.linkOrder(ctx, doc, req.SalesOrderID, req.PurchaseOrderID); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.billingRepo.Create(txCtx, doc); err != nil {
			return documentWriteError(doc, err)
		}

		if base.ProjectID != nil {
			docID := base.ID
			mirror := &model.Expense{
				UserID:       actorID,
				ProjectID:    *base.ProjectID,
				Amount:       base.TotalAmount,
				Description:  model.DescribeDocument(doc),
				Status:       workflow.ExpensePending,
				ApprovedByPM: false,
				Type:         string(kind),
				ReferenceID:  &docID,
			}
			if err := s.expenseRepo.Create(txCtx, mirror); err != nil {
				return apperror.Persistence("failed to create mirror expense", err)
			}
		}

		return writeAudit(txCtx, s.auditRepo, actorID, model.ActionCreateDocument,
			model.DocumentRefOf(doc).String(), model.DescribeDocument(doc), documentAuditDetails(doc))
	})
	if err != nil {
		s.logFailure("create document", kind, err)
		return nil, err
	}

	s.log.Info("document created",
		zap.String("ref", model.DocumentRefOf(doc).String()),
		zap.String("reference_no", base.ReferenceNo),
		zap.Bool("mirrored", base.ProjectID != nil),
	)
	res := toDocumentResponse(doc)
	s.notifier.Publish(EventDocumentCreated, res)
	return &res, nil
}

func (s *billingService) Get(ctx context.Context, kind workflow.Kind, id uint) (*DocumentResponse, error) {
	if !kind.IsDocument() {
		return nil, apperror.InvalidInput("invalid request", fmt.Errorf("%q is not a billing document kind", kind))
	}
	doc, err := s.billingRepo.FindByID(ctx, kind, id)
	if err != nil {
		return nil, storeError(err, kind.Label()+" not found", "failed to fetch document")
	}
	res := toDocumentResponse(doc)
	return &res, nil
}

func (s *billingService) List(ctx context.Context, kind workflow.Kind, page, limit int) ([]DocumentResponse, int64, error) {
	if !kind.IsDocument() {
		return nil, 0, apperror.InvalidInput("invalid request", fmt.Errorf("%q is not a billing document kind", kind))
	}
	p := pagination.New(page, limit)

	docs, total, err := s.billingRepo.List(ctx, kind, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperror.Persistence("failed to list documents", err)
	}

	res := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		res = append(res, toDocumentResponse(d))
	}
	return res, total, nil
}

func (s *billingService) Update(ctx context.Context, kind workflow.Kind, id, actorID uint, req UpdateDocumentRequest) (*DocumentResponse, error) {
	if !kind.IsDocument() {
		return nil, apperror.InvalidInput("invalid request", fmt.Errorf("%q is not a billing document kind", kind))
	}
	notFound := kind.Label() + " not found"

	doc, err := s.billingRepo.FindByID(ctx, kind, id)
	if err != nil {
		return nil, storeError(err, notFound, "failed to fetch document")
	}
	base := doc.Base()
	previous := base.Status

	if req.ReferenceNo != nil {
		ref := strings.TrimSpace(*req.ReferenceNo)
		if ref == "" {
			return nil, apperror.InvalidInput("reference_no cannot be empty", nil)
		}
		base.ReferenceNo = ref
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			return nil, apperror.InvalidInput("invalid date", fmt.Errorf("expected YYYY-MM-DD, got %q", *req.Date))
		}
		base.Date = date
	}
	if req.TotalAmount != nil {
		amount, err := parseMoney(*req.TotalAmount)
		if err != nil {
			return nil, apperror.InvalidInput("invalid total_amount", err)
		}
		base.TotalAmount = amount
	}
	if name := counterpartyUpdate(kind, req); name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperror.InvalidInput("counterparty name cannot be empty", nil)
		}
		doc.SetCounterparty(strings.TrimSpace(*name))
	}
	if req.Description != nil {
		base.Description = *req.Description
	}
	if req.Status != nil {
		if err := checkStatus(kind, *req.Status); err != nil {
			return nil, err
		}
		base.Status = *req.Status
	}
	switch {
	case req.ProjectID == nil:
	case *req.ProjectID == 0:
		// 0 unlinks the project
		base.ProjectID = nil
	default:
		if err := s.checkProject(ctx, req.ProjectID); err != nil {
			return nil, err
		}
		base.ProjectID = req.ProjectID
	}
	if err := s.linkOrder(ctx, doc, req.SalesOrderID, req.PurchaseOrderID); err != nil {
		return nil, err
	}

	model.DetachRelations(doc)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.billingRepo.Save(txCtx, doc); err != nil {
			return documentWriteError(doc, err)
		}
		details := documentAuditDetails(doc)
		details["previous_status"] = previous
		return writeAudit(txCtx, s.auditRepo, actorID, model.ActionUpdateDocument,
			model.DocumentRefOf(doc).String(), model.DescribeDocument(doc), details)
	})
	if err != nil {
		s.logFailure("update document", kind, err)
		return nil, err
	}

	// reload so changed project or order links come back populated
	if fresh, err := s.billingRepo.FindByID(ctx, kind, id); err == nil {
		doc = fresh
	}
	res := toDocumentResponse(doc)
	s.notifier.Publish(EventDocumentUpdated, res)
	return &res, nil
}

// Delete removes the document together with its mirror expenses.
func (s *billingService) Delete(ctx context.Context, kind workflow.Kind, id, actorID uint) error {
	if !kind.IsDocument() {
		return apperror.InvalidInput("invalid request", fmt.Errorf("%q is not a billing document kind", kind))
	}
	notFound := kind.Label() + " not found"

	doc, err := s.billingRepo.FindByID(ctx, kind, id)
	if err != nil {
		return storeError(err, notFound, "failed to fetch document")
	}
	ref := model.DocumentRefOf(doc)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.DeleteMirrors(txCtx, string(kind), id); err != nil {
			return apperror.Persistence("failed to delete mirror expenses", err)
		}
		if err := s.billingRepo.Delete(txCtx, kind, id); err != nil {
			return storeError(err, notFound, "failed to delete document")
		}
		return writeAudit(txCtx, s.auditRepo, actorID, model.ActionDeleteDocument,
			ref.String(), model.DescribeDocument(doc), map[string]string{"reference_no": doc.Base().ReferenceNo})
	})
	if err != nil {
		s.logFailure("delete document", kind, err)
		return err
	}

	s.log.Info("document deleted", zap.String("ref", ref.String()))
	s.notifier.Publish(EventDocumentDeleted, map[string]string{"id": ref.String(), "type": string(kind)})
	return nil
}

// --- Helpers ---

func (s *billingService) checkProject(ctx context.Context, projectID *uint) error {
	if projectID == nil {
		return nil
	}
	if _, err := s.projectRepo.FindByID(ctx, *projectID); err != nil {
		return storeError(err, "Project not found", "failed to fetch project")
	}
	return nil
}

// linkOrder attaches the originating order of an invoice or bill after
// checking it exists. Other kinds ignore both ids.
func (s *billingService) linkOrder(ctx context.Context, doc model.BillingDocument, salesOrderID, purchaseOrderID *uint) error {
	switch d := doc.(type) {
	case *model.Invoice:
		if salesOrderID == nil {
			return nil
		}
		if _, err := s.billingRepo.FindByID(ctx, workflow.KindSalesOrder, *salesOrderID); err != nil {
			return storeError(err, "Sales Order not found", "failed to fetch sales order")
		}
		d.SalesOrderID = salesOrderID
	case *model.Bill:
		if purchaseOrderID == nil {
			return nil
		}
		if _, err := s.billingRepo.FindByID(ctx, workflow.KindPurchaseOrder, *purchaseOrderID); err != nil {
			return storeError(err, "Purchase Order not found", "failed to fetch purchase order")
		}
		d.PurchaseOrderID = purchaseOrderID
	}
	return nil
}

func (s *billingService) logFailure(op string, kind workflow.Kind, err error) {
	if apperror.KindOf(err) == apperror.KindPersistence {
		s.log.Error("failed to "+op, zap.String("kind", string(kind)), zap.Error(err))
	}
}

func documentWriteError(doc model.BillingDocument, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict(fmt.Sprintf("%s with reference_no %q already exists", doc.Kind().Label(), doc.Base().ReferenceNo), err)
	}
	return storeError(err, doc.Kind().Label()+" not found", "failed to save document")
}

func documentAuditDetails(doc model.BillingDocument) map[string]interface{} {
	base := doc.Base()
	return map[string]interface{}{
		"reference_no": base.ReferenceNo,
		"total_amount": base.TotalAmount.StringFixed(2),
		"status":       base.Status,
		"project_id":   base.ProjectID,
	}
}

func sellsToCustomer(kind workflow.Kind) bool {
	return kind == workflow.KindSalesOrder || kind == workflow.KindInvoice
}

func counterpartyUpdate(kind workflow.Kind, req UpdateDocumentRequest) *string {
	if sellsToCustomer(kind) {
		return req.CustomerName
	}
	return req.SupplierName
}

func checkStatus(kind workflow.Kind, status string) error {
	if !workflow.ValidStatus(kind, status) {
		return apperror.InvalidInput("invalid status",
			fmt.Errorf("%q is not one of %s", status, strings.Join(workflow.Statuses(kind), ", ")))
	}
	return nil
}

// parseMoney accepts a non-negative decimal string.
func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a decimal number", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative")
	}
	return d, nil
}

func toDocumentResponse(doc model.BillingDocument) DocumentResponse {
	base := doc.Base()
	res := DocumentResponse{
		ID:          base.ID,
		QueueID:     model.DocumentRefOf(doc).String(),
		Type:        string(doc.Kind()),
		ReferenceNo: base.ReferenceNo,
		Date:        base.Date.Format(dateLayout),
		Description: base.Description,
		TotalAmount: base.TotalAmount.StringFixed(2),
		Status:      base.Status,
		ProjectID:   base.ProjectID,
		CreatedAt:   base.CreatedAt.Format(timeLayout),
		UpdatedAt:   base.UpdatedAt.Format(timeLayout),
	}
	if sellsToCustomer(doc.Kind()) {
		res.CustomerName = doc.Counterparty()
	} else {
		res.SupplierName = doc.Counterparty()
	}
	if p := model.ProjectOf(doc); p != nil {
		res.Project = &QueueProject{ID: p.ID, Title: p.Title}
	}

	switch d := doc.(type) {
	case *model.Invoice:
		res.SalesOrderID = d.SalesOrderID
		if d.SalesOrder != nil {
			res.SalesOrder = &LinkedOrder{ID: d.SalesOrder.ID, ReferenceNo: d.SalesOrder.ReferenceNo}
		}
	case *model.Bill:
		res.PurchaseOrderID = d.PurchaseOrderID
		if d.PurchaseOrder != nil {
			res.PurchaseOrder = &LinkedOrder{ID: d.PurchaseOrder.ID, ReferenceNo: d.PurchaseOrder.ReferenceNo}
		}
	}
	return res
}
