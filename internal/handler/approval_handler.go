package handler

import (
	"net/http"

	"oneflow/internal/middleware"
	"oneflow/internal/model"
	"oneflow/internal/service"
	"oneflow/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ApprovalHandler serves the project manager queue. Its routes live under
// /expenses because the queue grew out of expense review.
type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/expenses")
	approvals.Use(middleware.RequireRole(model.RoleAdmin, model.RoleProjectManager))
	{
		approvals.GET("/pm-expenses", h.ListQueue)
		approvals.GET("/pm-expenses/export", h.ExportQueue)
		approvals.PUT("/:id/pm-approve", h.Decide)
		approvals.PUT("/:id/approve", h.ReviewExpense)
	}
}

// ListQueue returns expenses and billing documents as one list
// @Summary      Approval queue
// @Description  Expenses, sales orders, purchase orders, invoices and bills, newest first
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.QueueItem}
// @Failure      500  {object}  response.Response
// @Router       /api/expenses/pm-expenses [get]
func (h *ApprovalHandler) ListQueue(c *gin.Context) {
	items, err := h.approvalService.ListQueue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ExportQueue streams the queue as an XLSX workbook
// @Summary      Export approval queue
// @Tags         approvals
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200  {file}    file
// @Failure      500  {object}  response.Response
// @Router       /api/expenses/pm-expenses/export [get]
func (h *ApprovalHandler) ExportQueue(c *gin.Context) {
	data, err := h.approvalService.ExportQueue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="pm-expenses.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Decide approves or rejects one queue entry
// @Summary      Approve or reject
// @Description  id is a queue id: so_12, po_3, inv_7, bill_2 or a bare expense number
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Queue ID"
// @Param        payload  body      service.DecisionRequest  true  "approve or reject"
// @Success      200      {object}  response.Response{data=service.DecisionResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/expenses/{id}/pm-approve [put]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.DecisionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.approvalService.Decide(c.Request.Context(), c.Param("id"), req.Action, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ReviewExpense is the older status-based review of a plain expense
// @Summary      Review expense
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                           true  "Expense ID"
// @Param        payload  body      service.ReviewExpenseRequest  true  "approved or rejected"
// @Success      200      {object}  response.Response{data=service.DecisionResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/expenses/{id}/approve [put]
func (h *ApprovalHandler) ReviewExpense(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.ReviewExpenseRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.approvalService.ReviewExpense(c.Request.Context(), c.Param("id"), req.Status, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
