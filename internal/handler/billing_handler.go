package handler

import (
	"net/http"

	"oneflow/internal/middleware"
	"oneflow/internal/model"
	"oneflow/internal/service"
	"oneflow/internal/workflow"
	"oneflow/pkg/pagination"
	"oneflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// billingRoutes maps URL segments to document kinds.
var billingRoutes = []struct {
	path string
	kind workflow.Kind
}{
	{"/sales-orders", workflow.KindSalesOrder},
	{"/purchase-orders", workflow.KindPurchaseOrder},
	{"/invoices", workflow.KindInvoice},
	{"/bills", workflow.KindBill},
}

type BillingHandler struct {
	billingService service.BillingService
}

func NewBillingHandler(billingService service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// RegisterRoutes mounts the same CRUD set once per document kind.
func (h *BillingHandler) RegisterRoutes(router *gin.RouterGroup) {
	writers := middleware.RequireRole(model.RoleAdmin, model.RoleProjectManager, model.RoleSalesFinance)
	deleters := middleware.RequireRole(model.RoleAdmin, model.RoleProjectManager)

	for _, r := range billingRoutes {
		group := router.Group(r.path)
		{
			group.GET("", middleware.RequireRole(), h.List(r.kind))
			group.GET("/:id", middleware.RequireRole(), h.Get(r.kind))
			group.POST("", writers, h.Create(r.kind))
			group.PUT("/:id", writers, h.Update(r.kind))
			group.DELETE("/:id", deleters, h.Delete(r.kind))
		}
	}
}

// List returns one page of documents of a kind
// @Summary      List billing documents
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        kind   path      string  true   "Document kind"  Enums(sales-orders, purchase-orders, invoices, bills)
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/{kind} [get]
func (h *BillingHandler) List(kind workflow.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := pagination.Parse(c)

		docs, total, err := h.billingService.List(c.Request.Context(), kind, p.Page, p.Limit)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Paged(http.StatusOK, docs, total, p.Page, p.Limit))
	}
}

// Get returns one document
// @Summary      Get billing document
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true  "Document kind"  Enums(sales-orders, purchase-orders, invoices, bills)
// @Param        id    path      int     true  "Document ID"
// @Success      200   {object}  response.Response{data=service.DocumentResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/{kind}/{id} [get]
func (h *BillingHandler) Get(kind workflow.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}

		doc, err := h.billingService.Get(c.Request.Context(), kind, id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
	}
}

// Create stores a document and, with a project, its pending queue mirror
// @Summary      Create billing document
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        kind     path      string                         true  "Document kind"  Enums(sales-orders, purchase-orders, invoices, bills)
// @Param        payload  body      service.CreateDocumentRequest  true  "Document"
// @Success      201      {object}  response.Response{data=service.DocumentResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/{kind} [post]
func (h *BillingHandler) Create(kind workflow.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req service.CreateDocumentRequest
		if !bindJSON(c, &req) {
			return
		}

		doc, err := h.billingService.Create(c.Request.Context(), kind, actorID, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, response.Success(http.StatusCreated, doc))
	}
}

// Update changes the fields present in the body
// @Summary      Update billing document
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        kind     path      string                         true  "Document kind"  Enums(sales-orders, purchase-orders, invoices, bills)
// @Param        id       path      int                            true  "Document ID"
// @Param        payload  body      service.UpdateDocumentRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.DocumentResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/{kind}/{id} [put]
func (h *BillingHandler) Update(kind workflow.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		actorID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req service.UpdateDocumentRequest
		if !bindJSON(c, &req) {
			return
		}

		doc, err := h.billingService.Update(c.Request.Context(), kind, id, actorID, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
	}
}

// Delete removes a document together with its queue mirrors
// @Summary      Delete billing document
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true  "Document kind"  Enums(sales-orders, purchase-orders, invoices, bills)
// @Param        id    path      int     true  "Document ID"
// @Success      200   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/{kind}/{id} [delete]
func (h *BillingHandler) Delete(kind workflow.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		actorID, ok := currentUserID(c)
		if !ok {
			return
		}

		if err := h.billingService.Delete(c.Request.Context(), kind, id, actorID); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": kind.Label() + " deleted"}))
	}
}
