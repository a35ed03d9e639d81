package handler

import (
	"net/http"

	"oneflow/internal/middleware"
	"oneflow/internal/model"
	"oneflow/internal/service"
	"oneflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExpenseHandler struct {
	expenseService service.ExpenseService
}

func NewExpenseHandler(expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/expenses")
	{
		expenses.POST("", middleware.RequireRole(), h.SubmitExpense)
		expenses.GET("/my", middleware.RequireRole(), h.GetMyExpenses)
		expenses.GET("/pending", middleware.RequireRole(model.RoleAdmin, model.RoleProjectManager), h.GetPendingExpenses)
	}
}

// SubmitExpense handles POST /expenses
// @Summary      Submit expense
// @Description  Files a reimbursement request against a project. It starts pending.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitExpenseRequest  true  "Expense"
// @Success      201      {object}  response.Response{data=service.ExpenseResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/expenses [post]
func (h *ExpenseHandler) SubmitExpense(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.SubmitExpenseRequest
	if !bindJSON(c, &req) {
		return
	}

	expense, err := h.expenseService.Submit(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// GetMyExpenses handles GET /expenses/my
// @Summary      My expenses
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ExpenseResponse}
// @Router       /api/expenses/my [get]
func (h *ExpenseHandler) GetMyExpenses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	expenses, err := h.expenseService.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expenses))
}

// GetPendingExpenses handles GET /expenses/pending
// @Summary      Pending expenses
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ExpenseResponse}
// @Router       /api/expenses/pending [get]
func (h *ExpenseHandler) GetPendingExpenses(c *gin.Context) {
	expenses, err := h.expenseService.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expenses))
}
