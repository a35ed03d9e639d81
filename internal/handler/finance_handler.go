package handler

import (
	"net/http"

	"oneflow/internal/middleware"
	"oneflow/internal/model"
	"oneflow/internal/service"
	"oneflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type FinanceHandler struct {
	financeService service.FinanceService
}

func NewFinanceHandler(financeService service.FinanceService) *FinanceHandler {
	return &FinanceHandler{financeService: financeService}
}

func (h *FinanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/finance/analytics", middleware.RequireRole(model.RoleAdmin, model.RoleSalesFinance), h.GetAnalytics)
	// gin requires the same wildcard name as the sibling /projects/:id route
	router.GET("/projects/:id/financials", middleware.RequireRole(), h.GetProjectFinancials)
}

// GetAnalytics handles GET /finance/analytics
// @Summary      Finance dashboard
// @Description  Status breakdowns per document kind, six month trends, totals and pending counts
// @Tags         finance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.FinanceAnalytics}
// @Failure      500  {object}  response.Response
// @Router       /api/finance/analytics [get]
func (h *FinanceHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.financeService.Analytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, analytics))
}

// GetProjectFinancials handles GET /projects/:projectId/financials
// @Summary      Project financials
// @Description  Documents and native expenses of one project with a revenue/cost summary
// @Tags         finance
// @Produce      json
// @Security     BearerAuth
// @Param        projectId  path      int  true  "Project ID"
// @Success      200        {object}  response.Response{data=service.ProjectFinancialsResponse}
// @Failure      404        {object}  response.Response
// @Router       /api/projects/{projectId}/financials [get]
func (h *FinanceHandler) GetProjectFinancials(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	res, err := h.financeService.ProjectFinancials(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
