package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	budgetapp "github.com/aicost/backend/internal/application/budget"
	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/interfaces/http/dto"
)

// BudgetHandler serves the budget lifecycle API
type BudgetHandler struct {
	BaseHandler
	budgetSvc     *budgetapp.BudgetService
	allocationSvc *budgetapp.AllocationService
	periodMgr     *budgetapp.PeriodManager
	calcEngine    *budgetapp.CalculationEngine
}

// NewBudgetHandler creates a budget handler
func NewBudgetHandler(
	budgetSvc *budgetapp.BudgetService,
	allocationSvc *budgetapp.AllocationService,
	periodMgr *budgetapp.PeriodManager,
	calcEngine *budgetapp.CalculationEngine,
) *BudgetHandler {
	return &BudgetHandler{
		budgetSvc:     budgetSvc,
		allocationSvc: allocationSvc,
		periodMgr:     periodMgr,
		calcEngine:    calcEngine,
	}
}

// RegisterRoutes registers the budget routes
func (h *BudgetHandler) RegisterRoutes(rg *gin.RouterGroup) {
	budgets := rg.Group("/budgets")
	{
		budgets.POST("", h.CreateBudget)
		budgets.GET("", h.ListBudgets)
		budgets.GET("/stats", h.GetBudgetStats)
		budgets.GET("/:id", h.GetBudget)
		budgets.PUT("/:id", h.UpdateBudget)
		budgets.PATCH("/:id", h.UpdateBudget)
		budgets.DELETE("/:id", h.DeleteBudget)
		budgets.GET("/:id/periods", h.GetPeriodHistory)
		budgets.POST("/:id/periods", h.RecalculateBudget)
		budgets.GET("/:id/forecast", h.GetForecast)
		budgets.POST("/:id/transfer", h.TransferBudget)
		budgets.POST("/:id/thresholds", h.CreateThreshold)
		budgets.GET("/:id/thresholds", h.GetThresholds)
		budgets.DELETE("/:id/thresholds", h.DeleteThresholdByQuery)
		budgets.DELETE("/:id/thresholds/:thresholdId", h.DeleteThreshold)
		budgets.POST("/:id/thresholds/:thresholdId/acknowledge", h.AcknowledgeThreshold)
		budgets.POST("/:id/adjustments", h.CreateAdjustment)
		budgets.GET("/:id/adjustments", h.GetAdjustments)
	}
	rg.GET("/periods/stats", h.GetPeriodStats)
}

// CreateBudget handles POST /budgets
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req budgetapp.CreateBudgetRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.budgetSvc.CreateBudget(c.Request.Context(), h.OrganizationID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// listBudgetsQuery carries the list query parameters
type listBudgetsQuery struct {
	dto.ListRequest
	Type           string  `form:"type"`
	Status         string  `form:"status"`
	TeamID         string  `form:"team_id"`
	ProjectID      string  `form:"project_id"`
	CostCenterID   string  `form:"cost_center_id"`
	APIKeyID       string  `form:"api_key_id"`
	UserID         string  `form:"user_id"`
	Provider       string  `form:"provider"`
	Model          string  `form:"model"`
	ExceededOnly   bool    `form:"exceeded_only"`
	MinUtilization *string `form:"min_utilization"`
	MaxUtilization *string `form:"max_utilization"`
}

// ListBudgets handles GET /budgets
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	var q listBudgetsQuery
	if !h.BindQuery(c, &q) {
		return
	}

	req, err := q.toRequest()
	if err != nil {
		h.Error(c, dto.ErrCodeBadRequest, err.Error())
		return
	}

	page, err := h.budgetSvc.ListBudgets(c.Request.Context(), h.OrganizationID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize, page.HasMore)
}

func (q *listBudgetsQuery) toRequest() (budgetapp.ListBudgetsRequest, error) {
	var req budgetapp.ListBudgetsRequest
	req.Page = q.Page
	req.PageSize = q.PageSize
	req.OrderBy = q.OrderBy
	req.OrderDir = q.OrderDir
	req.Search = q.Search

	if q.Type != "" {
		t := budget.BudgetType(q.Type)
		req.Type = &t
	}
	if q.Status != "" {
		s := budget.BudgetStatus(q.Status)
		req.Status = &s
	}
	if q.Provider != "" {
		req.Provider = &q.Provider
	}
	if q.Model != "" {
		req.Model = &q.Model
	}

	for _, f := range []struct {
		raw  string
		dest **uuid.UUID
		name string
	}{
		{q.TeamID, &req.TeamID, "team_id"},
		{q.ProjectID, &req.ProjectID, "project_id"},
		{q.CostCenterID, &req.CostCenterID, "cost_center_id"},
		{q.APIKeyID, &req.APIKeyID, "api_key_id"},
		{q.UserID, &req.UserID, "user_id"},
	} {
		if f.raw == "" {
			continue
		}
		id, err := uuid.Parse(f.raw)
		if err != nil {
			return req, &queryParamError{param: f.name}
		}
		*f.dest = &id
	}

	req.ExceededOnly = q.ExceededOnly
	for _, f := range []struct {
		raw  *string
		dest **decimal.Decimal
		name string
	}{
		{q.MinUtilization, &req.MinUtilization, "min_utilization"},
		{q.MaxUtilization, &req.MaxUtilization, "max_utilization"},
	} {
		if f.raw == nil || *f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(*f.raw)
		if err != nil {
			return req, &queryParamError{param: f.name}
		}
		*f.dest = &d
	}
	return req, nil
}

type queryParamError struct {
	param string
}

func (e *queryParamError) Error() string {
	return "invalid " + e.param + " query parameter"
}

// GetBudget handles GET /budgets/:id
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.budgetSvc.GetBudget(c.Request.Context(), h.OrganizationID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateBudget handles PUT and PATCH /budgets/:id
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req budgetapp.UpdateBudgetRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.budgetSvc.UpdateBudget(c.Request.Context(), h.OrganizationID(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeleteBudget handles DELETE /budgets/:id. The default is a soft
// delete; ?hard=true removes the budget and its periods and thresholds
// while adjustments remain for audit.
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	hard := c.Query("hard") == "true"
	if err := h.budgetSvc.DeleteBudget(c.Request.Context(), h.OrganizationID(c), id, hard); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetBudgetStats handles GET /budgets/stats
func (h *BudgetHandler) GetBudgetStats(c *gin.Context) {
	stats, err := h.budgetSvc.GetBudgetStats(c.Request.Context(), h.OrganizationID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// GetPeriodHistory handles GET /budgets/:id/periods
func (h *BudgetHandler) GetPeriodHistory(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	periods, err := h.periodMgr.GetPeriodHistory(c.Request.Context(), h.OrganizationID(c), id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	summaries := make([]*budgetapp.PeriodSummary, len(periods))
	for i, p := range periods {
		summaries[i] = budgetapp.NewPeriodSummary(p)
	}
	h.Success(c, summaries)
}

// RecalculateBudget handles POST /budgets/:id/periods, forcing a spend
// recompute of the current period.
func (h *BudgetHandler) RecalculateBudget(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.calcEngine.RecalculateBudget(c.Request.Context(), h.OrganizationID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, budgetapp.NewPeriodSummary(p))
}

// GetForecast handles GET /budgets/:id/forecast
func (h *BudgetHandler) GetForecast(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	forecast, err := h.calcEngine.CalculateForecast(c.Request.Context(), h.OrganizationID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, forecast)
}

// GetPeriodStats handles GET /periods/stats
func (h *BudgetHandler) GetPeriodStats(c *gin.Context) {
	stats, err := h.periodMgr.GetPeriodStats(c.Request.Context(), h.OrganizationID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// CreateThreshold handles POST /budgets/:id/thresholds
func (h *BudgetHandler) CreateThreshold(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var in budgetapp.ThresholdInput
	if !h.BindJSON(c, &in) {
		return
	}

	resp, err := h.budgetSvc.CreateThreshold(c.Request.Context(), h.OrganizationID(c), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetThresholds handles GET /budgets/:id/thresholds
func (h *BudgetHandler) GetThresholds(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	thresholds, err := h.budgetSvc.GetThresholds(c.Request.Context(), h.OrganizationID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, thresholds)
}

// DeleteThresholdByQuery handles DELETE /budgets/:id/thresholds?threshold_id=
func (h *BudgetHandler) DeleteThresholdByQuery(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	thresholdID, err := uuid.Parse(c.Query("threshold_id"))
	if err != nil {
		h.Error(c, dto.ErrCodeBadRequest, "invalid threshold_id query parameter")
		return
	}

	if err := h.budgetSvc.DeleteThreshold(c.Request.Context(), h.OrganizationID(c), id, thresholdID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// DeleteThreshold handles DELETE /budgets/:id/thresholds/:thresholdId
func (h *BudgetHandler) DeleteThreshold(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	thresholdID, ok := h.ParseUUIDParam(c, "thresholdId")
	if !ok {
		return
	}

	if err := h.budgetSvc.DeleteThreshold(c.Request.Context(), h.OrganizationID(c), id, thresholdID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

type acknowledgeRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// AcknowledgeThreshold handles POST /budgets/:id/thresholds/:thresholdId/acknowledge
func (h *BudgetHandler) AcknowledgeThreshold(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	thresholdID, ok := h.ParseUUIDParam(c, "thresholdId")
	if !ok {
		return
	}

	var req acknowledgeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.budgetSvc.AcknowledgeThreshold(c.Request.Context(), h.OrganizationID(c), id, thresholdID, req.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateAdjustment handles POST /budgets/:id/adjustments
func (h *BudgetHandler) CreateAdjustment(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req budgetapp.CreateAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.BudgetID = id

	resp, err := h.allocationSvc.CreateAdjustment(c.Request.Context(), h.OrganizationID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetAdjustments handles GET /budgets/:id/adjustments
func (h *BudgetHandler) GetAdjustments(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	adjustments, err := h.allocationSvc.GetAdjustments(c.Request.Context(), h.OrganizationID(c), id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, adjustments)
}

// TransferBudget handles POST /budgets/:id/transfer, moving budget out
// of the path budget into to_budget_id.
func (h *BudgetHandler) TransferBudget(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req budgetapp.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.FromBudgetID = id

	resp, err := h.allocationSvc.TransferBudget(c.Request.Context(), h.OrganizationID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
