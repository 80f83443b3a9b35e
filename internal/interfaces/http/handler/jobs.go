package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	budgetapp "github.com/aicost/backend/internal/application/budget"
	"github.com/aicost/backend/internal/interfaces/http/dto"
)

// JobsHandler exposes the lifecycle jobs and alert status endpoints
type JobsHandler struct {
	BaseHandler
	jobsSvc    *budgetapp.JobsService
	checkerSvc *budgetapp.ThresholdChecker
}

// NewJobsHandler creates a jobs handler
func NewJobsHandler(jobsSvc *budgetapp.JobsService, checkerSvc *budgetapp.ThresholdChecker) *JobsHandler {
	return &JobsHandler{
		jobsSvc:    jobsSvc,
		checkerSvc: checkerSvc,
	}
}

// RegisterRoutes registers the jobs and alert routes
func (h *JobsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/budgets/jobs", h.RunJobs)
	rg.GET("/budgets/jobs", h.GetJobStatus)
	rg.GET("/alerts/status", h.GetAlertStatus)
}

type runJobsRequest struct {
	JobType budgetapp.JobType `json:"job_type"`
}

// RunJobs handles POST /budgets/jobs, running the selected lifecycle
// stages for the caller's organization synchronously. An empty or
// omitted job_type runs everything.
func (h *JobsHandler) RunJobs(c *gin.Context) {
	var req runJobsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Error(c, dto.ErrCodeInvalidJSON, "invalid request body")
		return
	}
	if req.JobType != "" && !req.JobType.Valid() {
		h.Error(c, dto.ErrCodeBadRequest, "unknown job_type")
		return
	}

	report := h.jobsSvc.Run(c.Request.Context(), h.OrganizationID(c), req.JobType)
	h.Success(c, report)
}

// GetJobStatus handles GET /budgets/jobs
func (h *JobsHandler) GetJobStatus(c *gin.Context) {
	status, err := h.jobsSvc.GetJobStatus(c.Request.Context(), h.OrganizationID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// GetAlertStatus handles GET /alerts/status
func (h *JobsHandler) GetAlertStatus(c *gin.Context) {
	status, err := h.checkerSvc.GetAlertStatus(c.Request.Context(), h.OrganizationID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}
