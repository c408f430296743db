package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobboard/internal/workflow"
)

// ApplicationHandler 把投递流程暴露为 HTTP 接口，业务规则全部在 workflow.Service 中。
type ApplicationHandler struct {
	workflow *workflow.Service
}

// NewApplicationHandler 构造 ApplicationHandler。
func NewApplicationHandler(svc *workflow.Service) *ApplicationHandler {
	return &ApplicationHandler{workflow: svc}
}

type applyRequest struct {
	ResumeLink string `json:"resumeLink"`
}

// Apply 为当前用户投递职位。GET 无请求体；POST 可携带 resumeLink。
func (h *ApplicationHandler) Apply(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req applyRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Invalid request body")
			return
		}
	}

	app, err := h.workflow.Apply(c.Request.Context(), userID, c.Param("id"), req.ResumeLink)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, http.StatusCreated, "Job applied successfully.", gin.H{"application": app})
}

// ListMine 返回当前用户的投递。
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	apps, err := h.workflow.ListByApplicant(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, http.StatusOK, "Applied jobs fetched successfully", gin.H{"applications": apps})
}

// ListForRecruiter 返回当前招聘者所有职位下的投递。
func (h *ApplicationHandler) ListForRecruiter(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	apps, err := h.workflow.ListByRecruiter(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, http.StatusOK, "Recruiter applications fetched successfully", gin.H{"applications": apps})
}

// ListApplicants 返回某职位的投递者。
func (h *ApplicationHandler) ListApplicants(c *gin.Context) {
	apps, err := h.workflow.ListByJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, http.StatusOK, "Applicants fetched successfully", gin.H{"applications": apps})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus 修改投递状态。
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Status is required")
		return
	}

	app, err := h.workflow.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, http.StatusOK, "Application status updated successfully", gin.H{"application": app})
}
