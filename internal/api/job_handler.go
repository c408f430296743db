package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobboard/internal/api/middleware"
	"jobboard/internal/database"
	"jobboard/internal/workflow"
)

// JobHandler 负责职位的发布与查询。职位发布后不可编辑或删除。
type JobHandler struct {
	db *gorm.DB
}

// NewJobHandler 构造 JobHandler。
func NewJobHandler(db *gorm.DB) *JobHandler {
	return &JobHandler{db: db}
}

type postJobRequest struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description" binding:"required"`
	Requirements []string `json:"requirements" binding:"required"`
	Salary       string   `json:"salary" binding:"required"`
	Location     string   `json:"location" binding:"required"`
	JobType      string   `json:"jobType" binding:"required"`
	Experience   *int     `json:"experience" binding:"required,min=0"`
	Position     string   `json:"position" binding:"required"`
	CompanyID    uint     `json:"companyId" binding:"required"`
}

// Post 发布职位，创建者为当前用户。
func (h *JobHandler) Post(c *gin.Context) {
	var req postJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Missing job fields")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var company database.Company
	if err := h.db.WithContext(ctx).Select("id").First(&company, req.CompanyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Company not found")
			return
		}
		logger.Error("load company failed", slog.Any("error", err))
		Internal(c)
		return
	}

	requirements := make([]string, 0, len(req.Requirements))
	for _, r := range req.Requirements {
		if r = strings.TrimSpace(r); r != "" {
			requirements = append(requirements, r)
		}
	}

	job := database.Job{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Requirements: requirements,
		Salary:       req.Salary,
		Location:     req.Location,
		JobType:      req.JobType,
		Experience:   *req.Experience,
		Position:     req.Position,
		CompanyID:    req.CompanyID,
		CreatedByID:  userID,
	}
	if err := h.db.WithContext(ctx).Create(&job).Error; err != nil {
		logger.Error("create job failed", slog.Any("error", err))
		Internal(c)
		return
	}

	logger.Info("job posted", slog.Uint64("job_id", uint64(job.ID)))
	Success(c, http.StatusCreated, "Job posted successfully", gin.H{"job": job})
}

// List 返回职位列表，keyword 对标题和描述做不区分大小写的子串匹配。
func (h *JobHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).
		Preload("Company").
		Preload("CreatedBy").
		Scopes(database.ByNewest)

	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	jobs := []database.Job{}
	if err := query.Find(&jobs).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list jobs failed", slog.Any("error", err))
		Internal(c)
		return
	}

	Success(c, http.StatusOK, "", gin.H{"jobs": jobs})
}

// Get 返回单个职位，附带公司、发布者与投递列表。
func (h *JobHandler) Get(c *gin.Context) {
	id, err := workflow.ParseID(c.Param("id"), "Job")
	if err != nil {
		RespondError(c, err)
		return
	}

	var job database.Job
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Company").
		Preload("CreatedBy").
		Preload("Applications", database.ByNewest).
		Preload("Applications.Applicant").
		First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Job not found")
			return
		}
		middleware.LoggerFromContext(c).Error("load job failed", slog.Any("error", err))
		Internal(c)
		return
	}
	if job.Applications == nil {
		job.Applications = []database.Application{}
	}

	Success(c, http.StatusOK, "", gin.H{"job": job})
}

// CountMine 返回当前用户发布的职位数量。
func (h *JobHandler) CountMine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var total int64
	if err := h.db.WithContext(c.Request.Context()).
		Model(&database.Job{}).
		Where("created_by_id = ?", userID).
		Count(&total).Error; err != nil {
		middleware.LoggerFromContext(c).Error("count jobs failed", slog.Any("error", err))
		Internal(c)
		return
	}

	Success(c, http.StatusOK, "Job count fetched", gin.H{"totalJobs": total})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
