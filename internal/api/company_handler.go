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

// CompanyHandler 负责招聘方公司的注册与维护。
type CompanyHandler struct {
	db *gorm.DB
}

// NewCompanyHandler 构造 CompanyHandler。
func NewCompanyHandler(db *gorm.DB) *CompanyHandler {
	return &CompanyHandler{db: db}
}

type registerCompanyRequest struct {
	CompanyName string `json:"companyName"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Location    string `json:"location"`
}

// Register 为当前用户注册公司，公司名全局唯一。
func (h *CompanyHandler) Register(c *gin.Context) {
	var req registerCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CompanyName) == "" {
		BadRequest(c, "Company name is required")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	name := strings.TrimSpace(req.CompanyName)
	logger := middleware.LoggerFromContext(c).With(slog.String("company", name))

	var existing database.Company
	if err := h.db.WithContext(ctx).Where("name = ?", name).Take(&existing).Error; err == nil {
		Conflict(c, "Company already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("company lookup failed", slog.Any("error", err))
		Internal(c)
		return
	}

	company := database.Company{
		Name:        name,
		Description: req.Description,
		Website:     req.Website,
		Location:    req.Location,
		UserID:      userID,
	}
	if err := h.db.WithContext(ctx).Create(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "Company already exists")
			return
		}
		logger.Error("create company failed", slog.Any("error", err))
		Internal(c)
		return
	}

	logger.Info("company registered", slog.Uint64("company_id", uint64(company.ID)))
	Success(c, http.StatusCreated, "Company registered successfully", gin.H{"company": company})
}

// ListMine 返回当前用户的公司。
func (h *CompanyHandler) ListMine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var companies []database.Company
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Scopes(database.ByNewest).
		Find(&companies).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list companies failed", slog.Any("error", err))
		Internal(c)
		return
	}
	if len(companies) == 0 {
		NotFound(c, "No companies found")
		return
	}

	Success(c, http.StatusOK, "", gin.H{"companies": companies})
}

// ListAll 返回全部公司，发布职位时选择用。
func (h *CompanyHandler) ListAll(c *gin.Context) {
	companies := []database.Company{}
	if err := h.db.WithContext(c.Request.Context()).Order("name ASC").Find(&companies).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list all companies failed", slog.Any("error", err))
		Internal(c)
		return
	}
	Success(c, http.StatusOK, "", gin.H{"companies": companies})
}

// Get 返回单个公司。
func (h *CompanyHandler) Get(c *gin.Context) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}
	Success(c, http.StatusOK, "", gin.H{"company": company})
}

type updateCompanyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Website     *string `json:"website"`
	Location    *string `json:"location"`
}

// Update 更新公司信息，只写入请求中出现的字段。
// 不校验归属：任何登录用户持有公司 ID 即可更新。
func (h *CompanyHandler) Update(c *gin.Context) {
	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid company fields")
		return
	}

	company, ok := h.loadCompany(c)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			BadRequest(c, "Company name is required")
			return
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}

	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(company).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				Conflict(c, "Company already exists")
				return
			}
			middleware.LoggerFromContext(c).Error("update company failed", slog.Any("error", err))
			Internal(c)
			return
		}
		if err := h.db.WithContext(ctx).First(company, company.ID).Error; err != nil {
			middleware.LoggerFromContext(c).Error("reload company failed", slog.Any("error", err))
			Internal(c)
			return
		}
	}

	Success(c, http.StatusOK, "Company information updated", gin.H{"company": company})
}

func (h *CompanyHandler) loadCompany(c *gin.Context) (*database.Company, bool) {
	id, err := workflow.ParseID(c.Param("id"), "Company")
	if err != nil {
		RespondError(c, err)
		return nil, false
	}

	var company database.Company
	if err := h.db.WithContext(c.Request.Context()).First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Company not found")
			return nil, false
		}
		middleware.LoggerFromContext(c).Error("load company failed", slog.Any("error", err))
		Internal(c)
		return nil, false
	}
	return &company, true
}
