package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"jobboard/internal/api/middleware"
	"jobboard/internal/database"
	"jobboard/internal/storage"
	"jobboard/internal/workflow"
)

const (
	maxResumeBytes     = 5 * 1024 * 1024
	resumeURLExpiry    = 15 * time.Minute
	resumeKeyPrefixFmt = "resumes/%d/"
)

// ResumeStorage 是对象存储的最小子集，便于测试替换。
type ResumeStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// VirusScanner 在上传前扫描文件。
type VirusScanner interface {
	Scan(r io.Reader) error
}

// ProfileHandler 负责求职者资料与简历文件。
type ProfileHandler struct {
	db      *gorm.DB
	storage ResumeStorage
	scanner VirusScanner
}

// NewProfileHandler 构造 ProfileHandler，scanner 为 nil 时跳过扫描。
func NewProfileHandler(db *gorm.DB, storage ResumeStorage, scanner VirusScanner) *ProfileHandler {
	return &ProfileHandler{db: db, storage: storage, scanner: scanner}
}

type profileRequest struct {
	FullName    string   `json:"fullName"`
	Email       string   `json:"email" binding:"omitempty,email"`
	PhoneNumber string   `json:"phoneNumber"`
	Skills      []string `json:"skills"`
	Experience  string   `json:"experience"`
	Education   string   `json:"education"`
	ResumeLink  string   `json:"resumeLink"`
	Bio         string   `json:"bio"`
	Location    string   `json:"location"`
	LinkedIn    string   `json:"linkedin"`
	GitHub      string   `json:"github"`
	Portfolio   string   `json:"portfolio"`
}

// CreateOrUpdate 创建或覆盖当前用户的资料，更新时只覆盖非空字段。
func (h *ProfileHandler) CreateOrUpdate(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid profile fields")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "User not found")
			return
		}
		logger.Error("load user failed", slog.Any("error", err))
		Internal(c)
		return
	}

	patch := database.Profile{
		FullName:    strings.TrimSpace(req.FullName),
		Email:       normalizeEmail(req.Email),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Skills:      req.Skills,
		Experience:  strings.TrimSpace(req.Experience),
		Education:   req.Education,
		ResumeLink:  strings.TrimSpace(req.ResumeLink),
		Bio:         req.Bio,
		Location:    req.Location,
		LinkedIn:    req.LinkedIn,
		GitHub:      req.GitHub,
		Portfolio:   req.Portfolio,
	}

	profile, err := upsertProfile(h.db.WithContext(ctx), user, patch)
	if err != nil {
		logger.Error("upsert profile failed", slog.Any("error", err))
		Internal(c)
		return
	}

	Success(c, http.StatusOK, "Profile updated successfully", gin.H{"profile": profile})
}

// Me 返回当前用户的资料。
func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	h.respondProfile(c, userID)
}

// ByUser 返回指定用户的资料，供招聘者查看求职者。
func (h *ProfileHandler) ByUser(c *gin.Context) {
	userID, err := workflow.ParseID(c.Param("userId"), "User")
	if err != nil {
		RespondError(c, err)
		return
	}
	h.respondProfile(c, userID)
}

func (h *ProfileHandler) respondProfile(c *gin.Context, userID uint) {
	profile, err := findProfile(c.Request.Context(), h.db, userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("load profile failed", slog.Any("error", err))
		Internal(c)
		return
	}
	if profile == nil {
		NotFound(c, "Profile not found")
		return
	}
	Success(c, http.StatusOK, "Profile fetched successfully", gin.H{"profile": profile})
}

// Delete 删除当前用户的资料。
func (h *ProfileHandler) Delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	result := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).Delete(&database.Profile{})
	if result.Error != nil {
		middleware.LoggerFromContext(c).Error("delete profile failed", slog.Any("error", result.Error))
		Internal(c)
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "Profile not found")
		return
	}

	Success(c, http.StatusOK, "Profile deleted successfully", nil)
}

// UploadResume 接收 PDF 简历，扫描后存入对象存储，并把对象 key 写入资料。
func (h *ProfileHandler) UploadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "Resume file is required")
		return
	}
	if fileHeader.Size <= 0 || fileHeader.Size > maxResumeBytes {
		BadRequest(c, "Resume must be between 1 byte and 5 MB")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("open upload failed", slog.Any("error", err))
		Internal(c)
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	if http.DetectContentType(head[:n]) != "application/pdf" {
		BadRequest(c, "Resume must be a PDF")
		return
	}

	if h.scanner != nil {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			logger.Error("rewind upload failed", slog.Any("error", err))
			Internal(c)
			return
		}
		if err := h.scanner.Scan(file); err != nil {
			if errors.Is(err, storage.ErrInfected) {
				BadRequest(c, "Malicious file detected")
				return
			}
			logger.Error("scan resume failed", slog.Any("error", err))
			Internal(c)
			return
		}
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		logger.Error("rewind upload failed", slog.Any("error", err))
		Internal(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "User not found")
			return
		}
		logger.Error("load user failed", slog.Any("error", err))
		Internal(c)
		return
	}

	previous, err := findProfile(ctx, h.db, userID)
	if err != nil {
		logger.Error("load profile failed", slog.Any("error", err))
		Internal(c)
		return
	}

	objectKey := fmt.Sprintf(resumeKeyPrefixFmt+"%s.pdf", userID, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectKey, file, fileHeader.Size, "application/pdf"); err != nil {
		logger.Error("upload resume failed", slog.Any("error", err))
		Internal(c)
		return
	}

	profile, err := upsertProfile(h.db.WithContext(ctx), user, database.Profile{ResumeLink: objectKey})
	if err != nil {
		logger.Error("save resume link failed", slog.Any("error", err))
		_ = h.storage.DeleteObject(ctx, objectKey)
		Internal(c)
		return
	}

	if previous != nil && isOwnResumeKey(userID, previous.ResumeLink) {
		if err := h.storage.DeleteObject(ctx, previous.ResumeLink); err != nil {
			logger.Warn("delete previous resume failed", slog.String("object_key", previous.ResumeLink), slog.Any("error", err))
		}
	}

	logger.Info("resume uploaded", slog.String("object_key", objectKey))
	Success(c, http.StatusCreated, "Resume uploaded successfully", gin.H{"resumeLink": objectKey, "profile": profile})
}

// ResumeURL 返回当前用户简历的可访问地址；对象存储中的简历返回限时链接。
func (h *ProfileHandler) ResumeURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	profile, err := findProfile(ctx, h.db, userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("load profile failed", slog.Any("error", err))
		Internal(c)
		return
	}
	if profile == nil || profile.ResumeLink == "" {
		NotFound(c, "Resume not found")
		return
	}

	if !isOwnResumeKey(userID, profile.ResumeLink) {
		Success(c, http.StatusOK, "", gin.H{"url": profile.ResumeLink})
		return
	}

	url, err := h.storage.GeneratePresignedURL(ctx, profile.ResumeLink, resumeURLExpiry)
	if err != nil {
		middleware.LoggerFromContext(c).Error("presign resume failed", slog.Any("error", err))
		Internal(c)
		return
	}
	Success(c, http.StatusOK, "", gin.H{"url": url})
}

func isOwnResumeKey(userID uint, key string) bool {
	prefix := fmt.Sprintf(resumeKeyPrefixFmt, userID)
	return strings.HasPrefix(key, prefix) && !strings.Contains(key, "..")
}

// findProfile 返回用户资料，不存在时返回 nil。
func findProfile(ctx context.Context, db *gorm.DB, userID uint) (*database.Profile, error) {
	var profile database.Profile
	err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error
	switch {
	case err == nil:
		return &profile, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

// upsertProfile 首次创建时用账号信息补全必填字段，之后只覆盖 patch 中的非空字段。
func upsertProfile(db *gorm.DB, user database.User, patch database.Profile) (*database.Profile, error) {
	var profile database.Profile
	err := db.Where("user_id = ?", user.ID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = database.Profile{
			UserID:      user.ID,
			FullName:    firstNonEmpty(patch.FullName, user.FullName),
			Email:       firstNonEmpty(patch.Email, user.Email),
			PhoneNumber: firstNonEmpty(patch.PhoneNumber, user.PhoneNumber),
			Skills:      patch.Skills,
			Experience:  firstNonEmpty(patch.Experience, "0 years"),
			Education:   patch.Education,
			ResumeLink:  patch.ResumeLink,
			Bio:         patch.Bio,
			Location:    patch.Location,
			LinkedIn:    patch.LinkedIn,
			GitHub:      patch.GitHub,
			Portfolio:   patch.Portfolio,
		}
		if profile.Skills == nil {
			profile.Skills = []string{}
		}
		if err := db.Create(&profile).Error; err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		return &profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	profile.FullName = firstNonEmpty(patch.FullName, profile.FullName)
	profile.Email = firstNonEmpty(patch.Email, profile.Email)
	profile.PhoneNumber = firstNonEmpty(patch.PhoneNumber, profile.PhoneNumber)
	if patch.Skills != nil {
		profile.Skills = patch.Skills
	}
	profile.Experience = firstNonEmpty(patch.Experience, profile.Experience)
	profile.Education = firstNonEmpty(patch.Education, profile.Education)
	profile.ResumeLink = firstNonEmpty(patch.ResumeLink, profile.ResumeLink)
	profile.Bio = firstNonEmpty(patch.Bio, profile.Bio)
	profile.Location = firstNonEmpty(patch.Location, profile.Location)
	profile.LinkedIn = firstNonEmpty(patch.LinkedIn, profile.LinkedIn)
	profile.GitHub = firstNonEmpty(patch.GitHub, profile.GitHub)
	profile.Portfolio = firstNonEmpty(patch.Portfolio, profile.Portfolio)

	if err := db.Save(&profile).Error; err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return &profile, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
