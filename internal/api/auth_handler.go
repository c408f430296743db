package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobboard/internal/api/middleware"
	"jobboard/internal/auth"
	"jobboard/internal/database"
)

// TokenRevoker 在退出登录时吊销令牌。
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// AuthHandler 处理注册、登录、退出与账号资料。
type AuthHandler struct {
	db                    *gorm.DB
	authService           *auth.AuthService
	revoker               TokenRevoker
	rateCounter           RateCounter
	loginRateLimitPerHour int
	cookieDomain          string
}

// NewAuthHandler 构造认证处理器，rateCounter 为 nil 时不做登录限流。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, revoker TokenRevoker, rateCounter RateCounter, loginRateLimitPerHour int, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		db:                    db,
		authService:           authService,
		revoker:               revoker,
		rateCounter:           rateCounter,
		loginRateLimitPerHour: loginRateLimitPerHour,
		cookieDomain:          cookieDomain,
	}
}

type registerRequest struct {
	FullName    string `json:"fullname" binding:"required,max=128"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phoneNumber" binding:"required,max=32"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	Role        string `json:"role" binding:"required,oneof=student recruiter"`
}

// Register 创建新账号并写入会话 Cookie。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Some field is missing")
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := middleware.LoggerFromContext(c).With(slog.String("email", email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		logger.Info("register conflict: email already exists")
		Conflict(c, "Email already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c)
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c)
		return
	}

	user := database.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        email,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		PasswordHash: hashed,
		Role:         req.Role,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "Email already exists")
			return
		}
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c)
		return
	}

	if !h.issueSession(c, user.ID) {
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	Success(c, http.StatusCreated, "User registered successfully", gin.H{"user": newUserPayload(user, nil)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// Login 校验口令与角色并写入会话 Cookie。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Some field is missing")
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := middleware.LoggerFromContext(c).With(slog.String("email", email))

	if h.loginRateLimited(ctx, c.ClientIP(), email) {
		logger.Warn("login rate limited")
		Error(c, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			BadRequest(c, "Incorrect email or password")
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c)
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		BadRequest(c, "Incorrect email or password")
		return
	}

	if req.Role != user.Role {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"message":    fmt.Sprintf("Account exists but you selected %s role. Please select %s role to login.", req.Role, user.Role),
			"actualRole": user.Role,
		})
		return
	}

	profile, err := findProfile(ctx, h.db, user.ID)
	if err != nil {
		logger.Error("load profile failed", slog.Any("error", err))
		Internal(c)
		return
	}

	if !h.issueSession(c, user.ID) {
		return
	}

	Success(c, http.StatusOK, fmt.Sprintf("Welcome back, %s", user.FullName), gin.H{"user": newUserPayload(user, profile)})
}

// Logout 吊销当前令牌并清除 Cookie，未登录时同样返回成功。
func (h *AuthHandler) Logout(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	if rawToken := middleware.TokenFromRequest(c); rawToken != "" && h.revoker != nil {
		if claims, err := h.authService.ValidateToken(rawToken); err == nil && claims.ExpiresAt != nil {
			if err := h.revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
				logger.Error("logout revoke token failed", slog.Any("error", err))
				Internal(c)
				return
			}
		}
	}

	h.setTokenCookie(c, "", -1)
	Success(c, http.StatusOK, "Logged out successfully", nil)
}

type updateAccountRequest struct {
	FullName    string   `json:"fullname"`
	Email       string   `json:"email" binding:"omitempty,email"`
	PhoneNumber string   `json:"phoneNumber"`
	Bio         string   `json:"bio"`
	Skills      []string `json:"skills"`
	Resume      string   `json:"resume"`
}

// UpdateAccount 更新账号基础字段，bio/skills/resume 写入求职者资料。
func (h *AuthHandler) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
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

	updates := map[string]any{}
	if v := strings.TrimSpace(req.FullName); v != "" {
		updates["full_name"] = v
	}
	if v := normalizeEmail(req.Email); v != "" && v != user.Email {
		updates["email"] = v
	}
	if v := strings.TrimSpace(req.PhoneNumber); v != "" {
		updates["phone_number"] = v
	}

	var profile *database.Profile
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.Bio == "" && req.Skills == nil && req.Resume == "" {
			return nil
		}
		patch := database.Profile{Bio: req.Bio, Skills: req.Skills, ResumeLink: req.Resume}
		saved, err := upsertProfile(tx, user, patch)
		profile = saved
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "Email already exists")
			return
		}
		logger.Error("update account failed", slog.Any("error", err))
		Internal(c)
		return
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).First(&user, user.ID).Error; err != nil {
			logger.Error("reload user failed", slog.Any("error", err))
			Internal(c)
			return
		}
	}

	if profile == nil {
		if profile, err = findProfile(ctx, h.db, user.ID); err != nil {
			logger.Error("load profile failed", slog.Any("error", err))
			Internal(c)
			return
		}
	}

	Success(c, http.StatusOK, "Profile updated successfully", gin.H{"user": newUserPayload(user, profile)})
}

// Me 返回当前登录用户。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c)
			return
		}
		middleware.LoggerFromContext(c).Error("load user failed", slog.Any("error", err))
		Internal(c)
		return
	}

	Success(c, http.StatusOK, "User is authenticated", gin.H{"userId": user.ID, "user": newUserPayload(user, nil)})
}

type userPayload struct {
	database.User
	Profile *database.Profile `json:"profile"`
}

func newUserPayload(user database.User, profile *database.Profile) userPayload {
	return userPayload{User: user, Profile: profile}
}

func (h *AuthHandler) issueSession(c *gin.Context, userID uint) bool {
	token, err := h.authService.GenerateToken(userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate token failed", slog.Any("error", err))
		Internal(c)
		return false
	}
	h.setTokenCookie(c, token, int(h.authService.TokenTTL().Seconds()))
	return true
}

// setTokenCookie 写入会话 Cookie；maxAge < 0 时输出 Max-Age=0 以清除。
func (h *AuthHandler) setTokenCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Domain:   strings.TrimSpace(h.cookieDomain),
	})
}

func (h *AuthHandler) loginRateLimited(ctx context.Context, ip, email string) bool {
	if h.rateCounter == nil || h.loginRateLimitPerHour <= 0 {
		return false
	}
	hits, err := hitWindow(ctx, h.rateCounter, loginWindowKey(ip, email, time.Now()), time.Hour)
	if err != nil {
		return false
	}
	return hits > int64(h.loginRateLimitPerHour)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}
