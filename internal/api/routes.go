package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobboard/internal/api/middleware"
	"jobboard/internal/auth"
	"jobboard/internal/workflow"
)

// Deps 汇总路由需要的协作者。可选项为 nil 时对应功能降级：
// 无 RateCounter 不限流，无 Scanner 不扫描，无 Subscriber 不注册 /ws。
type Deps struct {
	DB                    *gorm.DB
	AuthService           *auth.AuthService
	Revocations           TokenRevocations
	RateCounter           RateCounter
	LoginRateLimitPerHour int
	CookieDomain          string
	AllowedOrigins        []string
	Workflow              *workflow.Service
	Storage               ResumeStorage
	Scanner               VirusScanner
	Subscriber            Subscriber
	Logger                *slog.Logger
}

// TokenRevocations 同时提供吊销与查询，由 auth.RevocationStore 实现。
type TokenRevocations interface {
	TokenRevoker
	middleware.RevocationChecker
}

// RegisterRoutes 注册全部业务路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	var revocations middleware.RevocationChecker
	var revoker TokenRevoker
	if deps.Revocations != nil {
		revocations = deps.Revocations
		revoker = deps.Revocations
	}

	requireAuth := middleware.AuthMiddleware(deps.AuthService, revocations)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.AuthService, revocations)

	authHandler := NewAuthHandler(deps.DB, deps.AuthService, revoker, deps.RateCounter, deps.LoginRateLimitPerHour, deps.CookieDomain)
	companyHandler := NewCompanyHandler(deps.DB)
	jobHandler := NewJobHandler(deps.DB)
	applicationHandler := NewApplicationHandler(deps.Workflow)
	profileHandler := NewProfileHandler(deps.DB, deps.Storage, deps.Scanner)

	user := router.Group("/user")
	{
		user.POST("/register", authHandler.Register)
		user.POST("/login", authHandler.Login)
		user.GET("/logout", authHandler.Logout)
		user.POST("/profile/update", requireAuth, authHandler.UpdateAccount)
		user.GET("/me", requireAuth, authHandler.Me)
	}

	company := router.Group("/company")
	{
		company.GET("/all", companyHandler.ListAll)
		company.POST("/register", requireAuth, companyHandler.Register)
		company.GET("/get", requireAuth, companyHandler.ListMine)
		company.GET("/get/:id", requireAuth, companyHandler.Get)
		company.PUT("/update/:id", requireAuth, companyHandler.Update)
	}

	job := router.Group("/job")
	{
		job.POST("/post", requireAuth, jobHandler.Post)
		job.GET("/get", optionalAuth, jobHandler.List)
		job.GET("/get/:id", jobHandler.Get)
		job.GET("/getadminjobs", requireAuth, jobHandler.CountMine)
	}

	application := router.Group("/application")
	application.Use(requireAuth)
	{
		application.GET("/apply/:id", applicationHandler.Apply)
		application.POST("/apply/:id", applicationHandler.Apply)
		application.GET("/get", applicationHandler.ListMine)
		application.GET("/recruiter", applicationHandler.ListForRecruiter)
		application.GET("/applicants/:id", applicationHandler.ListApplicants)
		application.PUT("/status/:id", applicationHandler.UpdateStatus)
	}

	profile := router.Group("/profile")
	profile.Use(requireAuth)
	{
		profile.POST("/create", profileHandler.CreateOrUpdate)
		profile.GET("/me", profileHandler.Me)
		profile.GET("/user/:userId", profileHandler.ByUser)
		profile.DELETE("/delete", profileHandler.Delete)
		profile.POST("/resume", profileHandler.UploadResume)
		profile.GET("/resume/link", profileHandler.ResumeURL)
	}

	if deps.Subscriber != nil {
		wsHandler := NewWsHandler(deps.Subscriber, deps.AuthService, revocations, deps.Logger, deps.AllowedOrigins)
		router.GET("/ws", wsHandler.HandleConnection)
	}
}
