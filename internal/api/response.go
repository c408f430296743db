package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobboard/internal/api/middleware"
	"jobboard/internal/errcode"
)

const serverErrorMessage = "Server Error"

// 所有接口统一返回 {success, message, ...}。
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// Success 写出成功响应，fields 会合并进响应体。
func Success(c *gin.Context, status int, msg string, fields gin.H) {
	body := gin.H{"success": true}
	if msg != "" {
		body["message"] = msg
	}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User not authenticated"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "User not authenticated") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context)               { Error(c, http.StatusInternalServerError, serverErrorMessage) }

// RespondError 把 errcode.Error 映射为 HTTP 响应，内部错误只记录日志，不回显原因。
func RespondError(c *gin.Context, err error) {
	var e *errcode.Error
	if !errors.As(err, &e) {
		middleware.LoggerFromContext(c).Error("unhandled error", slog.Any("error", err))
		Internal(c)
		return
	}

	switch e.Kind {
	case errcode.InvalidRequest:
		BadRequest(c, e.Message)
	case errcode.Unauthenticated:
		Error(c, http.StatusUnauthorized, e.Message)
	case errcode.NotFound:
		NotFound(c, e.Message)
	case errcode.Conflict:
		Conflict(c, e.Message)
	default:
		middleware.LoggerFromContext(c).Error("request failed", slog.Any("error", err))
		Internal(c)
	}
}
