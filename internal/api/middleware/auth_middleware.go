package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobboard/internal/auth"
)

// TokenCookieName 是会话令牌所在的 Cookie。
const TokenCookieName = "token"

const (
	userIDKey  = "userID"
	claimsKey  = "tokenClaims"
	authFailed = "User not authenticated"
)

// TokenValidator 校验会话令牌。
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.TokenClaims, error)
}

// RevocationChecker 判断令牌是否已随退出登录被吊销。
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": authFailed})
}

// AuthMiddleware 校验 Cookie（或 Bearer）中的令牌并将 userID 注入上下文。
func AuthMiddleware(validator TokenValidator, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := authenticate(c, validator, revocations)
		if !ok {
			if !c.IsAborted() {
				abortUnauthorized(c)
			}
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware 令牌有效时注入 userID，否则按匿名请求继续。
func OptionalAuthMiddleware(validator TokenValidator, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := authenticate(c, validator, revocations); ok {
			c.Set(userIDKey, claims.UserID)
			c.Set(claimsKey, claims)
		}
		if !c.IsAborted() {
			c.Next()
		}
	}
}

// ClaimsFromContext 返回当前请求的令牌声明。
func ClaimsFromContext(c *gin.Context) (*auth.TokenClaims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*auth.TokenClaims)
	return claims, ok
}

// TokenFromRequest 优先读取 Cookie，其次读取 Authorization: Bearer。
func TokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(TokenCookieName); err == nil && strings.TrimSpace(token) != "" {
		return token
	}

	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func authenticate(c *gin.Context, validator TokenValidator, revocations RevocationChecker) (*auth.TokenClaims, bool) {
	rawToken := TokenFromRequest(c)
	if rawToken == "" {
		return nil, false
	}

	claims, err := validator.ValidateToken(rawToken)
	if err != nil {
		return nil, false
	}

	if revocations != nil && claims.ID != "" {
		revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			LoggerFromContext(c).Error("token revocation lookup failed", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
			return nil, false
		}
		if revoked {
			return nil, false
		}
	}

	return claims, true
}
