package api

import "github.com/gin-gonic/gin"

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), v != 0
	default:
		return 0, false
	}
}
