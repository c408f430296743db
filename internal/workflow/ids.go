package workflow

import (
	"strconv"
	"strings"

	"jobboard/internal/errcode"
)

// ParseID 解析路径中的正整数 ID，what 用于拼接错误消息。
func ParseID(raw, what string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errcode.Invalid(what + " ID is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errcode.Invalid("Invalid " + strings.ToLower(what) + " ID")
	}
	return uint(id), nil
}
