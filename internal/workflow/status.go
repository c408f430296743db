package workflow

import "strings"

// Status 是投递状态标签。任意状态之间都可以互相切换，没有终态。
type Status string

const (
	StatusPending     Status = "pending"
	StatusApplied     Status = "applied"
	StatusShortlisted Status = "shortlisted"
	StatusRejected    Status = "rejected"
)

// Statuses 列出全部合法状态。
var Statuses = []Status{StatusApplied, StatusShortlisted, StatusRejected, StatusPending}

// ParseStatus 大小写不敏感地匹配合法状态。
func ParseStatus(raw string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range Statuses {
		if candidate == s {
			return s, true
		}
	}
	return "", false
}
