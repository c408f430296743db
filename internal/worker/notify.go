package worker

// ApplicationEventMessage 是通过 Redis Pub/Sub 转发给前端的通知消息。
// 字段名与前端解析保持一致。
type ApplicationEventMessage struct {
	Event         string `json:"event"`
	ApplicationID uint   `json:"application_id"`
	JobID         uint   `json:"job_id"`
	JobTitle      string `json:"job_title"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
