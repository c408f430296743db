package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeApplicationCreated       = "application:created"
	TypeApplicationStatusChanged = "application:status_changed"
)

// ApplicationEventPayload 描述一次投递事件所需的最小信息。
type ApplicationEventPayload struct {
	ApplicationID uint   `json:"application_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewApplicationEventTask 构造投递事件任务，eventType 必须是上面的类型之一。
func NewApplicationEventTask(eventType string, applicationID uint, correlationID string) (*asynq.Task, error) {
	switch eventType {
	case TypeApplicationCreated, TypeApplicationStatusChanged:
	default:
		return nil, fmt.Errorf("unknown application event %q", eventType)
	}
	payload, err := json.Marshal(ApplicationEventPayload{
		ApplicationID: applicationID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(eventType, payload), nil
}

type correlationKey struct{}

// WithCorrelationID 把 Correlation ID 放进请求上下文，供入队时带上。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID 从上下文取出 Correlation ID。
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// UserChannel 是推送给某个用户的 Redis Pub/Sub 频道。
func UserChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
