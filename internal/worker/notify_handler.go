package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"jobboard/internal/database"
	"jobboard/internal/metrics"
	"jobboard/internal/tasks"
)

// Publisher 是发布用户通知所需的 Redis 能力。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotifyHandler 消费投递事件任务，并把通知推送到相关用户的频道。
type NotifyHandler struct {
	db        *gorm.DB
	publisher Publisher
	logger    *slog.Logger
}

// NewNotifyHandler 创建通知任务处理器。
func NewNotifyHandler(db *gorm.DB, publisher Publisher, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{db: db, publisher: publisher, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
// 新投递通知职位发布者，状态变更通知投递者。
func (h *NotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ApplicationEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("task_type", t.Type()),
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("application_id", uint64(payload.ApplicationID)),
	)

	var app database.Application
	if err := h.db.WithContext(ctx).Preload("Job").First(&app, payload.ApplicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("application not found, skipping notification")
			return nil
		}
		log.Error("query application failed", slog.Any("error", err))
		return err
	}
	if app.Job == nil {
		log.Warn("job of application not found, skipping notification")
		return nil
	}

	var recipient uint
	switch t.Type() {
	case tasks.TypeApplicationCreated:
		recipient = app.Job.CreatedByID
	case tasks.TypeApplicationStatusChanged:
		recipient = app.ApplicantID
	default:
		return fmt.Errorf("unexpected task type %q: %w", t.Type(), asynq.SkipRetry)
	}

	msg := ApplicationEventMessage{
		Event:         t.Type(),
		ApplicationID: app.ID,
		JobID:         app.JobID,
		JobTitle:      app.Job.Title,
		Status:        app.Status,
		CorrelationID: payload.CorrelationID,
	}
	if err := h.publish(ctx, recipient, msg); err != nil {
		log.Error("publish notification failed", slog.Any("error", err))
		return err
	}

	metrics.NotificationPublished(t.Type())
	log.Info("notification published", slog.Uint64("recipient_id", uint64(recipient)))
	return nil
}

func (h *NotifyHandler) publish(ctx context.Context, userID uint, msg ApplicationEventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.UserChannel(userID)
	if err := h.publisher.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
