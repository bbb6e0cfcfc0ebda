package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/service"
	"github.com/Index24/live-docs/internal/tasks"
)

// NotificationDeliverer 负责通知的最终投递，由 service.InboxService 实现
type NotificationDeliverer interface {
	Deliver(ctx context.Context, n *domain.Notification) error
}

// InboxNotificationHandler 处理收件箱通知投递任务
type InboxNotificationHandler struct {
	deliverer NotificationDeliverer
}

// NewInboxNotificationHandler 创建 Handler 实例
func NewInboxNotificationHandler(deliverer NotificationDeliverer) *InboxNotificationHandler {
	if deliverer == nil {
		panic("NotificationDeliverer cannot be nil for InboxNotificationHandler")
	}
	return &InboxNotificationHandler{deliverer: deliverer}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *InboxNotificationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
	logCtx.Debug("Processing inbox notification task...")

	n, err := tasks.ParseInboxNotificationTask(t.Payload())
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithFields(logrus.Fields{"recipient": n.UserID, "room_id": n.RoomID})

	if err := h.deliverer.Deliver(ctx, &n); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			logCtx.WithError(err).Error("Inbox notification is invalid, not retrying")
			return fmt.Errorf("invalid notification %s: %v: %w", n.SubjectID, err, asynq.SkipRetry)
		}
		logCtx.WithError(err).Error("Failed to deliver inbox notification")
		return fmt.Errorf("failed to deliver notification %s: %w", n.SubjectID, err)
	}

	logCtx.Info("Inbox notification task processed successfully")
	return nil
}
