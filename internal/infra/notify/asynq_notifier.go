// Package notify 把收件箱通知交给后台队列异步投递。
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/tasks"
)

const (
	notificationQueue    = "critical"
	notificationMaxRetry = 5
)

// TaskEnqueuer 是 asynq.Client 中被使用到的部分
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqNotifier 将通知封装为 asynq 任务入队，由 worker 落库。
type AsynqNotifier struct {
	client TaskEnqueuer
}

// NewAsynqNotifier 创建 AsynqNotifier 实例
func NewAsynqNotifier(client TaskEnqueuer) *AsynqNotifier {
	if client == nil {
		panic("asynq client cannot be nil for AsynqNotifier")
	}
	return &AsynqNotifier{client: client}
}

// TriggerInboxNotification 入队一条通知投递任务。
// 任务 ID 取 SubjectID，重复触发同一 subject 不会产生重复任务。
func (n *AsynqNotifier) TriggerInboxNotification(ctx context.Context, notification domain.Notification) error {
	payload, err := tasks.NewInboxNotificationTask(notification)
	if err != nil {
		return err
	}

	task := asynq.NewTask(tasks.TypeInboxNotification, payload)
	opts := []asynq.Option{
		asynq.Queue(notificationQueue),
		asynq.MaxRetry(notificationMaxRetry),
	}
	if notification.SubjectID != "" {
		opts = append(opts, asynq.TaskID(notification.SubjectID))
	}

	info, err := n.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logrus.WithField("subject_id", notification.SubjectID).Info("Inbox notification already enqueued")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue inbox notification for %s: %w", notification.UserID, err)
	}
	logrus.WithFields(logrus.Fields{
		"task_id":   info.ID,
		"queue":     info.Queue,
		"recipient": notification.UserID,
		"room_id":   notification.RoomID,
	}).Info("Inbox notification enqueued")
	return nil
}
