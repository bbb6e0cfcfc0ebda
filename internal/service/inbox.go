package service

import (
	"context"
	"errors"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/repository"

	"github.com/sirupsen/logrus"
)

const defaultInboxLimit = 50

// InboxService 负责收件箱通知的落库和查询。
type InboxService struct {
	notificationRepo repository.NotificationRepository
	revalidator      Revalidator
}

// NewInboxService 创建 InboxService 实例。
func NewInboxService(notificationRepo repository.NotificationRepository, revalidator Revalidator) *InboxService {
	if notificationRepo == nil {
		panic("NotificationRepository cannot be nil for InboxService")
	}
	if revalidator == nil {
		panic("Revalidator cannot be nil for InboxService")
	}
	return &InboxService{notificationRepo: notificationRepo, revalidator: revalidator}
}

// Deliver 保存通知并让接收者的收件箱失效。由后台 worker 调用。
func (s *InboxService) Deliver(ctx context.Context, n *domain.Notification) error {
	n.UserID = domain.NormalizeEmail(n.UserID)
	logCtx := logrus.WithFields(logrus.Fields{
		"recipient":  n.UserID,
		"kind":       n.Kind,
		"subject_id": n.SubjectID,
		"room_id":    n.RoomID,
	})
	// 1. 校验接收者
	if n.UserID == "" {
		logCtx.Warn("Inbox notification has no recipient")
		return ErrInvalidInput
	}

	// 2. 落库，subject 重复视为已投递
	if err := s.notificationRepo.Save(ctx, n); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// 任务重试时同一条通知可能被投递两次
			logCtx.Info("Inbox notification already delivered")
			return nil
		}
		logCtx.WithError(err).Error("Failed to save inbox notification")
		return ErrInternalServer
	}

	// 3. 通知收件箱页面刷新
	if err := s.revalidator.Revalidate(ctx, InboxPath(n.UserID)); err != nil {
		logCtx.WithError(err).Warn("Failed to revalidate inbox path")
	}
	logCtx.Info("Inbox notification delivered")
	return nil
}

// GetInbox 返回用户最近的通知。limit <= 0 时使用默认值。
func (s *InboxService) GetInbox(ctx context.Context, email string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	items, err := s.notificationRepo.ListByUser(ctx, email, limit)
	if err != nil {
		logrus.WithField("email", email).WithError(err).Error("Failed to list inbox notifications")
		return nil, ErrInternalServer
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

// MarkRead 将通知标记为已读。
func (s *InboxService) MarkRead(ctx context.Context, email, id string) error {
	logCtx := logrus.WithFields(logrus.Fields{"email": email, "notification_id": id})
	if err := s.notificationRepo.MarkRead(ctx, email, id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			logCtx.Warn("Notification not found")
			return ErrNotificationNotFound
		}
		logCtx.WithError(err).Error("Failed to mark notification as read")
		return ErrInternalServer
	}
	if err := s.revalidator.Revalidate(ctx, InboxPath(email)); err != nil {
		logCtx.WithError(err).Warn("Failed to revalidate inbox path")
	}
	return nil
}
