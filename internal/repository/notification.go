package repository

import (
	"context"

	"github.com/Index24/live-docs/internal/domain"
)

// NotificationRepository 定义了收件箱通知的存储操作。
type NotificationRepository interface {
	// Save 保存通知，ID 为空时由实现生成。
	Save(ctx context.Context, n *domain.Notification) error

	// ListByUser 按创建时间倒序返回用户的通知。
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)

	// MarkRead 将属于 userID 的通知标记为已读，不存在时返回 ErrNotificationNotFound。
	MarkRead(ctx context.Context, userID, id string) error
}
