package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/repository"
)

// GormNotificationRepository 是 NotificationRepository 接口的 GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository 创建 GormNotificationRepository 实例
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormNotificationRepository")
	}
	return &GormNotificationRepository{db: db}
}

// Save 保存一条通知，subject_id 冲突时返回 ErrDuplicateEntry
func (r *GormNotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	m, err := newNotificationModel(n)
	if err != nil {
		return fmt.Errorf("gorm: save notification %s: %w", n.ID, err)
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save notification %s: %w", n.ID, err)
	}
	n.CreatedAt = m.CreatedAt
	return nil
}

// ListByUser 按创建时间倒序返回用户的通知
func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list notifications for '%s': %w", userID, err)
	}

	out := make([]domain.Notification, 0, len(models))
	for i := range models {
		n, err := models[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("gorm: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead 标记已读；已读的通知保持原有的 read_at
func (r *GormNotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("gorm: mark notification %s read: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// 没有行被修改：要么已读，要么不存在
	var count int64
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("gorm: count notification %s: %w", id, err)
	}
	if count == 0 {
		return repository.ErrNotificationNotFound
	}
	return nil
}
