package dto

import (
	"time"

	"github.com/Index24/live-docs/internal/domain"
)

// InboxItem 是收件箱中的一条通知
type InboxItem struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	RoomID       string            `json:"roomId"`
	ActivityData map[string]string `json:"activityData"`
	Read         bool              `json:"read"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// NewInboxItems 转换通知列表
func NewInboxItems(notifications []domain.Notification) []InboxItem {
	items := make([]InboxItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, InboxItem{
			ID:           n.ID,
			Kind:         n.Kind,
			RoomID:       n.RoomID,
			ActivityData: n.ActivityData,
			Read:         n.ReadAt != nil,
			CreatedAt:    n.CreatedAt,
		})
	}
	return items
}
