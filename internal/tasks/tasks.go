package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/Index24/live-docs/internal/domain"
)

// 定义任务类型常量
const (
	TypeInboxNotification = "notification:inbox" // 收件箱通知投递任务
)

// InboxNotificationPayload 定义了通知投递任务的数据结构
type InboxNotificationPayload struct {
	Notification domain.Notification `json:"notification"`
}

// NewInboxNotificationTask 序列化通知投递任务的 payload
func NewInboxNotificationTask(n domain.Notification) ([]byte, error) {
	payloadBytes, err := json.Marshal(InboxNotificationPayload{Notification: n})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inbox notification payload: %w", err)
	}
	return payloadBytes, nil
}

// ParseInboxNotificationTask 反序列化通知投递任务的 payload
func ParseInboxNotificationTask(payload []byte) (domain.Notification, error) {
	var p InboxNotificationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.Notification{}, fmt.Errorf("failed to unmarshal inbox notification payload: %w", err)
	}
	return p.Notification, nil
}
