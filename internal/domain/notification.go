package domain

import (
	"fmt"
	"time"
)

// NotificationKindDocumentAccess 是授予文档访问权限时发送的通知类型。
const NotificationKindDocumentAccess = "$documentAccess"

// Notification 是投递到用户收件箱的一条通知。
type Notification struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"` // 接收者邮箱
	Kind         string            `json:"kind"`
	SubjectID    string            `json:"subjectId"`
	RoomID       string            `json:"roomId"`
	ActivityData map[string]string `json:"activityData"`
	ReadAt       *time.Time        `json:"readAt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// NewDocumentAccessNotification 构造访问权限变更通知。
func NewDocumentAccessNotification(subjectID, recipient, roomID string, accessType AccessType, updatedBy UserInfo) Notification {
	return Notification{
		UserID:    recipient,
		Kind:      NotificationKindDocumentAccess,
		SubjectID: subjectID,
		RoomID:    roomID,
		ActivityData: map[string]string{
			"userType":  string(accessType),
			"title":     fmt.Sprintf("You have been granted %s access to the document by %s", accessType, updatedBy.Name),
			"updatedBy": updatedBy.Name,
			"avatar":    updatedBy.Avatar,
			"email":     updatedBy.Email,
		},
	}
}
