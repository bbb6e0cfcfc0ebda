package gormpersistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Index24/live-docs/internal/domain"
)

// RoomModel 是 rooms 表的持久化结构，访问列表拆分到 room_accesses 表。
type RoomModel struct {
	ID               string            `gorm:"primaryKey;size:64"`
	CreatorID        string            `gorm:"size:191;not null"`
	OwnerEmail       string            `gorm:"size:191;index;not null"`
	Title            string            `gorm:"size:255;not null"`
	DefaultAccesses  string            `gorm:"type:text"` // JSON 数组，保持顺序
	LastConnectionAt *time.Time        `gorm:"index"`
	CreatedAt        time.Time         `gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime"`
	Accesses         []RoomAccessModel `gorm:"foreignKey:RoomID;references:ID;constraint:OnDelete:CASCADE"`
}

func (RoomModel) TableName() string { return "rooms" }

// RoomAccessModel 是 room_accesses 表的一行：某个用户在某个房间上的权限令牌。
type RoomAccessModel struct {
	ID          uint   `gorm:"primaryKey"`
	RoomID      string `gorm:"size:64;not null;uniqueIndex:idx_room_user"`
	UserID      string `gorm:"size:191;not null;uniqueIndex:idx_room_user;index:idx_access_user"`
	Permissions string `gorm:"type:text;not null"` // JSON 数组
}

func (RoomAccessModel) TableName() string { return "room_accesses" }

// NotificationModel 是 inbox_notifications 表的持久化结构。
type NotificationModel struct {
	ID           string     `gorm:"primaryKey;size:64"`
	UserID       string     `gorm:"size:191;not null;index:idx_inbox_user_created,priority:1"`
	Kind         string     `gorm:"size:64;not null"`
	SubjectID    string     `gorm:"size:64;not null;uniqueIndex"` // 同一 subject 只投递一次
	RoomID       string     `gorm:"size:64;index"`
	ActivityData string     `gorm:"type:text"` // JSON 对象
	ReadAt       *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_inbox_user_created,priority:2"`
}

func (NotificationModel) TableName() string { return "inbox_notifications" }

func encodePermissions(perms []domain.Permission) (string, error) {
	if perms == nil {
		perms = []domain.Permission{}
	}
	b, err := json.Marshal(perms)
	if err != nil {
		return "", fmt.Errorf("failed to marshal permissions: %w", err)
	}
	return string(b), nil
}

func decodePermissions(s string) ([]domain.Permission, error) {
	perms := []domain.Permission{}
	if s == "" {
		return perms, nil
	}
	if err := json.Unmarshal([]byte(s), &perms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions %q: %w", s, err)
	}
	return perms, nil
}

// newRoomModel 将 domain.Room 转换为持久化结构。
func newRoomModel(room *domain.Room) (*RoomModel, error) {
	defaults, err := encodePermissions(room.DefaultAccesses)
	if err != nil {
		return nil, err
	}
	m := &RoomModel{
		ID:               room.ID,
		CreatorID:        room.Metadata.CreatorID,
		OwnerEmail:       room.Metadata.Email,
		Title:            room.Metadata.Title,
		DefaultAccesses:  defaults,
		LastConnectionAt: room.LastConnectionAt,
	}
	for user, perms := range room.UsersAccesses {
		encoded, err := encodePermissions(perms)
		if err != nil {
			return nil, err
		}
		m.Accesses = append(m.Accesses, RoomAccessModel{RoomID: room.ID, UserID: user, Permissions: encoded})
	}
	return m, nil
}

// toDomain 将持久化结构转换为 domain.Room。
func (m *RoomModel) toDomain() (*domain.Room, error) {
	defaults, err := decodePermissions(m.DefaultAccesses)
	if err != nil {
		return nil, err
	}
	room := &domain.Room{
		ID: m.ID,
		Metadata: domain.RoomMetadata{
			CreatorID: m.CreatorID,
			Email:     m.OwnerEmail,
			Title:     m.Title,
		},
		UsersAccesses:    make(map[string][]domain.Permission, len(m.Accesses)),
		DefaultAccesses:  defaults,
		CreatedAt:        m.CreatedAt,
		LastConnectionAt: m.LastConnectionAt,
	}
	for _, a := range m.Accesses {
		perms, err := decodePermissions(a.Permissions)
		if err != nil {
			return nil, fmt.Errorf("room %s user %s: %w", m.ID, a.UserID, err)
		}
		room.UsersAccesses[a.UserID] = perms
	}
	return room, nil
}

func newNotificationModel(n *domain.Notification) (*NotificationModel, error) {
	data, err := json.Marshal(n.ActivityData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activity data: %w", err)
	}
	return &NotificationModel{
		ID:           n.ID,
		UserID:       n.UserID,
		Kind:         n.Kind,
		SubjectID:    n.SubjectID,
		RoomID:       n.RoomID,
		ActivityData: string(data),
		ReadAt:       n.ReadAt,
	}, nil
}

func (m *NotificationModel) toDomain() (domain.Notification, error) {
	n := domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Kind:      m.Kind,
		SubjectID: m.SubjectID,
		RoomID:    m.RoomID,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}
	if m.ActivityData != "" {
		if err := json.Unmarshal([]byte(m.ActivityData), &n.ActivityData); err != nil {
			return n, fmt.Errorf("failed to unmarshal activity data of notification %s: %w", m.ID, err)
		}
	}
	return n, nil
}
