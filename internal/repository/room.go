package repository

import (
	"context"

	"github.com/Index24/live-docs/internal/domain"
)

// RoomRepository 定义了协作房间存储的操作，接口形状与外部协作后端保持一致。
type RoomRepository interface {
	// CreateRoom 创建房间。ID 已存在时返回 ErrDuplicateEntry。
	CreateRoom(ctx context.Context, room *domain.Room) error

	// GetRoom 根据 ID 获取房间，不存在时返回 ErrRoomNotFound。
	GetRoom(ctx context.Context, id string) (*domain.Room, error)

	// GetRooms 返回 userID 拥有访问条目的全部房间。
	GetRooms(ctx context.Context, userID string) ([]domain.Room, error)

	// UpdateRoom 将 patch 应用到房间并返回更新后的房间。
	// 房间不存在时返回 ErrRoomNotFound。
	UpdateRoom(ctx context.Context, id string, patch domain.RoomPatch) (*domain.Room, error)

	// DeleteRoom 永久删除房间及其访问列表，不存在时返回 ErrRoomNotFound。
	DeleteRoom(ctx context.Context, id string) error
}
