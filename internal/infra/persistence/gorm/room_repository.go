package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/repository"
)

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// CreateRoom 在一个事务中写入房间和它的访问列表
func (r *GormRoomRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	m, err := newRoomModel(room)
	if err != nil {
		return fmt.Errorf("gorm: create room %s: %w", room.ID, err)
	}
	// 关联的 Accesses 会随 Create 一起插入
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room %s: %w", room.ID, err)
	}
	room.CreatedAt = m.CreatedAt
	return nil
}

// GetRoom 根据 ID 加载房间及访问列表
func (r *GormRoomRepository) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return r.findRoom(r.db.WithContext(ctx), id)
}

// GetRooms 返回 userID 在访问列表中的全部房间，按创建时间倒序
func (r *GormRoomRepository) GetRooms(ctx context.Context, userID string) ([]domain.Room, error) {
	var models []RoomModel
	sub := r.db.Model(&RoomAccessModel{}).Select("room_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Preload("Accesses").
		Where("id IN (?)", sub).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find rooms for user '%s': %w", userID, err)
	}

	rooms := make([]domain.Room, 0, len(models))
	for i := range models {
		room, err := models[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("gorm: decode room %s: %w", models[i].ID, err)
		}
		rooms = append(rooms, *room)
	}
	return rooms, nil
}

// UpdateRoom 在事务中应用 patch 并返回更新后的房间。
// 房间行加写锁，同一房间上的并发更新按提交顺序生效（后写覆盖）。
func (r *GormRoomRepository) UpdateRoom(ctx context.Context, id string, patch domain.RoomPatch) (*domain.Room, error) {
	var updated *domain.Room
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m RoomModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrRoomNotFound
			}
			return fmt.Errorf("lock room: %w", err)
		}

		if patch.Title != nil {
			if err := tx.Model(&m).Update("title", *patch.Title).Error; err != nil {
				return fmt.Errorf("update title: %w", err)
			}
		}

		for user, perms := range patch.UsersAccesses {
			if perms == nil {
				// nil 表示撤销该用户的全部访问权限
				if err := tx.Where("room_id = ? AND user_id = ?", id, user).Delete(&RoomAccessModel{}).Error; err != nil {
					return fmt.Errorf("revoke access of '%s': %w", user, err)
				}
				continue
			}
			encoded, err := encodePermissions(perms)
			if err != nil {
				return err
			}
			access := RoomAccessModel{RoomID: id, UserID: user, Permissions: encoded}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"permissions"}),
			}).Create(&access).Error
			if err != nil {
				return fmt.Errorf("upsert access of '%s': %w", user, err)
			}
		}

		room, err := r.findRoom(tx, id)
		if err != nil {
			return err
		}
		updated = room
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("gorm: update room %s: %w", id, err)
	}
	return updated, nil
}

// DeleteRoom 删除房间和它的访问列表
func (r *GormRoomRepository) DeleteRoom(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&RoomAccessModel{}).Error; err != nil {
			return fmt.Errorf("gorm: delete accesses of room %s: %w", id, err)
		}
		result := tx.Where("id = ?", id).Delete(&RoomModel{})
		if result.Error != nil {
			return fmt.Errorf("gorm: delete room %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrRoomNotFound
		}
		return nil
	})
}

func (r *GormRoomRepository) findRoom(db *gorm.DB, id string) (*domain.Room, error) {
	var m RoomModel
	err := db.Preload("Accesses").First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %s: %w", id, err)
	}
	room, err := m.toDomain()
	if err != nil {
		return nil, fmt.Errorf("gorm: decode room %s: %w", id, err)
	}
	return room, nil
}
