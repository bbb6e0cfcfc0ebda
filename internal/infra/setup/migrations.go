package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Index24/live-docs/internal/domain"
	gormpersistence "github.com/Index24/live-docs/internal/infra/persistence/gorm"
)

// MigrateDB 使用传入的 GORM 连接迁移全部表结构。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	// 房间表必须先于访问表创建，外键依赖 rooms.id
	err := db.AutoMigrate(
		&domain.User{},
		&gormpersistence.RoomModel{},
		&gormpersistence.RoomAccessModel{},
		&gormpersistence.NotificationModel{},
	)
	if err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
