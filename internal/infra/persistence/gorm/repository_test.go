package gormpersistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/repository"
)

const (
	ownerEmail  = "owner@example.com"
	editorEmail = "editor@example.com"
	viewerEmail = "viewer@example.com"
)

// newTestDB 打开一个临时 SQLite 库并建表，每个测试独占
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接，事务与普通查询不会争抢文件锁
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&domain.User{}, &RoomModel{}, &RoomAccessModel{}, &NotificationModel{}))
	return db
}

func newStoredRoom(t *testing.T, repo *GormRoomRepository, id, owner string) *domain.Room {
	t.Helper()
	room := &domain.Room{
		ID:              id,
		Metadata:        domain.RoomMetadata{CreatorID: "1", Email: owner, Title: domain.DefaultDocumentTitle},
		UsersAccesses:   map[string][]domain.Permission{owner: domain.AccessEditor.Permissions()},
		DefaultAccesses: []domain.Permission{},
	}
	require.NoError(t, repo.CreateRoom(context.Background(), room))
	return room
}

// --- RoomRepository ---

func TestGormRoomRepository_CreateAndGet(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	created := newStoredRoom(t, repo, "room-1", ownerEmail)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetRoom(ctx, "room-1")

	require.NoError(t, err)
	assert.Equal(t, ownerEmail, got.Metadata.Email)
	assert.Equal(t, domain.DefaultDocumentTitle, got.Metadata.Title)
	assert.Equal(t, map[string][]domain.Permission{ownerEmail: domain.AccessEditor.Permissions()}, got.UsersAccesses)
	assert.Empty(t, got.DefaultAccesses)
}

func TestGormRoomRepository_CreateDuplicateID(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	newStoredRoom(t, repo, "room-1", ownerEmail)

	err := repo.CreateRoom(context.Background(), &domain.Room{
		ID:       "room-1",
		Metadata: domain.RoomMetadata{CreatorID: "2", Email: editorEmail, Title: "Other"},
	})

	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestGormRoomRepository_GetRoomMissing(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))

	room, err := repo.GetRoom(context.Background(), "nope")

	assert.Nil(t, room)
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestGormRoomRepository_GetRoomsFiltersByEmail(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	newStoredRoom(t, repo, "room-owned", ownerEmail)
	newStoredRoom(t, repo, "room-other", editorEmail)
	newStoredRoom(t, repo, "room-shared", editorEmail)
	_, err := repo.UpdateRoom(ctx, "room-shared", domain.RoomPatch{
		UsersAccesses: map[string][]domain.Permission{ownerEmail: domain.AccessViewer.Permissions()},
	})
	require.NoError(t, err)

	rooms, err := repo.GetRooms(ctx, ownerEmail)
	require.NoError(t, err)

	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
		assert.True(t, r.HasAccess(ownerEmail), "room %s", r.ID)
	}
	assert.ElementsMatch(t, []string{"room-owned", "room-shared"}, ids)

	none, err := repo.GetRooms(ctx, viewerEmail)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormRoomRepository_UpdateRoomAccess(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	newStoredRoom(t, repo, "room-1", ownerEmail)
	grant := domain.RoomPatch{UsersAccesses: map[string][]domain.Permission{viewerEmail: domain.AccessViewer.Permissions()}}

	// 1. 授权
	room, err := repo.UpdateRoom(ctx, "room-1", grant)
	require.NoError(t, err)
	access, ok := room.AccessOf(viewerEmail)
	require.True(t, ok)
	assert.Equal(t, domain.AccessViewer, access)

	// 2. 重复授权不产生新行
	_, err = repo.UpdateRoom(ctx, "room-1", grant)
	require.NoError(t, err)
	var rows int64
	require.NoError(t, repo.db.Model(&RoomAccessModel{}).Where("room_id = ? AND user_id = ?", "room-1", viewerEmail).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	// 3. 升级为编辑者会覆盖原有权限
	room, err = repo.UpdateRoom(ctx, "room-1", domain.RoomPatch{
		UsersAccesses: map[string][]domain.Permission{viewerEmail: domain.AccessEditor.Permissions()},
	})
	require.NoError(t, err)
	access, _ = room.AccessOf(viewerEmail)
	assert.Equal(t, domain.AccessEditor, access)

	// 4. nil 条目撤销
	room, err = repo.UpdateRoom(ctx, "room-1", domain.RoomPatch{
		UsersAccesses: map[string][]domain.Permission{viewerEmail: nil},
	})
	require.NoError(t, err)
	assert.False(t, room.HasAccess(viewerEmail))
	assert.True(t, room.HasAccess(ownerEmail))

	got, err := repo.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, room.UsersAccesses, got.UsersAccesses)
}

func TestGormRoomRepository_UpdateRoomTitle(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	newStoredRoom(t, repo, "room-1", ownerEmail)
	title := "Quarterly plan"

	room, err := repo.UpdateRoom(ctx, "room-1", domain.RoomPatch{Title: &title})

	require.NoError(t, err)
	assert.Equal(t, title, room.Metadata.Title)
	assert.Equal(t, ownerEmail, room.Metadata.Email)
	assert.Len(t, room.UsersAccesses, 1)
}

func TestGormRoomRepository_UpdateRoomMissing(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	title := "x"

	room, err := repo.UpdateRoom(context.Background(), "nope", domain.RoomPatch{
		Title:         &title,
		UsersAccesses: map[string][]domain.Permission{viewerEmail: domain.AccessViewer.Permissions()},
	})

	assert.Nil(t, room)
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
	var rows int64
	require.NoError(t, repo.db.Model(&RoomAccessModel{}).Count(&rows).Error)
	assert.Zero(t, rows, "房间不存在时不应写入访问条目")
}

func TestGormRoomRepository_DeleteRoom(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	newStoredRoom(t, repo, "room-1", ownerEmail)
	newStoredRoom(t, repo, "room-2", ownerEmail)

	require.NoError(t, repo.DeleteRoom(ctx, "room-1"))

	_, err := repo.GetRoom(ctx, "room-1")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
	var rows int64
	require.NoError(t, repo.db.Model(&RoomAccessModel{}).Where("room_id = ?", "room-1").Count(&rows).Error)
	assert.Zero(t, rows)

	rooms, err := repo.GetRooms(ctx, ownerEmail)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "room-2", rooms[0].ID)

	assert.ErrorIs(t, repo.DeleteRoom(ctx, "room-1"), repository.ErrRoomNotFound)
}

// --- NotificationRepository ---

func TestGormNotificationRepository_SaveAndList(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	// 直接写入模型以固定 created_at
	for i, subject := range []string{"s-1", "s-2", "s-3"} {
		require.NoError(t, db.Create(&NotificationModel{
			ID:        subject + "-id",
			UserID:    editorEmail,
			Kind:      domain.NotificationKindDocumentAccess,
			SubjectID: subject,
			RoomID:    "room-1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
	n := &domain.Notification{
		UserID:       viewerEmail,
		Kind:         domain.NotificationKindDocumentAccess,
		SubjectID:    "s-viewer",
		RoomID:       "room-1",
		ActivityData: map[string]string{"title": "Plan"},
	}
	require.NoError(t, repo.Save(ctx, n))
	assert.NotEmpty(t, n.ID)

	list, err := repo.ListByUser(ctx, editorEmail, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s-3", list[0].SubjectID)
	assert.Equal(t, "s-2", list[1].SubjectID)

	mine, err := repo.ListByUser(ctx, viewerEmail, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, n.ID, mine[0].ID)
	assert.Equal(t, "Plan", mine[0].ActivityData["title"])
	assert.Nil(t, mine[0].ReadAt)
}

func TestGormNotificationRepository_DuplicateSubject(t *testing.T) {
	repo := NewGormNotificationRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.Notification{UserID: editorEmail, Kind: domain.NotificationKindDocumentAccess, SubjectID: "s-1"}))

	err := repo.Save(ctx, &domain.Notification{UserID: editorEmail, Kind: domain.NotificationKindDocumentAccess, SubjectID: "s-1"})

	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestGormNotificationRepository_MarkRead(t *testing.T) {
	repo := NewGormNotificationRepository(newTestDB(t))
	ctx := context.Background()
	n := &domain.Notification{UserID: editorEmail, Kind: domain.NotificationKindDocumentAccess, SubjectID: "s-1"}
	require.NoError(t, repo.Save(ctx, n))

	require.NoError(t, repo.MarkRead(ctx, editorEmail, n.ID))
	first, err := repo.ListByUser(ctx, editorEmail, 10)
	require.NoError(t, err)
	require.NotNil(t, first[0].ReadAt)

	// 再次标记保持原有的 read_at
	require.NoError(t, repo.MarkRead(ctx, editorEmail, n.ID))
	second, err := repo.ListByUser(ctx, editorEmail, 10)
	require.NoError(t, err)
	assert.True(t, first[0].ReadAt.Equal(*second[0].ReadAt))

	assert.ErrorIs(t, repo.MarkRead(ctx, viewerEmail, n.ID), repository.ErrNotificationNotFound, "他人的通知视为不存在")
	assert.ErrorIs(t, repo.MarkRead(ctx, editorEmail, "missing"), repository.ErrNotificationNotFound)
}

// --- UserRepository ---

func TestGormUserRepository(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()
	user := &domain.User{Name: "Owner", Email: ownerEmail, Password: "hashed"}

	require.NoError(t, repo.Save(ctx, user))
	require.NotZero(t, user.ID)

	byEmail, err := repo.FindByEmail(ctx, ownerEmail)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, ownerEmail, byID.Email)

	err = repo.Save(ctx, &domain.User{Name: "Copy", Email: ownerEmail, Password: "hashed"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	_, err = repo.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
