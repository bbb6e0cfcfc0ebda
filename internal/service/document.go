package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HomePath 是文档列表页路径，也是删除文档后的跳转目标。
const HomePath = "/"

// DocumentPath 返回单个文档页面的路径。
func DocumentPath(roomID string) string {
	return "/documents/" + roomID
}

// InboxPath 返回用户收件箱的路径。
func InboxPath(email string) string {
	return "/inbox/" + email
}

// Notifier 负责把通知投递到用户收件箱。
type Notifier interface {
	TriggerInboxNotification(ctx context.Context, n domain.Notification) error
}

// Revalidator 通知展示层某个路径下的缓存数据已经过期。
type Revalidator interface {
	Revalidate(ctx context.Context, path string) error
}

// DocumentService 把应用层的文档操作翻译为对房间存储的调用。
type DocumentService struct {
	roomRepo    repository.RoomRepository
	notifier    Notifier
	revalidator Revalidator
}

// NewDocumentService 创建 DocumentService 实例。
func NewDocumentService(roomRepo repository.RoomRepository, notifier Notifier, revalidator Revalidator) *DocumentService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for DocumentService")
	}
	if notifier == nil {
		panic("Notifier cannot be nil for DocumentService")
	}
	if revalidator == nil {
		panic("Revalidator cannot be nil for DocumentService")
	}
	return &DocumentService{
		roomRepo:    roomRepo,
		notifier:    notifier,
		revalidator: revalidator,
	}
}

// CreateDocument 为 owner 创建一个新的文档房间，owner 拥有写权限。
func (s *DocumentService) CreateDocument(ctx context.Context, ownerID, ownerEmail string) (*domain.Room, error) {
	ownerEmail = domain.NormalizeEmail(ownerEmail)
	logCtx := logrus.WithFields(logrus.Fields{"creator_id": ownerID, "email": ownerEmail})
	if ownerEmail == "" {
		logCtx.Warn("Error creating room: owner email is empty")
		return nil, ErrInvalidInput
	}

	// 1. 构造房间，owner 默认拥有写权限
	room := &domain.Room{
		ID: uuid.NewString(),
		Metadata: domain.RoomMetadata{
			CreatorID: ownerID,
			Email:     ownerEmail,
			Title:     domain.DefaultDocumentTitle,
		},
		UsersAccesses: map[string][]domain.Permission{
			ownerEmail: {domain.PermissionRoomWrite},
		},
		DefaultAccesses: []domain.Permission{},
	}
	logCtx = logCtx.WithField("room_id", room.ID)

	// 2. 持久化
	if err := s.roomRepo.CreateRoom(ctx, room); err != nil {
		logCtx.WithError(err).Error("Error creating room")
		return nil, ErrInternalServer
	}

	// 3. 文档列表页需要刷新
	s.revalidate(ctx, HomePath)
	logCtx.Info("Room created successfully")
	return room, nil
}

// GetDocument 获取房间，要求 userID 出现在房间的访问列表中。
func (s *DocumentService) GetDocument(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	userID = domain.NormalizeEmail(userID)
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Warn("Error getting room")
		return nil, mapRoomRepoError(err)
	}
	if room == nil {
		logCtx.Warn("Error getting room: repository returned nil room without error")
		return nil, ErrRoomNotFound
	}

	if !room.HasAccess(userID) {
		logCtx.Warn("Error getting room: user does not have access to this room")
		return nil, ErrAccessDenied
	}
	return room, nil
}

// GetDocuments 返回 email 拥有访问条目的全部房间。
func (s *DocumentService) GetDocuments(ctx context.Context, email string) ([]domain.Room, error) {
	email = domain.NormalizeEmail(email)
	rooms, err := s.roomRepo.GetRooms(ctx, email)
	if err != nil {
		logrus.WithField("email", email).WithError(err).Error("Error getting rooms")
		return nil, ErrInternalServer
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	return rooms, nil
}

// UpdateDocument 只修改房间元数据中的标题。
func (s *DocumentService) UpdateDocument(ctx context.Context, roomID, title string) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "title": title})
	if strings.TrimSpace(title) == "" {
		logCtx.Warn("Error updating room: title is empty")
		return nil, ErrInvalidInput
	}

	room, err := s.roomRepo.UpdateRoom(ctx, roomID, domain.RoomPatch{Title: &title})
	if err != nil {
		logCtx.WithError(err).Error("Error updating room")
		return nil, mapRoomRepoError(err)
	}

	s.revalidate(ctx, DocumentPath(roomID))
	return room, nil
}

// UpdateDocumentAccess 授予 email 指定的访问级别，成功后向其发送收件箱通知。
//
// 通知只在存储返回了房间时发送。通知投递失败不会回滚访问权限的修改，
// 此时同时返回更新后的房间和包装了 ErrNotificationFailed 的错误。
func (s *DocumentService) UpdateDocumentAccess(ctx context.Context, roomID, email string, accessType domain.AccessType, updatedBy domain.UserInfo) (*domain.Room, error) {
	email = domain.NormalizeEmail(email)
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":    roomID,
		"email":      email,
		"user_type":  accessType,
		"updated_by": updatedBy.Email,
	})
	// 1. 校验输入
	if !accessType.Valid() {
		logCtx.Warn("Error updating room access: invalid access type")
		return nil, ErrInvalidAccessType
	}
	if email == "" {
		logCtx.Warn("Error updating room access: target email is empty")
		return nil, ErrInvalidInput
	}

	// 2. 写入访问列表
	room, err := s.roomRepo.UpdateRoom(ctx, roomID, domain.RoomPatch{
		UsersAccesses: map[string][]domain.Permission{email: accessType.Permissions()},
	})
	if err != nil {
		logCtx.WithError(err).Error("Error updating room access")
		return nil, mapRoomRepoError(err)
	}

	// 3. 通知被授权用户，失败不回滚
	var notifyErr error
	if room != nil {
		n := domain.NewDocumentAccessNotification(uuid.NewString(), email, roomID, accessType, updatedBy)
		if err := s.notifier.TriggerInboxNotification(ctx, n); err != nil {
			logCtx.WithError(err).Error("Error triggering inbox notification")
			notifyErr = fmt.Errorf("%w: %v", ErrNotificationFailed, err)
		}
	} else {
		logCtx.Warn("Room access update returned no room, skipping notification")
	}

	// 4. 刷新文档页
	s.revalidate(ctx, DocumentPath(roomID))
	return room, notifyErr
}

// RemoveCollaborator 撤销 email 对房间的访问权限，房间所有者不能被移除。
func (s *DocumentService) RemoveCollaborator(ctx context.Context, roomID, email string) (*domain.Room, error) {
	email = domain.NormalizeEmail(email)
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "email": email})

	if email == "" {
		logCtx.Warn("Error removing collaborator: email is empty")
		return nil, ErrInvalidInput
	}

	// 1. 读取房间，确认目标不是 owner
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Error removing collaborator")
		return nil, mapRoomRepoError(err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.IsOwner(email) {
		logCtx.Warn("Error removing collaborator: cannot remove the owner of the document")
		return nil, ErrCannotRemoveOwner
	}

	// 2. nil 条目表示撤销
	updated, err := s.roomRepo.UpdateRoom(ctx, roomID, domain.RoomPatch{
		UsersAccesses: map[string][]domain.Permission{email: nil},
	})
	if err != nil {
		logCtx.WithError(err).Error("Error removing collaborator")
		return nil, mapRoomRepoError(err)
	}

	// 3. 刷新文档页
	s.revalidate(ctx, DocumentPath(roomID))
	logCtx.Info("Collaborator removed")
	return updated, nil
}

// DeleteDocument 永久删除房间，返回调用方应跳转的路径。
func (s *DocumentService) DeleteDocument(ctx context.Context, roomID string) (string, error) {
	logCtx := logrus.WithField("room_id", roomID)

	if err := s.roomRepo.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.WithError(err).Warn("Error deleting room: not found")
		} else {
			logCtx.WithError(err).Error("Error deleting room")
		}
		return "", mapRoomRepoError(err)
	}

	s.revalidate(ctx, HomePath)
	logCtx.Info("Room deleted")
	return HomePath, nil
}

// revalidate 发出缓存失效信号。信号发送失败只记录日志，不影响已经提交的操作。
func (s *DocumentService) revalidate(ctx context.Context, path string) {
	if err := s.revalidator.Revalidate(ctx, path); err != nil {
		logrus.WithField("path", path).WithError(err).Warn("Failed to revalidate path")
	}
}
