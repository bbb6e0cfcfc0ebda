package service

import (
	"errors"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/repository"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrAccessDenied         = errors.New("user does not have access to this room")
	ErrCannotRemoveOwner    = errors.New("cannot remove the owner of the document")
	ErrInvalidAccessType    = domain.ErrInvalidAccessType
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotificationFailed   = errors.New("access updated but notification could not be delivered")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: email already exists")
	ErrInternalServer       = errors.New("internal server error")
)

// mapRoomRepoError 将房间存储返回的错误映射为服务层错误。
// 上游的网络、鉴权、限流等错误统一视为内部错误。
func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	return ErrInternalServer
}
