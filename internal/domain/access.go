package domain

import (
	"errors"
	"fmt"
)

// Permission 是由房间存储解释的权限令牌，例如 "room:write"。
type Permission string

const (
	PermissionRoomWrite         Permission = "room:write"
	PermissionRoomRead          Permission = "room:read"
	PermissionRoomPresenceWrite Permission = "room:presence:write"
)

// AccessType 是暴露给调用方的访问级别，只有 viewer 和 editor 两个取值。
type AccessType string

const (
	AccessViewer AccessType = "viewer"
	AccessEditor AccessType = "editor"
)

// ErrInvalidAccessType 表示访问级别不在 {viewer, editor} 之内。
var ErrInvalidAccessType = errors.New("invalid access type")

// AccessTypes 按展示顺序返回全部访问级别。
func AccessTypes() []AccessType {
	return []AccessType{AccessViewer, AccessEditor}
}

// ParseAccessType 将字符串解析为 AccessType。
func ParseAccessType(s string) (AccessType, error) {
	switch AccessType(s) {
	case AccessViewer, AccessEditor:
		return AccessType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAccessType, s)
	}
}

// Valid 判断 a 是否为合法的访问级别。
func (a AccessType) Valid() bool {
	return a == AccessViewer || a == AccessEditor
}

// Permissions 返回访问级别对应的权限令牌集合。
// 每次调用都返回新的 slice，调用方可以安全修改。
func (a AccessType) Permissions() []Permission {
	switch a {
	case AccessEditor:
		return []Permission{PermissionRoomWrite}
	case AccessViewer:
		return []Permission{PermissionRoomRead, PermissionRoomPresenceWrite}
	default:
		return nil
	}
}

// Label 返回选择器中展示的文案。
func (a AccessType) Label() string {
	switch a {
	case AccessEditor:
		return "can edit"
	case AccessViewer:
		return "can view"
	default:
		return string(a)
	}
}

// AccessTypeFromPermissions 根据权限令牌反推访问级别：包含写权限即为 editor。
func AccessTypeFromPermissions(perms []Permission) AccessType {
	for _, p := range perms {
		if p == PermissionRoomWrite {
			return AccessEditor
		}
	}
	return AccessViewer
}
