package dto

import (
	"sort"
	"time"

	"github.com/Index24/live-docs/internal/domain"
)

// UpdateTitleRequest 是修改文档标题的请求体
type UpdateTitleRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

// ShareDocumentRequest 是分享文档的请求体，UserType 为 "viewer" 或 "editor"
type ShareDocumentRequest struct {
	Email    string `json:"email" binding:"required,email"`
	UserType string `json:"userType" binding:"required"`
}

// Collaborator 是文档访问列表中的一项
type Collaborator struct {
	Email    string            `json:"email"`
	UserType domain.AccessType `json:"userType"`
	IsOwner  bool              `json:"isOwner"`
}

// DocumentResponse 是返回给客户端的文档结构
type DocumentResponse struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	CreatorID        string              `json:"creatorId"`
	OwnerEmail       string              `json:"email"`
	UsersAccesses    map[string][]string `json:"usersAccesses"`
	DefaultAccesses  []string            `json:"defaultAccesses"`
	Collaborators    []Collaborator      `json:"collaborators"`
	CurrentUserType  domain.AccessType   `json:"currentUserType,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	LastConnectionAt *time.Time          `json:"lastConnectionAt,omitempty"`
}

// NewDocumentResponse 把房间转换为响应结构，协作者按 owner 优先、email 升序排列。
// currentUser 为空时不计算 CurrentUserType。
func NewDocumentResponse(room *domain.Room, currentUser string) DocumentResponse {
	resp := DocumentResponse{
		ID:               room.ID,
		Title:            room.Metadata.Title,
		CreatorID:        room.Metadata.CreatorID,
		OwnerEmail:       room.Metadata.Email,
		UsersAccesses:    make(map[string][]string, len(room.UsersAccesses)),
		DefaultAccesses:  permissionStrings(room.DefaultAccesses),
		Collaborators:    make([]Collaborator, 0, len(room.UsersAccesses)),
		CreatedAt:        room.CreatedAt,
		LastConnectionAt: room.LastConnectionAt,
	}
	for email, perms := range room.UsersAccesses {
		resp.UsersAccesses[email] = permissionStrings(perms)
		resp.Collaborators = append(resp.Collaborators, Collaborator{
			Email:    email,
			UserType: domain.AccessTypeFromPermissions(perms),
			IsOwner:  room.IsOwner(email),
		})
	}
	sort.Slice(resp.Collaborators, func(i, j int) bool {
		a, b := resp.Collaborators[i], resp.Collaborators[j]
		if a.IsOwner != b.IsOwner {
			return a.IsOwner
		}
		return a.Email < b.Email
	})
	if currentUser != "" {
		if t, ok := room.AccessOf(currentUser); ok {
			resp.CurrentUserType = t
		}
	}
	return resp
}

// NewDocumentListResponse 转换房间列表，空列表返回 [] 而不是 null
func NewDocumentListResponse(rooms []domain.Room, currentUser string) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(rooms))
	for i := range rooms {
		out = append(out, NewDocumentResponse(&rooms[i], currentUser))
	}
	return out
}

func permissionStrings(perms []domain.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}

// ErrorDTO 表示发送给客户端的错误消息
type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
