package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/dto"
	"github.com/Index24/live-docs/internal/middleware"
	"github.com/Index24/live-docs/internal/selector"
	"github.com/Index24/live-docs/internal/service"
)

// DocumentGateway 是文档操作的入口，由 service.DocumentService 实现
type DocumentGateway interface {
	CreateDocument(ctx context.Context, ownerID, ownerEmail string) (*domain.Room, error)
	GetDocument(ctx context.Context, roomID, userID string) (*domain.Room, error)
	GetDocuments(ctx context.Context, email string) ([]domain.Room, error)
	UpdateDocument(ctx context.Context, roomID, title string) (*domain.Room, error)
	UpdateDocumentAccess(ctx context.Context, roomID, email string, accessType domain.AccessType, updatedBy domain.UserInfo) (*domain.Room, error)
	RemoveCollaborator(ctx context.Context, roomID, email string) (*domain.Room, error)
	DeleteDocument(ctx context.Context, roomID string) (string, error)
}

// UserDirectory 查询用户资料，用于填充通知中的操作者信息
type UserDirectory interface {
	CurrentUser(ctx context.Context, userID uint) (domain.UserInfo, error)
}

// DocumentHandler 封装了文档相关的 HTTP 处理逻辑
type DocumentHandler struct {
	docs  DocumentGateway
	users UserDirectory
}

// NewDocumentHandler 创建 DocumentHandler 实例
func NewDocumentHandler(docs DocumentGateway, users UserDirectory) *DocumentHandler {
	if docs == nil {
		panic("DocumentGateway cannot be nil for DocumentHandler")
	}
	if users == nil {
		panic("UserDirectory cannot be nil for DocumentHandler")
	}
	return &DocumentHandler{docs: docs, users: users}
}

// requireUser 读取认证信息，失败时已写入响应
func requireUser(c *gin.Context) (uint, string, bool) {
	userID, email, ok := middleware.CurrentUser(c)
	if !ok {
		logrus.Warn("Handler: User identity not found in context")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return 0, "", false
	}
	return userID, domain.NormalizeEmail(email), true
}

// loadRoom 加载房间并检查调用者的访问级别。
// needEditor 要求调用者拥有写权限，needOwner 要求调用者是所有者。
func (h *DocumentHandler) loadRoom(c *gin.Context, email string, needEditor, needOwner bool) (*domain.Room, bool) {
	roomID := c.Param("roomId")
	room, err := h.docs.GetDocument(c.Request.Context(), roomID, email)
	if err != nil {
		HandleServiceError(c, err)
		return nil, false
	}
	if needOwner && !room.IsOwner(email) {
		ErrorResponse(c, http.StatusForbidden, "only the owner can perform this action")
		return nil, false
	}
	if needEditor {
		if t, _ := room.AccessOf(email); t != domain.AccessEditor {
			ErrorResponse(c, http.StatusForbidden, "editor access is required")
			return nil, false
		}
	}
	return room, true
}

// CreateDocument 为当前用户创建新文档
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	userID, email, ok := requireUser(c)
	if !ok {
		return
	}
	room, err := h.docs.CreateDocument(c.Request.Context(), strconv.FormatUint(uint64(userID), 10), email)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Header("Location", service.DocumentPath(room.ID))
	SuccessResponse(c, http.StatusCreated, dto.NewDocumentResponse(room, email))
}

// ListDocuments 返回当前用户可以访问的文档
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	_, email, ok := requireUser(c)
	if !ok {
		return
	}
	rooms, err := h.docs.GetDocuments(c.Request.Context(), email)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"documents": dto.NewDocumentListResponse(rooms, email)})
}

// GetDocument 返回单个文档
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	_, email, ok := requireUser(c)
	if !ok {
		return
	}
	room, ok := h.loadRoom(c, email, false, false)
	if !ok {
		return
	}
	SuccessResponse(c, http.StatusOK, dto.NewDocumentResponse(room, email))
}

// UpdateTitle 修改文档标题，需要写权限
func (h *DocumentHandler) UpdateTitle(c *gin.Context) {
	_, email, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorDTO{Error: "Invalid input", Details: err.Error()})
		return
	}
	if _, ok := h.loadRoom(c, email, true, false); !ok {
		return
	}

	room, err := h.docs.UpdateDocument(c.Request.Context(), c.Param("roomId"), req.Title)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.NewDocumentResponse(room, email))
}

// ShareDocument 授予或修改协作者的访问级别。
// 请求中的 userType 通过访问级别选择器提交，选择器的回调执行实际的授权。
func (h *DocumentHandler) ShareDocument(c *gin.Context) {
	userID, email, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.ShareDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorDTO{Error: "Invalid input", Details: err.Error()})
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	room, ok := h.loadRoom(c, email, true, false)
	if !ok {
		return
	}
	if room.IsOwner(req.Email) {
		ErrorResponse(c, http.StatusConflict, "cannot change the access of the document owner")
		return
	}

	ctx := c.Request.Context()
	logCtx := logrus.WithFields(logrus.Fields{"room_id": room.ID, "email": req.Email, "updated_by": email})

	updatedBy, err := h.users.CurrentUser(ctx, userID)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.ShareDocument: Failed to load user profile, using token identity")
		updatedBy = domain.UserInfo{ID: userID, Email: email}
	}

	initial, found := room.AccessOf(req.Email)
	if !found {
		initial = domain.AccessViewer
	}

	var (
		selected domain.AccessType
		updated  *domain.Room
		opErr    error
	)
	sel := selector.New(initial,
		func(t domain.AccessType) { selected = t },
		func(t domain.AccessType) {
			updated, opErr = h.docs.UpdateDocumentAccess(ctx, room.ID, req.Email, t, updatedBy)
		},
	)
	if err := sel.Select(req.UserType); err != nil {
		HandleServiceError(c, err)
		return
	}

	if opErr != nil {
		if errors.Is(opErr, service.ErrNotificationFailed) && updated != nil {
			logCtx.WithError(opErr).Warn("Handler.ShareDocument: Access granted without notification")
			SuccessResponse(c, http.StatusOK, gin.H{
				"document": dto.NewDocumentResponse(updated, email),
				"userType": selected,
				"warning":  opErr.Error(),
			})
			return
		}
		HandleServiceError(c, opErr)
		return
	}
	if updated == nil {
		// 存储没有返回房间，授权结果未知
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	logCtx.WithField("user_type", selected).Info("Handler.ShareDocument: Access updated")
	SuccessResponse(c, http.StatusOK, gin.H{
		"document": dto.NewDocumentResponse(updated, email),
		"userType": selected,
	})
}

// RemoveCollaborator 移除协作者，需要写权限
func (h *DocumentHandler) RemoveCollaborator(c *gin.Context) {
	_, email, ok := requireUser(c)
	if !ok {
		return
	}
	if _, ok := h.loadRoom(c, email, true, false); !ok {
		return
	}

	target := domain.NormalizeEmail(c.Param("email"))
	room, err := h.docs.RemoveCollaborator(c.Request.Context(), c.Param("roomId"), target)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.NewDocumentResponse(room, email))
}

// DeleteDocument 删除文档并返回跳转目标，仅所有者可以删除
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	_, email, ok := requireUser(c)
	if !ok {
		return
	}
	if _, ok := h.loadRoom(c, email, false, true); !ok {
		return
	}

	redirect, err := h.docs.DeleteDocument(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Header("Location", redirect)
	SuccessResponse(c, http.StatusOK, gin.H{"redirect": redirect})
}

// AccessTypes 返回访问级别选择器的选项
func (h *DocumentHandler) AccessTypes(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, gin.H{"options": selector.Options()})
}
