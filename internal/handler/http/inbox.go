package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/dto"
)

// Inbox 是收件箱查询接口，由 service.InboxService 实现
type Inbox interface {
	GetInbox(ctx context.Context, email string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, email, id string) error
}

// InboxHandler 封装了收件箱相关的 HTTP 处理逻辑
type InboxHandler struct {
	inbox Inbox
}

// NewInboxHandler 创建 InboxHandler 实例
func NewInboxHandler(inbox Inbox) *InboxHandler {
	if inbox == nil {
		panic("Inbox cannot be nil for InboxHandler")
	}
	return &InboxHandler{inbox: inbox}
}

// List 返回当前用户的通知，?limit= 可选
func (h *InboxHandler) List(c *gin.Context) {
	_, email, ok := requireUser(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ErrorResponse(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := h.inbox.GetInbox(c.Request.Context(), email, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"notifications": dto.NewInboxItems(items)})
}

// MarkRead 将一条通知标记为已读
func (h *InboxHandler) MarkRead(c *gin.Context) {
	_, email, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), email, c.Param("id")); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
