package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Index24/live-docs/internal/domain"
	"github.com/Index24/live-docs/internal/hub"
	"github.com/Index24/live-docs/internal/middleware"
	"github.com/Index24/live-docs/internal/service"
)

// RoomAccessChecker 校验用户能否访问某个房间，由 service.DocumentService 实现
type RoomAccessChecker interface {
	GetDocument(ctx context.Context, roomID, userID string) (*domain.Room, error)
}

var errInvalidPath = errors.New("invalid revalidation path")

// WebSocketHandler 负责升级失效信号订阅连接并把客户端注册到 Hub
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	rooms    RoomAccessChecker
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
// allowedOrigin 为空或 "*" 时允许任意来源。
func NewWebSocketHandler(h *hub.Hub, rooms RoomAccessChecker, allowedOrigin string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if rooms == nil {
		panic("RoomAccessChecker cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		hub:   h,
		rooms: rooms,
	}
}

// authorizePath 检查 email 能否订阅 path：
// "/" 任何人可订阅，"/inbox/{email}" 只能订阅自己的，"/documents/{id}" 需要房间访问权限。
func (h *WebSocketHandler) authorizePath(ctx context.Context, path, email string) error {
	switch {
	case path == service.HomePath:
		return nil
	case strings.HasPrefix(path, "/inbox/"):
		if path != service.InboxPath(email) {
			return service.ErrAccessDenied
		}
		return nil
	case strings.HasPrefix(path, "/documents/"):
		roomID := strings.TrimPrefix(path, "/documents/")
		if roomID == "" || strings.Contains(roomID, "/") {
			return errInvalidPath
		}
		_, err := h.rooms.GetDocument(ctx, roomID, email)
		return err
	default:
		return errInvalidPath
	}
}

// HandleConnection 处理 /ws/revalidate?path=... 升级请求
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	_, email, ok := middleware.CurrentUser(c)
	if !ok {
		logrus.Warn("WS Handler: User identity not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	email = domain.NormalizeEmail(email)
	path := c.Query("path")
	logCtx := logrus.WithFields(logrus.Fields{"email": email, "path": path})

	if err := h.authorizePath(c.Request.Context(), path, email); err != nil {
		switch {
		case errors.Is(err, errInvalidPath):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			logCtx.WithError(err).Error("WS Handler: Failed to authorize path")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate path"})
		}
		logCtx.WithError(err).Warn("WS Handler: Subscription rejected")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写入了 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, path, email)
	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", Client: client}) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}
	go client.Run()
	logCtx.Info("WS Handler: Client subscribed to revalidation")
}
