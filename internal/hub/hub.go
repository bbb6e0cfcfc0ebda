package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Index24/live-docs/internal/domain"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// 客户端只发送控制帧，限制得很小
	maxMessageSize = 512
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type   string // "register", "unregister"
	Client *Client
}

// Hub 维护按路径订阅的客户端，并把失效信号转发给订阅了该路径的客户端
type Hub struct {
	messageChan chan HubMessage

	// map[path]map[*Client]bool
	paths   map[string]map[*Client]bool
	pathsMu sync.RWMutex
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub() *Hub {
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		paths:       make(map[string]map[*Client]bool),
	}
}

// Run 启动 Hub 的主事件循环，直到 ctx 取消或 events 关闭。
// 应该在一个单独的 goroutine 中运行。
func (h *Hub) Run(ctx context.Context, events <-chan domain.RevalidationEvent) {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			log.Info("Hub is shutting down...")
			return
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			default:
				log.Warnf("Hub: Received unknown message type: %s", msg.Type)
			}
		case event, ok := <-events:
			if !ok {
				log.Warn("Revalidation event stream closed, hub stopping")
				return
			}
			h.dispatch(event)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"path":  client.Path(),
		"email": client.Email(),
	})

	h.pathsMu.Lock()
	if _, ok := h.paths[client.path]; !ok {
		h.paths[client.path] = make(map[*Client]bool)
	}
	h.paths[client.path][client] = true
	h.pathsMu.Unlock()
	logCtx.Info("Client registered to Hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"path":  client.Path(),
		"email": client.Email(),
	})

	h.pathsMu.Lock()
	defer h.pathsMu.Unlock()
	clients, ok := h.paths[client.path]
	if !ok {
		logCtx.Warn("Path not found during client unregister")
		return
	}
	if _, ok := clients[client]; !ok {
		logCtx.Warn("Client not found during unregister")
		return
	}
	delete(clients, client)
	// 关闭 send 通道，WritePump 随之退出
	close(client.send)
	if len(clients) == 0 {
		delete(h.paths, client.path)
	}
	logCtx.Info("Client unregistered from Hub")
}

// dispatch 把事件发给订阅了 event.Path 的全部客户端
func (h *Hub) dispatch(event domain.RevalidationEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("Hub: Failed to marshal revalidation event")
		return
	}

	h.pathsMu.RLock()
	clients := h.paths[event.Path]
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.pathsMu.RUnlock()

	if len(targets) == 0 {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"path":            event.Path,
		"recipient_count": len(targets),
	})
	logCtx.Debug("Dispatching revalidation event")

	for _, c := range targets {
		// 非阻塞发送，慢客户端不拖累其他人
		select {
		case c.send <- message:
		default:
			logCtx.WithField("email", c.Email()).Warn("Client send channel full, revalidation dropped")
		}
	}
}

func (h *Hub) closeAll() {
	h.pathsMu.Lock()
	defer h.pathsMu.Unlock()
	for path, clients := range h.paths {
		for c := range clients {
			close(c.send)
		}
		delete(h.paths, path)
	}
}

// ClientCount 返回订阅 path 的客户端数
func (h *Hub) ClientCount(path string) int {
	h.pathsMu.RLock()
	defer h.pathsMu.RUnlock()
	return len(h.paths[path])
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 队列已满时返回 false。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}
