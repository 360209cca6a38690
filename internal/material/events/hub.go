package events

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 事件类型
const (
	EventConnected      = "connected"
	EventMaterialUpdate = "material_update"
)

// Event SSE 事件
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// MaterialChange 物料写操作成功后推送的内容
type MaterialChange struct {
	DocumentID      string    `json:"document_id"`
	HumanReadableID string    `json:"human_readable_id"`
	VersionNumber   int       `json:"version_number"`
	Status          string    `json:"status"`
	Action          string    `json:"action"`
	By              string    `json:"by"`
	At              time.Time `json:"at"`
}

// Client 一个 SSE 连接
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub 管理所有 SSE 连接
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("SSE client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)),
	)
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("SSE client unregistered",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)),
		)
	}
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 发送给所有连接，缓冲区满的连接直接跳过
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
}

// PublishMaterialChange 广播物料变更，nil Hub 不做任何事
func (h *Hub) PublishMaterialChange(change MaterialChange) {
	if h == nil {
		return
	}
	data, err := json.Marshal(change)
	if err != nil {
		h.logger.Warn("Encode material change failed", zap.Error(err))
		return
	}
	h.Broadcast(Event{EventType: EventMaterialUpdate, Data: string(data)})
}
