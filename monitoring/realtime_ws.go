package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventType 事件类型
type EventType string

const (
	PredictionEvent EventType = "prediction"
	HeartbeatEvent  EventType = "heartbeat"
)

// Event 推送给客户端的消息
type Event struct {
	Type       EventType `json:"type"`
	Label      string    `json:"label,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Features   []float64 `json:"features,omitempty"`
	Source     string    `json:"source,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Client WebSocket客户端
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string
}

// PredictionHub 预测事件广播中心
type PredictionHub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewPredictionHub 创建广播中心
func NewPredictionHub() *PredictionHub {
	return &PredictionHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Start 启动广播循环，ctx取消后关闭所有连接
func (h *PredictionHub) Start(ctx context.Context) {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()
	defer zap.S().Info("Prediction hub stopped")
	// 循环退出后register/unregister不再有人消费，用done解除泵的阻塞
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			zap.S().Infof("Client connected: %s (total: %d)", client.clientID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			zap.S().Infof("Client disconnected: %s (total: %d)", client.clientID, total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-heartbeat.C:
			payload, err := json.Marshal(Event{Type: HeartbeatEvent, Timestamp: time.Now()})
			if err == nil {
				h.Broadcast(payload)
			}

		case <-ctx.Done():
			// 关闭所有连接
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// HandleWebSocket 处理WebSocket连接
func (h *PredictionHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		clientID: fmt.Sprintf("client-%d", time.Now().UnixNano()),
	}

	select {
	case h.register <- client:
	case <-h.done:
		// 广播中心已停止，直接断开
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

// Broadcast 广播消息
func (h *PredictionHub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		zap.S().Warn("Broadcast queue is full, dropping message")
	}
}

// BroadcastPrediction 广播一次预测事件
func (h *PredictionHub) BroadcastPrediction(label string, confidence float64, features []float64, source string) {
	payload, err := json.Marshal(Event{
		Type:       PredictionEvent,
		Label:      label,
		Confidence: confidence,
		Features:   features,
		Source:     source,
		Timestamp:  time.Now(),
	})
	if err != nil {
		return
	}
	h.Broadcast(payload)
}

// ClientCount 当前连接数
func (h *PredictionHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump WebSocket写入泵
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				zap.S().Debugf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump WebSocket读取泵：丢弃客户端消息，仅用于感知断开
func (c *Client) readPump(h *PredictionHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Debugf("WebSocket error: %v", err)
			}
			break
		}
	}
}
