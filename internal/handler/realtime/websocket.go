// Package realtime exposes a chat session over a WebSocket so a client can
// render thinking, streamed deltas, staged words and audio as they happen.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatHandler "github.com/zhouzirui/z-bots/backend/internal/handler/chat"
	"github.com/zhouzirui/z-bots/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/z-bots/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket聊天处理器
type Handler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 用户输入
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// conn 串行化写操作；gorilla 连接不允许并发写
type conn struct {
	ws        *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *conn) send(msgType string, data any) {
	payload, err := sonic.Marshal(outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Errorf("[realtime] encode %s failed: %v", msgType, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Warnf("[realtime] write %s failed: %v", msgType, err)
	}
}

func (c *conn) sendError(message string) {
	c.send("error", map[string]string{"message": message})
}

// Emit 把会话事件原样转发给客户端
func (c *conn) Emit(e chatservice.Event) {
	c.send("event", e)
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	p, err := h.chatSvc.Persona(r.Context(), sessionID)
	if err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("[realtime] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	log.Infof("[realtime] new connection for session=%s persona=%s", sessionID, p.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws, sessionID: sessionID}

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, ws)

	c.send("connected", map[string]any{
		"persona": p.ID,
		"variant": p.Variant,
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("[realtime] read error session=%s: %v", sessionID, err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session mismatch")
			continue
		}
		h.handleMessage(ctx, c, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("invalid text payload")
			return
		}
		if strings.TrimSpace(text.Text) == "" {
			return
		}
		if _, err := h.chatSvc.Submit(ctx, c.sessionID, text.Text, c); err != nil {
			c.sendError(err.Error())
		}
	case "settings":
		var patch chat.SettingsPatch
		if err := json.Unmarshal(msg.Data, &patch); err != nil {
			c.sendError("invalid settings payload")
			return
		}
		settings, err := h.chatSvc.UpdateSettings(ctx, c.sessionID, patch)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.send("settings", settings)
	case "reset":
		if err := h.chatSvc.Reset(ctx, c.sessionID); err != nil {
			c.sendError(err.Error())
			return
		}
		c.send("reset", nil)
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
