package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kidship/messaging/internal/auth"
	"github.com/kidship/messaging/internal/live"
	"github.com/kidship/messaging/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket connection. It owns a conversation-list
// subscription for the connected user plus one message-stream subscription
// per room the user has open; teardown cancels all of them exactly once,
// on every exit path.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	UserID string
	send   chan []byte

	mu      sync.Mutex
	closed  bool
	convSub *live.Subscription
	streams map[string]*live.Subscription
}

func ServeWS(hub *Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateToken(token, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}

		client := &Client{
			hub:     hub,
			conn:    conn,
			UserID:  claims.UserID,
			send:    make(chan []byte, 256),
			streams: make(map[string]*live.Subscription),
		}
		client.openConversationList()

		hub.register <- client
		go client.writePump()
		go client.readPump()
	}
}

// openConversationList starts the live conversation feed for this
// connection; every change pushes the full list.
func (c *Client) openConversationList() {
	userID := c.UserID
	c.convSub = c.hub.Service.SubscribeConversations(userID, func(list []models.Conversation) {
		data, err := NewWSMessage(TypeConversationsUpdate, ConversationsUpdatePayload{Conversations: list})
		if err != nil {
			return
		}
		c.trySend(data)
	})
}

// trySend drops the payload when the connection's buffer is full or the
// client is already torn down. Subscriptions outlive broker dispatch by a
// beat, so a late callback must never hit a closed channel.
func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// teardown cancels every live subscription held by this connection and
// closes the send channel. Safe to call once per client; the hub guards
// against double calls by removing the client from its registry first.
func (c *Client) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.convSub != nil {
		c.convSub.Cancel()
	}
	for id, sub := range c.streams {
		sub.Cancel()
		delete(c.streams, id)
	}
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.hub.Redis != nil {
			if err := live.RefreshPresence(c.hub.Redis, c.UserID); err != nil {
				slog.Error("failed to refresh presence", "user_id", c.UserID, "error", err)
			}
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("ws read error", "error", err, "user_id", c.UserID)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Type {
	case TypeConversationOpen:
		var payload OpenConversationPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		HandleOpenConversation(c, payload)
	case TypeStreamOpen:
		var payload StreamPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		HandleStreamOpen(c, payload)
	case TypeStreamClose:
		var payload StreamPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		HandleStreamClose(c, payload)
	case TypeMessageSend:
		var payload SendMessagePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		HandleSendMessage(c, payload)
	case TypePing:
		data, _ := NewWSMessage(TypePong, nil)
		c.trySend(data)
	}
}
