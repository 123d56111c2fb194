package chat

import (
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/kidship/messaging/internal/live"
	"github.com/kidship/messaging/internal/messaging"
)

type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	Service *messaging.Service
	Redis   *redis.Client
}

// NewHub wires the connection registry to the messaging service. The Redis
// client is optional; when nil, presence is tracked only for this instance.
func NewHub(svc *messaging.Service, redisClient *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Service:    svc,
		Redis:      redisClient,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.UserID]; ok {
				old.teardown()
			}
			h.clients[client.UserID] = client
			h.mu.Unlock()
			slog.Info("client connected", "user_id", client.UserID)
			h.setPresence(client.UserID, true)
			h.broadcastPresence(client.UserID, "online")

		case client := <-h.unregister:
			h.mu.Lock()
			existing, ok := h.clients[client.UserID]
			if ok && existing == client {
				delete(h.clients, client.UserID)
				client.teardown()
			}
			h.mu.Unlock()
			// A superseded connection unregisters after its replacement
			// registered; the user is still online, so only the current
			// connection's departure flips presence.
			if ok && existing == client {
				slog.Info("client disconnected", "user_id", client.UserID)
				h.setPresence(client.UserID, false)
				h.broadcastPresence(client.UserID, "offline")
			}
		}
	}
}

func (h *Hub) setPresence(userID string, online bool) {
	if h.Redis == nil {
		return
	}
	var err error
	if online {
		err = live.SetOnline(h.Redis, userID)
	} else {
		err = live.SetOffline(h.Redis, userID)
	}
	if err != nil {
		slog.Error("failed to update presence", "user_id", userID, "error", err)
	}
}

func (h *Hub) broadcastPresence(userID, status string) {
	data, err := NewWSMessage(TypePresenceUpdate, PresenceUpdatePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}
	h.mu.RLock()
	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
	h.mu.RUnlock()
}

// OnlineUserIDs lists the users with a live connection. With Redis the set
// spans every instance; without it only this instance's registry is known.
func (h *Hub) OnlineUserIDs() ([]string, error) {
	if h.Redis != nil {
		return live.GetOnlineUsers(h.Redis)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		client.teardown()
	}
	h.clients = make(map[string]*Client)
}
