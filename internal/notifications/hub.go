package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"overthinkistan/internal/middleware"
	"overthinkistan/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
	ErrHubClosed  = errors.New("hub is shutting down")
)

// PostFeed is the websocket hub behind the post event stream. Every client
// receives the feed; authenticated clients also receive their own channel.
type PostFeed struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string]map[*Client]struct{}
	closed  bool
}

// Name returns a human-readable identifier for this hub.
func (h *PostFeed) Name() string { return "post feed" }

// NewPostFeed creates an empty hub.
func NewPostFeed() *PostFeed {
	return &PostFeed{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[string]map[*Client]struct{}),
	}
}

// Register a connection. userRefID may be "" for anonymous listeners.
// Returns the Client or an error if limits are exceeded.
func (h *PostFeed) Register(userRefID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrServerFull
	}
	if userRefID != "" && len(h.byUser[userRefID]) >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userRefID)
	h.clients[client] = struct{}{}
	if userRefID != "" {
		m, ok := h.byUser[userRefID]
		if !ok {
			m = make(map[*Client]struct{})
			h.byUser[userRefID] = m
		}
		m[client] = struct{}{}
	}
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Calling it
// twice is a no-op.
func (h *PostFeed) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if m, ok := h.byUser[client.UserRefID]; ok {
		delete(m, client)
		if len(m) == 0 {
			delete(h.byUser, client.UserRefID)
		}
	}
	close(client.Send)
	observability.WebSocketConnectionsTotal.Dec()
}

// Count returns the number of connected clients.
func (h *PostFeed) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client.
func (h *PostFeed) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// SendToUser sends message to every connection of userRefID.
func (h *PostFeed) SendToUser(userRefID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userRefID] {
		c.TrySend(message)
	}
}

// Dispatch routes a message received on channel to the matching clients.
func (h *PostFeed) Dispatch(channel, payload string) {
	if channel == PostFeedChannel {
		h.BroadcastAll([]byte(payload))
		return
	}
	if ref, ok := userFromChannel(channel); ok {
		h.SendToUser(ref, []byte(payload))
		return
	}
	middleware.Logger.Warn("dropping message on unknown channel", slog.String("channel", channel))
}

// StartWiring connects the Notifier to this hub.
func (h *PostFeed) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, h.Dispatch)
}

// Shutdown closes every send channel; each WritePump then sends the close
// frame and drops its connection.
func (h *PostFeed) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		close(client.Send)
		observability.WebSocketConnectionsTotal.Dec()
	}
	h.clients = make(map[*Client]struct{})
	h.byUser = make(map[string]map[*Client]struct{})
	return nil
}
