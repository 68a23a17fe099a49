// Package realtime pushes notifications to connected WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain/notification"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
)

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

// Authenticator resolves the token a client connects with.
type Authenticator interface {
	Authenticate(token string) (service.Actor, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(token string) (service.Actor, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(token string) (service.Actor, error) { return f(token) }

// Message is the JSON pushed to a client for each notification.
type Message struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type client struct {
	id     string
	userID int64
	send   chan []byte
}

// Hub tracks WebSocket connections per user and fans notifications out to
// them. A client that falls behind by sendBuffer messages is disconnected.
type Hub struct {
	auth    Authenticator
	origins []string
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[int64]map[string]*client
	closed  bool

	done     chan struct{}
	stopOnce sync.Once
	active   sync.WaitGroup
}

// NewHub creates a Hub. origins are the accepted Origin host patterns; an
// empty list accepts same-origin requests only.
func NewHub(auth Authenticator, origins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		auth:    auth,
		origins: origins,
		logger:  logger.With("component", "realtime"),
		clients: make(map[int64]map[string]*client),
		done:    make(chan struct{}),
	}
}

// ServeHTTP upgrades GET /ws?token= and streams the caller's notifications
// until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.Authenticate(r.URL.Query().Get("token"))
	if err != nil {
		middleware.WriteError(w, r, middleware.NewAuthenticationError("invalid or missing token"), h.logger)
		return
	}

	if !h.admit() {
		middleware.WriteError(w, r, middleware.NewServerError(http.StatusServiceUnavailable, "shutting down"), h.logger)
		return
	}
	defer h.active.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{id: uuid.NewString(), userID: actor.UserID, send: make(chan []byte, sendBuffer)}
	h.add(c)
	defer h.remove(c)

	// Clients only listen; CloseRead discards their frames and cancels ctx
	// when the connection drops.
	ctx := conn.CloseRead(r.Context())
	h.logger.Debug("client connected", "client_id", c.id, "user_id", c.userID)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-h.done:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "client too slow")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug("websocket write failed", "client_id", c.id, "error", err)
				return
			}
		}
	}
}

// Publish implements notification.Publisher. Delivery is best effort:
// users with no open connection miss the push but keep the stored
// notification.
func (h *Hub) Publish(_ context.Context, n notification.Notification) {
	data, err := json.Marshal(Message{
		ID:        n.ID(),
		Kind:      string(n.Kind()),
		Message:   n.Message(),
		CreatedAt: n.CreatedAt(),
	})
	if err != nil {
		h.logger.Error("marshal notification", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients[n.UserID()] {
		select {
		case c.send <- data:
		default:
			delete(h.clients[n.UserID()], id)
			close(c.send)
			h.logger.Warn("dropped slow client", "client_id", id, "user_id", n.UserID())
		}
	}
}

// Connected returns how many connections the user has open.
func (h *Hub) Connected(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}

// Close disconnects every client and waits for their handlers to return.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.stopOnce.Do(func() { close(h.done) })
	h.active.Wait()
	return nil
}

// admit counts a new handler unless Close has begun.
func (h *Hub) admit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.active.Add(1)
	return true
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[string]*client)
	}
	h.clients[c.userID][c.id] = c
}

// remove forgets c. Its channel is only closed by Publish, so a client
// dropped there is not closed twice.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[c.userID], c.id)
	if len(h.clients[c.userID]) == 0 {
		delete(h.clients, c.userID)
	}
}

var _ notification.Publisher = (*Hub)(nil)
