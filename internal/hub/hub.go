// internal/hub/hub.go
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/auth"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/nuno-online/nuno/internal/middleware"
	"github.com/nuno-online/nuno/internal/models"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "hub"

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

// Message is the wire envelope for every hub event.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Authenticator resolves a request token to an actor.
type Authenticator interface {
	Resolve(ctx context.Context, token string) (models.Actor, error)
}

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	out    chan []byte
	cancel context.CancelFunc

	dropOnce sync.Once
}

// Hub fans named events out to the websocket clients of each session. It
// implements game.Notifier.
type Hub struct {
	logger   *logrus.Logger
	auth     Authenticator
	registry game.SessionRegistry

	mu       sync.Mutex
	sessions map[uuid.UUID]map[*client]struct{}
}

func New(logger *logrus.Logger, authn Authenticator, registry game.SessionRegistry) *Hub {
	return &Hub{
		logger:   logger,
		auth:     authn,
		registry: registry,
		sessions: make(map[uuid.UUID]map[*client]struct{}),
	}
}

// ServeWS upgrades GET /hubs/players?sessionId=<uuid> and keeps the client
// registered until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth.Resolve(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID, err := uuid.Parse(r.URL.Query().Get("sessionId"))
	if err != nil {
		http.Error(w, "invalid sessionId", http.StatusBadRequest)
		return
	}
	if _, ok := h.registry.GetSession(sessionID); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the hub subprotocol")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	cl := &client{
		userID: actor.ActorID(),
		conn:   c,
		out:    make(chan []byte, outboxSize),
		cancel: cancel,
	}
	h.add(sessionID, cl)
	defer h.remove(sessionID, cl)

	middleware.LogWebSocketConnect(h.logger, r.RemoteAddr, r.URL.Path, logrus.Fields{
		"session": sessionID,
		"user":    cl.userID,
	})

	go h.writePump(ctx, cl)
	err = h.readPump(ctx, cl)

	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
		err = nil
	}
	middleware.LogWebSocketDisconnect(h.logger, r.RemoteAddr, r.URL.Path, err)
}

// readPump answers pings until the client goes away.
func (h *Hub) readPump(ctx context.Context, cl *client) error {
	for {
		typ, data, err := cl.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debugf("hub: ignoring malformed message from %s: %v", cl.userID, err)
			continue
		}
		if msg.Type == "ping" {
			h.enqueue(cl, Message{Type: "pong"})
		}
	}
}

// writePump serializes writes so events reach a client in the order they were sent.
func (h *Hub) writePump(ctx context.Context, cl *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-cl.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := cl.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.logger.Warnf("Failed to write hub message to user %s: %v", cl.userID, err)
				cl.cancel()
				return
			}
		}
	}
}

// SendToSession delivers an event to every client of the session.
func (h *Hub) SendToSession(sessionID uuid.UUID, event string, payload any) {
	h.broadcast(sessionID, func(*client) bool { return true }, Message{Type: event, Payload: payload})
}

// SendToUser delivers an event to the clients of one user in the session.
func (h *Hub) SendToUser(sessionID, userID uuid.UUID, event string, payload any) {
	h.broadcast(sessionID, func(c *client) bool { return c.userID == userID }, Message{Type: event, Payload: payload})
}

// ClientCount returns the number of live clients in a session.
func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) broadcast(sessionID uuid.UUID, match func(*client) bool, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to marshal hub event (%s) for session %s: %v", msg.Type, sessionID, err)
		return
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.sessions[sessionID]))
	for c := range h.sessions[sessionID] {
		if match(c) {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.enqueueRaw(c, data)
	}
}

func (h *Hub) enqueue(cl *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.enqueueRaw(cl, data)
}

func (h *Hub) enqueueRaw(cl *client, data []byte) {
	select {
	case cl.out <- data:
	default:
		h.drop(cl)
	}
}

// drop closes a client whose outbox overflowed. The close handshake runs on its
// own goroutine so the sender never waits on the peer; the failed read then
// ends ServeWS for that client.
func (h *Hub) drop(cl *client) {
	cl.dropOnce.Do(func() {
		h.logger.Warnf("hub: outbox full for user %s, dropping connection", cl.userID)
		go cl.conn.Close(SlowConsumerError, "too slow")
	})
}

func (h *Hub) add(sessionID uuid.UUID, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*client]struct{})
	}
	h.sessions[sessionID][cl] = struct{}{}
}

func (h *Hub) remove(sessionID uuid.UUID, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions[sessionID], cl)
	if len(h.sessions[sessionID]) == 0 {
		delete(h.sessions, sessionID)
	}
}

var _ game.Notifier = (*Hub)(nil)
