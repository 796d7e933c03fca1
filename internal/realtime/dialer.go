// internal/realtime/dialer.go
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
)

// Event is one named server-pushed message.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn is a single live connection attempt.
type Conn interface {
	// Read blocks until the next event arrives or the connection fails.
	Read(ctx context.Context) (Event, error)
	Close() error
}

// Dialer opens connections to a hub URL.
type Dialer interface {
	Dial(ctx context.Context, rawURL, accessToken string) (Conn, error)
}

// WebsocketDialer dials hubs with github.com/coder/websocket.
type WebsocketDialer struct {
	// HandshakeTimeout bounds a single connect attempt. Zero means no limit
	// beyond the caller's context.
	HandshakeTimeout time.Duration
	HTTPClient       *http.Client
}

// Dial connects to rawURL, sending the token both as a bearer header and as the
// access_token query parameter.
func (d WebsocketDialer) Dial(ctx context.Context, rawURL, accessToken string) (Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse hub url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	header := http.Header{}
	if accessToken != "" {
		q := u.Query()
		q.Set("access_token", accessToken)
		u.RawQuery = q.Encode()
		header.Set("Authorization", "Bearer "+accessToken)
	}

	if d.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.HandshakeTimeout)
		defer cancel()
	}

	c, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient:   d.HTTPClient,
		HTTPHeader:   header,
		Subprotocols: []string{"hub"},
	})
	if err != nil {
		return nil, err
	}
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) (Event, error) {
	for {
		typ, data, err := w.c.Read(ctx)
		if err != nil {
			return Event{}, err
		}
		if typ != websocket.MessageText {
			continue
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return Event{}, fmt.Errorf("decode event: %w", err)
		}
		return ev, nil
	}
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}
