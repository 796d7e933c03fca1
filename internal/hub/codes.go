// internal/hub/codes.go
package hub

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the hub.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	SlowConsumerError   websocket.StatusCode = 3004 // Outbound queue overflowed.
)
