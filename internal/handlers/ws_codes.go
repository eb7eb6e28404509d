// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the race handler.
// These provide more specific reasons for closure than standard codes.
const (
	SlowConsumerError   websocket.StatusCode = 3004 // Client did not drain its outbound buffer in time.
	ServerShutdownError websocket.StatusCode = 3005 // Server is going away; all rooms are closed.
)
