package ports

import "echolink/internal/core/domain"

// Sender delivers events to live connections. Implemented by the
// websocket server; every delivery is best-effort and a send to a
// session that vanished in between is not an error the services act on.
type Sender interface {
	// Send delivers one event to a single session.
	Send(sessionID domain.SessionID, event string, payload interface{}) error

	// Broadcast delivers one event to every live session except the
	// excluded ones.
	Broadcast(event string, payload interface{}, exclude ...domain.SessionID)
}
