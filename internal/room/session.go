// internal/room/session.go
package room

import (
	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"
)

// Session is one connected client's presence in a room. The coordinator owns
// the session set; the transport layer owns draining Out into the socket.
type Session struct {
	UserID   uuid.UUID
	Username string

	// Out carries marshalable outbound messages. The write pump on the other
	// end drains it; sends never block the coordinator.
	Out chan interface{}

	// Cancel tears down the connection's goroutines.
	Cancel func()
}

// NewSession builds a session with a buffered outbound queue.
func NewSession(userID uuid.UUID, username string, cancel func()) *Session {
	return &Session{
		UserID:   userID,
		Username: username,
		Out:      make(chan interface{}, 64),
		Cancel:   cancel,
	}
}

// Write pushes a message onto the session's outbound queue non-blockingly.
// A full or abandoned queue drops the message; the client resyncs on
// reconnect instead of replaying deltas.
func (s *Session) Write(msg interface{}) {
	select {
	case s.Out <- msg:
	default:
		log.Warnf("session %s: outbound queue full, dropping message", s.UserID)
	}
}

// ErrorReply is the structured failure sent back to the issuing client only.
type ErrorReply struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
