// internal/game/events.go
package game

import "github.com/google/uuid"

// EventType is an enum-like type for broadcasting room and game actions.
type EventType string

const (
	EventRoomUpdate         EventType = "room_update"
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerLeft         EventType = "player_left"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventGameStarted        EventType = "game_started"
	EventCardDrawn          EventType = "card_drawn"       // private, includes the card
	EventPlayerDrewCard     EventType = "player_drew_card" // public, deck count only
	EventCardPlayed         EventType = "card_played"
	EventCardRevealed       EventType = "card_revealed" // private Debugger peek
	EventTurnEnded          EventType = "turn_ended"
	EventChallengeResult    EventType = "challenge_result"
	EventGameEnded          EventType = "game_ended"
	EventChatMessage        EventType = "chat_message"
)

// EventUser identifies the player an event is about.
type EventUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username,omitempty"`
}

// Event is one outbound message to room members. Type is always set; the
// remaining fields depend on it.
type Event struct {
	Type    EventType              `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Card    string                 `json:"card,omitempty"`
	Message string                 `json:"message,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *RoomSnapshot          `json:"state,omitempty"`
}

// PrivateEvent is an Event addressed to a single player instead of the room.
type PrivateEvent struct {
	To uuid.UUID
	Ev Event
}

// Outcome collects everything a successfully applied command wants delivered
// once the new state commits: broadcast events, targeted events, and the
// human-readable resolution line for the game log.
type Outcome struct {
	Events  []Event
	Private []PrivateEvent
	Log     string
}

func (o *Outcome) broadcast(ev Event) {
	o.Events = append(o.Events, ev)
}

func (o *Outcome) whisper(to uuid.UUID, ev Event) {
	o.Private = append(o.Private, PrivateEvent{To: to, Ev: ev})
}
