// internal/game/room.go
package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// RoomState is the room lifecycle phase.
type RoomState string

const (
	StateWaiting RoomState = "waiting"
	StatePlaying RoomState = "playing"
	StateEnded   RoomState = "ended"
)

// Player is one seat in a room.
type Player struct {
	UserID       uuid.UUID `json:"userId"`
	Username     string    `json:"username"`
	LifeTokens   int       `json:"lifeTokens"`
	Hand         []Card    `json:"hand"`
	IsReady      bool      `json:"isReady"`
	IsEliminated bool      `json:"isEliminated"`
	HasFirewall  bool      `json:"hasFirewall"`
	HasVPNCloak  bool      `json:"hasVPNCloak"`
	CanChallenge bool      `json:"canChallenge"`
	LastPlayed   *Card     `json:"lastPlayedCard,omitempty"`
}

// PendingPlay records the most recent challengeable play while its window is
// open.
type PendingPlay struct {
	ActorID uuid.UUID `json:"actorId"`
	Card    Card      `json:"card"`
}

// Room holds the entire state of one game instance. All mutation goes through
// the owning coordinator; nothing in this package locks.
type Room struct {
	ID             uuid.UUID    `json:"id"`
	Code           string       `json:"roomCode"`
	Name           string       `json:"roomName"`
	HostID         uuid.UUID    `json:"hostId"`
	MaxPlayers     int          `json:"maxPlayers"`
	Players        []*Player    `json:"players"`
	Deck           []Card       `json:"deck"` // back of the slice is the next draw
	DiscardPile    []Card       `json:"discardPile"`
	State          RoomState    `json:"gameState"`
	CurrentIndex   int          `json:"currentPlayerIndex"`
	TurnNumber     int          `json:"turnNumber"`
	ChallengePhase bool         `json:"challengePhase"`
	Pending        *PendingPlay `json:"pendingChallenge,omitempty"`
	Winner         string       `json:"winner,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	EndedAt        *time.Time   `json:"endedAt,omitempty"`

	rng *rand.Rand
}

// NewRoom creates a waiting room hosted by the given player. The host still
// joins through AddPlayer like everyone else.
func NewRoom(code, name string, hostID uuid.UUID, maxPlayers int) *Room {
	if maxPlayers < 2 {
		maxPlayers = 2
	}
	return &Room{
		ID:         uuid.New(),
		Code:       code,
		Name:       name,
		HostID:     hostID,
		MaxPlayers: maxPlayers,
		State:      StateWaiting,
		CreatedAt:  time.Now().UTC(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand swaps the room's randomness source. Tests use a seeded source for
// reproducible deals.
func (r *Room) SetRand(rng *rand.Rand) {
	r.rng = rng
}

func (r *Room) random() *rand.Rand {
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.rng
}

// PlayerByID returns the seat for a user, or nil.
func (r *Room) PlayerByID(id uuid.UUID) *Player {
	for _, p := range r.Players {
		if p.UserID == id {
			return p
		}
	}
	return nil
}

// CurrentPlayer returns the seat whose turn it is, or nil outside of play.
func (r *Room) CurrentPlayer() *Player {
	if r.State != StatePlaying || r.CurrentIndex < 0 || r.CurrentIndex >= len(r.Players) {
		return nil
	}
	return r.Players[r.CurrentIndex]
}

func (r *Room) alivePlayers() []*Player {
	var alive []*Player
	for _, p := range r.Players {
		if !p.IsEliminated {
			alive = append(alive, p)
		}
	}
	return alive
}

// CardsInPlay counts every card in the deck, discard pile, and all hands.
func (r *Room) CardsInPlay() int {
	n := len(r.Deck) + len(r.DiscardPile)
	for _, p := range r.Players {
		n += len(p.Hand)
	}
	return n
}

// Clone deep-copies the room so the coordinator can roll a failed commit back
// without partial visibility.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		pc := *p
		pc.Hand = append([]Card(nil), p.Hand...)
		if p.LastPlayed != nil {
			lp := *p.LastPlayed
			pc.LastPlayed = &lp
		}
		cp.Players[i] = &pc
	}
	cp.Deck = append([]Card(nil), r.Deck...)
	cp.DiscardPile = append([]Card(nil), r.DiscardPile...)
	if r.Pending != nil {
		pd := *r.Pending
		cp.Pending = &pd
	}
	if r.EndedAt != nil {
		e := *r.EndedAt
		cp.EndedAt = &e
	}
	return &cp
}

// AddPlayer seats a user in a waiting room.
func (r *Room) AddPlayer(userID uuid.UUID, username string) (*Outcome, error) {
	if r.State != StateWaiting {
		return nil, validationf("room %s has already started", r.Code)
	}
	if r.PlayerByID(userID) != nil {
		return nil, validationf("you are already in room %s", r.Code)
	}
	if len(r.Players) >= r.MaxPlayers {
		return nil, validationf("room %s is full", r.Code)
	}
	p := &Player{UserID: userID, Username: username}
	r.Players = append(r.Players, p)

	out := &Outcome{}
	out.broadcast(Event{
		Type: EventPlayerJoined,
		User: &EventUser{ID: userID, Username: username},
		Payload: map[string]interface{}{
			"playerCount": len(r.Players),
		},
	})
	return out, nil
}

// RemovePlayer takes a user out of the room. If the game is running the seat
// is eliminated in place so turn order stays intact; in a waiting or ended
// room the seat is removed entirely. The host role moves to the next remaining player
// when the host leaves. Callers check Empty() afterwards to reap the room.
func (r *Room) RemovePlayer(userID uuid.UUID) (*Outcome, error) {
	p := r.PlayerByID(userID)
	if p == nil {
		return nil, validationf("you are not in room %s", r.Code)
	}

	out := &Outcome{}
	out.broadcast(Event{
		Type: EventPlayerLeft,
		User: &EventUser{ID: userID, Username: p.Username},
	})

	if r.State == StatePlaying && !p.IsEliminated {
		r.eliminate(p, out)
		if r.State != StateEnded && r.CurrentPlayer() != nil && r.CurrentPlayer().UserID == userID {
			r.closeChallengeWindow()
			r.advanceTurn(out)
		}
	} else if r.State != StatePlaying {
		// A seat in an ended room can still hold cards; return them to the
		// discard pile so the card count stays whole.
		for _, c := range p.Hand {
			r.discard(c)
		}
		p.Hand = nil
		for i, seat := range r.Players {
			if seat.UserID == userID {
				r.Players = append(r.Players[:i], r.Players[i+1:]...)
				break
			}
		}
	}

	if r.HostID == userID && len(r.Players) > 0 {
		r.HostID = r.Players[0].UserID
		out.broadcast(Event{
			Type: EventRoomUpdate,
			Payload: map[string]interface{}{
				"hostId": r.HostID.String(),
			},
		})
	}
	return out, nil
}

// Empty reports whether no seats remain.
func (r *Room) Empty() bool {
	return len(r.Players) == 0
}

// ToggleReady flips a waiting player's ready flag.
func (r *Room) ToggleReady(userID uuid.UUID) (*Outcome, error) {
	if r.State != StateWaiting {
		return nil, validationf("game in room %s has already started", r.Code)
	}
	p := r.PlayerByID(userID)
	if p == nil {
		return nil, validationf("you are not in room %s", r.Code)
	}
	p.IsReady = !p.IsReady

	out := &Outcome{}
	out.broadcast(Event{
		Type: EventRoomUpdate,
		User: &EventUser{ID: userID, Username: p.Username},
		Payload: map[string]interface{}{
			"isReady": p.IsReady,
		},
	})
	return out, nil
}

// Chat relays a chat line to the room. Chat is a passthrough broadcast, not
// game state.
func (r *Room) Chat(userID uuid.UUID, text string) (*Outcome, error) {
	p := r.PlayerByID(userID)
	if p == nil {
		return nil, validationf("you are not in room %s", r.Code)
	}
	out := &Outcome{}
	out.broadcast(Event{
		Type:    EventChatMessage,
		User:    &EventUser{ID: userID, Username: p.Username},
		Message: text,
		Payload: map[string]interface{}{
			"ts": time.Now().Unix(),
		},
	})
	return out, nil
}
