// internal/game/snapshot.go
package game

import (
	"time"

	"github.com/google/uuid"
)

// PlayerSnapshot is one seat as seen by a specific viewer. Other players'
// hands collapse to a count; the viewer sees their own cards.
type PlayerSnapshot struct {
	UserID       uuid.UUID `json:"userId"`
	Username     string    `json:"username"`
	LifeTokens   int       `json:"lifeTokens"`
	HandSize     int       `json:"handSize"`
	Hand         []string  `json:"hand,omitempty"`
	IsReady      bool      `json:"isReady"`
	IsEliminated bool      `json:"isEliminated"`
	HasFirewall  bool      `json:"hasFirewall"`
	HasVPNCloak  bool      `json:"hasVPNCloak"`
	CanChallenge bool      `json:"canChallenge"`
	IsHost       bool      `json:"isHost"`
	IsCurrent    bool      `json:"isCurrentTurn"`
}

// RoomSnapshot is the full-state resync payload. Reconnecting clients request
// one instead of replaying events.
type RoomSnapshot struct {
	RoomCode       string           `json:"roomCode"`
	RoomName       string           `json:"roomName"`
	State          RoomState        `json:"gameState"`
	MaxPlayers     int              `json:"maxPlayers"`
	Players        []PlayerSnapshot `json:"players"`
	DeckCount      int              `json:"deckCount"`
	DiscardPile    []string         `json:"discardPile"`
	CurrentPlayer  string           `json:"currentPlayer,omitempty"`
	TurnNumber     int              `json:"turnNumber"`
	ChallengePhase bool             `json:"challengePhase"`
	Winner         string           `json:"winner,omitempty"`
	EndedAt        *time.Time       `json:"endedAt,omitempty"`
}

// Snapshot renders the room from one player's perspective.
func (r *Room) Snapshot(forUser uuid.UUID) *RoomSnapshot {
	snap := &RoomSnapshot{
		RoomCode:       r.Code,
		RoomName:       r.Name,
		State:          r.State,
		MaxPlayers:     r.MaxPlayers,
		DeckCount:      len(r.Deck),
		TurnNumber:     r.TurnNumber,
		ChallengePhase: r.ChallengePhase,
		Winner:         r.Winner,
		EndedAt:        r.EndedAt,
	}

	// The discard pile is open information.
	snap.DiscardPile = make([]string, len(r.DiscardPile))
	for i, c := range r.DiscardPile {
		snap.DiscardPile[i] = c.String()
	}

	if cur := r.CurrentPlayer(); cur != nil {
		snap.CurrentPlayer = cur.Username
	}

	for i, p := range r.Players {
		ps := PlayerSnapshot{
			UserID:       p.UserID,
			Username:     p.Username,
			LifeTokens:   p.LifeTokens,
			HandSize:     len(p.Hand),
			IsReady:      p.IsReady,
			IsEliminated: p.IsEliminated,
			HasFirewall:  p.HasFirewall,
			HasVPNCloak:  p.HasVPNCloak,
			CanChallenge: p.CanChallenge,
			IsHost:       p.UserID == r.HostID,
			IsCurrent:    r.State == StatePlaying && i == r.CurrentIndex,
		}
		if p.UserID == forUser {
			ps.Hand = make([]string, len(p.Hand))
			for j, c := range p.Hand {
				ps.Hand[j] = c.String()
			}
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}
