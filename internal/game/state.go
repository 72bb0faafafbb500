// internal/game/state.go
package game

import (
	"time"

	"github.com/google/uuid"
)

// Start moves a waiting room into play. Only the host may start, at least two
// players must be seated, and every non-host player must be ready (the host
// is implicitly ready).
func (r *Room) Start(callerID uuid.UUID) (*Outcome, error) {
	if r.State != StateWaiting {
		return nil, preconditionf("room %s is not waiting for a game", r.Code)
	}
	if callerID != r.HostID {
		return nil, preconditionf("only the host can start the game")
	}
	if len(r.Players) < 2 {
		return nil, preconditionf("need at least 2 players to start")
	}
	for _, p := range r.Players {
		if p.UserID != r.HostID && !p.IsReady {
			return nil, preconditionf("%s is not ready", p.Username)
		}
	}

	rng := r.random()

	r.Deck = BuildDeck()
	ShuffleDeck(r.Deck, rng)
	r.DiscardPile = nil

	// Random seating order for the game.
	rng.Shuffle(len(r.Players), func(i, j int) {
		r.Players[i], r.Players[j] = r.Players[j], r.Players[i]
	})

	for _, p := range r.Players {
		p.Hand = nil
		p.IsEliminated = false
		p.HasFirewall = false
		p.HasVPNCloak = false
		p.CanChallenge = false
		p.LastPlayed = nil
		p.LifeTokens = 1 + rng.Intn(2)

		card, err := r.drawCard()
		if err != nil {
			return nil, err
		}
		p.Hand = append(p.Hand, card)
	}

	r.State = StatePlaying
	r.CurrentIndex = 0
	r.TurnNumber = 1
	r.ChallengePhase = false
	r.Pending = nil
	r.Winner = ""

	out := &Outcome{Log: "The heist is on."}
	order := make([]string, len(r.Players))
	for i, p := range r.Players {
		order[i] = p.Username
	}
	out.broadcast(Event{
		Type: EventGameStarted,
		Payload: map[string]interface{}{
			"turnOrder":     order,
			"currentPlayer": r.Players[0].Username,
			"deckCount":     len(r.Deck),
		},
	})
	for _, p := range r.Players {
		out.whisper(p.UserID, Event{
			Type: EventCardDrawn,
			Card: p.Hand[0].String(),
			Payload: map[string]interface{}{
				"lifeTokens": p.LifeTokens,
			},
		})
	}
	return out, nil
}

// EndTurn closes the current player's turn. An open challenge window closes
// unanswered here rather than blocking the call: no decline command or timer
// exists, so the actor ending the turn is the only way a window can lapse.
// Per-turn flags reset and the pointer advances to the next surviving player.
func (r *Room) EndTurn(actorID uuid.UUID) (*Outcome, error) {
	if r.State != StatePlaying {
		return nil, validationf("room %s is not in play", r.Code)
	}
	cur := r.CurrentPlayer()
	if cur == nil || cur.UserID != actorID {
		return nil, validationf("it's not your turn")
	}

	r.closeChallengeWindow()

	out := &Outcome{}
	r.advanceTurn(out)
	return out, nil
}

// closeChallengeWindow clears the challenge flags on every seat and drops the
// pending play.
func (r *Room) closeChallengeWindow() {
	r.ChallengePhase = false
	r.Pending = nil
	for _, p := range r.Players {
		p.CanChallenge = false
	}
}

// advanceTurn resets the leaving player's one-turn flags and scans forward to
// the next non-eliminated seat. The win check runs first so the scan cannot
// spin on a board with no survivors.
func (r *Room) advanceTurn(out *Outcome) {
	if r.checkWin(out) {
		return
	}

	cur := r.CurrentPlayer()
	if cur != nil {
		cur.HasFirewall = false
		cur.HasVPNCloak = false
		cur.LastPlayed = nil
	}
	for _, p := range r.Players {
		p.CanChallenge = false
	}

	next := r.CurrentIndex
	for i := 0; i < len(r.Players); i++ {
		next = (next + 1) % len(r.Players)
		if !r.Players[next].IsEliminated {
			break
		}
	}
	r.CurrentIndex = next
	r.TurnNumber++

	nextPlayer := r.Players[next]
	out.broadcast(Event{
		Type: EventTurnEnded,
		User: &EventUser{ID: nextPlayer.UserID, Username: nextPlayer.Username},
		Payload: map[string]interface{}{
			"turnNumber": r.TurnNumber,
		},
	})
}

// eliminate removes a player from active play: life tokens zeroed, hand
// surrendered to the discard pile. The win check follows every elimination.
func (r *Room) eliminate(p *Player, out *Outcome) {
	if p.IsEliminated {
		return
	}
	p.IsEliminated = true
	p.LifeTokens = 0
	p.CanChallenge = false
	p.HasFirewall = false
	p.HasVPNCloak = false
	for _, c := range p.Hand {
		r.discard(c)
	}
	p.Hand = nil

	out.broadcast(Event{
		Type: EventRoomUpdate,
		User: &EventUser{ID: p.UserID, Username: p.Username},
		Payload: map[string]interface{}{
			"eliminated": true,
		},
	})
	r.checkWin(out)
}

// checkWin ends the game when at most one player survives. Returns true if
// the game is (now) over.
func (r *Room) checkWin(out *Outcome) bool {
	if r.State != StatePlaying {
		return r.State == StateEnded
	}
	alive := r.alivePlayers()
	if len(alive) > 1 {
		return false
	}

	r.State = StateEnded
	now := time.Now().UTC()
	r.EndedAt = &now
	r.closeChallengeWindow()

	payload := map[string]interface{}{}
	if len(alive) == 1 {
		r.Winner = alive[0].Username
		payload["winner"] = r.Winner
		payload["winnerId"] = alive[0].UserID.String()
	}
	out.broadcast(Event{Type: EventGameEnded, Payload: payload})
	return true
}
