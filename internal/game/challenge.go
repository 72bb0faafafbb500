// internal/game/challenge.go
package game

import (
	"fmt"

	"github.com/google/uuid"
)

// Challenge adjudicates a bluff challenge against the pending play. The
// challenge window closes and every canChallenge flag clears no matter how
// the call lands: a legitimate play eliminates the challenger, an
// illegitimate one eliminates the acting player.
func (r *Room) Challenge(challengerID uuid.UUID) (*Outcome, error) {
	if r.State != StatePlaying {
		return nil, validationf("room %s is not in play", r.Code)
	}
	challenger := r.PlayerByID(challengerID)
	if challenger == nil {
		return nil, validationf("you are not in room %s", r.Code)
	}
	if challenger.IsEliminated {
		return nil, preconditionf("eliminated players cannot challenge")
	}
	if !challenger.CanChallenge {
		return nil, preconditionf("you have nothing to challenge")
	}
	if r.Pending == nil {
		return nil, preconditionf("no play is pending a challenge")
	}

	actor := r.PlayerByID(r.Pending.ActorID)
	card := r.Pending.Card
	if actor == nil || actor.LastPlayed == nil {
		return nil, preconditionf("no play is pending a challenge")
	}

	legitimate := r.validateCardPlay(actor, card)
	r.closeChallengeWindow()

	out := &Outcome{}
	if legitimate {
		out.Log = fmt.Sprintf("Challenge failed: %s's %s was legitimate. %s is out!",
			actor.Username, card, challenger.Username)
	} else {
		out.Log = fmt.Sprintf("Challenge succeeded: %s's %s was a bluff. %s is out!",
			actor.Username, card, actor.Username)
	}
	out.broadcast(Event{
		Type:    EventChallengeResult,
		User:    &EventUser{ID: challengerID, Username: challenger.Username},
		Card:    card.String(),
		Message: out.Log,
		Payload: map[string]interface{}{
			"legitimate": legitimate,
			"actor":      actor.Username,
		},
	})

	if legitimate {
		r.eliminate(challenger, out)
	} else {
		r.eliminate(actor, out)
	}

	// Keep the turn pointer off eliminated seats.
	if r.State == StatePlaying {
		if cur := r.CurrentPlayer(); cur != nil && cur.IsEliminated {
			r.advanceTurn(out)
		}
	}
	return out, nil
}

// validateCardPlay decides whether a challenged play was legitimate given the
// actor's state. The prerequisite checks ran before the card was accepted, so
// by the time a challenge lands the play is almost always legitimate; a bluff
// only shows when the pending record disagrees with what the actor last
// played. This mirrors the original adjudication and makes challenging a
// deliberate gamble.
func (r *Room) validateCardPlay(actor *Player, card Card) bool {
	if actor.LastPlayed == nil || *actor.LastPlayed != card {
		return false
	}
	return true
}
