// internal/game/effects.go
package game

import (
	"fmt"

	"github.com/google/uuid"
)

// Play performs the play_card command: validates the play, moves the card
// (and its Encryption Key, where required) to the discard pile, then resolves
// the named effect. Only the targeted effect can be blocked by a shield or
// cloak; the act of playing is never undone once the card leaves the hand.
func (r *Room) Play(actorID uuid.UUID, card Card, targetID *uuid.UUID) (*Outcome, error) {
	if r.State != StatePlaying {
		return nil, validationf("room %s is not in play", r.Code)
	}
	actor := r.CurrentPlayer()
	if actor == nil || actor.UserID != actorID {
		return nil, validationf("it's not your turn")
	}
	if r.ChallengePhase {
		return nil, validationf("a challenge window is open; no new plays until it resolves")
	}
	if !actor.holds(card) {
		return nil, validationf("%s is not in your hand", card)
	}

	switch card {
	case EncryptionKey, MasterAlgorithm:
		return nil, illegalPlayf("%s cannot be played directly", card)
	}

	if card.RequiresKey() && !actor.holds(EncryptionKey) {
		return nil, missingPrereqf("%s requires an Encryption Key", card)
	}

	var target *Player
	if needsTarget(card) {
		if targetID == nil {
			return nil, validationf("%s requires a target", card)
		}
		target = r.PlayerByID(*targetID)
		if target == nil {
			return nil, validationf("target player is not in this room")
		}
		if target.UserID == actorID {
			return nil, validationf("you cannot target yourself")
		}
		if target.IsEliminated {
			return nil, validationf("%s is already out of the heist", target.Username)
		}
	}

	// Point of no return: the card (and key) leave the hand now. Everything
	// past here resolves an effect against committed discards.
	actor.removeFromHand(card)
	r.discard(card)
	if card.RequiresKey() {
		actor.removeFromHand(EncryptionKey)
		r.discard(EncryptionKey)
	}
	played := card
	actor.LastPlayed = &played

	out := &Outcome{}
	r.applyEffect(actor, card, target, out)

	// The play announcement goes out ahead of any elimination or game-end
	// events the effect produced.
	announcement := Event{
		Type:    EventCardPlayed,
		User:    &EventUser{ID: actorID, Username: actor.Username},
		Card:    card.String(),
		Message: out.Log,
	}
	out.Events = append([]Event{announcement}, out.Events...)

	if card.Challengeable() && !actor.IsEliminated && r.State == StatePlaying {
		r.ChallengePhase = true
		r.Pending = &PendingPlay{ActorID: actorID, Card: card}
		for _, p := range r.Players {
			if p.UserID != actorID && !p.IsEliminated {
				p.CanChallenge = true
			}
		}
	}

	// A backfired attack can take out the acting player; the turn moves on so
	// the pointer never rests on an eliminated seat.
	if actor.IsEliminated && r.State == StatePlaying {
		r.closeChallengeWindow()
		r.advanceTurn(out)
	}
	return out, nil
}

func needsTarget(card Card) bool {
	switch card {
	case Debugger, Botnet, SystemOverride, ExploitScript:
		return true
	}
	return false
}

// applyEffect resolves one card against the room. The switch is exhaustive
// over playable catalogue members; Encryption Key and Master Algorithm are
// rejected before this point.
func (r *Room) applyEffect(actor *Player, card Card, target *Player, out *Outcome) {
	switch card {
	case Firewall:
		actor.HasFirewall = true
		out.Log = fmt.Sprintf("%s raised a Firewall.", actor.Username)

	case VPNCloak:
		actor.HasVPNCloak = true
		out.Log = fmt.Sprintf("%s vanished behind a VPN Cloak.", actor.Username)

	case Debugger:
		r.resolveDebugger(actor, target, out)

	case Botnet:
		r.resolveBotnet(actor, target, out)

	case SystemOverride:
		r.resolveSystemOverride(actor, target, out)

	case ExploitScript:
		r.resolveExploitScript(actor, target, out)

	case EncryptionKey, MasterAlgorithm, CardUnknown:
		// Unreachable: filtered by Play.
	}
}

// resolveDebugger is a pure information reveal. The peek goes only to the
// actor; the room merely learns that a Debugger ran.
func (r *Room) resolveDebugger(actor, target *Player, out *Outcome) {
	hand := make([]string, len(target.Hand))
	for i, c := range target.Hand {
		hand[i] = c.String()
	}
	payload := map[string]interface{}{
		"target": target.Username,
		"hand":   hand,
	}
	if target.LastPlayed != nil {
		payload["lastPlayedCard"] = target.LastPlayed.String()
	}
	out.whisper(actor.UserID, Event{
		Type:    EventCardRevealed,
		Card:    Debugger.String(),
		Payload: payload,
	})
	out.Log = fmt.Sprintf("%s ran a Debugger against %s.", actor.Username, target.Username)
}

// resolveBotnet runs the weight duel. Firewall blocks and is consumed; VPN
// Cloak blocks without being consumed. A tie or a lighter attacking hand
// backfires onto the actor; the tie-break always favors the defender.
func (r *Room) resolveBotnet(actor, target *Player, out *Outcome) {
	if target.HasFirewall {
		target.HasFirewall = false
		out.Log = fmt.Sprintf("%s's Botnet crashed against %s's Firewall.", actor.Username, target.Username)
		return
	}
	if target.HasVPNCloak {
		out.Log = fmt.Sprintf("%s's Botnet couldn't trace %s through the VPN Cloak.", actor.Username, target.Username)
		return
	}

	actorWeight := actor.handWeight()
	targetWeight := target.handWeight()
	if actorWeight > targetWeight {
		r.loseLifeToken(target, out)
		out.Log = fmt.Sprintf("%s's Botnet (%d) overwhelmed %s (%d): %s lost a life token.",
			actor.Username, actorWeight, target.Username, targetWeight, target.Username)
	} else {
		r.loseLifeToken(actor, out)
		out.Log = fmt.Sprintf("%s's Botnet (%d) was repelled by %s (%d): the attack backfired.",
			actor.Username, actorWeight, target.Username, targetWeight)
	}
}

// resolveSystemOverride exchanges the remaining hands. The override card and
// its key were already discarded, so each side keeps its own card count.
func (r *Room) resolveSystemOverride(actor, target *Player, out *Outcome) {
	if target.HasVPNCloak {
		out.Log = fmt.Sprintf("%s's System Override fizzled: %s is cloaked.", actor.Username, target.Username)
		return
	}
	actor.Hand, target.Hand = target.Hand, actor.Hand
	out.Log = fmt.Sprintf("%s executed a System Override and swapped hands with %s.", actor.Username, target.Username)

	r.whisperHand(actor, out)
	r.whisperHand(target, out)
}

// resolveExploitScript forces a uniformly random discard from the target's
// hand. Losing the Master Algorithm this way is instant elimination.
func (r *Room) resolveExploitScript(actor, target *Player, out *Outcome) {
	if target.HasFirewall {
		target.HasFirewall = false
		out.Log = fmt.Sprintf("%s's Exploit Script was stopped by %s's Firewall.", actor.Username, target.Username)
		return
	}
	if target.HasVPNCloak {
		out.Log = fmt.Sprintf("%s's Exploit Script couldn't reach %s through the VPN Cloak.", actor.Username, target.Username)
		return
	}
	if len(target.Hand) == 0 {
		out.Log = fmt.Sprintf("%s's Exploit Script found nothing to steal from %s.", actor.Username, target.Username)
		return
	}

	idx := r.random().Intn(len(target.Hand))
	lost := target.Hand[idx]
	target.Hand = append(target.Hand[:idx], target.Hand[idx+1:]...)
	r.discard(lost)

	if lost == MasterAlgorithm {
		out.Log = fmt.Sprintf("%s's Exploit Script forced %s to drop the Master Algorithm. %s is out!",
			actor.Username, target.Username, target.Username)
		r.eliminate(target, out)
		return
	}
	out.Log = fmt.Sprintf("%s's Exploit Script forced %s to discard %s.", actor.Username, target.Username, lost)
	r.whisperHand(target, out)
}

// loseLifeToken decrements a life token and eliminates at zero.
func (r *Room) loseLifeToken(p *Player, out *Outcome) {
	p.LifeTokens--
	if p.LifeTokens <= 0 {
		r.eliminate(p, out)
	}
}

// whisperHand privately re-sends a player their own hand after it changed
// through someone else's action.
func (r *Room) whisperHand(p *Player, out *Outcome) {
	hand := make([]string, len(p.Hand))
	for i, c := range p.Hand {
		hand[i] = c.String()
	}
	out.whisper(p.UserID, Event{
		Type: EventRoomUpdate,
		Payload: map[string]interface{}{
			"hand": hand,
		},
	})
}
