// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/google/uuid"
)

// BuildDeck returns a fresh, unshuffled pool with the configured multiplicity
// of every catalogue card.
func BuildDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, c := range []Card{
		Firewall, Debugger, Botnet, VPNCloak,
		SystemOverride, EncryptionKey, MasterAlgorithm, ExploitScript,
	} {
		for i := 0; i < deckComposition[c]; i++ {
			deck = append(deck, c)
		}
	}
	return deck
}

// ShuffleDeck permutes the deck in place with Fisher-Yates. Not
// cryptographically strong; fine for casual play.
func ShuffleDeck(deck []Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// drawCard pops the next card from the deck, reshuffling the discard pile
// into a new deck when the deck runs dry. ErrEmptyDeck when both are empty.
func (r *Room) drawCard() (Card, error) {
	if len(r.Deck) == 0 {
		if len(r.DiscardPile) == 0 {
			return CardUnknown, ErrEmptyDeck
		}
		r.Deck = r.DiscardPile
		r.DiscardPile = nil
		ShuffleDeck(r.Deck, r.random())
	}
	card := r.Deck[len(r.Deck)-1]
	r.Deck = r.Deck[:len(r.Deck)-1]
	return card, nil
}

// discard appends a card to the discard pile.
func (r *Room) discard(c Card) {
	r.DiscardPile = append(r.DiscardPile, c)
}

// removeFromHand takes one copy of card out of the player's hand. Returns
// false if the card is not held.
func (p *Player) removeFromHand(card Card) bool {
	for i, c := range p.Hand {
		if c == card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// holds reports whether the player's hand contains the card.
func (p *Player) holds(card Card) bool {
	for _, c := range p.Hand {
		if c == card {
			return true
		}
	}
	return false
}

// handWeight sums the weight table over the player's hand.
func (p *Player) handWeight() int {
	w := 0
	for _, c := range p.Hand {
		w += c.Weight()
	}
	return w
}

// Draw performs the draw_card command for the current player.
func (r *Room) Draw(actorID uuid.UUID) (*Outcome, error) {
	if r.State != StatePlaying {
		return nil, validationf("room %s is not in play", r.Code)
	}
	cur := r.CurrentPlayer()
	if cur == nil || cur.UserID != actorID {
		return nil, validationf("it's not your turn")
	}
	if r.ChallengePhase {
		return nil, validationf("a challenge window is open; end your turn or wait for a challenge")
	}
	if len(cur.Hand) >= HandCapacity {
		return nil, validationf("your hand is full")
	}

	card, err := r.drawCard()
	if err != nil {
		return nil, validationf("no cards left to draw")
	}
	cur.Hand = append(cur.Hand, card)

	out := &Outcome{}
	out.whisper(actorID, Event{
		Type: EventCardDrawn,
		Card: card.String(),
		Payload: map[string]interface{}{
			"deckCount": len(r.Deck),
		},
	})
	out.broadcast(Event{
		Type: EventPlayerDrewCard,
		User: &EventUser{ID: actorID, Username: cur.Username},
		Payload: map[string]interface{}{
			"deckCount": len(r.Deck),
		},
	})
	return out, nil
}
