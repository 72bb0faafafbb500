// internal/game/tables.go
package game

// The rules data lives in lookup tables rather than inline branches so the
// catalogue can be audited in one place.

// cardTypes assigns each catalogue card its resolution group.
var cardTypes = map[Card]CardType{
	Firewall:        TypeDefense,
	Debugger:        TypeRecon,
	Botnet:          TypeAttack,
	VPNCloak:        TypeDefense,
	SystemOverride:  TypeSwap,
	EncryptionKey:   TypeMandatory,
	MasterAlgorithm: TypeUltimate,
	ExploitScript:   TypeAttack,
}

// cardWeights is the strength table used to resolve Botnet duels.
var cardWeights = map[Card]int{
	MasterAlgorithm: 10,
	SystemOverride:  8,
	Botnet:          6,
	ExploitScript:   6,
	Firewall:        4,
	Debugger:        3,
	VPNCloak:        3,
	EncryptionKey:   2,
}

// keyedCards lists the cards that cannot be played without also holding (and
// spending) an Encryption Key.
var keyedCards = map[Card]bool{
	SystemOverride: true,
	Botnet:         true,
}

// challengeableCards lists the plays that open a challenge window for the
// other players.
var challengeableCards = map[Card]bool{
	SystemOverride: true,
	Botnet:         true,
	ExploitScript:  true,
	Debugger:       true,
}

// HandCapacity is the most cards a player may hold outside the instant a
// System Override swap is in flight.
const HandCapacity = 2

// deckComposition fixes the per-card multiplicity of one game's pool.
// System Override and Master Algorithm are unique single copies; everything
// else carries enough duplicates to keep a 2-6 player game liquid.
var deckComposition = map[Card]int{
	Firewall:        3,
	Debugger:        3,
	Botnet:          2,
	VPNCloak:        3,
	ExploitScript:   3,
	EncryptionKey:   4,
	SystemOverride:  1,
	MasterAlgorithm: 1,
}

// DeckSize is the fixed total card count of a configured deck. The
// conservation invariant |deck| + |discard| + sum(hands) == DeckSize holds at
// every committed state.
var DeckSize = func() int {
	n := 0
	for _, count := range deckComposition {
		n += count
	}
	return n
}()
