// internal/game/card.go
package game

import (
	"encoding/json"
	"fmt"
)

// Card identifies one card from the fixed Code Heist catalogue. It is a closed
// enum: every effect switch over Card must handle all catalogue members.
type Card int

const (
	CardUnknown Card = iota
	Firewall
	Debugger
	Botnet
	VPNCloak
	SystemOverride
	EncryptionKey
	MasterAlgorithm
	ExploitScript
)

// CardType groups cards by the way they resolve.
type CardType string

const (
	TypeDefense   CardType = "Defense"
	TypeRecon     CardType = "Recon"
	TypeAttack    CardType = "Attack"
	TypeSwap      CardType = "Swap"
	TypeMandatory CardType = "Mandatory"
	TypeUltimate  CardType = "Ultimate"
)

var cardNames = map[Card]string{
	Firewall:        "Firewall",
	Debugger:        "Debugger",
	Botnet:          "Botnet",
	VPNCloak:        "VPN Cloak",
	SystemOverride:  "System Override",
	EncryptionKey:   "Encryption Key",
	MasterAlgorithm: "Master Algorithm",
	ExploitScript:   "Exploit Script",
}

var cardsByName = func() map[string]Card {
	m := make(map[string]Card, len(cardNames))
	for c, n := range cardNames {
		m[n] = c
	}
	return m
}()

// String returns the display name of the card as it appears on the wire.
func (c Card) String() string {
	if n, ok := cardNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Card(%d)", int(c))
}

// Type returns the catalogue type of the card.
func (c Card) Type() CardType {
	return cardTypes[c]
}

// RequiresKey reports whether playing the card also consumes an Encryption Key.
func (c Card) RequiresKey() bool {
	return keyedCards[c]
}

// Challengeable reports whether a play of this card opens a challenge window.
func (c Card) Challengeable() bool {
	return challengeableCards[c]
}

// Weight returns the card's strength in a Botnet weight duel.
func (c Card) Weight() int {
	return cardWeights[c]
}

// ParseCard maps a display name back to a Card. Returns false for names
// outside the catalogue.
func ParseCard(name string) (Card, bool) {
	c, ok := cardsByName[name]
	return c, ok
}

// Cards serialize by display name so room documents and events stay readable.

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	card, ok := ParseCard(name)
	if !ok {
		return fmt.Errorf("unknown card name %q", name)
	}
	*c = card
	return nil
}
