// internal/game/effects_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayValidation(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)
	cur := r.CurrentPlayer()
	other := r.Players[1]
	tid := other.UserID

	_, err := r.Play(other.UserID, Firewall, nil)
	assert.Error(t, err, "not your turn")

	cur.Hand = []Card{Firewall}
	_, err = r.Play(cur.UserID, Debugger, &tid)
	re, ok := AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, re.Code, "card not in hand")

	cur.Hand = []Card{EncryptionKey}
	_, err = r.Play(cur.UserID, EncryptionKey, nil)
	re, ok = AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, CodeIllegalPlay, re.Code, "Encryption Key has no standalone play")

	cur.Hand = []Card{MasterAlgorithm}
	_, err = r.Play(cur.UserID, MasterAlgorithm, nil)
	re, ok = AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, CodeIllegalPlay, re.Code, "Master Algorithm has no standalone play")

	cur.Hand = []Card{SystemOverride}
	_, err = r.Play(cur.UserID, SystemOverride, &tid)
	re, ok = AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, CodeMissingPrerequisite, re.Code, "keyed card without an Encryption Key")
	assert.Len(t, cur.Hand, 1, "rejected play leaves the hand untouched")

	cur.Hand = []Card{Botnet, EncryptionKey}
	_, err = r.Play(cur.UserID, Botnet, nil)
	assert.Error(t, err, "Botnet requires a target")

	self := cur.UserID
	_, err = r.Play(cur.UserID, Botnet, &self)
	assert.Error(t, err, "cannot target yourself")

	ghost := uuid.New()
	_, err = r.Play(cur.UserID, Botnet, &ghost)
	assert.Error(t, err, "target must be in the room")

	other.IsEliminated = true
	_, err = r.Play(cur.UserID, Botnet, &tid)
	assert.Error(t, err, "cannot target an eliminated player")
	assert.Len(t, cur.Hand, 2, "every rejection is state preserving")
}

func TestFirewallAndCloakFlags(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	cur := r.CurrentPlayer()

	cur.Hand = []Card{Firewall, VPNCloak}
	out, err := r.Play(cur.UserID, Firewall, nil)
	require.NoError(t, err)
	assert.True(t, cur.HasFirewall)
	assert.False(t, r.ChallengePhase, "Firewall is not challengeable")
	require.NotEmpty(t, out.Events)
	assert.Equal(t, EventCardPlayed, out.Events[0].Type)

	_, err = r.Play(cur.UserID, VPNCloak, nil)
	require.NoError(t, err)
	assert.True(t, cur.HasVPNCloak)

	// Both protections expire when the owner's turn ends.
	_, err = r.EndTurn(cur.UserID)
	require.NoError(t, err)
	assert.False(t, cur.HasFirewall)
	assert.False(t, cur.HasVPNCloak)
	assert.Nil(t, cur.LastPlayed)
}

func TestBotnetWeightDuel(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	actor.LifeTokens = 2
	target.LifeTokens = 2
	actor.Hand = []Card{Botnet, EncryptionKey, MasterAlgorithm}
	target.Hand = []Card{EncryptionKey}

	_, err := r.Play(actor.UserID, Botnet, &tid)
	require.NoError(t, err)
	assert.Equal(t, 1, target.LifeTokens, "heavier attacking hand wins the duel")
	assert.Equal(t, 2, actor.LifeTokens)
	assert.True(t, r.ChallengePhase, "Botnet opens a challenge window")
	assert.True(t, target.CanChallenge)
	assert.False(t, actor.CanChallenge)
}

func TestBotnetTieBackfires(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	actor.LifeTokens = 2
	target.LifeTokens = 2
	// After the Botnet and key discard both hands weigh the same.
	actor.Hand = []Card{Botnet, EncryptionKey, Debugger}
	target.Hand = []Card{VPNCloak}

	_, err := r.Play(actor.UserID, Botnet, &tid)
	require.NoError(t, err)
	assert.Equal(t, 1, actor.LifeTokens, "ties favor the defender")
	assert.Equal(t, 2, target.LifeTokens)
}

func TestBotnetBackfireCanEliminateActor(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	actor.LifeTokens = 1
	actor.Hand = []Card{Botnet, EncryptionKey}
	target.Hand = []Card{MasterAlgorithm}

	_, err := r.Play(actor.UserID, Botnet, &tid)
	require.NoError(t, err)
	assert.True(t, actor.IsEliminated)
	assert.False(t, r.ChallengePhase, "no window opens for an eliminated actor")
	assert.NotEqual(t, actor.UserID, r.CurrentPlayer().UserID, "turn moves off the dead seat")
	assert.Empty(t, actor.Hand, "eliminated hand is surrendered")
}

func TestBotnetBlockedByFirewallConsumesIt(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	target.LifeTokens = 2
	target.HasFirewall = true
	actor.Hand = []Card{Botnet, EncryptionKey, MasterAlgorithm}

	_, err := r.Play(actor.UserID, Botnet, &tid)
	require.NoError(t, err)
	assert.False(t, target.HasFirewall, "Firewall is spent blocking")
	assert.Equal(t, 2, target.LifeTokens, "no token lost")
}

func TestBotnetBlockedByCloakKeepsCloak(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	target.LifeTokens = 2
	target.HasVPNCloak = true
	actor.Hand = []Card{Botnet, EncryptionKey, MasterAlgorithm}

	_, err := r.Play(actor.UserID, Botnet, &tid)
	require.NoError(t, err)
	assert.True(t, target.HasVPNCloak, "cloak blocks without being consumed")
	assert.Equal(t, 2, target.LifeTokens)
}

func TestSystemOverrideSwapsHands(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	actor.Hand = []Card{SystemOverride, EncryptionKey, Debugger}
	target.Hand = []Card{MasterAlgorithm}

	out, err := r.Play(actor.UserID, SystemOverride, &tid)
	require.NoError(t, err)
	assert.Equal(t, []Card{MasterAlgorithm}, actor.Hand)
	assert.Equal(t, []Card{Debugger}, target.Hand)
	assert.Len(t, out.Private, 2, "both players privately learn their new hands")
	assert.True(t, r.ChallengePhase)
}

func TestSystemOverrideFizzlesAgainstCloak(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	target.HasVPNCloak = true
	actor.Hand = []Card{SystemOverride, EncryptionKey, Debugger}
	target.Hand = []Card{MasterAlgorithm}

	_, err := r.Play(actor.UserID, SystemOverride, &tid)
	require.NoError(t, err)
	assert.Equal(t, []Card{Debugger}, actor.Hand, "no swap through a cloak")
	assert.Equal(t, []Card{MasterAlgorithm}, target.Hand)
	assert.Contains(t, r.DiscardPile, SystemOverride, "the played card stays spent")
	assert.Contains(t, r.DiscardPile, EncryptionKey)
}

func TestExploitScriptForcedDiscard(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	actor.Hand = []Card{ExploitScript}
	target.Hand = []Card{Firewall}

	before := r.CardsInPlay()
	_, err := r.Play(actor.UserID, ExploitScript, &tid)
	require.NoError(t, err)
	assert.Empty(t, target.Hand)
	assert.Contains(t, r.DiscardPile, Firewall)
	assert.Equal(t, before, r.CardsInPlay())
	assert.False(t, target.IsEliminated)
}

func TestExploitScriptDroppingMasterAlgorithmEliminates(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	actor.Hand = []Card{ExploitScript}
	target.Hand = []Card{MasterAlgorithm}
	target.LifeTokens = 2

	out, err := r.Play(actor.UserID, ExploitScript, &tid)
	require.NoError(t, err)
	assert.True(t, target.IsEliminated, "losing the Master Algorithm is fatal regardless of tokens")
	assert.Equal(t, StateEnded, r.State, "last survivor wins immediately")
	assert.Equal(t, actor.Username, r.Winner)
	require.NotEmpty(t, out.Events)
	assert.Equal(t, EventCardPlayed, out.Events[0].Type, "the play announcement precedes the fallout")
	assert.Equal(t, EventGameEnded, out.Events[len(out.Events)-1].Type)
}

func TestDebuggerRevealIsPrivate(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	actor.Hand = []Card{Debugger}
	target.Hand = []Card{MasterAlgorithm}

	out, err := r.Play(actor.UserID, Debugger, &tid)
	require.NoError(t, err)

	require.Len(t, out.Private, 1)
	pe := out.Private[0]
	assert.Equal(t, actor.UserID, pe.To, "only the actor sees the hand")
	assert.Equal(t, EventCardRevealed, pe.Ev.Type)
	assert.Equal(t, []string{"Master Algorithm"}, pe.Ev.Payload["hand"])

	for _, ev := range out.Events {
		assert.NotContains(t, ev.Payload, "hand", "broadcasts never leak hand contents")
	}
}

func TestCardConservationAcrossPlays(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)
	require.Equal(t, DeckSize, r.CardsInPlay())

	for turn := 0; turn < 6; turn++ {
		cur := r.CurrentPlayer()
		if cur == nil {
			break
		}
		if len(cur.Hand) < HandCapacity {
			_, err := r.Draw(cur.UserID)
			require.NoError(t, err)
		}
		assert.Equal(t, DeckSize, r.CardsInPlay(), "conservation after draw")
		_, err := r.EndTurn(cur.UserID)
		require.NoError(t, err)
		assert.Equal(t, DeckSize, r.CardsInPlay(), "conservation after end turn")
	}
}
