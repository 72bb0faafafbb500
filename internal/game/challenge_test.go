// internal/game/challenge_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeRequiresPermission(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)

	_, err := r.Challenge(r.Players[1].UserID)
	re, ok := AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, CodePreconditionFailed, re.Code, "no window, no challenge")
}

func TestChallengeLegitimatePlayEliminatesChallenger(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	challenger := r.Players[2]
	tid := target.UserID

	actor.Hand = []Card{ExploitScript}
	target.Hand = []Card{Firewall}
	challenger.LifeTokens = 2

	_, err := r.Play(actor.UserID, ExploitScript, &tid)
	require.NoError(t, err)
	require.True(t, challenger.CanChallenge)

	out, err := r.Challenge(challenger.UserID)
	require.NoError(t, err)

	assert.True(t, challenger.IsEliminated, "a failed challenge is fatal whatever the token count")
	assert.False(t, actor.IsEliminated)
	assert.False(t, r.ChallengePhase)
	assert.Nil(t, r.Pending)

	require.NotEmpty(t, out.Events)
	assert.Equal(t, EventChallengeResult, out.Events[0].Type)
	assert.Equal(t, true, out.Events[0].Payload["legitimate"])
}

func TestChallengeBluffEliminatesActor(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	challenger := r.Players[1]

	// Stage an adjudication mismatch: the pending record claims a card the
	// actor never actually committed.
	bluffed := Botnet
	actual := Debugger
	actor.LastPlayed = &actual
	r.ChallengePhase = true
	r.Pending = &PendingPlay{ActorID: actor.UserID, Card: bluffed}
	challenger.CanChallenge = true

	out, err := r.Challenge(challenger.UserID)
	require.NoError(t, err)

	assert.True(t, actor.IsEliminated, "a caught bluff eliminates the actor")
	assert.False(t, challenger.IsEliminated)
	assert.Equal(t, false, out.Events[0].Payload["legitimate"])
	assert.NotEqual(t, actor.UserID, r.CurrentPlayer().UserID, "turn leaves the eliminated actor")
}

func TestChallengeWindowIsExclusive(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	target := r.Players[1]
	tid := target.UserID

	actor.Hand = []Card{ExploitScript, Debugger}
	target.Hand = []Card{Firewall}

	_, err := r.Play(actor.UserID, ExploitScript, &tid)
	require.NoError(t, err)
	require.True(t, r.ChallengePhase)

	_, err = r.Play(actor.UserID, Debugger, &tid)
	assert.Error(t, err, "no new plays while the window is open")
	_, err = r.Draw(actor.UserID)
	assert.Error(t, err, "no draws while the window is open")

	_, err = r.Challenge(actor.UserID)
	assert.Error(t, err, "the acting player cannot challenge their own play")
}

func TestChallengeEndsGameWhenOnePlayerRemains(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	actor := r.CurrentPlayer()
	challenger := r.Players[1]
	tid := challenger.UserID

	actor.Hand = []Card{ExploitScript}
	challenger.Hand = []Card{Firewall}

	_, err := r.Play(actor.UserID, ExploitScript, &tid)
	require.NoError(t, err)

	out, err := r.Challenge(challenger.UserID)
	require.NoError(t, err)

	assert.Equal(t, StateEnded, r.State)
	assert.Equal(t, actor.Username, r.Winner)
	assert.Equal(t, EventGameEnded, out.Events[len(out.Events)-1].Type)

	_, err = r.Draw(actor.UserID)
	assert.Error(t, err, "ended is terminal")
}
