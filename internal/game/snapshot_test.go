// internal/game/snapshot_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotHidesOtherHands(t *testing.T) {
	r := newTestRoom(t, 3)
	startTestGame(t, r)
	viewer := r.Players[0]

	snap := r.Snapshot(viewer.UserID)
	require.Len(t, snap.Players, 3)

	for _, ps := range snap.Players {
		if ps.UserID == viewer.UserID {
			assert.Len(t, ps.Hand, ps.HandSize, "viewer sees their own cards")
		} else {
			assert.Nil(t, ps.Hand, "opponents' hands collapse to a count")
			assert.Equal(t, 1, ps.HandSize)
		}
	}
	assert.Equal(t, DeckSize-3, snap.DeckCount)
	assert.Equal(t, r.CurrentPlayer().Username, snap.CurrentPlayer)
}

func TestSnapshotForObserver(t *testing.T) {
	r := newTestRoom(t, 2)
	startTestGame(t, r)
	r.discard(Firewall)

	snap := r.Snapshot(uuid.Nil)
	for _, ps := range snap.Players {
		assert.Nil(t, ps.Hand)
	}
	assert.Equal(t, []string{"Firewall"}, snap.DiscardPile, "the discard pile is open information")

	hostSeats := 0
	for _, ps := range snap.Players {
		if ps.IsHost {
			hostSeats++
		}
	}
	assert.Equal(t, 1, hostSeats)
}
