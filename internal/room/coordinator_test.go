// internal/room/coordinator_test.go
package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeheist/codeheist/internal/cache"
	"github.com/codeheist/codeheist/internal/game"
)

// fakeStore is an in-memory Store with a failure switch for rollback tests.
type fakeStore struct {
	mu          sync.Mutex
	updates     int
	deletes     int
	failUpdates bool
}

func (s *fakeStore) CreateRoom(ctx context.Context, r *game.Room) error { return nil }

func (s *fakeStore) UpdateRoom(ctx context.Context, r *game.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdates {
		return errors.New("database is down")
	}
	s.updates++
	return nil
}

func (s *fakeStore) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	return nil
}

func (s *fakeStore) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdates = fail
}

type fakeStats struct {
	mu      sync.Mutex
	results map[uuid.UUID]bool
}

func newFakeStats() *fakeStats {
	return &fakeStats{results: make(map[uuid.UUID]bool)}
}

func (s *fakeStats) RecordResult(ctx context.Context, userID uuid.UUID, won bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[userID] = won
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	recs []cache.ActionRecord
}

func (q *fakeQueue) Publish(ctx context.Context, rec cache.ActionRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.recs = append(q.recs, rec)
	return nil
}

func (q *fakeQueue) records() []cache.ActionRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]cache.ActionRecord(nil), q.recs...)
}

// nextEvent pops one outbound message from a session with a timeout.
func nextEvent(t *testing.T, sess *Session) interface{} {
	t.Helper()
	select {
	case msg := <-sess.Out:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outbound message")
		return nil
	}
}

func drainEvents(sess *Session) []interface{} {
	var msgs []interface{}
	for {
		select {
		case msg := <-sess.Out:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func setupRoom(t *testing.T) (*Manager, *Coordinator, *fakeStore, *fakeStats, *fakeQueue, *Session) {
	t.Helper()
	store := &fakeStore{}
	stats := newFakeStats()
	queue := &fakeQueue{}
	mgr := NewManager(store, stats, queue, testLogger(), nil)

	hostSess := NewSession(uuid.New(), "alice", func() {})
	coord, snap, err := mgr.CreateRoom(context.Background(), hostSess.UserID, "alice", "the vault", 4, hostSess)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Len(t, snap.Players, 1)
	require.True(t, snap.Players[0].IsHost)
	return mgr, coord, store, stats, queue, hostSess
}

func join(t *testing.T, coord *Coordinator, name string) *Session {
	t.Helper()
	sess := NewSession(uuid.New(), name, func() {})
	res := coord.Submit(context.Background(), &Command{
		Kind:     CmdJoin,
		ActorID:  sess.UserID,
		Username: name,
		Session:  sess,
	})
	require.NoError(t, res.Err)
	return sess
}

func TestJoinBroadcastsToSeatedPlayers(t *testing.T) {
	_, coord, _, _, _, hostSess := setupRoom(t)
	defer coord.Stop()

	bob := join(t, coord, "bob")

	ev, ok := nextEvent(t, hostSess).(game.Event)
	require.True(t, ok)
	assert.Equal(t, game.EventPlayerJoined, ev.Type)
	assert.Equal(t, "bob", ev.User.Username)

	// The joiner sees the room through their reply snapshot, not the
	// broadcast that announced them.
	assert.Empty(t, drainEvents(bob))
}

func TestDuplicateJoinRejected(t *testing.T) {
	_, coord, _, _, _, hostSess := setupRoom(t)
	defer coord.Stop()

	res := coord.Submit(context.Background(), &Command{
		Kind:     CmdJoin,
		ActorID:  hostSess.UserID,
		Username: "alice",
		Session:  hostSess,
	})
	require.Error(t, res.Err)
	re, ok := game.AsRuleError(res.Err)
	require.True(t, ok)
	assert.Equal(t, game.CodeValidation, re.Code)
}

func TestPersistFailureRollsBack(t *testing.T) {
	_, coord, store, _, _, hostSess := setupRoom(t)
	defer coord.Stop()
	bob := join(t, coord, "bob")
	// Consume the join broadcast so the assertion below only sees events
	// emitted by the failed command.
	nextEvent(t, hostSess)

	store.setFail(true)
	res := coord.Submit(context.Background(), &Command{
		Kind:    CmdReady,
		ActorID: bob.UserID,
	})
	require.Error(t, res.Err)
	var ie *InfraError
	require.ErrorAs(t, res.Err, &ie)

	assert.Empty(t, drainEvents(hostSess), "nothing is broadcast for an aborted command")

	// The room must still be at its last committed state.
	store.setFail(false)
	res = coord.Submit(context.Background(), &Command{
		Kind:    CmdResync,
		ActorID: bob.UserID,
	})
	require.NoError(t, res.Err)
	for _, ps := range res.Snapshot.Players {
		assert.False(t, ps.IsReady, "rolled-back toggle left no trace")
	}
}

func TestFullGameThroughCoordinator(t *testing.T) {
	mgr, coord, _, stats, queue, hostSess := setupRoom(t)
	bob := join(t, coord, "bob")

	ctx := context.Background()
	res := coord.Submit(ctx, &Command{Kind: CmdReady, ActorID: bob.UserID})
	require.NoError(t, res.Err)

	res = coord.Submit(ctx, &Command{Kind: CmdStart, ActorID: hostSess.UserID, Username: "alice"})
	require.NoError(t, res.Err)
	assert.Equal(t, game.StatePlaying, res.Snapshot.State)

	// A mid-game leave eliminates the seat; with one survivor the game ends.
	res = coord.Submit(ctx, &Command{Kind: CmdLeave, ActorID: bob.UserID, Username: "bob"})
	require.NoError(t, res.Err)
	assert.Equal(t, game.StateEnded, res.Snapshot.State)
	assert.Equal(t, "alice", res.Snapshot.Winner)

	stats.mu.Lock()
	won, ok := stats.results[hostSess.UserID]
	lost, ok2 := stats.results[bob.UserID]
	stats.mu.Unlock()
	require.True(t, ok, "winner result recorded")
	require.True(t, ok2, "loser result recorded")
	assert.True(t, won)
	assert.False(t, lost)

	recs := queue.records()
	require.NotEmpty(t, recs, "actions flowed to the historian queue")
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.ActionIndex, "action log is gap free")
		assert.Equal(t, coord.Code(), rec.RoomCode)
	}

	// The winner leaving empties the room, which reaps it.
	res = coord.Submit(ctx, &Command{Kind: CmdLeave, ActorID: hostSess.UserID, Username: "alice"})
	require.NoError(t, res.Err)
	require.Eventually(t, func() bool {
		_, ok := mgr.GetRoom(coord.Code())
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "empty room leaves the directory")
}

func TestSubmitAfterStopFailsFast(t *testing.T) {
	_, coord, _, _, _, hostSess := setupRoom(t)
	coord.Stop()

	done := make(chan Result, 1)
	go func() {
		done <- coord.Submit(context.Background(), &Command{
			Kind:    CmdReady,
			ActorID: hostSess.UserID,
		})
	}()

	select {
	case res := <-done:
		require.ErrorIs(t, res.Err, ErrRoomClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked against a stopped coordinator")
	}
}

func TestChatSkipsPersistence(t *testing.T) {
	_, coord, store, _, _, hostSess := setupRoom(t)
	defer coord.Stop()

	store.setFail(true)
	res := coord.Submit(context.Background(), &Command{
		Kind:    CmdChat,
		ActorID: hostSess.UserID,
		Text:    "anyone home?",
	})
	require.NoError(t, res.Err, "chat is not game state and survives a dead database")

	ev, ok := nextEvent(t, hostSess).(game.Event)
	require.True(t, ok)
	assert.Equal(t, game.EventChatMessage, ev.Type)
	assert.Equal(t, "anyone home?", ev.Message)
}

func TestConcurrentCommandsSerialize(t *testing.T) {
	_, coord, _, _, _, hostSess := setupRoom(t)
	defer coord.Stop()

	const flips = 20
	var wg sync.WaitGroup
	for i := 0; i < flips; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord.Submit(context.Background(), &Command{
				Kind:    CmdReady,
				ActorID: hostSess.UserID,
			})
		}()
	}
	wg.Wait()

	res := coord.Submit(context.Background(), &Command{
		Kind:    CmdResync,
		ActorID: hostSess.UserID,
	})
	require.NoError(t, res.Err)
	// An even number of toggles lands back on not ready; the point is that
	// every flip applied atomically rather than racing.
	assert.False(t, res.Snapshot.Players[0].IsReady)
}

func TestListingReflectsCommittedState(t *testing.T) {
	mgr, coord, _, _, _, _ := setupRoom(t)
	defer coord.Stop()
	join(t, coord, "bob")

	listings := mgr.ActiveRooms(context.Background())
	require.Len(t, listings, 1)
	assert.Equal(t, coord.Code(), listings[0].RoomCode)
	assert.Equal(t, "the vault", listings[0].RoomName)
	assert.Equal(t, string(game.StateWaiting), listings[0].State)
	assert.Equal(t, 2, listings[0].PlayerCount)
	assert.Equal(t, 4, listings[0].MaxPlayers)
}

func TestDisconnectKeepsSeat(t *testing.T) {
	_, coord, _, _, _, hostSess := setupRoom(t)
	defer coord.Stop()
	bob := join(t, coord, "bob")
	drainEvents(hostSess)

	coord.Disconnect(bob.UserID)

	ev, ok := nextEvent(t, hostSess).(game.Event)
	require.True(t, ok)
	assert.Equal(t, game.EventPlayerDisconnected, ev.Type)

	// The seat survives; a reconnecting bob resyncs straight back in.
	res := coord.Submit(context.Background(), &Command{
		Kind:    CmdResync,
		ActorID: bob.UserID,
		Session: bob,
	})
	require.NoError(t, res.Err)
	assert.Len(t, res.Snapshot.Players, 2)
}
