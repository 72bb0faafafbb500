// internal/room/coordinator.go
package room

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeheist/codeheist/internal/cache"
	"github.com/codeheist/codeheist/internal/game"
)

// Store is the persistence surface the coordinator consumes. Each call is an
// atomic single-document operation; durability lives behind it.
type Store interface {
	CreateRoom(ctx context.Context, r *game.Room) error
	UpdateRoom(ctx context.Context, r *game.Room) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
}

// StatsStore records per-player results when a game finishes.
type StatsStore interface {
	RecordResult(ctx context.Context, userID uuid.UUID, won bool) error
}

// ActionLogger feeds the historian queue. Best effort; a failed publish never
// fails a command.
type ActionLogger interface {
	Publish(ctx context.Context, rec cache.ActionRecord) error
}

// CommandKind names an inbound room command.
type CommandKind string

const (
	CmdJoin      CommandKind = "join_room"
	CmdLeave     CommandKind = "leave_room"
	CmdReady     CommandKind = "toggle_ready"
	CmdStart     CommandKind = "start_game"
	CmdDraw      CommandKind = "draw_card"
	CmdPlay      CommandKind = "play_card"
	CmdEndTurn   CommandKind = "end_turn"
	CmdChallenge CommandKind = "challenge_card"
	CmdChat      CommandKind = "chat_message"
	CmdResync    CommandKind = "resync"
)

// Command is one unit of work for a room's mailbox. Exactly one command is in
// flight per room at any moment.
type Command struct {
	Kind     CommandKind
	ActorID  uuid.UUID
	Username string

	Card    string     // play_card
	Target  *uuid.UUID // play_card
	Text    string     // chat_message
	Session *Session   // join_room, resync

	Reply chan Result
}

// Result is the synchronous answer to the issuing client.
type Result struct {
	Err      error
	Snapshot *game.RoomSnapshot
}

// ErrRoomClosed is returned by Submit after the coordinator has stopped,
// typically because the reaper collected a long-ended room.
var ErrRoomClosed = errors.New("room is closed")

// InfraError marks a command aborted by the persistence layer. The room stays
// at its last committed state; the client should retry.
type InfraError struct {
	cause error
}

// NewInfraError wraps a persistence-layer failure.
func NewInfraError(cause error) *InfraError {
	return &InfraError{cause: cause}
}

func (e *InfraError) Error() string {
	return "command aborted: " + e.cause.Error()
}

func (e *InfraError) Unwrap() error { return e.cause }

// Coordinator owns one room's lifecycle and serializes every operation
// against it. All state mutation, persistence, and broadcast happen inside
// the actor loop; commands for different rooms run fully in parallel.
type Coordinator struct {
	code    string
	room    *game.Room
	mailbox chan *Command

	sessions map[uuid.UUID]*Session

	store   Store
	stats   StatsStore
	actions ActionLogger
	log     *logrus.Logger

	actionIndex    int
	resultRecorded bool

	quit     chan struct{}
	stopOnce sync.Once

	// onEmpty is invoked (outside the loop) after the last player leaves.
	onEmpty func(code string)
}

const mailboxDepth = 64

func newCoordinator(room *game.Room, store Store, stats StatsStore, actions ActionLogger, logger *logrus.Logger, onEmpty func(code string)) *Coordinator {
	c := &Coordinator{
		code:     room.Code,
		room:     room,
		mailbox:  make(chan *Command, mailboxDepth),
		sessions: make(map[uuid.UUID]*Session),
		store:    store,
		stats:    stats,
		actions:  actions,
		log:      logger,
		quit:     make(chan struct{}),
		onEmpty:  onEmpty,
	}
	go c.run()
	return c
}

// Code returns the room's join code.
func (c *Coordinator) Code() string { return c.code }

// Stop shuts the actor loop down. Commands still queued are abandoned; their
// submitters get ErrRoomClosed.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

// Submit queues a command and waits for its result. The context bounds the
// wait, not the execution: an accepted command always runs to completion.
// Submitting to a stopped coordinator fails immediately with ErrRoomClosed
// rather than waiting out the caller's context.
func (c *Coordinator) Submit(ctx context.Context, cmd *Command) Result {
	cmd.Reply = make(chan Result, 1)
	select {
	case c.mailbox <- cmd:
	case <-c.quit:
		return Result{Err: ErrRoomClosed}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
	select {
	case res := <-cmd.Reply:
		return res
	case <-c.quit:
		// The loop replies before checking quit, so a command it already
		// picked up may have an answer racing the shutdown.
		select {
		case res := <-cmd.Reply:
			return res
		default:
		}
		return Result{Err: ErrRoomClosed}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

func (c *Coordinator) run() {
	for {
		select {
		case cmd := <-c.mailbox:
			c.handle(cmd)
		case <-c.quit:
			return
		}
	}
}

func (c *Coordinator) handle(cmd *Command) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cmd.Kind {
	case CmdResync:
		// Read-only: full-state resync for a (re)connecting client.
		if cmd.Session != nil {
			c.sessions[cmd.ActorID] = cmd.Session
		}
		cmd.Reply <- Result{Snapshot: c.room.Snapshot(cmd.ActorID)}
		return
	case cmdListing:
		cmd.Reply <- Result{Snapshot: c.room.Snapshot(uuid.Nil)}
		return
	case cmdDisconnect:
		c.handleDisconnect(cmd)
		return
	case CmdJoin:
		c.handleJoin(ctx, cmd)
		return
	case CmdLeave:
		c.handleLeave(ctx, cmd)
		return
	}

	c.apply(ctx, cmd, func(r *game.Room) (*game.Outcome, error) {
		switch cmd.Kind {
		case CmdReady:
			return r.ToggleReady(cmd.ActorID)
		case CmdStart:
			return r.Start(cmd.ActorID)
		case CmdDraw:
			return r.Draw(cmd.ActorID)
		case CmdPlay:
			card, ok := game.ParseCard(cmd.Card)
			if !ok {
				return nil, &game.RuleError{Code: game.CodeValidation, Message: "unknown card: " + cmd.Card}
			}
			return r.Play(cmd.ActorID, card, cmd.Target)
		case CmdEndTurn:
			return r.EndTurn(cmd.ActorID)
		case CmdChallenge:
			return r.Challenge(cmd.ActorID)
		case CmdChat:
			return r.Chat(cmd.ActorID, cmd.Text)
		default:
			return nil, &game.RuleError{Code: game.CodeValidation, Message: "unknown command: " + string(cmd.Kind)}
		}
	})
}

// apply runs one mutating operation as an atomic unit: mutate a live copy,
// persist, and only then reply and broadcast. A persistence failure rolls the
// room back to its last committed state with nothing made visible.
func (c *Coordinator) apply(ctx context.Context, cmd *Command, op func(*game.Room) (*game.Outcome, error)) {
	prev := c.room.Clone()

	out, err := op(c.room)
	if err != nil {
		cmd.Reply <- Result{Err: err}
		return
	}

	// Chat never touches game state, so it skips the persistence round trip.
	if cmd.Kind != CmdChat {
		if perr := c.store.UpdateRoom(ctx, c.room); perr != nil {
			c.room = prev
			c.log.WithError(perr).Errorf("room %s: persist failed, rolled back %s", c.code, cmd.Kind)
			cmd.Reply <- Result{Err: &InfraError{cause: perr}}
			return
		}
	}

	cmd.Reply <- Result{Snapshot: c.room.Snapshot(cmd.ActorID)}
	c.deliver(out)
	c.publishAction(ctx, cmd, out)

	if c.room.State == game.StateEnded && !c.resultRecorded {
		c.resultRecorded = true
		c.recordResults(ctx)
	}
}

func (c *Coordinator) handleJoin(ctx context.Context, cmd *Command) {
	c.apply(ctx, cmd, func(r *game.Room) (*game.Outcome, error) {
		return r.AddPlayer(cmd.ActorID, cmd.Username)
	})
	// Register the session after the join committed; a rejected join leaves
	// the connection unregistered.
	if c.room.PlayerByID(cmd.ActorID) != nil && cmd.Session != nil {
		c.sessions[cmd.ActorID] = cmd.Session
	}
}

func (c *Coordinator) handleLeave(ctx context.Context, cmd *Command) {
	c.apply(ctx, cmd, func(r *game.Room) (*game.Outcome, error) {
		return r.RemovePlayer(cmd.ActorID)
	})
	delete(c.sessions, cmd.ActorID)

	// Seats eliminated by mid-game departures stay in the player list, so an
	// ended room counts connections instead of seats.
	if c.room.Empty() || (c.room.State == game.StateEnded && len(c.sessions) == 0) {
		if err := c.store.DeleteRoom(ctx, c.room.ID); err != nil {
			c.log.WithError(err).Warnf("room %s: delete after empty failed", c.code)
		}
		if c.onEmpty != nil {
			go c.onEmpty(c.code)
		}
		c.Stop()
	}
}

// Disconnect marks a connection as gone without removing the seat. The
// player can reconnect and resync; a waiting room just tells the others.
func (c *Coordinator) Disconnect(userID uuid.UUID) {
	cmd := &Command{Kind: cmdDisconnect, ActorID: userID, Reply: make(chan Result, 1)}
	select {
	case c.mailbox <- cmd:
		<-cmd.Reply
	default:
		// Mailbox saturated during teardown; the session map self-heals on
		// the next join/resync.
	}
}

const cmdDisconnect CommandKind = "disconnect"

func (c *Coordinator) handleDisconnect(cmd *Command) {
	sess, ok := c.sessions[cmd.ActorID]
	if ok {
		delete(c.sessions, cmd.ActorID)
		c.broadcastEvent(game.Event{
			Type: game.EventPlayerDisconnected,
			User: &game.EventUser{ID: cmd.ActorID, Username: sess.Username},
		})
	}
	cmd.Reply <- Result{}
}

// deliver fans a committed outcome out to the room.
func (c *Coordinator) deliver(out *game.Outcome) {
	if out == nil {
		return
	}
	for _, ev := range out.Events {
		c.broadcastEvent(ev)
	}
	for _, pe := range out.Private {
		if sess, ok := c.sessions[pe.To]; ok {
			sess.Write(pe.Ev)
		}
	}
}

func (c *Coordinator) broadcastEvent(ev game.Event) {
	for _, sess := range c.sessions {
		sess.Write(ev)
	}
}

// publishAction pushes one record onto the historian queue.
func (c *Coordinator) publishAction(ctx context.Context, cmd *Command, out *game.Outcome) {
	if c.actions == nil {
		return
	}
	c.actionIndex++
	rec := cache.ActionRecord{
		RoomID:      c.room.ID,
		RoomCode:    c.code,
		ActionIndex: c.actionIndex,
		ActorID:     cmd.ActorID,
		ActionType:  string(cmd.Kind),
		Timestamp:   time.Now().Unix(),
	}
	if out != nil {
		rec.Detail = out.Log
	}
	if cmd.Kind == CmdPlay {
		rec.Card = cmd.Card
	}
	if err := c.actions.Publish(ctx, rec); err != nil {
		c.log.WithError(err).Debugf("room %s: action publish failed", c.code)
	}
}

// recordResults writes win/loss counters for every seat once per game.
func (c *Coordinator) recordResults(ctx context.Context) {
	if c.stats == nil {
		return
	}
	for _, p := range c.room.Players {
		won := c.room.Winner != "" && p.Username == c.room.Winner
		if err := c.stats.RecordResult(ctx, p.UserID, won); err != nil {
			c.log.WithError(err).Warnf("room %s: stats update failed for %s", c.code, p.UserID)
		}
	}
}

// Listing exposes a point-in-time directory entry. It round-trips through
// the mailbox so it observes only committed state.
func (c *Coordinator) Listing(ctx context.Context) (Listing, error) {
	cmd := &Command{Kind: cmdListing, Reply: make(chan Result, 1)}
	select {
	case c.mailbox <- cmd:
	case <-ctx.Done():
		return Listing{}, ctx.Err()
	}
	select {
	case res := <-cmd.Reply:
		if res.Snapshot == nil {
			return Listing{}, nil
		}
		return Listing{
			RoomCode:    res.Snapshot.RoomCode,
			RoomName:    res.Snapshot.RoomName,
			State:       string(res.Snapshot.State),
			PlayerCount: len(res.Snapshot.Players),
			MaxPlayers:  res.Snapshot.MaxPlayers,
			endedAt:     res.Snapshot.EndedAt,
		}, nil
	case <-ctx.Done():
		return Listing{}, ctx.Err()
	}
}

const cmdListing CommandKind = "listing"

// Listing is the public directory entry for an active room.
type Listing struct {
	RoomCode    string `json:"roomCode"`
	RoomName    string `json:"roomName"`
	State       string `json:"gameState"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`

	endedAt *time.Time
}

// RoomID returns the room's immutable identifier.
func (c *Coordinator) RoomID() uuid.UUID { return c.room.ID }
