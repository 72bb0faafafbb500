package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeheist/codeheist/internal/database"
	"github.com/codeheist/codeheist/internal/game"
	"github.com/codeheist/codeheist/internal/metrics"
	"github.com/codeheist/codeheist/internal/middleware"
	"github.com/codeheist/codeheist/internal/room"
)

// ClientMessage is the envelope for every inbound WebSocket command. Fields
// beyond Type are optional and depend on the command.
type ClientMessage struct {
	Type string `json:"type"`

	// RoomCode targets an existing room (join_room).
	RoomCode string `json:"roomCode,omitempty"`

	// RoomName and MaxPlayers configure a new room (create_room).
	RoomName   string `json:"roomName,omitempty"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`

	// Card names the card to play, e.g. "VPN Cloak" (play_card).
	Card string `json:"card,omitempty"`

	// TargetID names the target player for targeted cards (play_card).
	TargetID string `json:"targetId,omitempty"`

	// Message carries chat text (chat_message).
	Message string `json:"message,omitempty"`

	// Limit caps the number of rows returned (get_leaderboard).
	Limit int `json:"limit,omitempty"`
}

const wsWriteTimeout = 3 * time.Second

// RoomWSHandler upgrades the connection, authenticates the user (minting a
// guest account when needed), and runs the command loop. One connection
// belongs to at most one room at a time.
func RoomWSHandler(logger *logrus.Logger, mgr *room.Manager, stats *database.StatsStore, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"codeheist"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "codeheist" {
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'codeheist' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		userID, username, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("User authentication failed: %v", err)
			c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
			return
		}

		if m != nil {
			m.OnlinePlayers.Inc()
			defer m.OnlinePlayers.Dec()
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := room.NewSession(userID, username, cancel)
		go writePump(ctx, c, sess, logger)

		conn := &wsConn{
			sess:    sess,
			mgr:     mgr,
			stats:   stats,
			metrics: m,
			log:     logger,
		}
		readErr := conn.readLoop(ctx, c)

		if conn.coord != nil {
			conn.coord.Disconnect(userID)
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// writePump drains the session's outbound queue into the socket. It exits
// when the context is cancelled or a write fails.
func writePump(ctx context.Context, c *websocket.Conn, sess *room.Session, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sess.Out:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Errorf("failed to marshal outbound message for %s: %v", sess.UserID, err)
				continue
			}
			wctx, wcancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = c.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				logger.Warnf("write to %s failed: %v", sess.UserID, err)
				sess.Cancel()
				return
			}
		}
	}
}

// wsConn is the per-connection dispatch state. Only the read loop touches it.
type wsConn struct {
	sess    *room.Session
	mgr     *room.Manager
	coord   *room.Coordinator
	stats   *database.StatsStore
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func (wc *wsConn) readLoop(ctx context.Context, c *websocket.Conn) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			wc.sess.Write(room.ErrorReply{Type: "error", Code: "validation", Message: "invalid JSON"})
			continue
		}

		start := time.Now()
		dispatchErr := wc.dispatch(ctx, &msg)
		wc.observe(msg.Type, dispatchErr, time.Since(start))

		if dispatchErr != nil {
			wc.sess.Write(errorReply(dispatchErr))
		}
	}
}

func (wc *wsConn) observe(cmdType string, err error, elapsed time.Duration) {
	if wc.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		var re *game.RuleError
		if errors.As(err, &re) {
			result = "rejected"
		} else {
			result = "error"
		}
	}
	wc.metrics.Commands.WithLabelValues(cmdType, result).Inc()
	wc.metrics.CommandLatency.Observe(elapsed.Seconds())
}

// dispatch routes one command. Room-scoped commands require the connection
// to have created or joined a room first.
func (wc *wsConn) dispatch(ctx context.Context, msg *ClientMessage) error {
	switch msg.Type {
	case "create_room":
		return wc.createRoom(ctx, msg)
	case "join_room":
		return wc.joinRoom(ctx, msg)
	case "get_active_rooms":
		wc.sess.Write(map[string]interface{}{
			"type":  "active_rooms",
			"rooms": wc.mgr.ActiveRooms(ctx),
		})
		return nil
	case "get_leaderboard":
		rows, err := wc.stats.GetLeaderboard(ctx, msg.Limit)
		if err != nil {
			return room.NewInfraError(err)
		}
		wc.sess.Write(map[string]interface{}{
			"type":    "leaderboard",
			"players": rows,
		})
		return nil
	}

	if wc.coord == nil {
		return &game.RuleError{Code: game.CodePreconditionFailed, Message: "not in a room"}
	}

	cmd := &room.Command{
		ActorID:  wc.sess.UserID,
		Username: wc.sess.Username,
	}

	switch msg.Type {
	case "leave_room":
		cmd.Kind = room.CmdLeave
	case "toggle_ready":
		cmd.Kind = room.CmdReady
	case "start_game":
		cmd.Kind = room.CmdStart
	case "draw_card":
		cmd.Kind = room.CmdDraw
	case "play_card":
		cmd.Kind = room.CmdPlay
		cmd.Card = msg.Card
		if msg.TargetID != "" {
			target, err := uuid.Parse(msg.TargetID)
			if err != nil {
				return &game.RuleError{Code: game.CodeValidation, Message: "invalid targetId"}
			}
			cmd.Target = &target
		}
	case "end_turn":
		cmd.Kind = room.CmdEndTurn
	case "challenge_card":
		cmd.Kind = room.CmdChallenge
	case "chat_message":
		cmd.Kind = room.CmdChat
		cmd.Text = msg.Message
	case "resync":
		cmd.Kind = room.CmdResync
		cmd.Session = wc.sess
	default:
		return &game.RuleError{Code: game.CodeValidation, Message: "unknown command: " + msg.Type}
	}

	res := wc.coord.Submit(ctx, cmd)
	if errors.Is(res.Err, room.ErrRoomClosed) {
		// The reaper got there first. Detach so the client can join elsewhere.
		wc.coord = nil
		return &game.RuleError{Code: game.CodePreconditionFailed, Message: "room is closed"}
	}
	if res.Err != nil {
		return res.Err
	}

	if cmd.Kind == room.CmdLeave {
		wc.coord = nil
		return nil
	}
	if cmd.Kind == room.CmdResync && res.Snapshot != nil {
		wc.sess.Write(game.Event{Type: game.EventRoomUpdate, State: res.Snapshot})
	}
	return nil
}

func (wc *wsConn) createRoom(ctx context.Context, msg *ClientMessage) error {
	if wc.coord != nil {
		return &game.RuleError{Code: game.CodePreconditionFailed, Message: "already in a room"}
	}
	coord, snap, err := wc.mgr.CreateRoom(ctx, wc.sess.UserID, wc.sess.Username, msg.RoomName, msg.MaxPlayers, wc.sess)
	if err != nil {
		return err
	}
	wc.coord = coord
	wc.sess.Write(game.Event{Type: game.EventRoomUpdate, State: snap})
	return nil
}

func (wc *wsConn) joinRoom(ctx context.Context, msg *ClientMessage) error {
	if wc.coord != nil {
		return &game.RuleError{Code: game.CodePreconditionFailed, Message: "already in a room"}
	}
	code := strings.ToUpper(strings.TrimSpace(msg.RoomCode))
	coord, ok := wc.mgr.GetRoom(code)
	if !ok {
		// A room that survived a restart only exists as a document.
		coord, ok = wc.mgr.RestoreRoom(ctx, code)
	}
	if !ok {
		return &game.RuleError{Code: game.CodeValidation, Message: "room not found: " + code}
	}
	res := coord.Submit(ctx, &room.Command{
		Kind:     room.CmdJoin,
		ActorID:  wc.sess.UserID,
		Username: wc.sess.Username,
		Session:  wc.sess,
	})
	if res.Err != nil {
		return res.Err
	}
	wc.coord = coord
	wc.sess.Write(game.Event{Type: game.EventRoomUpdate, State: res.Snapshot})
	return nil
}

// errorReply maps an error to the structured form clients switch on.
func errorReply(err error) room.ErrorReply {
	var re *game.RuleError
	if errors.As(err, &re) {
		return room.ErrorReply{Type: "error", Code: string(re.Code), Message: re.Message}
	}
	var ie *room.InfraError
	if errors.As(err, &ie) {
		return room.ErrorReply{Type: "error", Code: "infrastructure_error", Message: "temporary failure, please retry"}
	}
	return room.ErrorReply{Type: "error", Code: "infrastructure_error", Message: err.Error()}
}
