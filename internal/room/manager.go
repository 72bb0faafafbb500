// internal/room/manager.go
package room

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeheist/codeheist/internal/game"
	"github.com/codeheist/codeheist/internal/metrics"
)

// Manager is the directory of live room coordinators, keyed by join code.
// It only guards the map; everything inside a room goes through that room's
// mailbox.
type Manager struct {
	mu       sync.Mutex
	rooms    map[string]*Coordinator
	reserved map[string]struct{} // codes claimed by in-flight creates

	store   Store
	stats   StatsStore
	actions ActionLogger
	log     *logrus.Logger
	metrics *metrics.Metrics

	codeRand *rand.Rand
}

// NewManager wires a manager against its collaborators. stats, actions, and
// m may be nil (tests run without them).
func NewManager(store Store, stats StatsStore, actions ActionLogger, logger *logrus.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		rooms:    make(map[string]*Coordinator),
		reserved: make(map[string]struct{}),
		store:    store,
		stats:    stats,
		actions:  actions,
		log:      logger,
		metrics:  m,
		codeRand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

// generateCode produces a short join code that is unique among live rooms.
// Assumes mu is held.
func (m *Manager) generateCode() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[m.codeRand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		_, live := m.rooms[code]
		_, pending := m.reserved[code]
		if !live && !pending {
			return code
		}
	}
}

// CreateRoom builds a new room coordinator hosted by the given user and seats
// the host in it.
func (m *Manager) CreateRoom(ctx context.Context, hostID uuid.UUID, hostName, roomName string, maxPlayers int, sess *Session) (*Coordinator, *game.RoomSnapshot, error) {
	// Claim the code under the lock, then persist without it so a slow
	// insert never stalls lookups of other rooms.
	m.mu.Lock()
	code := m.generateCode()
	m.reserved[code] = struct{}{}
	m.mu.Unlock()

	r := game.NewRoom(code, roomName, hostID, maxPlayers)
	if err := m.store.CreateRoom(ctx, r); err != nil {
		m.mu.Lock()
		delete(m.reserved, code)
		m.mu.Unlock()
		return nil, nil, &InfraError{cause: err}
	}

	coord := newCoordinator(r, m.store, m.stats, m.actions, m.log, m.onRoomEmpty)
	m.mu.Lock()
	delete(m.reserved, code)
	m.rooms[code] = coord
	m.mu.Unlock()

	m.log.Infof("room %s (%q) created by %s", code, roomName, hostName)
	if m.metrics != nil {
		m.metrics.ActiveRooms.Inc()
	}

	res := coord.Submit(ctx, &Command{
		Kind:     CmdJoin,
		ActorID:  hostID,
		Username: hostName,
		Session:  sess,
	})
	if res.Err != nil {
		return nil, nil, res.Err
	}
	return coord, res.Snapshot, nil
}

// GetRoom looks a coordinator up by join code.
func (m *Manager) GetRoom(code string) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rooms[code]
	return c, ok
}

// RestoreRoom revives a persisted room document that is not in memory,
// typically after a server restart. Returns false when the backing store
// cannot look rooms up by code or has no such room.
func (m *Manager) RestoreRoom(ctx context.Context, code string) (*Coordinator, bool) {
	type codeLookup interface {
		GetRoomByCode(ctx context.Context, code string) (*game.Room, error)
	}
	lk, ok := m.store.(codeLookup)
	if !ok {
		return nil, false
	}
	r, err := lk.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, false
	}

	m.mu.Lock()
	if c, exists := m.rooms[r.Code]; exists {
		m.mu.Unlock()
		return c, true
	}
	c := newCoordinator(r, m.store, m.stats, m.actions, m.log, m.onRoomEmpty)
	m.rooms[r.Code] = c
	m.mu.Unlock()

	m.log.Infof("room %s restored from storage", r.Code)
	if m.metrics != nil {
		m.metrics.ActiveRooms.Inc()
	}
	return c, true
}

// onRoomEmpty drops an emptied room from the directory.
func (m *Manager) onRoomEmpty(code string) {
	m.mu.Lock()
	_, existed := m.rooms[code]
	delete(m.rooms, code)
	m.mu.Unlock()
	if existed {
		m.log.Infof("room %s emptied and removed", code)
		if m.metrics != nil {
			m.metrics.ActiveRooms.Dec()
		}
	}
}

// ActiveRooms returns directory entries for every live room.
func (m *Manager) ActiveRooms(ctx context.Context) []Listing {
	m.mu.Lock()
	coords := make([]*Coordinator, 0, len(m.rooms))
	for _, c := range m.rooms {
		coords = append(coords, c)
	}
	m.mu.Unlock()

	listings := make([]Listing, 0, len(coords))
	for _, c := range coords {
		l, err := c.Listing(ctx)
		if err != nil {
			continue
		}
		listings = append(listings, l)
	}
	return listings
}

// StartReaper sweeps rooms that have sat in a terminal state for longer than
// maxEndedAge. Runs until ctx is done.
func (m *Manager) StartReaper(ctx context.Context, interval, maxEndedAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.reapEnded(ctx, maxEndedAge)
			}
		}
	}()
}

func (m *Manager) reapEnded(ctx context.Context, maxEndedAge time.Duration) {
	m.mu.Lock()
	coords := make(map[string]*Coordinator, len(m.rooms))
	for code, c := range m.rooms {
		coords[code] = c
	}
	m.mu.Unlock()

	for code, c := range coords {
		l, err := c.Listing(ctx)
		if err != nil {
			continue
		}
		if l.State != string(game.StateEnded) {
			continue
		}
		if l.endedAt == nil || time.Since(*l.endedAt) < maxEndedAge {
			continue
		}
		m.log.Infof("reaping ended room %s", code)
		if err := m.store.DeleteRoom(ctx, c.RoomID()); err != nil {
			m.log.WithError(err).Warnf("reaper: delete room %s failed", code)
		}
		c.Stop()
		m.onRoomEmpty(code)
	}
}
