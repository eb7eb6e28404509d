// Package race holds the multiplayer room registry and the per-room race
// session state machine: lobby, countdown, racing, finished.
package race

import (
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/typerace/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCountdown is the number of countdown ticks announced before a race.
	DefaultCountdown = 3

	// maxIDAttempts bounds room id collision retries.
	maxIDAttempts = 64
)

// ResultSink receives the standings of every completed race. RecordRace is
// called with a room lock held and must not block.
type ResultSink interface {
	RecordRace(result models.RaceResult)
}

// Options configures a Registry. Zero values select defaults.
type Options struct {
	IDs       IDGenerator
	Passages  PassageSource
	Scheduler Scheduler
	Results   ResultSink
	Logger    logrus.FieldLogger

	// Countdown is the number announced in game-countdown; the race starts
	// Countdown*Tick after the last player readies.
	Countdown int
	Tick      time.Duration
}

// Registry owns every live room. It is the only component that mutates room
// state; the gateway calls one operation per inbound event with the sending
// connection as actor.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	ids       IDGenerator
	passages  PassageSource
	scheduler Scheduler
	results   ResultSink
	out       Broadcaster
	log       logrus.FieldLogger

	countdown int
	tick      time.Duration
}

// NewRegistry creates an empty registry that delivers events through out.
func NewRegistry(out Broadcaster, opts Options) *Registry {
	reg := &Registry{
		rooms:     make(map[string]*Room),
		ids:       opts.IDs,
		passages:  opts.Passages,
		scheduler: opts.Scheduler,
		results:   opts.Results,
		out:       out,
		log:       opts.Logger,
		countdown: opts.Countdown,
		tick:      opts.Tick,
	}
	if reg.ids == nil {
		reg.ids = UUIDRoomIDs{}
	}
	if reg.passages == nil {
		reg.passages = NewCorpus(DefaultPassages)
	}
	if reg.scheduler == nil {
		reg.scheduler = NewTimerScheduler()
	}
	if reg.log == nil {
		reg.log = logrus.StandardLogger()
	}
	if reg.countdown <= 0 {
		reg.countdown = DefaultCountdown
	}
	if reg.tick <= 0 {
		reg.tick = time.Second
	}
	return reg
}

// Close cancels every pending countdown. The registry must not be used afterwards.
func (reg *Registry) Close() {
	reg.scheduler.Stop()
}

// CreateRoom opens a room with connID as its only player and host, and sends
// room-created to the creator.
func (reg *Registry) CreateRoom(connID, playerName string) (string, error) {
	if playerName == "" {
		playerName = defaultPlayerName(1)
	}

	reg.mu.Lock()
	id, err := reg.allocateIDUnsafe()
	if err != nil {
		reg.mu.Unlock()
		return "", err
	}
	room := newRoom(id, connID, playerName, reg.passages.Pick())
	reg.rooms[id] = room
	room.mu.Lock()
	reg.mu.Unlock()
	defer room.mu.Unlock()

	reg.out.Subscribe(id, connID)
	reg.out.SendTo(connID, Event{Type: EventRoomCreated, Data: RoomCreatedPayload{RoomID: id, IsHost: true}})

	reg.log.WithFields(logrus.Fields{"room": id, "conn": connID}).Info("room created")
	return id, nil
}

func (reg *Registry) allocateIDUnsafe() (string, error) {
	for range maxIDAttempts {
		id := reg.ids.NewRoomID()
		if _, taken := reg.rooms[id]; !taken {
			return id, nil
		}
	}
	return "", ErrRoomIDsExhausted
}

// JoinRoom appends connID to the room. The joiner receives room-joined with
// the full snapshot; everyone else receives player-joined.
func (reg *Registry) JoinRoom(roomID, connID, playerName string) (Snapshot, error) {
	room := reg.lookup(roomID)
	if room == nil {
		return Snapshot{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return Snapshot{}, ErrRoomNotFound
	}
	if room.state != StateLobby {
		return Snapshot{}, ErrRaceInProgress
	}

	if room.indexOfUnsafe(connID) < 0 {
		if playerName == "" {
			playerName = defaultPlayerName(len(room.players) + 1)
		}
		room.players = append(room.players, Player{ID: connID, Name: playerName})
		reg.out.Subscribe(roomID, connID)
		reg.out.BroadcastExcept(roomID, connID, Event{
			Type: EventPlayerJoined,
			Data: PlayersPayload{Players: room.playersUnsafe()},
		})
		reg.log.WithFields(logrus.Fields{"room": roomID, "conn": connID}).Info("player joined")
	}

	snap := room.snapshotUnsafe()
	reg.out.SendTo(connID, Event{Type: EventRoomJoined, Data: RoomJoinedPayload{
		RoomID:  roomID,
		IsHost:  room.hostID == connID,
		Players: snap.Players,
		Text:    snap.Text,
	}})
	return snap, nil
}

// RemovePlayer takes connID out of the room. It is a no-op if either is
// unknown, so an explicit leave followed by a disconnect sweep is harmless.
// The last departure deletes the room; otherwise the host passes to the
// first remaining player if needed and player-left is broadcast.
func (reg *Registry) RemovePlayer(roomID, connID string) {
	reg.mu.Lock()
	room, ok := reg.rooms[roomID]
	if !ok {
		reg.mu.Unlock()
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.removeUnsafe(connID) {
		reg.mu.Unlock()
		return
	}
	reg.out.Unsubscribe(roomID, connID)
	logger := reg.log.WithFields(logrus.Fields{"room": roomID, "conn": connID})

	if len(room.players) == 0 {
		delete(reg.rooms, roomID)
		room.closed = true
		reg.mu.Unlock()
		reg.scheduler.Cancel(roomID)
		logger.Info("room deleted")
		return
	}
	reg.mu.Unlock()

	if room.hostID == connID {
		room.hostID = room.players[0].ID
		logger.WithField("host", room.hostID).Info("host reassigned")
	}
	reg.out.Broadcast(roomID, Event{
		Type: EventPlayerLeft,
		Data: PlayerLeftPayload{Players: room.playersUnsafe(), NewHost: room.hostID},
	})
	logger.Info("player left")

	// Everyone still in the race may already be done.
	if room.state == StateRacing && room.allFinishedUnsafe() {
		reg.finishUnsafe(room)
	}
}

// Disconnect removes connID from every room it belongs to.
func (reg *Registry) Disconnect(connID string) {
	reg.mu.Lock()
	ids := make([]string, 0, len(reg.rooms))
	for id := range reg.rooms {
		ids = append(ids, id)
	}
	reg.mu.Unlock()

	for _, id := range ids {
		reg.RemovePlayer(id, connID)
	}
}

// Room returns a snapshot of a live room.
func (reg *Registry) Room(roomID string) (Snapshot, bool) {
	room := reg.lookup(roomID)
	if room == nil {
		return Snapshot{}, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return Snapshot{}, false
	}
	return room.snapshotUnsafe(), true
}

// Rooms returns snapshots of every live room.
func (reg *Registry) Rooms() []Snapshot {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	out := make([]Snapshot, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.closed {
			out = append(out, r.snapshotUnsafe())
		}
		r.mu.Unlock()
	}
	return out
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

func (reg *Registry) lookup(roomID string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.rooms[roomID]
}

func defaultPlayerName(n int) string {
	return fmt.Sprintf("Player %d", n)
}
