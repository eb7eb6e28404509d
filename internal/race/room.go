package race

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the race session state of a room.
//
//	Lobby -> Countdown -> Racing -> Finished -> Lobby
//
// Finished is transient: the room is reset to Lobby in the same step that
// broadcasts the final standings.
type State int

const (
	StateLobby State = iota
	StateCountdown
	StateRacing
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateCountdown:
		return "countdown"
	case StateRacing:
		return "racing"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "lobby":
		*s = StateLobby
	case "countdown":
		*s = StateCountdown
	case "racing":
		*s = StateRacing
	case "finished":
		*s = StateFinished
	default:
		return fmt.Errorf("unknown race state %q", b)
	}
	return nil
}

// Player is one member of a room. Values handed out by the registry are
// copies; mutating them has no effect on the room.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	WPM      int    `json:"wpm"`
	Progress int    `json:"progress"`
	Ready    bool   `json:"ready"`
}

// Room is an ephemeral race session. All fields are guarded by mu and only
// touched by Registry operations.
type Room struct {
	mu sync.Mutex

	id      string
	hostID  string
	players []Player
	text    string
	state   State

	raceID    uuid.UUID
	startedAt time.Time

	// closed is set when the room is removed from the registry. An
	// operation that looked the room up before removal must treat it as gone.
	closed bool
}

// Snapshot is a read-only copy of a room's state.
type Snapshot struct {
	ID      string   `json:"id"`
	HostID  string   `json:"hostId"`
	State   State    `json:"state"`
	Text    string   `json:"text"`
	Players []Player `json:"players"`
}

func newRoom(id, hostID, hostName, text string) *Room {
	return &Room{
		id:      id,
		hostID:  hostID,
		players: []Player{{ID: hostID, Name: hostName}},
		text:    text,
		state:   StateLobby,
	}
}

func (r *Room) snapshotUnsafe() Snapshot {
	return Snapshot{
		ID:      r.id,
		HostID:  r.hostID,
		State:   r.state,
		Text:    r.text,
		Players: r.playersUnsafe(),
	}
}

// playersUnsafe returns a copy of the player list in join order.
func (r *Room) playersUnsafe() []Player {
	out := make([]Player, len(r.players))
	copy(out, r.players)
	return out
}

func (r *Room) indexOfUnsafe(connID string) int {
	for i := range r.players {
		if r.players[i].ID == connID {
			return i
		}
	}
	return -1
}

// removeUnsafe drops connID from the player list and reports whether it was present.
func (r *Room) removeUnsafe(connID string) bool {
	i := r.indexOfUnsafe(connID)
	if i < 0 {
		return false
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	return true
}

func (r *Room) allReadyUnsafe() bool {
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Room) allFinishedUnsafe() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if p.Progress != 100 {
			return false
		}
	}
	return true
}

// standingsUnsafe returns the players ordered by wpm, highest first. Ties
// keep join order.
func (r *Room) standingsUnsafe() []Player {
	out := r.playersUnsafe()
	sort.SliceStable(out, func(i, j int) bool { return out[i].WPM > out[j].WPM })
	return out
}

// resetUnsafe starts a new race cycle: every player back to 0 wpm, 0
// progress, not ready, and the room back in the lobby. The passage is kept.
func (r *Room) resetUnsafe() {
	for i := range r.players {
		r.players[i].WPM = 0
		r.players[i].Progress = 0
		r.players[i].Ready = false
	}
	r.state = StateLobby
	r.raceID = uuid.Nil
	r.startedAt = time.Time{}
}
