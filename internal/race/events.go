package race

// Outbound event names. These are the "type" values of the envelopes the
// gateway writes to clients.
const (
	EventRoomCreated     = "room-created"
	EventRoomJoined      = "room-joined"
	EventPlayerJoined    = "player-joined"
	EventPlayersUpdated  = "players-updated"
	EventGameCountdown   = "game-countdown"
	EventGameStarted     = "game-started"
	EventProgressUpdated = "progress-updated"
	EventPlayerFinished  = "player-finished"
	EventGameOver        = "game-over"
	EventPlayerLeft      = "player-left"
	EventError           = "error"
)

// Event is a single outbound message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
	IsHost bool   `json:"isHost"`
}

type RoomJoinedPayload struct {
	RoomID  string   `json:"roomId"`
	IsHost  bool     `json:"isHost"`
	Players []Player `json:"players"`
	Text    string   `json:"text"`
}

// PlayersPayload carries the full player list; used by player-joined,
// players-updated, progress-updated and game-over.
type PlayersPayload struct {
	Players []Player `json:"players"`
}

type CountdownPayload struct {
	Countdown int `json:"countdown"`
}

type GameStartedPayload struct {
	Text string `json:"text"`
}

type PlayerFinishedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	WPM        int    `json:"wpm"`
}

type PlayerLeftPayload struct {
	Players []Player `json:"players"`
	NewHost string   `json:"newHost"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ErrorEvent wraps err into an "error" event.
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Data: ErrorPayload{Message: err.Error()}}
}

// Broadcaster delivers events to connections. Subscriptions bind a
// connection to a room channel; Broadcast reaches every subscriber.
// Implementations must not block: the registry calls them while holding
// a room lock so that per-room event order is preserved.
type Broadcaster interface {
	Subscribe(roomID, connID string)
	Unsubscribe(roomID, connID string)
	SendTo(connID string, ev Event)
	Broadcast(roomID string, ev Event)
	BroadcastExcept(roomID, exceptConnID string, ev Event)
}
