package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jason-s-yu/typerace/internal/race"
	"github.com/sirupsen/logrus"
)

// Inbound event names.
const (
	MsgCreateRoom     = "create-room"
	MsgJoinRoom       = "join-room"
	MsgPlayerReady    = "player-ready"
	MsgUpdateProgress = "update-progress"
	MsgLeaveRoom      = "leave-room"
)

// ErrGatewayStopped is returned by Submit once the dispatcher has exited.
var ErrGatewayStopped = errors.New("gateway stopped")

// Coordinator is the set of room operations the gateway dispatches to.
// *race.Registry satisfies it.
type Coordinator interface {
	CreateRoom(connID, playerName string) (string, error)
	JoinRoom(roomID, connID, playerName string) (race.Snapshot, error)
	SetReady(roomID, connID string, ready bool)
	UpdateProgress(roomID, connID string, progress, wpm int)
	RemovePlayer(roomID, connID string)
	Disconnect(connID string)
}

// ClientMessage is the inbound envelope.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type createRoomData struct {
	PlayerName string `json:"playerName"`
}

type joinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type playerReadyData struct {
	RoomID string `json:"roomId"`
	Ready  bool   `json:"ready"`
}

type updateProgressData struct {
	RoomID   string `json:"roomId"`
	Progress int    `json:"progress"`
	WPM      int    `json:"wpm"`
}

type leaveRoomData struct {
	RoomID string `json:"roomId"`
}

type inbound struct {
	connID     string
	raw        []byte
	disconnect bool
}

// Gateway serializes every inbound event, from every connection, through a
// single dispatcher goroutine (Run) and applies it to the Coordinator with
// the sending connection as actor.
type Gateway struct {
	coord   Coordinator
	out     race.Broadcaster
	log     logrus.FieldLogger
	inbound chan inbound
	done    chan struct{}
}

// NewGateway creates a gateway whose inbound queue holds up to queue events.
func NewGateway(coord Coordinator, out race.Broadcaster, logger logrus.FieldLogger, queue int) *Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if queue < 0 {
		queue = 0
	}
	return &Gateway{
		coord:   coord,
		out:     out,
		log:     logger,
		inbound: make(chan inbound, queue),
		done:    make(chan struct{}),
	}
}

// Run dispatches queued events until ctx is cancelled. It must be called
// exactly once.
func (g *Gateway) Run(ctx context.Context) {
	defer close(g.done)
	g.log.Info("gateway dispatcher started")
	for {
		select {
		case <-ctx.Done():
			g.log.Info("gateway dispatcher stopped")
			return
		case in := <-g.inbound:
			if in.disconnect {
				g.coord.Disconnect(in.connID)
				continue
			}
			g.HandleMessage(in.connID, in.raw)
		}
	}
}

// Submit queues one raw frame from connID. It blocks while the queue is full.
func (g *Gateway) Submit(ctx context.Context, connID string, raw []byte) error {
	select {
	case g.inbound <- inbound{connID: connID, raw: raw}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return ErrGatewayStopped
	}
}

// Disconnect queues the departure sweep for connID behind any events it
// already submitted.
func (g *Gateway) Disconnect(connID string) {
	select {
	case g.inbound <- inbound{connID: connID, disconnect: true}:
	case <-g.done:
	}
}

// HandleMessage decodes and applies a single frame synchronously.
func (g *Gateway) HandleMessage(connID string, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		g.log.WithField("conn", connID).Warnf("invalid json: %v", err)
		g.sendError(connID, "Invalid JSON format")
		return
	}
	logger := g.log.WithFields(logrus.Fields{"conn": connID, "event": msg.Type})

	switch msg.Type {
	case MsgCreateRoom:
		var data createRoomData
		if !g.decode(connID, msg, &data) {
			return
		}
		if _, err := g.coord.CreateRoom(connID, strings.TrimSpace(data.PlayerName)); err != nil {
			logger.Errorf("create room: %v", err)
			g.out.SendTo(connID, race.ErrorEvent(err))
		}

	case MsgJoinRoom:
		var data joinRoomData
		if !g.decode(connID, msg, &data) {
			return
		}
		if _, err := g.coord.JoinRoom(normalizeRoomID(data.RoomID), connID, strings.TrimSpace(data.PlayerName)); err != nil {
			logger.WithField("room", data.RoomID).Infof("join rejected: %v", err)
			g.out.SendTo(connID, race.ErrorEvent(err))
		}

	case MsgPlayerReady:
		var data playerReadyData
		if !g.decode(connID, msg, &data) {
			return
		}
		g.coord.SetReady(normalizeRoomID(data.RoomID), connID, data.Ready)

	case MsgUpdateProgress:
		var data updateProgressData
		if !g.decode(connID, msg, &data) {
			return
		}
		g.coord.UpdateProgress(normalizeRoomID(data.RoomID), connID, data.Progress, data.WPM)

	case MsgLeaveRoom:
		var data leaveRoomData
		if !g.decode(connID, msg, &data) {
			return
		}
		g.coord.RemovePlayer(normalizeRoomID(data.RoomID), connID)

	default:
		logger.Warn("unknown event type")
		g.sendError(connID, fmt.Sprintf("Unknown event type: %s", msg.Type))
	}
}

// decode unmarshals msg.Data into v. A missing payload leaves v zeroed.
func (g *Gateway) decode(connID string, msg ClientMessage, v any) bool {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return true
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		g.log.WithFields(logrus.Fields{"conn": connID, "event": msg.Type}).Warnf("invalid payload: %v", err)
		g.sendError(connID, fmt.Sprintf("Invalid payload for %s", msg.Type))
		return false
	}
	return true
}

func (g *Gateway) sendError(connID, message string) {
	g.out.SendTo(connID, race.Event{Type: race.EventError, Data: race.ErrorPayload{Message: message}})
}

// Room ids are issued upper-case; accept whatever case the player typed.
func normalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
