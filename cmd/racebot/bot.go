package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/typerace/internal/handlers"
	"github.com/jason-s-yu/typerace/internal/race"
	"github.com/sirupsen/logrus"
)

// Bot is a scripted player. It creates a room (or joins RoomID), readies up,
// types the passage at a constant WPM and returns the final standings.
type Bot struct {
	URL    string
	RoomID string
	Name   string
	WPM    int

	// Interval between progress reports.
	Interval time.Duration
	// OnRoom, if set, is called with the room id once the bot is in a room.
	OnRoom func(roomID string)
	Log    logrus.FieldLogger
}

type serverEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Run plays one race and returns the game-over standings.
func (b *Bot) Run(ctx context.Context) ([]race.Player, error) {
	if b.Log == nil {
		b.Log = logrus.StandardLogger()
	}
	if b.Interval <= 0 {
		b.Interval = 250 * time.Millisecond
	}

	c, _, err := websocket.Dial(ctx, b.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", b.URL, err)
	}
	defer c.CloseNow()

	if b.RoomID == "" {
		err = b.send(ctx, c, handlers.MsgCreateRoom, map[string]string{"playerName": b.Name})
	} else {
		err = b.send(ctx, c, handlers.MsgJoinRoom, map[string]string{"roomId": b.RoomID, "playerName": b.Name})
	}
	if err != nil {
		return nil, err
	}

	typing, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	typed := make(chan error, 1)
	var roomID string

	for {
		select {
		case err := <-typed:
			if err != nil {
				return nil, err
			}
		default:
		}

		_, raw, err := c.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		var ev serverEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		b.Log.WithField("event", ev.Type).Debug("received")

		switch ev.Type {
		case race.EventRoomCreated, race.EventRoomJoined:
			var data struct {
				RoomID string `json:"roomId"`
			}
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				return nil, err
			}
			roomID = data.RoomID
			b.Log.WithField("room", roomID).Info("in room, readying up")
			if b.OnRoom != nil {
				b.OnRoom(roomID)
			}
			if err := b.send(ctx, c, handlers.MsgPlayerReady, map[string]any{"roomId": roomID, "ready": true}); err != nil {
				return nil, err
			}

		case race.EventGameCountdown:
			var data race.CountdownPayload
			_ = json.Unmarshal(ev.Data, &data)
			b.Log.Infof("race starts in %d", data.Countdown)

		case race.EventGameStarted:
			var data race.GameStartedPayload
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				return nil, err
			}
			go func() { typed <- b.typePassage(typing, c, roomID, data.Text) }()

		case race.EventGameOver:
			var data race.PlayersPayload
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				return nil, err
			}
			c.Close(websocket.StatusNormalClosure, "race over")
			return data.Players, nil

		case race.EventError:
			var data race.ErrorPayload
			_ = json.Unmarshal(ev.Data, &data)
			return nil, fmt.Errorf("server: %s", data.Message)
		}
	}
}

// typePassage reports progress at the bot's speed until the passage is done.
func (b *Bot) typePassage(ctx context.Context, c *websocket.Conn, roomID, text string) error {
	if len(text) == 0 {
		return errors.New("empty passage")
	}
	// A word is five characters.
	charsPerSec := float64(max(b.WPM, 1)) * 5 / 60
	start := time.Now()
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		chars := time.Since(start).Seconds() * charsPerSec
		progress := min(int(chars*100/float64(len(text))), 100)
		err := b.send(ctx, c, handlers.MsgUpdateProgress, map[string]any{
			"roomId":   roomID,
			"progress": progress,
			"wpm":      b.WPM,
		})
		if err != nil {
			return err
		}
		if progress == 100 {
			b.Log.Info("finished typing")
			return nil
		}
	}
}

func (b *Bot) send(ctx context.Context, c *websocket.Conn, typ string, data any) error {
	raw, err := json.Marshal(map[string]any{"type": typ, "data": data})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, raw); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}
