package handlers

import (
	"io"
	"sync/atomic"
	"testing"

	"github.com/jason-s-yu/typerace/internal/race"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// drain returns every event currently buffered for c.
func drain(c *Client) []race.Event {
	var out []race.Event
	for {
		select {
		case ev := <-c.OutChan:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(evs []race.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(quietLogger())
	a, b, c := NewClient("a", 8, nil), NewClient("b", 8, nil), NewClient("c", 8, nil)
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)
	hub.Subscribe("ROOM01", "a")
	hub.Subscribe("ROOM01", "b")

	hub.Broadcast("ROOM01", race.Event{Type: race.EventPlayersUpdated})
	hub.BroadcastExcept("ROOM01", "a", race.Event{Type: race.EventPlayerJoined})
	hub.SendTo("c", race.Event{Type: race.EventError})

	assert.Equal(t, []string{race.EventPlayersUpdated}, eventTypes(drain(a)))
	assert.Equal(t, []string{race.EventPlayersUpdated, race.EventPlayerJoined}, eventTypes(drain(b)))
	assert.Equal(t, []string{race.EventError}, eventTypes(drain(c)))
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(quietLogger())
	a, b := NewClient("a", 8, nil), NewClient("b", 8, nil)
	hub.Register(a)
	hub.Register(b)
	hub.Subscribe("ROOM01", "a")
	hub.Subscribe("ROOM01", "b")

	hub.Unsubscribe("ROOM01", "a")
	hub.Unsubscribe("ROOM01", "a")
	hub.Unsubscribe("NOPE00", "a")
	hub.Broadcast("ROOM01", race.Event{Type: race.EventPlayerLeft})

	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
	assert.Equal(t, []string{"b"}, hub.Subscribers("ROOM01"))

	hub.Unsubscribe("ROOM01", "b")
	assert.Empty(t, hub.Subscribers("ROOM01"))
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(quietLogger())
	a := NewClient("a", 8, nil)
	hub.Register(a)
	hub.Subscribe("R1", "a")
	hub.Subscribe("R2", "a")
	require.Equal(t, 1, hub.ClientCount())

	hub.Unregister("a")

	assert.Equal(t, 0, hub.ClientCount())
	assert.Empty(t, hub.Subscribers("R1"))
	assert.Empty(t, hub.Subscribers("R2"))

	// Sends to departed connections are dropped.
	hub.SendTo("a", race.Event{Type: race.EventError})
	hub.Broadcast("R1", race.Event{Type: race.EventError})
	assert.Empty(t, drain(a))
}

func TestHubEvictsSlowConsumer(t *testing.T) {
	hub := NewHub(quietLogger())
	var evictions atomic.Int32
	slow := NewClient("slow", 2, func() { evictions.Add(1) })
	fast := NewClient("fast", 16, nil)
	hub.Register(slow)
	hub.Register(fast)
	hub.Subscribe("ROOM01", "slow")
	hub.Subscribe("ROOM01", "fast")

	for range 5 {
		hub.Broadcast("ROOM01", race.Event{Type: race.EventProgressUpdated})
	}

	assert.True(t, slow.Overflowed())
	assert.False(t, fast.Overflowed())
	assert.Equal(t, int32(1), evictions.Load())
	assert.Len(t, drain(slow), 2)
	assert.Len(t, drain(fast), 5)
}
