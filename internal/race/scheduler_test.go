package race

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerSchedulerFires(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule("room", 5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	var fired atomic.Bool
	s.Schedule("room", 20*time.Millisecond, func() { fired.Store(true) })

	assert.True(t, s.Cancel("room"))
	assert.False(t, s.Cancel("room"))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestTimerSchedulerReplace(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("room", 10*time.Millisecond, func() { first.Add(1) })
	s.Schedule("room", 10*time.Millisecond, func() { second.Add(1) })

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestTimerSchedulerStop(t *testing.T) {
	s := NewTimerScheduler()

	var fired atomic.Bool
	s.Schedule("a", 10*time.Millisecond, func() { fired.Store(true) })
	s.Stop()
	s.Schedule("b", time.Millisecond, func() { fired.Store(true) })

	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestUUIDRoomIDs(t *testing.T) {
	gen := UUIDRoomIDs{}
	seen := map[string]bool{}
	for range 500 {
		id := gen.NewRoomID()
		assert.Len(t, id, RoomIDLength)
		assert.Equal(t, strings.ToUpper(id), id)
		for _, c := range id {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z'), "unexpected %q in %s", c, id)
		}
		seen[id] = true
	}
	assert.Greater(t, len(seen), 490)
}

func TestCorpus(t *testing.T) {
	c := NewCorpus([]string{" one ", "", "  ", "two"})
	assert.Equal(t, 2, c.Len())
	for range 50 {
		assert.Contains(t, []string{"one", "two"}, c.Pick())
	}

	fallback := NewCorpus(nil)
	assert.Equal(t, len(DefaultPassages), fallback.Len())
	assert.Contains(t, DefaultPassages, fallback.Pick())
}
