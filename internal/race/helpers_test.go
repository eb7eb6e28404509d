package race

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/typerace/internal/models"
	"github.com/sirupsen/logrus"
)

// recorder collects delivered events per connection instead of writing them
// to sockets. Broadcasts are expanded to the subscribers at the time of the call.
type recorder struct {
	mu     sync.Mutex
	subs   map[string]map[string]bool
	events map[string][]Event
}

func newRecorder() *recorder {
	return &recorder{
		subs:   make(map[string]map[string]bool),
		events: make(map[string][]Event),
	}
}

func (r *recorder) Subscribe(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[roomID] == nil {
		r.subs[roomID] = make(map[string]bool)
	}
	r.subs[roomID][connID] = true
}

func (r *recorder) Unsubscribe(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs[roomID], connID)
}

func (r *recorder) SendTo(connID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[connID] = append(r.events[connID], ev)
}

func (r *recorder) Broadcast(roomID string, ev Event) {
	r.BroadcastExcept(roomID, "", ev)
}

func (r *recorder) BroadcastExcept(roomID, except string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.subs[roomID] {
		if connID != except {
			r.events[connID] = append(r.events[connID], ev)
		}
	}
}

func (r *recorder) of(connID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events[connID]))
	copy(out, r.events[connID])
	return out
}

func (r *recorder) types(connID string) []string {
	evs := r.of(connID)
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) last(connID string) Event {
	evs := r.of(connID)
	if len(evs) == 0 {
		return Event{}
	}
	return evs[len(evs)-1]
}

func (r *recorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[string][]Event)
}

func (r *recorder) subscribed(roomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs[roomID][connID]
}

// manualScheduler holds tasks until the test fires them.
type manualScheduler struct {
	mu     sync.Mutex
	tasks  map[string]func()
	delays map[string]time.Duration
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tasks: make(map[string]func()), delays: make(map[string]time.Duration)}
}

func (s *manualScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[key] = fn
	s.delays[key] = delay
}

func (s *manualScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	delete(s.tasks, key)
	return ok
}

func (s *manualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]func())
}

func (s *manualScheduler) pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// fire runs the task for key, reporting whether there was one.
func (s *manualScheduler) fire(key string) bool {
	s.mu.Lock()
	fn, ok := s.tasks[key]
	delete(s.tasks, key)
	s.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

// fixedPassage always returns the same text.
type fixedPassage string

func (f fixedPassage) Pick() string { return string(f) }

type resultLog struct {
	mu      sync.Mutex
	results []models.RaceResult
}

func (l *resultLog) RecordRace(res models.RaceResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, res)
}

func (l *resultLog) all() []models.RaceResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.RaceResult(nil), l.results...)
}

const testText = "the quick brown fox"

type fixture struct {
	reg     *Registry
	out     *recorder
	timers  *manualScheduler
	results *resultLog
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{out: newRecorder(), timers: newManualScheduler(), results: &resultLog{}}
	f.reg = NewRegistry(f.out, Options{
		Passages:  fixedPassage(testText),
		Scheduler: f.timers,
		Results:   f.results,
		Logger:    quietLogger(),
	})
	t.Cleanup(f.reg.Close)
	return f
}

// racing builds a room with the given connections, readies everyone and
// fires the countdown.
func (f *fixture) racing(t *testing.T, conns ...string) string {
	t.Helper()
	roomID, err := f.reg.CreateRoom(conns[0], "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for _, c := range conns[1:] {
		if _, err := f.reg.JoinRoom(roomID, c, ""); err != nil {
			t.Fatalf("JoinRoom(%s): %v", c, err)
		}
	}
	for _, c := range conns {
		f.reg.SetReady(roomID, c, true)
	}
	if !f.timers.fire(roomID) {
		t.Fatalf("no countdown scheduled for %s", roomID)
	}
	f.out.clear()
	return roomID
}

func playerIDs(players []Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}
