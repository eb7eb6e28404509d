package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/typerace/internal/race"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRooms []race.Snapshot

func (s staticRooms) Rooms() []race.Snapshot { return s }
func (s staticRooms) Len() int               { return len(s) }

func (s staticRooms) Room(id string) (race.Snapshot, bool) {
	for _, snap := range s {
		if snap.ID == id {
			return snap, true
		}
	}
	return race.Snapshot{}, false
}

func TestListRoomsHandler(t *testing.T) {
	rooms := staticRooms{
		{ID: "ZZZ999", HostID: "c", State: race.StateRacing, Players: []race.Player{{ID: "c"}, {ID: "d"}}},
		{ID: "AAA111", HostID: "a", State: race.StateLobby, Players: []race.Player{{ID: "a"}}},
	}

	w := httptest.NewRecorder()
	ListRoomsHandler(rooms).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `[
		{"id":"AAA111","hostId":"a","state":"lobby","players":1},
		{"id":"ZZZ999","hostId":"c","state":"racing","players":2}
	]`, w.Body.String())
}

func TestListRoomsHandlerEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	ListRoomsHandler(staticRooms{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListRoomsHandlerRejectsPost(t *testing.T) {
	w := httptest.NewRecorder()
	ListRoomsHandler(staticRooms{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rooms", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	HealthHandler(staticRooms{{ID: "AAA111"}}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["rooms"])
}

func TestGetRoomHandler(t *testing.T) {
	rooms := staticRooms{
		{ID: "AAA111", HostID: "a", State: race.StateLobby, Text: "hello", Players: []race.Player{{ID: "a", Name: "Ann"}}},
	}
	r := chi.NewRouter()
	r.Get("/rooms/{roomId}", GetRoomHandler(rooms))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/aaa111", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var snap race.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "AAA111", snap.ID)
	assert.Equal(t, "hello", snap.Text)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Ann", snap.Players[0].Name)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/NOPE00", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
