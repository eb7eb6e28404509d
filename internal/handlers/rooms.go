// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/typerace/internal/race"
)

// RoomLister exposes read-only views of the live rooms.
type RoomLister interface {
	Rooms() []race.Snapshot
	Room(roomID string) (race.Snapshot, bool)
	Len() int
}

// RoomSummary is the public listing entry for one room.
type RoomSummary struct {
	ID      string     `json:"id"`
	HostID  string     `json:"hostId"`
	State   race.State `json:"state"`
	Players int        `json:"players"`
}

// ListRoomsHandler returns the in-memory rooms, sorted by id.
func ListRoomsHandler(rooms RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snaps := rooms.Rooms()
		out := make([]RoomSummary, 0, len(snaps))
		for _, s := range snaps {
			out = append(out, RoomSummary{ID: s.ID, HostID: s.HostID, State: s.State, Players: len(s.Players)})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

// GetRoomHandler returns the full snapshot of the room named by the
// {roomId} route parameter.
func GetRoomHandler(rooms RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := rooms.Room(normalizeRoomID(chi.URLParam(r, "roomId")))
		if !ok {
			http.Error(w, race.ErrRoomNotFound.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}

// HealthHandler reports liveness and the number of open rooms.
func HealthHandler(rooms RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"rooms":  rooms.Len(),
		})
	}
}
