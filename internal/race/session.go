package race

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/typerace/internal/models"
	"github.com/sirupsen/logrus"
)

// SetReady records connID's readiness. Only meaningful in the lobby; in any
// other state, or for a non-member, it is ignored. Once every player is
// ready and there are at least two, the countdown begins.
func (reg *Registry) SetReady(roomID, connID string, ready bool) {
	room := reg.lookup(roomID)
	if room == nil {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || room.state != StateLobby {
		return
	}
	i := room.indexOfUnsafe(connID)
	if i < 0 {
		return
	}

	room.players[i].Ready = ready
	reg.out.Broadcast(roomID, Event{
		Type: EventPlayersUpdated,
		Data: PlayersPayload{Players: room.playersUnsafe()},
	})

	if len(room.players) >= 2 && room.allReadyUnsafe() {
		reg.beginCountdownUnsafe(room)
	}
}

// beginCountdownUnsafe moves the room to Countdown and schedules the race
// start. The countdown is not cancelled by later readiness changes, joins
// or departures.
func (reg *Registry) beginCountdownUnsafe(room *Room) {
	room.state = StateCountdown
	reg.out.Broadcast(room.id, Event{
		Type: EventGameCountdown,
		Data: CountdownPayload{Countdown: reg.countdown},
	})
	reg.log.WithFields(logrus.Fields{"room": room.id, "players": len(room.players)}).Info("countdown started")

	delay := time.Duration(reg.countdown) * reg.tick
	reg.scheduler.Schedule(room.id, delay, func() { reg.startRace(room) })
}

// startRace is the countdown continuation.
func (reg *Registry) startRace(room *Room) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || room.state != StateCountdown {
		return
	}

	room.state = StateRacing
	room.raceID = uuid.New()
	room.startedAt = time.Now()
	reg.out.Broadcast(room.id, Event{
		Type: EventGameStarted,
		Data: GameStartedPayload{Text: room.text},
	})
	reg.log.WithFields(logrus.Fields{
		"room":    room.id,
		"race":    room.raceID,
		"players": len(room.players),
	}).Info("race started")
}

// UpdateProgress records a progress report from connID. Reports outside
// Racing or from non-members are dropped silently.
func (reg *Registry) UpdateProgress(roomID, connID string, progress, wpm int) {
	room := reg.lookup(roomID)
	if room == nil {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || room.state != StateRacing {
		return
	}
	i := room.indexOfUnsafe(connID)
	if i < 0 {
		return
	}

	progress = min(max(progress, 0), 100)
	wpm = max(wpm, 0)
	room.players[i].Progress = progress
	room.players[i].WPM = wpm
	player := room.players[i]

	reg.out.Broadcast(roomID, Event{
		Type: EventProgressUpdated,
		Data: PlayersPayload{Players: room.playersUnsafe()},
	})

	if progress == 100 {
		reg.out.Broadcast(roomID, Event{
			Type: EventPlayerFinished,
			Data: PlayerFinishedPayload{PlayerID: player.ID, PlayerName: player.Name, WPM: wpm},
		})
	}

	if room.allFinishedUnsafe() {
		reg.finishUnsafe(room)
	}
}

// finishUnsafe broadcasts the final standings, hands them to the result
// sink, and resets the room for the next race cycle.
func (reg *Registry) finishUnsafe(room *Room) {
	room.state = StateFinished
	standings := room.standingsUnsafe()
	reg.out.Broadcast(room.id, Event{
		Type: EventGameOver,
		Data: PlayersPayload{Players: standings},
	})

	if reg.results != nil {
		reg.results.RecordRace(raceResult(room, standings))
	}
	reg.log.WithFields(logrus.Fields{"room": room.id, "race": room.raceID}).Info("race finished")

	room.resetUnsafe()
}

func raceResult(room *Room, standings []Player) models.RaceResult {
	res := models.RaceResult{
		RaceID:     room.raceID,
		RoomID:     room.id,
		Text:       room.text,
		StartedAt:  room.startedAt,
		FinishedAt: time.Now(),
		Standings:  make([]models.Standing, len(standings)),
	}
	for i, p := range standings {
		res.Standings[i] = models.Standing{
			ConnectionID: p.ID,
			PlayerName:   p.Name,
			WPM:          p.WPM,
			Rank:         i + 1,
		}
	}
	return res
}
