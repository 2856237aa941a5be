package game

import (
	"time"

	"github.com/zond/godip"
)

// EventKind names a domain event.
type EventKind string

const (
	EventMemberJoined  EventKind = "member_joined"
	EventGameStarted   EventKind = "game_started"
	EventPhaseResolved EventKind = "phase_resolved"
	EventPhaseDeferred EventKind = "phase_deferred"
	EventGameCompleted EventKind = "game_completed"
	EventGameAbandoned EventKind = "game_abandoned"
)

// Event is a domain event triggered by an operation. Operations return the
// events they trigger instead of firing side effects themselves; a
// dispatcher delivers them after the surrounding transaction commits.
type Event struct {
	Kind     EventKind
	GameID   string
	GameName string
	Variant  string

	// Phase fields are set for started/resolved/deferred events.
	PhaseOrdinal int
	Season       godip.Season
	Year         int
	PhaseType    godip.PhaseType
	Deadline     time.Time

	// UserIDs is the set of users the event concerns.
	UserIDs []string
	// Victors holds the winning user ids on game completion.
	Victors []string
}
