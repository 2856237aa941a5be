// Package game owns the turn and phase lifecycle of diplomacy games: the
// state machine from creation through joining, starting, order
// confirmation, resolution and the end of the game. Adjudication itself is
// delegated to the external engine; persistence to the Store interface.
package game

import (
	"time"

	"github.com/zond/dipcoord/errs"
)

// Phase deadlines are capped at 30 days, like the hosted service always has.
const MaxPhaseLength = 30 * 24 * time.Hour

// Status is the lifecycle state of a game.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Assignment is the nation assignment policy used at game start.
type Assignment string

const (
	// AssignRandom shuffles nations over members.
	AssignRandom Assignment = "random"
	// AssignOrdered hands nation i to the i-th member by join order.
	AssignOrdered Assignment = "ordered"
	// AssignPreferences matches members to nations by their stated
	// preferences, minimizing total dissatisfaction.
	AssignPreferences Assignment = "preferences"
)

// Game is one hosted game.
type Game struct {
	ID      string
	Name    string
	Variant string
	Status  Status
	// Assignment picks the nation assignment policy applied at start.
	Assignment Assignment
	// PhaseLength is the movement phase deadline duration.
	PhaseLength time.Duration
	// Sandbox games may be filled by a single user and are never rated.
	Sandbox bool
	// NMRExtensions is how many times a due phase with absent members may
	// be deferred before resolution is forced.
	NMRExtensions          int
	NMRExtensionsRemaining int

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Joinable reports whether a new member may enter given the current member
// count and the variant's seat count.
func (g *Game) Joinable(memberCount, nationCount int) error {
	if g.Status != StatusPending {
		return errs.Newf(errs.CodeInvalidState, "game %s is %s, not joinable", g.ID, g.Status)
	}
	if memberCount >= nationCount {
		return errs.Newf(errs.CodeInvalidState, "game %s is full", g.ID)
	}
	return nil
}

// ValidPhaseLength bounds the movement phase deadline.
func ValidPhaseLength(d time.Duration) error {
	if d < time.Minute {
		return errs.New(errs.CodeInvalidState, "phase length must be at least one minute")
	}
	if d > MaxPhaseLength {
		return errs.New(errs.CodeInvalidState, "phase length must be at most 30 days")
	}
	return nil
}

// ValidAssignment checks the policy is one of the known ones.
func ValidAssignment(a Assignment) error {
	switch a {
	case AssignRandom, AssignOrdered, AssignPreferences:
		return nil
	}
	return errs.Newf(errs.CodeInvalidState, "unknown nation assignment policy %q", a)
}
