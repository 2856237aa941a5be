package game

import (
	"context"
	"time"
)

// PhaseRef identifies one phase of one game.
type PhaseRef struct {
	GameID  string
	Ordinal int
}

// Repo is the durable store's entity surface. Implementations return
// errs.CodeNotFound errors for absent entities.
type Repo interface {
	CreateGame(ctx context.Context, g *Game) error
	UpdateGame(ctx context.Context, g *Game) error
	GetGame(ctx context.Context, id string) (*Game, error)
	GamesByStatus(ctx context.Context, status Status) ([]Game, error)

	CreateMember(ctx context.Context, m *Member) error
	UpdateMember(ctx context.Context, m *Member) error
	Members(ctx context.Context, gameID string) ([]Member, error)

	CreatePhase(ctx context.Context, p *Phase) error
	UpdatePhase(ctx context.Context, p *Phase) error
	GetPhase(ctx context.Context, gameID string, ordinal int) (*Phase, error)
	ActivePhase(ctx context.Context, gameID string) (*Phase, error)
	Phases(ctx context.Context, gameID string) ([]Phase, error)
	// DuePhases lists active phases whose scheduled resolution has passed.
	DuePhases(ctx context.Context, now time.Time) ([]PhaseRef, error)

	CreatePhaseState(ctx context.Context, s *PhaseState) error
	UpdatePhaseState(ctx context.Context, s *PhaseState) error
	GetPhaseState(ctx context.Context, gameID string, ordinal int, nation string) (*PhaseState, error)
	PhaseStates(ctx context.Context, gameID string, ordinal int) ([]PhaseState, error)

	// PutOrder upserts a member's order for a source province.
	PutOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, gameID string, ordinal int, nation, source string) error
	Orders(ctx context.Context, gameID string, ordinal int) ([]Order, error)

	CreateResolutions(ctx context.Context, resolutions []Resolution) error
	Resolutions(ctx context.Context, gameID string, ordinal int) ([]Resolution, error)

	CreateVictory(ctx context.Context, v *Victory) error
	GetVictory(ctx context.Context, gameID string) (*Victory, error)
}

// Store is a Repo that can also run a function inside one transaction.
// Everything the function does through the passed Repo commits or rolls
// back as a unit; concurrent transactions serialize, which is the mutual
// exclusion the resolution protocol depends on.
type Store interface {
	Repo
	Transact(ctx context.Context, fn func(Repo) error) error
}
