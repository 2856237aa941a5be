package game

import (
	"encoding/json"
	"time"

	"github.com/zond/godip"

	"github.com/zond/dipcoord/engine"
)

// PhaseStatus is the lifecycle state of a phase. There is no pre-game
// state: the adjudicator hands over the starting position when the game
// starts, and it is persisted as an already active phase.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseActive    PhaseStatus = "active"
	PhaseCompleted PhaseStatus = "completed"
)

// Unit is a piece position snapshot within a phase.
type Unit struct {
	Province godip.Province
	Type     godip.UnitType
	Nation   godip.Nation
	// DislodgedBy records which province's unit dislodged this one.
	DislodgedBy godip.Province
}

// SC is a supply center ownership snapshot within a phase.
type SC struct {
	Province godip.Province
	Owner    godip.Nation
}

// Phase is one turn of a game. Completed phases are immutable history;
// exactly one phase per active game is active at any time.
type Phase struct {
	GameID string
	// Ordinal is strictly increasing and gapless from 1 per game.
	Ordinal int
	Season  godip.Season
	Year    int
	Type    godip.PhaseType
	Status  PhaseStatus
	// ScheduledAt is when the scheduler may resolve the phase regardless
	// of confirmations. Zero means no deadline.
	ScheduledAt time.Time
	Units       []Unit
	SCs         []SC
	CreatedAt   time.Time
	ResolvedAt  time.Time
}

// PhaseState is one member's relation to one phase: whether their orders
// are confirmed, whether they want a draw, and their slice of the
// adjudicator's options document.
type PhaseState struct {
	GameID       string
	PhaseOrdinal int
	Nation       godip.Nation

	OrdersConfirmed bool
	WantsDraw       bool
	// HasOrders is derived from Options: whether the nation has any legal
	// order at all this phase. Members without any count as confirmed.
	HasOrders bool
	Options   json.RawMessage
}

// Ready reports whether the state blocks resolution.
func (p *PhaseState) Ready() bool {
	return p.OrdersConfirmed || !p.HasOrders
}

// Resolution is the adjudicator's stored verdict on one submitted order.
// Write-once, created only during resolution.
type Resolution struct {
	GameID       string
	PhaseOrdinal int
	Province     godip.Province
	Status       engine.Status
	// By names the province explaining the failure, when there is one.
	By godip.Province
}

// phaseFromResult builds the snapshot of a new phase from an adjudication
// result.
func phaseFromResult(gameID string, ordinal int, result *engine.Result, now time.Time) *Phase {
	phase := &Phase{
		GameID:    gameID,
		Ordinal:   ordinal,
		Season:    result.Phase.Season,
		Year:      result.Phase.Year,
		Type:      result.Phase.Type,
		Status:    PhaseActive,
		CreatedAt: now,
	}
	for _, unit := range result.Phase.Units {
		phase.Units = append(phase.Units, Unit{
			Province:    unit.Province,
			Type:        unit.Type,
			Nation:      unit.Nation,
			DislodgedBy: unit.DislodgedBy,
		})
	}
	for _, sc := range result.Phase.SupplyCenters {
		phase.SCs = append(phase.SCs, SC{Province: sc.Province, Owner: sc.Nation})
	}
	return phase
}

// snapshot converts a stored phase back into the engine's wire shape for a
// Resolve call.
func (p *Phase) snapshot() engine.Phase {
	snap := engine.Phase{
		Season: p.Season,
		Year:   p.Year,
		Type:   p.Type,
	}
	for _, unit := range p.Units {
		snap.Units = append(snap.Units, engine.Unit{
			Type:        unit.Type,
			Nation:      unit.Nation,
			Province:    unit.Province,
			DislodgedBy: unit.DislodgedBy,
		})
	}
	for _, sc := range p.SCs {
		snap.SupplyCenters = append(snap.SupplyCenters, engine.SupplyCenter{
			Province: sc.Province,
			Nation:   sc.Owner,
		})
	}
	return snap
}

// scCount counts supply centers per owner.
func scCount(scs []SC) map[godip.Nation]int {
	counts := map[godip.Nation]int{}
	for _, sc := range scs {
		if sc.Owner != "" {
			counts[sc.Owner]++
		}
	}
	return counts
}

// unitCount counts units per nation.
func unitCount(units []Unit) map[godip.Nation]int {
	counts := map[godip.Nation]int{}
	for _, unit := range units {
		counts[unit.Nation]++
	}
	return counts
}

// hasPossibleOrders inspects a nation's options document without assuming
// its internal shape: any reachable leaf at all means the nation can act.
func hasPossibleOrders(options json.RawMessage) bool {
	if len(options) == 0 {
		return false
	}
	var tree interface{}
	if err := json.Unmarshal(options, &tree); err != nil {
		return false
	}
	return hasLeaf(tree)
}

func hasLeaf(node interface{}) bool {
	switch typed := node.(type) {
	case map[string]interface{}:
		if len(typed) == 0 {
			return false
		}
		for _, child := range typed {
			if hasLeaf(child) {
				return true
			}
		}
		return false
	case []interface{}:
		if len(typed) == 0 {
			return false
		}
		for _, child := range typed {
			if hasLeaf(child) {
				return true
			}
		}
		return false
	default:
		// Scalars terminate a branch; reaching one means the tree has at
		// least one complete decision.
		return true
	}
}
