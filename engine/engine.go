// Package engine talks to the external adjudication service. It translates
// a game snapshot into a request, performs it, and parses the response into
// typed results. It owns failure classification for the remote call and
// nothing else: no retries, no durable state.
package engine

import (
	"encoding/json"

	"github.com/zond/godip"
)

// Status is the adjudicator's verdict on a single order. The set is closed;
// anything the enum does not know collapses to StatusUnknown.
type Status string

const (
	StatusOK                     Status = "OK"
	StatusBounce                 Status = "ErrBounce"
	StatusIllegalMove            Status = "ErrIllegalMove"
	StatusMissingUnit            Status = "ErrMissingUnit"
	StatusSupportBroken          Status = "ErrSupportBroken"
	StatusIllegalDestination     Status = "ErrIllegalDestination"
	StatusInvalidSupporteeOrder  Status = "ErrInvalidSupporteeOrder"
	StatusMissingConvoyPath      Status = "ErrMissingConvoyPath"
	StatusIllegalBuild           Status = "ErrIllegalBuild"
	StatusIllegalDisband         Status = "ErrIllegalDisband"
	StatusConvoyDislodged        Status = "ErrConvoyDislodged"
	StatusMissingSupportUnit     Status = "ErrMissingSupportUnit"
	StatusIllegalSupportPosition Status = "ErrIllegalSupportPosition"
	StatusUnknown                Status = "Unknown"
)

var knownStatuses = map[Status]bool{
	StatusOK:                     true,
	StatusBounce:                 true,
	StatusIllegalMove:            true,
	StatusMissingUnit:            true,
	StatusSupportBroken:          true,
	StatusIllegalDestination:     true,
	StatusInvalidSupporteeOrder:  true,
	StatusMissingConvoyPath:      true,
	StatusIllegalBuild:           true,
	StatusIllegalDisband:         true,
	StatusConvoyDislodged:        true,
	StatusMissingSupportUnit:     true,
	StatusIllegalSupportPosition: true,
}

// ParseStatus maps a wire code onto the closed enum.
func ParseStatus(code string) Status {
	if knownStatuses[Status(code)] {
		return Status(code)
	}
	return StatusUnknown
}

// Unit is a piece on the board.
type Unit struct {
	Type     godip.UnitType `json:"type"`
	Nation   godip.Nation   `json:"nation"`
	Province godip.Province `json:"province"`
	// DislodgedBy names the unit's dislodger when it was pushed out this
	// phase and must retreat.
	DislodgedBy godip.Province `json:"dislodged_by,omitempty"`
}

// SupplyCenter is the ownership of one center.
type SupplyCenter struct {
	Province godip.Province `json:"province"`
	Nation   godip.Nation   `json:"nation"`
}

// Resolution is the verdict on the order submitted from Province.
type Resolution struct {
	Province godip.Province `json:"province"`
	Result   Status         `json:"result"`
	// By names the province that caused a failure, when one did.
	By godip.Province `json:"by,omitempty"`
}

// Phase is the board snapshot the adjudicator consumes and produces.
type Phase struct {
	Season        godip.Season   `json:"season"`
	Year          int            `json:"year"`
	Type          godip.PhaseType `json:"type"`
	Units         []Unit         `json:"units"`
	SupplyCenters []SupplyCenter `json:"supply_centers"`
	Resolutions   []Resolution   `json:"resolutions"`
}

// Orders maps nation to province to order parts, e.g.
// {"England": {"lon": ["Move", "eng"]}}. A nation appears only if it
// submitted at least one order.
type Orders map[godip.Nation]map[godip.Province][]string

// Result is the adjudicator's full answer: the next board state and the
// per-nation option trees for it. Options are opaque documents owned by
// the adjudicator; dipcoord only checks whether a nation has any at all.
type Result struct {
	Phase   Phase                            `json:"phase"`
	Options map[godip.Nation]json.RawMessage `json:"options"`
}

type startRequest struct {
	VariantID string       `json:"variant_id"`
	Nations   godip.Nations `json:"nations"`
}

type resolveRequest struct {
	Phase  Phase  `json:"phase"`
	Orders Orders `json:"orders"`
}
