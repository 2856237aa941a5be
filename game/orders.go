package game

import (
	"github.com/zond/godip"

	"github.com/zond/dipcoord/engine"
	"github.com/zond/dipcoord/errs"
)

// OrderType tags an order variant.
type OrderType string

const (
	OrderHold          OrderType = "Hold"
	OrderMove          OrderType = "Move"
	OrderMoveViaConvoy OrderType = "MoveViaConvoy"
	OrderSupport       OrderType = "Support"
	OrderConvoy        OrderType = "Convoy"
	OrderBuild         OrderType = "Build"
	OrderDisband       OrderType = "Disband"
)

// Order is one submitted instruction. Field constraints are enforced at
// construction, per order type:
//
//	Hold                 no target, no aux
//	Move, MoveViaConvoy  target
//	Support, Convoy      target and aux
//	Build, Disband       target only
type Order struct {
	GameID       string
	PhaseOrdinal int
	Nation       godip.Nation
	Type         OrderType
	Source       godip.Province
	Target       godip.Province
	Aux          godip.Province
}

// NewOrder validates the per-type field constraints and returns the order.
func NewOrder(typ OrderType, source, target, aux godip.Province) (Order, error) {
	if source == "" {
		return Order{}, errs.New(errs.CodeInvalidState, "orders must have a source province")
	}
	switch typ {
	case OrderHold:
		if target != "" || aux != "" {
			return Order{}, errs.New(errs.CodeInvalidState, "hold orders take no target or aux")
		}
	case OrderMove, OrderMoveViaConvoy:
		if target == "" {
			return Order{}, errs.Newf(errs.CodeInvalidState, "%s orders require a target", typ)
		}
		if aux != "" {
			return Order{}, errs.Newf(errs.CodeInvalidState, "%s orders take no aux", typ)
		}
	case OrderSupport, OrderConvoy:
		if target == "" || aux == "" {
			return Order{}, errs.Newf(errs.CodeInvalidState, "%s orders require a target and an aux", typ)
		}
	case OrderBuild, OrderDisband:
		if target == "" {
			return Order{}, errs.Newf(errs.CodeInvalidState, "%s orders require a target", typ)
		}
		if aux != "" {
			return Order{}, errs.Newf(errs.CodeInvalidState, "%s orders take no aux", typ)
		}
	default:
		return Order{}, errs.Newf(errs.CodeInvalidState, "unknown order type %q", typ)
	}
	return Order{Type: typ, Source: source, Target: target, Aux: aux}, nil
}

// Parts renders the order's wire shape: [type, target?, aux?].
func (o Order) Parts() []string {
	parts := []string{string(o.Type)}
	if o.Target != "" {
		parts = append(parts, string(o.Target))
	}
	if o.Aux != "" {
		parts = append(parts, string(o.Aux))
	}
	return parts
}

// buildOrderMap groups orders by nation and source province for the
// adjudicator, restricted to nations whose phase state is confirmed. A
// nation without orders is absent from the mapping entirely; the
// adjudicator infers the rest.
func buildOrderMap(orders []Order, states []PhaseState) engine.Orders {
	confirmed := map[godip.Nation]bool{}
	for _, state := range states {
		if state.OrdersConfirmed {
			confirmed[state.Nation] = true
		}
	}
	mapped := engine.Orders{}
	for _, order := range orders {
		if !confirmed[order.Nation] {
			continue
		}
		nationOrders, found := mapped[order.Nation]
		if !found {
			nationOrders = map[godip.Province][]string{}
			mapped[order.Nation] = nationOrders
		}
		nationOrders[order.Source] = order.Parts()
	}
	return mapped
}
