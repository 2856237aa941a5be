package game

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/zond/godip"

	"github.com/zond/dipcoord/engine"
	"github.com/zond/dipcoord/errs"
)

func TestNewOrder(t *testing.T) {
	for _, tc := range []struct {
		name    string
		typ     OrderType
		source  godip.Province
		target  godip.Province
		aux     godip.Province
		wantErr bool
	}{
		{name: "hold", typ: OrderHold, source: "par"},
		{name: "hold with target", typ: OrderHold, source: "par", target: "bur", wantErr: true},
		{name: "move", typ: OrderMove, source: "par", target: "bur"},
		{name: "move without target", typ: OrderMove, source: "par", wantErr: true},
		{name: "move with aux", typ: OrderMove, source: "par", target: "bur", aux: "mar", wantErr: true},
		{name: "convoyed move", typ: OrderMoveViaConvoy, source: "lon", target: "bre"},
		{name: "support", typ: OrderSupport, source: "mar", target: "par", aux: "bur"},
		{name: "support without aux", typ: OrderSupport, source: "mar", target: "par", wantErr: true},
		{name: "convoy", typ: OrderConvoy, source: "eng", target: "lon", aux: "bre"},
		{name: "build", typ: OrderBuild, source: "par", target: "Army"},
		{name: "build without target", typ: OrderBuild, source: "par", wantErr: true},
		{name: "disband", typ: OrderDisband, source: "par", target: "par"},
		{name: "no source", typ: OrderHold, wantErr: true},
		{name: "unknown type", typ: "Teleport", source: "par", wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder(tc.typ, tc.source, tc.target, tc.aux)
			if tc.wantErr {
				if !errs.IsInvalidState(err) {
					t.Errorf("NewOrder = %v, want invalid state error", err)
				}
				return
			}
			if err != nil {
				t.Errorf("NewOrder: %v", err)
			}
		})
	}
}

func TestOrderParts(t *testing.T) {
	hold, err := NewOrder(OrderHold, "par", "", "")
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if diff := pretty.Diff([]string{"Hold"}, hold.Parts()); len(diff) > 0 {
		t.Errorf("hold parts differ: %v", diff)
	}
	support, err := NewOrder(OrderSupport, "mar", "par", "bur")
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if diff := pretty.Diff([]string{"Support", "par", "bur"}, support.Parts()); len(diff) > 0 {
		t.Errorf("support parts differ: %v", diff)
	}
}

func TestBuildOrderMap(t *testing.T) {
	orders := []Order{
		{Nation: "France", Type: OrderMove, Source: "par", Target: "bur"},
		{Nation: "France", Type: OrderSupport, Source: "mar", Target: "par", Aux: "bur"},
		{Nation: "England", Type: OrderHold, Source: "lon"},
		{Nation: "Germany", Type: OrderMove, Source: "mun", Target: "tyr"},
	}
	states := []PhaseState{
		{Nation: "France", OrdersConfirmed: true},
		{Nation: "England", OrdersConfirmed: true},
		// Germany never confirmed; their orders must not reach the engine.
		{Nation: "Germany"},
	}

	got := buildOrderMap(orders, states)
	want := engine.Orders{
		"France": {
			"par": {"Move", "bur"},
			"mar": {"Support", "par", "bur"},
		},
		"England": {
			"lon": {"Hold"},
		},
	}
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Errorf("order map differs: %v", diff)
	}
}
