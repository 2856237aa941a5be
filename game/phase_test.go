package game

import (
	"encoding/json"
	"testing"
)

func TestHasPossibleOrders(t *testing.T) {
	for _, tc := range []struct {
		name    string
		options string
		want    bool
	}{
		{name: "empty document", options: "", want: false},
		{name: "empty object", options: "{}", want: false},
		{name: "empty nesting", options: `{"par":{"Hold":{}}}`, want: false},
		{name: "scalar leaf", options: `{"par":{"Next":{"bur":{"Type":"Province"}}}}`, want: true},
		{name: "array leaf", options: `{"par":["Hold"]}`, want: true},
		{name: "garbage", options: "not json", want: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := hasPossibleOrders(json.RawMessage(tc.options)); got != tc.want {
				t.Errorf("hasPossibleOrders(%s) = %v, want %v", tc.options, got, tc.want)
			}
		})
	}
}

func TestPhaseStateReady(t *testing.T) {
	confirmed := PhaseState{OrdersConfirmed: true, HasOrders: true}
	if !confirmed.Ready() {
		t.Error("confirmed state not ready")
	}
	unconfirmed := PhaseState{HasOrders: true}
	if unconfirmed.Ready() {
		t.Error("unconfirmed state with orders ready")
	}
	// Nothing to order means nothing to wait for.
	idle := PhaseState{}
	if !idle.Ready() {
		t.Error("state without possible orders not ready")
	}
}
