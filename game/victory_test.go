package game

import (
	"testing"

	"github.com/zond/godip"
)

func centers(counts map[godip.Nation]int) []SC {
	scs := []SC{}
	for nation, count := range counts {
		for i := 0; i < count; i++ {
			scs = append(scs, SC{Owner: nation})
		}
	}
	return scs
}

func TestEvaluateSolo(t *testing.T) {
	members := []Member{
		{UserID: "a", Nation: "Austria"},
		{UserID: "b", Nation: "England"},
		{UserID: "c", Nation: "France"},
	}

	for _, tc := range []struct {
		name   string
		counts map[godip.Nation]int
		want   godip.Nation
	}{
		{
			name:   "clear solo",
			counts: map[godip.Nation]int{"Austria": 19, "England": 3, "France": 2},
			want:   "Austria",
		},
		{
			name:   "below threshold",
			counts: map[godip.Nation]int{"Austria": 17, "England": 9, "France": 8},
		},
		{
			name:   "tie at the top",
			counts: map[godip.Nation]int{"Austria": 19, "England": 19},
		},
		{
			name:   "exactly at threshold",
			counts: map[godip.Nation]int{"Austria": 18, "England": 16},
			want:   "Austria",
		},
		{
			name:   "no centers at all",
			counts: map[godip.Nation]int{},
		},
		{
			name:   "non-member owner cannot tie the leader",
			counts: map[godip.Nation]int{"Austria": 18, "Neutral": 18},
			want:   "Austria",
		},
		{
			name:   "non-member owner cannot lead",
			counts: map[godip.Nation]int{"Austria": 18, "Neutral": 20},
			want:   "Austria",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			winner, won := EvaluateSolo(members, centers(tc.counts), 18)
			if tc.want == "" {
				if won {
					t.Errorf("EvaluateSolo found winner %s, want none", winner.Nation)
				}
				return
			}
			if !won {
				t.Fatalf("EvaluateSolo found no winner, want %s", tc.want)
			}
			if winner.Nation != tc.want {
				t.Errorf("winner = %s, want %s", winner.Nation, tc.want)
			}
		})
	}
}

func TestWantsDrawUnanimous(t *testing.T) {
	members := []Member{
		{Nation: "Austria"},
		{Nation: "England"},
		{Nation: "France", Eliminated: true},
	}

	states := []PhaseState{
		{Nation: "Austria", WantsDraw: true},
		{Nation: "England", WantsDraw: true},
		// The eliminated member's vote is irrelevant.
		{Nation: "France"},
	}
	if !wantsDrawUnanimous(members, states) {
		t.Error("unanimous survivors did not produce a draw")
	}

	states[1].WantsDraw = false
	if wantsDrawUnanimous(members, states) {
		t.Error("draw with a dissenting survivor")
	}

	// A single survivor can't draw with themselves.
	solo := []Member{
		{Nation: "Austria"},
		{Nation: "England", Eliminated: true},
	}
	soloStates := []PhaseState{{Nation: "Austria", WantsDraw: true}}
	if wantsDrawUnanimous(solo, soloStates) {
		t.Error("single survivor produced a draw")
	}
}
