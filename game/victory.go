package game

import (
	"time"

	"github.com/zond/godip"
)

// Victory records the end of a game: the winning phase and the winning
// members. One member means a solo, two or more a draw. At most one per
// game, created exactly once.
type Victory struct {
	GameID       string
	PhaseOrdinal int
	Nations      []godip.Nation
	UserIDs      []string
	CreatedAt    time.Time
}

// Solo reports whether the victory was won alone.
func (v *Victory) Solo() bool {
	return len(v.Nations) == 1
}

// EvaluateSolo inspects post-resolution supply center ownership and
// returns the solo winner, if any: the single member holding a strict
// maximum of centers that is at or above the variant's threshold. A tie
// for the lead means no winner this round. Only member nations compete;
// centers held by any other owner never lead or tie. Draws are produced
// elsewhere; the evaluator only ever finds solos.
func EvaluateSolo(members []Member, scs []SC, threshold int) (*Member, bool) {
	counts := scCount(scs)
	var leader *Member
	leaderCount := 0
	tied := false
	for i := range members {
		count := counts[members[i].Nation]
		if count == 0 || count < leaderCount {
			continue
		}
		if count == leaderCount {
			tied = true
			continue
		}
		leader = &members[i]
		leaderCount = count
		tied = false
	}
	if leader == nil || tied || leaderCount < threshold {
		return nil, false
	}
	return leader, true
}

// wantsDrawUnanimous reports whether every surviving member has asked for
// a draw on the given phase states.
func wantsDrawUnanimous(members []Member, states []PhaseState) bool {
	wants := map[godip.Nation]bool{}
	for _, state := range states {
		if state.WantsDraw {
			wants[state.Nation] = true
		}
	}
	surviving := 0
	for _, member := range members {
		if !member.Active() {
			continue
		}
		surviving++
		if !wants[member.Nation] {
			return false
		}
	}
	// A draw needs at least two members left to share it.
	return surviving >= 2
}
