package game

import (
	"github.com/zond/godip"
)

// Member is one (user, game, nation) binding. The nation is assigned at
// game start and never reassigned. Eliminated and kicked members stay on
// the game for history but are excluded from order submission and
// readiness checks.
type Member struct {
	GameID string
	UserID string
	// JoinSeq is the member's join sequence number, starting at 0 for the
	// game's creator. It keys the member and drives ordered assignment.
	JoinSeq int
	Nation  godip.Nation
	// Preferences is the member's nation wish list for preference
	// assignment, most wanted first.
	Preferences godip.Nations

	GameMaster bool
	Won        bool
	Drew       bool
	Eliminated bool
	Kicked     bool
}

// Active reports whether the member still acts in the game.
func (m *Member) Active() bool {
	return !m.Eliminated && !m.Kicked
}

// memberByNation finds the member playing nation.
func memberByNation(members []Member, nation godip.Nation) (*Member, bool) {
	for i := range members {
		if members[i].Nation == nation {
			return &members[i], true
		}
	}
	return nil, false
}

// memberByUser finds the member bound to userID. In sandbox games one user
// may hold several seats; this returns the first and callers that care use
// membersByUser.
func memberByUser(members []Member, userID string) (*Member, bool) {
	for i := range members {
		if members[i].UserID == userID {
			return &members[i], true
		}
	}
	return nil, false
}

func membersByUser(members []Member, userID string) []*Member {
	found := []*Member{}
	for i := range members {
		if members[i].UserID == userID {
			found = append(found, &members[i])
		}
	}
	return found
}

// userIDs collects the distinct user ids of members.
func userIDs(members []Member) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, m := range members {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}
	return ids
}
