package game

import (
	"math/rand"
	"sort"

	hungarianAlgorithm "github.com/oddg/hungarian-algorithm"
	"github.com/zond/godip"

	"github.com/zond/dipcoord/errs"
)

// An Allocator assigns nations to members at game start. The result is
// index-aligned with the members slice. Allocators must be deterministic
// given a fixed random source.
type Allocator interface {
	Allocate(members []Member, nations godip.Nations) ([]godip.Nation, error)
}

// RandomAllocator shuffles nations over members.
type RandomAllocator struct {
	Rand *rand.Rand
}

func (a RandomAllocator) Allocate(members []Member, nations godip.Nations) ([]godip.Nation, error) {
	if len(members) != len(nations) {
		return nil, errs.Newf(errs.CodeInvalidState, "can't assign %d nations to %d members", len(nations), len(members))
	}
	result := make([]godip.Nation, len(members))
	for memberIdx, nationIdx := range a.Rand.Perm(len(nations)) {
		result[memberIdx] = nations[nationIdx]
	}
	return result, nil
}

// OrderedAllocator hands nation i to the i-th member by join sequence.
type OrderedAllocator struct{}

func (OrderedAllocator) Allocate(members []Member, nations godip.Nations) ([]godip.Nation, error) {
	if len(members) != len(nations) {
		return nil, errs.Newf(errs.CodeInvalidState, "can't assign %d nations to %d members", len(nations), len(members))
	}
	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return members[order[i]].JoinSeq < members[order[j]].JoinSeq
	})
	result := make([]godip.Nation, len(members))
	for rank, memberIdx := range order {
		result[memberIdx] = nations[rank]
	}
	return result, nil
}

// PreferenceAllocator matches members to nations by their stated
// preferences using the hungarian algorithm: each member's cost for a
// nation is its position in their preference list, with unlisted nations
// costed in random order after the listed ones.
type PreferenceAllocator struct {
	Rand *rand.Rand
}

func (a PreferenceAllocator) Allocate(members []Member, nations godip.Nations) ([]godip.Nation, error) {
	if len(members) != len(nations) {
		return nil, errs.Newf(errs.CodeInvalidState, "can't assign %d nations to %d members", len(nations), len(members))
	}
	validNation := map[godip.Nation]bool{}
	for _, nation := range nations {
		validNation[nation] = true
	}
	costs := make([][]int, len(members))
	for memberIdx, member := range members {
		costMap := map[godip.Nation]int{}
		for _, nation := range member.Preferences {
			if validNation[nation] {
				costMap[nation] = len(costMap)
			}
		}
		memberCosts := make([]int, len(nations))
		for _, nationIdx := range a.Rand.Perm(len(nations)) {
			nation := nations[nationIdx]
			if _, found := costMap[nation]; !found {
				costMap[nation] = len(costMap)
			}
			memberCosts[nationIdx] = costMap[nation]
		}
		costs[memberIdx] = memberCosts
	}
	solution, err := hungarianAlgorithm.Solve(costs)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "solving nation assignment", err)
	}
	result := make([]godip.Nation, len(members))
	for memberIdx := range result {
		result[memberIdx] = nations[solution[memberIdx]]
	}
	return result, nil
}

func (s *Service) allocator(policy Assignment) (Allocator, error) {
	switch policy {
	case AssignRandom:
		return RandomAllocator{Rand: s.rand}, nil
	case AssignOrdered:
		return OrderedAllocator{}, nil
	case AssignPreferences:
		return PreferenceAllocator{Rand: s.rand}, nil
	}
	return nil, errs.Newf(errs.CodeInvalidState, "unknown nation assignment policy %q", policy)
}
