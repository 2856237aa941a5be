package game

import (
	"context"
	"time"

	"github.com/zond/godip"

	"github.com/zond/dipcoord/errs"
	"github.com/zond/dipcoord/metrics"
	"github.com/zond/dipcoord/variants"
)

// Resolve resolves the active phase of a game right now, regardless of
// confirmations. Unconfirmed members' orders are dropped, exactly as when
// the deadline forces resolution.
func (s *Service) Resolve(ctx context.Context, gameID string) ([]Event, error) {
	events := []Event{}
	err := s.store.Transact(ctx, func(repo Repo) error {
		g, err := repo.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Status != StatusActive {
			return errs.Newf(errs.CodeInvalidState, "game %s is %s, not resolvable", gameID, g.Status)
		}
		phase, err := repo.ActivePhase(ctx, gameID)
		if err != nil {
			return err
		}
		events, err = s.resolveLocked(ctx, repo, g, phase)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// resolveLocked resolves one active phase inside the caller's transaction.
//
// Draw votes short-circuit adjudication: a unanimous draw among survivors
// ends the game on the spot. Otherwise the confirmed orders go to the
// engine, the verdicts and the successor phase are persisted, members who
// lost their last unit and center are flagged eliminated, and a solo at or
// above the variant's threshold ends the game. A failed engine call rolls
// the whole transaction back and leaves the phase due for the next sweep.
func (s *Service) resolveLocked(ctx context.Context, repo Repo, g *Game, phase *Phase) ([]Event, error) {
	variant, err := variants.Get(g.Variant)
	if err != nil {
		return nil, err
	}
	members, err := repo.Members(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	states, err := repo.PhaseStates(ctx, g.ID, phase.Ordinal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if wantsDrawUnanimous(members, states) {
		phase.Status = PhaseCompleted
		phase.ResolvedAt = now
		if err := repo.UpdatePhase(ctx, phase); err != nil {
			return nil, err
		}
		return s.completeLocked(ctx, repo, g, phase, members, survivingNations(members))
	}

	orders, err := repo.Orders(ctx, g.ID, phase.Ordinal)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Resolve(ctx, g.Variant, phase.snapshot(), buildOrderMap(orders, states))
	if err != nil {
		return nil, err
	}

	resolutions := make([]Resolution, 0, len(result.Phase.Resolutions))
	for _, res := range result.Phase.Resolutions {
		resolutions = append(resolutions, Resolution{
			GameID:       g.ID,
			PhaseOrdinal: phase.Ordinal,
			Province:     res.Province,
			Status:       res.Result,
			By:           res.By,
		})
	}
	if err := repo.CreateResolutions(ctx, resolutions); err != nil {
		return nil, err
	}

	phase.Status = PhaseCompleted
	phase.ResolvedAt = now
	if err := repo.UpdatePhase(ctx, phase); err != nil {
		return nil, err
	}

	next := phaseFromResult(g.ID, phase.Ordinal+1, result, now)
	next.ScheduledAt = now.Add(g.PhaseLength)
	if err := repo.CreatePhase(ctx, next); err != nil {
		return nil, err
	}

	// A member with no unit and no center left is out of the game.
	units := unitCount(next.Units)
	centers := scCount(next.SCs)
	for i := range members {
		member := &members[i]
		if member.Eliminated || member.Kicked {
			continue
		}
		if units[member.Nation] == 0 && centers[member.Nation] == 0 {
			member.Eliminated = true
			if err := repo.UpdateMember(ctx, member); err != nil {
				return nil, err
			}
		}
	}

	if winner, won := EvaluateSolo(members, next.SCs, variant.SoloSupplyCenters); won {
		next.Status = PhaseCompleted
		if err := repo.UpdatePhase(ctx, next); err != nil {
			return nil, err
		}
		return s.completeLocked(ctx, repo, g, next, members, []godip.Nation{winner.Nation})
	}

	if err := s.createPhaseStates(ctx, repo, members, next, result); err != nil {
		return nil, err
	}
	return []Event{{
		Kind:         EventPhaseResolved,
		GameID:       g.ID,
		GameName:     g.Name,
		Variant:      g.Variant,
		PhaseOrdinal: next.Ordinal,
		Season:       next.Season,
		Year:         next.Year,
		PhaseType:    next.Type,
		Deadline:     next.ScheduledAt,
		UserIDs:      userIDs(members),
	}}, nil
}

// completeLocked ends a game with the given victors: one nation for a
// solo, all survivors for a draw. The winning phase is already completed.
func (s *Service) completeLocked(ctx context.Context, repo Repo, g *Game, phase *Phase, members []Member, victors []godip.Nation) ([]Event, error) {
	now := s.now()
	victorUsers := []string{}
	victorSet := map[godip.Nation]bool{}
	for _, nation := range victors {
		victorSet[nation] = true
	}
	for i := range members {
		member := &members[i]
		if !victorSet[member.Nation] {
			continue
		}
		if len(victors) == 1 {
			member.Won = true
		} else {
			member.Drew = true
		}
		if err := repo.UpdateMember(ctx, member); err != nil {
			return nil, err
		}
		victorUsers = append(victorUsers, member.UserID)
	}

	victory := &Victory{
		GameID:       g.ID,
		PhaseOrdinal: phase.Ordinal,
		Nations:      victors,
		UserIDs:      victorUsers,
		CreatedAt:    now,
	}
	if err := repo.CreateVictory(ctx, victory); err != nil {
		return nil, err
	}

	g.Status = StatusCompleted
	g.FinishedAt = now
	if err := repo.UpdateGame(ctx, g); err != nil {
		return nil, err
	}

	return []Event{{
		Kind:         EventGameCompleted,
		GameID:       g.ID,
		GameName:     g.Name,
		Variant:      g.Variant,
		PhaseOrdinal: phase.Ordinal,
		Season:       phase.Season,
		Year:         phase.Year,
		PhaseType:    phase.Type,
		UserIDs:      userIDs(members),
		Victors:      victorUsers,
	}}, nil
}

func survivingNations(members []Member) []godip.Nation {
	nations := []godip.Nation{}
	for _, member := range members {
		if member.Active() {
			nations = append(nations, member.Nation)
		}
	}
	return nations
}

// SweepResult summarizes one scheduler pass.
type SweepResult struct {
	Resolved int
	Deferred int
	Failed   int
}

// ResolveDue resolves every phase whose deadline has passed. A game with
// absent members and extensions left gets its deadline pushed out instead;
// once the allowance is spent the phase resolves without the missing
// orders. One game's failure never blocks the rest of the sweep.
func (s *Service) ResolveDue(ctx context.Context, now time.Time) (SweepResult, []Event, error) {
	started := s.now()
	result := SweepResult{}
	events := []Event{}

	due, err := s.store.DuePhases(ctx, now)
	if err != nil {
		return result, nil, err
	}

	for _, ref := range due {
		phaseEvents, outcome, err := s.resolveDueOne(ctx, ref, now)
		switch outcome {
		case "resolved":
			result.Resolved++
		case "deferred":
			result.Deferred++
		case "failed":
			result.Failed++
			s.log.Error("resolving due phase",
				"game_id", ref.GameID,
				"phase_ordinal", ref.Ordinal,
				"error", err)
		}
		if outcome != "" {
			metrics.Resolutions.WithLabelValues(outcome).Inc()
		}
		events = append(events, phaseEvents...)
	}

	metrics.SweepDuration.Observe(s.now().Sub(started).Seconds())
	return result, events, nil
}

// resolveDueOne runs one due phase in its own transaction. Outcome is
// "resolved", "deferred", "failed", or empty when another resolver got
// there first and there is nothing left to do.
func (s *Service) resolveDueOne(ctx context.Context, ref PhaseRef, now time.Time) ([]Event, string, error) {
	events := []Event{}
	outcome := ""
	err := s.store.Transact(ctx, func(repo Repo) error {
		g, err := repo.GetGame(ctx, ref.GameID)
		if err != nil {
			return err
		}
		phase, err := repo.GetPhase(ctx, ref.GameID, ref.Ordinal)
		if err != nil {
			return err
		}
		// Someone else resolved or deferred the phase since we listed it.
		if g.Status != StatusActive || phase.Status != PhaseActive || phase.ScheduledAt.After(now) {
			return nil
		}

		members, err := repo.Members(ctx, ref.GameID)
		if err != nil {
			return err
		}
		states, err := repo.PhaseStates(ctx, ref.GameID, ref.Ordinal)
		if err != nil {
			return err
		}
		if !allReady(members, states) && g.NMRExtensionsRemaining > 0 {
			g.NMRExtensionsRemaining--
			if err := repo.UpdateGame(ctx, g); err != nil {
				return err
			}
			phase.ScheduledAt = s.now().Add(g.PhaseLength)
			if err := repo.UpdatePhase(ctx, phase); err != nil {
				return err
			}
			outcome = "deferred"
			events = append(events, Event{
				Kind:         EventPhaseDeferred,
				GameID:       g.ID,
				GameName:     g.Name,
				Variant:      g.Variant,
				PhaseOrdinal: phase.Ordinal,
				Season:       phase.Season,
				Year:         phase.Year,
				PhaseType:    phase.Type,
				Deadline:     phase.ScheduledAt,
				UserIDs:      userIDs(members),
			})
			return nil
		}

		resolveEvents, err := s.resolveLocked(ctx, repo, g, phase)
		if err != nil {
			return err
		}
		outcome = "resolved"
		events = append(events, resolveEvents...)
		return nil
	})
	if err != nil {
		return nil, "failed", err
	}
	return events, outcome, nil
}
