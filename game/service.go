package game

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/zond/godip"

	"github.com/zond/dipcoord/engine"
	"github.com/zond/dipcoord/errs"
	"github.com/zond/dipcoord/metrics"
	"github.com/zond/dipcoord/variants"
)

// Engine is the adjudication gateway the service calls out to.
type Engine interface {
	Start(ctx context.Context, variant string, nations godip.Nations) (*engine.Result, error)
	Resolve(ctx context.Context, variant string, phase engine.Phase, orders engine.Orders) (*engine.Result, error)
}

// Service coordinates games: it owns every state transition and hands the
// durable writes to the Store and the adjudication to the Engine.
type Service struct {
	store  Store
	engine Engine
	log    *slog.Logger
	now    func() time.Time
	rand   *rand.Rand
	newID  func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithRand replaces the random source used by nation assignment.
func WithRand(r *rand.Rand) ServiceOption {
	return func(s *Service) { s.rand = r }
}

// WithLogger replaces the logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithIDGenerator replaces the game id generator.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) { s.newID = newID }
}

// NewService wires a Service.
func NewService(store Store, eng Engine, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		engine: eng,
		log:    slog.Default(),
		now:    time.Now,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGameInput carries the parameters of a new game.
type CreateGameInput struct {
	Name          string
	Variant       string
	Assignment    Assignment
	PhaseLength   time.Duration
	Sandbox       bool
	NMRExtensions int
	// Creator becomes the first member and the game master.
	Creator            string
	CreatorPreferences godip.Nations
}

// CreateGame creates a pending game with its creator as first member.
func (s *Service) CreateGame(ctx context.Context, input CreateGameInput) (*Game, error) {
	variant, err := variants.Get(input.Variant)
	if err != nil {
		return nil, err
	}
	if input.Assignment == "" {
		input.Assignment = AssignRandom
	}
	if err := ValidAssignment(input.Assignment); err != nil {
		return nil, err
	}
	if err := ValidPhaseLength(input.PhaseLength); err != nil {
		return nil, err
	}
	if input.Creator == "" {
		return nil, errs.New(errs.CodeForbidden, "games need a creator")
	}
	if input.NMRExtensions < 0 {
		return nil, errs.New(errs.CodeInvalidState, "NMR extension allowance can't be negative")
	}

	g := &Game{
		ID:            s.newID(),
		Name:          input.Name,
		Variant:       variant.Name,
		Status:        StatusPending,
		Assignment:    input.Assignment,
		PhaseLength:   input.PhaseLength,
		Sandbox:       input.Sandbox,
		NMRExtensions: input.NMRExtensions,
		CreatedAt:     s.now(),
	}
	creator := &Member{
		GameID:      g.ID,
		UserID:      input.Creator,
		JoinSeq:     0,
		GameMaster:  true,
		Preferences: input.CreatorPreferences,
	}

	err = s.store.Transact(ctx, func(repo Repo) error {
		if err := repo.CreateGame(ctx, g); err != nil {
			return err
		}
		return repo.CreateMember(ctx, creator)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Join adds a user to a pending game, auto-starting it when the last seat
// fills. Rejected when the game is not pending, the user is already a
// member (except in sandbox games), or the game is full.
func (s *Service) Join(ctx context.Context, gameID, userID string, preferences godip.Nations) ([]Event, error) {
	events := []Event{}
	err := s.store.Transact(ctx, func(repo Repo) error {
		g, err := repo.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		variant, err := variants.Get(g.Variant)
		if err != nil {
			return err
		}
		members, err := repo.Members(ctx, gameID)
		if err != nil {
			return err
		}
		if err := g.Joinable(len(members), len(variant.Nations)); err != nil {
			return err
		}
		if _, isMember := memberByUser(members, userID); isMember && !g.Sandbox {
			return errs.Newf(errs.CodeInvalidState, "user %s is already a member of game %s", userID, gameID)
		}
		member := &Member{
			GameID:      gameID,
			UserID:      userID,
			JoinSeq:     len(members),
			Preferences: preferences,
		}
		if err := repo.CreateMember(ctx, member); err != nil {
			return err
		}
		members = append(members, *member)
		events = append(events, Event{
			Kind:     EventMemberJoined,
			GameID:   g.ID,
			GameName: g.Name,
			Variant:  g.Variant,
			UserIDs:  userIDs(members),
		})

		if len(members) == len(variant.Nations) {
			startEvents, err := s.startLocked(ctx, repo, g, variant, members)
			if err != nil {
				return err
			}
			events = append(events, startEvents...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Start explicitly starts a full pending game. It exists for callers that
// disabled auto-start semantics upstream; the transition is identical.
func (s *Service) Start(ctx context.Context, gameID string) ([]Event, error) {
	events := []Event{}
	err := s.store.Transact(ctx, func(repo Repo) error {
		g, err := repo.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Status != StatusPending {
			return errs.Newf(errs.CodeInvalidState, "game %s is %s, not startable", gameID, g.Status)
		}
		variant, err := variants.Get(g.Variant)
		if err != nil {
			return err
		}
		members, err := repo.Members(ctx, gameID)
		if err != nil {
			return err
		}
		if len(members) != len(variant.Nations) {
			return errs.Newf(errs.CodeInvalidState, "game %s has %d of %d members", gameID, len(members), len(variant.Nations))
		}
		events, err = s.startLocked(ctx, repo, g, variant, members)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// startLocked runs the pending->active transition inside the caller's
// transaction: assign nations, ask the engine for the starting phase,
// persist phase one and its states. A gateway failure rolls everything
// back and the game stays pending.
func (s *Service) startLocked(ctx context.Context, repo Repo, g *Game, variant variants.Variant, members []Member) ([]Event, error) {
	allocator, err := s.allocator(g.Assignment)
	if err != nil {
		return nil, err
	}
	assigned, err := allocator.Allocate(members, variant.Nations)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Start(ctx, g.Variant, variant.Nations)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range members {
		members[i].Nation = assigned[i]
		if err := repo.UpdateMember(ctx, &members[i]); err != nil {
			return nil, err
		}
	}

	phase := phaseFromResult(g.ID, 1, result, now)
	phase.ScheduledAt = now.Add(g.PhaseLength)
	if err := repo.CreatePhase(ctx, phase); err != nil {
		return nil, err
	}
	if err := s.createPhaseStates(ctx, repo, members, phase, result); err != nil {
		return nil, err
	}

	g.Status = StatusActive
	g.StartedAt = now
	g.NMRExtensionsRemaining = g.NMRExtensions
	if err := repo.UpdateGame(ctx, g); err != nil {
		return nil, err
	}

	metrics.GamesStarted.Inc()
	return []Event{{
		Kind:         EventGameStarted,
		GameID:       g.ID,
		GameName:     g.Name,
		Variant:      g.Variant,
		PhaseOrdinal: phase.Ordinal,
		Season:       phase.Season,
		Year:         phase.Year,
		PhaseType:    phase.Type,
		Deadline:     phase.ScheduledAt,
		UserIDs:      userIDs(members),
	}}, nil
}

// createPhaseStates creates one phase state per non-eliminated member,
// attaching the member's slice of the options document.
func (s *Service) createPhaseStates(ctx context.Context, repo Repo, members []Member, phase *Phase, result *engine.Result) error {
	for _, member := range members {
		if !member.Active() {
			continue
		}
		options := result.Options[member.Nation]
		state := &PhaseState{
			GameID:       phase.GameID,
			PhaseOrdinal: phase.Ordinal,
			Nation:       member.Nation,
			HasOrders:    hasPossibleOrders(options),
			Options:      options,
		}
		if err := repo.CreatePhaseState(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

// Abandon marks a game abandoned. Only the game master may do it.
func (s *Service) Abandon(ctx context.Context, gameID, userID string) ([]Event, error) {
	events := []Event{}
	err := s.store.Transact(ctx, func(repo Repo) error {
		g, err := repo.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Status == StatusCompleted || g.Status == StatusAbandoned {
			return errs.Newf(errs.CodeInvalidState, "game %s is already %s", gameID, g.Status)
		}
		members, err := repo.Members(ctx, gameID)
		if err != nil {
			return err
		}
		member, isMember := memberByUser(members, userID)
		if !isMember {
			return errs.Newf(errs.CodeNotAMember, "user %s is not a member of game %s", userID, gameID)
		}
		if !member.GameMaster {
			return errs.New(errs.CodeForbidden, "only the game master can abandon a game")
		}
		g.Status = StatusAbandoned
		g.FinishedAt = s.now()
		if err := repo.UpdateGame(ctx, g); err != nil {
			return err
		}
		events = append(events, Event{
			Kind:     EventGameAbandoned,
			GameID:   g.ID,
			GameName: g.Name,
			Variant:  g.Variant,
			UserIDs:  userIDs(members),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Kick flags a member kicked. Game master only. Kicked members stay on the
// game for history but stop counting for readiness and order submission.
func (s *Service) Kick(ctx context.Context, gameID, byUserID string, nation godip.Nation) error {
	return s.store.Transact(ctx, func(repo Repo) error {
		g, err := repo.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Status != StatusActive {
			return errs.Newf(errs.CodeInvalidState, "game %s is %s, can't kick", gameID, g.Status)
		}
		members, err := repo.Members(ctx, gameID)
		if err != nil {
			return err
		}
		by, isMember := memberByUser(members, byUserID)
		if !isMember {
			return errs.Newf(errs.CodeNotAMember, "user %s is not a member of game %s", byUserID, gameID)
		}
		if !by.GameMaster {
			return errs.New(errs.CodeForbidden, "only the game master can kick members")
		}
		target, found := memberByNation(members, nation)
		if !found {
			return errs.Newf(errs.CodeNotFound, "no member plays %s in game %s", nation, gameID)
		}
		target.Kicked = true
		return repo.UpdateMember(ctx, target)
	})
}

// activeMemberState loads the pieces every order-scoped operation needs:
// the active game, its active phase, the acting member and their phase
// state. All validation errors are typed.
func (s *Service) activeMemberState(ctx context.Context, repo Repo, gameID, userID string, nation godip.Nation) (*Game, *Phase, *Member, *PhaseState, error) {
	g, err := repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if g.Status != StatusActive {
		return nil, nil, nil, nil, errs.Newf(errs.CodeInvalidState, "game %s is %s, not active", gameID, g.Status)
	}
	phase, err := repo.ActivePhase(ctx, gameID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	members, err := repo.Members(ctx, gameID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	var member *Member
	if nation != "" {
		// Sandbox games let one user act for any of their seats.
		candidates := membersByUser(members, userID)
		for _, candidate := range candidates {
			if candidate.Nation == nation {
				member = candidate
				break
			}
		}
		if member == nil {
			return nil, nil, nil, nil, errs.Newf(errs.CodeNotAMember, "user %s does not play %s in game %s", userID, nation, gameID)
		}
	} else {
		found, isMember := memberByUser(members, userID)
		if !isMember {
			return nil, nil, nil, nil, errs.Newf(errs.CodeNotAMember, "user %s is not a member of game %s", userID, gameID)
		}
		member = found
	}
	if !member.Active() {
		return nil, nil, nil, nil, errs.Newf(errs.CodeForbidden, "member %s no longer acts in game %s", member.Nation, gameID)
	}
	state, err := repo.GetPhaseState(ctx, gameID, phase.Ordinal, string(member.Nation))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return g, phase, member, state, nil
}

// SubmitOrder upserts an order for the acting member's nation on the
// current phase. Orders are mutable only while the phase is active and the
// member unconfirmed.
func (s *Service) SubmitOrder(ctx context.Context, gameID, userID string, nation godip.Nation, order Order) error {
	return s.store.Transact(ctx, func(repo Repo) error {
		_, phase, member, state, err := s.activeMemberState(ctx, repo, gameID, userID, nation)
		if err != nil {
			return err
		}
		if state.OrdersConfirmed {
			return errs.New(errs.CodeInvalidState, "orders are confirmed; unconfirm before changing them")
		}
		order.GameID = gameID
		order.PhaseOrdinal = phase.Ordinal
		order.Nation = member.Nation
		return repo.PutOrder(ctx, &order)
	})
}

// DeleteOrder removes the member's order for a source province.
func (s *Service) DeleteOrder(ctx context.Context, gameID, userID string, nation godip.Nation, source godip.Province) error {
	return s.store.Transact(ctx, func(repo Repo) error {
		_, phase, member, state, err := s.activeMemberState(ctx, repo, gameID, userID, nation)
		if err != nil {
			return err
		}
		if state.OrdersConfirmed {
			return errs.New(errs.CodeInvalidState, "orders are confirmed; unconfirm before changing them")
		}
		return repo.DeleteOrder(ctx, gameID, phase.Ordinal, string(member.Nation), string(source))
	})
}

// ConfirmOrders toggles the member's confirmation on the current phase.
// Confirming again unconfirms. When the toggle leaves every active member
// ready, resolution fires synchronously inside the same transaction.
func (s *Service) ConfirmOrders(ctx context.Context, gameID, userID string, nation godip.Nation) (bool, []Event, error) {
	confirmed := false
	events := []Event{}
	err := s.store.Transact(ctx, func(repo Repo) error {
		g, phase, _, state, err := s.activeMemberState(ctx, repo, gameID, userID, nation)
		if err != nil {
			return err
		}
		state.OrdersConfirmed = !state.OrdersConfirmed
		confirmed = state.OrdersConfirmed
		if err := repo.UpdatePhaseState(ctx, state); err != nil {
			return err
		}
		if !confirmed {
			return nil
		}

		members, err := repo.Members(ctx, gameID)
		if err != nil {
			return err
		}
		states, err := repo.PhaseStates(ctx, gameID, phase.Ordinal)
		if err != nil {
			return err
		}
		if !allReady(members, states) {
			return nil
		}
		resolveEvents, err := s.resolveLocked(ctx, repo, g, phase)
		if err != nil {
			return err
		}
		events = append(events, resolveEvents...)
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return confirmed, events, nil
}

// SetWantsDraw toggles the member's draw vote on the current phase. When
// every surviving member wants a draw, the game ends in a shared victory
// at the next resolution.
func (s *Service) SetWantsDraw(ctx context.Context, gameID, userID string, nation godip.Nation, wantsDraw bool) error {
	return s.store.Transact(ctx, func(repo Repo) error {
		_, _, _, state, err := s.activeMemberState(ctx, repo, gameID, userID, nation)
		if err != nil {
			return err
		}
		state.WantsDraw = wantsDraw
		return repo.UpdatePhaseState(ctx, state)
	})
}

// allReady reports whether every active member's phase state is ready.
// Eliminated and kicked members are never required; members with no
// possible orders count as confirmed.
func allReady(members []Member, states []PhaseState) bool {
	byNation := map[godip.Nation]*PhaseState{}
	for i := range states {
		byNation[states[i].Nation] = &states[i]
	}
	for _, member := range members {
		if !member.Active() {
			continue
		}
		state, found := byNation[member.Nation]
		if !found || !state.Ready() {
			return false
		}
	}
	return true
}
