package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/zond/godip"

	"github.com/zond/dipcoord/errs"
	"github.com/zond/dipcoord/game"
	"github.com/zond/dipcoord/ratings"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "coordinator.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestOpenConfiguresConnection(t *testing.T) {
	store := openTempStore(t)

	var journalMode string
	if err := store.sqlDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if !strings.EqualFold(journalMode, "wal") {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}

	var busyTimeout int
	if err := store.sqlDB.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busyTimeout)
	}

	var foreignKeys int
	if err := store.sqlDB.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("foreign_keys = %d, want 1", foreignKeys)
	}

	var synchronous int
	if err := store.sqlDB.QueryRow("PRAGMA synchronous").Scan(&synchronous); err != nil {
		t.Fatalf("PRAGMA synchronous: %v", err)
	}
	if synchronous != 1 {
		t.Errorf("synchronous = %d, want 1 (NORMAL)", synchronous)
	}
}

func testGame(id string) *game.Game {
	return &game.Game{
		ID:          id,
		Name:        "test game",
		Variant:     "Classical",
		Status:      game.StatusPending,
		Assignment:  game.AssignRandom,
		PhaseLength: 24 * time.Hour,
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGameRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	created := testGame("g1")
	if err := store.CreateGame(ctx, created); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	loaded, err := store.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if diff := pretty.Diff(created, loaded); len(diff) > 0 {
		t.Errorf("loaded game differs: %v", diff)
	}

	loaded.Status = game.StatusActive
	loaded.StartedAt = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	loaded.NMRExtensionsRemaining = 2
	if err := store.UpdateGame(ctx, loaded); err != nil {
		t.Fatalf("UpdateGame: %v", err)
	}
	reloaded, err := store.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame after update: %v", err)
	}
	if diff := pretty.Diff(loaded, reloaded); len(diff) > 0 {
		t.Errorf("updated game differs: %v", diff)
	}

	if _, err := store.GetGame(ctx, "missing"); !errs.IsNotFound(err) {
		t.Errorf("GetGame(missing) = %v, want not found", err)
	}
}

func TestGamesByStatus(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	pending := testGame("pending1")
	active := testGame("active1")
	active.Status = game.StatusActive
	for _, g := range []*game.Game{pending, active} {
		if err := store.CreateGame(ctx, g); err != nil {
			t.Fatalf("CreateGame(%s): %v", g.ID, err)
		}
	}

	got, err := store.GamesByStatus(ctx, game.StatusActive)
	if err != nil {
		t.Fatalf("GamesByStatus: %v", err)
	}
	if len(got) != 1 || got[0].ID != "active1" {
		t.Errorf("GamesByStatus(active) = %v, want just active1", got)
	}
}

func TestMemberRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.CreateGame(ctx, testGame("g1")); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	member := &game.Member{
		GameID:      "g1",
		UserID:      "user-1",
		JoinSeq:     0,
		GameMaster:  true,
		Preferences: godip.Nations{godip.France, "England"},
	}
	if err := store.CreateMember(ctx, member); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	member.Nation = godip.France
	member.Eliminated = true
	if err := store.UpdateMember(ctx, member); err != nil {
		t.Fatalf("UpdateMember: %v", err)
	}

	members, err := store.Members(ctx, "g1")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("Members = %d entries, want 1", len(members))
	}
	if diff := pretty.Diff(*member, members[0]); len(diff) > 0 {
		t.Errorf("loaded member differs: %v", diff)
	}
}

func TestPhaseLifecycle(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.CreateGame(ctx, testGame("g1")); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	phase := &game.Phase{
		GameID:      "g1",
		Ordinal:     1,
		Season:      "Spring",
		Year:        1901,
		Type:        "Movement",
		Status:      game.PhaseActive,
		ScheduledAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Units: []game.Unit{
			{Province: "par", Type: "Army", Nation: godip.France},
			{Province: "bre", Type: "Fleet", Nation: godip.France},
		},
		SCs: []game.SC{
			{Province: "par", Owner: godip.France},
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.CreatePhase(ctx, phase); err != nil {
		t.Fatalf("CreatePhase: %v", err)
	}

	active, err := store.ActivePhase(ctx, "g1")
	if err != nil {
		t.Fatalf("ActivePhase: %v", err)
	}
	if diff := pretty.Diff(phase, active); len(diff) > 0 {
		t.Errorf("active phase differs: %v", diff)
	}

	due, err := store.DuePhases(ctx, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DuePhases: %v", err)
	}
	want := []game.PhaseRef{{GameID: "g1", Ordinal: 1}}
	if diff := pretty.Diff(want, due); len(diff) > 0 {
		t.Errorf("due phases differ: %v", diff)
	}

	early, err := store.DuePhases(ctx, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DuePhases before deadline: %v", err)
	}
	if len(early) != 0 {
		t.Errorf("DuePhases before deadline = %v, want none", early)
	}

	phase.Status = game.PhaseCompleted
	phase.ResolvedAt = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if err := store.UpdatePhase(ctx, phase); err != nil {
		t.Fatalf("UpdatePhase: %v", err)
	}
	if _, err := store.ActivePhase(ctx, "g1"); !errs.IsNotFound(err) {
		t.Errorf("ActivePhase after completion = %v, want not found", err)
	}
}

func TestPhaseStateRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	state := &game.PhaseState{
		GameID:       "g1",
		PhaseOrdinal: 1,
		Nation:       godip.France,
		HasOrders:    true,
		Options:      json.RawMessage(`{"par":{"Hold":{}}}`),
	}
	if err := store.CreatePhaseState(ctx, state); err != nil {
		t.Fatalf("CreatePhaseState: %v", err)
	}

	state.OrdersConfirmed = true
	state.WantsDraw = true
	if err := store.UpdatePhaseState(ctx, state); err != nil {
		t.Fatalf("UpdatePhaseState: %v", err)
	}

	loaded, err := store.GetPhaseState(ctx, "g1", 1, string(godip.France))
	if err != nil {
		t.Fatalf("GetPhaseState: %v", err)
	}
	if diff := pretty.Diff(state, loaded); len(diff) > 0 {
		t.Errorf("loaded phase state differs: %v", diff)
	}

	states, err := store.PhaseStates(ctx, "g1", 1)
	if err != nil {
		t.Fatalf("PhaseStates: %v", err)
	}
	if len(states) != 1 {
		t.Errorf("PhaseStates = %d entries, want 1", len(states))
	}
}

func TestOrderUpsertAndDelete(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	order := &game.Order{
		GameID:       "g1",
		PhaseOrdinal: 1,
		Nation:       godip.France,
		Type:         game.OrderMove,
		Source:       "par",
		Target:       "bur",
	}
	if err := store.PutOrder(ctx, order); err != nil {
		t.Fatalf("PutOrder: %v", err)
	}

	// Same source again replaces the order instead of duplicating it.
	order.Type = game.OrderHold
	order.Target = ""
	if err := store.PutOrder(ctx, order); err != nil {
		t.Fatalf("PutOrder upsert: %v", err)
	}

	orders, err := store.Orders(ctx, "g1", 1)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("Orders = %d entries, want 1", len(orders))
	}
	if orders[0].Type != game.OrderHold {
		t.Errorf("order type = %s, want %s", orders[0].Type, game.OrderHold)
	}

	if err := store.DeleteOrder(ctx, "g1", 1, string(godip.France), "par"); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if err := store.DeleteOrder(ctx, "g1", 1, string(godip.France), "par"); !errs.IsNotFound(err) {
		t.Errorf("DeleteOrder again = %v, want not found", err)
	}
}

func TestVictoryRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	victory := &game.Victory{
		GameID:       "g1",
		PhaseOrdinal: 12,
		Nations:      []godip.Nation{godip.France, "England"},
		UserIDs:      []string{"user-1", "user-2"},
		CreatedAt:    time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	if err := store.CreateVictory(ctx, victory); err != nil {
		t.Fatalf("CreateVictory: %v", err)
	}
	loaded, err := store.GetVictory(ctx, "g1")
	if err != nil {
		t.Fatalf("GetVictory: %v", err)
	}
	if diff := pretty.Diff(victory, loaded); len(diff) > 0 {
		t.Errorf("loaded victory differs: %v", diff)
	}
	if _, err := store.GetVictory(ctx, "other"); !errs.IsNotFound(err) {
		t.Errorf("GetVictory(other) = %v, want not found", err)
	}
}

func TestRatingUpsert(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.GetRating(ctx, "user-1"); !errs.IsNotFound(err) {
		t.Fatalf("GetRating(fresh) = %v, want not found", err)
	}

	rating := &ratings.Rating{
		UserID:    "user-1",
		Mu:        25,
		Sigma:     8.333,
		Rating:    0.001,
		GameCount: 1,
		UpdatedAt: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	if err := store.PutRating(ctx, rating); err != nil {
		t.Fatalf("PutRating: %v", err)
	}
	rating.Mu = 27.5
	rating.GameCount = 2
	if err := store.PutRating(ctx, rating); err != nil {
		t.Fatalf("PutRating upsert: %v", err)
	}

	loaded, err := store.GetRating(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetRating: %v", err)
	}
	if diff := pretty.Diff(rating, loaded); len(diff) > 0 {
		t.Errorf("loaded rating differs: %v", diff)
	}
}

func TestTransactRollsBack(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	boom := errs.New(errs.CodeInternal, "boom")
	err := store.Transact(ctx, func(repo game.Repo) error {
		if err := repo.CreateGame(ctx, testGame("doomed")); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("Transact = %v, want %v", err, boom)
	}
	if _, err := store.GetGame(ctx, "doomed"); !errs.IsNotFound(err) {
		t.Errorf("GetGame after rollback = %v, want not found", err)
	}

	if err := store.Transact(ctx, func(repo game.Repo) error {
		return repo.CreateGame(ctx, testGame("kept"))
	}); err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if _, err := store.GetGame(ctx, "kept"); err != nil {
		t.Errorf("GetGame after commit: %v", err)
	}
}
