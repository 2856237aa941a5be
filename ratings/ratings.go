// Package ratings keeps per-user TrueSkill ratings updated from finished
// games. Sandbox games never touch ratings.
package ratings

import (
	"context"
	"log/slog"
	"sort"
	"time"

	trueskill "github.com/mafredri/go-trueskill"

	"github.com/zond/dipcoord/errs"
	"github.com/zond/dipcoord/game"
)

// Rating is one user's skill estimate. Rating is the conservative
// TrueSkill estimate, the value shown on leaderboards.
type Rating struct {
	UserID    string
	Mu        float64
	Sigma     float64
	Rating    float64
	GameCount int
	UpdatedAt time.Time
}

// Store persists ratings. Absent users get errs.CodeNotFound.
type Store interface {
	GetRating(ctx context.Context, userID string) (*Rating, error)
	PutRating(ctx context.Context, r *Rating) error
}

// Updater recomputes member ratings when games complete.
type Updater struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewUpdater wires an Updater.
func NewUpdater(store Store, log *slog.Logger) *Updater {
	if log == nil {
		log = slog.Default()
	}
	return &Updater{store: store, log: log, now: time.Now}
}

// HandleEvent feeds completed games into the rating update. Every other
// event kind is ignored, as are sandbox games.
func (u *Updater) HandleEvent(ctx context.Context, event game.Event, g *game.Game, members []game.Member) {
	if event.Kind != game.EventGameCompleted {
		return
	}
	if g != nil && g.Sandbox {
		return
	}
	if err := u.Update(ctx, members); err != nil {
		u.log.Error("updating ratings", "game_id", event.GameID, "error", err)
	}
}

// Update adjusts every member's rating from one finished game. Winners and
// drawers share first place, everyone else is ranked by elimination:
// survivors above the eliminated.
func (u *Updater) Update(ctx context.Context, members []game.Member) error {
	if len(members) < 2 {
		return nil
	}
	sorted := make([]game.Member, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return placement(sorted[i]) < placement(sorted[j])
	})

	ts := trueskill.New()
	players := make([]trueskill.Player, len(sorted))
	current := make([]*Rating, len(sorted))
	for i, member := range sorted {
		rating, err := u.store.GetRating(ctx, member.UserID)
		if errs.IsNotFound(err) {
			fresh := ts.NewPlayer()
			rating = &Rating{
				UserID: member.UserID,
				Mu:     fresh.Mu(),
				Sigma:  fresh.Sigma(),
			}
		} else if err != nil {
			return err
		}
		current[i] = rating
		players[i] = trueskill.NewPlayer(rating.Mu, rating.Sigma)
	}

	draws := make([]bool, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		draws = append(draws, placement(sorted[i]) == placement(sorted[i-1]))
	}

	adjusted, _ := ts.AdjustSkillsWithDraws(players, draws)
	now := u.now()
	for i, player := range adjusted {
		rating := current[i]
		rating.Mu = player.Mu()
		rating.Sigma = player.Sigma()
		rating.Rating = ts.TrueSkill(player)
		rating.GameCount++
		rating.UpdatedAt = now
		if err := u.store.PutRating(ctx, rating); err != nil {
			return err
		}
	}
	return nil
}

// placement ranks a member's finish: victors first, then survivors, then
// the eliminated and kicked.
func placement(m game.Member) int {
	switch {
	case m.Won || m.Drew:
		return 0
	case m.Eliminated || m.Kicked:
		return 2
	default:
		return 1
	}
}
