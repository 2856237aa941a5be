// Package sqlite is the SQLite-backed store behind the game coordinator.
// One file, WAL mode, embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zond/godip"
	_ "modernc.org/sqlite"

	"github.com/zond/dipcoord/engine"
	"github.com/zond/dipcoord/errs"
	"github.com/zond/dipcoord/game"
	"github.com/zond/dipcoord/ratings"
	"github.com/zond/dipcoord/storage/sqlite/migrations"
)

// dbtx is the query surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements game.Store and ratings.Store on SQLite.
type Store struct {
	sqlDB *sql.DB
	q     dbtx
}

// Open opens the store at path, creating and migrating the database as
// needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, q: sqlDB}, nil
}

// Close closes the underlying database. Nil-safe so callers can defer it
// in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Transact runs fn inside one transaction. The Repo handed to fn is bound
// to the transaction; the receiver stays usable concurrently.
func (s *Store) Transact(ctx context.Context, fn func(game.Repo) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	bound := &Store{sqlDB: s.sqlDB, q: tx}
	if err := fn(bound); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

func joinNations(nations godip.Nations) string {
	parts := make([]string, len(nations))
	for i, nation := range nations {
		parts[i] = string(nation)
	}
	return strings.Join(parts, ",")
}

func splitNations(value string) godip.Nations {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	nations := make(godip.Nations, len(parts))
	for i, part := range parts {
		nations[i] = godip.Nation(part)
	}
	return nations
}

func joinStrings(values []string) string {
	return strings.Join(values, ",")
}

func splitStrings(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// CreateGame inserts a game.
func (s *Store) CreateGame(ctx context.Context, g *game.Game) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO games (
			id, name, variant, status, assignment, phase_length_millis,
			sandbox, nmr_extensions, nmr_extensions_remaining,
			created_at, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Variant, string(g.Status), string(g.Assignment),
		g.PhaseLength.Milliseconds(), g.Sandbox, g.NMRExtensions,
		g.NMRExtensionsRemaining, toMillis(g.CreatedAt),
		toMillis(g.StartedAt), toMillis(g.FinishedAt))
	return err
}

// UpdateGame overwrites a game row.
func (s *Store) UpdateGame(ctx context.Context, g *game.Game) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE games SET
			name = ?, variant = ?, status = ?, assignment = ?,
			phase_length_millis = ?, sandbox = ?, nmr_extensions = ?,
			nmr_extensions_remaining = ?, created_at = ?, started_at = ?,
			finished_at = ?
		WHERE id = ?`,
		g.Name, g.Variant, string(g.Status), string(g.Assignment),
		g.PhaseLength.Milliseconds(), g.Sandbox, g.NMRExtensions,
		g.NMRExtensionsRemaining, toMillis(g.CreatedAt),
		toMillis(g.StartedAt), toMillis(g.FinishedAt), g.ID)
	if err != nil {
		return err
	}
	return requireRow(result, "game %s", g.ID)
}

const gameColumns = `id, name, variant, status, assignment, phase_length_millis,
	sandbox, nmr_extensions, nmr_extensions_remaining, created_at, started_at, finished_at`

func scanGame(row interface{ Scan(...interface{}) error }) (*game.Game, error) {
	g := &game.Game{}
	var status, assignment string
	var phaseLengthMillis, createdAt, startedAt, finishedAt int64
	err := row.Scan(&g.ID, &g.Name, &g.Variant, &status, &assignment,
		&phaseLengthMillis, &g.Sandbox, &g.NMRExtensions,
		&g.NMRExtensionsRemaining, &createdAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	g.Status = game.Status(status)
	g.Assignment = game.Assignment(assignment)
	g.PhaseLength = time.Duration(phaseLengthMillis) * time.Millisecond
	g.CreatedAt = fromMillis(createdAt)
	g.StartedAt = fromMillis(startedAt)
	g.FinishedAt = fromMillis(finishedAt)
	return g, nil
}

// GetGame loads one game.
func (s *Store) GetGame(ctx context.Context, id string) (*game.Game, error) {
	g, err := scanGame(s.q.QueryRowContext(ctx,
		"SELECT "+gameColumns+" FROM games WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.CodeNotFound, "game %s not found", id)
	}
	return g, err
}

// GamesByStatus lists games in a lifecycle state, oldest first.
func (s *Store) GamesByStatus(ctx context.Context, status game.Status) ([]game.Game, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+gameColumns+" FROM games WHERE status = ? ORDER BY created_at, id",
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	games := []game.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// CreateMember inserts a member.
func (s *Store) CreateMember(ctx context.Context, m *game.Member) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO members (
			game_id, user_id, join_seq, nation, preferences,
			game_master, won, drew, eliminated, kicked
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.GameID, m.UserID, m.JoinSeq, string(m.Nation),
		joinNations(m.Preferences), m.GameMaster, m.Won, m.Drew,
		m.Eliminated, m.Kicked)
	return err
}

// UpdateMember overwrites a member row, keyed by game and join sequence.
func (s *Store) UpdateMember(ctx context.Context, m *game.Member) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE members SET
			user_id = ?, nation = ?, preferences = ?, game_master = ?,
			won = ?, drew = ?, eliminated = ?, kicked = ?
		WHERE game_id = ? AND join_seq = ?`,
		m.UserID, string(m.Nation), joinNations(m.Preferences),
		m.GameMaster, m.Won, m.Drew, m.Eliminated, m.Kicked,
		m.GameID, m.JoinSeq)
	if err != nil {
		return err
	}
	return requireRow(result, "member %d of game %s", m.JoinSeq, m.GameID)
}

// Members lists a game's members in join order.
func (s *Store) Members(ctx context.Context, gameID string) ([]game.Member, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT game_id, user_id, join_seq, nation, preferences,
			game_master, won, drew, eliminated, kicked
		FROM members WHERE game_id = ? ORDER BY join_seq`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := []game.Member{}
	for rows.Next() {
		m := game.Member{}
		var nation, preferences string
		if err := rows.Scan(&m.GameID, &m.UserID, &m.JoinSeq, &nation,
			&preferences, &m.GameMaster, &m.Won, &m.Drew,
			&m.Eliminated, &m.Kicked); err != nil {
			return nil, err
		}
		m.Nation = godip.Nation(nation)
		m.Preferences = splitNations(preferences)
		members = append(members, m)
	}
	return members, rows.Err()
}

func marshalPositions(units []game.Unit, scs []game.SC) (string, string, error) {
	unitsJSON, err := json.Marshal(units)
	if err != nil {
		return "", "", err
	}
	scsJSON, err := json.Marshal(scs)
	if err != nil {
		return "", "", err
	}
	return string(unitsJSON), string(scsJSON), nil
}

// CreatePhase inserts a phase.
func (s *Store) CreatePhase(ctx context.Context, p *game.Phase) error {
	unitsJSON, scsJSON, err := marshalPositions(p.Units, p.SCs)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO phases (
			game_id, ordinal, season, year, type, status, scheduled_at,
			units, supply_centers, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.GameID, p.Ordinal, string(p.Season), p.Year, string(p.Type),
		string(p.Status), toMillis(p.ScheduledAt), unitsJSON, scsJSON,
		toMillis(p.CreatedAt), toMillis(p.ResolvedAt))
	return err
}

// UpdatePhase overwrites a phase row.
func (s *Store) UpdatePhase(ctx context.Context, p *game.Phase) error {
	unitsJSON, scsJSON, err := marshalPositions(p.Units, p.SCs)
	if err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `
		UPDATE phases SET
			season = ?, year = ?, type = ?, status = ?, scheduled_at = ?,
			units = ?, supply_centers = ?, created_at = ?, resolved_at = ?
		WHERE game_id = ? AND ordinal = ?`,
		string(p.Season), p.Year, string(p.Type), string(p.Status),
		toMillis(p.ScheduledAt), unitsJSON, scsJSON,
		toMillis(p.CreatedAt), toMillis(p.ResolvedAt),
		p.GameID, p.Ordinal)
	if err != nil {
		return err
	}
	return requireRow(result, "phase %d of game %s", p.Ordinal, p.GameID)
}

const phaseColumns = `game_id, ordinal, season, year, type, status,
	scheduled_at, units, supply_centers, created_at, resolved_at`

func scanPhase(row interface{ Scan(...interface{}) error }) (*game.Phase, error) {
	p := &game.Phase{}
	var season, phaseType, status, unitsJSON, scsJSON string
	var scheduledAt, createdAt, resolvedAt int64
	err := row.Scan(&p.GameID, &p.Ordinal, &season, &p.Year, &phaseType,
		&status, &scheduledAt, &unitsJSON, &scsJSON, &createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	p.Season = godip.Season(season)
	p.Type = godip.PhaseType(phaseType)
	p.Status = game.PhaseStatus(status)
	p.ScheduledAt = fromMillis(scheduledAt)
	p.CreatedAt = fromMillis(createdAt)
	p.ResolvedAt = fromMillis(resolvedAt)
	if err := json.Unmarshal([]byte(unitsJSON), &p.Units); err != nil {
		return nil, fmt.Errorf("decode units of phase %d: %w", p.Ordinal, err)
	}
	if err := json.Unmarshal([]byte(scsJSON), &p.SCs); err != nil {
		return nil, fmt.Errorf("decode supply centers of phase %d: %w", p.Ordinal, err)
	}
	return p, nil
}

// GetPhase loads one phase.
func (s *Store) GetPhase(ctx context.Context, gameID string, ordinal int) (*game.Phase, error) {
	p, err := scanPhase(s.q.QueryRowContext(ctx,
		"SELECT "+phaseColumns+" FROM phases WHERE game_id = ? AND ordinal = ?",
		gameID, ordinal))
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.CodeNotFound, "phase %d of game %s not found", ordinal, gameID)
	}
	return p, err
}

// ActivePhase loads the game's single active phase.
func (s *Store) ActivePhase(ctx context.Context, gameID string) (*game.Phase, error) {
	p, err := scanPhase(s.q.QueryRowContext(ctx,
		"SELECT "+phaseColumns+" FROM phases WHERE game_id = ? AND status = ? ORDER BY ordinal DESC LIMIT 1",
		gameID, string(game.PhaseActive)))
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.CodeNotFound, "game %s has no active phase", gameID)
	}
	return p, err
}

// Phases lists a game's phases in order.
func (s *Store) Phases(ctx context.Context, gameID string) ([]game.Phase, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+phaseColumns+" FROM phases WHERE game_id = ? ORDER BY ordinal", gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	phases := []game.Phase{}
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, *p)
	}
	return phases, rows.Err()
}

// DuePhases lists active phases whose deadline has passed.
func (s *Store) DuePhases(ctx context.Context, now time.Time) ([]game.PhaseRef, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT game_id, ordinal FROM phases
		WHERE status = ? AND scheduled_at > 0 AND scheduled_at <= ?
		ORDER BY scheduled_at`,
		string(game.PhaseActive), toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := []game.PhaseRef{}
	for rows.Next() {
		ref := game.PhaseRef{}
		if err := rows.Scan(&ref.GameID, &ref.Ordinal); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// CreatePhaseState inserts a phase state.
func (s *Store) CreatePhaseState(ctx context.Context, state *game.PhaseState) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO phase_states (
			game_id, phase_ordinal, nation, orders_confirmed, wants_draw,
			has_orders, options
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		state.GameID, state.PhaseOrdinal, string(state.Nation),
		state.OrdersConfirmed, state.WantsDraw, state.HasOrders,
		string(state.Options))
	return err
}

// UpdatePhaseState overwrites a phase state row.
func (s *Store) UpdatePhaseState(ctx context.Context, state *game.PhaseState) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE phase_states SET
			orders_confirmed = ?, wants_draw = ?, has_orders = ?, options = ?
		WHERE game_id = ? AND phase_ordinal = ? AND nation = ?`,
		state.OrdersConfirmed, state.WantsDraw, state.HasOrders,
		string(state.Options), state.GameID, state.PhaseOrdinal,
		string(state.Nation))
	if err != nil {
		return err
	}
	return requireRow(result, "phase state %s of phase %d of game %s",
		state.Nation, state.PhaseOrdinal, state.GameID)
}

func scanPhaseState(row interface{ Scan(...interface{}) error }) (*game.PhaseState, error) {
	state := &game.PhaseState{}
	var nation, options string
	err := row.Scan(&state.GameID, &state.PhaseOrdinal, &nation,
		&state.OrdersConfirmed, &state.WantsDraw, &state.HasOrders, &options)
	if err != nil {
		return nil, err
	}
	state.Nation = godip.Nation(nation)
	if options != "" {
		state.Options = json.RawMessage(options)
	}
	return state, nil
}

const phaseStateColumns = `game_id, phase_ordinal, nation, orders_confirmed,
	wants_draw, has_orders, options`

// GetPhaseState loads one nation's phase state.
func (s *Store) GetPhaseState(ctx context.Context, gameID string, ordinal int, nation string) (*game.PhaseState, error) {
	state, err := scanPhaseState(s.q.QueryRowContext(ctx,
		"SELECT "+phaseStateColumns+" FROM phase_states WHERE game_id = ? AND phase_ordinal = ? AND nation = ?",
		gameID, ordinal, nation))
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.CodeNotFound,
			"phase state %s of phase %d of game %s not found", nation, ordinal, gameID)
	}
	return state, err
}

// PhaseStates lists every nation's state on one phase.
func (s *Store) PhaseStates(ctx context.Context, gameID string, ordinal int) ([]game.PhaseState, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+phaseStateColumns+" FROM phase_states WHERE game_id = ? AND phase_ordinal = ? ORDER BY nation",
		gameID, ordinal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	states := []game.PhaseState{}
	for rows.Next() {
		state, err := scanPhaseState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}

// PutOrder upserts an order on its (game, phase, nation, source) key.
func (s *Store) PutOrder(ctx context.Context, o *game.Order) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO orders (game_id, phase_ordinal, nation, source, type, target, aux)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id, phase_ordinal, nation, source)
		DO UPDATE SET type = excluded.type, target = excluded.target, aux = excluded.aux`,
		o.GameID, o.PhaseOrdinal, string(o.Nation), string(o.Source),
		string(o.Type), string(o.Target), string(o.Aux))
	return err
}

// DeleteOrder removes one order.
func (s *Store) DeleteOrder(ctx context.Context, gameID string, ordinal int, nation, source string) error {
	result, err := s.q.ExecContext(ctx,
		"DELETE FROM orders WHERE game_id = ? AND phase_ordinal = ? AND nation = ? AND source = ?",
		gameID, ordinal, nation, source)
	if err != nil {
		return err
	}
	return requireRow(result, "order %s of %s on phase %d of game %s",
		source, nation, ordinal, gameID)
}

// Orders lists every order on one phase.
func (s *Store) Orders(ctx context.Context, gameID string, ordinal int) ([]game.Order, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT game_id, phase_ordinal, nation, source, type, target, aux
		FROM orders WHERE game_id = ? AND phase_ordinal = ?
		ORDER BY nation, source`, gameID, ordinal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []game.Order{}
	for rows.Next() {
		o := game.Order{}
		var nation, source, typ, target, aux string
		if err := rows.Scan(&o.GameID, &o.PhaseOrdinal, &nation, &source,
			&typ, &target, &aux); err != nil {
			return nil, err
		}
		o.Nation = godip.Nation(nation)
		o.Source = godip.Province(source)
		o.Type = game.OrderType(typ)
		o.Target = godip.Province(target)
		o.Aux = godip.Province(aux)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CreateResolutions inserts the adjudicator's verdicts for one phase.
func (s *Store) CreateResolutions(ctx context.Context, resolutions []game.Resolution) error {
	for _, res := range resolutions {
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO order_resolutions (game_id, phase_ordinal, province, status, by_province)
			VALUES (?, ?, ?, ?, ?)`,
			res.GameID, res.PhaseOrdinal, string(res.Province),
			string(res.Status), string(res.By)); err != nil {
			return err
		}
	}
	return nil
}

// Resolutions lists the verdicts of one phase.
func (s *Store) Resolutions(ctx context.Context, gameID string, ordinal int) ([]game.Resolution, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT game_id, phase_ordinal, province, status, by_province
		FROM order_resolutions WHERE game_id = ? AND phase_ordinal = ?
		ORDER BY province`, gameID, ordinal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	resolutions := []game.Resolution{}
	for rows.Next() {
		res := game.Resolution{}
		var province, status, by string
		if err := rows.Scan(&res.GameID, &res.PhaseOrdinal, &province,
			&status, &by); err != nil {
			return nil, err
		}
		res.Province = godip.Province(province)
		res.Status = engine.Status(status)
		res.By = godip.Province(by)
		resolutions = append(resolutions, res)
	}
	return resolutions, rows.Err()
}

// CreateVictory inserts a game's single victory row.
func (s *Store) CreateVictory(ctx context.Context, v *game.Victory) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO victories (game_id, phase_ordinal, nations, user_ids, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		v.GameID, v.PhaseOrdinal, joinNations(v.Nations),
		joinStrings(v.UserIDs), toMillis(v.CreatedAt))
	return err
}

// GetVictory loads a game's victory, if it has one.
func (s *Store) GetVictory(ctx context.Context, gameID string) (*game.Victory, error) {
	v := &game.Victory{}
	var nations, users string
	var createdAt int64
	err := s.q.QueryRowContext(ctx, `
		SELECT game_id, phase_ordinal, nations, user_ids, created_at
		FROM victories WHERE game_id = ?`, gameID).
		Scan(&v.GameID, &v.PhaseOrdinal, &nations, &users, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.CodeNotFound, "game %s has no victory", gameID)
	}
	if err != nil {
		return nil, err
	}
	v.Nations = splitNations(nations)
	v.UserIDs = splitStrings(users)
	v.CreatedAt = fromMillis(createdAt)
	return v, nil
}

// GetRating loads a user's rating.
func (s *Store) GetRating(ctx context.Context, userID string) (*ratings.Rating, error) {
	r := &ratings.Rating{}
	var updatedAt int64
	err := s.q.QueryRowContext(ctx, `
		SELECT user_id, mu, sigma, rating, game_count, updated_at
		FROM ratings WHERE user_id = ?`, userID).
		Scan(&r.UserID, &r.Mu, &r.Sigma, &r.Rating, &r.GameCount, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.CodeNotFound, "user %s has no rating", userID)
	}
	if err != nil {
		return nil, err
	}
	r.UpdatedAt = fromMillis(updatedAt)
	return r, nil
}

// PutRating upserts a user's rating.
func (s *Store) PutRating(ctx context.Context, r *ratings.Rating) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ratings (user_id, mu, sigma, rating, game_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			mu = excluded.mu, sigma = excluded.sigma, rating = excluded.rating,
			game_count = excluded.game_count, updated_at = excluded.updated_at`,
		r.UserID, r.Mu, r.Sigma, r.Rating, r.GameCount, toMillis(r.UpdatedAt))
	return err
}

// requireRow converts a zero-row write into a typed not-found error.
func requireRow(result sql.Result, format string, args ...interface{}) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.New(errs.CodeNotFound, fmt.Sprintf(format, args...)+" not found")
	}
	return nil
}

var (
	_ game.Store    = (*Store)(nil)
	_ ratings.Store = (*Store)(nil)
)
