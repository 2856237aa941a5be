// Package routes is the HTTP surface of the coordinator. Authentication
// is delegated upstream; handlers trust the X-User-ID header.
package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zond/godip"

	"github.com/zond/dipcoord/errs"
	"github.com/zond/dipcoord/game"
	"github.com/zond/dipcoord/ratings"
	"github.com/zond/dipcoord/variants"
)

const userHeader = "X-User-ID"

// EventSink receives the domain events of a committed operation.
type EventSink func(ctx context.Context, events []game.Event)

// Server holds the handlers' dependencies.
type Server struct {
	service *game.Service
	store   game.Store
	ratings ratings.Store
	log     *slog.Logger
	baseURL string
	onEvent EventSink
}

// Option configures a Server.
type Option func(*Server)

// WithEventSink installs the post-commit event callback.
func WithEventSink(sink EventSink) Option {
	return func(s *Server) { s.onEvent = sink }
}

// WithBaseURL sets the public base URL used in feed links.
func WithBaseURL(baseURL string) Option {
	return func(s *Server) { s.baseURL = baseURL }
}

// WithRatings enables the ratings endpoint.
func WithRatings(store ratings.Store) Option {
	return func(s *Server) { s.ratings = store }
}

// NewServer wires a Server.
func NewServer(service *game.Service, store game.Store, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		service: service,
		store:   store,
		log:     log,
		baseURL: "http://localhost:8080",
		onEvent: func(context.Context, []game.Event) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/variants", s.listVariants).Methods("GET")
	r.HandleFunc("/rss", s.rssFeed).Methods("GET")

	r.HandleFunc("/games", s.createGame).Methods("POST")
	r.HandleFunc("/games", s.listGames).Methods("GET")
	r.HandleFunc("/games/{id}", s.getGame).Methods("GET")
	r.HandleFunc("/games/{id}/join", s.joinGame).Methods("POST")
	r.HandleFunc("/games/{id}/start", s.startGame).Methods("POST")
	r.HandleFunc("/games/{id}/abandon", s.abandonGame).Methods("POST")
	r.HandleFunc("/games/{id}/kick", s.kickMember).Methods("POST")
	r.HandleFunc("/games/{id}/resolve", s.resolveGame).Methods("POST")
	r.HandleFunc("/games/{id}/victory", s.getVictory).Methods("GET")

	r.HandleFunc("/games/{id}/phases", s.listPhases).Methods("GET")
	r.HandleFunc("/games/{id}/phases/{ordinal}", s.getPhase).Methods("GET")
	r.HandleFunc("/games/{id}/phase-state", s.getPhaseState).Methods("GET")

	r.HandleFunc("/games/{id}/orders", s.submitOrder).Methods("POST")
	r.HandleFunc("/games/{id}/orders/{source}", s.deleteOrder).Methods("DELETE")
	r.HandleFunc("/games/{id}/confirm", s.confirmOrders).Methods("POST")
	r.HandleFunc("/games/{id}/draw", s.setWantsDraw).Methods("POST")

	if s.ratings != nil {
		r.HandleFunc("/users/{id}/rating", s.getRating).Methods("GET")
	}
	return r
}

func (s *Server) renderJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("encoding response", "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeForbidden, errs.CodeNotAMember:
		status = http.StatusForbidden
	case errs.CodeInvalidState:
		status = http.StatusConflict
	case errs.CodeAdjudication:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.renderJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		s.renderJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "missing " + userHeader + " header",
		})
		return "", false
	}
	return userID, true
}

func decodeBody(r *http.Request, into interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return errs.Wrap(errs.CodeInvalidState, "decoding request body", err)
	}
	return nil
}

type variantView struct {
	Name              string   `json:"name"`
	Nations           []string `json:"nations"`
	SoloSupplyCenters int      `json:"soloSupplyCenters"`
}

func (s *Server) listVariants(w http.ResponseWriter, r *http.Request) {
	views := []variantView{}
	for _, name := range variants.Names() {
		variant, err := variants.Get(name)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		nations := make([]string, len(variant.Nations))
		for i, nation := range variant.Nations {
			nations[i] = string(nation)
		}
		views = append(views, variantView{
			Name:              variant.Name,
			Nations:           nations,
			SoloSupplyCenters: variant.SoloSupplyCenters,
		})
	}
	s.renderJSON(w, http.StatusOK, views)
}

type gameView struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	Variant                string       `json:"variant"`
	Status                 string       `json:"status"`
	Assignment             string       `json:"assignment"`
	PhaseLengthMinutes     int          `json:"phaseLengthMinutes"`
	Sandbox                bool         `json:"sandbox"`
	NMRExtensions          int          `json:"nmrExtensions"`
	NMRExtensionsRemaining int          `json:"nmrExtensionsRemaining"`
	CreatedAt              time.Time    `json:"createdAt"`
	StartedAt              *time.Time   `json:"startedAt,omitempty"`
	FinishedAt             *time.Time   `json:"finishedAt,omitempty"`
	Members                []memberView `json:"members,omitempty"`
}

type memberView struct {
	UserID     string `json:"userId"`
	Nation     string `json:"nation,omitempty"`
	GameMaster bool   `json:"gameMaster"`
	Won        bool   `json:"won,omitempty"`
	Drew       bool   `json:"drew,omitempty"`
	Eliminated bool   `json:"eliminated,omitempty"`
	Kicked     bool   `json:"kicked,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func viewGame(g *game.Game, members []game.Member) gameView {
	view := gameView{
		ID:                     g.ID,
		Name:                   g.Name,
		Variant:                g.Variant,
		Status:                 string(g.Status),
		Assignment:             string(g.Assignment),
		PhaseLengthMinutes:     int(g.PhaseLength / time.Minute),
		Sandbox:                g.Sandbox,
		NMRExtensions:          g.NMRExtensions,
		NMRExtensionsRemaining: g.NMRExtensionsRemaining,
		CreatedAt:              g.CreatedAt,
		StartedAt:              optionalTime(g.StartedAt),
		FinishedAt:             optionalTime(g.FinishedAt),
	}
	for _, member := range members {
		view.Members = append(view.Members, memberView{
			UserID:     member.UserID,
			Nation:     string(member.Nation),
			GameMaster: member.GameMaster,
			Won:        member.Won,
			Drew:       member.Drew,
			Eliminated: member.Eliminated,
			Kicked:     member.Kicked,
		})
	}
	return view
}

type createGameRequest struct {
	Name               string   `json:"name"`
	Variant            string   `json:"variant"`
	Assignment         string   `json:"assignment"`
	PhaseLengthMinutes int      `json:"phaseLengthMinutes"`
	Sandbox            bool     `json:"sandbox"`
	NMRExtensions      int      `json:"nmrExtensions"`
	Preferences        []string `json:"preferences"`
}

func toNations(names []string) godip.Nations {
	nations := make(godip.Nations, len(names))
	for i, name := range names {
		nations[i] = godip.Nation(name)
	}
	return nations
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	req := createGameRequest{}
	if err := decodeBody(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	g, err := s.service.CreateGame(r.Context(), game.CreateGameInput{
		Name:               req.Name,
		Variant:            req.Variant,
		Assignment:         game.Assignment(req.Assignment),
		PhaseLength:        time.Duration(req.PhaseLengthMinutes) * time.Minute,
		Sandbox:            req.Sandbox,
		NMRExtensions:      req.NMRExtensions,
		Creator:            userID,
		CreatorPreferences: toNations(req.Preferences),
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	members, err := s.store.Members(r.Context(), g.ID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusCreated, viewGame(g, members))
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	status := game.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = game.StatusPending
	}
	games, err := s.store.GamesByStatus(r.Context(), status)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	views := []gameView{}
	for i := range games {
		views = append(views, viewGame(&games[i], nil))
	}
	s.renderJSON(w, http.StatusOK, views)
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	g, err := s.store.GetGame(r.Context(), gameID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	members, err := s.store.Members(r.Context(), gameID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusOK, viewGame(g, members))
}

type joinRequest struct {
	Preferences []string `json:"preferences"`
}

func (s *Server) joinGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	req := joinRequest{}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			s.renderError(w, r, err)
			return
		}
	}
	gameID := mux.Vars(r)["id"]
	events, err := s.service.Join(r.Context(), gameID, userID, toNations(req.Preferences))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.onEvent(r.Context(), events)
	s.getGame(w, r)
}

func (s *Server) abandonGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	events, err := s.service.Abandon(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.onEvent(r.Context(), events)
	s.getGame(w, r)
}

type kickRequest struct {
	Nation string `json:"nation"`
}

func (s *Server) kickMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	req := kickRequest{}
	if err := decodeBody(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := s.service.Kick(r.Context(), mux.Vars(r)["id"], userID, godip.Nation(req.Nation)); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.getGame(w, r)
}

// requireMaster checks that userID holds the game master seat of gameID.
func (s *Server) requireMaster(r *http.Request, gameID, userID string) error {
	members, err := s.store.Members(r.Context(), gameID)
	if err != nil {
		return err
	}
	for _, member := range members {
		if member.UserID == userID && member.GameMaster {
			return nil
		}
	}
	return errs.New(errs.CodeForbidden, "only the game master may do that")
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	gameID := mux.Vars(r)["id"]
	if err := s.requireMaster(r, gameID, userID); err != nil {
		s.renderError(w, r, err)
		return
	}
	events, err := s.service.Start(r.Context(), gameID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.onEvent(r.Context(), events)
	s.getGame(w, r)
}

func (s *Server) resolveGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	gameID := mux.Vars(r)["id"]
	if err := s.requireMaster(r, gameID, userID); err != nil {
		s.renderError(w, r, err)
		return
	}
	events, err := s.service.Resolve(r.Context(), gameID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.onEvent(r.Context(), events)
	s.getGame(w, r)
}

type victoryView struct {
	GameID       string    `json:"gameId"`
	PhaseOrdinal int       `json:"phaseOrdinal"`
	Solo         bool      `json:"solo"`
	Nations      []string  `json:"nations"`
	UserIDs      []string  `json:"userIds"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Server) getVictory(w http.ResponseWriter, r *http.Request) {
	victory, err := s.store.GetVictory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	nations := make([]string, len(victory.Nations))
	for i, nation := range victory.Nations {
		nations[i] = string(nation)
	}
	s.renderJSON(w, http.StatusOK, victoryView{
		GameID:       victory.GameID,
		PhaseOrdinal: victory.PhaseOrdinal,
		Solo:         victory.Solo(),
		Nations:      nations,
		UserIDs:      victory.UserIDs,
		CreatedAt:    victory.CreatedAt,
	})
}

type unitView struct {
	Province    string `json:"province"`
	Type        string `json:"type"`
	Nation      string `json:"nation"`
	DislodgedBy string `json:"dislodgedBy,omitempty"`
}

type scView struct {
	Province string `json:"province"`
	Owner    string `json:"owner,omitempty"`
}

type resolutionView struct {
	Province string `json:"province"`
	Status   string `json:"status"`
	By       string `json:"by,omitempty"`
}

type phaseView struct {
	Ordinal     int              `json:"ordinal"`
	Season      string           `json:"season"`
	Year        int              `json:"year"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	ScheduledAt *time.Time       `json:"scheduledAt,omitempty"`
	ResolvedAt  *time.Time       `json:"resolvedAt,omitempty"`
	Units       []unitView       `json:"units"`
	SCs         []scView         `json:"supplyCenters"`
	Resolutions []resolutionView `json:"resolutions,omitempty"`
}

func viewPhase(p *game.Phase) phaseView {
	view := phaseView{
		Ordinal:     p.Ordinal,
		Season:      string(p.Season),
		Year:        p.Year,
		Type:        string(p.Type),
		Status:      string(p.Status),
		ScheduledAt: optionalTime(p.ScheduledAt),
		ResolvedAt:  optionalTime(p.ResolvedAt),
		Units:       []unitView{},
		SCs:         []scView{},
	}
	for _, unit := range p.Units {
		view.Units = append(view.Units, unitView{
			Province:    string(unit.Province),
			Type:        string(unit.Type),
			Nation:      string(unit.Nation),
			DislodgedBy: string(unit.DislodgedBy),
		})
	}
	for _, sc := range p.SCs {
		view.SCs = append(view.SCs, scView{
			Province: string(sc.Province),
			Owner:    string(sc.Owner),
		})
	}
	return view
}

func (s *Server) listPhases(w http.ResponseWriter, r *http.Request) {
	phases, err := s.store.Phases(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	views := []phaseView{}
	for i := range phases {
		views = append(views, viewPhase(&phases[i]))
	}
	s.renderJSON(w, http.StatusOK, views)
}

func (s *Server) getPhase(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ordinal, err := strconv.Atoi(vars["ordinal"])
	if err != nil {
		s.renderError(w, r, errs.Wrap(errs.CodeInvalidState, "parsing phase ordinal", err))
		return
	}
	phase, err := s.store.GetPhase(r.Context(), vars["id"], ordinal)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	view := viewPhase(phase)
	if phase.Status == game.PhaseCompleted {
		resolutions, err := s.store.Resolutions(r.Context(), vars["id"], ordinal)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		for _, res := range resolutions {
			view.Resolutions = append(view.Resolutions, resolutionView{
				Province: string(res.Province),
				Status:   string(res.Status),
				By:       string(res.By),
			})
		}
	}
	s.renderJSON(w, http.StatusOK, view)
}

type phaseStateView struct {
	PhaseOrdinal    int             `json:"phaseOrdinal"`
	Nation          string          `json:"nation"`
	OrdersConfirmed bool            `json:"ordersConfirmed"`
	WantsDraw       bool            `json:"wantsDraw"`
	HasOrders       bool            `json:"hasOrders"`
	Options         json.RawMessage `json:"options,omitempty"`
	Orders          []orderView     `json:"orders"`
}

type orderView struct {
	Nation string `json:"nation"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
	Aux    string `json:"aux,omitempty"`
}

// getPhaseState returns the caller's own relation to the current phase:
// confirmation, draw vote, legal options and submitted orders.
func (s *Server) getPhaseState(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	gameID := mux.Vars(r)["id"]
	nation := godip.Nation(r.URL.Query().Get("nation"))

	phase, err := s.store.ActivePhase(r.Context(), gameID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	members, err := s.store.Members(r.Context(), gameID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	var member *game.Member
	for i := range members {
		if members[i].UserID != userID {
			continue
		}
		if nation == "" || members[i].Nation == nation {
			member = &members[i]
			break
		}
	}
	if member == nil {
		s.renderError(w, r, errs.Newf(errs.CodeNotAMember, "user %s is not a member of game %s", userID, gameID))
		return
	}
	state, err := s.store.GetPhaseState(r.Context(), gameID, phase.Ordinal, string(member.Nation))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	orders, err := s.store.Orders(r.Context(), gameID, phase.Ordinal)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	view := phaseStateView{
		PhaseOrdinal:    state.PhaseOrdinal,
		Nation:          string(state.Nation),
		OrdersConfirmed: state.OrdersConfirmed,
		WantsDraw:       state.WantsDraw,
		HasOrders:       state.HasOrders,
		Options:         state.Options,
		Orders:          []orderView{},
	}
	for _, order := range orders {
		if order.Nation != member.Nation {
			continue
		}
		view.Orders = append(view.Orders, orderView{
			Nation: string(order.Nation),
			Type:   string(order.Type),
			Source: string(order.Source),
			Target: string(order.Target),
			Aux:    string(order.Aux),
		})
	}
	s.renderJSON(w, http.StatusOK, view)
}

type orderRequest struct {
	Nation string `json:"nation"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Target string `json:"target"`
	Aux    string `json:"aux"`
}

func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	req := orderRequest{}
	if err := decodeBody(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	order, err := game.NewOrder(game.OrderType(req.Type),
		godip.Province(req.Source), godip.Province(req.Target), godip.Province(req.Aux))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	gameID := mux.Vars(r)["id"]
	if err := s.service.SubmitOrder(r.Context(), gameID, userID, godip.Nation(req.Nation), order); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	nation := godip.Nation(r.URL.Query().Get("nation"))
	err := s.service.DeleteOrder(r.Context(), vars["id"], userID, nation, godip.Province(vars["source"]))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmRequest struct {
	Nation string `json:"nation"`
}

func (s *Server) confirmOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	req := confirmRequest{}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			s.renderError(w, r, err)
			return
		}
	}
	gameID := mux.Vars(r)["id"]
	confirmed, events, err := s.service.ConfirmOrders(r.Context(), gameID, userID, godip.Nation(req.Nation))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.onEvent(r.Context(), events)
	s.renderJSON(w, http.StatusOK, map[string]bool{"ordersConfirmed": confirmed})
}

type drawRequest struct {
	Nation    string `json:"nation"`
	WantsDraw bool   `json:"wantsDraw"`
}

func (s *Server) setWantsDraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	req := drawRequest{}
	if err := decodeBody(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}
	gameID := mux.Vars(r)["id"]
	if err := s.service.SetWantsDraw(r.Context(), gameID, userID, godip.Nation(req.Nation), req.WantsDraw); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ratingView struct {
	UserID    string  `json:"userId"`
	Rating    float64 `json:"rating"`
	Mu        float64 `json:"mu"`
	Sigma     float64 `json:"sigma"`
	GameCount int     `json:"gameCount"`
}

func (s *Server) getRating(w http.ResponseWriter, r *http.Request) {
	rating, err := s.ratings.GetRating(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderJSON(w, http.StatusOK, ratingView{
		UserID:    rating.UserID,
		Rating:    rating.Rating,
		Mu:        rating.Mu,
		Sigma:     rating.Sigma,
		GameCount: rating.GameCount,
	})
}
