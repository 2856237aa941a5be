package routes

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/feeds"

	"github.com/zond/dipcoord/game"
)

const feedItemLimit = 100

// rssFeed serves the resolved phases of running and finished games as an
// RSS feed, newest first.
func (s *Server) rssFeed(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		game  game.Game
		phase game.Phase
	}
	entries := []entry{}
	for _, status := range []game.Status{game.StatusActive, game.StatusCompleted} {
		games, err := s.store.GamesByStatus(r.Context(), status)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		for _, g := range games {
			phases, err := s.store.Phases(r.Context(), g.ID)
			if err != nil {
				s.renderError(w, r, err)
				return
			}
			for _, phase := range phases {
				if phase.Status == game.PhaseCompleted && !phase.ResolvedAt.IsZero() {
					entries = append(entries, entry{game: g, phase: phase})
				}
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].phase.ResolvedAt.After(entries[j].phase.ResolvedAt)
	})
	if len(entries) > feedItemLimit {
		entries = entries[:feedItemLimit]
	}

	created := time.Now()
	if len(entries) > 0 {
		created = entries[0].phase.ResolvedAt
	}
	author := &feeds.Author{Name: "dipcoord"}
	feed := &feeds.Feed{
		Title:       "dipcoord phases",
		Link:        &feeds.Link{Href: s.baseURL},
		Description: "Resolved phases of hosted diplomacy games.",
		Author:      author,
		Created:     created,
	}
	for _, e := range entries {
		feed.Items = append(feed.Items, &feeds.Item{
			Title: fmt.Sprintf("%s: %s %d, %s resolved",
				e.game.Name, e.phase.Season, e.phase.Year, e.phase.Type),
			Link: &feeds.Link{Href: fmt.Sprintf("%s/games/%s/phases/%d",
				s.baseURL, e.game.ID, e.phase.Ordinal)},
			Description: fmt.Sprintf("Phase %d of %s (%s) resolved.",
				e.phase.Ordinal, e.game.Name, e.game.Variant),
			Author:  author,
			Created: e.phase.ResolvedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "max-age=300")
	_, _ = w.Write([]byte(rss))
}
