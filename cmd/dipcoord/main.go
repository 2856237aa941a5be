// Command dipcoord runs the game coordinator: the HTTP API, the deadline
// scheduler and the notification fan-out, backed by SQLite and an
// external adjudication service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zond/dipcoord/config"
	"github.com/zond/dipcoord/engine"
	"github.com/zond/dipcoord/game"
	"github.com/zond/dipcoord/notify"
	"github.com/zond/dipcoord/ratings"
	"github.com/zond/dipcoord/routes"
	"github.com/zond/dipcoord/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	engineClient := engine.NewClient(cfg.EngineURL,
		engine.WithHTTPClient(&http.Client{Timeout: cfg.EngineTimeout}))
	service := game.NewService(store, engineClient, game.WithLogger(log))

	dispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		return err
	}
	updater := ratings.NewUpdater(store, log)

	sink := func(ctx context.Context, events []game.Event) {
		dispatcher.Dispatch(ctx, events)
		for _, event := range events {
			if event.Kind != game.EventGameCompleted {
				continue
			}
			g, err := store.GetGame(ctx, event.GameID)
			if err != nil {
				log.Error("loading completed game for rating", "game_id", event.GameID, "error", err)
				continue
			}
			members, err := store.Members(ctx, event.GameID)
			if err != nil {
				log.Error("loading members for rating", "game_id", event.GameID, "error", err)
				continue
			}
			updater.HandleEvent(ctx, event, g, members)
		}
	}

	server := routes.NewServer(service, store, log,
		routes.WithEventSink(sink),
		routes.WithBaseURL(cfg.BaseURL),
		routes.WithRatings(store))

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}

	go sweep(ctx, cfg.SweepInterval, service, sink, log)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutting down", "error", err)
		}
	}()

	log.Info("listening", "addr", cfg.Addr, "engine", cfg.EngineURL, "db", cfg.DatabasePath)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sweep resolves due phases on a fixed interval until the context ends.
func sweep(ctx context.Context, interval time.Duration, service *game.Service, sink routes.EventSink, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			result, events, err := service.ResolveDue(ctx, now)
			if err != nil {
				log.Error("sweeping due phases", "error", err)
				continue
			}
			if result.Resolved+result.Deferred+result.Failed > 0 {
				log.Info("sweep finished",
					"resolved", result.Resolved,
					"deferred", result.Deferred,
					"failed", result.Failed)
			}
			sink(ctx, events)
		}
	}
}

func buildDispatcher(cfg config.Config, log *slog.Logger) (*notify.Dispatcher, error) {
	notifiers := []notify.Notifier{notify.LogNotifier{Log: log}}

	if cfg.FCMServerKey != "" {
		tokens := notify.StaticTokens{}
		if cfg.FCMTokensJSON != "" {
			if err := json.Unmarshal([]byte(cfg.FCMTokensJSON), &tokens); err != nil {
				return nil, err
			}
		}
		notifiers = append(notifiers, &notify.FCMNotifier{
			ServerKey: cfg.FCMServerKey,
			Tokens:    tokens,
			Log:       log,
		})
	}

	if cfg.SendGridKey != "" {
		addresses := notify.StaticAddresses{}
		if cfg.MailAddressesJSON != "" {
			if err := json.Unmarshal([]byte(cfg.MailAddressesJSON), &addresses); err != nil {
				return nil, err
			}
		}
		notifiers = append(notifiers, &notify.MailNotifier{
			APIKey:    cfg.SendGridKey,
			From:      notify.Address{Name: cfg.MailFromName, Addr: cfg.MailFromAddr},
			Addresses: addresses,
		})
	}

	return notify.NewDispatcher(log, notifiers...), nil
}
