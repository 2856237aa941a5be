package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aymerick/raymond"
	humanize "github.com/dustin/go-humanize"

	"github.com/zond/dipcoord/game"
)

// MessageTemplates are the handlebars sources for one event kind.
type MessageTemplates struct {
	Title string
	Body  string
}

// DefaultTemplates returns the stock message templates.
func DefaultTemplates() map[game.EventKind]MessageTemplates {
	return map[game.EventKind]MessageTemplates{
		game.EventMemberJoined: {
			Title: "{{gameName}}",
			Body:  "A new member joined {{gameName}}.",
		},
		game.EventGameStarted: {
			Title: "{{gameName}} has started",
			Body:  "{{season}} {{year}}, {{phaseType}} is open. Orders are due {{deadline}}.",
		},
		game.EventPhaseResolved: {
			Title: "{{gameName}}: {{season}} {{year}}, {{phaseType}}",
			Body:  "The phase resolved. Orders for the next phase are due {{deadline}}.",
		},
		game.EventPhaseDeferred: {
			Title: "{{gameName}}: deadline extended",
			Body:  "Some members are missing. The new deadline is {{deadline}}.",
		},
		game.EventGameCompleted: {
			Title: "{{gameName}} is over",
			Body:  "The game finished after {{season}} {{year}}.",
		},
		game.EventGameAbandoned: {
			Title: "{{gameName}} was abandoned",
			Body:  "The game master closed {{gameName}}.",
		},
	}
}

// Dispatcher renders events into notifications and hands them to every
// configured notifier. Delivery failures are logged, never propagated;
// events are post-commit side effects and the state machine has already
// moved on.
type Dispatcher struct {
	notifiers []Notifier
	templates map[game.EventKind]MessageTemplates
	log       *slog.Logger
	now       func() time.Time
}

// NewDispatcher wires a Dispatcher with the default templates.
func NewDispatcher(log *slog.Logger, notifiers ...Notifier) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		notifiers: notifiers,
		templates: DefaultTemplates(),
		log:       log,
		now:       time.Now,
	}
}

// Dispatch delivers every event to every notifier.
func (d *Dispatcher) Dispatch(ctx context.Context, events []game.Event) {
	for _, event := range events {
		n, err := d.render(event)
		if err != nil {
			d.log.ErrorContext(ctx, "rendering notification",
				"kind", event.Kind, "game_id", event.GameID, "error", err)
			continue
		}
		for _, notifier := range d.notifiers {
			if err := notifier.Send(ctx, event.UserIDs, n); err != nil {
				d.log.ErrorContext(ctx, "sending notification",
					"kind", event.Kind, "game_id", event.GameID, "error", err)
			}
		}
	}
}

func (d *Dispatcher) render(event game.Event) (Notification, error) {
	templates, found := d.templates[event.Kind]
	if !found {
		return Notification{}, fmt.Errorf("no templates for event kind %q", event.Kind)
	}

	data := map[string]interface{}{
		"gameID":    event.GameID,
		"gameName":  event.GameName,
		"variant":   event.Variant,
		"season":    string(event.Season),
		"year":      event.Year,
		"phaseType": string(event.PhaseType),
	}
	if !event.Deadline.IsZero() {
		data["deadline"] = humanize.RelTime(d.now(), event.Deadline, "ago", "from now")
	}

	title, err := raymond.Render(templates.Title, data)
	if err != nil {
		return Notification{}, fmt.Errorf("render title: %w", err)
	}
	body, err := raymond.Render(templates.Body, data)
	if err != nil {
		return Notification{}, fmt.Errorf("render body: %w", err)
	}

	return Notification{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"kind":         string(event.Kind),
			"gameID":       event.GameID,
			"phaseOrdinal": fmt.Sprint(event.PhaseOrdinal),
		},
	}, nil
}
