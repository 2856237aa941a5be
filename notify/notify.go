// Package notify fans domain events out to members: push through FCM,
// mail through SendGrid, with a log-only fallback. Message texts are
// handlebars templates rendered per event.
package notify

import (
	"context"
	"log/slog"
)

// Notification is one rendered message, ready for delivery.
type Notification struct {
	Title       string
	Body        string
	ClickAction string
	// Data rides along as the message payload for clients that want to
	// deep-link instead of showing the rendered text.
	Data map[string]string
}

// A Notifier delivers one notification to a set of users. Implementations
// resolve user ids to their own address space and silently skip users
// they know nothing about.
type Notifier interface {
	Send(ctx context.Context, userIDs []string, n Notification) error
}

// LogNotifier writes notifications to the log. It is the default sink
// when neither FCM nor SendGrid is configured, and keeps development
// setups observable.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) Send(ctx context.Context, userIDs []string, n Notification) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "notification",
		"users", userIDs,
		"title", n.Title,
		"body", n.Body)
	return nil
}
