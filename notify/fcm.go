package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davecgh/go-spew/spew"
	fcm "github.com/zond/go-fcm"
)

// TokenSource resolves user ids to their registered FCM device tokens.
type TokenSource interface {
	FCMTokens(ctx context.Context, userIDs []string) ([]string, error)
}

// StaticTokens is a TokenSource backed by a fixed map.
type StaticTokens map[string][]string

func (s StaticTokens) FCMTokens(ctx context.Context, userIDs []string) ([]string, error) {
	tokens := []string{}
	for _, userID := range userIDs {
		tokens = append(tokens, s[userID]...)
	}
	return tokens, nil
}

// FCMNotifier pushes notifications through Firebase Cloud Messaging.
type FCMNotifier struct {
	ServerKey string
	Tokens    TokenSource
	Log       *slog.Logger
}

func (f *FCMNotifier) Send(ctx context.Context, userIDs []string, n Notification) error {
	tokens, err := f.Tokens.FCMTokens(ctx, userIDs)
	if err != nil {
		return err
	}
	live := []string{}
	for _, token := range tokens {
		if token != "" {
			live = append(live, token)
		}
	}
	if len(live) == 0 {
		return nil
	}

	client := fcm.NewFcmClient(f.ServerKey)
	client.AppendDevices(live)
	client.SetNotificationPayload(&fcm.NotificationPayload{
		Title:       n.Title,
		Body:        n.Body,
		ClickAction: n.ClickAction,
	})
	if len(n.Data) > 0 {
		client.SetMsgData(n.Data)
	}

	resp, err := client.Send()
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case 401:
		return fmt.Errorf("fcm rejected the server key: status %d", resp.StatusCode)
	case 400:
		// The payload is broken; retrying won't help.
		if f.Log != nil {
			f.Log.ErrorContext(ctx, "fcm rejected payload",
				"status", resp.StatusCode,
				"payload", spew.Sdump(n))
		}
		return nil
	}
	return nil
}
