package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zond/dipcoord/game"
)

type captureNotifier struct {
	sent []Notification
	to   [][]string
	err  error
}

func (c *captureNotifier) Send(ctx context.Context, userIDs []string, n Notification) error {
	c.sent = append(c.sent, n)
	c.to = append(c.to, userIDs)
	return c.err
}

func testDispatcher(notifiers ...Notifier) *Dispatcher {
	d := NewDispatcher(nil, notifiers...)
	d.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return d
}

func TestDispatchRendersPhaseResolved(t *testing.T) {
	capture := &captureNotifier{}
	d := testDispatcher(capture)

	d.Dispatch(context.Background(), []game.Event{{
		Kind:         game.EventPhaseResolved,
		GameID:       "g1",
		GameName:     "The Great War",
		Variant:      "Classical",
		PhaseOrdinal: 3,
		Season:       "Fall",
		Year:         1902,
		PhaseType:    "Movement",
		Deadline:     time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		UserIDs:      []string{"user-1", "user-2"},
	}})

	if len(capture.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(capture.sent))
	}
	n := capture.sent[0]
	if want := "The Great War: Fall 1902, Movement"; n.Title != want {
		t.Errorf("title = %q, want %q", n.Title, want)
	}
	if !strings.Contains(n.Body, "1 day from now") {
		t.Errorf("body = %q, want the humanized deadline", n.Body)
	}
	if n.Data["gameID"] != "g1" || n.Data["phaseOrdinal"] != "3" {
		t.Errorf("data = %v", n.Data)
	}
	if len(capture.to[0]) != 2 {
		t.Errorf("recipients = %v, want both users", capture.to[0])
	}
}

func TestDispatchContinuesPastFailures(t *testing.T) {
	failing := &captureNotifier{err: context.DeadlineExceeded}
	working := &captureNotifier{}
	d := testDispatcher(failing, working)

	d.Dispatch(context.Background(), []game.Event{
		{Kind: game.EventGameStarted, GameID: "g1", GameName: "a", Deadline: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)},
		{Kind: game.EventGameCompleted, GameID: "g1", GameName: "a"},
	})

	if len(working.sent) != 2 {
		t.Errorf("working notifier got %d notifications, want 2", len(working.sent))
	}
}

func TestDispatchSkipsUnknownKinds(t *testing.T) {
	capture := &captureNotifier{}
	d := testDispatcher(capture)
	d.Dispatch(context.Background(), []game.Event{{Kind: "mystery"}})
	if len(capture.sent) != 0 {
		t.Errorf("sent %d notifications for unknown kind, want 0", len(capture.sent))
	}
}

func TestStaticSources(t *testing.T) {
	tokens := StaticTokens{"user-1": {"tok-a", "tok-b"}}
	got, err := tokens.FCMTokens(context.Background(), []string{"user-1", "user-2"})
	if err != nil {
		t.Fatalf("FCMTokens: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("tokens = %v, want both of user-1's", got)
	}

	addresses := StaticAddresses{"user-1": {Name: "One", Addr: "one@example.com"}}
	gotAddrs, err := addresses.EmailAddresses(context.Background(), []string{"user-1", "user-2"})
	if err != nil {
		t.Fatalf("EmailAddresses: %v", err)
	}
	if len(gotAddrs) != 1 || gotAddrs[0].Addr != "one@example.com" {
		t.Errorf("addresses = %v", gotAddrs)
	}
}
