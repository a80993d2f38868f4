package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cfmail/console/internal/config"
	"github.com/cfmail/console/internal/events"
	"github.com/cfmail/console/internal/models"
)

type fakeMailer struct {
	sent []Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeMarkers struct {
	seen map[string]bool
}

func newFakeMarkers() *fakeMarkers { return &fakeMarkers{seen: map[string]bool{}} }

func (m *fakeMarkers) Claim(_ context.Context, key string) (bool, error) {
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *fakeMarkers) Release(_ context.Context, key string) error {
	delete(m.seen, key)
	return nil
}

type staticSettings struct {
	cfg models.SystemConfig
}

func (s staticSettings) Get(context.Context) (*models.SystemConfig, error) {
	cfg := s.cfg
	return &cfg, nil
}

func event(t *testing.T, id, eventType string, data any) events.Event {
	t.Helper()
	// Round-trip through the wire envelope so Data has the decoded shape.
	raw, err := events.Encode(eventType, data, time.Now().UTC())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var e events.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	e.ID = id
	return e
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name        string
		event       func(t *testing.T) events.Event
		wantSent    int
		wantTo      string
		wantSubject string
	}{
		{
			name: "card receipt",
			event: func(t *testing.T) events.Event {
				return event(t, "1-0", events.CardRedeemed, events.CardRedeemedEvent{
					UserID: "usr-1", Username: "alice", Email: "alice@example.com", Code: "ABC", Value: 10, Before: 1, After: 11,
				})
			},
			wantSent:    1,
			wantTo:      "alice@example.com",
			wantSubject: "Card code redeemed",
		},
		{
			name: "low quota warning",
			event: func(t *testing.T) events.Event {
				return event(t, "2-0", events.QuotaChanged, events.QuotaChangedEvent{
					UserID: "usr-1", Username: "alice", Email: "alice@example.com", Before: 4, After: 3, Reason: events.ReasonRuleCreated,
				})
			},
			wantSent:    1,
			wantTo:      "alice@example.com",
			wantSubject: "running low",
		},
		{
			name: "quota above threshold",
			event: func(t *testing.T) events.Event {
				return event(t, "3-0", events.QuotaChanged, events.QuotaChangedEvent{
					UserID: "usr-1", Email: "alice@example.com", Before: 9, After: 8,
				})
			},
		},
		{
			name: "quota increase",
			event: func(t *testing.T) events.Event {
				return event(t, "4-0", events.QuotaChanged, events.QuotaChangedEvent{
					UserID: "usr-1", Email: "alice@example.com", Before: 0, After: 2,
				})
			},
		},
		{
			name: "rule created",
			event: func(t *testing.T) events.Event {
				return event(t, "5-0", events.EmailCreated, events.EmailCreatedEvent{
					UserID: "usr-1", Email: "shop@example.org", ToEmail: "alice@example.com",
				})
			},
			wantSent:    1,
			wantTo:      "alice@example.com",
			wantSubject: "shop@example.org",
		},
		{
			name: "unrelated event",
			event: func(t *testing.T) events.Event {
				return event(t, "6-0", events.UserDeleted, events.UserDeletedEvent{UserID: "usr-1"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{}
			n := NewNotifier(mailer, staticSettings{cfg: models.DefaultSystemConfig()}, newFakeMarkers())

			if err := n.Handle(context.Background(), tt.event(t)); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if len(mailer.sent) != tt.wantSent {
				t.Fatalf("expected %d mails, got %d", tt.wantSent, len(mailer.sent))
			}
			if tt.wantSent == 0 {
				return
			}
			if mailer.sent[0].To != tt.wantTo {
				t.Errorf("expected recipient %s, got %s", tt.wantTo, mailer.sent[0].To)
			}
			if !strings.Contains(mailer.sent[0].Subject, tt.wantSubject) {
				t.Errorf("subject %q does not mention %q", mailer.sent[0].Subject, tt.wantSubject)
			}
		})
	}
}

func TestHandleDisabled(t *testing.T) {
	cfg := models.DefaultSystemConfig()
	cfg.EmailNotification = false
	mailer := &fakeMailer{}
	n := NewNotifier(mailer, staticSettings{cfg: cfg}, newFakeMarkers())

	e := event(t, "1-0", events.CardRedeemed, events.CardRedeemedEvent{Email: "alice@example.com", Value: 1})
	if err := n.Handle(context.Background(), e); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("expected no mail while notifications are off, got %d", len(mailer.sent))
	}
}

func TestHandleIsIdempotent(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewNotifier(mailer, staticSettings{cfg: models.DefaultSystemConfig()}, newFakeMarkers())
	e := event(t, "1-0", events.CardRedeemed, events.CardRedeemedEvent{Email: "alice@example.com", Value: 1})

	for i := 0; i < 3; i++ {
		if err := n.Handle(context.Background(), e); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected exactly one mail, got %d", len(mailer.sent))
	}
}

func TestHandleReleasesOnFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp unavailable")}
	markers := newFakeMarkers()
	n := NewNotifier(mailer, staticSettings{cfg: models.DefaultSystemConfig()}, markers)
	e := event(t, "1-0", events.CardRedeemed, events.CardRedeemedEvent{Email: "alice@example.com", Value: 1})

	if err := n.Handle(context.Background(), e); err == nil {
		t.Fatal("expected send failure to be returned")
	}
	if markers.seen["1-0"] {
		t.Error("expected marker to be released after a failed send")
	}

	mailer.err = nil
	if err := n.Handle(context.Background(), e); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected retry to deliver, got %d mails", len(mailer.sent))
	}
}

func TestHandleMalformedPayload(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewNotifier(mailer, staticSettings{cfg: models.DefaultSystemConfig()}, newFakeMarkers())
	e := events.Event{ID: "1-0", Type: events.CardRedeemed, Data: "not an object"}

	if err := n.Handle(context.Background(), e); err != nil {
		t.Errorf("expected malformed payload to be dropped, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("expected no mail")
	}
}

func TestCompose(t *testing.T) {
	cfg := config.SMTPConfig{FromName: "Console", FromEmail: "noreply@example.com"}
	raw := string(compose(cfg, Message{To: "alice@example.com", Subject: "Hi\r\nBcc: evil@example.com", Body: "line one\nline two"}))

	if !strings.HasPrefix(raw, "From: Console <noreply@example.com>\r\n") {
		t.Errorf("unexpected From header: %q", raw)
	}
	if strings.Contains(raw, "\r\nBcc:") {
		t.Errorf("subject injected a header: %q", raw)
	}
	if !strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two") {
		t.Errorf("unexpected body: %q", raw)
	}
}
