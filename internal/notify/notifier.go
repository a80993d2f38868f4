// Package notify mails users about quota activity read from the event streams.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cfmail/console/internal/events"
	"github.com/cfmail/console/internal/metrics"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/quota"
)

const (
	// Group is the consumer group the notifier reads every stream with.
	Group = "notifier-group"

	// MarkerTTL bounds how long a delivered event id is remembered.
	MarkerTTL = 72 * time.Hour

	kindReceipt      = "card_receipt"
	kindQuotaWarning = "quota_warning"
	kindRuleCreated  = "rule_created"
)

// SettingsSource supplies the live system settings.
type SettingsSource interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
}

// Markers is satisfied by *redis.Markers.
type Markers interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Notifier struct {
	mailer   Mailer
	settings SettingsSource
	markers  Markers
}

func NewNotifier(mailer Mailer, settings SettingsSource, markers Markers) *Notifier {
	return &Notifier{mailer: mailer, settings: settings, markers: markers}
}

// Handle is an events.Handler. A returned error leaves the entry pending so
// it is retried on redelivery.
func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	cfg, err := n.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !cfg.EmailNotification {
		return nil
	}

	kind, msg, ok, err := compile(cfg, event)
	if err != nil {
		// A payload that does not decode will never succeed.
		log.Printf("Notifier: dropping %s %s: %v", event.Type, event.ID, err)
		return nil
	}
	if !ok {
		return nil
	}
	return n.deliver(ctx, event.ID, kind, msg)
}

func (n *Notifier) deliver(ctx context.Context, eventID, kind string, msg Message) error {
	if eventID != "" {
		claimed, err := n.markers.Claim(ctx, eventID)
		if err != nil {
			return err
		}
		if !claimed {
			metrics.NotificationsTotal.WithLabelValues(kind, "duplicate").Inc()
			return nil
		}
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		if eventID != "" {
			if relErr := n.markers.Release(ctx, eventID); relErr != nil {
				log.Printf("Notifier: %v", relErr)
			}
		}
		return err
	}

	metrics.NotificationsTotal.WithLabelValues(kind, "sent").Inc()
	log.Printf("Notifier: sent %s to %s", kind, msg.To)
	return nil
}

// compile turns an event into a message. ok is false for events that do not
// produce mail.
func compile(cfg *models.SystemConfig, event events.Event) (kind string, msg Message, ok bool, err error) {
	switch event.Type {
	case events.CardRedeemed:
		var data events.CardRedeemedEvent
		if err := event.Decode(&data); err != nil {
			return "", Message{}, false, err
		}
		if data.Email == "" {
			return "", Message{}, false, nil
		}
		return kindReceipt, receipt(cfg.SiteName, data), true, nil

	case events.QuotaChanged:
		var data events.QuotaChangedEvent
		if err := event.Decode(&data); err != nil {
			return "", Message{}, false, err
		}
		if data.Email == "" || !quota.ShouldWarn(data.Before, data.After) {
			return "", Message{}, false, nil
		}
		return kindQuotaWarning, quotaWarning(cfg.SiteName, data), true, nil

	case events.EmailCreated:
		var data events.EmailCreatedEvent
		if err := event.Decode(&data); err != nil {
			return "", Message{}, false, err
		}
		if data.ToEmail == "" {
			return "", Message{}, false, nil
		}
		return kindRuleCreated, ruleCreated(cfg.SiteName, data), true, nil
	}
	return "", Message{}, false, nil
}

func receipt(site string, e events.CardRedeemedEvent) Message {
	return Message{
		To:      e.Email,
		Subject: fmt.Sprintf("[%s] Card code redeemed", site),
		Body: fmt.Sprintf("Hello %s,\n\nCard code %s added %d to your quota.\nBalance: %d -> %d\n",
			e.Username, e.Code, e.Value, e.Before, e.After),
	}
}

func quotaWarning(site string, e events.QuotaChangedEvent) Message {
	body := fmt.Sprintf("Hello %s,\n\nYou have %d forwarding address(es) left.\n", e.Username, e.After)
	if !quota.HasQuota(e.After) {
		body = fmt.Sprintf("Hello %s,\n\nYour quota is used up. Redeem a card code to create more forwarding addresses.\n", e.Username)
	}
	return Message{
		To:      e.Email,
		Subject: fmt.Sprintf("[%s] Your quota is running low", site),
		Body:    body,
	}
}

func ruleCreated(site string, e events.EmailCreatedEvent) Message {
	return Message{
		To:      e.ToEmail,
		Subject: fmt.Sprintf("[%s] New forwarding address %s", site, e.Email),
		Body:    fmt.Sprintf("Mail sent to %s is now forwarded to %s.\n", e.Email, e.ToEmail),
	}
}
