package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	UserRegistered = "user.registered"
	UserDeleted    = "user.deleted"

	QuotaChanged = "quota.changed"
	CardRedeemed = "card.redeemed"

	EmailCreated = "email.created"
	EmailDeleted = "email.deleted"
)

// Stream names
const (
	UserEventsStream  = "user.events"
	QuotaEventsStream = "quota.events"
	EmailEventsStream = "email.events"
)

// Reasons carried by quota.changed
const (
	ReasonRuleCreated    = "rule_created"
	ReasonCardRedeemed   = "card_redeemed"
	ReasonAdminRecharge  = "admin_recharge"
	ReasonAdminSet       = "admin_set"
	ReasonAdminIncrement = "admin_increment"
	ReasonSelfSet        = "self_set"
)

// Event is the envelope written to every stream. ID is the stream entry id and
// is only populated on the consuming side.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Decode re-marshals the loosely typed Data into v.
func (e Event) Decode(v any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// User events
type UserRegisteredEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserDeletedEvent struct {
	UserID string `json:"userId"`
}

// Quota events
type QuotaChangedEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Reason   string `json:"reason"`
}

type CardRedeemedEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Code     string `json:"code"`
	Value    int    `json:"value"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
}

// Email events
type EmailCreatedEvent struct {
	RecordID string `json:"recordId"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	ToEmail  string `json:"toEmail"`
	RuleID   string `json:"ruleId"`
}

type EmailDeletedEvent struct {
	RecordID string `json:"recordId"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
}
