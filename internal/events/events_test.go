package events

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestDecodeMessage(t *testing.T) {
	raw, err := Encode(QuotaChanged, QuotaChangedEvent{UserID: "usr-1", Before: 4, After: 3, Reason: ReasonRuleCreated}, time.Now().UTC())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	event, err := decodeMessage(redis.XMessage{ID: "1700000000000-0", Values: map[string]any{"event": string(raw)}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.ID != "1700000000000-0" {
		t.Errorf("expected stream id to be carried, got %q", event.ID)
	}
	if event.Type != QuotaChanged {
		t.Errorf("expected type %s, got %s", QuotaChanged, event.Type)
	}

	var data QuotaChangedEvent
	if err := event.Decode(&data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.UserID != "usr-1" || data.Before != 4 || data.After != 3 || data.Reason != ReasonRuleCreated {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestDecodeMessageInvalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"missing event field", map[string]any{"other": "x"}},
		{"non-string event field", map[string]any{"event": 42}},
		{"malformed json", map[string]any{"event": "{not json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeMessage(redis.XMessage{ID: "1-0", Values: tt.values}); err == nil {
				t.Error("expected error")
			}
		})
	}
}
