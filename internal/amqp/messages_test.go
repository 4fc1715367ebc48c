package amqp

import (
	"strings"
	"testing"
)

func TestLedgerMessageRoundTrip(t *testing.T) {
	for _, build := range []func(string) *LedgerMessage{NewSyncMessage, NewDeleteMessage} {
		msg := build("tx-123")
		data, err := msg.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON: %v", err)
		}
		got, err := LedgerMessageFromJSON(data)
		if err != nil {
			t.Fatalf("LedgerMessageFromJSON: %v", err)
		}
		if got.Kind != msg.Kind || got.TransactionID != "tx-123" {
			t.Errorf("round trip changed message: %+v", got)
		}
		if got.Timestamp.IsZero() {
			t.Error("timestamp dropped in round trip")
		}
	}
}

func TestLedgerMessageKinds(t *testing.T) {
	if k := NewSyncMessage("x").Kind; k != KindSync {
		t.Errorf("sync kind = %q", k)
	}
	if k := NewDeleteMessage("x").Kind; k != KindDelete {
		t.Errorf("delete kind = %q", k)
	}
}

func TestLedgerMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := LedgerMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("expected unmarshal error")
	}
	if _, err := LedgerMessageFromJSON([]byte(strings.Repeat("[", 3))); err == nil {
		t.Error("expected unmarshal error")
	}
}
