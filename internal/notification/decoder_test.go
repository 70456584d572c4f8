package notification

import (
	"testing"
)

const validFrame = `{"type":"notification","payload":{"id":"n1","title":"Hi","message":"Test","timestamp":"2025-01-01T00:00:00Z","category":"info"}}`

func TestDecode_Valid(t *testing.T) {
	n, ok := Decode([]byte(validFrame))
	if !ok {
		t.Fatal("expected frame to decode")
	}

	if n.ID != "n1" {
		t.Errorf("ID = %s, want n1", n.ID)
	}
	if n.Title != "Hi" {
		t.Errorf("Title = %s, want Hi", n.Title)
	}
	if n.Message != "Test" {
		t.Errorf("Message = %s, want Test", n.Message)
	}
	if n.Timestamp != "2025-01-01T00:00:00Z" {
		t.Errorf("Timestamp = %s, want 2025-01-01T00:00:00Z", n.Timestamp)
	}
	if n.Category != "info" {
		t.Errorf("Category = %s, want info", n.Category)
	}

	want := `{"id":"n1","title":"Hi","message":"Test","timestamp":"2025-01-01T00:00:00Z","category":"info"}`
	if string(n.Raw) != want {
		t.Errorf("Raw = %s, want %s", n.Raw, want)
	}
}

func TestDecode_ExtraFieldsPreserved(t *testing.T) {
	frame := `{"type":"notification","payload":{"id":"n2","title":"Deadline","caseId":"C-42","priority":3}}`

	n, ok := Decode([]byte(frame))
	if !ok {
		t.Fatal("expected frame to decode")
	}
	if string(n.Raw) != `{"id":"n2","title":"Deadline","caseId":"C-42","priority":3}` {
		t.Errorf("Raw = %s, extra fields not preserved", n.Raw)
	}
}

func TestDecode_ExactKeys(t *testing.T) {
	// A differently cased duplicate must not shadow the exact key
	frame := `{"type":"notification","Type":"x","payload":{"id":"n3","ID":"other","Title":"ignored"}}`

	n, ok := Decode([]byte(frame))
	if !ok {
		t.Fatal("expected frame to decode")
	}
	if n.ID != "n3" {
		t.Errorf("ID = %q, want n3", n.ID)
	}
	if n.Title != "" {
		t.Errorf("Title = %q, want empty (only exact-case keys are read)", n.Title)
	}
}

func TestDecode_NonStringFieldsPassThrough(t *testing.T) {
	frame := `{"type":"notification","payload":{"id":7,"title":"Hearing","timestamp":1735689600}}`

	n, ok := Decode([]byte(frame))
	if !ok {
		t.Fatal("expected object payload with numeric fields to decode")
	}
	if n.ID != "" {
		t.Errorf("ID = %q, want empty for numeric id", n.ID)
	}
	if n.Title != "Hearing" {
		t.Errorf("Title = %q, want Hearing", n.Title)
	}
	if string(n.Raw) != `{"id":7,"title":"Hearing","timestamp":1735689600}` {
		t.Errorf("Raw = %s, want payload verbatim", n.Raw)
	}
}

func TestDecode_Dropped(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		reason DropReason
	}{
		{"not json", `hello world`, DropMalformed},
		{"truncated json", `{"type":"notification","payload":{"id":`, DropMalformed},
		{"empty", ``, DropMalformed},
		{"json array", `[1,2,3]`, DropMalformed},
		{"missing type", `{"payload":{"id":"n1"}}`, DropUnknownType},
		{"unknown type", `{"type":"presence","payload":{"id":"n1"}}`, DropUnknownType},
		{"type wrong case", `{"type":"Notification","payload":{"id":"n1"}}`, DropUnknownType},
		{"missing payload", `{"type":"notification"}`, DropBadPayload},
		{"null payload", `{"type":"notification","payload":null}`, DropBadPayload},
		{"string payload", `{"type":"notification","payload":"hi"}`, DropBadPayload},
		{"array payload", `{"type":"notification","payload":[]}`, DropBadPayload},
		{"type not a string", `{"type":7,"payload":{"id":"n1"}}`, DropUnknownType},
		{"upper-case keys", `{"TYPE":"notification","PAYLOAD":{"id":"n1","title":"Hi"}}`, DropUnknownType},
		{"title-case keys", `{"Type":"notification","Payload":{"ID":"n1","Title":"Hi"}}`, DropUnknownType},
		{"payload key wrong case", `{"type":"notification","Payload":{"id":"n1"}}`, DropBadPayload},
		{"json null", `null`, DropUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reason := decode([]byte(tt.frame))
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
			if _, ok := Decode([]byte(tt.frame)); ok {
				t.Error("Decode returned ok for dropped frame")
			}
		})
	}
}

func TestNotification_Time(t *testing.T) {
	n := Notification{Timestamp: "2025-01-01T00:00:00Z"}
	if got := n.Time(); got.Year() != 2025 || got.Month() != 1 || got.Day() != 1 {
		t.Errorf("Time() = %v, want 2025-01-01", got)
	}

	n.Timestamp = "yesterday"
	if !n.Time().IsZero() {
		t.Error("expected zero time for unparseable timestamp")
	}
}
