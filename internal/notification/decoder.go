package notification

import (
	"encoding/json"
)

// DropReason explains why a frame was not delivered.
type DropReason string

const (
	DropMalformed   DropReason = "malformed"    // not a JSON object
	DropUnknownType DropReason = "unknown_type" // missing or unrecognized type
	DropBadPayload  DropReason = "bad_payload"  // missing, null, or non-object payload
)

// Decode parses a frame and returns the notification it carries.
// Returns false for anything that is not a well-formed notification envelope.
func Decode(data []byte) (Notification, bool) {
	n, reason := decode(data)
	return n, reason == ""
}

// decode looks up keys by exact name. encoding/json struct decoding folds
// case, which would accept {"TYPE":...} or {"Payload":...}.
func decode(data []byte) (Notification, DropReason) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return Notification{}, DropMalformed
	}

	var typ string
	if err := json.Unmarshal(env["type"], &typ); err != nil || typ != TypeNotification {
		return Notification{}, DropUnknownType
	}

	raw, ok := env["payload"]
	if !ok {
		return Notification{}, DropBadPayload
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Notification{}, DropBadPayload
	}

	n := Notification{
		ID:        stringField(fields, "id"),
		Title:     stringField(fields, "title"),
		Message:   stringField(fields, "message"),
		Timestamp: stringField(fields, "timestamp"),
		Category:  stringField(fields, "category"),
		Raw:       append(json.RawMessage(nil), raw...),
	}
	return n, ""
}

// stringField returns fields[key] when it is a JSON string, else "".
// Other types stay available in Raw.
func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		return ""
	}
	return s
}
