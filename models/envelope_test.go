package models

import (
	"encoding/json"
	"testing"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(ProtocolV1, "player:P01", "tok", map[string]int{"move": 3})
	if err != nil {
		t.Fatalf("NewEnvelope returned %v", err)
	}
	if env.MessageID == "" {
		t.Error("message id should be generated")
	}
	if env.Timestamp.IsZero() || env.Timestamp.Location() != env.Timestamp.UTC().Location() {
		t.Error("timestamp should be a UTC instant")
	}
	if string(env.Payload) != `{"move":3}` {
		t.Errorf("payload = %s", env.Payload)
	}

	empty, err := NewEnvelope(ProtocolV1, "player:P01", "", nil)
	if err != nil {
		t.Fatalf("NewEnvelope with nil payload returned %v", err)
	}
	if empty.Payload != nil {
		t.Errorf("nil payload marshaled to %s", empty.Payload)
	}
	if env.MessageID == empty.MessageID {
		t.Error("message ids should be unique per envelope")
	}
}

func TestNewEnvelope_UnmarshalablePayload(t *testing.T) {
	if _, err := NewEnvelope(ProtocolV1, "player:P01", "", make(chan int)); err == nil {
		t.Error("unmarshalable payload should fail at envelope construction")
	}
}

func TestSenderRoundTrip(t *testing.T) {
	tag := Sender(SenderRoleReferee, "R01")
	if tag != "referee:R01" {
		t.Fatalf("sender tag = %q", tag)
	}
	role, id, err := SplitSender(tag)
	if err != nil || role != SenderRoleReferee || id != "R01" {
		t.Errorf("SplitSender(%q) = %q, %q, %v", tag, role, id, err)
	}

	for _, bad := range []string{"", "R01", ":R01", "referee:"} {
		if _, _, err := SplitSender(bad); err == nil {
			t.Errorf("SplitSender(%q) should fail", bad)
		}
	}
}

func TestRPCErrorKind(t *testing.T) {
	var nilErr *RPCError
	if nilErr.Kind() != "" {
		t.Error("nil error should report an empty kind")
	}
	if (&RPCError{Code: -32000}).Kind() != "" {
		t.Error("error without data should report an empty kind")
	}
	e := &RPCError{Code: -32007, Data: &RPCErrorData{Kind: "CAPACITY_EXCEEDED"}}
	if e.Kind() != "CAPACITY_EXCEEDED" {
		t.Errorf("kind = %q", e.Kind())
	}
}

func TestRPCResponse_ResultAndErrorAreExclusiveOnTheWire(t *testing.T) {
	resp := RPCResponse{JSONRPC: JSONRPCVersion, ID: "m-1", Result: json.RawMessage(`{"ok":true}`)}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := decoded["error"]; present {
		t.Error("success response should omit the error member")
	}

	resp = RPCResponse{JSONRPC: JSONRPCVersion, ID: "m-1", Error: &RPCError{Code: -32000, Message: "x"}}
	raw, _ = json.Marshal(resp)
	decoded = nil
	json.Unmarshal(raw, &decoded)
	if _, present := decoded["result"]; present {
		t.Error("error response should omit the result member")
	}
}
