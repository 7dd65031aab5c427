package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JSONRPCVersion is the only framing version the runtime speaks.
const JSONRPCVersion = "2.0"

// Protocol tags accepted by default. Messages carrying any other tag are
// rejected with PROTOCOL_VERSION_MISMATCH.
const (
	ProtocolV1 = "league.v1"
	ProtocolV2 = "league.v2"
)

// Sender roles used in the "<role>:<id>" sender field.
const (
	SenderRoleLM       = "lm"
	SenderRoleReferee  = "referee"
	SenderRolePlayer   = "player"
	SenderRoleOperator = "operator"
)

// Envelope is the invariant header carried inside the JSON-RPC params of
// every tool call. The payload schema is keyed by the method name and is
// decoded exactly once, at the HTTP boundary.
type Envelope struct {
	Protocol  string          `json:"protocol"`
	MessageID string          `json:"message_id"`
	Sender    string          `json:"sender"`
	Timestamp time.Time       `json:"timestamp"`
	AuthToken string          `json:"auth_token,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an outbound envelope with a fresh message id and a UTC
// timestamp. The payload is marshaled immediately so a bad value fails at
// the call site rather than inside the transport.
func NewEnvelope(protocol, sender, authToken string, payload interface{}) (Envelope, error) {
	env := Envelope{
		Protocol:  protocol,
		MessageID: uuid.New().String(),
		Sender:    sender,
		Timestamp: time.Now().UTC(),
		AuthToken: authToken,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = raw
	}
	return env, nil
}

// Sender builds the "<role>:<id>" sender tag.
func Sender(role, id string) string {
	return role + ":" + id
}

// SplitSender takes a "<role>:<id>" tag apart.
func SplitSender(sender string) (role, id string, err error) {
	role, id, ok := strings.Cut(sender, ":")
	if !ok || role == "" || id == "" {
		return "", "", fmt.Errorf("malformed sender tag: %q", sender)
	}
	return role, id, nil
}

// RPCRequest is one JSON-RPC 2.0 call. The runtime uses string ids (uuids).
type RPCRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      string   `json:"id"`
	Method  string   `json:"method"`
	Params  Envelope `json:"params"`
}

// RPCResponse is one JSON-RPC 2.0 reply. Exactly one of Result or Error is
// set.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError carries the numeric JSON-RPC code plus the stable machine
// readable kind in data.kind. Clients dispatch on the kind, never the code.
type RPCError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *RPCErrorData `json:"data,omitempty"`
}

type RPCErrorData struct {
	Kind string `json:"kind"`
}

func (e *RPCError) Kind() string {
	if e == nil || e.Data == nil {
		return ""
	}
	return e.Data.Kind
}
