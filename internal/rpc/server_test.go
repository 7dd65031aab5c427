package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parity-league/internal/protocol"
	"parity-league/models"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
}

func testClient(endpoint string) *Client {
	return NewClient(ClientConfig{
		Endpoint: endpoint,
		Sender:   "player:P01",
		Retry:    fastRetry(),
	})
}

func echoServer(t *testing.T, auth AuthFunc) *httptest.Server {
	t.Helper()
	s := NewServer(ServerConfig{Role: "TEST", Auth: auth})
	s.Register("echo", func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		in := map[string]string{}
		if perr := protocol.DecodePayload(env.Payload, &in); perr != nil {
			return nil, perr
		}
		in["sender"] = env.Sender
		return in, nil
	})
	s.Register("fail", func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		return nil, protocol.NewError(protocol.KindUnknownGame, "nope")
	})
	s.Register(protocol.MethodRegisterPlayer, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		return models.RegisterPlayerResult{PlayerID: "P01", AuthToken: "minted"}, nil
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientServer_RoundTrip(t *testing.T) {
	ts := echoServer(t, nil)
	client := testClient(ts.URL)

	var out map[string]string
	err := client.Call(context.Background(), "echo", map[string]string{"hello": "world"}, &out)
	if err != nil {
		t.Fatalf("call returned %v", err)
	}
	if out["hello"] != "world" {
		t.Errorf("result = %v, want the echoed payload", out)
	}
	if out["sender"] != "player:P01" {
		t.Errorf("sender seen by handler = %q, want player:P01", out["sender"])
	}
}

func TestClientServer_DomainErrorKind(t *testing.T) {
	ts := echoServer(t, nil)
	client := testClient(ts.URL)

	err := client.Call(context.Background(), "fail", nil, nil)
	if !protocol.IsKind(err, protocol.KindUnknownGame) {
		t.Fatalf("error = %v, want UNKNOWN_GAME carried across the wire", err)
	}
}

func TestClientServer_MethodNotFound(t *testing.T) {
	ts := echoServer(t, nil)
	client := testClient(ts.URL)

	err := client.Call(context.Background(), "no_such_method", nil, nil)
	if !protocol.IsKind(err, protocol.KindMalformedMessage) {
		t.Fatalf("error = %v, want MALFORMED_MESSAGE", err)
	}
}

func TestClientServer_AuthHook(t *testing.T) {
	auth := func(method string, env *models.Envelope) error {
		if env.AuthToken != "minted" {
			return protocol.NewError(protocol.KindAuthFailed, "bad token")
		}
		return nil
	}
	ts := echoServer(t, auth)
	client := testClient(ts.URL)

	// No token yet: guarded methods reject, registration passes.
	if err := client.Call(context.Background(), "echo", map[string]string{}, nil); !protocol.IsKind(err, protocol.KindAuthFailed) {
		t.Fatalf("unauthenticated call = %v, want AUTH_FAILED", err)
	}
	var reg models.RegisterPlayerResult
	if err := client.Call(context.Background(), protocol.MethodRegisterPlayer, models.RegisterPlayerParams{}, &reg); err != nil {
		t.Fatalf("registration should bypass auth, got %v", err)
	}

	client.SetAuthToken(reg.AuthToken)
	if err := client.Call(context.Background(), "echo", map[string]string{}, nil); err != nil {
		t.Fatalf("authenticated call returned %v", err)
	}
}

func TestClient_RejectsBadProtocolTag(t *testing.T) {
	ts := echoServer(t, nil)
	client := NewClient(ClientConfig{
		Endpoint: ts.URL,
		Sender:   "player:P01",
		Protocol: "league.v9",
		Retry:    fastRetry(),
	})
	err := client.Call(context.Background(), "echo", map[string]string{}, nil)
	if !protocol.IsKind(err, protocol.KindProtocolMismatch) {
		t.Fatalf("error = %v, want PROTOCOL_VERSION_MISMATCH", err)
	}
}

func TestClient_RetriesTransportFailures(t *testing.T) {
	calls := 0
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req models.RPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := models.RPCResponse{JSONRPC: models.JSONRPCVersion, ID: req.ID, Result: json.RawMessage(`{"ok":true}`)}
		json.NewEncoder(w).Encode(resp)
	}))
	defer raw.Close()

	client := testClient(raw.URL)
	var out map[string]bool
	if err := client.Call(context.Background(), "echo", nil, &out); err != nil {
		t.Fatalf("call should succeed on the third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
	if !out["ok"] {
		t.Errorf("result = %v", out)
	}
}

func TestClient_DoesNotRetryDomainErrors(t *testing.T) {
	calls := 0
	s := NewServer(ServerConfig{Role: "TEST"})
	s.Register("fail", func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		calls++
		return nil, protocol.NewError(protocol.KindCapacityExceeded, "full")
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	err := testClient(ts.URL).Call(context.Background(), "fail", nil, nil)
	if !protocol.IsKind(err, protocol.KindCapacityExceeded) {
		t.Fatalf("error = %v, want CAPACITY_EXCEEDED", err)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want exactly 1", calls)
	}
}

func TestClient_ReusesMessageIDAcrossRetries(t *testing.T) {
	var ids []string
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.RPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		ids = append(ids, req.Params.MessageID)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer raw.Close()

	err := testClient(raw.URL).Call(context.Background(), "echo", nil, nil)
	if !protocol.IsKind(err, protocol.KindConnectionRefused) {
		t.Fatalf("error = %v, want CONNECTION_REFUSED after exhausting retries", err)
	}
	if len(ids) != 3 {
		t.Fatalf("server saw %d attempts, want 3", len(ids))
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Errorf("message id changed across retries: %v", ids)
		}
	}
}

func TestClient_UnreachableEndpoint(t *testing.T) {
	client := testClient("http://127.0.0.1:1")
	err := client.Call(context.Background(), "echo", nil, nil)
	if !protocol.IsKind(err, protocol.KindConnectionRefused) {
		t.Fatalf("error = %v, want CONNECTION_REFUSED", err)
	}
}

func TestServer_ParseAndFrameErrors(t *testing.T) {
	s := NewServer(ServerConfig{Role: "TEST"})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	post := func(body string) models.RPCResponse {
		resp, err := http.Post(ts.URL+"/mcp", "application/json", bytes.NewReader([]byte(body)))
		if err != nil {
			t.Fatalf("post returned %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, errors must travel as HTTP 200", resp.StatusCode)
		}
		var out models.RPCResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return out
	}

	if resp := post(`{not json`); resp.Error == nil || resp.Error.Code != protocol.CodeParseError {
		t.Errorf("parse failure response = %+v, want code %d", resp.Error, protocol.CodeParseError)
	}
	if resp := post(`{"jsonrpc":"1.0","id":"x","method":"echo"}`); resp.Error == nil || resp.Error.Code != protocol.CodeInvalidRequest {
		t.Errorf("bad version response = %+v, want code %d", resp.Error, protocol.CodeInvalidRequest)
	}
	if resp := post(`{"jsonrpc":"2.0","id":"x","method":"ghost","params":{"protocol":"league.v1","message_id":"m","sender":"player:P01","timestamp":"2026-01-02T15:04:05Z"}}`); resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Errorf("unknown method response = %+v, want code %d", resp.Error, protocol.CodeMethodNotFound)
	}
}
