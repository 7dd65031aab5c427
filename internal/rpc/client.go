package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"parity-league/internal/protocol"
	"parity-league/models"
)

// ClientConfig describes one outbound JSON-RPC peer.
type ClientConfig struct {
	// Endpoint is the peer's base URL; calls go to Endpoint + "/mcp".
	Endpoint string
	// Sender is stamped on every envelope, e.g. "lm:LM01".
	Sender string
	// AuthToken is presented on every call. Empty for registration calls.
	AuthToken string
	// Protocol tag for outgoing envelopes. Defaults to league.v1.
	Protocol string
	// Retry, breaker and HTTP tuning. Zero values take defaults.
	Retry            RetryPolicy
	BreakerThreshold int
	BreakerCooldown  time.Duration
	HTTPTimeout      time.Duration
	OnBreakerChange  func(target, state string)
}

// Client is a JSON-RPC 2.0 client for one peer endpoint. Transport failures
// are retried with backoff and feed the per-target circuit breaker; domain
// errors are returned to the caller as-is and never retried.
type Client struct {
	endpoint string
	sender   string
	protocol string
	retry    RetryPolicy
	breaker  *Breaker
	http     *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient builds a client from cfg, filling unset fields with defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Protocol == "" {
		cfg.Protocol = models.ProtocolV1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		sender:   cfg.Sender,
		protocol: cfg.Protocol,
		token:    cfg.AuthToken,
		retry:    cfg.Retry,
		breaker:  NewBreaker(cfg.Endpoint, cfg.BreakerThreshold, cfg.BreakerCooldown, cfg.OnBreakerChange),
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Endpoint returns the peer base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SetAuthToken replaces the token presented on subsequent calls. Agents call
// this once after registration hands them their credential.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Breaker exposes the client's circuit breaker, mainly for status reporting.
func (c *Client) Breaker() *Breaker {
	return c.breaker
}

// Call invokes method on the peer and decodes the result into out (which may
// be nil). The same envelope, message_id included, is reused across retry
// attempts so the callee can deduplicate redeliveries.
func (c *Client) Call(ctx context.Context, method string, payload, out interface{}) error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	env, err := models.NewEnvelope(c.protocol, c.sender, token, payload)
	if err != nil {
		return protocol.Errorf(protocol.KindInternal, "encode %s payload: %v", method, err)
	}
	req := models.RPCRequest{
		JSONRPC: models.JSONRPCVersion,
		ID:      env.MessageID,
		Method:  method,
		Params:  env,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return protocol.Errorf(protocol.KindInternal, "encode %s request: %v", method, err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.Backoff(attempt - 1)
			log.Printf("[RPC_CLIENT] retrying %s on %s in %s (attempt %d/%d): %v",
				method, c.endpoint, delay.Round(time.Millisecond), attempt+1, c.retry.MaxAttempts, lastErr)
			select {
			case <-ctx.Done():
				return wrapContextErr(ctx.Err(), method)
			case <-time.After(delay):
			}
		}

		if err := c.breaker.Allow(); err != nil {
			return err
		}

		result, callErr := c.post(ctx, env.MessageID, body)
		if callErr == nil {
			c.breaker.Record(true)
			if out == nil || len(result) == 0 {
				return nil
			}
			if err := json.Unmarshal(result, out); err != nil {
				return protocol.Errorf(protocol.KindMalformedMessage, "decode %s result: %v", method, err)
			}
			return nil
		}

		if !protocol.Retryable(callErr) {
			// The peer answered; only the payload was unhappy.
			c.breaker.Record(true)
			return callErr
		}

		c.breaker.Record(false)
		lastErr = callErr
		if ctx.Err() != nil {
			return wrapContextErr(ctx.Err(), method)
		}
	}
	return lastErr
}

// post performs one HTTP round trip and splits the outcome into a raw result
// or a classified error.
func (c *Client) post(ctx context.Context, id string, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/mcp", bytes.NewReader(body))
	if err != nil {
		return nil, protocol.Errorf(protocol.KindInternal, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, protocol.Errorf(protocol.KindConnectionRefused, "http %d from %s", resp.StatusCode, c.endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, protocol.Errorf(protocol.KindMalformedMessage, "http %d from %s", resp.StatusCode, c.endpoint)
	}

	var rpcResp models.RPCResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, protocol.Errorf(protocol.KindMalformedMessage, "decode response: %v", err)
	}
	if rpcResp.Error != nil {
		return nil, protocol.FromRPCError(rpcResp.Error)
	}
	if rpcResp.ID != "" && rpcResp.ID != id {
		return nil, protocol.Errorf(protocol.KindMalformedMessage, "response id %q does not match request id %q", rpcResp.ID, id)
	}
	return rpcResp.Result, nil
}

func classifyTransportErr(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.Errorf(protocol.KindTimeout, "request timed out: %v", err)
	case errors.Is(err, context.Canceled):
		return protocol.Errorf(protocol.KindTimeout, "request canceled: %v", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return protocol.Errorf(protocol.KindTimeout, "request timed out: %v", err)
	default:
		return protocol.Errorf(protocol.KindConnectionRefused, "connection failed: %v", err)
	}
}

func wrapContextErr(err error, method string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return protocol.Errorf(protocol.KindTimeout, "%s deadline exceeded", method)
	}
	return protocol.NewError(protocol.KindTimeout, fmt.Sprintf("%s canceled", method))
}
