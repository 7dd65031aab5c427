package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"parity-league/models"
)

// Envelope validation errors. All of them surface on the wire as
// MALFORMED_MESSAGE except the protocol tag check, which has its own kind.
var (
	ErrMissingMessageID = errors.New("message_id is required")
	ErrMissingSender    = errors.New("sender is required")
	ErrMissingTimestamp = errors.New("timestamp is required")
	ErrMissingProtocol  = errors.New("protocol tag is required")
	ErrBadEndpoint      = errors.New("invalid endpoint URL")
	ErrBadMoveRange     = errors.New("invalid move range")
)

// DefaultProtocols is the accept set when none is configured.
func DefaultProtocols() map[string]bool {
	return map[string]bool{
		models.ProtocolV1: true,
		models.ProtocolV2: true,
	}
}

// ValidateEnvelope checks the invariant header of an inbound call against
// the accepted protocol tags. Auth is checked separately, per method.
func ValidateEnvelope(env *models.Envelope, accepted map[string]bool) *Error {
	if env.Protocol == "" {
		return NewError(KindMalformedMessage, ErrMissingProtocol.Error())
	}
	if !accepted[env.Protocol] {
		return Errorf(KindProtocolMismatch, "unsupported protocol tag %q", env.Protocol)
	}
	if env.MessageID == "" {
		return NewError(KindMalformedMessage, ErrMissingMessageID.Error())
	}
	if env.Sender == "" {
		return NewError(KindMalformedMessage, ErrMissingSender.Error())
	}
	if _, _, err := models.SplitSender(env.Sender); err != nil {
		return NewError(KindMalformedMessage, err.Error())
	}
	if env.Timestamp.IsZero() {
		return NewError(KindMalformedMessage, ErrMissingTimestamp.Error())
	}
	return nil
}

// DecodePayload unmarshals the method payload into its typed struct. This
// is the single point where raw JSON crosses into the typed world.
func DecodePayload(raw json.RawMessage, out interface{}) *Error {
	if len(raw) == 0 {
		// Methods with empty params accept a missing payload.
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return Errorf(KindMalformedMessage, "decode payload: %v", err)
	}
	return nil
}

// ValidateEndpoint checks a registered agent URL: absolute http(s) with a
// host. The path conventionally ends in /mcp but is not forced to.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%w: empty", ErrBadEndpoint)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrBadEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrBadEndpoint)
	}
	return nil
}

// ValidateMoveRange checks the configured bounds of the even/odd game.
func ValidateMoveRange(r models.MoveRange) error {
	if r.Min < 0 {
		return fmt.Errorf("%w: min must be non-negative, got %d", ErrBadMoveRange, r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%w: max %d below min %d", ErrBadMoveRange, r.Max, r.Min)
	}
	return nil
}
