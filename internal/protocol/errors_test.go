package protocol

import (
	"errors"
	"fmt"
	"testing"

	"parity-league/models"
)

func TestKindCodesAreStableAndUnique(t *testing.T) {
	seen := make(map[int]Kind)
	for kind, code := range kindCodes {
		if prev, dup := seen[code]; dup {
			t.Errorf("code %d assigned to both %s and %s", code, prev, kind)
		}
		seen[code] = kind
	}

	// Spot checks against the published table.
	cases := []struct {
		kind Kind
		code int
	}{
		{KindProtocolMismatch, -32000},
		{KindAuthFailed, -32001},
		{KindMatchNotFound, -32010},
		{KindInvalidPhase, -32019},
		{KindMalformedMessage, CodeInvalidRequest},
		{KindInternal, CodeInternalError},
	}
	for _, tc := range cases {
		if got := CodeFor(tc.kind); got != tc.code {
			t.Errorf("CodeFor(%s) = %d, want %d", tc.kind, got, tc.code)
		}
	}
	if got := CodeFor(Kind("NOT_A_KIND")); got != CodeInternalError {
		t.Errorf("CodeFor(unknown) = %d, want %d", got, CodeInternalError)
	}
}

func TestRetryable_TransportOnly(t *testing.T) {
	if !Retryable(NewError(KindConnectionRefused, "refused")) {
		t.Error("CONNECTION_REFUSED should be retryable")
	}
	if !Retryable(NewError(KindTimeout, "deadline")) {
		t.Error("TIMEOUT should be retryable")
	}
	for _, kind := range []Kind{KindAuthFailed, KindCapacityExceeded, KindMatchNotFound, KindInvalidPhase, KindInternal} {
		if Retryable(NewError(kind, "x")) {
			t.Errorf("%s must not be retryable", kind)
		}
	}
	if Retryable(errors.New("plain")) {
		t.Error("plain errors must not be retryable")
	}
}

func TestKindOf_UnwrapsWrappedErrors(t *testing.T) {
	inner := NewError(KindUnknownGame, "no such game")
	wrapped := fmt.Errorf("handling call: %w", inner)

	if got := KindOf(wrapped); got != KindUnknownGame {
		t.Errorf("KindOf(wrapped) = %s, want UNKNOWN_GAME", got)
	}
	if !IsKind(wrapped, KindUnknownGame) {
		t.Error("IsKind should see through wrapping")
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s, want INTERNAL", got)
	}
}

func TestWireRoundTrip(t *testing.T) {
	original := Errorf(KindCapacityExceeded, "referee %s is full", "R01")

	wire := ToRPCError(original)
	if wire.Code != -32007 {
		t.Errorf("wire code = %d, want -32007", wire.Code)
	}
	if wire.Kind() != string(KindCapacityExceeded) {
		t.Errorf("wire kind = %q, want CAPACITY_EXCEEDED", wire.Kind())
	}

	back := FromRPCError(wire)
	if back.Kind != original.Kind || back.Message != original.Message {
		t.Errorf("round trip = %+v, want %+v", back, original)
	}
}

func TestToRPCError_ForeignError(t *testing.T) {
	wire := ToRPCError(errors.New("disk on fire"))
	if wire.Kind() != string(KindInternal) {
		t.Errorf("foreign error kind = %q, want INTERNAL", wire.Kind())
	}
	if wire.Code != CodeInternalError {
		t.Errorf("foreign error code = %d, want %d", wire.Code, CodeInternalError)
	}
}

func TestFromRPCError_MissingKindDegrades(t *testing.T) {
	if FromRPCError(nil) != nil {
		t.Error("nil wire error should map to nil")
	}
	back := FromRPCError(&models.RPCError{Code: -32050, Message: "who knows"})
	if back.Kind != KindInternal {
		t.Errorf("kindless wire error = %s, want INTERNAL", back.Kind)
	}
}
