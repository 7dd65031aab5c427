package protocol

import (
	"errors"
	"fmt"

	"parity-league/models"
)

// Kind is the stable machine-readable error tag carried on every wire
// error. Clients dispatch on kinds; numeric codes exist only to satisfy the
// JSON-RPC frame.
type Kind string

// Transport-class kinds. These are the only kinds a client may retry.
const (
	KindConnectionRefused Kind = "CONNECTION_REFUSED"
	KindTimeout           Kind = "TIMEOUT"
	KindMalformedMessage  Kind = "MALFORMED_MESSAGE"
	KindProtocolMismatch  Kind = "PROTOCOL_VERSION_MISMATCH"
	KindAuthFailed        Kind = "AUTH_FAILED"
)

// Registration kinds.
const (
	KindLeagueFull         Kind = "LEAGUE_FULL"
	KindRegistrationClosed Kind = "REGISTRATION_CLOSED"
	KindAlreadyRegistered  Kind = "ALREADY_REGISTERED"
	KindDuplicateReferee   Kind = "DUPLICATE_REFEREE_ID"
	KindUnsupportedGame    Kind = "UNSUPPORTED_GAME"
)

// Dispatch kinds.
const (
	KindCapacityExceeded    Kind = "CAPACITY_EXCEEDED"
	KindNoRefereesAvailable Kind = "NO_REFEREES_AVAILABLE"
	KindNoPlayersRegistered Kind = "NO_PLAYERS_REGISTERED"
)

// Match kinds.
const (
	KindMatchNotFound        Kind = "MATCH_NOT_FOUND"
	KindInviteRejected       Kind = "INVITE_REJECTED"
	KindInviteTimeout        Kind = "INVITE_TIMEOUT"
	KindMoveTimeout          Kind = "MOVE_TIMEOUT"
	KindInvalidMove          Kind = "INVALID_MOVE"
	KindDuplicateMove        Kind = "DUPLICATE_MOVE"
	KindGameAlreadyStarted   Kind = "GAME_ALREADY_STARTED"
	KindUnknownGame          Kind = "UNKNOWN_GAME"
	KindMatchAlreadyReported Kind = "MATCH_ALREADY_REPORTED"
)

// Controller kinds. STANDINGS_INCONSISTENCY never crosses the wire: it is
// an assertion failure and panics at the point of detection.
const (
	KindInvalidPhase Kind = "INVALID_PHASE"
	KindInternal     Kind = "INTERNAL"
)

// JSON-RPC reserved codes for frame-level failures.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Domain kinds map to fixed codes in the server-defined range so a code
// never changes meaning between releases.
var kindCodes = map[Kind]int{
	KindProtocolMismatch:     -32000,
	KindAuthFailed:           -32001,
	KindLeagueFull:           -32002,
	KindRegistrationClosed:   -32003,
	KindAlreadyRegistered:    -32004,
	KindDuplicateReferee:     -32005,
	KindUnsupportedGame:      -32006,
	KindCapacityExceeded:     -32007,
	KindNoRefereesAvailable:  -32008,
	KindNoPlayersRegistered:  -32009,
	KindMatchNotFound:        -32010,
	KindInviteRejected:       -32011,
	KindInviteTimeout:        -32012,
	KindMoveTimeout:          -32013,
	KindInvalidMove:          -32014,
	KindDuplicateMove:        -32015,
	KindGameAlreadyStarted:   -32016,
	KindUnknownGame:          -32017,
	KindMatchAlreadyReported: -32018,
	KindInvalidPhase:         -32019,
	KindMalformedMessage:     CodeInvalidRequest,
	KindInternal:             CodeInternalError,
}

// CodeFor returns the wire code for a kind.
func CodeFor(kind Kind) int {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return CodeInternalError
}

// retryable marks the kinds a client may retry under the backoff policy.
// Domain errors are never retried.
var retryable = map[Kind]bool{
	KindConnectionRefused: true,
	KindTimeout:           true,
}

// Error is the error value used across the runtime: a kind plus a human
// message. It travels the wire as a JSON-RPC error with data.kind set.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds an Error with a plain message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of an error, unwrapping as needed. Errors that
// are not protocol errors report KindInternal.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// IsKind reports whether the error carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the error is transport-class and may be retried.
func Retryable(err error) bool {
	return retryable[KindOf(err)]
}

// ToRPCError converts any error into the wire representation.
func ToRPCError(err error) *models.RPCError {
	var pe *Error
	if !errors.As(err, &pe) {
		pe = &Error{Kind: KindInternal, Message: err.Error()}
	}
	return &models.RPCError{
		Code:    CodeFor(pe.Kind),
		Message: pe.Message,
		Data:    &models.RPCErrorData{Kind: string(pe.Kind)},
	}
}

// FromRPCError converts a wire error back into an Error. Replies without a
// kind (foreign servers) degrade to KindInternal.
func FromRPCError(re *models.RPCError) *Error {
	if re == nil {
		return nil
	}
	kind := Kind(re.Kind())
	if kind == "" {
		kind = KindInternal
	}
	return &Error{Kind: kind, Message: re.Message}
}
