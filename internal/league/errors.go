package league

import "errors"

var (
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrNoReferees        = errors.New("no referees registered")
	ErrWrongPhase        = errors.New("operation not allowed in current phase")
	ErrTournamentOver    = errors.New("tournament already complete")
	ErrUnknownPreset     = errors.New("unknown match preset")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrUnknownReferee    = errors.New("unknown referee")
	ErrRegistrationOpen  = errors.New("registration still open")
)
