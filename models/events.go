package models

import "time"

// Event kinds published on the lifecycle stream. The stream is a read-only
// mirror of state transitions; it is never authoritative.
const (
	EventPlayerRegistered    = "player.registered"
	EventRefereeRegistered   = "referee.registered"
	EventLeagueStarted       = "league.started"
	EventRoundStarted        = "round.started"
	EventMatchAssigned       = "match.assigned"
	EventMatchCompleted      = "match.completed"
	EventMatchForfeited      = "match.forfeited"
	EventMatchCancelled      = "match.cancelled"
	EventStandingsUpdated    = "standings.updated"
	EventTournamentCompleted = "tournament.completed"
	EventTournamentDegraded  = "tournament.degraded"
	EventBreakerOpen         = "breaker.open"
	EventBreakerClosed       = "breaker.closed"
)

// Event is one lifecycle notification.
type Event struct {
	Kind         string      `json:"kind"`
	TournamentID string      `json:"tournament_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Data         interface{} `json:"data,omitempty"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(kind, tournamentID string, data interface{}) Event {
	return Event{
		Kind:         kind,
		TournamentID: tournamentID,
		Timestamp:    time.Now().UTC(),
		Data:         data,
	}
}

// RoundStartedData accompanies round.started.
type RoundStartedData struct {
	RoundIndex int `json:"round_index"`
	Matches    int `json:"matches"`
	Byes       int `json:"byes"`
}

// MatchAssignedData accompanies match.assigned.
type MatchAssignedData struct {
	MatchID   string `json:"match_id"`
	RefereeID string `json:"referee_id"`
	PlayerA   string `json:"player_a"`
	PlayerB   string `json:"player_b"`
}

// MatchFinishedData accompanies match.completed, match.forfeited and
// match.cancelled.
type MatchFinishedData struct {
	MatchID  string         `json:"match_id"`
	Status   MatchStatus    `json:"status"`
	WinnerID *string        `json:"winner_id"`
	Scores   map[string]int `json:"scores,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// StandingsUpdatedData accompanies standings.updated.
type StandingsUpdatedData struct {
	RoundIndex int              `json:"round_index"`
	Standings  []StandingsEntry `json:"standings"`
}

// TournamentCompletedData accompanies tournament.completed.
type TournamentCompletedData struct {
	WinnerID  string           `json:"winner_id"`
	Standings []StandingsEntry `json:"standings"`
}

// TournamentDegradedData accompanies tournament.degraded.
type TournamentDegradedData struct {
	Matches []DegradedMatch `json:"matches"`
}

// BreakerData accompanies breaker.open and breaker.closed.
type BreakerData struct {
	Target string `json:"target"`
	State  string `json:"state"`
}
