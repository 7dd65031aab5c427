package models

import "time"

// GameTypeEvenOdd is the only game type the runtime ships. Both players
// submit one integer per round; the parity of the sum decides the round.
const GameTypeEvenOdd = "even_odd"

// Bye marks the virtual opponent in odd-N schedules. Bye pairings are never
// dispatched.
const Bye = "BYE"

// Tournament phases.
type Phase string

const (
	PhaseRegistrationOpen Phase = "REGISTRATION_OPEN"
	PhaseScheduled        Phase = "SCHEDULED"
	PhaseRunningRound     Phase = "RUNNING_ROUND"
	PhaseBetweenRounds    Phase = "BETWEEN_ROUNDS"
	PhaseComplete         Phase = "COMPLETE"
)

// Match lifecycle states. COMPLETE, FORFEIT and CANCELLED are terminal.
type MatchStatus string

const (
	MatchAssigned  MatchStatus = "ASSIGNED"
	MatchInviting  MatchStatus = "INVITING"
	MatchRunning   MatchStatus = "RUNNING"
	MatchComplete  MatchStatus = "COMPLETE"
	MatchForfeit   MatchStatus = "FORFEIT"
	MatchCancelled MatchStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are possible.
func (s MatchStatus) Terminal() bool {
	return s == MatchComplete || s == MatchForfeit || s == MatchCancelled
}

// Game session states as seen by the owning side (referee or player mirror).
type SessionState string

const (
	SessionInit             SessionState = "INIT"
	SessionWaitingForAccept SessionState = "WAITING_FOR_ACCEPT"
	SessionCollectingMoves  SessionState = "COLLECTING_MOVES"
	SessionResolving        SessionState = "RESOLVING"
	SessionFinished         SessionState = "FINISHED"
	SessionAborted          SessionState = "ABORTED"
)

// PlayerRecord is the LM's authoritative registration record for one
// player. Immutable after creation.
type PlayerRecord struct {
	PlayerID       string    `json:"player_id"`
	DisplayName    string    `json:"display_name"`
	Endpoint       string    `json:"endpoint"`
	SupportedGames []string  `json:"supported_games"`
	AuthToken      string    `json:"-"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// SupportsGame reports whether the player declared the given game type.
func (p *PlayerRecord) SupportsGame(gameType string) bool {
	for _, g := range p.SupportedGames {
		if g == gameType {
			return true
		}
	}
	return false
}

// RefereeRecord is the LM's authoritative registration record for one
// referee. ActiveMatches is mutated only by the dispatcher on assignment
// and by result ingestion.
type RefereeRecord struct {
	RefereeID     string    `json:"referee_id"`
	Endpoint      string    `json:"endpoint"`
	Capacity      int       `json:"capacity"`
	ActiveMatches int       `json:"active_matches"`
	AuthToken     string    `json:"-"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// Pairing is one scheduled meeting of two player ids, or a player and BYE.
type Pairing struct {
	PlayerA string `json:"player_a"`
	PlayerB string `json:"player_b"`
}

// HasBye reports whether one side of the pairing is the virtual BYE slot.
func (p Pairing) HasBye() bool {
	return p.PlayerA == Bye || p.PlayerB == Bye
}

// Other returns the opponent of the given player id within the pairing.
func (p Pairing) Other(playerID string) string {
	if p.PlayerA == playerID {
		return p.PlayerB
	}
	return p.PlayerA
}

// ScheduleRound is one round of pairings played in parallel.
type ScheduleRound struct {
	Index    int       `json:"index"`
	Pairings []Pairing `json:"pairings"`
}

// Schedule is the full round-robin plan produced by the circle method.
type Schedule struct {
	Rounds []ScheduleRound `json:"rounds"`
}

// TotalRounds is the number of scheduled rounds.
func (s Schedule) TotalRounds() int {
	return len(s.Rounds)
}

// MoveRange bounds the legal moves of the even/odd game, inclusive.
type MoveRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether the move lies inside the range.
func (r MoveRange) Contains(move int) bool {
	return move >= r.Min && move <= r.Max
}

// GameConfig carries the per-match game parameters the LM hands to the
// referee on assignment. Transport deadlines are referee-side configuration
// and are not part of the game itself.
type GameConfig struct {
	GameType         string    `json:"game_type"`
	MaxRounds        int       `json:"max_rounds"`
	ValidMoveRange   MoveRange `json:"valid_move_range"`
	DefaultMove      int       `json:"default_move"`
	ForfeitThreshold int       `json:"forfeit_threshold"`
}

// RoundRecord is one resolved in-match round. WinnerID is nil for a
// winnerless round (both moves defaulted).
type RoundRecord struct {
	RoundNumber int            `json:"round_number"`
	Moves       map[string]int `json:"moves"`
	Sum         int            `json:"sum"`
	WinnerID    *string        `json:"winner_id"`
	CompletedAt time.Time      `json:"completed_at"`
}

// MatchResult is the single result a referee reports to the LM for one
// match. Status distinguishes a played-out COMPLETE from a FORFEIT or a
// CANCELLED termination; Reason is human-readable context for the degraded
// report.
type MatchResult struct {
	MatchID       string         `json:"match_id"`
	RefereeID     string         `json:"referee_id"`
	WinnerID      *string        `json:"winner_id"`
	Scores        map[string]int `json:"scores"`
	RoundsSummary []RoundRecord  `json:"rounds_summary"`
	Status        MatchStatus    `json:"status"`
	Reason        string         `json:"reason,omitempty"`
}

// Match is the LM's dispatch-side view of one scheduled pairing.
type Match struct {
	MatchID     string       `json:"match_id"`
	RoundIndex  int          `json:"round_index"`
	PlayerA     string       `json:"player_a"`
	PlayerB     string       `json:"player_b"`
	RefereeID   string       `json:"referee_id,omitempty"`
	Status      MatchStatus  `json:"status"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Result      *MatchResult `json:"result,omitempty"`
}

// StandingsEntry is one row of the tournament table. Points = 3*wins +
// draws. Ordering: points desc, wins desc, draws desc, player_id asc.
type StandingsEntry struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name,omitempty"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
	Points      int    `json:"points"`
	GamesPlayed int    `json:"games_played"`
	Rank        int    `json:"rank"`
}

// DegradedMatch names a match that ended in FORFEIT or CANCELLED, for the
// tournament.degraded report.
type DegradedMatch struct {
	MatchID string      `json:"match_id"`
	Status  MatchStatus `json:"status"`
	Reason  string      `json:"reason,omitempty"`
}
