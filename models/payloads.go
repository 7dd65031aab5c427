package models

// Tool payloads, one pair of structs per method. The method name selects
// the schema; there is no generic attribute bag anywhere past the HTTP
// boundary.

// --- League Manager tools ---

type RegisterPlayerParams struct {
	DisplayName    string   `json:"display_name"`
	Endpoint       string   `json:"endpoint"`
	SupportedGames []string `json:"supported_games"`
	Version        string   `json:"version,omitempty"`
}

type RegisterPlayerResult struct {
	PlayerID           string `json:"player_id"`
	AuthToken          string `json:"auth_token"`
	AssignedRolePolicy string `json:"assigned_role_policy"`
}

type RegisterRefereeParams struct {
	RefereeID string `json:"referee_id"`
	Endpoint  string `json:"endpoint"`
	Capacity  int    `json:"capacity"`
}

type RegisterRefereeResult struct {
	AuthToken        string `json:"auth_token"`
	AcceptedCapacity int    `json:"accepted_capacity"`
}

type ReportMatchResultParams struct {
	MatchID       string         `json:"match_id"`
	RefereeID     string         `json:"referee_id"`
	WinnerID      *string        `json:"winner_id"`
	Scores        map[string]int `json:"scores"`
	RoundsSummary []RoundRecord  `json:"rounds_summary,omitempty"`
	Status        MatchStatus    `json:"status,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

type ReportMatchResultResult struct {
	Acknowledged bool `json:"acknowledged"`
}

type GetStandingsParams struct{}

type GetStandingsResult struct {
	RoundIndex int              `json:"round_index"`
	Standings  []StandingsEntry `json:"standings"`
}

type StartLeagueParams struct{}

type RunNextRoundParams struct{}

type RunAllRoundsParams struct{}

type GetLeagueStatusParams struct{}

// LeagueStatus is the status struct returned by the control-plane tools and
// by get_league_status.
type LeagueStatus struct {
	TournamentID string          `json:"tournament_id"`
	Code         string          `json:"code,omitempty"`
	GameType     string          `json:"game_type"`
	Phase        Phase           `json:"phase"`
	CurrentRound int             `json:"current_round"`
	TotalRounds  int             `json:"total_rounds"`
	Players      int             `json:"players"`
	Referees     int             `json:"referees"`
	Degraded     []DegradedMatch `json:"degraded,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// --- Referee tools ---

// PlayerRef is the dispatch-time view of one participant: everything a
// referee needs to reach and authenticate against the player. Agents hold
// ids and endpoints, never live references.
type PlayerRef struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name,omitempty"`
	Endpoint    string `json:"endpoint"`
	AuthToken   string `json:"auth_token,omitempty"`
}

type AssignMatchParams struct {
	MatchID    string     `json:"match_id"`
	RoundIndex int        `json:"round_index"`
	PlayerA    PlayerRef  `json:"player_a"`
	PlayerB    PlayerRef  `json:"player_b"`
	GameConfig GameConfig `json:"game_config"`
}

type AssignMatchResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

type CancelMatchParams struct {
	MatchID string `json:"match_id"`
	Reason  string `json:"reason,omitempty"`
}

type CancelMatchResult struct {
	Cancelled bool `json:"cancelled"`
}

type GetMatchStatusParams struct {
	MatchID string `json:"match_id"`
}

type MatchStatusResult struct {
	MatchID      string         `json:"match_id"`
	Status       MatchStatus    `json:"status"`
	CurrentRound int            `json:"current_round"`
	Scores       map[string]int `json:"scores,omitempty"`
}

// --- Player tools ---

type GameInviteParams struct {
	MatchID        string    `json:"match_id"`
	GameID         string    `json:"game_id"`
	Role           string    `json:"role"`
	OpponentID     string    `json:"opponent_id"`
	MaxRounds      int       `json:"max_rounds"`
	ValidMoveRange MoveRange `json:"valid_move_range"`
}

type GameInviteResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// GameStateView is the read-only snapshot a player's strategy sees when
// asked for a move. History carries a short trailing window, newest last.
type GameStateView struct {
	RoundNumber int            `json:"round_number"`
	MaxRounds   int            `json:"max_rounds"`
	YourRole    string         `json:"your_role"`
	Scores      map[string]int `json:"scores"`
	History     []RoundRecord  `json:"history,omitempty"`
}

type RequestMoveParams struct {
	GameID        string        `json:"game_id"`
	RoundNumber   int           `json:"round_number"`
	GameStateView GameStateView `json:"game_state_view"`
}

type RequestMoveResult struct {
	Move       int     `json:"move"`
	Confidence float64 `json:"confidence,omitempty"`
}

type RoundResultParams struct {
	GameID      string         `json:"game_id"`
	RoundNumber int            `json:"round_number"`
	Moves       map[string]int `json:"moves"`
	Sum         int            `json:"sum"`
	WinnerID    *string        `json:"winner_id"`
	Scores      map[string]int `json:"scores"`
}

type RoundResultResult struct{}

type GameOverParams struct {
	GameID   string         `json:"game_id"`
	WinnerID *string        `json:"winner_id"`
	Scores   map[string]int `json:"scores"`
	Reason   string         `json:"reason,omitempty"`
}

type GameOverResult struct{}
