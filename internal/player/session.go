package player

import (
	"sync"

	"parity-league/internal/protocol"
	"parity-league/internal/strategy"
	"parity-league/models"
)

// Session mirrors one game from the player's side. The referee owns the
// authoritative state; the mirror only exists to feed the strategy and to
// reject out-of-order traffic.
type Session struct {
	mu sync.Mutex

	GameID     string
	MatchID    string
	Role       models.Role
	OpponentID string
	MaxRounds  int
	Valid      models.MoveRange

	state    models.SessionState
	strat    strategy.Strategy
	moves    map[int]int
	observed map[int]bool
	scores   map[string]int
	finished bool
}

func newSession(params models.GameInviteParams, strat strategy.Strategy, role models.Role) *Session {
	return &Session{
		GameID:     params.GameID,
		MatchID:    params.MatchID,
		Role:       role,
		OpponentID: params.OpponentID,
		MaxRounds:  params.MaxRounds,
		Valid:      params.ValidMoveRange,
		state:      models.SessionCollectingMoves,
		strat:      strat,
		moves:      make(map[int]int),
		observed:   make(map[int]bool),
		scores:     make(map[string]int),
	}
}

// Move picks and records the move for one round. A second request for the
// same round is a DUPLICATE_MOVE domain error; the referee defaults it.
func (s *Session) Move(params models.RequestMoveParams) (models.RequestMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return models.RequestMoveResult{}, protocol.Errorf(protocol.KindUnknownGame,
			"game %s is over", s.GameID)
	}
	if _, dup := s.moves[params.RoundNumber]; dup {
		return models.RequestMoveResult{}, protocol.Errorf(protocol.KindDuplicateMove,
			"round %d already played in game %s", params.RoundNumber, s.GameID)
	}

	move := strategy.Clamp(s.strat.ChooseMove(params.GameStateView, s.Valid), s.Valid)
	s.moves[params.RoundNumber] = move
	return models.RequestMoveResult{Move: move}, nil
}

// ObserveRound folds a resolved round into the mirror. Redeliveries of the
// same round are ignored.
func (s *Session) ObserveRound(params models.RoundResultParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.observed[params.RoundNumber] {
		return
	}
	s.observed[params.RoundNumber] = true
	for id, score := range params.Scores {
		s.scores[id] = score
	}
	s.strat.Observe(params)
}

// Finish marks the session terminal. Only the first call has any effect.
func (s *Session) Finish(params models.GameOverParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}
	s.finished = true
	s.state = models.SessionFinished
	for id, score := range params.Scores {
		s.scores[id] = score
	}
}

// Finished reports whether the session reached its terminal state.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}
