// Package player is the player agent: a strategy behind a JSON-RPC endpoint,
// holding one session mirror per live game.
package player

import (
	"context"
	"log"
	"sync"

	"parity-league/internal/config"
	"parity-league/internal/protocol"
	"parity-league/internal/rpc"
	"parity-league/internal/strategy"
	"parity-league/models"
)

// Service runs the player agent.
type Service struct {
	cfg config.PlayerConfig
	lm  *rpc.Client

	mu       sync.RWMutex
	playerID string
	token    string
	sessions map[string]*Session
	byMatch  map[string]*Session
}

// NewService builds an unregistered player.
func NewService(cfg config.PlayerConfig) *Service {
	return &Service{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		byMatch:  make(map[string]*Session),
		lm: rpc.NewClient(rpc.ClientConfig{
			Endpoint: cfg.LMEndpoint,
			Sender:   models.Sender(models.SenderRolePlayer, cfg.DisplayName),
		}),
	}
}

// Register announces the player to the LM and stores the assigned id and
// token. Referees relay the token back on every match call.
func (s *Service) Register(ctx context.Context) error {
	var out models.RegisterPlayerResult
	err := s.lm.Call(ctx, protocol.MethodRegisterPlayer, models.RegisterPlayerParams{
		DisplayName:    s.cfg.DisplayName,
		Endpoint:       s.cfg.PublicURL,
		SupportedGames: s.cfg.SupportedGames,
		Version:        "1.0",
	}, &out)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.playerID = out.PlayerID
	s.token = out.AuthToken
	s.mu.Unlock()
	s.lm.SetAuthToken(out.AuthToken)

	log.Printf("[PLAYER] %s registered as %s (%s)", s.cfg.DisplayName, out.PlayerID, out.AssignedRolePolicy)
	return nil
}

// PlayerID returns the league-assigned id, empty before registration.
func (s *Service) PlayerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerID
}

// Token returns the LM-issued credential, for the inbound auth check.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Invite opens a session for a new game. A second invite for a match whose
// session is still live is rejected; the role tag accepts the legacy
// aliases.
func (s *Service) Invite(params models.GameInviteParams) (models.GameInviteResult, error) {
	role, err := models.ParseRole(params.Role)
	if err != nil {
		return models.GameInviteResult{Accepted: false, Reason: err.Error()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, dup := s.sessions[params.GameID]; dup && !existing.Finished() {
		return models.GameInviteResult{}, protocol.Errorf(protocol.KindGameAlreadyStarted,
			"game %s already running", params.GameID)
	}
	if existing, dup := s.byMatch[params.MatchID]; dup && !existing.Finished() {
		return models.GameInviteResult{}, protocol.Errorf(protocol.KindGameAlreadyStarted,
			"match %s already has game %s", params.MatchID, existing.GameID)
	}

	session := newSession(params, strategy.New(s.cfg.Strategy, s.playerID), role)
	s.sessions[params.GameID] = session
	s.byMatch[params.MatchID] = session

	log.Printf("[PLAYER] %s accepted %s as %s vs %s, %d rounds",
		s.playerID, params.GameID, role, params.OpponentID, params.MaxRounds)
	return models.GameInviteResult{Accepted: true}, nil
}

// Move answers request_move for a live session.
func (s *Service) Move(params models.RequestMoveParams) (models.RequestMoveResult, error) {
	session, err := s.session(params.GameID)
	if err != nil {
		return models.RequestMoveResult{}, err
	}
	return session.Move(params)
}

// RoundResult ingests a resolved round notification.
func (s *Service) RoundResult(params models.RoundResultParams) (models.RoundResultResult, error) {
	session, err := s.session(params.GameID)
	if err != nil {
		return models.RoundResultResult{}, err
	}
	session.ObserveRound(params)
	return models.RoundResultResult{}, nil
}

// GameOver closes a session.
func (s *Service) GameOver(params models.GameOverParams) (models.GameOverResult, error) {
	session, err := s.session(params.GameID)
	if err != nil {
		return models.GameOverResult{}, err
	}
	session.Finish(params)
	log.Printf("[PLAYER] %s game %s over, winner %s", s.playerID, params.GameID, derefWinner(params.WinnerID))
	return models.GameOverResult{}, nil
}

func (s *Service) session(gameID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[gameID]
	if !exists {
		return nil, protocol.Errorf(protocol.KindUnknownGame, "unknown game %s", gameID)
	}
	return session, nil
}

func derefWinner(id *string) string {
	if id == nil {
		return "none"
	}
	return *id
}
