package league

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"parity-league/internal/auth"
	"parity-league/internal/protocol"
	"parity-league/models"
)

// Registry is the LM's authoritative record of registered agents. Player ids
// are assigned sequentially (P01, P02, ...) in registration order; referee
// ids are caller-chosen and must be unique.
type Registry struct {
	mu         sync.RWMutex
	gameType   string
	maxPlayers int
	tokens     *auth.Service

	players    []*models.PlayerRecord
	byEndpoint map[string]*models.PlayerRecord
	referees   map[string]*models.RefereeRecord
	closed     bool
}

// NewRegistry builds an open registry for one tournament.
func NewRegistry(gameType string, maxPlayers int, tokens *auth.Service) *Registry {
	return &Registry{
		gameType:   gameType,
		maxPlayers: maxPlayers,
		tokens:     tokens,
		byEndpoint: make(map[string]*models.PlayerRecord),
		referees:   make(map[string]*models.RefereeRecord),
	}
}

// RegisterPlayer admits one player and hands back its record. Duplicate
// endpoints are rejected without creating a second record.
func (r *Registry) RegisterPlayer(params models.RegisterPlayerParams) (*models.PlayerRecord, error) {
	if err := protocol.ValidateEndpoint(params.Endpoint); err != nil {
		return nil, protocol.NewError(protocol.KindMalformedMessage, err.Error())
	}
	if !supportsGame(params.SupportedGames, r.gameType) {
		return nil, protocol.Errorf(protocol.KindUnsupportedGame,
			"tournament plays %s, player offers %v", r.gameType, params.SupportedGames)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, protocol.NewError(protocol.KindRegistrationClosed, "registration is closed")
	}
	if existing, dup := r.byEndpoint[params.Endpoint]; dup {
		return nil, protocol.Errorf(protocol.KindAlreadyRegistered,
			"endpoint %s already registered as %s", params.Endpoint, existing.PlayerID)
	}
	if r.maxPlayers > 0 && len(r.players) >= r.maxPlayers {
		return nil, protocol.Errorf(protocol.KindLeagueFull, "league is full at %d players", r.maxPlayers)
	}

	playerID := fmt.Sprintf("P%02d", len(r.players)+1)
	token, err := r.tokens.GenerateToken(models.SenderRolePlayer, playerID)
	if err != nil {
		return nil, protocol.Errorf(protocol.KindInternal, "mint token: %v", err)
	}

	record := &models.PlayerRecord{
		PlayerID:       playerID,
		DisplayName:    params.DisplayName,
		Endpoint:       params.Endpoint,
		SupportedGames: append([]string(nil), params.SupportedGames...),
		AuthToken:      token,
		RegisteredAt:   time.Now().UTC(),
	}
	r.players = append(r.players, record)
	r.byEndpoint[params.Endpoint] = record

	log.Printf("[REGISTRY] player %s (%s) registered at %s", playerID, params.DisplayName, params.Endpoint)
	return record, nil
}

// RegisterReferee admits one referee.
func (r *Registry) RegisterReferee(params models.RegisterRefereeParams) (*models.RefereeRecord, error) {
	if params.RefereeID == "" {
		return nil, protocol.NewError(protocol.KindMalformedMessage, "referee_id is required")
	}
	if err := protocol.ValidateEndpoint(params.Endpoint); err != nil {
		return nil, protocol.NewError(protocol.KindMalformedMessage, err.Error())
	}
	if params.Capacity <= 0 {
		return nil, protocol.Errorf(protocol.KindMalformedMessage, "capacity must be positive, got %d", params.Capacity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.referees[params.RefereeID]; dup {
		return nil, protocol.Errorf(protocol.KindDuplicateReferee, "referee id %s already registered", params.RefereeID)
	}

	token, err := r.tokens.GenerateToken(models.SenderRoleReferee, params.RefereeID)
	if err != nil {
		return nil, protocol.Errorf(protocol.KindInternal, "mint token: %v", err)
	}

	record := &models.RefereeRecord{
		RefereeID:    params.RefereeID,
		Endpoint:     params.Endpoint,
		Capacity:     params.Capacity,
		AuthToken:    token,
		RegisteredAt: time.Now().UTC(),
	}
	r.referees[params.RefereeID] = record

	log.Printf("[REGISTRY] referee %s registered at %s with capacity %d",
		params.RefereeID, params.Endpoint, params.Capacity)
	return record, nil
}

// Close ends the registration phase. Later register_* calls fail with
// REGISTRATION_CLOSED.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// PlayerIDs returns ids in registration order.
func (r *Registry) PlayerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.PlayerID
	}
	return ids
}

// Players returns copies of all player records in registration order.
func (r *Registry) Players() []models.PlayerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.PlayerRecord, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}

// PlayerByID resolves one player record.
func (r *Registry) PlayerByID(playerID string) (models.PlayerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if p.PlayerID == playerID {
			return *p, nil
		}
	}
	return models.PlayerRecord{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
}

// RefereeByID resolves one referee record.
func (r *Registry) RefereeByID(refereeID string) (models.RefereeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, exists := r.referees[refereeID]
	if !exists {
		return models.RefereeRecord{}, fmt.Errorf("%w: %s", ErrUnknownReferee, refereeID)
	}
	return *ref, nil
}

// Referees returns copies of all referee records, ordered by id so load
// tiebreaks are deterministic.
func (r *Registry) Referees() []models.RefereeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.RefereeRecord, 0, len(r.referees))
	for _, ref := range r.referees {
		out = append(out, *ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RefereeID < out[j].RefereeID })
	return out
}

// Counts returns the registered player and referee totals.
func (r *Registry) Counts() (players, referees int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players), len(r.referees)
}

// ReserveSlot bumps a referee's active counter after an accepted
// assignment. Exceeding capacity here is a dispatcher bug, not a runtime
// condition.
func (r *Registry) ReserveSlot(refereeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, exists := r.referees[refereeID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownReferee, refereeID)
	}
	if ref.ActiveMatches >= ref.Capacity {
		return protocol.Errorf(protocol.KindCapacityExceeded,
			"referee %s at capacity %d", refereeID, ref.Capacity)
	}
	ref.ActiveMatches++
	return nil
}

// ReleaseSlot frees a referee slot on result ingestion.
func (r *Registry) ReleaseSlot(refereeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, exists := r.referees[refereeID]
	if !exists {
		return
	}
	if ref.ActiveMatches > 0 {
		ref.ActiveMatches--
	}
}

// ValidateToken checks a presented bearer token: the signature must verify
// against this LM's secret and name the sending agent, and the token must be
// the one minted for that agent at registration.
func (r *Registry) ValidateToken(role, agentID, token string) error {
	minted, err := r.tokens.ValidateToken(token)
	if err != nil || minted != agentID {
		return protocol.Errorf(protocol.KindAuthFailed, "bad token for %s:%s", role, agentID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	switch role {
	case models.SenderRolePlayer:
		for _, p := range r.players {
			if p.PlayerID == agentID {
				if p.AuthToken == token {
					return nil
				}
				return protocol.Errorf(protocol.KindAuthFailed, "bad token for %s", agentID)
			}
		}
	case models.SenderRoleReferee:
		if ref, exists := r.referees[agentID]; exists {
			if ref.AuthToken == token {
				return nil
			}
			return protocol.Errorf(protocol.KindAuthFailed, "bad token for %s", agentID)
		}
	}
	return protocol.Errorf(protocol.KindAuthFailed, "unknown agent %s:%s", role, agentID)
}

func supportsGame(games []string, gameType string) bool {
	for _, g := range games {
		if g == gameType {
			return true
		}
	}
	return false
}
