package league

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"parity-league/internal/protocol"
	"parity-league/models"
)

// Recorder persists completed matches and per-round standings. The
// in-memory state stays authoritative; recording failures are logged and
// never block ingestion.
type Recorder interface {
	RecordMatch(res models.MatchResult, roundIndex int, playerA, playerB string) error
	RecordStandings(roundIndex int, final bool, entries []models.StandingsEntry) error
}

// ControllerConfig fixes one tournament's parameters.
type ControllerConfig struct {
	TournamentID string
	Code         string
	GameType     string
	MaxPlayers   int
	MatchConfig  models.GameConfig
	// RoundDelay separates rounds in run_all_rounds.
	RoundDelay time.Duration
	// DispatchTimeout bounds the placement of a single match, waiting
	// for referee capacity included.
	DispatchTimeout time.Duration
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	if c.GameType == "" {
		c.GameType = models.GameTypeEvenOdd
	}
	if c.MatchConfig.GameType == "" {
		c.MatchConfig = DefaultMatchConfig()
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = 2 * time.Minute
	}
	return c
}

// Controller is the tournament state machine: registration, schedule,
// per-round dispatch, result ingestion, standings. All mutations run under
// one mutex; the round barrier is the pending-result set draining to zero.
type Controller struct {
	cfg        ControllerConfig
	registry   *Registry
	dispatcher *Dispatcher
	results    *ResultLog
	emit       func(models.Event)
	recorder   Recorder

	mu           sync.Mutex
	phase        models.Phase
	board        *Board
	schedule     models.Schedule
	matches      map[string]*models.Match
	currentRound int
	degraded     []models.DegradedMatch
	pending      map[string]bool
	roundDone    chan struct{}
	// abandonedRound marks a round whose barrier waiter gave up before the
	// results drained; ingestion closes it when the last straggler lands.
	abandonedRound int

	// runMu serializes the control-plane round drivers.
	runMu sync.Mutex
}

// NewController builds a controller in REGISTRATION_OPEN. emit may be nil;
// recorder may be nil for memory-only operation.
func NewController(cfg ControllerConfig, registry *Registry, dispatcher *Dispatcher, emit func(models.Event), recorder Recorder) *Controller {
	cfg = cfg.withDefaults()
	if emit == nil {
		emit = func(models.Event) {}
	}
	return &Controller{
		cfg:        cfg,
		registry:   registry,
		dispatcher: dispatcher,
		results:    NewResultLog(),
		emit:       emit,
		recorder:   recorder,
		phase:      models.PhaseRegistrationOpen,
		matches:    make(map[string]*models.Match),
		pending:    make(map[string]bool),
	}
}

// Registry exposes the agent registry for the transport auth hook.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// RegisterPlayer admits a player while registration is open.
func (c *Controller) RegisterPlayer(params models.RegisterPlayerParams) (models.RegisterPlayerResult, error) {
	c.mu.Lock()
	open := c.phase == models.PhaseRegistrationOpen
	c.mu.Unlock()
	if !open {
		return models.RegisterPlayerResult{}, protocol.NewError(protocol.KindRegistrationClosed, "registration is closed")
	}

	record, err := c.registry.RegisterPlayer(params)
	if err != nil {
		return models.RegisterPlayerResult{}, err
	}
	c.emit(models.NewEvent(models.EventPlayerRegistered, c.cfg.TournamentID, map[string]string{
		"player_id":    record.PlayerID,
		"display_name": record.DisplayName,
	}))
	return models.RegisterPlayerResult{
		PlayerID:           record.PlayerID,
		AuthToken:          record.AuthToken,
		AssignedRolePolicy: "lexicographic smaller id plays ODD",
	}, nil
}

// RegisterReferee admits a referee. Referees may join at any phase before
// completion; capacity is accepted as declared.
func (c *Controller) RegisterReferee(params models.RegisterRefereeParams) (models.RegisterRefereeResult, error) {
	c.mu.Lock()
	done := c.phase == models.PhaseComplete
	c.mu.Unlock()
	if done {
		return models.RegisterRefereeResult{}, protocol.NewError(protocol.KindRegistrationClosed, "tournament is complete")
	}

	record, err := c.registry.RegisterReferee(params)
	if err != nil {
		return models.RegisterRefereeResult{}, err
	}
	c.emit(models.NewEvent(models.EventRefereeRegistered, c.cfg.TournamentID, map[string]interface{}{
		"referee_id": record.RefereeID,
		"capacity":   record.Capacity,
	}))
	return models.RegisterRefereeResult{
		AuthToken:        record.AuthToken,
		AcceptedCapacity: record.Capacity,
	}, nil
}

// StartLeague closes registration, generates and verifies the schedule and
// moves to SCHEDULED. Refuses with fewer than two players.
func (c *Controller) StartLeague() (models.LeagueStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != models.PhaseRegistrationOpen {
		return c.statusLocked(""), protocol.Errorf(protocol.KindInvalidPhase,
			"start_league in phase %s", c.phase)
	}

	playerIDs := c.registry.PlayerIDs()
	if len(playerIDs) < 2 {
		return c.statusLocked(""), protocol.Errorf(protocol.KindNoPlayersRegistered,
			"need at least 2 players, have %d", len(playerIDs))
	}

	schedule, err := GenerateSchedule(playerIDs)
	if err != nil {
		return c.statusLocked(""), protocol.NewError(protocol.KindInternal, err.Error())
	}
	if err := VerifySchedule(schedule, playerIDs); err != nil {
		// A broken generator is a bug, not a runtime condition.
		panic(fmt.Sprintf("schedule invariant violation: %v", err))
	}

	c.registry.Close()
	c.schedule = schedule
	c.board = NewBoard(c.registry.Players())
	c.phase = models.PhaseScheduled

	log.Printf("[LEAGUE] %s started: %d players, %d rounds",
		c.cfg.TournamentID, len(playerIDs), schedule.TotalRounds())
	c.emit(models.NewEvent(models.EventLeagueStarted, c.cfg.TournamentID, map[string]interface{}{
		"players":      len(playerIDs),
		"total_rounds": schedule.TotalRounds(),
	}))
	return c.statusLocked("league started"), nil
}

// RunNextRound dispatches the next round and blocks behind the round
// barrier until every dispatched match has reported.
func (c *Controller) RunNextRound(ctx context.Context) (models.LeagueStatus, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.runRound(ctx)
}

// RunAllRounds drives every remaining round with the configured delay
// between them.
func (c *Controller) RunAllRounds(ctx context.Context) (models.LeagueStatus, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	for {
		status, err := c.runRound(ctx)
		if err != nil || status.Phase == models.PhaseComplete {
			return status, err
		}
		if c.cfg.RoundDelay > 0 {
			select {
			case <-ctx.Done():
				return status, protocol.NewError(protocol.KindTimeout, "run_all_rounds canceled")
			case <-time.After(c.cfg.RoundDelay):
			}
		}
	}
}

func (c *Controller) runRound(ctx context.Context) (models.LeagueStatus, error) {
	c.mu.Lock()
	if c.phase != models.PhaseScheduled && c.phase != models.PhaseBetweenRounds {
		defer c.mu.Unlock()
		return c.statusLocked(""), protocol.Errorf(protocol.KindInvalidPhase,
			"run round in phase %s", c.phase)
	}
	if len(c.pending) != 0 {
		panic(fmt.Sprintf("round barrier violation: %d results still pending from round %d",
			len(c.pending), c.currentRound))
	}

	round := c.currentRound + 1
	if round > c.schedule.TotalRounds() {
		defer c.mu.Unlock()
		return c.statusLocked(""), protocol.NewError(protocol.KindInvalidPhase, ErrTournamentOver.Error())
	}
	scheduleRound := c.schedule.Rounds[round-1]

	c.phase = models.PhaseRunningRound
	c.currentRound = round
	c.roundDone = make(chan struct{})

	type plan struct {
		match  *models.Match
		params models.AssignMatchParams
	}
	var plans []plan
	byes := 0
	matchNum := 0
	for _, pairing := range scheduleRound.Pairings {
		if pairing.HasBye() {
			byes++
			continue
		}
		if pairing.PlayerA == pairing.PlayerB {
			panic(fmt.Sprintf("schedule invariant violation: round %d pairs %s against itself",
				round, pairing.PlayerA))
		}
		matchNum++
		matchID := fmt.Sprintf("R%dM%d", round, matchNum)
		match := &models.Match{
			MatchID:    matchID,
			RoundIndex: round,
			PlayerA:    pairing.PlayerA,
			PlayerB:    pairing.PlayerB,
			Status:     models.MatchAssigned,
		}
		c.matches[matchID] = match
		c.pending[matchID] = true
		plans = append(plans, plan{
			match: match,
			params: models.AssignMatchParams{
				MatchID:    matchID,
				RoundIndex: round,
				PlayerA:    c.playerRefLocked(pairing.PlayerA),
				PlayerB:    c.playerRefLocked(pairing.PlayerB),
				GameConfig: c.cfg.MatchConfig,
			},
		})
	}
	c.mu.Unlock()

	log.Printf("[LEAGUE] round %d: %d matches, %d byes", round, len(plans), byes)
	c.emit(models.NewEvent(models.EventRoundStarted, c.cfg.TournamentID, models.RoundStartedData{
		RoundIndex: round,
		Matches:    len(plans),
		Byes:       byes,
	}))

	for _, p := range plans {
		dctx, cancel := context.WithTimeout(ctx, c.cfg.DispatchTimeout)
		refereeID, err := c.dispatcher.Dispatch(dctx, p.params)
		cancel()
		if err != nil {
			log.Printf("[LEAGUE] dispatch of %s failed, cancelling with double forfeit: %v", p.match.MatchID, err)
			c.ingest(models.MatchResult{
				MatchID: p.match.MatchID,
				Scores:  map[string]int{p.match.PlayerA: 0, p.match.PlayerB: 0},
				Status:  models.MatchCancelled,
				Reason:  "dispatch failed: " + err.Error(),
			})
			continue
		}

		now := time.Now().UTC()
		c.mu.Lock()
		p.match.RefereeID = refereeID
		p.match.Status = models.MatchInviting
		p.match.StartedAt = &now
		c.mu.Unlock()
		c.emit(models.NewEvent(models.EventMatchAssigned, c.cfg.TournamentID, models.MatchAssignedData{
			MatchID:   p.match.MatchID,
			RefereeID: refereeID,
			PlayerA:   p.match.PlayerA,
			PlayerB:   p.match.PlayerB,
		}))
	}

	// Round barrier: every dispatched match must report before the round
	// closes and before any later dispatch.
	c.mu.Lock()
	done := c.roundDone
	waiting := len(c.pending)
	c.mu.Unlock()
	if waiting > 0 {
		log.Printf("[LEAGUE] round %d waiting on %d results", round, waiting)
		select {
		case <-done:
		case <-ctx.Done():
			c.mu.Lock()
			if len(c.pending) == 0 {
				// The last result landed while we were giving up.
				c.mu.Unlock()
				return c.closeRound(round), nil
			}
			// Hand the close to ingestion so the stragglers still advance
			// the phase machine once they drain.
			c.abandonedRound = round
			c.mu.Unlock()
			return c.Status(""), protocol.Errorf(protocol.KindTimeout,
				"round %d interrupted with results outstanding", round)
		}
	}

	return c.closeRound(round), nil
}

// closeRound publishes the post-round standings and advances the phase.
func (c *Controller) closeRound(round int) models.LeagueStatus {
	c.mu.Lock()
	c.board.SetRound(round)
	final := round >= c.schedule.TotalRounds()
	if final {
		c.phase = models.PhaseComplete
	} else {
		c.phase = models.PhaseBetweenRounds
	}
	degraded := append([]models.DegradedMatch(nil), c.degraded...)
	c.mu.Unlock()

	roundIndex, standings := c.board.Snapshot()
	c.emit(models.NewEvent(models.EventStandingsUpdated, c.cfg.TournamentID, models.StandingsUpdatedData{
		RoundIndex: roundIndex,
		Standings:  standings,
	}))
	if c.recorder != nil {
		if err := c.recorder.RecordStandings(roundIndex, final, standings); err != nil {
			log.Printf("[LEAGUE] record standings for round %d failed: %v", roundIndex, err)
		}
	}

	if final {
		winner := c.board.Leader()
		log.Printf("[LEAGUE] %s complete, winner %s", c.cfg.TournamentID, winner)
		c.emit(models.NewEvent(models.EventTournamentCompleted, c.cfg.TournamentID, models.TournamentCompletedData{
			WinnerID:  winner,
			Standings: standings,
		}))
		if len(degraded) > 0 {
			c.emit(models.NewEvent(models.EventTournamentDegraded, c.cfg.TournamentID, models.TournamentDegradedData{
				Matches: degraded,
			}))
		}
	}
	return c.Status("")
}

// ReportMatchResult ingests one referee report. Idempotent on match_id: a
// redelivery is acknowledged without touching standings.
func (c *Controller) ReportMatchResult(params models.ReportMatchResultParams) (models.ReportMatchResultResult, error) {
	c.mu.Lock()
	match, exists := c.matches[params.MatchID]
	if !exists {
		c.mu.Unlock()
		return models.ReportMatchResultResult{}, protocol.Errorf(protocol.KindMatchNotFound,
			"unknown match %s", params.MatchID)
	}
	if match.RefereeID != "" && params.RefereeID != "" && match.RefereeID != params.RefereeID {
		c.mu.Unlock()
		return models.ReportMatchResultResult{}, protocol.Errorf(protocol.KindMatchNotFound,
			"match %s is not assigned to %s", params.MatchID, params.RefereeID)
	}
	c.mu.Unlock()

	status := params.Status
	if status == "" {
		status = models.MatchComplete
	}
	c.ingest(models.MatchResult{
		MatchID:       params.MatchID,
		RefereeID:     params.RefereeID,
		WinnerID:      params.WinnerID,
		Scores:        params.Scores,
		RoundsSummary: params.RoundsSummary,
		Status:        status,
		Reason:        params.Reason,
	})
	return models.ReportMatchResultResult{Acknowledged: true}, nil
}

// ingest applies one terminal result exactly once: standings, referee slot
// release, degraded list, events, history, and the round barrier. The match
// record's stored result is the permanent duplicate guard; the result log is
// a fast path that ages out.
func (c *Controller) ingest(res models.MatchResult) {
	now := time.Now().UTC()
	c.mu.Lock()
	match := c.matches[res.MatchID]
	if match == nil {
		c.mu.Unlock()
		panic(fmt.Sprintf("result ingested for unknown match %s", res.MatchID))
	}
	if match.Result != nil || !c.results.MarkApplied(res) {
		c.mu.Unlock()
		log.Printf("[LEAGUE] duplicate result for %s, acknowledging without re-applying", res.MatchID)
		return
	}
	match.Status = res.Status
	match.CompletedAt = &now
	match.Result = &res
	if res.Status == models.MatchForfeit || res.Status == models.MatchCancelled {
		c.degraded = append(c.degraded, models.DegradedMatch{
			MatchID: res.MatchID,
			Status:  res.Status,
			Reason:  res.Reason,
		})
	}
	playerA, playerB := match.PlayerA, match.PlayerB
	roundIndex := match.RoundIndex
	delete(c.pending, res.MatchID)
	roundComplete := len(c.pending) == 0 && c.phase == models.PhaseRunningRound
	abandoned := roundComplete && c.abandonedRound == roundIndex
	if abandoned {
		c.abandonedRound = 0
	}
	done := c.roundDone
	c.mu.Unlock()

	c.board.Apply(res, playerA, playerB)

	if res.RefereeID != "" {
		c.registry.ReleaseSlot(res.RefereeID)
		c.dispatcher.NotifySlotFreed()
	}

	kind := models.EventMatchCompleted
	switch res.Status {
	case models.MatchForfeit:
		kind = models.EventMatchForfeited
	case models.MatchCancelled:
		kind = models.EventMatchCancelled
	}
	c.emit(models.NewEvent(kind, c.cfg.TournamentID, models.MatchFinishedData{
		MatchID:  res.MatchID,
		Status:   res.Status,
		WinnerID: res.WinnerID,
		Scores:   res.Scores,
		Reason:   res.Reason,
	}))
	if c.recorder != nil {
		if err := c.recorder.RecordMatch(res, roundIndex, playerA, playerB); err != nil {
			log.Printf("[LEAGUE] record match %s failed: %v", res.MatchID, err)
		}
	}

	if roundComplete {
		close(done)
		if abandoned {
			log.Printf("[LEAGUE] round %d barrier had no waiter, closing from ingestion", roundIndex)
			c.closeRound(roundIndex)
		}
	}
}

// CancelMatch propagates an operator cancellation to the owning referee.
// The terminal CANCELLED result still arrives through ingestion.
func (c *Controller) CancelMatch(ctx context.Context, matchID, reason string) error {
	c.mu.Lock()
	match, exists := c.matches[matchID]
	refereeID := ""
	if exists {
		refereeID = match.RefereeID
	}
	c.mu.Unlock()

	if !exists {
		return protocol.Errorf(protocol.KindMatchNotFound, "unknown match %s", matchID)
	}
	if refereeID == "" {
		return protocol.Errorf(protocol.KindMatchNotFound, "match %s not dispatched", matchID)
	}
	return c.dispatcher.CancelMatch(ctx, refereeID, matchID, reason)
}

// GetStandings serves the standings snapshot.
func (c *Controller) GetStandings() (models.GetStandingsResult, error) {
	c.mu.Lock()
	board := c.board
	c.mu.Unlock()
	if board == nil {
		// Before start_league the table is empty at round zero.
		return models.GetStandingsResult{Standings: []models.StandingsEntry{}}, nil
	}
	roundIndex, standings := board.Snapshot()
	return models.GetStandingsResult{RoundIndex: roundIndex, Standings: standings}, nil
}

// Status reports the control-plane view of the tournament.
func (c *Controller) Status(message string) models.LeagueStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(message)
}

func (c *Controller) statusLocked(message string) models.LeagueStatus {
	players, referees := c.registry.Counts()
	return models.LeagueStatus{
		TournamentID: c.cfg.TournamentID,
		Code:         c.cfg.Code,
		GameType:     c.cfg.GameType,
		Phase:        c.phase,
		CurrentRound: c.currentRound,
		TotalRounds:  c.schedule.TotalRounds(),
		Players:      players,
		Referees:     referees,
		Degraded:     append([]models.DegradedMatch(nil), c.degraded...),
		Message:      message,
	}
}

// Stop releases the controller's background resources.
func (c *Controller) Stop() {
	c.results.Stop()
}

func (c *Controller) playerRefLocked(playerID string) models.PlayerRef {
	record, err := c.registry.PlayerByID(playerID)
	if err != nil {
		panic(fmt.Sprintf("schedule names unregistered player %s", playerID))
	}
	return models.PlayerRef{
		PlayerID:    record.PlayerID,
		DisplayName: record.DisplayName,
		Endpoint:    record.Endpoint,
		AuthToken:   record.AuthToken,
	}
}
