package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"parity-league/models"
)

// historyWindow bounds the trailing round history shown to strategies.
const historyWindow = 5

// PlayerConn is the referee's link to one player agent. Implementations
// wrap the JSON-RPC client; tests substitute in-memory fakes.
type PlayerConn interface {
	PlayerID() string
	Invite(ctx context.Context, params models.GameInviteParams) (models.GameInviteResult, error)
	RequestMove(ctx context.Context, params models.RequestMoveParams) (models.RequestMoveResult, error)
	RoundResult(ctx context.Context, params models.RoundResultParams) error
	GameOver(ctx context.Context, params models.GameOverParams) error
}

// Timeouts bound each player-facing call.
type Timeouts struct {
	Invite time.Duration
	Move   time.Duration
	Notify time.Duration
}

// DefaultTimeouts returns the standard deadlines: 5s invites, 30s moves,
// 5s notifications.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Invite: 5 * time.Second,
		Move:   30 * time.Second,
		Notify: 5 * time.Second,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Invite <= 0 {
		t.Invite = d.Invite
	}
	if t.Move <= 0 {
		t.Move = d.Move
	}
	if t.Notify <= 0 {
		t.Notify = d.Notify
	}
	return t
}

// seat holds one player's side of a match. The queue serializes
// round_result and game_over deliveries so each player sees them in
// match order even though the match loop never blocks on delivery.
type seat struct {
	conn     PlayerConn
	id       string
	role     models.Role
	score    int
	defaults int
	queue    chan func()
}

type moveOutcome struct {
	move      int
	defaulted bool
	detail    string
}

// Match runs a single even/odd game session between two players. All
// player I/O happens in Run; concurrent readers (status queries, cancel)
// go through the mutex.
type Match struct {
	matchID    string
	gameID     string
	roundIndex int
	refereeID  string
	cfg        models.GameConfig
	timeouts   Timeouts
	emit       func(models.Event)

	odd  *seat
	even *seat

	mu           sync.Mutex
	status       models.MatchStatus
	state        models.SessionState
	currentRound int
	history      []models.RoundRecord
	cancelReason string
	cancelRun    context.CancelFunc
	result       *models.MatchResult
	finishedAt   time.Time

	notifyWG sync.WaitGroup
}

// NewMatch prepares a match from an accepted assignment. Roles follow the
// deterministic rule: the lexicographically smaller player id plays ODD.
func NewMatch(params models.AssignMatchParams, refereeID string, connA, connB PlayerConn, timeouts Timeouts, emit func(models.Event)) (*Match, error) {
	cfg, err := NormalizeConfig(params.GameConfig)
	if err != nil {
		return nil, err
	}

	oddID, _ := AssignRoles(connA.PlayerID(), connB.PlayerID())
	oddConn, evenConn := connA, connB
	if connB.PlayerID() == oddID {
		oddConn, evenConn = connB, connA
	}

	queueSize := cfg.MaxRounds + 4
	m := &Match{
		matchID:    params.MatchID,
		gameID:     uuid.New().String(),
		roundIndex: params.RoundIndex,
		refereeID:  refereeID,
		cfg:        cfg,
		timeouts:   timeouts.withDefaults(),
		emit:       emit,
		odd:        &seat{conn: oddConn, id: oddConn.PlayerID(), role: models.RoleOdd, queue: make(chan func(), queueSize)},
		even:       &seat{conn: evenConn, id: evenConn.PlayerID(), role: models.RoleEven, queue: make(chan func(), queueSize)},
		status:     models.MatchAssigned,
		state:      models.SessionInit,
	}
	return m, nil
}

// MatchID returns the league-wide match identifier.
func (m *Match) MatchID() string { return m.matchID }

// GameID returns the session identifier players key their state by.
func (m *Match) GameID() string { return m.gameID }

// Run plays the match to a terminal state and returns the result. It blocks
// until both players have been offered their game_over notification.
func (m *Match) Run(ctx context.Context) models.MatchResult {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	alreadyCancelled := m.cancelReason != ""
	m.cancelRun = cancel
	m.status = models.MatchInviting
	m.state = models.SessionWaitingForAccept
	m.mu.Unlock()

	m.startNotifiers()

	var (
		status models.MatchStatus
		winner *string
		reason string
	)
	if alreadyCancelled {
		status, winner, reason = m.cancelledOutcome()
	} else {
		status, winner, reason = m.play(runCtx)
	}

	res := models.MatchResult{
		MatchID:       m.matchID,
		RefereeID:     m.refereeID,
		WinnerID:      winner,
		Scores:        m.scores(),
		RoundsSummary: m.historyCopy(),
		Status:        status,
		Reason:        reason,
	}

	m.mu.Lock()
	m.status = status
	if status == models.MatchCancelled {
		m.state = models.SessionAborted
	} else {
		m.state = models.SessionFinished
	}
	m.result = &res
	m.finishedAt = time.Now()
	m.mu.Unlock()

	m.sendGameOver(res)
	m.closeNotifiers()
	m.notifyWG.Wait()

	m.emitTerminal(res)
	log.Printf("[MATCH] %s finished status=%s winner=%s score %s",
		m.matchID, status, deref(winner), formatScores(res.Scores))
	return res
}

func (m *Match) play(ctx context.Context) (models.MatchStatus, *string, string) {
	log.Printf("[MATCH] %s inviting %s (ODD) vs %s (EVEN), %d rounds",
		m.matchID, m.odd.id, m.even.id, m.cfg.MaxRounds)

	if status, winner, reason, done := m.runInvites(ctx); done {
		return status, winner, reason
	}

	m.mu.Lock()
	m.status = models.MatchRunning
	m.mu.Unlock()

	for round := 1; round <= m.cfg.MaxRounds; round++ {
		if ctx.Err() != nil {
			return m.cancelledOutcome()
		}

		m.mu.Lock()
		m.currentRound = round
		m.state = models.SessionCollectingMoves
		m.mu.Unlock()

		oddOut, evenOut := m.collectMoves(ctx, round)
		if ctx.Err() != nil {
			return m.cancelledOutcome()
		}

		if m.cfg.ForfeitThreshold > 0 {
			oddGone := m.odd.defaults > m.cfg.ForfeitThreshold
			evenGone := m.even.defaults > m.cfg.ForfeitThreshold
			switch {
			case oddGone && evenGone:
				return models.MatchForfeit, nil, "both players exceeded the forfeit threshold"
			case oddGone:
				return models.MatchForfeit, strptr(m.even.id),
					fmt.Sprintf("%s exceeded the forfeit threshold after %d defaulted moves", m.odd.id, m.odd.defaults)
			case evenGone:
				return models.MatchForfeit, strptr(m.odd.id),
					fmt.Sprintf("%s exceeded the forfeit threshold after %d defaulted moves", m.even.id, m.even.defaults)
			}
		}

		rec := m.resolveRound(round, oddOut, evenOut)
		m.notifyRound(rec)
	}

	var winner *string
	switch {
	case m.odd.score > m.even.score:
		winner = strptr(m.odd.id)
	case m.even.score > m.odd.score:
		winner = strptr(m.even.id)
	}
	return models.MatchComplete, winner, ""
}

// runInvites fans the game_invite out to both players concurrently. Any
// decline, timeout or transport failure forfeits the match before a single
// move is requested.
func (m *Match) runInvites(ctx context.Context) (models.MatchStatus, *string, string, bool) {
	type inviteReply struct {
		s      *seat
		accept bool
		detail string
	}
	replies := make(chan inviteReply, 2)

	for _, s := range []*seat{m.odd, m.even} {
		go func(s *seat) {
			ictx, cancel := context.WithTimeout(ctx, m.timeouts.Invite)
			defer cancel()
			res, err := s.conn.Invite(ictx, models.GameInviteParams{
				MatchID:        m.matchID,
				GameID:         m.gameID,
				Role:           string(s.role),
				OpponentID:     m.opponent(s).id,
				MaxRounds:      m.cfg.MaxRounds,
				ValidMoveRange: m.cfg.ValidMoveRange,
			})
			switch {
			case err != nil && ictx.Err() != nil:
				replies <- inviteReply{s, false, "invite timed out"}
			case err != nil:
				replies <- inviteReply{s, false, "invite failed: " + err.Error()}
			case !res.Accepted:
				detail := "invite declined"
				if res.Reason != "" {
					detail += ": " + res.Reason
				}
				replies <- inviteReply{s, false, detail}
			default:
				replies <- inviteReply{s, true, ""}
			}
		}(s)
	}

	var refused []inviteReply
	for i := 0; i < 2; i++ {
		r := <-replies
		if !r.accept {
			log.Printf("[MATCH] %s %s: %s", m.matchID, r.s.id, r.detail)
			refused = append(refused, r)
		}
	}

	if ctx.Err() != nil {
		status, winner, reason := m.cancelledOutcome()
		return status, winner, reason, true
	}
	switch len(refused) {
	case 0:
		return "", nil, "", false
	case 1:
		loser := refused[0].s
		return models.MatchForfeit, strptr(m.opponent(loser).id),
			fmt.Sprintf("%s: %s", loser.id, refused[0].detail), true
	default:
		return models.MatchForfeit, nil, "both players failed the invite", true
	}
}

// collectMoves requests both moves concurrently and substitutes the default
// move for any player that times out, errors, or answers out of range.
func (m *Match) collectMoves(ctx context.Context, round int) (moveOutcome, moveOutcome) {
	type moveReply struct {
		s   *seat
		out moveOutcome
	}
	replies := make(chan moveReply, 2)

	for _, s := range []*seat{m.odd, m.even} {
		go func(s *seat) {
			replies <- moveReply{s, m.requestMove(ctx, s, round)}
		}(s)
	}

	var oddOut, evenOut moveOutcome
	for i := 0; i < 2; i++ {
		r := <-replies
		if r.s == m.odd {
			oddOut = r.out
		} else {
			evenOut = r.out
		}
		if r.out.defaulted {
			r.s.defaults++
			log.Printf("[MATCH] %s round %d: %s defaulted to %d (%s, %d so far)",
				m.matchID, round, r.s.id, r.out.move, r.out.detail, r.s.defaults)
		}
	}
	return oddOut, evenOut
}

func (m *Match) requestMove(ctx context.Context, s *seat, round int) moveOutcome {
	mctx, cancel := context.WithTimeout(ctx, m.timeouts.Move)
	defer cancel()

	res, err := s.conn.RequestMove(mctx, models.RequestMoveParams{
		GameID:        m.gameID,
		RoundNumber:   round,
		GameStateView: m.stateView(s, round),
	})
	if err != nil {
		detail := "request failed: " + err.Error()
		if mctx.Err() == context.DeadlineExceeded {
			detail = "move deadline exceeded"
		}
		return moveOutcome{move: m.cfg.DefaultMove, defaulted: true, detail: detail}
	}
	if err := ValidateMove(res.Move, m.cfg.ValidMoveRange); err != nil {
		return moveOutcome{move: m.cfg.DefaultMove, defaulted: true, detail: err.Error()}
	}
	return moveOutcome{move: res.Move}
}

// resolveRound adjudicates one round and appends it to the history. A round
// where both moves were substituted carries no winner and moves no score;
// two identical defaults would otherwise hand every such round to EVEN.
func (m *Match) resolveRound(round int, oddOut, evenOut moveOutcome) models.RoundRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = models.SessionResolving
	rec := models.RoundRecord{
		RoundNumber: round,
		Moves: map[string]int{
			m.odd.id:  oddOut.move,
			m.even.id: evenOut.move,
		},
		Sum:         oddOut.move + evenOut.move,
		CompletedAt: time.Now().UTC(),
	}

	if oddOut.defaulted && evenOut.defaulted {
		log.Printf("[MATCH] %s round %d: both defaulted, no winner", m.matchID, round)
	} else {
		role, sum := Adjudicate(oddOut.move, evenOut.move)
		winner := m.odd
		if role == models.RoleEven {
			winner = m.even
		}
		winner.score++
		rec.WinnerID = strptr(winner.id)
		log.Printf("[MATCH] %s round %d: %d+%d=%d, %s (%s) takes it",
			m.matchID, round, oddOut.move, evenOut.move, sum, winner.id, role)
	}

	m.history = append(m.history, rec)
	return rec
}

// notifyRound queues the round outcome for both players. Deliveries run on
// the per-seat notifier so round r always lands before round r+1; a failed
// delivery is logged and never blocks the match.
func (m *Match) notifyRound(rec models.RoundRecord) {
	params := models.RoundResultParams{
		GameID:      m.gameID,
		RoundNumber: rec.RoundNumber,
		Moves:       rec.Moves,
		Sum:         rec.Sum,
		WinnerID:    rec.WinnerID,
		Scores:      m.scores(),
	}
	for _, s := range []*seat{m.odd, m.even} {
		s := s
		s.queue <- func() {
			nctx, cancel := context.WithTimeout(context.Background(), m.timeouts.Notify)
			defer cancel()
			if err := s.conn.RoundResult(nctx, params); err != nil {
				log.Printf("[MATCH] %s round_result %d to %s failed: %v", m.matchID, params.RoundNumber, s.id, err)
			}
		}
	}
}

// sendGameOver is delivered after every queued round_result, even when the
// match was cancelled mid-round.
func (m *Match) sendGameOver(res models.MatchResult) {
	params := models.GameOverParams{
		GameID:   m.gameID,
		WinnerID: res.WinnerID,
		Scores:   res.Scores,
		Reason:   res.Reason,
	}
	for _, s := range []*seat{m.odd, m.even} {
		s := s
		s.queue <- func() {
			nctx, cancel := context.WithTimeout(context.Background(), m.timeouts.Notify)
			defer cancel()
			if err := s.conn.GameOver(nctx, params); err != nil {
				log.Printf("[MATCH] %s game_over to %s failed: %v", m.matchID, s.id, err)
			}
		}
	}
}

func (m *Match) startNotifiers() {
	for _, s := range []*seat{m.odd, m.even} {
		s := s
		m.notifyWG.Add(1)
		go func() {
			defer m.notifyWG.Done()
			for fn := range s.queue {
				fn()
			}
		}()
	}
}

func (m *Match) closeNotifiers() {
	close(m.odd.queue)
	close(m.even.queue)
}

// Cancel aborts a running match. The in-flight player call is interrupted
// and the match reaches CANCELLED; both players still get their game_over.
func (m *Match) Cancel(reason string) {
	m.mu.Lock()
	if m.status.Terminal() {
		m.mu.Unlock()
		return
	}
	if reason == "" {
		reason = "match cancelled"
	}
	m.cancelReason = reason
	cancel := m.cancelRun
	m.mu.Unlock()

	log.Printf("[MATCH] %s cancel requested: %s", m.matchID, reason)
	if cancel != nil {
		cancel()
	}
}

func (m *Match) cancelledOutcome() (models.MatchStatus, *string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reason := m.cancelReason
	if reason == "" {
		reason = "match cancelled"
	}
	return models.MatchCancelled, nil, reason
}

// Status returns a point-in-time snapshot for get_match_status.
func (m *Match) Status() models.MatchStatusResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.MatchStatusResult{
		MatchID:      m.matchID,
		Status:       m.status,
		CurrentRound: m.currentRound,
		Scores: map[string]int{
			m.odd.id:  m.odd.score,
			m.even.id: m.even.score,
		},
	}
}

// Result returns the terminal result, or nil while the match is live.
func (m *Match) Result() *models.MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// FinishedAt returns when the match reached a terminal state.
func (m *Match) FinishedAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishedAt, !m.finishedAt.IsZero()
}

func (m *Match) stateView(s *seat, round int) models.GameStateView {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.history
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	view := models.GameStateView{
		RoundNumber: round,
		MaxRounds:   m.cfg.MaxRounds,
		YourRole:    string(s.role),
		Scores: map[string]int{
			m.odd.id:  m.odd.score,
			m.even.id: m.even.score,
		},
		History: append([]models.RoundRecord(nil), history...),
	}
	return view
}

func (m *Match) scores() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		m.odd.id:  m.odd.score,
		m.even.id: m.even.score,
	}
}

func (m *Match) historyCopy() []models.RoundRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RoundRecord(nil), m.history...)
}

func (m *Match) opponent(s *seat) *seat {
	if s == m.odd {
		return m.even
	}
	return m.odd
}

func (m *Match) emitTerminal(res models.MatchResult) {
	if m.emit == nil {
		return
	}
	kind := models.EventMatchCompleted
	switch res.Status {
	case models.MatchForfeit:
		kind = models.EventMatchForfeited
	case models.MatchCancelled:
		kind = models.EventMatchCancelled
	}
	m.emit(models.NewEvent(kind, "", models.MatchFinishedData{
		MatchID:  res.MatchID,
		Status:   res.Status,
		WinnerID: res.WinnerID,
		Scores:   res.Scores,
		Reason:   res.Reason,
	}))
}

func strptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return "none"
	}
	return *s
}

func formatScores(scores map[string]int) string {
	out := ""
	for id, score := range scores {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", id, score)
	}
	return out
}
