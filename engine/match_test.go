package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"parity-league/models"
)

// fakeConn is an in-memory PlayerConn with scriptable behavior.
type fakeConn struct {
	id            string
	declineInvite bool
	inviteDelay   time.Duration
	moveFn        func(round int) int
	moveDelay     time.Duration

	mu       sync.Mutex
	rounds   []models.RoundResultParams
	gameOver *models.GameOverParams
}

func (f *fakeConn) PlayerID() string { return f.id }

func (f *fakeConn) Invite(ctx context.Context, params models.GameInviteParams) (models.GameInviteResult, error) {
	if f.inviteDelay > 0 {
		select {
		case <-ctx.Done():
			return models.GameInviteResult{}, ctx.Err()
		case <-time.After(f.inviteDelay):
		}
	}
	if f.declineInvite {
		return models.GameInviteResult{Accepted: false, Reason: "not today"}, nil
	}
	return models.GameInviteResult{Accepted: true}, nil
}

func (f *fakeConn) RequestMove(ctx context.Context, params models.RequestMoveParams) (models.RequestMoveResult, error) {
	if f.moveDelay > 0 {
		select {
		case <-ctx.Done():
			return models.RequestMoveResult{}, ctx.Err()
		case <-time.After(f.moveDelay):
		}
	}
	return models.RequestMoveResult{Move: f.moveFn(params.RoundNumber)}, nil
}

func (f *fakeConn) RoundResult(ctx context.Context, params models.RoundResultParams) error {
	f.mu.Lock()
	f.rounds = append(f.rounds, params)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) GameOver(ctx context.Context, params models.GameOverParams) error {
	f.mu.Lock()
	f.gameOver = &params
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) roundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rounds)
}

func (f *fakeConn) gotGameOver() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gameOver != nil
}

func fastTimeouts() Timeouts {
	return Timeouts{
		Invite: 200 * time.Millisecond,
		Move:   100 * time.Millisecond,
		Notify: 200 * time.Millisecond,
	}
}

func testConfig(maxRounds, threshold int) models.GameConfig {
	return models.GameConfig{
		GameType:         models.GameTypeEvenOdd,
		MaxRounds:        maxRounds,
		ValidMoveRange:   models.MoveRange{Min: 1, Max: 5},
		DefaultMove:      1,
		ForfeitThreshold: threshold,
	}
}

func runMatch(t *testing.T, cfg models.GameConfig, a, b *fakeConn) models.MatchResult {
	t.Helper()
	m, err := NewMatch(models.AssignMatchParams{
		MatchID:    "R1M1",
		RoundIndex: 1,
		PlayerA:    models.PlayerRef{PlayerID: a.id},
		PlayerB:    models.PlayerRef{PlayerID: b.id},
		GameConfig: cfg,
	}, "R01", a, b, fastTimeouts(), nil)
	if err != nil {
		t.Fatalf("NewMatch returned %v", err)
	}
	return m.Run(context.Background())
}

func TestMatch_CleanRun_OddSweeps(t *testing.T) {
	// P01 is ODD (lex smaller). 2+1=3 every round, so ODD takes them all.
	p1 := &fakeConn{id: "P01", moveFn: func(int) int { return 2 }}
	p2 := &fakeConn{id: "P02", moveFn: func(int) int { return 1 }}

	res := runMatch(t, testConfig(3, 2), p1, p2)

	if res.Status != models.MatchComplete {
		t.Fatalf("status = %s, want COMPLETE", res.Status)
	}
	if res.WinnerID == nil || *res.WinnerID != "P01" {
		t.Errorf("winner = %v, want P01", res.WinnerID)
	}
	if res.Scores["P01"] != 3 || res.Scores["P02"] != 0 {
		t.Errorf("scores = %v, want P01=3 P02=0", res.Scores)
	}
	if len(res.RoundsSummary) != 3 {
		t.Fatalf("rounds summary has %d entries, want 3", len(res.RoundsSummary))
	}
	for i, rec := range res.RoundsSummary {
		if rec.Sum != 3 {
			t.Errorf("round %d sum = %d, want 3", i+1, rec.Sum)
		}
		if rec.WinnerID == nil || *rec.WinnerID != "P01" {
			t.Errorf("round %d winner = %v, want P01", i+1, rec.WinnerID)
		}
	}
	if p1.roundCount() != 3 || p2.roundCount() != 3 {
		t.Errorf("round notifications = %d/%d, want 3/3", p1.roundCount(), p2.roundCount())
	}
	if !p1.gotGameOver() || !p2.gotGameOver() {
		t.Error("both players should receive game_over")
	}
}

func TestMatch_EvenSumGoesToEven(t *testing.T) {
	// 1+1=2 every round: EVEN (P02) sweeps.
	p1 := &fakeConn{id: "P01", moveFn: func(int) int { return 1 }}
	p2 := &fakeConn{id: "P02", moveFn: func(int) int { return 1 }}

	res := runMatch(t, testConfig(3, 2), p1, p2)

	if res.WinnerID == nil || *res.WinnerID != "P02" {
		t.Errorf("winner = %v, want P02", res.WinnerID)
	}
	if res.Scores["P02"] != 3 {
		t.Errorf("P02 score = %d, want 3", res.Scores["P02"])
	}
}

func TestMatch_MoveTimeoutDefaultsAndForfeits(t *testing.T) {
	// P02 never answers inside the deadline. With threshold 1, two defaults
	// end the match by forfeit with P01 winning.
	p1 := &fakeConn{id: "P01", moveFn: func(int) int { return 2 }}
	p2 := &fakeConn{id: "P02", moveFn: func(int) int { return 1 }, moveDelay: time.Second}

	res := runMatch(t, testConfig(3, 1), p1, p2)

	if res.Status != models.MatchForfeit {
		t.Fatalf("status = %s, want FORFEIT", res.Status)
	}
	if res.WinnerID == nil || *res.WinnerID != "P01" {
		t.Errorf("winner = %v, want P01", res.WinnerID)
	}
	if len(res.RoundsSummary) != 1 {
		t.Errorf("rounds played = %d, want 1 (forfeit after second default)", len(res.RoundsSummary))
	}
}

func TestMatch_OutOfRangeMoveDefaults(t *testing.T) {
	// P01 plays 99: substituted by the default move 1. 1+1=2, EVEN wins.
	p1 := &fakeConn{id: "P01", moveFn: func(int) int { return 99 }}
	p2 := &fakeConn{id: "P02", moveFn: func(int) int { return 1 }}

	res := runMatch(t, testConfig(1, 0), p1, p2)

	if res.Status != models.MatchComplete {
		t.Fatalf("status = %s, want COMPLETE", res.Status)
	}
	rec := res.RoundsSummary[0]
	if rec.Moves["P01"] != 1 {
		t.Errorf("P01 move recorded as %d, want default 1", rec.Moves["P01"])
	}
	if rec.WinnerID == nil || *rec.WinnerID != "P02" {
		t.Errorf("round winner = %v, want P02", rec.WinnerID)
	}
}

func TestMatch_BothDefaultedRoundHasNoWinner(t *testing.T) {
	// Neither player answers. With the threshold disabled the match plays
	// out; every round is winnerless and the match is a draw.
	p1 := &fakeConn{id: "P01", moveFn: func(int) int { return 1 }, moveDelay: time.Second}
	p2 := &fakeConn{id: "P02", moveFn: func(int) int { return 1 }, moveDelay: time.Second}

	res := runMatch(t, testConfig(2, 0), p1, p2)

	if res.Status != models.MatchComplete {
		t.Fatalf("status = %s, want COMPLETE", res.Status)
	}
	if res.WinnerID != nil {
		t.Errorf("winner = %v, want draw", *res.WinnerID)
	}
	for i, rec := range res.RoundsSummary {
		if rec.WinnerID != nil {
			t.Errorf("round %d winner = %v, want none (both defaulted)", i+1, *rec.WinnerID)
		}
	}
	if res.Scores["P01"] != 0 || res.Scores["P02"] != 0 {
		t.Errorf("scores = %v, want zeros", res.Scores)
	}
}

func TestMatch_InviteDeclineForfeitsToOpponent(t *testing.T) {
	p1 := &fakeConn{id: "P01", moveFn: func(int) int { return 1 }}
	p2 := &fakeConn{id: "P02", moveFn: func(int) int { return 1 }, declineInvite: true}

	res := runMatch(t, testConfig(3, 2), p1, p2)

	if res.Status != models.MatchForfeit {
		t.Fatalf("status = %s, want FORFEIT", res.Status)
	}
	if res.WinnerID == nil || *res.WinnerID != "P01" {
		t.Errorf("winner = %v, want P01", res.WinnerID)
	}
	if len(res.RoundsSummary) != 0 {
		t.Errorf("rounds played = %d, want 0", len(res.RoundsSummary))
	}
}

func TestMatch_BothInvitesFailForfeitsWithoutWinner(t *testing.T) {
	p1 := &fakeConn{id: "P01", moveFn: func(int) int { return 1 }, declineInvite: true}
	p2 := &fakeConn{id: "P02", moveFn: func(int) int { return 1 }, inviteDelay: time.Second}

	res := runMatch(t, testConfig(3, 2), p1, p2)

	if res.Status != models.MatchForfeit {
		t.Fatalf("status = %s, want FORFEIT", res.Status)
	}
	if res.WinnerID != nil {
		t.Errorf("winner = %v, want none", *res.WinnerID)
	}
}

func TestMatch_CancelInterruptsAndNotifies(t *testing.T) {
	p1 := &fakeConn{id: "P01", moveFn: func(int) int { return 1 }, moveDelay: 5 * time.Second}
	p2 := &fakeConn{id: "P02", moveFn: func(int) int { return 1 }, moveDelay: 5 * time.Second}

	timeouts := fastTimeouts()
	timeouts.Move = 10 * time.Second
	m, err := NewMatch(models.AssignMatchParams{
		MatchID:    "R1M1",
		PlayerA:    models.PlayerRef{PlayerID: "P01"},
		PlayerB:    models.PlayerRef{PlayerID: "P02"},
		GameConfig: testConfig(3, 2),
	}, "R01", p1, p2, timeouts, nil)
	if err != nil {
		t.Fatalf("NewMatch returned %v", err)
	}

	done := make(chan models.MatchResult, 1)
	go func() { done <- m.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	m.Cancel("operator abort")

	select {
	case res := <-done:
		if res.Status != models.MatchCancelled {
			t.Fatalf("status = %s, want CANCELLED", res.Status)
		}
		if res.Reason != "operator abort" {
			t.Errorf("reason = %q, want operator abort", res.Reason)
		}
		if !p1.gotGameOver() || !p2.gotGameOver() {
			t.Error("both players should still receive game_over after cancel")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("cancelled match did not terminate")
	}
}
