package league

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"parity-league/models"
)

// Tournament points per match outcome.
const (
	pointsPerWin  = 3
	pointsPerDraw = 1
)

// Board holds the standings table. Updates are serialized through the
// mutex; reads hand out sorted snapshots, never live entries. RoundIndex
// only advances when a round is fully ingested, so a reader always sees a
// consistent prefix.
type Board struct {
	mu         sync.RWMutex
	entries    map[string]*models.StandingsEntry
	order      []string
	roundIndex int
}

// NewBoard seeds the table with zeroed rows for the given players.
func NewBoard(players []models.PlayerRecord) *Board {
	b := &Board{entries: make(map[string]*models.StandingsEntry, len(players))}
	for _, p := range players {
		b.entries[p.PlayerID] = &models.StandingsEntry{
			PlayerID:    p.PlayerID,
			DisplayName: p.DisplayName,
		}
		b.order = append(b.order, p.PlayerID)
	}
	return b
}

// Apply folds one match result into the table. COMPLETE and FORFEIT results
// credit the winner (or a draw); CANCELLED is the double-forfeit case: both
// players are charged a game with no win, loss or draw. Negative scores are
// an invariant violation and panic.
func (b *Board) Apply(res models.MatchResult, playerA, playerB string) {
	for id, score := range res.Scores {
		if score < 0 {
			panic(fmt.Sprintf("standings inconsistency: negative score %d for %s in %s", score, id, res.MatchID))
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ea, eb := b.entries[playerA], b.entries[playerB]
	if ea == nil || eb == nil {
		panic(fmt.Sprintf("standings inconsistency: match %s names unknown players (%s, %s)",
			res.MatchID, playerA, playerB))
	}

	ea.GamesPlayed++
	eb.GamesPlayed++

	switch {
	case res.Status == models.MatchCancelled:
		// Double forfeit: no score movement.
	case res.WinnerID == nil:
		ea.Draws++
		eb.Draws++
	case *res.WinnerID == playerA:
		ea.Wins++
		eb.Losses++
	case *res.WinnerID == playerB:
		eb.Wins++
		ea.Losses++
	default:
		panic(fmt.Sprintf("standings inconsistency: match %s winner %s is not a participant",
			res.MatchID, *res.WinnerID))
	}

	ea.Points = pointsPerWin*ea.Wins + pointsPerDraw*ea.Draws
	eb.Points = pointsPerWin*eb.Wins + pointsPerDraw*eb.Draws

	log.Printf("[STANDINGS] applied %s: %s %dW/%dL/%dD, %s %dW/%dL/%dD",
		res.MatchID, playerA, ea.Wins, ea.Losses, ea.Draws, playerB, eb.Wins, eb.Losses, eb.Draws)
}

// SetRound marks a round as fully ingested. The transition from round R to
// R+1 is atomic with respect to Snapshot readers.
func (b *Board) SetRound(roundIndex int) {
	b.mu.Lock()
	b.roundIndex = roundIndex
	b.mu.Unlock()
}

// Snapshot returns the last fully-ingested round index and the ranked
// table: points desc, wins desc, draws desc, player id asc. The full
// tiebreak leaves no ties, so ranks are strictly sequential.
func (b *Board) Snapshot() (int, []models.StandingsEntry) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.StandingsEntry, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.entries[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].Draws != out[j].Draws {
			return out[i].Draws > out[j].Draws
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return b.roundIndex, out
}

// Leader returns the rank-1 player id, used for tournament.completed.
func (b *Board) Leader() string {
	_, standings := b.Snapshot()
	if len(standings) == 0 {
		return ""
	}
	return standings[0].PlayerID
}
