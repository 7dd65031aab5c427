package history

import (
	"parity-league/internal/league"
	"parity-league/models"
)

// Rebuild replays the stored match results into a fresh standings table.
// The replayed table must equal the recorded one: standings are a pure
// function of the ingested results.
func (s *Store) Rebuild() ([]models.StandingsEntry, error) {
	matches, err := s.Matches()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var players []models.PlayerRecord
	addPlayer := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		players = append(players, models.PlayerRecord{PlayerID: id})
	}
	for _, m := range matches {
		addPlayer(m.PlayerA)
		addPlayer(m.PlayerB)
	}

	board := league.NewBoard(players)
	lastRound := 0
	for _, m := range matches {
		board.Apply(models.MatchResult{
			MatchID:  m.MatchID,
			WinnerID: m.WinnerID,
			Scores: map[string]int{
				m.PlayerA: m.ScoreA,
				m.PlayerB: m.ScoreB,
			},
			Status: models.MatchStatus(m.Status),
		}, m.PlayerA, m.PlayerB)
		if m.RoundIndex > lastRound {
			lastRound = m.RoundIndex
		}
	}
	board.SetRound(lastRound)

	_, standings := board.Snapshot()
	return standings, nil
}
