package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parity-league/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return gormDB
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(setupTestDB(t), "T-test", "ABC123", models.GameTypeEvenOdd)
	require.NoError(t, err)
	return store
}

func winnerOf(id string) *string { return &id }

func TestNewStore_CreatesTournamentRow(t *testing.T) {
	gormDB := setupTestDB(t)
	_, err := NewStore(gormDB, "T-test", "ABC123", models.GameTypeEvenOdd)
	require.NoError(t, err)

	var record TournamentRecord
	require.NoError(t, gormDB.First(&record, "id = ?", "T-test").Error)
	assert.Equal(t, "ABC123", record.Code)
	assert.Equal(t, models.GameTypeEvenOdd, record.GameType)

	// Rebinding to the same tournament is not an error.
	_, err = NewStore(gormDB, "T-test", "ABC123", models.GameTypeEvenOdd)
	require.NoError(t, err)

	var count int64
	gormDB.Model(&TournamentRecord{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRecordMatch_PersistsAndDeduplicates(t *testing.T) {
	store := setupStore(t)

	res := models.MatchResult{
		MatchID:   "R1M1",
		RefereeID: "R01",
		WinnerID:  winnerOf("P01"),
		Scores:    map[string]int{"P01": 2, "P02": 1},
		Status:    models.MatchComplete,
		RoundsSummary: []models.RoundRecord{
			{RoundNumber: 1, Moves: map[string]int{"P01": 1, "P02": 2}, Sum: 3},
		},
	}
	require.NoError(t, store.RecordMatch(res, 1, "P01", "P02"))

	// Redelivery hits the unique key and is dropped.
	res.Status = models.MatchForfeit
	require.NoError(t, store.RecordMatch(res, 1, "P01", "P02"))

	matches, err := store.Matches()
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "R1M1", matches[0].MatchID)
	assert.Equal(t, string(models.MatchComplete), matches[0].Status)
	assert.Equal(t, 2, matches[0].ScoreA)
	assert.Equal(t, 1, matches[0].ScoreB)
	require.NotNil(t, matches[0].WinnerID)
	assert.Equal(t, "P01", *matches[0].WinnerID)
	assert.Contains(t, matches[0].RoundsJSON, `"sum":3`)
}

func TestRecordStandings_FinalClosesTournament(t *testing.T) {
	store := setupStore(t)

	entries := []models.StandingsEntry{
		{Rank: 1, PlayerID: "P01", DisplayName: "a", Wins: 1, Points: 3, GamesPlayed: 1},
		{Rank: 2, PlayerID: "P02", DisplayName: "b", Losses: 1, GamesPlayed: 1},
	}
	require.NoError(t, store.RecordStandings(1, false, entries))
	require.NoError(t, store.RecordStandings(2, true, entries))

	final, err := store.FinalStandings()
	require.NoError(t, err)
	require.Len(t, final, 2)
	assert.Equal(t, "P01", final[0].PlayerID)
	assert.Equal(t, 1, final[0].RankPosition)

	var header TournamentRecord
	require.NoError(t, store.db.First(&header, "id = ?", "T-test").Error)
	assert.Equal(t, string(models.PhaseComplete), header.Phase)
	require.NotNil(t, header.WinnerID)
	assert.Equal(t, "P01", *header.WinnerID)
	assert.NotNil(t, header.CompletedAt)
}

func TestRebuild_ReplaysToRecordedStandings(t *testing.T) {
	store := setupStore(t)

	results := []struct {
		res        models.MatchResult
		round      int
		a, b       string
	}{
		{models.MatchResult{MatchID: "R1M1", WinnerID: winnerOf("P01"), Scores: map[string]int{"P01": 2, "P02": 0}, Status: models.MatchComplete}, 1, "P01", "P02"},
		{models.MatchResult{MatchID: "R1M2", Scores: map[string]int{"P03": 1, "P04": 1}, Status: models.MatchComplete}, 1, "P03", "P04"},
		{models.MatchResult{MatchID: "R2M1", WinnerID: winnerOf("P03"), Scores: map[string]int{"P01": 0, "P03": 0}, Status: models.MatchForfeit}, 2, "P01", "P03"},
		{models.MatchResult{MatchID: "R2M2", Scores: map[string]int{"P02": 0, "P04": 0}, Status: models.MatchCancelled}, 2, "P02", "P04"},
	}
	for _, r := range results {
		require.NoError(t, store.RecordMatch(r.res, r.round, r.a, r.b))
	}

	standings, err := store.Rebuild()
	require.NoError(t, err)
	require.Len(t, standings, 4)

	byID := make(map[string]models.StandingsEntry)
	for _, e := range standings {
		byID[e.PlayerID] = e
	}
	assert.Equal(t, 3, byID["P01"].Points)
	assert.Equal(t, 1, byID["P01"].Wins)
	assert.Equal(t, 1, byID["P01"].Losses)
	assert.Equal(t, 4, byID["P03"].Points)
	assert.Equal(t, 2, byID["P03"].GamesPlayed)
	// The cancelled match counts a game for both sides without score movement.
	assert.Equal(t, 2, byID["P02"].GamesPlayed)
	assert.Equal(t, 0, byID["P02"].Points)
	assert.Equal(t, "P03", standings[0].PlayerID)
}

func TestMatches_IngestionOrder(t *testing.T) {
	store := setupStore(t)
	for _, id := range []string{"R1M2", "R1M1", "R2M1"} {
		require.NoError(t, store.RecordMatch(models.MatchResult{
			MatchID: id,
			Scores:  map[string]int{"P01": 0, "P02": 0},
			Status:  models.MatchCancelled,
		}, 1, "P01", "P02"))
	}
	matches, err := store.Matches()
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []string{"R1M2", "R1M1", "R2M1"},
		[]string{matches[0].MatchID, matches[1].MatchID, matches[2].MatchID})
}
