// Package history persists terminal match results and per-round standings
// snapshots. The in-memory controller stays authoritative; the store is an
// audit trail a standings table can be rebuilt from.
package history

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parity-league/models"
)

// Store records one tournament's history.
type Store struct {
	db           *gorm.DB
	tournamentID string
}

// NewStore binds a store to a tournament and creates its header row. On
// SQLite the schema is created in place; MySQL schemas come from the SQL
// migrations.
func NewStore(db *gorm.DB, tournamentID, code, gameType string) (*Store, error) {
	if db.Dialector.Name() == "sqlite" {
		if err := db.AutoMigrate(&TournamentRecord{}, &MatchRecord{}, &StandingsRecord{}); err != nil {
			return nil, fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}

	record := TournamentRecord{
		ID:       tournamentID,
		Code:     code,
		GameType: gameType,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create tournament row: %w", err)
	}

	return &Store{db: db, tournamentID: tournamentID}, nil
}

// RecordMatch persists one terminal match result. A redelivered result hits
// the unique (tournament_id, match_id) key and is dropped silently, matching
// the controller's idempotent ingestion.
func (s *Store) RecordMatch(res models.MatchResult, roundIndex int, playerA, playerB string) error {
	roundsJSON := ""
	if len(res.RoundsSummary) > 0 {
		raw, err := json.Marshal(res.RoundsSummary)
		if err != nil {
			log.Printf("[HISTORY] encode rounds for %s: %v", res.MatchID, err)
		} else {
			roundsJSON = string(raw)
		}
	}

	record := MatchRecord{
		TournamentID: s.tournamentID,
		MatchID:      res.MatchID,
		RoundIndex:   roundIndex,
		PlayerA:      playerA,
		PlayerB:      playerB,
		RefereeID:    res.RefereeID,
		WinnerID:     res.WinnerID,
		ScoreA:       res.Scores[playerA],
		ScoreB:       res.Scores[playerB],
		Status:       string(res.Status),
		Reason:       res.Reason,
		RoundsJSON:   roundsJSON,
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}

// RecordStandings persists the post-round table. The final snapshot also
// closes out the tournament header.
func (s *Store) RecordStandings(roundIndex int, final bool, entries []models.StandingsEntry) error {
	records := make([]StandingsRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, StandingsRecord{
			TournamentID: s.tournamentID,
			RoundIndex:   roundIndex,
			PlayerID:     e.PlayerID,
			DisplayName:  e.DisplayName,
			Wins:         e.Wins,
			Losses:       e.Losses,
			Draws:        e.Draws,
			Points:       e.Points,
			GamesPlayed:  e.GamesPlayed,
			RankPosition: e.Rank,
			Final:        final,
		})
	}
	if len(records) > 0 {
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error; err != nil {
			return err
		}
	}

	if final {
		updates := map[string]interface{}{
			"phase":        string(models.PhaseComplete),
			"total_rounds": roundIndex,
			"completed_at": time.Now().UTC(),
		}
		if len(entries) > 0 {
			updates["winner_id"] = entries[0].PlayerID
			updates["players"] = len(entries)
		}
		return s.db.Model(&TournamentRecord{}).Where("id = ?", s.tournamentID).Updates(updates).Error
	}
	return nil
}

// Matches returns the stored match results in ingestion order.
func (s *Store) Matches() ([]MatchRecord, error) {
	var records []MatchRecord
	err := s.db.Where("tournament_id = ?", s.tournamentID).
		Order("id asc").Find(&records).Error
	return records, err
}

// FinalStandings returns the stored post-tournament table, ranked.
func (s *Store) FinalStandings() ([]StandingsRecord, error) {
	var records []StandingsRecord
	err := s.db.Where("tournament_id = ? AND final = ?", s.tournamentID, true).
		Order("rank_position asc").Find(&records).Error
	return records, err
}
