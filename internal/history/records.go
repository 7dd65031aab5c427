package history

import "time"

// TournamentRecord is one tournament's header row.
type TournamentRecord struct {
	ID          string     `gorm:"primaryKey;size:64"`
	Code        string     `gorm:"size:64"`
	GameType    string     `gorm:"size:32;not null"`
	Phase       string     `gorm:"size:32;not null;default:REGISTRATION_OPEN"`
	Players     int        `gorm:"not null;default:0"`
	TotalRounds int        `gorm:"not null;default:0"`
	WinnerID    *string    `gorm:"size:16"`
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func (TournamentRecord) TableName() string {
	return "tournaments"
}

// MatchRecord is one terminal match result. RoundsJSON carries the per-round
// summary as serialized JSON; the replayable facts live in the typed columns.
type MatchRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	TournamentID string    `gorm:"size:64;not null;uniqueIndex:uniq_tournament_match"`
	MatchID      string    `gorm:"size:32;not null;uniqueIndex:uniq_tournament_match"`
	RoundIndex   int       `gorm:"not null;index:idx_matches_tournament_round"`
	PlayerA      string    `gorm:"size:16;not null"`
	PlayerB      string    `gorm:"size:16;not null"`
	RefereeID    string    `gorm:"size:64"`
	WinnerID     *string   `gorm:"size:16"`
	ScoreA       int       `gorm:"not null;default:0"`
	ScoreB       int       `gorm:"not null;default:0"`
	Status       string    `gorm:"size:16;not null"`
	Reason       string    `gorm:"size:255"`
	RoundsJSON   string    `gorm:"type:text"`
	CreatedAt    time.Time
}

func (MatchRecord) TableName() string {
	return "matches"
}

// StandingsRecord is one player's row in the table after a given round.
// Final marks the post-tournament snapshot.
type StandingsRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	TournamentID string    `gorm:"size:64;not null;uniqueIndex:uniq_standings_row"`
	RoundIndex   int       `gorm:"not null;uniqueIndex:uniq_standings_row"`
	PlayerID     string    `gorm:"size:16;not null;uniqueIndex:uniq_standings_row"`
	DisplayName  string    `gorm:"size:128"`
	Wins         int       `gorm:"not null;default:0"`
	Losses       int       `gorm:"not null;default:0"`
	Draws        int       `gorm:"not null;default:0"`
	Points       int       `gorm:"not null;default:0"`
	GamesPlayed  int       `gorm:"not null;default:0"`
	RankPosition int       `gorm:"not null;default:0"`
	Final        bool      `gorm:"not null;default:false;index:idx_standings_tournament_final"`
	CreatedAt    time.Time
}

func (StandingsRecord) TableName() string {
	return "standings"
}
