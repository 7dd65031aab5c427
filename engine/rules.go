package engine

import (
	"fmt"

	"parity-league/models"
)

// Even/odd rules. Each round both players pick an integer inside the valid
// range; the round goes to EVEN when the sum is even, to ODD when it is odd.

const (
	defaultMaxRounds = 3
	defaultRangeMin  = 1
	defaultRangeMax  = 5
)

// AssignRoles maps two player ids onto roles deterministically: the
// lexicographically smaller id plays ODD. Both referees and players can
// derive the same assignment without coordination.
func AssignRoles(a, b string) (oddID, evenID string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Adjudicate resolves one round from the two moves.
func Adjudicate(oddMove, evenMove int) (winner models.Role, sum int) {
	sum = oddMove + evenMove
	if sum%2 == 0 {
		return models.RoleEven, sum
	}
	return models.RoleOdd, sum
}

// ValidateMove checks a move against the configured range.
func ValidateMove(move int, r models.MoveRange) error {
	if !r.Contains(move) {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidMove, move, r.Min, r.Max)
	}
	return nil
}

// NormalizeConfig fills zero-valued fields with defaults and rejects
// configs that cannot produce a playable match. The default move falls back
// to the range minimum when unset or out of range.
func NormalizeConfig(cfg models.GameConfig) (models.GameConfig, error) {
	if cfg.GameType == "" {
		cfg.GameType = models.GameTypeEvenOdd
	}
	if cfg.GameType != models.GameTypeEvenOdd {
		return cfg, fmt.Errorf("%w: unsupported game type %q", ErrInvalidConfig, cfg.GameType)
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if cfg.ValidMoveRange.Min == 0 && cfg.ValidMoveRange.Max == 0 {
		cfg.ValidMoveRange = models.MoveRange{Min: defaultRangeMin, Max: defaultRangeMax}
	}
	if cfg.ValidMoveRange.Min < 0 || cfg.ValidMoveRange.Max < cfg.ValidMoveRange.Min {
		return cfg, fmt.Errorf("%w: bad move range [%d, %d]", ErrInvalidConfig, cfg.ValidMoveRange.Min, cfg.ValidMoveRange.Max)
	}
	if !cfg.ValidMoveRange.Contains(cfg.DefaultMove) {
		cfg.DefaultMove = cfg.ValidMoveRange.Min
	}
	return cfg, nil
}
