package league

import "parity-league/models"

// Match config presets selectable by name at LM startup. "default" plays a
// short best-effort match; "strict" removes a player after a single
// defaulted move; "long" is for soak runs.
var matchPresets = map[string]models.GameConfig{
	"default": {
		GameType:         models.GameTypeEvenOdd,
		MaxRounds:        3,
		ValidMoveRange:   models.MoveRange{Min: 1, Max: 5},
		DefaultMove:      1,
		ForfeitThreshold: 2,
	},
	"strict": {
		GameType:         models.GameTypeEvenOdd,
		MaxRounds:        3,
		ValidMoveRange:   models.MoveRange{Min: 1, Max: 5},
		DefaultMove:      1,
		ForfeitThreshold: 1,
	},
	"long": {
		GameType:         models.GameTypeEvenOdd,
		MaxRounds:        11,
		ValidMoveRange:   models.MoveRange{Min: 1, Max: 10},
		DefaultMove:      1,
		ForfeitThreshold: 3,
	},
}

// GetMatchPreset resolves a preset by name.
func GetMatchPreset(name string) (models.GameConfig, bool) {
	preset, exists := matchPresets[name]
	return preset, exists
}

// DefaultMatchConfig returns the standard preset.
func DefaultMatchConfig() models.GameConfig {
	return matchPresets["default"]
}

// MatchPresetNames lists the selectable presets.
func MatchPresetNames() []string {
	names := make([]string, 0, len(matchPresets))
	for name := range matchPresets {
		names = append(names, name)
	}
	return names
}
