// Package strategy ships the move-selection policies a player agent can run.
// The registry is closed: strategies are selected by name at startup and an
// unknown name falls back to the deterministic baseline.
package strategy

import (
	"log"
	"sort"

	"parity-league/models"
)

// Strategy picks moves for one game session. ChooseMove must return a value
// inside valid; the session clamps anything else before it reaches the wire.
// Observe feeds resolved rounds back for adaptive policies.
type Strategy interface {
	Name() string
	ChooseMove(view models.GameStateView, valid models.MoveRange) int
	Observe(result models.RoundResultParams)
}

// Factory builds a fresh strategy instance bound to one session. selfID is
// the player's league id, so adaptive policies can tell their own moves from
// the opponent's in shared maps.
type Factory func(selfID string) Strategy

// BaselineName is the fallback strategy.
const BaselineName = "lowest"

var factories = map[string]Factory{
	"lowest":  func(string) Strategy { return lowest{} },
	"highest": func(string) Strategy { return highest{} },
	"random":  newRandom,
	"cycle":   func(string) Strategy { return &cycle{} },
	"mirror":  newMirror,
	"parity":  newParity,
}

// New resolves a strategy by name. Unknown names log once and fall back to
// the baseline.
func New(name, selfID string) Strategy {
	factory, known := factories[name]
	if !known {
		log.Printf("[STRATEGY] unknown strategy %q, falling back to %s", name, BaselineName)
		factory = factories[BaselineName]
	}
	return factory(selfID)
}

// Names lists the registered strategies, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clamp forces a move into the valid range.
func Clamp(move int, valid models.MoveRange) int {
	if move < valid.Min {
		return valid.Min
	}
	if move > valid.Max {
		return valid.Max
	}
	return move
}
