package strategy

import (
	"math/rand"
	"time"

	"parity-league/models"
)

// lowest always plays the smallest legal move. It is the deterministic
// baseline and the fallback for unknown strategy names.
type lowest struct{}

func (lowest) Name() string { return "lowest" }

func (lowest) ChooseMove(_ models.GameStateView, valid models.MoveRange) int {
	return valid.Min
}

func (lowest) Observe(models.RoundResultParams) {}

// highest always plays the largest legal move.
type highest struct{}

func (highest) Name() string { return "highest" }

func (highest) ChooseMove(_ models.GameStateView, valid models.MoveRange) int {
	return valid.Max
}

func (highest) Observe(models.RoundResultParams) {}

// random plays uniformly over the legal range with a per-session seed.
type random struct {
	rng *rand.Rand
}

func newRandom(string) Strategy {
	return &random{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (*random) Name() string { return "random" }

func (r *random) ChooseMove(_ models.GameStateView, valid models.MoveRange) int {
	return valid.Min + r.rng.Intn(valid.Max-valid.Min+1)
}

func (*random) Observe(models.RoundResultParams) {}

// cycle walks the legal range in order, wrapping at the top.
type cycle struct {
	next int
}

func (*cycle) Name() string { return "cycle" }

func (c *cycle) ChooseMove(_ models.GameStateView, valid models.MoveRange) int {
	span := valid.Max - valid.Min + 1
	move := valid.Min + c.next%span
	c.next++
	return move
}

func (*cycle) Observe(models.RoundResultParams) {}
