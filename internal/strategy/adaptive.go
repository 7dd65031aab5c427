package strategy

import (
	"parity-league/models"
)

// mirror replays the opponent's previous move, starting from the bottom of
// the range when no history exists yet.
type mirror struct {
	selfID   string
	lastSeen int
	primed   bool
}

func newMirror(selfID string) Strategy {
	return &mirror{selfID: selfID}
}

func (*mirror) Name() string { return "mirror" }

func (m *mirror) ChooseMove(view models.GameStateView, valid models.MoveRange) int {
	if !m.primed {
		return valid.Min
	}
	return Clamp(m.lastSeen, valid)
}

func (m *mirror) Observe(result models.RoundResultParams) {
	for id, move := range result.Moves {
		if id != m.selfID {
			m.lastSeen = move
			m.primed = true
		}
	}
}

// parity predicts the opponent's next move as the mode of their observed
// moves and then picks the smallest legal move that makes the sum's parity
// favor its own role. With no history it assumes the opponent plays low.
type parity struct {
	selfID string
	counts map[int]int
}

func newParity(selfID string) Strategy {
	return &parity{selfID: selfID, counts: make(map[int]int)}
}

func (*parity) Name() string { return "parity" }

func (p *parity) ChooseMove(view models.GameStateView, valid models.MoveRange) int {
	predicted := valid.Min
	best := 0
	for move, count := range p.counts {
		if count > best || (count == best && move < predicted) {
			predicted = move
			best = count
		}
	}

	wantEven := view.YourRole == string(models.RoleEven)
	for move := valid.Min; move <= valid.Max; move++ {
		sumIsEven := (predicted+move)%2 == 0
		if sumIsEven == wantEven {
			return move
		}
	}
	// A single-value range can make the target parity unreachable.
	return valid.Min
}

func (p *parity) Observe(result models.RoundResultParams) {
	for id, move := range result.Moves {
		if id != p.selfID {
			p.counts[move]++
		}
	}
}
