package league

import (
	"fmt"

	"parity-league/models"
)

// GenerateSchedule builds a round-robin schedule with the circle method:
// fix the first slot, rotate the rest one step per round. Odd player counts
// get a virtual BYE slot; BYE pairings stay in the schedule for bookkeeping
// but are never dispatched.
func GenerateSchedule(playerIDs []string) (models.Schedule, error) {
	n := len(playerIDs)
	if n < 2 {
		return models.Schedule{}, fmt.Errorf("%w: have %d, need at least 2", ErrNotEnoughPlayers, n)
	}

	slots := append([]string(nil), playerIDs...)
	if len(slots)%2 != 0 {
		slots = append(slots, models.Bye)
	}
	half := len(slots) / 2
	rounds := len(slots) - 1

	var schedule models.Schedule
	for r := 0; r < rounds; r++ {
		round := models.ScheduleRound{Index: r + 1}
		for i := 0; i < half; i++ {
			a, b := slots[i], slots[len(slots)-1-i]
			// Normalize so the lexicographically smaller id sits first;
			// makes schedules comparable regardless of rotation state.
			if b != models.Bye && (a == models.Bye || b < a) {
				a, b = b, a
			}
			round.Pairings = append(round.Pairings, models.Pairing{PlayerA: a, PlayerB: b})
		}
		schedule.Rounds = append(schedule.Rounds, round)

		// Rotate everything but the first slot.
		last := slots[len(slots)-1]
		copy(slots[2:], slots[1:len(slots)-1])
		slots[1] = last
	}
	return schedule, nil
}

// VerifySchedule asserts the round-robin invariants: every unordered pair
// of distinct players exactly once, at most one appearance per player per
// round, the right round count, no self-pairings, one bye per round for odd
// player counts. A violation is a generator bug; callers panic on it.
func VerifySchedule(schedule models.Schedule, playerIDs []string) error {
	n := len(playerIDs)
	wantRounds := n - 1
	if n%2 != 0 {
		wantRounds = n
	}
	if got := len(schedule.Rounds); got != wantRounds {
		return fmt.Errorf("schedule has %d rounds for %d players, want %d", got, n, wantRounds)
	}

	known := make(map[string]bool, n)
	for _, id := range playerIDs {
		known[id] = true
	}

	seenPairs := make(map[string]int)
	byes := make(map[string]int)
	for _, round := range schedule.Rounds {
		inRound := make(map[string]bool)
		for _, p := range round.Pairings {
			if p.PlayerA == p.PlayerB {
				return fmt.Errorf("round %d pairs %s against itself", round.Index, p.PlayerA)
			}
			for _, id := range []string{p.PlayerA, p.PlayerB} {
				if id == models.Bye {
					continue
				}
				if !known[id] {
					return fmt.Errorf("round %d includes unknown player %s", round.Index, id)
				}
				if inRound[id] {
					return fmt.Errorf("round %d schedules %s twice", round.Index, id)
				}
				inRound[id] = true
			}
			if p.HasBye() {
				byes[p.Other(models.Bye)]++
				continue
			}
			seenPairs[pairKey(p.PlayerA, p.PlayerB)]++
		}
	}

	for i, a := range playerIDs {
		for _, b := range playerIDs[i+1:] {
			if count := seenPairs[pairKey(a, b)]; count != 1 {
				return fmt.Errorf("pair (%s, %s) scheduled %d times, want 1", a, b, count)
			}
		}
	}
	if n%2 != 0 {
		for _, id := range playerIDs {
			if byes[id] != 1 {
				return fmt.Errorf("player %s has %d byes, want 1", id, byes[id])
			}
		}
	}
	return nil
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
