package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"parity-league/models"
)

// ConnFactory builds the referee's link to one player from the dispatch-time
// reference the LM hands over.
type ConnFactory func(ref models.PlayerRef) PlayerConn

// Manager is the capacity-bounded match container a referee runs. Each match
// owns its own state machine; the manager only tracks the shared slot count
// and fans terminal results out to the owner.
type Manager struct {
	refereeID string
	capacity  int
	timeouts  Timeouts
	connFor   ConnFactory
	emit      func(models.Event)
	onResult  func(models.MatchResult)

	mu      sync.RWMutex
	matches map[string]*Match
	active  int
	stopped bool
	wg      sync.WaitGroup
}

// NewManager builds an empty container. onResult receives every terminal
// match result exactly once, off the match goroutine.
func NewManager(refereeID string, capacity int, timeouts Timeouts, connFor ConnFactory, emit func(models.Event), onResult func(models.MatchResult)) *Manager {
	if capacity <= 0 {
		capacity = 1
	}
	return &Manager{
		refereeID: refereeID,
		capacity:  capacity,
		timeouts:  timeouts,
		connFor:   connFor,
		emit:      emit,
		onResult:  onResult,
		matches:   make(map[string]*Match),
	}
}

// Capacity returns the configured slot count.
func (mg *Manager) Capacity() int {
	return mg.capacity
}

// ActiveCount returns the number of matches currently holding a slot.
func (mg *Manager) ActiveCount() int {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return mg.active
}

// Assign accepts a match assignment and starts its state machine. The slot
// is taken before the goroutine starts and released when the match reports,
// so ActiveCount never overshoots Capacity.
func (mg *Manager) Assign(ctx context.Context, params models.AssignMatchParams) error {
	mg.mu.Lock()
	if mg.stopped {
		mg.mu.Unlock()
		return ErrManagerStopped
	}
	if _, exists := mg.matches[params.MatchID]; exists {
		mg.mu.Unlock()
		return fmt.Errorf("match %s already assigned", params.MatchID)
	}
	if mg.active >= mg.capacity {
		mg.mu.Unlock()
		return fmt.Errorf("%w: %d/%d slots in use", ErrCapacityExceeded, mg.active, mg.capacity)
	}

	match, err := NewMatch(params, mg.refereeID,
		mg.connFor(params.PlayerA), mg.connFor(params.PlayerB), mg.timeouts, mg.emit)
	if err != nil {
		mg.mu.Unlock()
		return err
	}

	mg.matches[params.MatchID] = match
	mg.active++
	slots := mg.active
	mg.mu.Unlock()

	log.Printf("[MANAGER] %s accepted %s (%s vs %s), %d/%d slots",
		mg.refereeID, params.MatchID, params.PlayerA.PlayerID, params.PlayerB.PlayerID, slots, mg.capacity)

	mg.wg.Add(1)
	go func() {
		defer mg.wg.Done()
		res := match.Run(ctx)

		mg.mu.Lock()
		mg.active--
		mg.mu.Unlock()

		if mg.onResult != nil {
			mg.onResult(res)
		}
	}()
	return nil
}

// Cancel aborts a live match. Terminal matches are left untouched.
func (mg *Manager) Cancel(matchID, reason string) error {
	mg.mu.RLock()
	match, exists := mg.matches[matchID]
	mg.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownMatch, matchID)
	}
	match.Cancel(reason)
	return nil
}

// Status answers get_match_status for one assigned match.
func (mg *Manager) Status(matchID string) (models.MatchStatusResult, error) {
	mg.mu.RLock()
	match, exists := mg.matches[matchID]
	mg.mu.RUnlock()
	if !exists {
		return models.MatchStatusResult{}, fmt.Errorf("%w: %s", ErrUnknownMatch, matchID)
	}
	return match.Status(), nil
}

// Forget drops a terminal match from the index. Live matches are kept so
// late cancel and status calls still resolve.
func (mg *Manager) Forget(matchID string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	if match, exists := mg.matches[matchID]; exists && match.Result() != nil {
		delete(mg.matches, matchID)
	}
}

// Stop refuses new assignments, cancels live matches and waits for their
// goroutines to drain.
func (mg *Manager) Stop(reason string) {
	mg.mu.Lock()
	mg.stopped = true
	live := make([]*Match, 0, len(mg.matches))
	for _, match := range mg.matches {
		live = append(live, match)
	}
	mg.mu.Unlock()

	for _, match := range live {
		match.Cancel(reason)
	}
	mg.wg.Wait()
}
