package league

import (
	"log"
	"sync"
	"time"

	"parity-league/models"
)

const resultRetention = 30 * time.Minute

// ResultLog is the idempotency guard for report_match_result: the first
// delivery for a match id is applied, every redelivery is acknowledged
// without touching standings. Entries age out after the retention window
// since a referee only retries within its backoff schedule.
type ResultLog struct {
	mu          sync.RWMutex
	processed   map[string]processedResult
	cleanupTick time.Duration
	stopCleanup chan struct{}
}

type processedResult struct {
	result    models.MatchResult
	appliedAt time.Time
}

// NewResultLog starts the log with its background cleanup loop.
func NewResultLog() *ResultLog {
	rl := &ResultLog{
		processed:   make(map[string]processedResult),
		cleanupTick: 5 * time.Minute,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// MarkApplied records the first delivery for a match id. It returns false
// when the id was already applied, leaving the original entry untouched.
func (rl *ResultLog) MarkApplied(res models.MatchResult) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, dup := rl.processed[res.MatchID]; dup {
		return false
	}
	rl.processed[res.MatchID] = processedResult{result: res, appliedAt: time.Now()}
	return true
}

// Get returns the applied result for a match id, if any.
func (rl *ResultLog) Get(matchID string) (models.MatchResult, bool) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	entry, exists := rl.processed[matchID]
	return entry.result, exists
}

// Count returns the number of retained entries, for status reporting.
func (rl *ResultLog) Count() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.processed)
}

// Cleanup drops entries older than the retention period and reports how
// many were removed.
func (rl *ResultLog) Cleanup(retention time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	removed := 0
	for id, entry := range rl.processed {
		if entry.appliedAt.Before(cutoff) {
			delete(rl.processed, id)
			removed++
		}
	}
	return removed
}

func (rl *ResultLog) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := rl.Cleanup(resultRetention); removed > 0 {
				log.Printf("[RESULTS] cleaned up %d aged result entries", removed)
			}
		case <-rl.stopCleanup:
			return
		}
	}
}

// Stop halts the cleanup goroutine.
func (rl *ResultLog) Stop() {
	close(rl.stopCleanup)
}
