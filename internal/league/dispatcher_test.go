package league

import (
	"context"
	"sync"
	"testing"
	"time"

	"parity-league/internal/auth"
	"parity-league/internal/protocol"
	"parity-league/models"
)

// fakeRefClient scripts one referee's replies to assignments.
type fakeRefClient struct {
	id string

	mu      sync.Mutex
	replies []func() (models.AssignMatchResult, error)
	assigns int
}

func (f *fakeRefClient) AssignMatch(ctx context.Context, params models.AssignMatchParams) (models.AssignMatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigns++
	if len(f.replies) == 0 {
		return models.AssignMatchResult{Accepted: true}, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply()
}

func (f *fakeRefClient) CancelMatch(ctx context.Context, params models.CancelMatchParams) (models.CancelMatchResult, error) {
	return models.CancelMatchResult{Cancelled: true}, nil
}

func (f *fakeRefClient) assignCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assigns
}

func accept() (models.AssignMatchResult, error) {
	return models.AssignMatchResult{Accepted: true}, nil
}

func atCapacity() (models.AssignMatchResult, error) {
	return models.AssignMatchResult{}, protocol.NewError(protocol.KindCapacityExceeded, "full")
}

func unreachable() (models.AssignMatchResult, error) {
	return models.AssignMatchResult{}, protocol.NewError(protocol.KindConnectionRefused, "connection failed")
}

func decline() (models.AssignMatchResult, error) {
	return models.AssignMatchResult{Accepted: false, Reason: "maintenance"}, nil
}

func dispatcherFixture(t *testing.T, referees map[string]int) (*Dispatcher, *Registry, map[string]*fakeRefClient) {
	t.Helper()
	registry := NewRegistry(models.GameTypeEvenOdd, 8, auth.NewService("test-secret"))
	clients := make(map[string]*fakeRefClient)
	for id, capacity := range referees {
		if _, err := registry.RegisterReferee(models.RegisterRefereeParams{
			RefereeID: id,
			Endpoint:  "http://localhost:9000/mcp",
			Capacity:  capacity,
		}); err != nil {
			t.Fatalf("register %s returned %v", id, err)
		}
		clients[id] = &fakeRefClient{id: id}
	}
	d := NewDispatcher(registry, func(ref models.RefereeRecord) RefereeClient {
		return clients[ref.RefereeID]
	})
	return d, registry, clients
}

func dispatchMatch(t *testing.T, d *Dispatcher, matchID string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return d.Dispatch(ctx, models.AssignMatchParams{
		MatchID: matchID,
		PlayerA: models.PlayerRef{PlayerID: "P01"},
		PlayerB: models.PlayerRef{PlayerID: "P02"},
	})
}

func TestDispatcher_PicksLeastLoaded(t *testing.T) {
	d, registry, clients := dispatcherFixture(t, map[string]int{"R01": 2, "R02": 2})
	if err := registry.ReserveSlot("R01"); err != nil {
		t.Fatalf("seed load on R01: %v", err)
	}

	got, err := dispatchMatch(t, d, "R1M1")
	if err != nil {
		t.Fatalf("dispatch returned %v", err)
	}
	if got != "R02" {
		t.Errorf("dispatched to %s, want least-loaded R02", got)
	}
	if clients["R01"].assignCount() != 0 {
		t.Errorf("R01 was called %d times, want 0", clients["R01"].assignCount())
	}
}

func TestDispatcher_TieBreaksByRefereeID(t *testing.T) {
	d, _, _ := dispatcherFixture(t, map[string]int{"R02": 2, "R01": 2})

	got, err := dispatchMatch(t, d, "R1M1")
	if err != nil {
		t.Fatalf("dispatch returned %v", err)
	}
	if got != "R01" {
		t.Errorf("dispatched to %s, want R01 on the id tiebreak", got)
	}
}

func TestDispatcher_TransportFailureExcludesReferee(t *testing.T) {
	d, _, clients := dispatcherFixture(t, map[string]int{"R01": 2, "R02": 2})
	clients["R01"].replies = []func() (models.AssignMatchResult, error){unreachable}

	got, err := dispatchMatch(t, d, "R1M1")
	if err != nil {
		t.Fatalf("dispatch returned %v", err)
	}
	if got != "R02" {
		t.Errorf("dispatched to %s, want fallback R02", got)
	}
}

func TestDispatcher_DeclineExcludesReferee(t *testing.T) {
	d, _, clients := dispatcherFixture(t, map[string]int{"R01": 2, "R02": 2})
	clients["R01"].replies = []func() (models.AssignMatchResult, error){decline}

	got, err := dispatchMatch(t, d, "R1M1")
	if err != nil {
		t.Fatalf("dispatch returned %v", err)
	}
	if got != "R02" {
		t.Errorf("dispatched to %s, want fallback R02", got)
	}
}

func TestDispatcher_AllRefereesFail(t *testing.T) {
	d, _, clients := dispatcherFixture(t, map[string]int{"R01": 2, "R02": 2})
	clients["R01"].replies = []func() (models.AssignMatchResult, error){unreachable}
	clients["R02"].replies = []func() (models.AssignMatchResult, error){decline}

	_, err := dispatchMatch(t, d, "R1M1")
	if !protocol.IsKind(err, protocol.KindNoRefereesAvailable) {
		t.Fatalf("dispatch = %v, want NO_REFEREES_AVAILABLE", err)
	}
}

func TestDispatcher_NoRefereesRegistered(t *testing.T) {
	d, _, _ := dispatcherFixture(t, nil)

	_, err := dispatchMatch(t, d, "R1M1")
	if !protocol.IsKind(err, protocol.KindNoRefereesAvailable) {
		t.Fatalf("dispatch = %v, want NO_REFEREES_AVAILABLE", err)
	}
}

func TestDispatcher_CapacityRaceStaysEligible(t *testing.T) {
	// R01 first answers CAPACITY_EXCEEDED (a lost race), then accepts once
	// a slot frees. It must not be excluded from reselection.
	d, registry, clients := dispatcherFixture(t, map[string]int{"R01": 1})
	clients["R01"].replies = []func() (models.AssignMatchResult, error){atCapacity, accept}

	go func() {
		time.Sleep(50 * time.Millisecond)
		d.NotifySlotFreed()
	}()

	got, err := dispatchMatch(t, d, "R1M1")
	if err != nil {
		t.Fatalf("dispatch returned %v", err)
	}
	if got != "R01" {
		t.Errorf("dispatched to %s, want R01 after the slot freed", got)
	}
	if clients["R01"].assignCount() != 2 {
		t.Errorf("R01 called %d times, want 2", clients["R01"].assignCount())
	}
	_ = registry
}

func TestDispatcher_BlocksUntilSlotFrees(t *testing.T) {
	d, registry, _ := dispatcherFixture(t, map[string]int{"R01": 1})
	if err := registry.ReserveSlot("R01"); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	started := time.Now()
	go func() {
		time.Sleep(100 * time.Millisecond)
		registry.ReleaseSlot("R01")
		d.NotifySlotFreed()
	}()

	got, err := dispatchMatch(t, d, "R2M1")
	if err != nil {
		t.Fatalf("dispatch returned %v", err)
	}
	if got != "R01" {
		t.Errorf("dispatched to %s, want R01", got)
	}
	if elapsed := time.Since(started); elapsed < 90*time.Millisecond {
		t.Errorf("dispatch returned after %s, should have waited for the freed slot", elapsed)
	}
}

func TestDispatcher_ContextEndsWaitingDispatch(t *testing.T) {
	d, registry, _ := dispatcherFixture(t, map[string]int{"R01": 1})
	if err := registry.ReserveSlot("R01"); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := d.Dispatch(ctx, models.AssignMatchParams{MatchID: "R1M1"})
	if !protocol.IsKind(err, protocol.KindTimeout) {
		t.Fatalf("dispatch = %v, want TIMEOUT", err)
	}
}
