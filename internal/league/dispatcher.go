package league

import (
	"context"
	"log"
	"sort"
	"time"

	"parity-league/internal/protocol"
	"parity-league/models"
)

// RefereeClient is the dispatcher's link to one referee agent. The rpc
// package provides the production implementation; tests use fakes.
type RefereeClient interface {
	AssignMatch(ctx context.Context, params models.AssignMatchParams) (models.AssignMatchResult, error)
	CancelMatch(ctx context.Context, params models.CancelMatchParams) (models.CancelMatchResult, error)
}

// RefereeClientFactory builds a client for one registered referee.
type RefereeClientFactory func(ref models.RefereeRecord) RefereeClient

// retrySelectDelay bounds the wait after a CAPACITY_EXCEEDED race when no
// slot-freed pulse arrives.
const retrySelectDelay = 500 * time.Millisecond

// Dispatcher places matches on referees by load. Selection is
// deterministic: smallest active/capacity ratio first, ties broken by
// referee id ascending; referees at capacity are skipped.
type Dispatcher struct {
	registry  *Registry
	clientFor RefereeClientFactory

	// slotFreed is pulsed whenever result ingestion releases a referee
	// slot, waking a dispatch that found every referee full.
	slotFreed chan struct{}
}

// NewDispatcher wires a dispatcher to the registry.
func NewDispatcher(registry *Registry, clientFor RefereeClientFactory) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		clientFor: clientFor,
		slotFreed: make(chan struct{}, 1),
	}
}

// NotifySlotFreed wakes any dispatch blocked on full referees. Called by
// the controller after releasing a slot.
func (d *Dispatcher) NotifySlotFreed() {
	select {
	case d.slotFreed <- struct{}{}:
	default:
	}
}

// Dispatch assigns one match to a referee and returns the accepting
// referee's id. When every referee is at capacity it blocks until a slot
// frees or the context ends. A CAPACITY_EXCEEDED reply (lost race with a
// slot the registry thought was free) leaves the referee eligible for
// reselection once a slot frees; transport failures and declines take the
// referee out of the running for this match.
func (d *Dispatcher) Dispatch(ctx context.Context, params models.AssignMatchParams) (string, error) {
	failed := make(map[string]bool)
	for {
		ref, ok := d.selectReferee(failed)
		if !ok {
			refs := d.registry.Referees()
			if len(refs) == 0 {
				return "", protocol.NewError(protocol.KindNoRefereesAvailable, "no referees registered")
			}
			if len(failed) >= len(refs) {
				return "", protocol.Errorf(protocol.KindNoRefereesAvailable,
					"no referee accepted %s", params.MatchID)
			}
			// The remaining referees are at capacity: wait for result
			// ingestion to free a slot.
			log.Printf("[DISPATCH] %s waiting for a free referee slot", params.MatchID)
			if err := d.waitForSlot(ctx, params.MatchID); err != nil {
				return "", err
			}
			continue
		}

		res, err := d.clientFor(ref).AssignMatch(ctx, params)
		switch {
		case err != nil && protocol.IsKind(err, protocol.KindCapacityExceeded):
			log.Printf("[DISPATCH] %s rejected by %s at capacity, waiting to reselect", params.MatchID, ref.RefereeID)
			if err := d.waitForSlot(ctx, params.MatchID); err != nil {
				return "", err
			}
			continue
		case err != nil:
			log.Printf("[DISPATCH] %s assign to %s failed: %v", params.MatchID, ref.RefereeID, err)
			failed[ref.RefereeID] = true
			continue
		case !res.Accepted:
			log.Printf("[DISPATCH] %s declined by %s: %s", params.MatchID, ref.RefereeID, res.Reason)
			failed[ref.RefereeID] = true
			continue
		}

		if err := d.registry.ReserveSlot(ref.RefereeID); err != nil {
			// The referee holds the match regardless; the counter will
			// resynchronize on result ingestion.
			log.Printf("[DISPATCH] reserve slot on %s after accept: %v", ref.RefereeID, err)
		}
		log.Printf("[DISPATCH] %s assigned to %s (%s vs %s)",
			params.MatchID, ref.RefereeID, params.PlayerA.PlayerID, params.PlayerB.PlayerID)
		return ref.RefereeID, nil
	}
}

func (d *Dispatcher) waitForSlot(ctx context.Context, matchID string) error {
	select {
	case <-ctx.Done():
		return protocol.Errorf(protocol.KindTimeout, "dispatch of %s canceled", matchID)
	case <-d.slotFreed:
		return nil
	case <-time.After(retrySelectDelay):
		return nil
	}
}

// selectReferee picks the least-loaded referee with a free slot, skipping
// referees that already failed this match outright.
func (d *Dispatcher) selectReferee(failed map[string]bool) (models.RefereeRecord, bool) {
	refs := d.registry.Referees()
	candidates := refs[:0]
	for _, ref := range refs {
		if failed[ref.RefereeID] || ref.ActiveMatches >= ref.Capacity {
			continue
		}
		candidates = append(candidates, ref)
	}
	if len(candidates) == 0 {
		return models.RefereeRecord{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		li := float64(candidates[i].ActiveMatches) / float64(candidates[i].Capacity)
		lj := float64(candidates[j].ActiveMatches) / float64(candidates[j].Capacity)
		if li != lj {
			return li < lj
		}
		return candidates[i].RefereeID < candidates[j].RefereeID
	})
	return candidates[0], true
}

// CancelMatch asks a referee to abort a live match. Best effort: the LM
// attributes the outcome locally whether or not the call lands.
func (d *Dispatcher) CancelMatch(ctx context.Context, refereeID, matchID, reason string) error {
	ref, err := d.registry.RefereeByID(refereeID)
	if err != nil {
		return err
	}
	_, err = d.clientFor(ref).CancelMatch(ctx, models.CancelMatchParams{MatchID: matchID, Reason: reason})
	return err
}
