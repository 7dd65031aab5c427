// Package referee is the referee agent: a capacity-bounded match container
// behind a JSON-RPC endpoint, registered with and reporting to the League
// Manager.
package referee

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"parity-league/engine"
	"parity-league/internal/config"
	"parity-league/internal/protocol"
	"parity-league/internal/rpc"
	"parity-league/models"
)

// reportRetryDelay separates report cycles after the client has exhausted
// its own transport retries. Results are tournament-critical: the loop only
// gives up when the service stops.
const reportRetryDelay = 5 * time.Second

// Service runs the referee agent.
type Service struct {
	cfg     config.RefereeConfig
	manager *engine.Manager
	lm      *rpc.Client
	emit    func(models.Event)

	runCtx    context.Context
	cancelRun context.CancelFunc

	mu       sync.RWMutex
	lmToken  string
	reportWG sync.WaitGroup
}

// NewService wires the match container to the LM client. emit may be nil.
func NewService(cfg config.RefereeConfig, emit func(models.Event)) *Service {
	if emit == nil {
		emit = func(models.Event) {}
	}
	runCtx, cancelRun := context.WithCancel(context.Background())
	onBreaker := rpc.BreakerEvents("", emit)
	s := &Service{
		cfg:       cfg,
		emit:      emit,
		runCtx:    runCtx,
		cancelRun: cancelRun,
		lm: rpc.NewClient(rpc.ClientConfig{
			Endpoint:        cfg.LMEndpoint,
			Sender:          models.Sender(models.SenderRoleReferee, cfg.RefereeID),
			OnBreakerChange: onBreaker,
		}),
	}
	s.manager = engine.NewManager(cfg.RefereeID, cfg.Capacity, cfg.Timeouts,
		func(ref models.PlayerRef) engine.PlayerConn {
			return newPlayerConn(cfg.RefereeID, ref, onBreaker)
		},
		emit, s.onResult)
	return s
}

// Register announces the referee to the LM and stores the issued token. The
// LM presents this token back on assignments.
func (s *Service) Register(ctx context.Context) error {
	var out models.RegisterRefereeResult
	err := s.lm.Call(ctx, protocol.MethodRegisterReferee, models.RegisterRefereeParams{
		RefereeID: s.cfg.RefereeID,
		Endpoint:  s.cfg.PublicURL,
		Capacity:  s.cfg.Capacity,
	}, &out)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lmToken = out.AuthToken
	s.mu.Unlock()
	s.lm.SetAuthToken(out.AuthToken)

	log.Printf("[REFEREE] %s registered with LM, capacity %d", s.cfg.RefereeID, out.AcceptedCapacity)
	return nil
}

// Assign accepts a match from the LM and starts it in the container.
func (s *Service) Assign(params models.AssignMatchParams) (models.AssignMatchResult, error) {
	err := s.manager.Assign(s.runCtx, params)
	switch {
	case errors.Is(err, engine.ErrCapacityExceeded):
		return models.AssignMatchResult{}, protocol.Errorf(protocol.KindCapacityExceeded,
			"%s is at capacity %d", s.cfg.RefereeID, s.manager.Capacity())
	case errors.Is(err, engine.ErrManagerStopped):
		return models.AssignMatchResult{Accepted: false, Reason: "referee is shutting down"}, nil
	case err != nil:
		return models.AssignMatchResult{Accepted: false, Reason: err.Error()}, nil
	}
	return models.AssignMatchResult{Accepted: true}, nil
}

// Cancel aborts a live match.
func (s *Service) Cancel(params models.CancelMatchParams) (models.CancelMatchResult, error) {
	if err := s.manager.Cancel(params.MatchID, params.Reason); err != nil {
		return models.CancelMatchResult{}, protocol.Errorf(protocol.KindMatchNotFound,
			"unknown match %s", params.MatchID)
	}
	return models.CancelMatchResult{Cancelled: true}, nil
}

// MatchStatus answers get_match_status.
func (s *Service) MatchStatus(matchID string) (models.MatchStatusResult, error) {
	status, err := s.manager.Status(matchID)
	if err != nil {
		return models.MatchStatusResult{}, protocol.Errorf(protocol.KindMatchNotFound,
			"unknown match %s", matchID)
	}
	return status, nil
}

// LMToken returns the token the LM issued at registration, for the inbound
// auth check.
func (s *Service) LMToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lmToken
}

// onResult receives every terminal match result from the container and
// reports it to the LM until acknowledged.
func (s *Service) onResult(res models.MatchResult) {
	s.reportWG.Add(1)
	go func() {
		defer s.reportWG.Done()
		s.reportResult(res)
	}()
}

func (s *Service) reportResult(res models.MatchResult) {
	params := models.ReportMatchResultParams{
		MatchID:       res.MatchID,
		RefereeID:     res.RefereeID,
		WinnerID:      res.WinnerID,
		Scores:        res.Scores,
		RoundsSummary: res.RoundsSummary,
		Status:        res.Status,
		Reason:        res.Reason,
	}

	for {
		var out models.ReportMatchResultResult
		err := s.lm.Call(s.runCtx, protocol.MethodReportMatchResult, params, &out)
		if err == nil && out.Acknowledged {
			s.manager.Forget(res.MatchID)
			return
		}
		if err != nil && !protocol.Retryable(err) {
			// A domain rejection will not heal on redelivery.
			log.Printf("[REFEREE] LM rejected result for %s: %v", res.MatchID, err)
			return
		}
		log.Printf("[REFEREE] report of %s failed, retrying in %s: %v", res.MatchID, reportRetryDelay, err)
		select {
		case <-s.runCtx.Done():
			log.Printf("[REFEREE] giving up on reporting %s: service stopped", res.MatchID)
			return
		case <-time.After(reportRetryDelay):
		}
	}
}

// Stop cancels live matches and waits for in-flight reports to end.
func (s *Service) Stop() {
	s.manager.Stop("referee shutting down")
	s.cancelRun()
	s.reportWG.Wait()
}
