package league

import (
	"context"
	"log"
	"time"

	"parity-league/internal/protocol"
	"parity-league/models"
)

// StarterConfig controls the auto-start monitor.
type StarterConfig struct {
	// MinPlayers is the threshold at which the grace period starts counting.
	MinPlayers int
	// MaxPlayers triggers an immediate start when reached.
	MaxPlayers int
	// GracePeriod is how long registration stays open after MinPlayers is
	// reached.
	GracePeriod time.Duration
	// CheckInterval is the polling cadence.
	CheckInterval time.Duration
	// AutoAdvance drives all rounds to completion after the auto start.
	AutoAdvance bool
}

func (c StarterConfig) withDefaults() StarterConfig {
	if c.MinPlayers < 2 {
		c.MinPlayers = 2
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 30 * time.Second
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 5 * time.Second
	}
	return c
}

// Starter monitors registration and starts the tournament when the start
// conditions hold: the registry is full, or the minimum field has been in
// place for the grace period. A started tournament is optionally driven to
// completion.
type Starter struct {
	cfg        StarterConfig
	controller *Controller
	stopChan   chan struct{}
	onStart    func()
}

// NewStarter builds a starter for one controller.
func NewStarter(cfg StarterConfig, controller *Controller) *Starter {
	return &Starter{
		cfg:        cfg.withDefaults(),
		controller: controller,
		stopChan:   make(chan struct{}),
	}
}

// SetOnStartCallback registers a hook invoked after a successful auto start.
func (s *Starter) SetOnStartCallback(callback func()) {
	s.onStart = callback
}

// Start runs the monitor loop until Stop or until the tournament starts.
func (s *Starter) Start(ctx context.Context) {
	log.Printf("[STARTER] monitoring registration: min %d, max %d, grace %s",
		s.cfg.MinPlayers, s.cfg.MaxPlayers, s.cfg.GracePeriod)
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	var minReachedAt time.Time
	for {
		select {
		case <-ticker.C:
			status := s.controller.Status("")
			if status.Phase != models.PhaseRegistrationOpen {
				return
			}
			if status.Players >= s.cfg.MinPlayers && minReachedAt.IsZero() {
				minReachedAt = time.Now()
				log.Printf("[STARTER] minimum field of %d reached, starting in %s",
					s.cfg.MinPlayers, s.cfg.GracePeriod)
			}
			if s.shouldStart(status, minReachedAt) {
				s.startTournament(ctx)
				return
			}
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the monitor loop.
func (s *Starter) Stop() {
	close(s.stopChan)
}

func (s *Starter) shouldStart(status models.LeagueStatus, minReachedAt time.Time) bool {
	if s.cfg.MaxPlayers > 0 && status.Players >= s.cfg.MaxPlayers {
		return true
	}
	if !minReachedAt.IsZero() && time.Since(minReachedAt) >= s.cfg.GracePeriod {
		return true
	}
	return false
}

func (s *Starter) startTournament(ctx context.Context) {
	if _, err := s.controller.StartLeague(); err != nil {
		// An operator beat the monitor to start_league; anything else is a
		// real failure worth surfacing.
		if protocol.IsKind(err, protocol.KindInvalidPhase) {
			return
		}
		log.Printf("[STARTER] auto start failed: %v", err)
		return
	}
	log.Printf("[STARTER] tournament auto-started")
	if s.onStart != nil {
		s.onStart()
	}
	if s.cfg.AutoAdvance {
		if _, err := s.controller.RunAllRounds(ctx); err != nil {
			log.Printf("[STARTER] auto advance stopped: %v", err)
		}
	}
}
