package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"parity-league/internal/auth"
	"parity-league/internal/config"
	"parity-league/internal/db"
	"parity-league/internal/events"
	"parity-league/internal/history"
	"parity-league/internal/league"
	"parity-league/internal/middleware"
	"parity-league/internal/rpc"
	"parity-league/models"
)

const lmID = "LM01"

func main() {
	cfg := config.LoadLM()

	matchCfg, known := league.GetMatchPreset(cfg.Preset)
	if !known {
		log.Printf("[LM] unknown match preset %q, using default (have %v)", cfg.Preset, league.MatchPresetNames())
		matchCfg = league.DefaultMatchConfig()
	}

	tokens := auth.NewService(cfg.JWTSecret)
	tournamentID := "T-" + auth.GenerateID()[:12]
	code := auth.GenerateID()[:6]

	bus := events.NewBus()
	defer bus.Close()
	hub := events.NewHub(bus)

	if cfg.Redis.Enabled() {
		mirror, err := events.NewMirror(events.MirrorConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, bus)
		if err != nil {
			log.Printf("[LM] redis mirror disabled: %v", err)
		} else {
			defer mirror.Close()
		}
	}

	var recorder league.Recorder
	if cfg.DB.Enabled() {
		database, err := db.New(cfg.DB)
		if err != nil {
			log.Fatalf("[LM] open history database: %v", err)
		}
		store, err := history.NewStore(database.DB, tournamentID, code, cfg.GameType)
		if err != nil {
			log.Fatalf("[LM] open history store: %v", err)
		}
		recorder = store
	}

	registry := league.NewRegistry(cfg.GameType, cfg.MaxPlayers, tokens)
	dispatcher := league.NewDispatcher(registry,
		league.NewRefereeClientFactory(models.Sender(models.SenderRoleLM, lmID), tournamentID, bus.Publish))
	controller := league.NewController(league.ControllerConfig{
		TournamentID: tournamentID,
		Code:         code,
		GameType:     cfg.GameType,
		MaxPlayers:   cfg.MaxPlayers,
		MatchConfig:  matchCfg,
		RoundDelay:   cfg.RoundDelay,
	}, registry, dispatcher, bus.Publish, recorder)
	defer controller.Stop()

	operatorKeyHash := ""
	if cfg.OperatorKey != "" {
		hash, err := tokens.HashOperatorKey(cfg.OperatorKey)
		if err != nil {
			log.Fatalf("[LM] hash operator key: %v", err)
		}
		operatorKeyHash = hash
	}

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig)
	defer limiter.Stop()

	server := rpc.NewServer(rpc.ServerConfig{
		Role:        "LM",
		Auth:        league.AuthHook(registry, tokens, operatorKeyHash),
		RateLimiter: limiter,
		Debug:       cfg.Debug,
	})
	league.MountHandlers(server, controller)
	server.Engine().GET("/ws", hub.Handler())

	// Read-only REST mirrors of the standings and status tools, for
	// dashboards that do not speak JSON-RPC.
	server.Engine().GET("/api/standings", func(c *gin.Context) {
		standings, err := controller.GetStandings()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, standings)
	})
	server.Engine().GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, controller.Status(""))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoStart {
		starter := league.NewStarter(league.StarterConfig{
			MinPlayers:  2,
			MaxPlayers:  cfg.MaxPlayers,
			GracePeriod: cfg.AutoStartAfter,
			AutoAdvance: cfg.AutoAdvance,
		}, controller)
		go starter.Start(ctx)
		defer starter.Stop()
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Handler()}
	go func() {
		log.Printf("[LM] %s serving tournament %s on %s (preset %s)", lmID, tournamentID, cfg.ListenAddr, cfg.Preset)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[LM] server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[LM] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[LM] shutdown: %v", err)
	}
}
