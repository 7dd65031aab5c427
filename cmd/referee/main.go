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

	"parity-league/internal/config"
	"parity-league/internal/events"
	"parity-league/internal/middleware"
	"parity-league/internal/referee"
	"parity-league/internal/rpc"
)

const registerRetryDelay = 5 * time.Second

func main() {
	cfg := config.LoadReferee()

	bus := events.NewBus()
	defer bus.Close()
	hub := events.NewHub(bus)

	svc := referee.NewService(cfg, bus.Publish)
	defer svc.Stop()

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig)
	defer limiter.Stop()

	server := rpc.NewServer(rpc.ServerConfig{
		Role:        "REFEREE",
		Auth:        referee.AuthHook(svc),
		RateLimiter: limiter,
		Debug:       cfg.Debug,
	})
	referee.MountHandlers(server, svc)
	server.Engine().GET("/ws", hub.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Handler()}
	go func() {
		log.Printf("[REFEREE] %s serving on %s, capacity %d", cfg.RefereeID, cfg.ListenAddr, cfg.Capacity)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[REFEREE] server failed: %v", err)
		}
	}()

	// Registration is retried until the LM comes up.
	go func() {
		for {
			err := svc.Register(ctx)
			if err == nil {
				return
			}
			log.Printf("[REFEREE] registration failed, retrying in %s: %v", registerRetryDelay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(registerRetryDelay):
			}
		}
	}()

	<-ctx.Done()
	log.Println("[REFEREE] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[REFEREE] shutdown: %v", err)
	}
}
