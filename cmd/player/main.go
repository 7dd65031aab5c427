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
	"parity-league/internal/middleware"
	"parity-league/internal/player"
	"parity-league/internal/rpc"
	"parity-league/internal/strategy"
)

const registerRetryDelay = 5 * time.Second

func main() {
	cfg := config.LoadPlayer()

	svc := player.NewService(cfg)

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig)
	defer limiter.Stop()

	server := rpc.NewServer(rpc.ServerConfig{
		Role:        "PLAYER",
		Auth:        player.AuthHook(svc),
		RateLimiter: limiter,
		Debug:       cfg.Debug,
	})
	player.MountHandlers(server, svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Handler()}
	go func() {
		log.Printf("[PLAYER] %s serving on %s, strategy %s (have %v)",
			cfg.DisplayName, cfg.ListenAddr, cfg.Strategy, strategy.Names())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[PLAYER] server failed: %v", err)
		}
	}()

	go func() {
		for {
			err := svc.Register(ctx)
			if err == nil {
				return
			}
			log.Printf("[PLAYER] registration failed, retrying in %s: %v", registerRetryDelay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(registerRetryDelay):
			}
		}
	}()

	<-ctx.Done()
	log.Println("[PLAYER] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[PLAYER] shutdown: %v", err)
	}
}
