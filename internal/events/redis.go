package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"parity-league/models"
)

// Mirror republishes bus events on a Redis pub/sub channel so external
// dashboards can subscribe without touching the LM process.
type Mirror struct {
	client  *redis.Client
	channel string
}

// MirrorConfig parameterizes the Redis connection.
type MirrorConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// NewMirror connects to Redis and attaches the mirror to the bus.
func NewMirror(cfg MirrorConfig, bus *Bus) (*Mirror, error) {
	log.Printf("[REDIS] connecting to %s...", cfg.Addr)

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Printf("[REDIS] connected to %s", cfg.Addr)

	if cfg.Channel == "" {
		cfg.Channel = "league_events"
	}
	m := &Mirror{client: client, channel: cfg.Channel}
	bus.Subscribe(m.publish)
	return m, nil
}

func (m *Mirror) publish(event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[REDIS] encode %s failed: %v", event.Kind, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.client.Publish(ctx, m.channel, data).Err(); err != nil {
		log.Printf("[REDIS] publish %s failed: %v", event.Kind, err)
	}
}

// Close tears the Redis connection down.
func (m *Mirror) Close() error {
	log.Println("[REDIS] closing connection")
	return m.client.Close()
}

// HealthCheck pings the Redis server.
func (m *Mirror) HealthCheck(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}
