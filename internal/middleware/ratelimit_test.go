package middleware

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	config := RateLimiterConfig{
		RequestsPerSecond: 2.0,
		BurstSize:         3,
		CleanupInterval:   1 * time.Minute,
	}

	rl := NewRateLimiter(config)
	defer rl.Stop()

	clientID := "test-client-1"

	// First 3 requests should succeed (burst)
	for i := 0; i < 3; i++ {
		if !rl.Allow(clientID) {
			t.Errorf("Request %d should be allowed (within burst)", i+1)
		}
	}

	// 4th request should fail (burst exhausted)
	if rl.Allow(clientID) {
		t.Error("Request 4 should be denied (burst exhausted)")
	}

	// Wait for tokens to refill (500ms = 1 token at 2/sec)
	time.Sleep(550 * time.Millisecond)

	if !rl.Allow(clientID) {
		t.Error("Request should be allowed after token refill")
	}
}

func TestRateLimiter_DifferentClients(t *testing.T) {
	config := RateLimiterConfig{
		RequestsPerSecond: 1.0,
		BurstSize:         2,
		CleanupInterval:   1 * time.Minute,
	}

	rl := NewRateLimiter(config)
	defer rl.Stop()

	// Each client holds an independent bucket.
	client1 := "client-1"
	client2 := "client-2"

	for i := 0; i < 2; i++ {
		if !rl.Allow(client1) {
			t.Errorf("Client 1 request %d should be allowed", i+1)
		}
		if !rl.Allow(client2) {
			t.Errorf("Client 2 request %d should be allowed", i+1)
		}
	}

	if rl.Allow(client1) {
		t.Error("Client 1 should be rate limited")
	}
	if rl.Allow(client2) {
		t.Error("Client 2 should be rate limited")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	config := RateLimiterConfig{
		RequestsPerSecond: 10.0,
		BurstSize:         10,
		CleanupInterval:   100 * time.Millisecond,
	}

	rl := NewRateLimiter(config)
	defer rl.Stop()

	rl.Allow("client-1")
	rl.Allow("client-2")
	rl.Allow("client-3")

	if count := rl.LimiterCount(); count != 3 {
		t.Errorf("Expected 3 limiters, got %d", count)
	}

	// Let every entry age past the cleanup cutoff.
	time.Sleep(150 * time.Millisecond)
	rl.cleanup()

	if count := rl.LimiterCount(); count != 0 {
		t.Errorf("Expected 0 limiters after cleanup, got %d", count)
	}
}

func TestRateLimiter_PreservesActiveLimiters(t *testing.T) {
	config := RateLimiterConfig{
		RequestsPerSecond: 10.0,
		BurstSize:         10,
		CleanupInterval:   100 * time.Millisecond,
	}

	rl := NewRateLimiter(config)
	defer rl.Stop()

	rl.Allow("client-1")
	time.Sleep(60 * time.Millisecond)

	// Refresh last seen.
	rl.Allow("client-1")
	time.Sleep(60 * time.Millisecond)

	rl.cleanup()

	if count := rl.LimiterCount(); count != 1 {
		t.Errorf("Expected 1 limiter after cleanup, got %d", count)
	}
}

func TestRateLimiter_BurstRecovery(t *testing.T) {
	config := RateLimiterConfig{
		RequestsPerSecond: 10.0, // 100ms per token
		BurstSize:         5,
		CleanupInterval:   1 * time.Minute,
	}

	rl := NewRateLimiter(config)
	defer rl.Stop()

	clientID := "test-client"

	for i := 0; i < 5; i++ {
		if !rl.Allow(clientID) {
			t.Errorf("Request %d should be allowed (burst)", i+1)
		}
	}

	if rl.Allow(clientID) {
		t.Error("Should be rate limited after burst")
	}

	// Wait for partial recovery (200ms = 2 tokens)
	time.Sleep(220 * time.Millisecond)

	successCount := 0
	for i := 0; i < 3; i++ {
		if rl.Allow(clientID) {
			successCount++
		}
	}

	if successCount != 2 {
		t.Errorf("Expected 2 successful requests after partial recovery, got %d", successCount)
	}
}

func TestRateLimiter_Stop(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig)

	rl.Allow("client-1")
	rl.Allow("client-2")

	rl.Stop()

	// Cleanup stopped, but the limiter itself still answers.
	if count := rl.LimiterCount(); count != 2 {
		t.Errorf("Expected 2 limiters, got %d", count)
	}
}

func TestRateLimiter_ZeroConfigTakesDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	defer rl.Stop()

	if rl.config.RequestsPerSecond != DefaultRateLimiterConfig.RequestsPerSecond {
		t.Errorf("rate = %f, want default %f", rl.config.RequestsPerSecond, DefaultRateLimiterConfig.RequestsPerSecond)
	}
	if !rl.Allow("client-1") {
		t.Error("default config should allow the first request")
	}
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(DefaultRateLimiterConfig)
	defer rl.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.Allow("benchmark-client")
	}
}
