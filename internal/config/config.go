// Package config loads per-binary configuration from the environment, with
// an optional .env file for local runs.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"parity-league/engine"
	"parity-league/models"
)

// Load reads the .env file if present. Missing files are fine; the
// environment always wins.
func Load() {
	godotenv.Load()
}

// GetEnv returns an environment variable value or a fallback.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvInt parses an integer variable, falling back on absence or junk.
func GetEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[CONFIG] %s=%q is not an integer, using %d", key, value, fallback)
		return fallback
	}
	return n
}

// GetEnvBool parses a boolean variable.
func GetEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[CONFIG] %s=%q is not a boolean, using %v", key, value, fallback)
		return fallback
	}
	return b
}

// GetEnvDuration parses a duration variable ("30s", "2m").
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[CONFIG] %s=%q is not a duration, using %s", key, value, fallback)
		return fallback
	}
	return d
}

// DBConfig selects and parameterizes the optional history store. Driver
// "mysql" uses the host/port/user fields plus SQL migrations; "sqlite" opens
// the path in SQLitePath. An empty driver disables persistence.
type DBConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// Enabled reports whether a history store should be opened.
func (c DBConfig) Enabled() bool {
	return c.Driver != ""
}

// RedisConfig parameterizes the optional event mirror.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Enabled reports whether events should be mirrored to Redis.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// LMConfig is the League Manager binary configuration.
type LMConfig struct {
	ListenAddr      string
	PublicURL       string
	GameType        string
	MaxPlayers      int
	MatchConfig     models.GameConfig
	Preset          string
	AutoStart       bool
	AutoStartAfter  time.Duration
	AutoAdvance     bool
	RoundDelay      time.Duration
	JWTSecret       string
	OperatorKey     string
	ControlDeadline time.Duration
	DB              DBConfig
	Redis           RedisConfig
	Debug           bool
}

// LoadLM builds the LM configuration from the environment.
func LoadLM() LMConfig {
	Load()
	return LMConfig{
		ListenAddr:      GetEnv("LM_LISTEN_ADDR", ":8000"),
		PublicURL:       GetEnv("LM_PUBLIC_URL", "http://localhost:8000"),
		GameType:        GetEnv("LM_GAME_TYPE", models.GameTypeEvenOdd),
		MaxPlayers:      GetEnvInt("LM_MAX_PLAYERS", 32),
		Preset:          GetEnv("LM_MATCH_PRESET", "default"),
		AutoStart:       GetEnvBool("LM_AUTO_START", false),
		AutoStartAfter:  GetEnvDuration("LM_AUTO_START_AFTER", 2*time.Minute),
		AutoAdvance:     GetEnvBool("LM_AUTO_ADVANCE", false),
		RoundDelay:      GetEnvDuration("LM_ROUND_DELAY", 2*time.Second),
		JWTSecret:       GetEnv("LM_JWT_SECRET", "league-secret"),
		OperatorKey:     GetEnv("LM_OPERATOR_KEY", ""),
		ControlDeadline: GetEnvDuration("LM_CONTROL_DEADLINE", 10*time.Second),
		DB:              loadDB(),
		Redis:           loadRedis(),
		Debug:           GetEnvBool("LM_DEBUG", false),
	}
}

// RefereeConfig is the referee binary configuration.
type RefereeConfig struct {
	RefereeID  string
	ListenAddr string
	PublicURL  string
	LMEndpoint string
	Capacity   int
	Timeouts   engine.Timeouts
	Debug      bool
}

// LoadReferee builds a referee configuration from the environment.
func LoadReferee() RefereeConfig {
	Load()
	return RefereeConfig{
		RefereeID:  GetEnv("REF_ID", "R01"),
		ListenAddr: GetEnv("REF_LISTEN_ADDR", ":8001"),
		PublicURL:  GetEnv("REF_PUBLIC_URL", "http://localhost:8001"),
		LMEndpoint: GetEnv("REF_LM_ENDPOINT", "http://localhost:8000"),
		Capacity:   GetEnvInt("REF_CAPACITY", 2),
		Timeouts: engine.Timeouts{
			Invite: GetEnvDuration("REF_INVITE_TIMEOUT", 5*time.Second),
			Move:   GetEnvDuration("REF_MOVE_TIMEOUT", 30*time.Second),
			Notify: GetEnvDuration("REF_NOTIFY_TIMEOUT", 5*time.Second),
		},
		Debug: GetEnvBool("REF_DEBUG", false),
	}
}

// PlayerConfig is the player binary configuration.
type PlayerConfig struct {
	DisplayName    string
	ListenAddr     string
	PublicURL      string
	LMEndpoint     string
	Strategy       string
	SupportedGames []string
	Debug          bool
}

// LoadPlayer builds a player configuration from the environment.
func LoadPlayer() PlayerConfig {
	Load()
	games := strings.Split(GetEnv("PLY_SUPPORTED_GAMES", models.GameTypeEvenOdd), ",")
	for i := range games {
		games[i] = strings.TrimSpace(games[i])
	}
	return PlayerConfig{
		DisplayName:    GetEnv("PLY_DISPLAY_NAME", "player"),
		ListenAddr:     GetEnv("PLY_LISTEN_ADDR", ":8100"),
		PublicURL:      GetEnv("PLY_PUBLIC_URL", "http://localhost:8100"),
		LMEndpoint:     GetEnv("PLY_LM_ENDPOINT", "http://localhost:8000"),
		Strategy:       GetEnv("PLY_STRATEGY", "lowest"),
		SupportedGames: games,
		Debug:          GetEnvBool("PLY_DEBUG", false),
	}
}

func loadDB() DBConfig {
	return DBConfig{
		Driver:     GetEnv("DB_DRIVER", ""),
		Host:       GetEnv("DB_HOST", "localhost"),
		Port:       GetEnv("DB_PORT", "3306"),
		User:       GetEnv("DB_USER", "root"),
		Password:   GetEnv("DB_PASSWORD", ""),
		DBName:     GetEnv("DB_NAME", "parity_league"),
		SQLitePath: GetEnv("DB_SQLITE_PATH", "parity_league.db"),
	}
}

func loadRedis() RedisConfig {
	return RedisConfig{
		Addr:     GetEnv("REDIS_ADDR", ""),
		Password: GetEnv("REDIS_PASSWORD", ""),
		DB:       GetEnvInt("REDIS_DB", 0),
		Channel:  GetEnv("REDIS_EVENT_CHANNEL", "league_events"),
	}
}
