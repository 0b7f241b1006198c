package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every externally tunable server and game setting. Values
// come from the environment; defaults match the documented protocol.
type Config struct {
	Host    string
	TCPPort int
	WSPort  int

	MaxConnections int
	SessionTimeout time.Duration

	MinBet          int64
	MaxBet          int64
	MaxBetsPerRound int
	DefaultBalance  int64

	RoomCount    int
	RoomCapacity int

	StaleRoundTimeout time.Duration
	CleanupInterval   time.Duration

	LogLevel string
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:              getEnv("GAME_HOST", "0.0.0.0"),
		LogLevel:          getEnv("GAME_LOG_LEVEL", "info"),
		SessionTimeout:    30 * time.Minute,
		StaleRoundTimeout: 10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}

	var err error
	if cfg.TCPPort, err = getEnvInt("GAME_PORT", 8765); err != nil {
		return nil, err
	}
	if cfg.WSPort, err = getEnvInt("GAME_WS_PORT", 8766); err != nil {
		return nil, err
	}
	if cfg.MaxConnections, err = getEnvInt("GAME_MAX_CONNECTIONS", 100); err != nil {
		return nil, err
	}
	if cfg.MaxBetsPerRound, err = getEnvInt("GAME_MAX_BETS_PER_ROUND", 10); err != nil {
		return nil, err
	}
	if cfg.RoomCount, err = getEnvInt("GAME_ROOM_COUNT", 10); err != nil {
		return nil, err
	}
	if cfg.RoomCapacity, err = getEnvInt("GAME_ROOM_CAPACITY", 50); err != nil {
		return nil, err
	}
	if cfg.MinBet, err = getEnvInt64("GAME_MIN_BET", 1); err != nil {
		return nil, err
	}
	if cfg.MaxBet, err = getEnvInt64("GAME_MAX_BET", 1000); err != nil {
		return nil, err
	}
	if cfg.DefaultBalance, err = getEnvInt64("GAME_DEFAULT_BALANCE", 1000); err != nil {
		return nil, err
	}

	if seconds, err := getEnvInt("GAME_SESSION_TIMEOUT", 1800); err != nil {
		return nil, err
	} else {
		cfg.SessionTimeout = time.Duration(seconds) * time.Second
	}
	if seconds, err := getEnvInt("GAME_STALE_ROUND_TIMEOUT", 600); err != nil {
		return nil, err
	} else {
		cfg.StaleRoundTimeout = time.Duration(seconds) * time.Second
	}
	if seconds, err := getEnvInt("GAME_CLEANUP_INTERVAL", 300); err != nil {
		return nil, err
	} else {
		cfg.CleanupInterval = time.Duration(seconds) * time.Second
	}

	if cfg.MinBet < 1 || cfg.MaxBet < cfg.MinBet {
		return nil, fmt.Errorf("invalid bet bounds: min=%d max=%d", cfg.MinBet, cfg.MaxBet)
	}
	if cfg.MaxConnections < 1 {
		return nil, fmt.Errorf("GAME_MAX_CONNECTIONS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return parsed, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return parsed, nil
}
