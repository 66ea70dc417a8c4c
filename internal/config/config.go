// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/profilescope/internal/profile"
	"github.com/hitoshi/profilescope/internal/security"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Profile API
	ProfileAPIEndpoint  string
	ProfileFetchTimeout time.Duration
	ProfileFetchMaxSize int64

	// Simulator
	SimulatorSeed uint64 // 0の場合は起動ごとにランダム

	// Rate Limit
	RateLimitAnalyze int // req/min/client

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定、またはエンドポイントが不正な場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.ProfileAPIEndpoint = getEnvString("PROFILE_API_ENDPOINT", profile.DefaultEndpoint)
	cfg.ProfileFetchTimeout = getEnvDuration("PROFILE_FETCH_TIMEOUT", 10*time.Second)
	cfg.ProfileFetchMaxSize = getEnvInt64("PROFILE_FETCH_MAX_SIZE", profile.DefaultMaxBodySize)
	cfg.SimulatorSeed = getEnvUint64("SIMULATOR_SEED", 0)
	cfg.RateLimitAnalyze = getEnvInt("RATE_LIMIT_ANALYZE", 30)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5000")

	if err := security.NewEndpointGuard().ValidateEndpoint(cfg.ProfileAPIEndpoint); err != nil {
		return nil, fmt.Errorf("invalid PROFILE_API_ENDPOINT: %w", err)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvUint64(key string, defaultVal uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return u
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
