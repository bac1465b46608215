package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Federation
	InstanceHost      string        // このインスタンスのホスト名（例: "sns.example.com"）
	RelayTimeout      time.Duration // リレー1回あたりのタイムアウト
	RelayAllowPrivate bool          // プライベートIPのピアを許可する（開発・テスト用）

	// Token
	TokenMaxAge          int           // トークン有効期間（秒）
	TokenCleanupInterval time.Duration // 期限切れトークン掃除の間隔

	// Media
	MediaRoot string

	// Like
	LikeUnique bool // いいねの一意制約を適用するか

	// Rate Limit
	RateLimitGeneral int // API全般（req/min/user）
	RateLimitSignup  int // サインアップ（req/min/IP）

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.InstanceHost = os.Getenv("INSTANCE_HOST")
	if cfg.InstanceHost == "" {
		missing = append(missing, "INSTANCE_HOST")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RelayTimeout = getEnvDuration("RELAY_TIMEOUT", 10*time.Second)
	cfg.RelayAllowPrivate = getEnvBool("RELAY_ALLOW_PRIVATE", false)
	cfg.TokenMaxAge = getEnvInt("TOKEN_MAX_AGE", 86400)
	cfg.TokenCleanupInterval = getEnvDuration("TOKEN_CLEANUP_INTERVAL", time.Hour)
	cfg.MediaRoot = getEnvString("MEDIA_ROOT", "./media")
	cfg.LikeUnique = getEnvBool("LIKE_UNIQUE", true)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSignup = getEnvInt("RATE_LIMIT_SIGNUP", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

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
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
