package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr             string
	DatabaseURL      string
	Redis            RedisConfig
	EditorSigningKey string
	// AdminToken guards the token-issuing endpoint. Empty disables it.
	AdminToken string
	Similarity SimilarityConfig
}

// RedisConfig holds connection settings for the optional Redis-backed
// refresh guard.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SimilarityConfig holds the tunables of the similarity engine.
type SimilarityConfig struct {
	// MinScore is the persistence threshold: candidate pairs scoring at
	// or below it are not cached.
	MinScore float64
	// TopK bounds how many candidates one refresh may persist.
	TopK int
	// RefreshWorkers bounds the parallelism of bulk refreshes.
	RefreshWorkers int
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("BIOPORT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	signingKey := os.Getenv("EDITOR_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:             addr,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		EditorSigningKey: signingKey,
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Similarity: SimilarityConfig{
			MinScore:       envFloat("SIMILARITY_MIN_SCORE", 0.70),
			TopK:           envInt("SIMILARITY_TOP_K", 20),
			RefreshWorkers: envInt("SIMILARITY_REFRESH_WORKERS", 4),
		},
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
