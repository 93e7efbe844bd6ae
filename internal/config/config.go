// Package config loads the ambient configuration for
// cmd/matchengine-server. The matching core itself (internal/book,
// internal/dispatch) takes zero environment variables, per §6 of
// SPEC_FULL.md — only the HTTP front end that wraps it needs this.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/matchengine-server needs to boot.
type Config struct {
	ListenAddr    string
	MetricsAddr   string
	WorkerCount   int
	LogLevel      string
	InitialSymbols []string
}

// Load reads configuration from the process environment, first
// attempting to populate it from a .env file in the working directory.
// This mirrors JhonesBR-go-clob/internal/db/db.go's godotenv.Load(),
// including its behavior of falling back to whatever is already in the
// environment (e.g. injected by a container orchestrator) when no .env
// file is present, rather than treating a missing file as fatal.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded, using process environment (%v)", err)
	}

	return Config{
		ListenAddr:     getEnv("MATCHCORE_LISTEN_ADDR", ":8080"),
		MetricsAddr:    getEnv("MATCHCORE_METRICS_ADDR", ":9090"),
		WorkerCount:    getEnvInt("MATCHCORE_WORKERS", 4),
		LogLevel:       getEnv("MATCHCORE_LOG_LEVEL", "info"),
		InitialSymbols: getEnvList("MATCHCORE_SYMBOLS", []string{"AAPL", "GOOG", "MSFT"}),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
