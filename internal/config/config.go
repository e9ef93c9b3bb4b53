// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the httpdelta harness.
type Config struct {
	// Campaign shape
	Targets      string // HTTPDELTA_TARGETS: comma list of name=profile@host:port
	ProfilesFile string // HTTPDELTA_PROFILES_FILE: JSON profile document (optional; builtins otherwise)
	Iterations   uint64 // HTTPDELTA_ITERATIONS, 0 = run until canceled
	Seed         int64  // HTTPDELTA_SEED, 0 = time-based
	MaxTried     int    // HTTPDELTA_MAX_TRIED, dedup cache size, default 1<<16

	// Transport
	DialTimeout  time.Duration // HTTPDELTA_DIAL_TIMEOUT_MS, default 2000ms
	IdleTimeout  time.Duration // HTTPDELTA_IDLE_TIMEOUT_MS, default 500ms
	SegmentDelay time.Duration // HTTPDELTA_SEGMENT_DELAY_MS, default 0

	// Findings
	FindingsPath string // HTTPDELTA_FINDINGS_PATH, default "findings.jsonl"
	FindingsDSN  string // HTTPDELTA_FINDINGS_DSN, optional Postgres DSN
	Filter       string // HTTPDELTA_FILTER, optional jq expression over findings

	// Metrics
	MetricsEnabled bool   // HTTPDELTA_METRICS_ENABLED, default false
	MetricsAddr    string // HTTPDELTA_METRICS_ADDR, default "127.0.0.1:9611"

	// Logging
	LogLevel      string // LOG_LEVEL, default "info"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Targets:      getEnvString("HTTPDELTA_TARGETS", ""),
		ProfilesFile: getEnvString("HTTPDELTA_PROFILES_FILE", ""),
		Iterations:   uint64(getEnvInt("HTTPDELTA_ITERATIONS", 0)),
		Seed:         int64(getEnvInt("HTTPDELTA_SEED", 0)),
		MaxTried:     getEnvInt("HTTPDELTA_MAX_TRIED", 1<<16),

		DialTimeout:  getEnvDurationMs("HTTPDELTA_DIAL_TIMEOUT_MS", 2000),
		IdleTimeout:  getEnvDurationMs("HTTPDELTA_IDLE_TIMEOUT_MS", 500),
		SegmentDelay: getEnvDurationMs("HTTPDELTA_SEGMENT_DELAY_MS", 0),

		FindingsPath: getEnvString("HTTPDELTA_FINDINGS_PATH", "findings.jsonl"),
		FindingsDSN:  getEnvString("HTTPDELTA_FINDINGS_DSN", ""),
		Filter:       getEnvString("HTTPDELTA_FILTER", ""),

		MetricsEnabled: getEnvBool("HTTPDELTA_METRICS_ENABLED", false),
		MetricsAddr:    getEnvString("HTTPDELTA_METRICS_ADDR", "127.0.0.1:9611"),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
