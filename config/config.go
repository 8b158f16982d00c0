package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// FinMind API tokens, rotated when one is rate limited
	FinMindTokens []string

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Scan configuration
	Scan ScanConfig
}

// ScanConfig holds the daily-scan parameters and cutoffs.
type ScanConfig struct {
	// Cron expression for the scheduled run, Asia/Taipei wall time
	Schedule string

	// Wall-clock cutoffs. Before SafeCrawlHour/Min an empty bulletin for
	// today is treated as "not yet announced" and the scan rolls back to
	// the previous trading day. Before MarketCloseHour/Min today's market
	// figures are considered intraday.
	SafeCrawlHour   int
	SafeCrawlMin    int
	MarketCloseHour int
	MarketCloseMin  int

	// Trading-calendar depth in trading days
	CalendarDays int

	// Disposition-list lookback in calendar days
	JailLookbackDays int

	// SafeFilter suppresses the forward simulation for stocks with no
	// valid day in the recent window. The full scan runs with it off so
	// dormant stocks still get a projection; the flag exists for callers
	// that only want actionable names.
	SafeFilter bool

	// Fixed pause inserted every PauseEvery stocks during the scan
	PauseEvery int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		FinMindTokens: finMindTokens(),

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "attention_radar"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "radar"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "radar123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		// Scan configuration
		Scan: ScanConfig{
			Schedule: getEnvOrDefault("SCAN_SCHEDULE", "30 19 * * *"),

			SafeCrawlHour:   getEnvInt("SCAN_SAFE_CRAWL_HOUR", 19),
			SafeCrawlMin:    getEnvInt("SCAN_SAFE_CRAWL_MIN", 0),
			MarketCloseHour: getEnvInt("SCAN_MARKET_CLOSE_HOUR", 16),
			MarketCloseMin:  getEnvInt("SCAN_MARKET_CLOSE_MIN", 30),

			CalendarDays:     getEnvInt("SCAN_CALENDAR_DAYS", 240),
			JailLookbackDays: getEnvInt("SCAN_JAIL_LOOKBACK_DAYS", 90),

			SafeFilter: getEnvOrDefault("SCAN_SAFE_FILTER", "false") == "true",

			PauseEvery: getEnvInt("SCAN_PAUSE_EVERY", 10),
		},
	}
}

// finMindTokens collects API tokens from FINMIND_TOKEN, FINMIND_TOKEN2 and
// the comma-separated FINMIND_TOKENS, deduplicated in order.
func finMindTokens() []string {
	var tokens []string
	seen := map[string]bool{}
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	add(os.Getenv("FINMIND_TOKEN"))
	add(os.Getenv("FINMIND_TOKEN2"))
	for _, t := range strings.Split(os.Getenv("FINMIND_TOKENS"), ",") {
		add(t)
	}
	return tokens
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
