package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string
	InboxDir  string

	LogLevel string
	LogFile  string

	MatchWorkers       int
	OutlierStdDevs     float64
	PreferLongestModel bool
	PersistRuns        bool

	FeedRateLimitRPS int
	FeedTimeoutMs    int
	FeedMaxAttempts  int

	WatchIntervalSec int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "listingmatch.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		InboxDir:  getEnv("INBOX_DIR", filepath.Join(cwd, "data", "inbox")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", filepath.Join(cwd, "logs", "listingmatch.log")),

		MatchWorkers:       getEnvInt("MATCH_WORKERS", 1),
		OutlierStdDevs:     getEnvFloat("OUTLIER_STDDEVS", 2),
		PreferLongestModel: getEnvBool("PREFER_LONGEST_MODEL", false),
		PersistRuns:        getEnvBool("PERSIST_RUNS", true),

		FeedRateLimitRPS: getEnvInt("FEED_RATE_LIMIT_RPS", 5),
		FeedTimeoutMs:    getEnvInt("FEED_TIMEOUT_MS", 30000),
		FeedMaxAttempts:  getEnvInt("FEED_MAX_ATTEMPTS", 5),

		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 30),
	}

	if cfg.OutlierStdDevs <= 0 {
		return Config{}, fmt.Errorf("OUTLIER_STDDEVS must be positive, got %v", cfg.OutlierStdDevs)
	}

	return cfg, nil
}

// Require fails when a required setting or flag is blank.
func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
