// Package config loads orchestrator configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cesargomez89/catalogd/internal/constants"
)

// Config holds all application configuration, loaded once at startup.
type Config struct {
	Host      string
	Port      string
	LogLevel  string
	LogFormat string
	TZ        string

	// MusicRoot is where audio/artwork/lyrics land.
	MusicRoot string
	// ConfigRoot holds the catalog database, cache, covers, lyrics
	// staging directory, and the secrets file.
	ConfigRoot string

	// CatalogBaseURL is the external catalog collaborator's base URL.
	CatalogBaseURL string
	// LyricsBaseURL is the lyrics provider's base URL.
	LyricsBaseURL string

	WorkerName         string
	WorkerPoolSize     int // number of concurrent worker loops in this process
	WorkerPollInterval time.Duration
	WorkerIdleSleep    time.Duration
	WorkerMaxJobs      int // 0 means unbounded

	BusyTimeout time.Duration
}

// DBPath is the catalog database file, under ConfigRoot.
func (c *Config) DBPath() string {
	return filepath.Join(c.ConfigRoot, "catalog.db")
}

// SecretsPath is the JSON secrets file, under ConfigRoot.
func (c *Config) SecretsPath() string {
	return filepath.Join(c.ConfigRoot, constants.SecretsFileName)
}

// CacheDir is the durable cache directory, under ConfigRoot.
func (c *Config) CacheDir() string {
	return filepath.Join(c.ConfigRoot, constants.CacheDirName)
}

// CoversDir is the covers staging directory, under ConfigRoot.
func (c *Config) CoversDir() string {
	return filepath.Join(c.ConfigRoot, constants.CoversDirName)
}

// LyricsStageDir is the lyrics staging directory, under ConfigRoot.
func (c *Config) LyricsStageDir() string {
	return filepath.Join(c.ConfigRoot, constants.LyricsStageDir)
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first, if present, so local development
// doesn't require exporting every variable by hand; its absence is not an
// error.
func Load() *Config {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()

	return &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", constants.DefaultPort),
		LogLevel:           getEnv("LOG_LEVEL", constants.DefaultLogLevel),
		LogFormat:          getEnv("LOG_FORMAT", constants.DefaultLogFmt),
		TZ:                 getEnv("TZ", "UTC"),
		MusicRoot:          getEnv("MUSIC_ROOT", filepath.Join(home, constants.DefaultMusicRoot)),
		ConfigRoot:         getEnv("CONFIG_ROOT", filepath.Join(home, constants.DefaultConfigRoot)),
		CatalogBaseURL:     getEnv("CATALOG_BASE_URL", ""),
		LyricsBaseURL:      getEnv("LYRICS_BASE_URL", ""),
		WorkerName:         getEnv("WORKER_NAME", ""),
		WorkerPoolSize:     getEnvInt("WORKER_POOL_SIZE", constants.DefaultWorkerPoolSize),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", constants.DefaultPollInterval),
		WorkerIdleSleep:    getEnvDuration("WORKER_IDLE_SLEEP_SEC", constants.DefaultIdleSleep),
		WorkerMaxJobs:      getEnvInt("WORKER_MAX_JOBS", 0),
		BusyTimeout:        constants.BusyTimeout,
	}
}

// Validate collects every configuration problem and returns them joined,
// rather than failing on the first one encountered.
func (c *Config) Validate() error {
	var errs []string

	if c.Port == "" {
		errs = append(errs, "PORT cannot be empty")
	} else if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
	}

	if c.MusicRoot == "" {
		errs = append(errs, "MUSIC_ROOT cannot be empty")
	}
	if c.ConfigRoot == "" {
		errs = append(errs, "CONFIG_ROOT cannot be empty")
	}
	if c.CatalogBaseURL == "" {
		errs = append(errs, "CATALOG_BASE_URL cannot be empty")
	}
	if c.LyricsBaseURL == "" {
		errs = append(errs, "LYRICS_BASE_URL cannot be empty")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if c.WorkerPoolSize <= 0 {
		errs = append(errs, "WORKER_POOL_SIZE must be greater than 0")
	}
	if c.WorkerPollInterval <= 0 {
		errs = append(errs, "WORKER_POLL_INTERVAL must be greater than 0")
	}
	if c.WorkerIdleSleep <= 0 {
		errs = append(errs, "WORKER_IDLE_SLEEP_SEC must be greater than 0")
	}
	if c.WorkerMaxJobs < 0 {
		errs = append(errs, "WORKER_MAX_JOBS cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
