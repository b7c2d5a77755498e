// Package config loads buildproc settings from BP_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerURL string // BP_SERVER_URL (optional, falls back to the active server profile)
	AccessKey string // BP_ACCESS_KEY (optional, falls back to access key discovery)

	// Cache settings
	CacheDir        string // BP_CACHE_DIR (default ~/.buildproc/cache; "off" disables)
	CacheMemorySize int    // BP_CACHE_MEMORY_SIZE (default 10000; 0 disables)
	CacheS3Bucket   string // BP_CACHE_S3_BUCKET (enables the S3 tier when set)
	CacheS3Prefix   string // BP_CACHE_S3_PREFIX (default "builds")
	CacheS3Region   string // BP_CACHE_S3_REGION (default "us-east-1")
	CacheS3Endpoint string // BP_CACHE_S3_ENDPOINT (custom endpoint for MinIO)
	DatabaseURL     string // BP_DATABASE_URL (enables the postgres tier when set)

	NATSURL string // BP_NATS_URL (optional, empty = no events)

	// Processor tuning; zero means the processor default.
	MaxBuildsPerRequest int           // BP_MAX_BUILDS_PER_REQUEST
	BackoffLimit        int           // BP_BACKOFF_LIMIT
	BackoffFactor       float64       // BP_BACKOFF_FACTOR
	RetryLimit          int           // BP_RETRY_LIMIT
	RetryFactor         float64       // BP_RETRY_FACTOR
	RetryDelay          time.Duration // BP_RETRY_DELAY

	// Serve and export settings
	ServeInterval   time.Duration // BP_SERVE_INTERVAL (default 5m)
	ServeWindow     time.Duration // BP_SERVE_WINDOW (default 24h)
	GRPCAddr        string        // BP_GRPC_ADDR (default ":9090")
	GRPCToken       string        // BP_GRPC_TOKEN (optional, empty = auth disabled)
	ExportS3Bucket  string        // BP_EXPORT_S3_BUCKET (enables S3 export when set)
	ExportS3Key     string        // BP_EXPORT_S3_KEY (default "buildproc/builds.jsonl")
	ExportSnapshots bool          // BP_EXPORT_S3_SNAPSHOTS (also keep a timestamped copy of each export)
	ExportGitRepo   string        // BP_EXPORT_GIT_REPO (enables git export when set; path to clone)
	ExportGitFile   string        // BP_EXPORT_GIT_FILE (default "builds.jsonl")
	ExportGitBranch string        // BP_EXPORT_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		ServerURL:       os.Getenv("BP_SERVER_URL"),
		AccessKey:       os.Getenv("BP_ACCESS_KEY"),
		CacheDir:        os.Getenv("BP_CACHE_DIR"),
		CacheS3Bucket:   os.Getenv("BP_CACHE_S3_BUCKET"),
		CacheS3Prefix:   envOrDefault("BP_CACHE_S3_PREFIX", "builds"),
		CacheS3Region:   envOrDefault("BP_CACHE_S3_REGION", "us-east-1"),
		CacheS3Endpoint: os.Getenv("BP_CACHE_S3_ENDPOINT"),
		DatabaseURL:     os.Getenv("BP_DATABASE_URL"),
		NATSURL:         os.Getenv("BP_NATS_URL"),
		GRPCAddr:        envOrDefault("BP_GRPC_ADDR", ":9090"),
		GRPCToken:       os.Getenv("BP_GRPC_TOKEN"),
		ExportS3Bucket:  os.Getenv("BP_EXPORT_S3_BUCKET"),
		ExportS3Key:     envOrDefault("BP_EXPORT_S3_KEY", "buildproc/builds.jsonl"),
		ExportGitRepo:   os.Getenv("BP_EXPORT_GIT_REPO"),
		ExportGitFile:   envOrDefault("BP_EXPORT_GIT_FILE", "builds.jsonl"),
		ExportGitBranch: envOrDefault("BP_EXPORT_GIT_BRANCH", "main"),
	}

	var err error
	if c.CacheMemorySize, err = envInt("BP_CACHE_MEMORY_SIZE", 10_000); err != nil {
		return nil, err
	}
	if c.CacheMemorySize < 0 {
		return nil, fmt.Errorf("BP_CACHE_MEMORY_SIZE: must not be negative")
	}
	if c.MaxBuildsPerRequest, err = envInt("BP_MAX_BUILDS_PER_REQUEST", 0); err != nil {
		return nil, err
	}
	if c.BackoffLimit, err = envInt("BP_BACKOFF_LIMIT", 0); err != nil {
		return nil, err
	}
	if c.BackoffFactor, err = envFloat("BP_BACKOFF_FACTOR"); err != nil {
		return nil, err
	}
	if c.RetryLimit, err = envInt("BP_RETRY_LIMIT", 0); err != nil {
		return nil, err
	}
	if c.RetryFactor, err = envFloat("BP_RETRY_FACTOR"); err != nil {
		return nil, err
	}
	if c.RetryDelay, err = envDuration("BP_RETRY_DELAY", ""); err != nil {
		return nil, err
	}
	if c.ExportSnapshots, err = envBool("BP_EXPORT_S3_SNAPSHOTS"); err != nil {
		return nil, err
	}
	if c.ServeInterval, err = envDuration("BP_SERVE_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if c.ServeWindow, err = envDuration("BP_SERVE_WINDOW", "24h"); err != nil {
		return nil, err
	}
	if c.ServeInterval <= 0 {
		return nil, fmt.Errorf("BP_SERVE_INTERVAL: must be positive")
	}
	if c.ServeWindow <= 0 {
		return nil, fmt.Errorf("BP_SERVE_WINDOW: must be positive")
	}

	return c, nil
}

// CacheDisabled reports whether the filesystem cache was turned off.
func (c *Config) CacheDisabled() bool {
	return c.CacheDir == "off"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envFloat(key string) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key, fallback string) (time.Duration, error) {
	v := envOrDefault(key, fallback)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
