// Package config loads and validates the indexer configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment
// variables. All required fields are validated at startup to ensure
// fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Ledger configuration
	SolanaRPCURL string
	SolanaWSURL  string

	// ClickHouse configuration
	ClickHouseURL string

	// Bigtable configuration
	BigtableProjectID  string
	BigtableInstanceID string
	BigtableAppProfile string

	// Redis configuration
	RedisURL string

	// MinIO configuration
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Postgres configuration (optional third durable backend)
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Ingestion configuration
	PollInterval        time.Duration
	PollStartSlot       uint64
	PluginQueueSize     int
	PluginAccountOwners []string

	// Startup hook (optional)
	WASMModulePath string

	// Cache configuration
	CacheTTL time.Duration
}

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is missing
// or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Ledger configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}
	cfg.SolanaWSURL = os.Getenv("SOLANA_WS_URL")
	if cfg.SolanaWSURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_WS_URL is required"))
	}

	// ClickHouse configuration
	cfg.ClickHouseURL = os.Getenv("CLICKHOUSE_URL")
	if cfg.ClickHouseURL == "" {
		errs = append(errs, fmt.Errorf("CLICKHOUSE_URL is required"))
	}

	// Bigtable configuration
	cfg.BigtableProjectID = os.Getenv("BIGTABLE_PROJECT_ID")
	if cfg.BigtableProjectID == "" {
		errs = append(errs, fmt.Errorf("BIGTABLE_PROJECT_ID is required"))
	}
	cfg.BigtableInstanceID = os.Getenv("BIGTABLE_INSTANCE_ID")
	if cfg.BigtableInstanceID == "" {
		errs = append(errs, fmt.Errorf("BIGTABLE_INSTANCE_ID is required"))
	}
	cfg.BigtableAppProfile = getEnvOrDefault("BIGTABLE_APP_PROFILE", "default")

	// Redis configuration
	cfg.RedisURL = getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0")

	// MinIO configuration
	cfg.MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
	if cfg.MinioEndpoint == "" {
		errs = append(errs, fmt.Errorf("MINIO_ENDPOINT is required"))
	}
	cfg.MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	if cfg.MinioAccessKey == "" {
		errs = append(errs, fmt.Errorf("MINIO_ACCESS_KEY is required"))
	}
	cfg.MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
	if cfg.MinioSecretKey == "" {
		errs = append(errs, fmt.Errorf("MINIO_SECRET_KEY is required"))
	}
	cfg.MinioBucket = getEnvOrDefault("MINIO_BUCKET", "cypher-blobs")
	useSSL, err := parseBool("MINIO_USE_SSL", false)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MinioUseSSL = useSSL

	// Postgres is optional; when unset the relational mirror is disabled.
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Ingestion configuration
	pollInterval, err := parseDuration("POLL_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PollInterval = pollInterval
	}

	startSlot, err := parseUint("POLL_START_SLOT", 0)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.PollStartSlot = startSlot

	queueSize, err := parseInt("PLUGIN_QUEUE_SIZE", 1000)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.PluginQueueSize = queueSize

	if owners := os.Getenv("PLUGIN_ACCOUNT_OWNERS"); owners != "" {
		for _, o := range strings.Split(owners, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.PluginAccountOwners = append(cfg.PluginAccountOwners, o)
			}
		}
	}

	// Startup hook is optional.
	cfg.WASMModulePath = os.Getenv("WASM_MODULE_PATH")

	// Cache configuration
	cacheTTL, err := parseDuration("CACHE_TTL", "3600s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.CacheTTL = cacheTTL
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for daemon initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}
	if c.SolanaWSURL == "" {
		errs = append(errs, fmt.Errorf("SolanaWSURL is required"))
	}
	if c.ClickHouseURL == "" {
		errs = append(errs, fmt.Errorf("ClickHouseURL is required"))
	}
	if c.BigtableProjectID == "" {
		errs = append(errs, fmt.Errorf("BigtableProjectID is required"))
	}
	if c.BigtableInstanceID == "" {
		errs = append(errs, fmt.Errorf("BigtableInstanceID is required"))
	}
	if c.MinioEndpoint == "" {
		errs = append(errs, fmt.Errorf("MinioEndpoint is required"))
	}
	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("PollInterval must be at least 1 second"))
	}
	if c.PluginQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("PluginQueueSize must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CacheTTL must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseUint parses an unsigned integer from an environment variable or uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid unsigned integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
