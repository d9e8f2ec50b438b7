// Copyright 2025 Certen Protocol
//
// Configuration for the ledger rollup service, loaded from environment
// variables.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ledger rollup service.
type Config struct {
	// Database Configuration
	DatabaseURL         string
	DatabaseMaxConns    int
	DatabaseMinConns    int
	DatabaseMaxIdleTime int // seconds
	DatabaseMaxLifetime int // seconds

	// Server Configuration
	ListenAddr string

	// Issuer (mint authority)
	IssuerPublicKeyHex string

	// Validator limits
	MaxFee       int64
	MaxBatchSize int

	// Batch assembler
	BatchInterval time.Duration

	// Prover
	ProverBinaryPath string
	ProverMaxRetries int
	DataDir          string

	// DA chain
	DAEndpoint       string
	DASr25519KeyURI  string
	FinalityTimeout  time.Duration
	FinalityDepth    uint32
	MaxTrackedBlocks int

	// DAS light client
	LightClientPath          string
	LightClientRestartWindow time.Duration
	LightClientMaxRestarts   int

	// Event bus
	SubscriberBufferSize int

	// Firestore mirror (optional)
	FirestoreEnabled        bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	LogLevel string
}

// Load reads configuration from environment variables. Only DATABASE_URL is
// strictly required by the spec; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 25),
		DatabaseMinConns:    getEnvInt("DATABASE_MIN_CONNS", 5),
		DatabaseMaxIdleTime: getEnvInt("DATABASE_MAX_IDLE_TIME", 300),
		DatabaseMaxLifetime: getEnvInt("DATABASE_MAX_LIFETIME", 3600),

		ListenAddr: getEnv("LISTEN_ADDR", "0.0.0.0:8080"),

		IssuerPublicKeyHex: getEnv("ISSUER_PUBLIC_KEY", ""),

		MaxFee:       getEnvInt64("MAX_FEE", 1_000_000),
		MaxBatchSize: getEnvInt("MAX_BATCH_SIZE", 100),

		BatchInterval: getEnvDuration("BATCH_INTERVAL", 60*time.Second),

		ProverBinaryPath: getEnv("PROVER_BINARY_PATH", ""),
		ProverMaxRetries: getEnvInt("PROVER_MAX_RETRIES", 3),
		DataDir:          getEnv("DATA_DIR", "./data"),

		DAEndpoint:       getEnv("DA_ENDPOINT", ""),
		DASr25519KeyURI:  getEnv("DA_SR25519_KEY_URI", "//Alice"),
		FinalityTimeout:  getEnvDuration("FINALITY_TIMEOUT", 60*time.Second),
		FinalityDepth:    uint32(getEnvInt("FINALITY_DEPTH", 20)),
		MaxTrackedBlocks: getEnvInt("MAX_TRACKED_BLOCKS", 1000),

		LightClientPath:          getEnv("LIGHT_CLIENT_PATH", ""),
		LightClientRestartWindow: getEnvDuration("LIGHT_CLIENT_RESTART_WINDOW", 5*time.Minute),
		LightClientMaxRestarts:   getEnvInt("LIGHT_CLIENT_MAX_RESTARTS", 3),

		SubscriberBufferSize: getEnvInt("SUBSCRIBER_BUFFER_SIZE", 100),

		FirestoreEnabled:        getEnvBool("FIRESTORE_ENABLED", false),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required but not set")
	}
	if c.MaxFee < 0 {
		errs = append(errs, "MAX_FEE must be non-negative")
	}
	if c.MaxBatchSize <= 0 {
		errs = append(errs, "MAX_BATCH_SIZE must be positive")
	}
	if c.MaxTrackedBlocks <= 0 {
		errs = append(errs, "MAX_TRACKED_BLOCKS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
