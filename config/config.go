package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Network    NetworkConfig
	Commission CommissionConfig
	Bulk       BulkConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// NetworkConfig bounds the placement engine and the sponsorship-chain walk.
type NetworkConfig struct {
	PlacementScanBatch int
	PlacementRetries   int
	MaxChainDepth      int
}

// CommissionConfig is the flat two-tier sponsor commission, in cents.
type CommissionConfig struct {
	LevelCutoff int
	AboveCents  int64
	BelowCents  int64
}

// BulkConfig tunes mass recharges and the deferred audit pass.
type BulkConfig struct {
	AuditBatchSize    int
	AuditQueueSize    int
	AuditDelay        time.Duration
	ReconcileInterval time.Duration
}

func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8090"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "root:@tcp(localhost:3306)/biblioteca?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
			Issuer: getEnv("JWT_ISSUER", "biblioteca-virtual"),
		},
		Network: NetworkConfig{
			PlacementScanBatch: getEnvInt("PLACEMENT_SCAN_BATCH", 50),
			PlacementRetries:   getEnvInt("PLACEMENT_RETRIES", 3),
			MaxChainDepth:      getEnvInt("MAX_CHAIN_DEPTH", 64),
		},
		Commission: CommissionConfig{
			LevelCutoff: getEnvInt("COMMISSION_LEVEL_CUTOFF", 3),
			AboveCents:  getEnvInt64("COMMISSION_ABOVE_CENTS", 50000),
			BelowCents:  getEnvInt64("COMMISSION_BELOW_CENTS", 20000),
		},
		Bulk: BulkConfig{
			AuditBatchSize:    getEnvInt("BULK_AUDIT_BATCH_SIZE", 200),
			AuditQueueSize:    getEnvInt("BULK_AUDIT_QUEUE_SIZE", 64),
			AuditDelay:        getEnvDuration("BULK_AUDIT_DELAY", 2*time.Second),
			ReconcileInterval: getEnvDuration("BULK_RECONCILE_INTERVAL", 5*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
