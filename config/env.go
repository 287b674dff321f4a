package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Redis   RedisConfig
	DB      DBConfig
	Auth    AuthConfig
	Ledger  LedgerConfig
	Gateway GatewayConfig
	GRPC    GRPCConfig
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret string
	// ServiceURL is where the gateway dials the ledger service.
	ServiceURL string
}

type LedgerConfig struct {
	MaxAttempts      int
	RetryBaseDelay   time.Duration
	RulesFile        string
	AutoApproveAfter time.Duration
	WorkerInterval   time.Duration
	WorkerBatch      int
}

type GatewayConfig struct {
	Addr string
	// Rate is a ulule/limiter formatted rate, e.g. "10-M".
	Rate string
}

type GRPCConfig struct {
	Addr string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		DB: DBConfig{
			DSN: getEnv("LEDGER_DSN", ""),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			ServiceURL: getEnv("LEDGER_SERVICE_URL", "localhost:50054"),
		},
		Ledger: LedgerConfig{
			MaxAttempts:      getEnvInt("LEDGER_MAX_ATTEMPTS", 5),
			RetryBaseDelay:   getEnvDuration("LEDGER_RETRY_BASE_DELAY", 20*time.Millisecond),
			RulesFile:        getEnv("LEDGER_RULES_FILE", ""),
			AutoApproveAfter: getEnvDuration("LEDGER_AUTO_APPROVE_AFTER", time.Hour),
			WorkerInterval:   getEnvDuration("LEDGER_WORKER_INTERVAL", 10*time.Minute),
			WorkerBatch:      getEnvInt("LEDGER_WORKER_BATCH", 100),
		},
		Gateway: GatewayConfig{
			Addr: getEnv("GATEWAY_ADDR", ":8080"),
			Rate: getEnv("GATEWAY_RATE", "10-M"),
		},
		GRPC: GRPCConfig{
			Addr: getEnv("LEDGER_GRPC_ADDR", ":50054"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvDuration falls back to defaultValue for unparsable and non-positive
// values; every duration setting is a delay or an interval.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("Ignoring %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return v
}
