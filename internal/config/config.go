package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Blockchain BlockchainConfig
	Nonce      NonceConfig
	Wallet     WalletConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Env         string
	MetricsAddr string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// BlockchainConfig holds blockchain RPC settings
type BlockchainConfig struct {
	RPCURL  string
	GasTier string
}

// NonceConfig holds nonce lease settings. The lease TTL must exceed one
// allocation round-trip but stay short enough to bound the stall after a
// holder crashes.
type NonceConfig struct {
	LockBackend     string // "postgres" or "redis"
	LeaseTTL        time.Duration
	AcquireAttempts int
	AcquireBackoff  time.Duration
	CleanupInterval time.Duration
}

// WalletConfig holds wallet policy settings
type WalletConfig struct {
	KeystoreSecret       string
	KeystoreSalt         string
	DefaultDailyLimitUSD string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Env:         getEnv("SERVER_ENV", "development"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9091"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "chatpay"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		Blockchain: BlockchainConfig{
			RPCURL:  getEnv("CHAIN_RPC_URL", "https://sepolia.base.org"),
			GasTier: getEnv("GAS_TIER", "standard"),
		},
		Nonce: NonceConfig{
			LockBackend:     getEnv("NONCE_LOCK_BACKEND", "postgres"),
			LeaseTTL:        getEnvAsDuration("NONCE_LEASE_TTL", 30*time.Second),
			AcquireAttempts: getEnvAsInt("NONCE_ACQUIRE_ATTEMPTS", 10),
			AcquireBackoff:  getEnvAsDuration("NONCE_ACQUIRE_BACKOFF", 500*time.Millisecond),
			CleanupInterval: getEnvAsDuration("NONCE_CLEANUP_INTERVAL", 30*time.Second),
		},
		Wallet: WalletConfig{
			KeystoreSecret:       getEnv("WALLET_KEYSTORE_SECRET", ""),
			KeystoreSalt:         getEnv("WALLET_KEYSTORE_SALT", "chatpay-wallet-keys"),
			DefaultDailyLimitUSD: getEnv("WALLET_DAILY_LIMIT_USD", "1000"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
