package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Redis configuration
	RedisAddress string
	ListCacheTTL time.Duration

	// JWT configuration
	JWTSecret string
	TokenTTL  time.Duration

	// how long the shared identity copy survives for new tabs
	SessionTTL time.Duration

	// Broadcast configuration
	BroadcastTransport string
	BroadcastChannel   string
	NATSURL            string

	// external compliance analysis service
	ComplianceURL string

	LogLevel string
	LogFile  string

	WorkerCount int

	FrontendAddress string
}

// Load loads configuration from the .env file (if any) and environment variables
func Load() (*Config, error) {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		secret, err := generateRandomSecret(32)
		if err != nil {
			return nil, err
		}
		jwtSecret = secret
	}

	cfg := &Config{
		ServerPort:         getEnv("PORT", "8080"),
		Environment:        getEnv("ENV", "development"),
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "docflow"),
		SQLitePath:         getEnv("SQLITE_PATH", "docflow.db"),
		RedisAddress:       getEnv("REDIS_ADDRESS", "localhost:6379"),
		ListCacheTTL:       time.Duration(getEnvInt("LIST_CACHE_TTL_MINUTES", 60)) * time.Minute,
		JWTSecret:          jwtSecret,
		TokenTTL:           time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		SessionTTL:         time.Duration(getEnvInt("SESSION_DAYS", 7)) * 24 * time.Hour,
		BroadcastTransport: getEnv("BROADCAST_TRANSPORT", "local"),
		BroadcastChannel:   getEnv("BROADCAST_CHANNEL", "document-updates"),
		NATSURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		ComplianceURL:      getEnv("COMPLIANCE_URL", "http://localhost:8000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            os.Getenv("LOG_FILE"),
		WorkerCount:        getEnvInt("WORKER_COUNT", 4),
		FrontendAddress:    getEnv("FRONTEND_ADDRESS", "http://localhost:3000"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.BroadcastTransport {
	case "local", "redis", "nats":
	default:
		return fmt.Errorf("unsupported BROADCAST_TRANSPORT %q", c.BroadcastTransport)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	return nil
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an environment variable as int or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// generateRandomSecret generates a hex encoded secret from length random bytes
func generateRandomSecret(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
