package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendSQLite   = "sqlite"
)

// Price sources
const (
	PriceSourceDB    = "db"
	PriceSourceCSV   = "csv"
	PriceSourceNaver = "naver"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Result cache
	Cache CacheConfig

	// Evaluation engine
	Engine EngineConfig

	// Price data
	Prices PricesConfig

	// HTTP API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	Backend       string        // memory, postgres, redis, sqlite
	TTL           time.Duration // 0 = entries never expire
	SQLitePath    string
	RedisPrefix   string
	SweepSchedule string // cron expression with seconds
}

// EngineConfig holds metric defaults
type EngineConfig struct {
	AnnualizationFactor float64
	RiskFreeRate        float64
	DisclaimerVersion   string
	Accounting          string // float, decimal
}

// PricesConfig selects and configures the price provider
type PricesConfig struct {
	Source string // db, csv, naver
	CSVDir string
	Naver  NaverConfig
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL        string
	RequestsPerSec float64
	Timeout        time.Duration
	MaxPages       int
}

// APIConfig holds HTTP API configuration
type APIConfig struct {
	EvalRateLimit int // evaluations per client per minute, 0 = unlimited
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", CacheBackendMemory),
			TTL:           getEnvAsDuration("CACHE_TTL", "24h"),
			SQLitePath:    getEnv("CACHE_SQLITE_PATH", "lens-cache.db"),
			RedisPrefix:   getEnv("CACHE_REDIS_PREFIX", "lens:result"),
			SweepSchedule: getEnv("CACHE_SWEEP_SCHEDULE", "0 */10 * * * *"),
		},

		Engine: EngineConfig{
			AnnualizationFactor: getEnvAsFloat("ANNUALIZATION_FACTOR", 252),
			RiskFreeRate:        getEnvAsFloat("RISK_FREE_RATE", 0),
			DisclaimerVersion:   getEnv("DISCLAIMER_VERSION", "v2"),
			Accounting:          getEnv("ACCOUNTING_MODE", "float"),
		},

		Prices: PricesConfig{
			Source: getEnv("PRICE_SOURCE", PriceSourceDB),
			CSVDir: getEnv("PRICE_CSV_DIR", "data/prices"),
			Naver: NaverConfig{
				BaseURL:        getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
				RequestsPerSec: getEnvAsFloat("NAVER_RPS", 2),
				Timeout:        getEnvAsDuration("NAVER_TIMEOUT", "10s"),
				MaxPages:       getEnvAsInt("NAVER_MAX_PAGES", 400),
			},
		},

		API: APIConfig{
			EvalRateLimit: getEnvAsInt("EVAL_RATE_LIMIT", 30),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// NeedsDatabase reports whether any configured component uses PostgreSQL
func (c *Config) NeedsDatabase() bool {
	return c.Cache.Backend == CacheBackendPostgres || c.Prices.Source == PriceSourceDB
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendPostgres, CacheBackendRedis, CacheBackendSQLite:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: memory, postgres, redis, sqlite")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	if c.Cache.Backend == CacheBackendRedis && !c.Redis.Enabled {
		return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ENABLED=true")
	}

	switch c.Prices.Source {
	case PriceSourceDB, PriceSourceCSV, PriceSourceNaver:
	default:
		return fmt.Errorf("PRICE_SOURCE must be one of: db, csv, naver")
	}

	switch c.Engine.Accounting {
	case "float", "decimal":
	default:
		return fmt.Errorf("ACCOUNTING_MODE must be one of: float, decimal")
	}
	if c.Engine.AnnualizationFactor <= 0 {
		return fmt.Errorf("ANNUALIZATION_FACTOR must be positive")
	}

	// Database URL is required only when PostgreSQL is used
	if c.NeedsDatabase() && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when PRICE_SOURCE=db or CACHE_BACKEND=postgres")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
