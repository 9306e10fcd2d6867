package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Scoring  ScoringConfig
	Ledger   LedgerConfig
	Redis    RedisConfig
	Cron     CronConfig
	Seed     SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectAttempts bounds startup retries while MySQL comes up
	ConnectAttempts int
}

// JWTConfig holds access token configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// CookieConfig holds auth cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// ScoringConfig holds verification thresholds
type ScoringConfig struct {
	MinTimeSpentMs int64
	MinScrollDepth float64
}

// LedgerConfig holds ledger settings
type LedgerConfig struct {
	// Location defines the operational day used for daily quota resets
	Location    *time.Location
	EventBuffer int
}

// RedisConfig holds the event transport settings. Empty Addr disables it.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	EventChannel string
}

// CronConfig holds background job schedules
type CronConfig struct {
	ReconcileSchedule string
}

// SeedConfig holds seeding settings
type SeedConfig struct {
	File          string
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	ledgerCfg, err := loadLedgerConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		Scoring:  loadScoringConfig(),
		Ledger:   ledgerCfg,
		Redis:    loadRedisConfig(),
		Cron: CronConfig{
			ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "0 */6 * * *"),
		},
		Seed: SeedConfig{
			File:          getEnv("SEED_FILE", "config/seed.toml"),
			AdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@mlmpk.local"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "mlmpk_earnings"),

		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 60)) * time.Minute,
		ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	return JWTConfig{
		Secret:          getEnv(prefix+"JWT_SECRET", "default_secret"),
		AccessTokenMins: getEnvInt("ACCESS_TOKEN_MINUTES", 60),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := modePrefix(mode)

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadScoringConfig() ScoringConfig {
	minScroll, err := strconv.ParseFloat(getEnv("SCORING_MIN_SCROLL", "0.70"), 64)
	if err != nil || minScroll < 0 || minScroll > 1 {
		minScroll = 0.70
	}

	return ScoringConfig{
		MinTimeSpentMs: int64(getEnvInt("SCORING_MIN_TIME_MS", 120000)),
		MinScrollDepth: minScroll,
	}
}

func loadLedgerConfig() (LedgerConfig, error) {
	tz := getEnv("LEDGER_TIMEZONE", "Asia/Karachi")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return LedgerConfig{}, fmt.Errorf("invalid LEDGER_TIMEZONE '%s': %w", tz, err)
	}

	return LedgerConfig{
		Location:    loc,
		EventBuffer: getEnvInt("EVENT_BUFFER", 256),
	}, nil
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         getEnv("REDIS_ADDR", ""),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvInt("REDIS_DB", 0),
		EventChannel: getEnv("REDIS_EVENT_CHANNEL", "ledger.events"),
	}
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer variable, falling back to the default
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://mlmpk.com"
	}
	return origins
}
