package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Guard    GuardConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// GuardConfig carries the admin access policy knobs. Defaults mirror the
// production policy: five strikes per quarter hour, hour-long lockouts,
// four-hour sessions with a thirty-minute idle ceiling.
type GuardConfig struct {
	LoginMaxAttempts   int
	LoginWindow        time.Duration
	LoginBlockDuration time.Duration

	LockoutThreshold  int
	LockDuration      time.Duration
	UsernameWindow    time.Duration
	IPWindow          time.Duration
	MaxUsernameFails  int
	MaxIPFails        int

	SessionAbsoluteTTL time.Duration
	SessionIdleTimeout time.Duration

	AllowedIPs []string

	AttemptRetention time.Duration
	AuditRetention   time.Duration
	CleanupInterval  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gatekeeper"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Guard: GuardConfig{
			LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:        getEnvAsDuration("LOGIN_WINDOW", 15*time.Minute),
			LoginBlockDuration: getEnvAsDuration("LOGIN_BLOCK_DURATION", 15*time.Minute),

			LockoutThreshold: getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			LockDuration:     getEnvAsDuration("LOCKOUT_DURATION", 1*time.Hour),
			UsernameWindow:   getEnvAsDuration("LOCKOUT_USERNAME_WINDOW", 1*time.Hour),
			IPWindow:         getEnvAsDuration("LOCKOUT_IP_WINDOW", 2*time.Hour),
			MaxUsernameFails: getEnvAsInt("LOCKOUT_MAX_USERNAME_FAILS", 10),
			MaxIPFails:       getEnvAsInt("LOCKOUT_MAX_IP_FAILS", 20),

			SessionAbsoluteTTL: getEnvAsDuration("SESSION_ABSOLUTE_TTL", 4*time.Hour),
			SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

			AllowedIPs: getEnvAsList("ADMIN_ALLOWED_IPS", nil),

			AttemptRetention: getEnvAsDuration("ATTEMPT_RETENTION", 24*time.Hour),
			AuditRetention:   getEnvAsDuration("AUDIT_RETENTION", 90*24*time.Hour),
			CleanupInterval:  getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateGuard(&cfg.Guard); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateGuard rejects configurations that would silently disable protection
func validateGuard(g *GuardConfig) error {
	if g.LoginMaxAttempts < 1 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be at least 1")
	}
	if g.LockoutThreshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be at least 1")
	}
	if g.SessionIdleTimeout > g.SessionAbsoluteTTL {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT cannot exceed SESSION_ABSOLUTE_TTL")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
