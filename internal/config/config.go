package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Guard    GuardConfig
	Email    EmailConfig
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

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type AuthConfig struct {
	JWTSecret          string
	SessionTokenExpiry time.Duration
	TOTPIssuer         string
	TOTPEncryptionKey  []byte // 32-byte AES-256 key, hex-encoded in env
	DevTOTPCode        string // accepted only outside production
}

// GuardConfig holds the security guard's thresholds and timers.
type GuardConfig struct {
	MaxSessionAge        time.Duration
	InactivityTimeout    time.Duration
	SessionCheckInterval time.Duration

	SweepInterval       time.Duration
	EscalationThreshold int
	EscalationWindow    time.Duration
	EscalationDuration  time.Duration

	EventRingSize    int
	MirrorQueueSize  int
	MirrorRetries    int
	MirrorRetryDelay time.Duration

	AttemptCleanupInterval time.Duration

	// Server-side lockout parameters applied by the credential store
	MaxFailedLogins int
	LockoutDuration time.Duration

	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

type EmailConfig struct {
	AWSRegion    string
	FromAddress  string
	ResetURLBase string
	TokenExpiry  time.Duration
	AlertAddress string // escalation alerts; empty disables alert mail
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	totpKey, err := parseTOTPEncryptionKey(getEnv("TOTP_ENCRYPTION_KEY", ""), env)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "hostguard"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			SessionTokenExpiry: getEnvAsDuration("SESSION_TOKEN_EXPIRY", 8*time.Hour),
			TOTPIssuer:         getEnv("TOTP_ISSUER", "HostAll Admin"),
			TOTPEncryptionKey:  totpKey,
			DevTOTPCode:        getEnv("DEV_TOTP_CODE", "123456"),
		},
		Guard: GuardConfig{
			MaxSessionAge:        getEnvAsDuration("MAX_SESSION_AGE", 8*time.Hour),
			InactivityTimeout:    getEnvAsDuration("INACTIVITY_TIMEOUT", 30*time.Minute),
			SessionCheckInterval: getEnvAsDuration("SESSION_CHECK_INTERVAL", 15*time.Minute),

			SweepInterval:       getEnvAsDuration("SWEEP_INTERVAL", time.Minute),
			EscalationThreshold: getEnvAsInt("ESCALATION_THRESHOLD", 50),
			EscalationWindow:    getEnvAsDuration("ESCALATION_WINDOW", time.Hour),
			EscalationDuration:  getEnvAsDuration("ESCALATION_DURATION", time.Hour),

			EventRingSize:    getEnvAsInt("EVENT_RING_SIZE", 1000),
			MirrorQueueSize:  getEnvAsInt("MIRROR_QUEUE_SIZE", 256),
			MirrorRetries:    getEnvAsInt("MIRROR_RETRIES", 3),
			MirrorRetryDelay: getEnvAsDuration("MIRROR_RETRY_DELAY", 2*time.Second),

			AttemptCleanupInterval: getEnvAsDuration("ATTEMPT_CLEANUP_INTERVAL", 5*time.Minute),

			MaxFailedLogins: getEnvAsInt("MAX_FAILED_LOGINS", 5),
			LockoutDuration: getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),

			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Email: EmailConfig{
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "no-reply@hostall.example"),
			ResetURLBase: getEnv("RESET_URL_BASE", "http://localhost:8080"),
			TokenExpiry:  getEnvAsDuration("RESET_TOKEN_EXPIRY", time.Hour),
			AlertAddress: getEnv("SECURITY_ALERT_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseTOTPEncryptionKey decodes the hex-encoded AES-256 key. Outside
// production a missing key falls back to a fixed development key so the
// service stays runnable without setup.
func parseTOTPEncryptionKey(raw, env string) ([]byte, error) {
	if raw == "" {
		if env == "production" {
			return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY is required in production")
		}
		return []byte("hostguard-development-key-32byte"), nil
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
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
