package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/viralforge/intranet/credential-service/internal/adapters/security"
	"github.com/viralforge/intranet/credential-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. It is built once at startup
// and passed by value into the components that need it.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	SessionSigningKey security.Secret
	SessionIssuer     string
	SessionTTL        time.Duration

	BcryptCost int

	ResetTokenTTL        time.Duration
	ConfirmationTokenTTL time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration

	RecoveryRateLimitThreshold int
	RecoveryRateLimitWindow    time.Duration

	EmailDriver   string
	EmailFrom     string
	PublicBaseURL string

	KafkaBrokers    []string
	KafkaEmailTopic string
	KafkaEventTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int

	TokenPurgeSchedule string
	TokenRetention     time.Duration

	DefaultProfile     string
	SuperAdminEmail    string
	SuperAdminPassword security.Secret
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Session struct {
		Issuer     string `yaml:"issuer"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"session"`
	Email struct {
		Driver        string `yaml:"driver"`
		From          string `yaml:"from"`
		PublicBaseURL string `yaml:"public_base_url"`
		Topic         string `yaml:"topic"`
	} `yaml:"email"`
	Events struct {
		Topic string `yaml:"topic"`
	} `yaml:"events"`
	TokenPurge struct {
		Schedule       string `yaml:"schedule"`
		RetentionHours int    `yaml:"retention_hours"`
	} `yaml:"token_purge"`
	Profiles struct {
		Default string `yaml:"default"`
	} `yaml:"profiles"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing database, cache or signing key is reported as domain.ErrConfiguration.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                  "credential-service",
		HTTPPort:                   8080,
		GRPCPort:                   9090,
		MaxDBConns:                 20,
		SessionIssuer:              "intranet-credential-service",
		SessionTTL:                 security.DefaultSessionTTL,
		BcryptCost:                 12,
		ResetTokenTTL:              2 * time.Hour,
		ConfirmationTokenTTL:       2 * time.Hour,
		FailedLoginThreshold:       5,
		LockoutDuration:            15 * time.Minute,
		RecoveryRateLimitThreshold: 5,
		RecoveryRateLimitWindow:    15 * time.Minute,
		EmailDriver:                "log",
		EmailFrom:                  "no-reply@intranet.local",
		PublicBaseURL:              "http://localhost:3000",
		KafkaEmailTopic:            "intranet.email.requests",
		KafkaEventTopic:            "intranet.credentials.events",
		OutboxPollInterval:         2 * time.Second,
		OutboxBatchSize:            100,
		OutboxClaimTTL:             30 * time.Second,
		OutboxMaxRetries:           5,
		TokenPurgeSchedule:         "0 0 3 * * *",
		TokenRetention:             7 * 24 * time.Hour,
		DefaultProfile:             "EMPLOYEE",
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("%w: parse config file: %v", domain.ErrConfiguration, unmarshalErr)
		}
		applyFile(&cfg, f)
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.SessionSigningKey = security.Secret(envOrDefault("SESSION_SIGNING_KEY", string(cfg.SessionSigningKey)))
	cfg.SessionIssuer = envOrDefault("SESSION_ISSUER", cfg.SessionIssuer)
	cfg.EmailDriver = strings.ToLower(strings.TrimSpace(envOrDefault("EMAIL_DRIVER", cfg.EmailDriver)))
	cfg.EmailFrom = envOrDefault("EMAIL_FROM", cfg.EmailFrom)
	cfg.PublicBaseURL = envOrDefault("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaEmailTopic = envOrDefault("KAFKA_EMAIL_TOPIC", cfg.KafkaEmailTopic)
	cfg.KafkaEventTopic = envOrDefault("KAFKA_EVENT_TOPIC", cfg.KafkaEventTopic)
	cfg.TokenPurgeSchedule = envOrDefault("TOKEN_PURGE_SCHEDULE", cfg.TokenPurgeSchedule)
	cfg.DefaultProfile = envOrDefault("DEFAULT_PROFILE", cfg.DefaultProfile)
	cfg.SuperAdminEmail = envOrDefault("SUPER_ADMIN_EMAIL", cfg.SuperAdminEmail)
	cfg.SuperAdminPassword = security.Secret(envOrDefault("SUPER_ADMIN_PASSWORD", string(cfg.SuperAdminPassword)))

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedLoginThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedLoginThreshold)
	cfg.RecoveryRateLimitThreshold = envInt("RECOVERY_RATE_LIMIT_THRESHOLD", cfg.RecoveryRateLimitThreshold)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	cfg.SessionTTL = envMinutes("SESSION_TTL_MINUTES", cfg.SessionTTL)
	cfg.ResetTokenTTL = envMinutes("RESET_TOKEN_TTL_MINUTES", cfg.ResetTokenTTL)
	cfg.ConfirmationTokenTTL = envMinutes("CONFIRMATION_TOKEN_TTL_MINUTES", cfg.ConfirmationTokenTTL)
	cfg.LockoutDuration = envMinutes("ACCOUNT_LOCKOUT_MINUTES", cfg.LockoutDuration)
	cfg.RecoveryRateLimitWindow = time.Duration(envInt("RECOVERY_RATE_LIMIT_WINDOW_SECONDS", int(cfg.RecoveryRateLimitWindow.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.TokenRetention = time.Duration(envInt("TOKEN_RETENTION_HOURS", int(cfg.TokenRetention.Hours()))) * time.Hour

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	if f.Session.Issuer != "" {
		cfg.SessionIssuer = f.Session.Issuer
	}
	if f.Session.TTLMinutes > 0 {
		cfg.SessionTTL = time.Duration(f.Session.TTLMinutes) * time.Minute
	}
	if f.Email.Driver != "" {
		cfg.EmailDriver = f.Email.Driver
	}
	if f.Email.From != "" {
		cfg.EmailFrom = f.Email.From
	}
	if f.Email.PublicBaseURL != "" {
		cfg.PublicBaseURL = f.Email.PublicBaseURL
	}
	if f.Email.Topic != "" {
		cfg.KafkaEmailTopic = f.Email.Topic
	}
	if f.Events.Topic != "" {
		cfg.KafkaEventTopic = f.Events.Topic
	}
	if f.TokenPurge.Schedule != "" {
		cfg.TokenPurgeSchedule = f.TokenPurge.Schedule
	}
	if f.TokenPurge.RetentionHours > 0 {
		cfg.TokenRetention = time.Duration(f.TokenPurge.RetentionHours) * time.Hour
	}
	if f.Profiles.Default != "" {
		cfg.DefaultProfile = f.Profiles.Default
	}
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: missing DB_URL/POSTGRES_URL", domain.ErrConfiguration)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("%w: missing REDIS_URL", domain.ErrConfiguration)
	}
	if strings.TrimSpace(string(c.SessionSigningKey)) == "" {
		return fmt.Errorf("%w: missing SESSION_SIGNING_KEY", domain.ErrConfiguration)
	}
	switch c.EmailDriver {
	case "log":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: EMAIL_DRIVER=kafka requires KAFKA_BROKERS", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown EMAIL_DRIVER %q", domain.ErrConfiguration, c.EmailDriver)
	}
	return nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envMinutes(name string, fallback time.Duration) time.Duration {
	return time.Duration(envInt(name, int(fallback.Minutes()))) * time.Minute
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
