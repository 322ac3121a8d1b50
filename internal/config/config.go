package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	BodyLimit     string   `mapstructure:"BODY_LIMIT"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	VerificationCodeTTL time.Duration `mapstructure:"VERIFICATION_CODE_TTL"`
	CodePurgeSchedule   string        `mapstructure:"CODE_PURGE_SCHEDULE"`
	CodePurgeGrace      time.Duration `mapstructure:"CODE_PURGE_GRACE"`

	ReminderSchedule          string        `mapstructure:"REMINDER_SCHEDULE"`
	ReminderWindowDays        int           `mapstructure:"REMINDER_WINDOW_DAYS"`
	ReminderDedupWindow       time.Duration `mapstructure:"REMINDER_DEDUP_WINDOW"`
	ReminderTransitionOverdue bool          `mapstructure:"REMINDER_TRANSITION_OVERDUE"`

	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"CORS_ORIGINS", "BODY_LIMIT",
	"JWT_SECRET", "JWT_TTL",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"VERIFICATION_CODE_TTL", "CODE_PURGE_SCHEDULE", "CODE_PURGE_GRACE",
	"REMINDER_SCHEDULE", "REMINDER_WINDOW_DAYS", "REMINDER_DEDUP_WINDOW", "REMINDER_TRANSITION_OVERDUE",
	"AMQP_URL", "AMQP_EXCHANGE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("JWT_TTL", "720h")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("VERIFICATION_CODE_TTL", "48h")
	v.SetDefault("CODE_PURGE_SCHEDULE", "@hourly")
	v.SetDefault("CODE_PURGE_GRACE", "24h")
	// robfig/cron specs carry a leading seconds field.
	v.SetDefault("REMINDER_SCHEDULE", "0 0 8 * * *")
	v.SetDefault("REMINDER_WINDOW_DAYS", 7)
	v.SetDefault("REMINDER_DEDUP_WINDOW", "0s")
	v.SetDefault("REMINDER_TRANSITION_OVERDUE", false)
	v.SetDefault("AMQP_EXCHANGE", "clinic.notifications")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey returns the HMAC key used for access tokens. Development
// falls back to a fixed key so the server can start without a secret.
func (c *Config) SigningKey() []byte {
	if c.JWTSecret == "" && c.IsDev() {
		return []byte("development-only-signing-key")
	}
	return []byte(c.JWTSecret)
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production, got %d", len(c.JWTSecret))
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.VerificationCodeTTL <= 0 {
		return fmt.Errorf("VERIFICATION_CODE_TTL must be positive, got %s", c.VerificationCodeTTL)
	}
	if c.ReminderWindowDays <= 0 {
		return fmt.Errorf("REMINDER_WINDOW_DAYS must be positive, got %d", c.ReminderWindowDays)
	}
	if c.ReminderDedupWindow < 0 {
		return fmt.Errorf("REMINDER_DEDUP_WINDOW must not be negative, got %s", c.ReminderDedupWindow)
	}
	if c.ReminderSchedule == "" {
		return fmt.Errorf("REMINDER_SCHEDULE is required")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// ReminderWindow is the look-ahead used when scanning for upcoming doses.
func (c *Config) ReminderWindow() time.Duration {
	return time.Duration(c.ReminderWindowDays) * 24 * time.Hour
}
