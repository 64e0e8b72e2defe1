package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	App       AppConfig       `yaml:"app"`
	Signing   SigningConfig   `yaml:"signing"`
	Mail      MailConfig      `yaml:"mail"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig represents server identity
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents the REST API listener
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents the optional event bus connection
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents session token configuration
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig represents deployment-wide behavior
type AppConfig struct {
	// Timezone is the display zone; daily and weekly boundaries are
	// defined in it. Storage stays UTC.
	Timezone string `yaml:"timezone"`
	// DefaultPlan is the legacy APP_PLAN fallback used when no tenant
	// is in context.
	DefaultPlan string `yaml:"default_plan"`
	BaseURL     string `yaml:"base_url"`
}

// SigningConfig holds the versioned seal keys. Keys is indexed by
// version; rotation deploys a new version while keeping old secrets
// available for verification.
type SigningConfig struct {
	Keys           map[int]string `yaml:"keys"`
	CurrentVersion int            `yaml:"current_version"`
}

// MailConfig represents the SMTP relay
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

// StorageConfig represents the object storage for attachments
type StorageConfig struct {
	BaseURL string        `yaml:"base_url"`
	Bucket  string        `yaml:"bucket"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// SchedulerConfig represents the background job host. Host selects the
// one worker that runs timers; the advisory lock inside each job body
// guards against misconfiguration of this flag.
type SchedulerConfig struct {
	Host             bool          `yaml:"host"`
	ReminderInterval time.Duration `yaml:"reminder_interval"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		c.App.Timezone = tz
	}
	if plan := os.Getenv("APP_PLAN"); plan != "" {
		c.App.DefaultPlan = strings.ToLower(plan)
	}

	// SIGNING_KEY_V1, SIGNING_KEY_V2, ... take precedence over the file
	for version := 1; ; version++ {
		key := os.Getenv(fmt.Sprintf("SIGNING_KEY_V%d", version))
		if key == "" {
			break
		}
		if c.Signing.Keys == nil {
			c.Signing.Keys = make(map[int]string)
		}
		c.Signing.Keys[version] = key
		if version > c.Signing.CurrentVersion {
			c.Signing.CurrentVersion = version
		}
	}

	if host := os.Getenv("MAIL_HOST"); host != "" {
		c.Mail.Host = host
	}
	if port := os.Getenv("MAIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Mail.Port = p
		}
	}
	if user := os.Getenv("MAIL_USERNAME"); user != "" {
		c.Mail.Username = user
	}
	if pass := os.Getenv("MAIL_PASSWORD"); pass != "" {
		c.Mail.Password = pass
	}
	if sender := os.Getenv("MAIL_SENDER"); sender != "" {
		c.Mail.Sender = sender
	}

	if url := os.Getenv("STORAGE_URL"); url != "" {
		c.Storage.BaseURL = url
	}
	if key := os.Getenv("STORAGE_API_KEY"); key != "" {
		c.Storage.APIKey = key
	}
}

// setDefaults fills unset values
func (c *Config) setDefaults() {
	if c.App.Timezone == "" {
		c.App.Timezone = "Europe/Madrid"
	}
	if c.App.DefaultPlan == "" {
		c.App.DefaultPlan = "pro"
	}
	if c.JWT.TokenTTL == 0 {
		c.JWT.TokenTTL = 12 * time.Hour
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Scheduler.ReminderInterval == 0 {
		c.Scheduler.ReminderInterval = 5 * time.Minute
	}
	if c.Storage.Timeout == 0 {
		c.Storage.Timeout = 30 * time.Second
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
}

// validate checks required settings
func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (database.dsn or DATABASE_URL)")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required (jwt.secret or JWT_SECRET)")
	}
	if _, ok := c.Signing.Keys[1]; !ok {
		return fmt.Errorf("SIGNING_KEY_V1 is required for punch seals")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}
	return nil
}

// Location returns the display timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
