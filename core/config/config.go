package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// StreamConfig holds the chat platform credentials and the command wiring used by setup.
type StreamConfig struct {
	APIKey    string `yaml:"api_key" envconfig:"STREAM_API_KEY"`
	APISecret string `yaml:"api_secret" envconfig:"STREAM_API_SECRET"`
	BaseURL   string `yaml:"base_url" envconfig:"STREAM_BASE_URL"`
	// ActionURL is the public URL the platform calls for custom commands.
	ActionURL   string `yaml:"action_url" envconfig:"STREAM_ACTION_URL"`
	CommandSet  string `yaml:"command_set" envconfig:"STREAM_COMMAND_SET"`
	ChannelType string `yaml:"channel_type" envconfig:"STREAM_CHANNEL_TYPE"`
}

// ServerConfig specifies the webhook listener.
type ServerConfig struct {
	Listen       string `yaml:"listen" envconfig:"SERVER_LISTEN"`
	Port         int    `yaml:"port" envconfig:"PORT"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" envconfig:"SERVER_MAX_BODY_BYTES"`
	// ShutdownTimeoutSeconds bounds graceful shutdown; 0 -> default
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" envconfig:"SERVER_SHUTDOWN_TIMEOUT_SECONDS"`
}

// FlowConfig tunes the appointment wizard.
type FlowConfig struct {
	DurationMinutes int    `yaml:"duration_minutes" envconfig:"FLOW_DURATION_MINUTES"`
	DefaultSlot     string `yaml:"default_slot" envconfig:"FLOW_DEFAULT_SLOT"`
	Description     string `yaml:"description" envconfig:"FLOW_DESCRIPTION"`
	Location        string `yaml:"location" envconfig:"FLOW_LOCATION"`
}

// StoreConfig selects where finalized appointments are recorded.
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"STORE_DRIVER"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// TelegramConfig enables booking notifications to an admin chat. Both fields empty disables it.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level     string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format    string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder string `yaml:"keys_order"`
	Dir       string `yaml:"dir"`
	File      string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// StoreDriverPostgres records appointments in Postgres.
	StoreDriverPostgres = "postgres"
	// StoreDriverLog only logs appointments.
	StoreDriverLog = "log"
)

const (
	defaultBaseURL     = "https://chat.stream-io-api.com"
	defaultCommandSet  = "mml_commands_set"
	defaultChannelType = "messaging"
	defaultPort        = 8000
	defaultMaxBody     = 1 << 20
	defaultShutdown    = 10
	defaultDuration    = 30
	defaultSlot        = "2021-03-15T10:30:00.000Z"
	defaultDescription = "Your appointment with stream"
	defaultLocation    = "Stream, Amsterdam"
)

// Config aggregates the service configuration.
type Config struct {
	Stream   StreamConfig   `yaml:"stream"`
	Server   ServerConfig   `yaml:"server"`
	Flow     FlowConfig     `yaml:"flow"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
// An empty path skips the file and relies on the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Stream.APIKey) == "" {
		return fmt.Errorf("stream.api_key is required")
	}
	if strings.TrimSpace(cfg.Stream.APISecret) == "" {
		return fmt.Errorf("stream.api_secret is required")
	}
	if cfg.Stream.BaseURL == "" {
		cfg.Stream.BaseURL = defaultBaseURL
	}
	cfg.Stream.BaseURL = strings.TrimRight(cfg.Stream.BaseURL, "/")
	if cfg.Stream.ActionURL != "" {
		u, err := url.Parse(cfg.Stream.ActionURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid stream.action_url %q; expected absolute URL", cfg.Stream.ActionURL)
		}
	}
	if cfg.Stream.CommandSet == "" {
		cfg.Stream.CommandSet = defaultCommandSet
	}
	if cfg.Stream.ChannelType == "" {
		cfg.Stream.ChannelType = defaultChannelType
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be within 1..65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = defaultMaxBody
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = defaultShutdown
	}

	if cfg.Flow.DurationMinutes == 0 {
		cfg.Flow.DurationMinutes = defaultDuration
	}
	if cfg.Flow.DurationMinutes < 0 {
		return fmt.Errorf("flow.duration_minutes must be > 0")
	}
	if cfg.Flow.DefaultSlot == "" {
		cfg.Flow.DefaultSlot = defaultSlot
	}
	if _, err := time.Parse(time.RFC3339Nano, cfg.Flow.DefaultSlot); err != nil {
		return fmt.Errorf("invalid flow.default_slot %q: %w", cfg.Flow.DefaultSlot, err)
	}
	if cfg.Flow.Description == "" {
		cfg.Flow.Description = defaultDescription
	}
	if cfg.Flow.Location == "" {
		cfg.Flow.Location = defaultLocation
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if driver == "" {
		driver = StoreDriverLog
	}
	switch driver {
	case StoreDriverLog:
	case "postgresql", "pg":
		driver = StoreDriverPostgres
		fallthrough
	case StoreDriverPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required when store.driver is 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	default:
		return fmt.Errorf("invalid store.driver %q; allowed: postgres, log", cfg.Store.Driver)
	}
	cfg.Store.Driver = driver

	if (cfg.Telegram.Token == "") != (cfg.Telegram.AdminID == 0) {
		return fmt.Errorf("telegram.token and telegram.admin_id must be set together")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Listen, s.Port)
}

// NotifyEnabled reports whether Telegram notifications are configured.
func (t TelegramConfig) NotifyEnabled() bool {
	return t.Token != "" && t.AdminID != 0
}
