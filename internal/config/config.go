package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix  = "SCAN_GATE"
	dotEnvFile = ".env"

	// MaxPollBudget batas interval × max_attempts
	MaxPollBudget = 24 * time.Hour
)

type Config struct {
	APIKey      string `mapstructure:"api_key"`
	Environment string `mapstructure:"environment"`

	ScanAPI  ScanAPIConfig  `mapstructure:"scan_api"`
	Poll     PollConfig     `mapstructure:"poll"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	AI       AIConfig       `mapstructure:"ai"`
	Queue    QueueConfig    `mapstructure:"queue"`
}

type ScanAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type ServerConfig struct {
	Port            int               `mapstructure:"port"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	ClientKeys      map[string]string `mapstructure:"client_keys"` // client name -> key
	CORSOrigins     []string          `mapstructure:"cors_origins"`
	RunsPerMinute   int               `mapstructure:"runs_per_minute"`
	RunBurst        int               `mapstructure:"run_burst"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // memory | mysql | postgres
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type ArchiveConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

type AIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type QueueConfig struct {
	URL         string `mapstructure:"url"`
	Region      string `mapstructure:"region"`
	WaitSeconds int32  `mapstructure:"wait_seconds"`
}

// Load baca .env, file YAML (opsional), env vars lalu flags; yang belakangan menang.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if envMap, err := godotenv.Read(dotEnvFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var fromFile map[string]any
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := v.MergeConfigMap(fromFile); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvs(v); err != nil {
		return nil, err
	}
	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")
	v.SetDefault("scan_api.timeout", 30*time.Second)
	v.SetDefault("poll.interval", 3*time.Second)
	v.SetDefault("poll.max_attempts", 1200)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.runs_per_minute", 30)
	v.SetDefault("server.run_burst", 10)
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("queue.wait_seconds", 20)
}

// bindEnvs registers nested keys for AutomaticEnv and the GitHub Action input names.
func bindEnvs(v *viper.Viper) error {
	aliases := map[string][]string{
		"api_key":     {EnvPrefix + "_API_KEY", "INPUT_API-KEY", "INPUT_API_KEY"},
		"environment": {EnvPrefix + "_ENVIRONMENT", "INPUT_ENVIRONMENT"},
	}
	for key, names := range aliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	keys := []string{
		"scan_api.base_url", "scan_api.timeout",
		"poll.interval", "poll.max_attempts",
		"log.level", "log.file",
		"server.port", "server.shutdown_timeout", "server.runs_per_minute", "server.run_burst",
		"database.driver", "database.host", "database.port", "database.user",
		"database.password", "database.name", "database.ssl_mode",
		"archive.endpoint", "archive.access_key", "archive.secret_key",
		"archive.bucket_name", "archive.region", "archive.use_ssl",
		"ai.api_key", "ai.model",
		"queue.url", "queue.region", "queue.wait_seconds",
	}
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return fmt.Errorf("bind env %s: %w", k, err)
		}
	}
	return nil
}

// flag name -> config key
var flagKeys = map[string]string{
	"api-key":     "api_key",
	"environment": "environment",
	"base-url":    "scan_api.base_url",
	"log-level":   "log.level",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// RegisterFlags adds the flags understood by Load.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to YAML config file")
	flags.String("api-key", "", "API key for the scanning service")
	flags.String("environment", "", "target environment: production, staging or dev")
	flags.String("base-url", "", "override the scanning service base URL")
	flags.String("log-level", "", "log level: debug, info, warn, error")
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("api key is required (api-key input or SCAN_GATE_API_KEY)")
	}
	if c.Poll.Interval <= 0 {
		return errors.New("poll.interval must be positive")
	}
	if c.Poll.MaxAttempts <= 0 {
		return errors.New("poll.max_attempts must be positive")
	}
	if int64(c.Poll.MaxAttempts) > int64(MaxPollBudget/c.Poll.Interval) {
		return fmt.Errorf("poll.interval × poll.max_attempts must not exceed %s", MaxPollBudget)
	}
	if c.ScanAPI.BaseURL != "" {
		u, err := url.Parse(c.ScanAPI.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("scan_api.base_url %q is not an http(s) URL", c.ScanAPI.BaseURL)
		}
	}
	switch c.Database.Driver {
	case "", "memory", "mysql", "postgres":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
