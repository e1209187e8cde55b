package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server            Server            `mapstructure:"server"`
	Database          Database          `mapstructure:"database"`
	Storage           Storage           `mapstructure:"storage"`
	Kafka             Kafka             `mapstructure:"kafka"`
	Retry             Retry             `mapstructure:"retry"`
	Redis             Redis             `mapstructure:"redis"`
	RateLimit         RateLimit         `mapstructure:"rate_limit"`
	PixVerse          PixVerse          `mapstructure:"pixverse"`
	Gateway           Gateway           `mapstructure:"gateway"`
	BackgroundRemoval BackgroundRemoval `mapstructure:"background_removal"`
	Assets            Assets            `mapstructure:"assets"`
	HTTPClient        HTTPClient        `mapstructure:"http_client"`
	Orchestrator      Orchestrator      `mapstructure:"orchestrator"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort       string   `mapstructure:"http_port"`       // HTTP port to listen on
	TrustedProxies []string `mapstructure:"trusted_proxies"` // CIDRs allowed to set X-Forwarded-For
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Storage holds configuration for the MinIO bucket with photos,
// cartoon references and stamped images.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the submission queue.
type Kafka struct {
	GroupID string   `mapstructure:"group_id"` // Consumer group ID
	Topic   string   `mapstructure:"topic"`    // Kafka topic name
	Brokers []string `mapstructure:"brokers"`  // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Redis holds the progress cache connection.
type Redis struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	ProgressTTL time.Duration `mapstructure:"progress_ttl"` // how long submission progress is kept
}

// RateLimit limits write requests per client. Limit 0 disables it.
type RateLimit struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// PixVerse configures the video provider. Empty fields use the client defaults.
type PixVerse struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	Quality        string `mapstructure:"quality"`
	MotionMode     string `mapstructure:"motion_mode"`
	NegativePrompt string `mapstructure:"negative_prompt"`
	AspectRatio    string `mapstructure:"aspect_ratio"`
}

// Gateway selects where the orchestrator sends provider calls. With an empty
// BaseURL the in-process gateway is used, otherwise a remote proxy.
type Gateway struct {
	BaseURL string `mapstructure:"base_url"`
}

// BackgroundRemoval configures the sidecar. An empty BaseURL disables it.
type BackgroundRemoval struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Assets are optional files for the image processor. Empty paths select
// the built-in gradient and the embedded Go fonts.
type Assets struct {
	BackgroundPath  string `mapstructure:"background_path"`
	BoldFontPath    string `mapstructure:"bold_font_path"`
	RegularFontPath string `mapstructure:"regular_font_path"`
}

// HTTPClient configures outbound HTTP.
type HTTPClient struct {
	PreferIPv4 bool          `mapstructure:"prefer_ipv4"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Orchestrator configures status polling.
type Orchestrator struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",
		"storage.endpoint":     "MINIO_ENDPOINT",
		"storage.access_key":   "MINIO_ACCESS_KEY",
		"storage.secret_key":   "MINIO_SECRET_KEY",
		"redis.addr":           "REDIS_ADDR",
		"redis.password":       "REDIS_PASSWORD",
		"pixverse.api_key":     "PIXVERSE_API_KEY",
		"gateway.base_url":     "GATEWAY_BASE_URL",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// Variables from a .env file in the working directory are loaded first
// when the file exists. It panics if the configuration cannot be loaded
// or unmarshaled.
func MustLoad(path string) *Config {
	if err := godotenv.Load(); err != nil {
		zlog.Logger.Debug().Err(err).Msg("no .env file loaded")
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
