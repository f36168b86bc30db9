package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// EnvPrefix is prepended to every environment override, e.g. RHBOOK_MYSQL_DSN.
const EnvPrefix = "RHBOOK"

// ---- Root ----

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	MySQL      DatabaseConfig   `mapstructure:"mysql"`
	ClickHouse DatabaseConfig   `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Booking    BookingConfig    `mapstructure:"booking"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Providers  []ProviderConfig `mapstructure:"providers"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json | console
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	StoreTimeout    time.Duration `mapstructure:"store_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	Topic          string   `mapstructure:"topic"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"` // per client IP on the public intake route, 0 disables
}

type BookingConfig struct {
	HomeRegion      string `mapstructure:"home_region"`
	CodeMaxAttempts int    `mapstructure:"code_max_attempts"`
	CommitAttempts  int    `mapstructure:"commit_attempts"`
	MessageMaxLen   int    `mapstructure:"message_max_len"`
}

// AdminConfig carries the fixed administrative identity. It is read once at
// startup and handed to the components that need it.
type AdminConfig struct {
	Name        string        `mapstructure:"name"`
	Phone       string        `mapstructure:"phone"`
	RedirectURL string        `mapstructure:"redirect_url"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

type NotifierConfig struct {
	WorkerCount      int           `mapstructure:"worker_count"`
	BatchSize        int           `mapstructure:"batch_size"`
	BatchWait        time.Duration `mapstructure:"batch_wait"`
	MaxRetryAttempts int           `mapstructure:"max_retry_attempts"`
	Template         string        `mapstructure:"template"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type ProviderConfig struct {
	Name      string        `mapstructure:"name"`
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	SendPath  string        `mapstructure:"send_path"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (RHBOOK_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, fmt.Errorf("read defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			// a missing file keeps the defaults; a broken one is fatal
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("merge %s: %w", path, err)
			}
		}
	}

	// env override (RHBOOK_*), nested keys use "_" (mysql.dsn -> RHBOOK_MYSQL_DSN)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the booking pipeline cannot run with.
func (c Config) Validate() error {
	if len(strings.TrimSpace(c.Booking.HomeRegion)) != 2 {
		return fmt.Errorf("booking.home_region must be a two-letter region code, got %q", c.Booking.HomeRegion)
	}
	if c.Booking.CodeMaxAttempts <= 0 {
		return fmt.Errorf("booking.code_max_attempts must be positive")
	}
	if c.Booking.CommitAttempts <= 0 {
		return fmt.Errorf("booking.commit_attempts must be positive")
	}
	if c.Booking.MessageMaxLen <= 0 {
		return fmt.Errorf("booking.message_max_len must be positive")
	}
	if c.Admin.Name == "" || c.Admin.Phone == "" {
		return fmt.Errorf("admin.name and admin.phone are required")
	}
	if !strings.HasPrefix(c.Admin.RedirectURL, "/admin/") {
		return fmt.Errorf("admin.redirect_url must be a path under /admin/, got %q", c.Admin.RedirectURL)
	}
	return nil
}
