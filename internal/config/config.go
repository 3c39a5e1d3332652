package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the posync client.
type Config struct {
	Sync    Sync    `yaml:"sync"`
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Sync configures the real-time connection to the POS backend.
type Sync struct {
	URL         string        `yaml:"url"`
	AuthToken   string        `yaml:"auth_token"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	SendBuffer  int           `yaml:"send_buffer"`
	ReadLimit   int64         `yaml:"read_limit"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir          string        `yaml:"data_dir"`
	SQLitePath       string        `yaml:"sqlite_path"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port for net/http.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ErrMissingURL is returned by Validate when no sync URL is configured.
var ErrMissingURL = errors.New("sync.url is required")

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides, and fills defaults. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	if c.Sync.URL == "" {
		return ErrMissingURL
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("POSYNC_SYNC_URL"); v != "" {
		cfg.Sync.URL = v
	}
	if v := os.Getenv("POSYNC_AUTH_TOKEN"); v != "" {
		cfg.Sync.AuthToken = v
	}
	if v := os.Getenv("POSYNC_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POSYNC_MAX_ATTEMPTS: %w", err)
		}
		cfg.Sync.MaxAttempts = n
	}
	if v := os.Getenv("POSYNC_BASE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("POSYNC_BASE_DELAY: %w", err)
		}
		cfg.Sync.BaseDelay = d
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("POSYNC_HTTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POSYNC_HTTP_PORT: %w", err)
		}
		cfg.Server.Port = n
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Sync.BaseDelay <= 0 {
		cfg.Sync.BaseDelay = time.Second
	}
	if cfg.Sync.MaxAttempts <= 0 {
		cfg.Sync.MaxAttempts = 5
	}
	if cfg.Sync.DialTimeout <= 0 {
		cfg.Sync.DialTimeout = 10 * time.Second
	}
	if cfg.Sync.SendBuffer <= 0 {
		cfg.Sync.SendBuffer = 64
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SnapshotInterval <= 0 {
		cfg.Storage.SnapshotInterval = 30 * time.Second
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
