package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lessonplanner/internal/drag"
	"lessonplanner/internal/placement"
	"lessonplanner/internal/slots"
)

// PathEnv overrides the default config path.
const PathEnv = "PLANNER_CONFIG_PATH"

const defaultPath = "configs/config.yaml"

// BackupConfig configures periodic database copies.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Interval returns the backup period, one day by default.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		APIKey      string   `yaml:"api_key"`
		CORSOrigins []string `yaml:"cors_origins"`
		BulkRate    float64  `yaml:"bulk_rate_per_second"`
		BulkBurst   int      `yaml:"bulk_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Client struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"client"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Scheduler struct {
		HorizonDays   int    `yaml:"horizon_days"`
		PreviewLength int    `yaml:"preview_length"`
		PeriodPolicy  string `yaml:"period_policy"`
	} `yaml:"scheduler"`

	HolidaysPath string `yaml:"holidays_path"`
}

// Load reads the YAML config at path, falling back to $PLANNER_CONFIG_PATH
// and then configs/config.yaml. A .env file next to the working directory is
// loaded first so its variables can be referenced as ${VAR}.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path == "" {
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BulkRate <= 0 {
		c.Server.BulkRate = 2
	}
	if c.Server.BulkBurst <= 0 {
		c.Server.BulkBurst = 5
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/lessonplanner.db"
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8081
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Scheduler.HorizonDays <= 0 {
		c.Scheduler.HorizonDays = slots.DefaultHorizon
	}
	if c.Scheduler.PreviewLength <= 0 {
		c.Scheduler.PreviewLength = placement.DefaultPreviewLength
	}
	if c.Scheduler.PeriodPolicy == "" {
		c.Scheduler.PeriodPolicy = string(drag.PolicyKeep)
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if _, err := drag.ParsePeriodPolicy(c.Scheduler.PeriodPolicy); err != nil {
		return fmt.Errorf("scheduler.period_policy: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: invalid port %d", c.Server.Port)
	}
	return nil
}

// PeriodPolicy returns the validated drag period policy.
func (c *Config) PeriodPolicy() drag.PeriodPolicy {
	p, _ := drag.ParsePeriodPolicy(c.Scheduler.PeriodPolicy)
	return p
}

// CacheTTL returns the client's Redis cache lifetime; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Client.CacheTTLSeconds) * time.Second
}
