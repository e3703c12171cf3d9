// Package config loads and validates outreach configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Places    PlacesConfig   `mapstructure:"places"`
	Scraper   ScraperConfig  `mapstructure:"scraper"`
	Headless  HeadlessConfig `mapstructure:"headless"`
	Jobs      JobsConfig     `mapstructure:"jobs"`
	Storage   StorageConfig  `mapstructure:"storage"`
	Archive   ArchiveConfig  `mapstructure:"archive"`
	SMTP      SMTPConfig     `mapstructure:"smtp"`
	PubSub    PubSubConfig   `mapstructure:"pubsub"`
	Logging   LoggingConfig  `mapstructure:"logging"`
	Countries []string       `mapstructure:"countries"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	BaseURL        string        `mapstructure:"base_url"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// PlacesConfig configures the external places directory.
type PlacesConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	PageInterval      time.Duration `mapstructure:"page_interval"`
	DetailConcurrency int           `mapstructure:"detail_concurrency"`
	DefaultLocale     string        `mapstructure:"default_locale"`
}

// ScraperConfig governs website fetching for contact discovery.
type ScraperConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
	HostRPS      float64       `mapstructure:"host_rps"`
	HostBurst    int           `mapstructure:"host_burst"`
}

// HeadlessConfig configures the optional chromedp re-fetch of script-heavy sites.
type HeadlessConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxParallel     int           `mapstructure:"max_parallel"`
	NavTimeout      time.Duration `mapstructure:"nav_timeout"`
	Settle          time.Duration `mapstructure:"settle"`
	PromotionThresh int           `mapstructure:"promotion_threshold"`
}

// JobsConfig sizes the orchestrator.
type JobsConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueDepth  int `mapstructure:"queue_depth"`
	Workers     int `mapstructure:"workers"`
}

// StorageConfig selects and configures the venue/job repositories.
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// ArchiveConfig controls where scraped pages are archived.
type ArchiveConfig struct {
	Backend     string `mapstructure:"backend"`
	Bucket      string `mapstructure:"bucket"`
	BaseDir     string `mapstructure:"base_dir"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
	Gzip        bool   `mapstructure:"gzip"`
}

// SMTPConfig configures outbound mail delivery.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	SSL      bool   `mapstructure:"ssl"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// PubSubConfig holds metadata for exporting progress events.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("places.page_interval", "3s")
	v.SetDefault("places.detail_concurrency", 8)
	v.SetDefault("places.default_locale", "de-CH")
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/103.0.0.0 Safari/537.36")
	v.SetDefault("scraper.timeout", "10s")
	v.SetDefault("scraper.max_body_bytes", 5*1024*1024)
	v.SetDefault("scraper.host_rps", 2.0)
	v.SetDefault("scraper.host_burst", 2)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout", "25s")
	v.SetDefault("headless.settle", "500ms")
	v.SetDefault("headless.promotion_threshold", 60)
	v.SetDefault("jobs.concurrency", 60)
	v.SetDefault("jobs.queue_depth", 16)
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "file:outreach.db?_pragma=busy_timeout(5000)")
	v.SetDefault("storage.max_conns", 8)
	v.SetDefault("storage.min_conns", 1)
	v.SetDefault("storage.max_conn_lifetime", "30m")
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("archive.content_type", "text/html; charset=utf-8")
	v.SetDefault("archive.gzip", true)
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.ssl", true)
	v.SetDefault("smtp.from", "info@vegan-gastro.com")
	v.SetDefault("logging.development", true)
	v.SetDefault("countries", []string{"CH", "DE"})
}

// bindLegacyEnv maps the unprefixed variables the deployment already exports.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"places.api_key": {"OUTREACH_PLACES_API_KEY", "GOOGLE_API_KEY"},
		"storage.dsn":    {"OUTREACH_STORAGE_DSN", "DB_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if c.Places.PageInterval < 0 {
		return fmt.Errorf("places.page_interval must be >= 0")
	}
	if c.Places.DetailConcurrency <= 0 {
		return fmt.Errorf("places.detail_concurrency must be > 0")
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper.timeout must be > 0")
	}
	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs.concurrency must be > 0")
	}
	if c.Jobs.QueueDepth <= 0 {
		return fmt.Errorf("jobs.queue_depth must be > 0")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	switch c.Archive.Backend {
	case "", "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required for the local backend")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend %q is not supported", c.Archive.Backend)
	}
	if c.SMTP.Host != "" && c.SMTP.Port <= 0 {
		return fmt.Errorf("smtp.port must be > 0 when smtp.host is set")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}
