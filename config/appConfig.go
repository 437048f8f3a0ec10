package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gotourism_loader/internal/loader/normalize"
)

type ATDWConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Language          string        `mapstructure:"language"`
	PageSize          int           `mapstructure:"page_size"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffFactor     float64       `mapstructure:"backoff_factor"`
	DefaultRetryAfter time.Duration `mapstructure:"default_retry_after"`
	// RetryDelay is the base wait after a network error.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type LoaderConfig struct {
	Source           string                `mapstructure:"source"`
	BatchSize        int                   `mapstructure:"batch_size"`
	FetchWorkers     int                   `mapstructure:"fetch_workers"`
	QueueSize        int                   `mapstructure:"queue_size"`
	KeepAliveEvery   int                   `mapstructure:"keepalive_every"`
	IdleFlush        time.Duration         `mapstructure:"idle_flush"`
	SkipUnchanged    bool                  `mapstructure:"skip_unchanged"`
	AutoAccept       bool                  `mapstructure:"auto_accept"`
	InactiveStatuses []string              `mapstructure:"inactive_statuses"`
	BoundingBox      normalize.BoundingBox `mapstructure:"bounding_box"`
}

type FacetsConfig struct {
	KeywordsFile string `mapstructure:"keywords_file"`
}

type LogConfig struct {
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type AppConfig struct {
	ATDW     ATDWConfig     `mapstructure:"atdw"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Facets   FacetsConfig   `mapstructure:"facets"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// env names kept from the operator scripts; viper keys are matched first.
var envBindings = map[string][]string{
	"atdw.api_key":      {"ATDW_API_KEY"},
	"atdw.base_url":     {"ATDW_BASE_URL"},
	"postgres.host":     {"OTDB_DB_HOST", "POSTGRES_HOST"},
	"postgres.port":     {"OTDB_DB_PORT", "POSTGRES_PORT"},
	"postgres.dbname":   {"OTDB_DB_NAME", "POSTGRES_NAME"},
	"postgres.user":     {"OTDB_DB_USER", "POSTGRES_USER"},
	"postgres.password": {"OTDB_DB_PASSWORD", "POSTGRES_PASSWORD"},
	"postgres.sslmode":  {"OTDB_DB_SSLMODE"},
	"log.env":           {"APP_ENV"},
	"log.level":         {"LOG_LEVEL"},
}

// flag name -> viper key
var flagBindings = map[string]string{
	"batch-size":     "loader.batch_size",
	"workers":        "loader.fetch_workers",
	"skip-unchanged": "loader.skip_unchanged",
	"yes":            "loader.auto_accept",
	"facets":         "facets.keywords_file",
	"metrics-addr":   "metrics.addr",
	"log-level":      "log.level",
	"page-size":      "atdw.page_size",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("atdw.base_url", "https://atlas.atdw-online.com.au/api/atlas")
	v.SetDefault("atdw.api_key", "")
	v.SetDefault("atdw.language", "ENGLISH")
	v.SetDefault("atdw.page_size", 5000)
	v.SetDefault("atdw.timeout", 30*time.Second)
	v.SetDefault("atdw.requests_per_second", 2.0)
	v.SetDefault("atdw.max_retries", 3)
	v.SetDefault("atdw.backoff_factor", 2.0)
	v.SetDefault("atdw.default_retry_after", 60*time.Second)
	v.SetDefault("atdw.retry_delay", 2*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "otdb")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 20)

	v.SetDefault("loader.source", "ATDW")
	v.SetDefault("loader.batch_size", 10)
	v.SetDefault("loader.fetch_workers", 1)
	v.SetDefault("loader.queue_size", 16)
	v.SetDefault("loader.keepalive_every", 100)
	v.SetDefault("loader.idle_flush", 5*time.Second)
	v.SetDefault("loader.skip_unchanged", false)
	v.SetDefault("loader.auto_accept", false)
	v.SetDefault("loader.inactive_statuses", []string{"INACTIVE", "EXPIRED", "DELETED"})
	v.SetDefault("loader.bounding_box.min_lat", normalize.Australia.MinLat)
	v.SetDefault("loader.bounding_box.max_lat", normalize.Australia.MaxLat)
	v.SetDefault("loader.bounding_box.min_lng", normalize.Australia.MinLng)
	v.SetDefault("loader.bounding_box.max_lng", normalize.Australia.MaxLng)

	v.SetDefault("facets.keywords_file", "")
	v.SetDefault("log.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Load собирает конфигурацию: значения по умолчанию, YAML-файл (если задан),
// .env, переменные окружения и флаги командной строки, в порядке возрастания приоритета.
func Load(filename string, flags *pflag.FlagSet) (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
		}
	}

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.Loader.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("loader.batch_size must be positive, got %d", c.Loader.BatchSize))
	}
	if c.Loader.FetchWorkers < 1 {
		errs = append(errs, fmt.Errorf("loader.fetch_workers must be positive, got %d", c.Loader.FetchWorkers))
	}
	if c.Loader.Source == "" {
		errs = append(errs, errors.New("loader.source is required"))
	}
	if box := c.Loader.BoundingBox; box.MinLat >= box.MaxLat || box.MinLng >= box.MaxLng {
		errs = append(errs, fmt.Errorf("loader.bounding_box is empty: %+v", box))
	}
	if c.ATDW.PageSize < 1 || c.ATDW.PageSize > 5000 {
		errs = append(errs, fmt.Errorf("atdw.page_size must be within 1..5000, got %d", c.ATDW.PageSize))
	}
	if c.ATDW.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("atdw.max_retries must not be negative, got %d", c.ATDW.MaxRetries))
	}
	return errors.Join(errs...)
}
