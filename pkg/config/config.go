package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"KronosAlign/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Data        struct {
		// Root holds fetched market data and prediction results.
		Root string `yaml:"root"`
		// ProjectDir is a second directory scanned for CSV files.
		ProjectDir         string `yaml:"project_dir"`
		PositionalFallback bool   `yaml:"positional_fallback"`
		CadenceStrategy    string `yaml:"cadence_strategy"`
	} `yaml:"data"`
	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
		FetchRateLimit  struct {
			PerSecond float64 `yaml:"per_second"`
			Burst     int     `yaml:"burst"`
		} `yaml:"fetch_rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		// CollectErrors aggregates error logs and publishes them to Kafka.
		CollectErrors bool          `yaml:"collect_errors"`
		FlushInterval time.Duration `yaml:"flush_interval"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Forecaster struct {
		URL         string        `yaml:"url"`
		Timeout     time.Duration `yaml:"timeout"`
		RetryFor    time.Duration `yaml:"retry_for"`
		RateLimit   float64       `yaml:"rate_limit"`
		AutoloadKey string        `yaml:"autoload_key"`
		Device      string        `yaml:"device"`
	} `yaml:"forecaster"`
	Market struct {
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"`
		RetryFor  time.Duration `yaml:"retry_for"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"market"`
	Persistence struct {
		JSON       bool `yaml:"json"`
		ClickHouse bool `yaml:"clickhouse"`
		Kafka      bool `yaml:"kafka"`
		SQLite     struct {
			Enabled bool   `yaml:"enabled"`
			Path    string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"persistence"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		JobsTopic    string   `yaml:"jobs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		SeriesTTL time.Duration `yaml:"series_ttl"`
		MaxItems  int           `yaml:"max_items"`
	} `yaml:"cache"`
	Queue struct {
		Name        string        `yaml:"name"`
		Workers     int           `yaml:"workers"`
		MaxRetries  int           `yaml:"max_retries"`
		RetryDelay  time.Duration `yaml:"retry_delay"`
		PollTimeout time.Duration `yaml:"poll_timeout"`
	} `yaml:"queue"`
	Scheduler struct {
		Refresh struct {
			Enabled  bool     `yaml:"enabled"`
			Spec     string   `yaml:"spec"`
			Tickers  []string `yaml:"tickers"`
			Interval string   `yaml:"interval"`
			Period   string   `yaml:"period"`
		} `yaml:"refresh"`
	} `yaml:"scheduler"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("KRONOS_DATA_DIR"); v != "" {
		c.Data.Root = v
	}
	if v := os.Getenv("FORECASTER_URL"); v != "" {
		c.Forecaster.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	c.Data.Root = expandHome(c.Data.Root)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Data.Root == "" {
		c.Data.Root = "~/KronosData"
	}
	c.Data.Root = expandHome(c.Data.Root)
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 7070
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Forecaster.URL == "" {
		c.Forecaster.URL = "http://127.0.0.1:8000"
	}
	if c.Forecaster.Timeout == 0 {
		c.Forecaster.Timeout = 5 * time.Minute
	}
	if c.Forecaster.Device == "" {
		c.Forecaster.Device = "cpu"
	}
	if c.Market.BaseURL == "" {
		c.Market.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Market.Timeout == 0 {
		c.Market.Timeout = 30 * time.Second
	}
	if c.Cache.SeriesTTL == 0 {
		c.Cache.SeriesTTL = 10 * time.Minute
	}
	if c.Cache.MaxItems == 0 {
		c.Cache.MaxItems = 32
	}
	if c.Queue.Name == "" {
		c.Queue.Name = "kronos:refresh"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Scheduler.Refresh.Interval == "" {
		c.Scheduler.Refresh.Interval = "daily"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Data.Root == "" {
		return fmt.Errorf("data.root is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Data.CadenceStrategy {
	case "", "first_diff", "median":
	default:
		return fmt.Errorf("data.cadence_strategy must be 'first_diff' or 'median', got '%s'", c.Data.CadenceStrategy)
	}
	if (c.Persistence.Kafka || c.Kafka.Consumer.Enabled || c.Log.CollectErrors) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is used")
	}
	if c.Persistence.Kafka && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when persistence.kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && c.Kafka.JobsTopic == "" {
		return fmt.Errorf("kafka.jobs_topic is required when the consumer is enabled")
	}
	if c.Persistence.ClickHouse && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when persistence.clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Scheduler.Refresh.Enabled {
		if c.Scheduler.Refresh.Spec == "" {
			return fmt.Errorf("scheduler.refresh.spec is required")
		}
		if len(c.Scheduler.Refresh.Tickers) == 0 {
			return fmt.Errorf("scheduler.refresh.tickers cannot be empty")
		}
	}
	return nil
}

// ResultsDir is where JSON prediction records are written.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.Data.Root, "prediction_results")
}

// RunIndexPath is the sqlite database file of the run index.
func (c *Config) RunIndexPath() string {
	if c.Persistence.SQLite.Path != "" {
		return expandHome(c.Persistence.SQLite.Path)
	}
	return filepath.Join(c.Data.Root, "runs.db")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
