package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Scan struct {
		Instruments          []string      `yaml:"instruments"`
		Window               int           `yaml:"window"`
		StdMultiplier        float64       `yaml:"std_multiplier"`
		LowThreshold         float64       `yaml:"low_threshold"`
		HighThreshold        float64       `yaml:"high_threshold"`
		Lookback             string        `yaml:"lookback"`
		Interval             string        `yaml:"interval"`
		Workers              int           `yaml:"workers"`
		FetchDelay           time.Duration `yaml:"fetch_delay"`
		PerInstrumentTimeout time.Duration `yaml:"per_instrument_timeout"`
		Timeout              time.Duration `yaml:"timeout"`
		Schedule             string        `yaml:"schedule"` // cron expression; empty disables scheduled scans
	} `yaml:"scan"`
	Provider struct {
		BaseURL      string        `yaml:"base_url"`
		Timeout      time.Duration `yaml:"timeout"`
		RateCapacity float64       `yaml:"rate_capacity"`
		RateRefill   float64       `yaml:"rate_refill_per_sec"`
		CacheTTL     time.Duration `yaml:"cache_ttl"`
	} `yaml:"provider"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		ReportTopic  string   `yaml:"report_topic"`
		RequestTopic string   `yaml:"request_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Output struct {
		CIVariable bool `yaml:"ci_variable"` // write rendered report to $GITHUB_OUTPUT
	} `yaml:"output"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. A .env file in the working directory is loaded first when
// present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Scan.Instruments = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
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
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Scan.Window == 0 {
		c.Scan.Window = 20
	}
	if c.Scan.StdMultiplier == 0 {
		c.Scan.StdMultiplier = 2.0
	}
	if c.Scan.LowThreshold == 0 {
		c.Scan.LowThreshold = 0.05
	}
	if c.Scan.HighThreshold == 0 {
		c.Scan.HighThreshold = 0.95
	}
	if c.Scan.Lookback == "" {
		c.Scan.Lookback = "6mo"
	}
	if c.Scan.Interval == "" {
		c.Scan.Interval = "1d"
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = 4
	}
	if c.Scan.PerInstrumentTimeout == 0 {
		c.Scan.PerInstrumentTimeout = 15 * time.Second
	}
	if c.Scan.Timeout == 0 {
		c.Scan.Timeout = 5 * time.Minute
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 10 * time.Second
	}
	if c.Provider.RateCapacity == 0 {
		c.Provider.RateCapacity = 5
	}
	if c.Provider.RateRefill == 0 {
		c.Provider.RateRefill = 2
	}
	if c.Provider.CacheTTL == 0 {
		c.Provider.CacheTTL = 10 * time.Minute
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "bollscan"
	}
}

// Validate checks the structural constraints that must hold before any scan
// starts. An empty instrument list is deliberately not an error: a scan over
// nothing is a no-op report.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Scan.Window < 2 {
		return fmt.Errorf("scan.window must be >= 2, got %d", c.Scan.Window)
	}
	if c.Scan.StdMultiplier <= 0 {
		return fmt.Errorf("scan.std_multiplier must be > 0, got %v", c.Scan.StdMultiplier)
	}
	if c.Scan.LowThreshold < 0 || c.Scan.LowThreshold >= 1 {
		return fmt.Errorf("scan.low_threshold must be in [0,1), got %v", c.Scan.LowThreshold)
	}
	if c.Scan.HighThreshold <= 0 || c.Scan.HighThreshold > 1 {
		return fmt.Errorf("scan.high_threshold must be in (0,1], got %v", c.Scan.HighThreshold)
	}
	if c.Scan.LowThreshold >= c.Scan.HighThreshold {
		return fmt.Errorf("scan.low_threshold %v must be below high_threshold %v",
			c.Scan.LowThreshold, c.Scan.HighThreshold)
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be >= 1, got %d", c.Scan.Workers)
	}
	return nil
}
