package config

import (
	"fmt"
	"os"
	"strings"
	"time"

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
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Data struct {
		Backend      string `yaml:"backend"` // csv or clickhouse
		Dir          string `yaml:"dir"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"data"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Cache struct {
		ForecastTTL time.Duration `yaml:"forecast_ttl"`
		RiskTTL     time.Duration `yaml:"risk_ttl"`
		Redis       struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Quotes struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"quotes"`
	Model struct {
		ArtifactPath string `yaml:"artifact_path"`
		SeqLen       int    `yaml:"seq_len"`
	} `yaml:"model"`
	Training struct {
		Epochs            int     `yaml:"epochs"`
		BatchSize         int     `yaml:"batch_size"`
		LearningRate      float64 `yaml:"learning_rate"`
		ValSplit          float64 `yaml:"val_split"`
		EarlyStopPatience int     `yaml:"early_stop_patience"`
		PlateauPatience   int     `yaml:"plateau_patience"`
		Seed              int64   `yaml:"seed"`
	} `yaml:"training"`
	Forecast struct {
		MinHorizonDays int     `yaml:"min_horizon_days"`
		MaxHorizonDays int     `yaml:"max_horizon_days"`
		PriceFloor     float64 `yaml:"price_floor"`
		LowerMargin    float64 `yaml:"lower_margin"`
		UpperMargin    float64 `yaml:"upper_margin"`
		MaxMovePct     float64 `yaml:"max_move_pct"`
	} `yaml:"forecast"`
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
	if v := os.Getenv("QUOTES_API_KEY"); v != "" {
		c.Quotes.APIKey = v
	}
	if v := os.Getenv("DATA_BACKEND"); v != "" {
		c.Data.Backend = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("ARTIFACT_PATH"); v != "" {
		c.Model.ArtifactPath = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Data.Backend == "" {
		return fmt.Errorf("data.backend is required")
	}
	if c.Data.Backend != "csv" && c.Data.Backend != "clickhouse" {
		return fmt.Errorf("data.backend must be 'csv' or 'clickhouse', got '%s'", c.Data.Backend)
	}
	if c.Data.Backend == "csv" && c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required for the csv backend")
	}
	if c.Model.ArtifactPath == "" {
		return fmt.Errorf("model.artifact_path is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Quotes.Enabled && c.Quotes.APIKey == "" {
		return fmt.Errorf("quotes.api_key is required when quotes are enabled")
	}
	return nil
}
