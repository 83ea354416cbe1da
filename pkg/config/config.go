package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"StrikeGate/pkg/util"
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
		Format string `yaml:"format"` // json or console
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Trading struct {
		Symbol              string        `yaml:"symbol"`
		Timeframe           string        `yaml:"timeframe"`
		CycleInterval       time.Duration `yaml:"cycle_interval"`
		SessionOpen         string        `yaml:"session_open"`  // HH:MM venue time
		SessionClose        string        `yaml:"session_close"` // HH:MM venue time
		ConfidenceFloor     float64       `yaml:"confidence_floor"`
		MaxTradesPerDay     int           `yaml:"max_trades_per_day"`
		MaxDailyLoss        float64       `yaml:"max_daily_loss"`
		RiskPerPoint        float64       `yaml:"risk_per_point"`
		MinViableStopPoints float64       `yaml:"min_viable_stop_points"`
		LevelWindow         int           `yaml:"level_window"`
		EntryThresholdFrac  float64       `yaml:"entry_threshold_frac"`
	} `yaml:"trading"`
	Oracle struct {
		Mode         string        `yaml:"mode"` // local or remote
		ArtifactPath string        `yaml:"artifact_path"`
		ServiceURL   string        `yaml:"service_url"`
		Timeout      time.Duration `yaml:"timeout"`
		RetryMax     int           `yaml:"retry_max"`
	} `yaml:"oracle"`
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
	Postgres struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		Database        string        `yaml:"database"`
		User            string        `yaml:"user"`
		Password        string        `yaml:"password"`
		SSLMode         string        `yaml:"ssl_mode"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		ReadRetryMax    int           `yaml:"read_retry_max"`
		ReadRetryDelay  time.Duration `yaml:"read_retry_delay"`
	} `yaml:"postgres"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		DecisionsTopic string   `yaml:"decisions_topic"`
		OutcomesTopic  string   `yaml:"outcomes_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			BatchTimeout time.Duration `yaml:"batch_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
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
	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
		Queue     struct {
			Workers    int           `yaml:"workers"`
			RetryLimit int           `yaml:"retry_limit"`
			RetryDelay time.Duration `yaml:"retry_delay"`
		} `yaml:"queue"`
	} `yaml:"redis"`
	Feed struct {
		WebSocketURL   string            `yaml:"websocket_url"`
		APIKey         string            `yaml:"api_key"`
		Symbols        []string          `yaml:"symbols"`
		SymbolMap      map[string]string `yaml:"symbol_map"` // feed name -> canonical symbol
		ReconnectDelay time.Duration     `yaml:"reconnect_delay"`
		PingInterval   time.Duration     `yaml:"ping_interval"`
		MaxRPS         int               `yaml:"max_rps"`
		BufferSize     int               `yaml:"buffer_size"`
	} `yaml:"feed"`
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
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Trading.Symbol = v
	}
	if v := os.Getenv("CONFIDENCE_FLOOR"); v != "" {
		c.Trading.ConfidenceFloor = util.ParseFloatDefault(v, c.Trading.ConfidenceFloor)
	}
	if v := os.Getenv("MAX_TRADES_PER_DAY"); v != "" {
		c.Trading.MaxTradesPerDay = util.ParseIntDefault(v, c.Trading.MaxTradesPerDay)
	}
	if v := os.Getenv("MAX_DAILY_LOSS"); v != "" {
		c.Trading.MaxDailyLoss = util.ParseFloatDefault(v, c.Trading.MaxDailyLoss)
	}
	if v := os.Getenv("RISK_PER_POINT"); v != "" {
		c.Trading.RiskPerPoint = util.ParseFloatDefault(v, c.Trading.RiskPerPoint)
	}
	if v := os.Getenv("ORACLE_ARTIFACT"); v != "" {
		c.Oracle.ArtifactPath = v
	}
	if v := os.Getenv("ORACLE_URL"); v != "" {
		c.Oracle.ServiceURL = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PG_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("PG_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Trading.Timeframe == "" {
		c.Trading.Timeframe = "1m"
	}
	if c.Trading.CycleInterval <= 0 {
		c.Trading.CycleInterval = time.Minute
	}
	if c.Trading.SessionOpen == "" {
		c.Trading.SessionOpen = "09:15"
	}
	if c.Trading.SessionClose == "" {
		c.Trading.SessionClose = "15:30"
	}
	if c.Trading.ConfidenceFloor == 0 {
		c.Trading.ConfidenceFloor = 60
	}
	if c.Trading.MaxTradesPerDay == 0 {
		c.Trading.MaxTradesPerDay = 2
	}
	if c.Trading.MinViableStopPoints == 0 {
		c.Trading.MinViableStopPoints = 5
	}
	if c.Trading.LevelWindow == 0 {
		c.Trading.LevelWindow = 20
	}
	if c.Trading.EntryThresholdFrac == 0 {
		c.Trading.EntryThresholdFrac = 0.20
	}
	if c.Oracle.Mode == "" {
		c.Oracle.Mode = "local"
	}
	if c.Oracle.Timeout <= 0 {
		c.Oracle.Timeout = 3 * time.Second
	}
	if c.Oracle.RetryMax <= 0 {
		c.Oracle.RetryMax = 3
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.ReadRetryMax <= 0 {
		c.Postgres.ReadRetryMax = 3
	}
	if c.Postgres.ReadRetryDelay <= 0 {
		c.Postgres.ReadRetryDelay = 100 * time.Millisecond
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "strikegate"
	}
}

// Validate checks if the configuration is valid. Invalid trading constants
// are rejected here, before anything is constructed from them.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading.symbol is required")
	}
	if c.Trading.ConfidenceFloor < 0 || c.Trading.ConfidenceFloor > 100 {
		return fmt.Errorf("trading.confidence_floor must be within [0,100], got %v", c.Trading.ConfidenceFloor)
	}
	if c.Trading.MaxTradesPerDay <= 0 {
		return fmt.Errorf("trading.max_trades_per_day must be positive")
	}
	if c.Trading.MaxDailyLoss <= 0 {
		return fmt.Errorf("trading.max_daily_loss must be positive")
	}
	if c.Trading.RiskPerPoint <= 0 {
		return fmt.Errorf("trading.risk_per_point must be positive")
	}
	if c.Trading.MinViableStopPoints <= 0 {
		return fmt.Errorf("trading.min_viable_stop_points must be positive")
	}
	if c.Trading.LevelWindow <= 0 {
		return fmt.Errorf("trading.level_window must be positive")
	}
	if c.Trading.EntryThresholdFrac <= 0 || c.Trading.EntryThresholdFrac >= 1 {
		return fmt.Errorf("trading.entry_threshold_frac must be within (0,1), got %v", c.Trading.EntryThresholdFrac)
	}
	if _, err := util.ParseClock(c.Trading.SessionOpen); err != nil {
		return fmt.Errorf("trading.session_open: %w", err)
	}
	if _, err := util.ParseClock(c.Trading.SessionClose); err != nil {
		return fmt.Errorf("trading.session_close: %w", err)
	}
	switch c.Oracle.Mode {
	case "local":
		if c.Oracle.ArtifactPath == "" {
			return fmt.Errorf("oracle.artifact_path is required in local mode")
		}
	case "remote":
		if c.Oracle.ServiceURL == "" {
			return fmt.Errorf("oracle.service_url is required in remote mode")
		}
	default:
		return fmt.Errorf("oracle.mode must be 'local' or 'remote', got '%s'", c.Oracle.Mode)
	}
	return nil
}
