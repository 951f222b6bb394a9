package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tickledger/strategies"
)

// EnvPrefix prefixes every environment override, e.g. TRADER_FEED_ADDR.
const EnvPrefix = "TRADER"

// Config represents the complete trader configuration
type Config struct {
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Status   StatusConfig   `json:"status" yaml:"status"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// FeedConfig says where ticks come from, and how the replay server sends them.
type FeedConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// File reads JSON lines from a file instead of dialing Addr. "-" is stdin.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	CSV        string `json:"csv,omitempty" yaml:"csv,omitempty"`
	Symbol     string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Interval   string `json:"interval" yaml:"interval"` // e.g. "3s", "250ms"
	StampDate  bool   `json:"stamp_date" yaml:"stamp_date"`
}

// IntervalDuration converts Interval to a time.Duration
func (f FeedConfig) IntervalDuration() (time.Duration, error) {
	if f.Interval == "" {
		return 0, nil
	}
	return time.ParseDuration(f.Interval)
}

type PipelineConfig struct {
	Strategies []string `json:"strategies" yaml:"strategies"`
	Buffer     int      `json:"buffer" yaml:"buffer"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	// Paths are written even when empty: LoadFromFile starts from Default.
	TradesFile string `json:"trades_file" yaml:"trades_file"`
	PnLFile    string `json:"pnl_file" yaml:"pnl_file"`
	DBPath     string `json:"db_path" yaml:"db_path"`
}

type StatusConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// env holds the environment overrides. Empty values leave the file's
// setting alone.
type env struct {
	FeedAddr    string   `envconfig:"FEED_ADDR"`
	FeedFile    string   `envconfig:"FEED_FILE"`
	ListenAddr  string   `envconfig:"LISTEN_ADDR"`
	Strategies  []string `envconfig:"STRATEGIES"`
	Buffer      int      `envconfig:"BUFFER"`
	JournalType string   `envconfig:"JOURNAL_TYPE"`
	JournalDB   string   `envconfig:"JOURNAL_DB"`
	StatusAddr  string   `envconfig:"STATUS_ADDR"`
	LogLevel    string   `envconfig:"LOG_LEVEL"`
	LogFormat   string   `envconfig:"LOG_FORMAT"`
}

// Load reads path, or starts from Default when path is empty, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML). Fields the
// file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// ApplyEnv overlays TRADER_* environment variables.
func (c *Config) ApplyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("process env config: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Feed.Addr, e.FeedAddr)
	set(&c.Feed.File, e.FeedFile)
	set(&c.Feed.ListenAddr, e.ListenAddr)
	set(&c.Journal.Type, e.JournalType)
	set(&c.Journal.DBPath, e.JournalDB)
	set(&c.Status.Addr, e.StatusAddr)
	set(&c.Log.Level, e.LogLevel)
	set(&c.Log.Format, e.LogFormat)

	if len(e.Strategies) > 0 {
		c.Pipeline.Strategies = e.Strategies
	}
	if e.Buffer > 0 {
		c.Pipeline.Buffer = e.Buffer
	}
	if e.StatusAddr != "" {
		c.Status.Enabled = true
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Feed.Addr == "" && c.Feed.File == "" {
		return errors.New("feed.addr or feed.file is required")
	}
	if _, err := c.Feed.IntervalDuration(); err != nil {
		return fmt.Errorf("feed.interval: %w", err)
	}
	if len(c.Pipeline.Strategies) == 0 {
		return errors.New("pipeline.strategies must name at least one strategy")
	}
	if err := strategies.Default().Validate(c.Pipeline.Strategies); err != nil {
		return fmt.Errorf("pipeline.strategies: %w", err)
	}
	if c.Pipeline.Buffer < 0 {
		return errors.New("pipeline.buffer must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.PnLFile == "" {
			return errors.New("journal trades_file and pnl_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return errors.New("journal db_path required for SQLite type")
		}
	default:
		return errors.New("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if c.Status.Enabled && c.Status.Addr == "" {
		return errors.New("status.addr required when status is enabled")
	}

	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.New("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			Addr:       "127.0.0.1:65432",
			ListenAddr: "127.0.0.1:65432",
			Interval:   "3s",
			StampDate:  true,
		},
		Pipeline: PipelineConfig{
			Strategies: []string{strategies.BollingerName},
			Buffer:     1024,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./trader.db",
		},
		Status: StatusConfig{
			Addr: "127.0.0.1:9898",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
