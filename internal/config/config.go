package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"factorbt/internal/engine"
	"factorbt/internal/logger"
)

var ErrUnknownSource = errors.New("unknown price source")

const (
	SourceYahoo    = "yahoo"
	SourceAlpaca   = "alpaca"
	SourcePostgres = "postgres"
	SourceParquet  = "parquet"
	SourceCSV      = "csv"
)

// DefaultTickers is the built-in universe of 30 US large caps.
var DefaultTickers = []string{
	"AAPL", "MSFT", "AMZN", "GOOGL", "META", "NVDA", "TSLA", "JPM", "JNJ", "PG",
	"XOM", "CVX", "KO", "PEP", "WMT", "HD", "UNH", "MRK", "ABBV", "COST",
	"V", "MA", "CRM", "ADBE", "NFLX", "DIS", "INTC", "CSCO", "ORCL", "BAC",
}

type Config struct {
	Universe struct {
		Tickers []string `yaml:"tickers"`
	} `yaml:"universe"`
	Data struct {
		Source      string `yaml:"source" default:"yahoo"`
		Start       string `yaml:"start" default:"2015-01-01"`
		End         string `yaml:"end"`
		CSVPath     string `yaml:"csv_path"`
		ParquetDir  string `yaml:"parquet_dir" default:"data/prices"`
		DatabaseURL string `yaml:"database_url"`
		Cache       bool   `yaml:"cache"`
	} `yaml:"data"`
	Alpaca struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		BaseURL   string `yaml:"base_url"`
		Feed      string `yaml:"feed" default:"iex"`
	} `yaml:"alpaca"`
	Strategy struct {
		Factor       string        `yaml:"factor" default:"mom"`
		LowVolWindow int           `yaml:"lowvol_window" default:"63" validate:"gt=1"`
		Engine       engine.Config `yaml:"engine"`
	} `yaml:"strategy"`
	Output struct {
		Dir   string `yaml:"dir" default:"outputs"`
		RunDB string `yaml:"run_db"`
	} `yaml:"output"`
	Logging logger.Config `yaml:"logging"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	c.Universe.Tickers = append([]string(nil), DefaultTickers...)
	return &c, nil
}

// Load reads the configuration at path and validates it.
func Load(path string) (*Config, error) {
	c, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Read parses a YAML file over the defaults and applies environment
// overrides, leaving validation to the caller. An empty path yields the
// defaults alone.
func Read(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		c.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		c.Alpaca.APISecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Data.DatabaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("BACKTEST_TICKERS"); v != "" {
		c.Universe.Tickers = SplitTickers(v)
	}
}

// Validate checks the whole configuration, including the engine settings.
func (c *Config) Validate() error {
	if err := c.Strategy.Engine.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Data.Source {
	case SourceYahoo, SourceParquet:
	case SourceAlpaca:
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return fmt.Errorf("alpaca source needs api_key and api_secret")
		}
	case SourcePostgres:
		if c.Data.DatabaseURL == "" {
			return fmt.Errorf("postgres source needs data.database_url")
		}
	case SourceCSV:
		if c.Data.CSVPath == "" {
			return fmt.Errorf("csv source needs data.csv_path")
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownSource, c.Data.Source)
	}
	if _, _, err := c.Period(); err != nil {
		return err
	}
	return nil
}

// Period parses the configured date range. An empty end is open.
func (c *Config) Period() (start, end time.Time, err error) {
	start, err = ParseDate(c.Data.Start)
	if err != nil {
		return start, end, fmt.Errorf("data.start: %w", err)
	}
	if c.Data.End != "" {
		if end, err = ParseDate(c.Data.End); err != nil {
			return start, end, fmt.Errorf("data.end: %w", err)
		}
		if end.Before(start) {
			return start, end, fmt.Errorf("data.end %s is before data.start %s", c.Data.End, c.Data.Start)
		}
	}
	return start, end, nil
}

// ParseDate accepts any common date spelling and returns UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// SplitTickers parses a comma separated list, upper-casing and dropping blanks.
func SplitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
