package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidConfig = errors.New("invalid backtest config")
	ErrEmptyUniverse = errors.New("ticker list is empty")
	ErrNegativeLag   = errors.New("lag must not be negative")
)

var validate = validator.New()

// Config holds every tunable of a backtest run. It is passed to each stage,
// which reads only the fields it needs.
//
// The quantiles are not checked against each other: an inverted or equal pair
// is accepted and resolves through the short-wins overlap rule.
type Config struct {
	LongQuantile   float64 `yaml:"long_quantile" default:"0.8" validate:"gte=0,lte=1"`
	ShortQuantile  float64 `yaml:"short_quantile" default:"0.2" validate:"gte=0,lte=1"`
	DollarNeutral  bool    `yaml:"dollar_neutral" default:"true"`
	Lag            int     `yaml:"lag" default:"1" validate:"gte=0"`
	TcBps          float64 `yaml:"tc_bps" default:"5.0" validate:"gte=0"`
	PeriodsPerYear int     `yaml:"periods_per_year" default:"252" validate:"gt=0"`
	RiskFree       float64 `yaml:"rf" default:"0"`
}

// DefaultConfig returns the standard settings: 80/20 quantiles, dollar
// neutral, one period lag, 5 bps costs, 252 periods a year and no risk-free rate.
func DefaultConfig() Config {
	var c Config
	// only fails on malformed tags
	if err := defaults.Set(&c); err != nil {
		panic(err)
	}
	return c
}

// Validate reports the first group of invalid fields as ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s %s %s", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CostRate converts TcBps to a fraction of traded notional.
func (c Config) CostRate() float64 {
	return c.TcBps / 10000.0
}

// ReportingConfig controls which artifacts a run writes.
type ReportingConfig struct {
	outDir     string
	reportName string
	printStats bool
}

func NewReportingConfig(outDir, reportName string, printStats bool) *ReportingConfig {
	return &ReportingConfig{
		outDir:     outDir,
		reportName: reportName,
		printStats: printStats,
	}
}
