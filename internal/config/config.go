// Package config loads and validates the analyzer's run configuration.
//
// Every numeric policy that used to float around as a magic number is a named
// field here: tolerance window, intrinsic tolerance, median band, DTE window,
// annualization. Invalid configuration is the one fatal error class in the
// system and is rejected before any event is processed.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNoDataSource is returned when neither local flat files nor a vendor API
// key is available to source option chains from.
var ErrNoDataSource = errors.New("config: no option data source: set paths.option_flat_files or POLYGON_API_KEY")

// Config is the top-level YAML configuration.
type Config struct {
	// Symbols limits the run; empty means every symbol with an earnings file.
	Symbols []string `yaml:"symbols,omitempty"`

	Paths    Paths    `yaml:"paths"`
	Analysis Analysis `yaml:"analysis"`
	Logging  Logging  `yaml:"logging"`
}

// Paths locates the on-disk collaborators.
type Paths struct {
	OptionFlatFiles string `yaml:"option_flat_files"` // dated option snapshot CSVs
	UnderlyingBars  string `yaml:"underlying_bars"`   // per-symbol daily bar CSVs
	EarningsData    string `yaml:"earnings_data"`     // <SYMBOL>_earnings.csv files
	ContractCache   string `yaml:"contract_cache"`    // vendor listing cache
	OutputDir       string `yaml:"output_dir"`        // crush record exports
}

// Analysis carries the named policy knobs of the pipeline.
type Analysis struct {
	RiskFreeRate       float64 `yaml:"risk_free_rate"`      // annual, e.g. 0.05
	ToleranceDays      int     `yaml:"tolerance_days"`      // snapshot drift budget
	IntrinsicTolerance float64 `yaml:"intrinsic_tolerance"` // solver intrinsic floor factor
	BandLo             float64 `yaml:"atm_band_lo"`         // median strike band, lower multiple
	BandHi             float64 `yaml:"atm_band_hi"`         // median strike band, upper multiple
	TargetDTE          int     `yaml:"target_dte"`          // expiry window center, 0 disables the filter
	WindowDTE          int     `yaml:"window_dte"`          // expiry window half width
	MinRVBars          int     `yaml:"min_rv_bars"`         // RV30 reliability floor
	RVLookbackDays     int     `yaml:"rv_lookback_days"`    // trailing bar collection window
	AnnualizeRV        *bool   `yaml:"annualize_rv"`        // x sqrt(252) on the daily figure; defaults on
	ComputeIV30        bool    `yaml:"compute_iv30"`        // term-interpolated 30d IV
	Workers            int     `yaml:"workers"`             // symbols analyzed concurrently
}

// Logging configures the logrus setup.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Load reads, defaults and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	a := &c.Analysis
	if a.RiskFreeRate == 0 {
		a.RiskFreeRate = 0.05
	}
	if a.ToleranceDays == 0 {
		a.ToleranceDays = 2
	}
	if a.IntrinsicTolerance == 0 {
		a.IntrinsicTolerance = 1.0
	}
	if a.BandLo == 0 {
		a.BandLo = 0.5
	}
	if a.BandHi == 0 {
		a.BandHi = 1.5
	}
	if a.WindowDTE == 0 {
		a.WindowDTE = 10
	}
	if a.MinRVBars == 0 {
		a.MinRVBars = 10
	}
	if a.RVLookbackDays == 0 {
		a.RVLookbackDays = 31
	}
	if a.AnnualizeRV == nil {
		annualize := true
		a.AnnualizeRV = &annualize
	}
	if a.Workers == 0 {
		a.Workers = 4
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = "options_data"
	}
}

// Validate rejects configurations the pipeline cannot run under. Invalid
// configuration is the only fatal error class; everything downstream skips.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.ToleranceDays < 1 {
		return fmt.Errorf("config: tolerance_days must be >= 1, got %d", a.ToleranceDays)
	}
	if a.IntrinsicTolerance <= 0 || a.IntrinsicTolerance > 1 {
		return fmt.Errorf("config: intrinsic_tolerance must be in (0, 1], got %g", a.IntrinsicTolerance)
	}
	if a.BandLo <= 0 || a.BandHi <= a.BandLo {
		return fmt.Errorf("config: atm band [%g, %g] is not a valid interval", a.BandLo, a.BandHi)
	}
	if a.TargetDTE < 0 || a.WindowDTE < 0 {
		return fmt.Errorf("config: dte window %d±%d must be non-negative", a.TargetDTE, a.WindowDTE)
	}
	if a.MinRVBars < 2 {
		return fmt.Errorf("config: min_rv_bars must be >= 2, got %d", a.MinRVBars)
	}
	if a.RiskFreeRate < 0 || a.RiskFreeRate > 0.5 {
		return fmt.Errorf("config: risk_free_rate %g is outside plausible range", a.RiskFreeRate)
	}
	if a.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", a.Workers)
	}
	if c.Paths.EarningsData == "" {
		return fmt.Errorf("config: paths.earnings_data is required")
	}
	return nil
}
