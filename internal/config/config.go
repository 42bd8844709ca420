// Package config loads YAML configuration files for the commands.
// Values are explicit; downstream packages receive plain structs and
// never read the environment themselves.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"smc-lab/internal/domain"
)

// Validation errors.
var (
	ErrNoJobs           = errors.New("config must define at least one job")
	ErrMissingSymbol    = errors.New("job symbol is required")
	ErrBadTimeframe     = errors.New("job timeframe is invalid")
	ErrBadRange         = errors.New("job range end must be after start")
	ErrMissingPolicy    = errors.New("job policy type is required")
	ErrStorageUnderspec = errors.New("storage requires DSNs unless use_memory is set")
)

// Config is the top-level configuration file structure.
type Config struct {
	Storage  StorageConfig    `yaml:"storage"`
	Stream   StreamConfig     `yaml:"stream"`
	Metrics  MetricsConfig    `yaml:"metrics"`
	Backtest BacktestDefaults `yaml:"backtest"`
	Jobs     []JobConfig      `yaml:"jobs"`
}

// StorageConfig selects the storage backends.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	UseMemory     bool   `yaml:"use_memory"`
}

// StreamConfig configures market-data endpoints.
type StreamConfig struct {
	WSEndpoint  string `yaml:"ws_endpoint"`
	RESTBaseURL string `yaml:"rest_base_url"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// BacktestDefaults apply to jobs that do not override them.
type BacktestDefaults struct {
	MaxHoldBars int `yaml:"max_hold_bars"`
}

// JobConfig describes one backtest job.
type JobConfig struct {
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	HTF       string `yaml:"htf"`
	StartMs   int64  `yaml:"start_ms"`
	EndMs     int64  `yaml:"end_ms"`

	Policy      PolicyConfig `yaml:"policy"`
	MaxHoldBars *int         `yaml:"max_hold_bars"`
}

// PolicyConfig selects and parameterizes the entry policy for a job.
type PolicyConfig struct {
	Type string `yaml:"type"` // SMC or BREAKOUT

	// BREAKOUT parameters.
	Lookback   *int     `yaml:"lookback"`
	RiskReward *float64 `yaml:"risk_reward"`
	LongOnly   bool     `yaml:"long_only"`

	// SMC parameter overrides; nil sections fall back to defaults.
	MinRiskReward *float64 `yaml:"min_rr"`
	MinConfidence *float64 `yaml:"min_confidence"`
	MinFilters    *int     `yaml:"min_filters"`
}

// Load reads and parses a YAML config file, then applies environment
// overrides for the storage DSNs.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv overrides credentials-bearing values from the environment.
func (c *Config) applyEnv() {
	if dsn := os.Getenv("SMC_POSTGRES_DSN"); dsn != "" {
		c.Storage.PostgresDSN = dsn
	}
	if dsn := os.Getenv("SMC_CLICKHOUSE_DSN"); dsn != "" {
		c.Storage.ClickhouseDSN = dsn
	}
	if addr := os.Getenv("SMC_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
}

// Validate checks the job list and storage selection.
func (c *Config) Validate() error {
	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "") {
		return ErrStorageUnderspec
	}
	if len(c.Jobs) == 0 {
		return ErrNoJobs
	}
	for i, job := range c.Jobs {
		if err := job.validate(); err != nil {
			return fmt.Errorf("job %d: %w", i, err)
		}
	}
	return nil
}

func (j JobConfig) validate() error {
	if j.Symbol == "" {
		return ErrMissingSymbol
	}
	if !validTimeframe(j.Timeframe) {
		return ErrBadTimeframe
	}
	if j.HTF != "" && !validTimeframe(j.HTF) {
		return ErrBadTimeframe
	}
	if j.EndMs <= j.StartMs {
		return ErrBadRange
	}
	if j.Policy.Type == "" {
		return ErrMissingPolicy
	}
	return nil
}

// MaxHold resolves a job's hold limit against the file-level default.
func (c *Config) MaxHold(j JobConfig) int {
	if j.MaxHoldBars != nil {
		return *j.MaxHoldBars
	}
	return c.Backtest.MaxHoldBars
}

func validTimeframe(tf string) bool {
	return domain.Timeframe(tf).Minutes() > 0
}
