package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/newthinker/smacross/internal/collector"
	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/optimizer"
	"github.com/newthinker/smacross/internal/storage/archive"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SMACROSS_STRATEGY_SHORT_WINDOW.
const EnvPrefix = "SMACROSS"

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Data      DataConfig      `mapstructure:"data"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Output    OutputConfig    `mapstructure:"output"`
	Runs      RunsConfig      `mapstructure:"runs"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// DataConfig selects where price history comes from.
type DataConfig struct {
	Source   string       `mapstructure:"source" validate:"oneof=yahoo binance csv"`
	Period   string       `mapstructure:"period"`
	Interval string       `mapstructure:"interval" validate:"required"`
	Dir      string       `mapstructure:"dir"` // base directory for relative CSV paths
	Yahoo    SourceConfig `mapstructure:"yahoo"`
	Binance  SourceConfig `mapstructure:"binance"`
}

// SourceConfig holds HTTP collector settings.
type SourceConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxRetries    uint64        `mapstructure:"max_retries"`
	RatePerSecond float64       `mapstructure:"rate_per_second" validate:"gte=0"`
}

// Collector converts the settings for collector.Init.
func (s SourceConfig) Collector() collector.Config {
	return collector.Config{
		BaseURL:       s.BaseURL,
		Timeout:       s.Timeout,
		MaxRetries:    s.MaxRetries,
		RatePerSecond: s.RatePerSecond,
	}
}

type StrategyConfig struct {
	ShortWindow    int     `mapstructure:"short_window" validate:"gte=1"`
	LongWindow     int     `mapstructure:"long_window" validate:"gte=1"`
	InitialCapital float64 `mapstructure:"initial_capital" validate:"gt=0"`
	ShareSize      float64 `mapstructure:"share_size" validate:"gt=0"`
}

// Core converts to the engine's strategy config.
func (s StrategyConfig) Core() core.StrategyConfig {
	return core.StrategyConfig{
		ShortWindow:    s.ShortWindow,
		LongWindow:     s.LongWindow,
		InitialCapital: s.InitialCapital,
		ShareSize:      s.ShareSize,
	}
}

type OptimizerConfig struct {
	ShortRange optimizer.Range `mapstructure:"short_range"`
	LongRange  optimizer.Range `mapstructure:"long_range"`
	Workers    int             `mapstructure:"workers" validate:"gte=0"` // 0 means GOMAXPROCS
	Timeout    time.Duration   `mapstructure:"timeout" validate:"gte=0"`
}

// Options converts to optimizer options.
func (o OptimizerConfig) Options() []optimizer.Option {
	opts := []optimizer.Option{optimizer.WithWorkers(o.Workers)}
	if o.Timeout > 0 {
		opts = append(opts, optimizer.WithTimeout(o.Timeout))
	}
	return opts
}

type OutputConfig struct {
	Format  string         `mapstructure:"format" validate:"oneof=json yaml"`
	Export  bool           `mapstructure:"export"`
	Archive archive.Config `mapstructure:"archive"`
}

type RunsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // written after each command when set
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Data: DataConfig{
			Source:   "yahoo",
			Period:   "ytd",
			Interval: "1h",
			Yahoo: SourceConfig{
				Timeout:       10 * time.Second,
				MaxRetries:    3,
				RatePerSecond: 2,
			},
			Binance: SourceConfig{
				Timeout:       10 * time.Second,
				RatePerSecond: 10,
			},
		},
		Strategy: StrategyConfig{
			ShortWindow:    30,
			LongWindow:     50,
			InitialCapital: 10000,
			ShareSize:      50,
		},
		Optimizer: OptimizerConfig{
			ShortRange: optimizer.Range{Start: 20, Stop: 60, Step: 1},
			LongRange:  optimizer.Range{Start: 20, Stop: 110, Step: 1},
		},
		Output: OutputConfig{
			Format: "json",
			Archive: archive.Config{
				Backend: "localfs",
				Path:    "output",
			},
		},
		Runs: RunsConfig{
			Path: "smacross.db",
		},
	}
}

// Load reads configuration over the defaults. An empty path skips the file and
// uses defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, core.WrapError(core.ErrConfigMissing, err)
			}
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("data.source", d.Data.Source)
	v.SetDefault("data.period", d.Data.Period)
	v.SetDefault("data.interval", d.Data.Interval)
	v.SetDefault("data.dir", d.Data.Dir)
	for name, src := range map[string]SourceConfig{"yahoo": d.Data.Yahoo, "binance": d.Data.Binance} {
		v.SetDefault("data."+name+".base_url", src.BaseURL)
		v.SetDefault("data."+name+".timeout", src.Timeout)
		v.SetDefault("data."+name+".max_retries", src.MaxRetries)
		v.SetDefault("data."+name+".rate_per_second", src.RatePerSecond)
	}

	v.SetDefault("strategy.short_window", d.Strategy.ShortWindow)
	v.SetDefault("strategy.long_window", d.Strategy.LongWindow)
	v.SetDefault("strategy.initial_capital", d.Strategy.InitialCapital)
	v.SetDefault("strategy.share_size", d.Strategy.ShareSize)

	for name, r := range map[string]optimizer.Range{"short_range": d.Optimizer.ShortRange, "long_range": d.Optimizer.LongRange} {
		v.SetDefault("optimizer."+name+".start", r.Start)
		v.SetDefault("optimizer."+name+".stop", r.Stop)
		v.SetDefault("optimizer."+name+".step", r.Step)
	}
	v.SetDefault("optimizer.workers", d.Optimizer.Workers)
	v.SetDefault("optimizer.timeout", d.Optimizer.Timeout)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.export", d.Output.Export)
	v.SetDefault("output.archive.backend", d.Output.Archive.Backend)
	v.SetDefault("output.archive.path", d.Output.Archive.Path)
	for _, k := range []string{"bucket", "endpoint", "region", "access_key", "secret_key", "prefix"} {
		v.SetDefault("output.archive.s3."+k, "")
	}

	v.SetDefault("runs.enabled", d.Runs.Enabled)
	v.SetDefault("runs.path", d.Runs.Path)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return core.WrapError(core.ErrConfigInvalid, errors.New(strings.Join(msgs, "; ")))
		}
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	if c.Output.Archive.Backend == "s3" && c.Output.Archive.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("output.archive.s3.bucket required when backend is s3"))
	}
	return nil
}
