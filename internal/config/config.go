// Package config loads runtime settings from defaults, an optional config file,
// OPTIONIV_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/contactkeval/option-iv/internal/data"
	"github.com/contactkeval/option-iv/internal/impliedvol"
	"github.com/contactkeval/option-iv/internal/pricing"
)

const envPrefix = "OPTIONIV"

// Quote sources.
const (
	SourceSynthetic = "synthetic"
	SourceCSV       = "csv"
	SourceMassive   = "massive"
)

// Report formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
}

type Config struct {
	Solver    impliedvol.Config  `mapstructure:"solver"`
	Methods   []string           `mapstructure:"methods"`
	Source    string             `mapstructure:"source"`
	CSV       string             `mapstructure:"csv"`
	Sweep     data.SweepSpec     `mapstructure:"sweep"`
	Massive   data.MassiveConfig `mapstructure:"massive"`
	Server    ServerConfig       `mapstructure:"server"`
	Output    OutputConfig       `mapstructure:"output"`
	Verbosity int                `mapstructure:"verbosity"`
	Workers   int                `mapstructure:"workers"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"source":    "source",
	"csv":       "csv",
	"method":    "methods",
	"format":    "output.format",
	"rest":      "server.enabled",
	"port":      "server.port",
	"verbosity": "verbosity",
	"workers":   "workers",
}

func setDefaults(v *viper.Viper) {
	solver := impliedvol.DefaultConfig()
	v.SetDefault("solver.tolerance", solver.Tolerance)
	v.SetDefault("solver.max_iterations", solver.MaxIterations)
	v.SetDefault("solver.initial_guess", solver.InitialGuess)
	v.SetDefault("solver.bracket_low", solver.BracketLow)
	v.SetDefault("solver.bracket_high", solver.BracketHigh)
	v.SetDefault("solver.bisection_start", solver.BisectionStart)
	v.SetDefault("solver.max_volatility", solver.MaxVolatility)

	v.SetDefault("methods", []string{"all"})
	v.SetDefault("source", SourceSynthetic)
	v.SetDefault("csv", "")

	// spot sweep K=100, T=1/12, r=5%, sigma=25%
	v.SetDefault("sweep.axis", data.AxisSpot)
	v.SetDefault("sweep.start", 80.0)
	v.SetDefault("sweep.end", 121.0)
	v.SetDefault("sweep.step", 1.0)
	v.SetDefault("sweep.spot", 100.0)
	v.SetDefault("sweep.strike", 100.0)
	v.SetDefault("sweep.expiry", 1.0/12)
	v.SetDefault("sweep.rate", 0.05)
	v.SetDefault("sweep.volatility", 0.25)

	v.SetDefault("massive.api_key", "")
	v.SetDefault("massive.base_url", "https://api.massive.com")
	v.SetDefault("massive.requests_per_minute", 5)
	v.SetDefault("massive.retry_wait", time.Second)
	v.SetDefault("massive.risk_free_rate", 0.05)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", ":8080")
	v.SetDefault("output.format", FormatJSON)
	v.SetDefault("verbosity", 1)
	v.SetDefault("workers", 0)
}

// Load reads the configuration. path may be empty; flags may be nil. Only flags
// named in flagKeys are bound, and only their explicitly set values override
// the file and environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field constraints viper cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source {
	case SourceSynthetic:
	case SourceCSV:
		if c.CSV == "" {
			errs = append(errs, errors.New("source csv needs a csv path"))
		}
	case SourceMassive:
		if len(c.Massive.Contracts) == 0 {
			errs = append(errs, errors.New("source massive needs at least one contract"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}

	switch c.Output.Format {
	case FormatJSON, FormatCSV:
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output.Format))
	}

	if _, err := c.SolverMethods(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SolverConfig(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", pricing.ErrInvalidInput, err)
	}
	return nil
}

// SolverConfig returns the validated solver settings.
func (c *Config) SolverConfig() (impliedvol.Config, error) {
	if err := c.Solver.Validate(); err != nil {
		return impliedvol.Config{}, err
	}
	return c.Solver, nil
}

// SolverMethods parses Methods; an empty list or "all" selects every method.
func (c *Config) SolverMethods() ([]impliedvol.Method, error) {
	return impliedvol.ParseMethods(c.Methods)
}

// Provider builds the quote provider for Source. The Massive provider falls
// back to the synthetic sweep.
func (c *Config) Provider() (data.Provider, error) {
	switch c.Source {
	case SourceSynthetic:
		return data.NewSyntheticProvider(c.Sweep), nil
	case SourceCSV:
		return data.NewLocalCSVProvider(c.CSV, nil), nil
	case SourceMassive:
		return data.NewMassiveDataProvider(c.Massive, data.NewSyntheticProvider(c.Sweep)), nil
	}
	return nil, fmt.Errorf("%w: unknown source %q", pricing.ErrInvalidInput, c.Source)
}
