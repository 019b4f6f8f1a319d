package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/limaJavier/courseopt/pkg/milp"
	"github.com/limaJavier/courseopt/pkg/model"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "COURSEPLAN"

type Config struct {
	Catalog      string        `mapstructure:"catalog"`
	TotalCourses int           `mapstructure:"total_courses"`
	Weights      model.Weights `mapstructure:"weights"`
	Tracks       []model.Track `mapstructure:"tracks"`
	Solver       SolverConfig  `mapstructure:"solver"`
	Output       OutputConfig  `mapstructure:"output"`
	Log          LogConfig     `mapstructure:"log"`
}

type SolverConfig struct {
	Name      string        `mapstructure:"name"`
	TimeLimit time.Duration `mapstructure:"time_limit"` // 0 disables the limit
	Paths     SolverPaths   `mapstructure:"paths"`
}

// SolverPaths holds the executables used by the external solvers
type SolverPaths struct {
	Cbc    string `mapstructure:"cbc"`
	Glpsol string `mapstructure:"glpsol"`
	Highs  string `mapstructure:"highs"`
}

// Options returns the solver options of the configured (or given) solver name
func (c *SolverConfig) Options(name string) milp.Options {
	path := ""
	switch name {
	case "cbc":
		path = c.Paths.Cbc
	case "glpk":
		path = c.Paths.Glpsol
	case "highs":
		path = c.Paths.Highs
	}
	return milp.Options{Path: path, TimeLimit: c.TimeLimit}
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"` // Empty means standard output
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	outputFormats = []string{"text", "json", "yaml", "xlsx"}
	logFormats    = []string{"console", "json"}
)

// Load reads the configuration. Precedence: environment > config file > defaults.
// Tracks default to the reference specializations when none are configured. The result is not validated, callers
// apply their own overrides first and then call Validate
func Load(path string) (*Config, error) {
	v := viper.New()

	//** Defaults
	v.SetDefault("catalog", "")
	v.SetDefault("total_courses", 10)

	v.SetDefault("weights.rating", model.DefaultWeights.Rating)
	v.SetDefault("weights.difficulty", model.DefaultWeights.Difficulty)
	v.SetDefault("weights.workload", model.DefaultWeights.Workload)
	v.SetDefault("weights.reviews", model.DefaultWeights.Reviews)
	v.SetDefault("weights.interest", model.DefaultWeights.Interest)

	v.SetDefault("solver.name", "branchbound")
	v.SetDefault("solver.time_limit", "0s")
	v.SetDefault("solver.paths.cbc", "cbc")
	v.SetDefault("solver.paths.glpsol", "glpsol")
	v.SetDefault("solver.paths.highs", "highs")

	v.SetDefault("output.format", "text")
	v.SetDefault("output.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	//** Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	//** Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
		// Without a config file only defaults and environment apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if len(cfg.Tracks) == 0 {
		cfg.Tracks = model.ReferenceTracks()
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.TotalCourses < 0 {
		return fmt.Errorf("invalid config: total_courses must be >= 0, got %d", c.TotalCourses)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !slices.Contains(milp.SolverNames(), c.Solver.Name) {
		return fmt.Errorf("invalid config: solver.name must be one of %v, got %q", milp.SolverNames(), c.Solver.Name)
	}
	if c.Solver.TimeLimit < 0 {
		return fmt.Errorf("invalid config: solver.time_limit must be >= 0, got %v", c.Solver.TimeLimit)
	}
	if !slices.Contains(outputFormats, c.Output.Format) {
		return fmt.Errorf("invalid config: output.format must be one of %v, got %q", outputFormats, c.Output.Format)
	}
	if c.Output.Format == "xlsx" && c.Output.Path == "" {
		return fmt.Errorf("invalid config: output.path is required for xlsx output")
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("invalid config: log.format must be one of %v, got %q", logFormats, c.Log.Format)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: log.level: %w", err)
	}
	return nil
}
