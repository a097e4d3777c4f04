package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configuration keys
const (
	KeyConfigFile    = "config"
	KeyDataset       = "dataset"
	KeyOutput        = "output"
	KeyMaxRequests   = "maxRequests"
	KeyTruncation    = "truncation"
	KeySampleSeed    = "sampleSeed"
	KeyBackend       = "optimizer.backend"
	KeyTimeLimit     = "optimizer.timeLimit"
	KeyMIPGap        = "optimizer.mipGap"
	KeyMaxNodes      = "optimizer.maxNodes"
	KeyWarmStart     = "optimizer.warmStart"
	KeyModelFile     = "modelFile"
	KeySolverLogFile = "solverLogFile"
	KeyReportFile    = "reportFile"
	KeyMetricsFile   = "metricsFile"
)

// NewViper returns a viper instance holding the defaults and reading VCO_* environment variables
func NewViper() *viper.Viper {
	v := viper.New()
	d := NewDefaultConfig()
	v.SetDefault(KeyConfigFile, "")
	v.SetDefault(KeyDataset, "")
	v.SetDefault(KeyOutput, d.OutputPath)
	v.SetDefault(KeyMaxRequests, d.MaxRequests)
	v.SetDefault(KeyTruncation, d.TruncationName)
	v.SetDefault(KeySampleSeed, d.SampleSeed)
	v.SetDefault(KeyBackend, d.Optimizer.Backend)
	v.SetDefault(KeyTimeLimit, d.Optimizer.TimeLimit)
	v.SetDefault(KeyMIPGap, d.Optimizer.MIPGap)
	v.SetDefault(KeyMaxNodes, d.Optimizer.MaxNodes)
	v.SetDefault(KeyWarmStart, d.Optimizer.WarmStart)
	v.SetDefault(KeyModelFile, "")
	v.SetDefault(KeySolverLogFile, "")
	v.SetDefault(KeyReportFile, "")
	v.SetDefault(KeyMetricsFile, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags registers the command line flags on fs and binds them to the viper keys
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	d := NewDefaultConfig()
	fs.String("config", "", "YAML configuration file")
	fs.StringP("dataset", "d", "", "dataset file to optimize (required)")
	fs.StringP("output", "o", d.OutputPath, "placement plan output file")
	fs.Int("max-requests", d.MaxRequests, "maximum number of requests to materialize, 0 for all")
	fs.String("truncation", d.TruncationName, "request truncation policy: first or sample")
	fs.Uint64("sample-seed", d.SampleSeed, "seed of the uniform request sampler")
	fs.String("backend", d.Optimizer.Backend, "solver backend")
	fs.Duration("time-limit", d.Optimizer.TimeLimit, "solver wall-clock budget")
	fs.Float64("mip-gap", d.Optimizer.MIPGap, "accepted relative optimality gap")
	fs.Int("max-nodes", d.Optimizer.MaxNodes, "branch-and-bound node budget, 0 for none")
	fs.Bool("warm-start", d.Optimizer.WarmStart, "seed the solver with a greedy placement")
	fs.String("model-file", "", "write the model in MPS format to this file")
	fs.String("solver-log-file", "", "write solver progress to this file")
	fs.String("report-file", "", "write a YAML run report to this file")
	fs.String("metrics-file", "", "write Prometheus metrics in text format to this file")

	bindings := map[string]string{
		KeyConfigFile:    "config",
		KeyDataset:       "dataset",
		KeyOutput:        "output",
		KeyMaxRequests:   "max-requests",
		KeyTruncation:    "truncation",
		KeySampleSeed:    "sample-seed",
		KeyBackend:       "backend",
		KeyTimeLimit:     "time-limit",
		KeyMIPGap:        "mip-gap",
		KeyMaxNodes:      "max-nodes",
		KeyWarmStart:     "warm-start",
		KeyModelFile:     "model-file",
		KeySolverLogFile: "solver-log-file",
		KeyReportFile:    "report-file",
		KeyMetricsFile:   "metrics-file",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional configuration file and decodes a validated Config
func Load(v *viper.Viper) (*Config, error) {
	c, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// Decode reads the optional configuration file and decodes a Config without validating it
func Decode(v *viper.Viper) (*Config, error) {
	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	c := NewDefaultConfig()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return c, nil
}
