package config

import (
	"fmt"
	"time"
)

// Configuration of one optimization run
type Config struct {
	DatasetPath string           `mapstructure:"dataset" json:"dataset" yaml:"dataset"`             // dataset to load
	OutputPath  string           `mapstructure:"output" json:"output" yaml:"output"`                // placement plan file
	MaxRequests int              `mapstructure:"maxRequests" json:"maxRequests" yaml:"maxRequests"` // request cap K, 0 for no cap
	Truncation  TruncationPolicy `mapstructure:"-" json:"-" yaml:"-"`                               // parsed from TruncationName
	SampleSeed  uint64           `mapstructure:"sampleSeed" json:"sampleSeed" yaml:"sampleSeed"`    // seed for the uniform sampler
	Optimizer   OptimizerSpec    `mapstructure:"optimizer" json:"optimizer" yaml:"optimizer"`

	TruncationName string `mapstructure:"truncation" json:"truncation" yaml:"truncation"` // "first" or "sample"

	ModelFile     string `mapstructure:"modelFile" json:"modelFile,omitempty" yaml:"modelFile,omitempty"`             // MPS export of the model
	SolverLogFile string `mapstructure:"solverLogFile" json:"solverLogFile,omitempty" yaml:"solverLogFile,omitempty"` // solver progress log
	ReportFile    string `mapstructure:"reportFile" json:"reportFile,omitempty" yaml:"reportFile,omitempty"`          // YAML run report
	MetricsFile   string `mapstructure:"metricsFile" json:"metricsFile,omitempty" yaml:"metricsFile,omitempty"`       // Prometheus text file
}

// Specifications for the solve
type OptimizerSpec struct {
	Backend   string        `mapstructure:"backend" json:"backend" yaml:"backend"`       // solver backend name
	TimeLimit time.Duration `mapstructure:"timeLimit" json:"timeLimit" yaml:"timeLimit"` // wall-clock budget
	MIPGap    float64       `mapstructure:"mipGap" json:"mipGap" yaml:"mipGap"`          // accepted relative gap
	MaxNodes  int           `mapstructure:"maxNodes" json:"maxNodes" yaml:"maxNodes"`    // node budget, 0 for none
	WarmStart bool          `mapstructure:"warmStart" json:"warmStart" yaml:"warmStart"` // seed with a greedy placement
}

// options for keeping requests when a dataset declares more than the cap
type TruncationPolicy int

const (
	FirstK        TruncationPolicy = iota // 0 : keep the first K requests in input order
	UniformSample                         // 1 : keep a uniform random sample of K requests
)

func (p TruncationPolicy) String() string {
	switch p {
	case FirstK:
		return "first"
	case UniformSample:
		return "sample"
	default:
		return "unknown"
	}
}

func ParseTruncationPolicy(s string) (TruncationPolicy, error) {
	switch s {
	case "", "first":
		return FirstK, nil
	case "sample":
		return UniformSample, nil
	default:
		return FirstK, fmt.Errorf("unknown truncation policy %q", s)
	}
}

// Configuration with all defaults applied and no dataset
func NewDefaultConfig() *Config {
	return &Config{
		OutputPath:     DefaultOutputPath,
		MaxRequests:    DefaultMaxRequests,
		Truncation:     FirstK,
		TruncationName: FirstK.String(),
		SampleSeed:     DefaultSampleSeed,
		Optimizer:      *NewDefaultOptimizerSpec(),
	}
}

func NewDefaultOptimizerSpec() *OptimizerSpec {
	return &OptimizerSpec{
		Backend:   DefaultBackend,
		TimeLimit: DefaultTimeLimit,
		MIPGap:    DefaultMIPGap,
		WarmStart: true,
	}
}

// Validate checks the optimizer settings
func (s *OptimizerSpec) Validate() error {
	if s.Backend == "" {
		return fmt.Errorf("optimizer backend must be set")
	}
	if s.TimeLimit <= 0 {
		return fmt.Errorf("optimizer timeLimit must be positive, got %v", s.TimeLimit)
	}
	if s.MIPGap < 0 || s.MIPGap >= 1 {
		return fmt.Errorf("optimizer mipGap must be in [0, 1), got %v", s.MIPGap)
	}
	if s.MaxNodes < 0 {
		return fmt.Errorf("optimizer maxNodes must be >= 0, got %d", s.MaxNodes)
	}
	return nil
}

// ValidateLoading checks the settings used by the instance loader
func (c *Config) ValidateLoading() error {
	if c.MaxRequests < 0 {
		return fmt.Errorf("maxRequests must be >= 0, got %d", c.MaxRequests)
	}
	policy, err := ParseTruncationPolicy(c.TruncationName)
	if err != nil {
		return err
	}
	c.Truncation = policy
	return nil
}

// Validate checks a complete run configuration
func (c *Config) Validate() error {
	if c.DatasetPath == "" {
		return fmt.Errorf("dataset path must be set")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path must be set")
	}
	if err := c.ValidateLoading(); err != nil {
		return err
	}
	return c.Optimizer.Validate()
}
