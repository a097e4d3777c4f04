package manager

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/formulation"
)

// Summary of one pipeline run
type RunReport struct {
	Dataset DatasetStats      `json:"dataset" yaml:"dataset"`
	Model   formulation.Stats `json:"model" yaml:"model"`
	Solve   SolveStats        `json:"solve" yaml:"solve"`
	Plan    *PlanStats        `json:"plan,omitempty" yaml:"plan,omitempty"`
	Timings Timings           `json:"timings" yaml:"timings"`
	Error   string            `json:"error,omitempty" yaml:"error,omitempty"`
}

type DatasetStats struct {
	Path             string `json:"path,omitempty" yaml:"path,omitempty"`
	Videos           int    `json:"videos" yaml:"videos"`
	Endpoints        int    `json:"endpoints" yaml:"endpoints"`
	Caches           int    `json:"caches" yaml:"caches"`
	CacheCapacity    int    `json:"cacheCapacity" yaml:"cacheCapacity"`
	Requests         int    `json:"requests" yaml:"requests"`
	DeclaredRequests int    `json:"declaredRequests" yaml:"declaredRequests"`
	Connections      int    `json:"connections" yaml:"connections"`
	Truncation       string `json:"truncation" yaml:"truncation"`
}

type SolveStats struct {
	Backend            string  `json:"backend" yaml:"backend"`
	Outcome            string  `json:"outcome" yaml:"outcome"`
	Status             string  `json:"status" yaml:"status"`
	Objective          float64 `json:"objective" yaml:"objective"`
	BestBound          float64 `json:"bestBound" yaml:"bestBound"`
	Gap                float64 `json:"gap" yaml:"gap"`
	Nodes              int     `json:"nodes" yaml:"nodes"`
	WarmStart          bool    `json:"warmStart" yaml:"warmStart"`
	WarmStartObjective float64 `json:"warmStartObjective,omitempty" yaml:"warmStartObjective,omitempty"`
}

type PlanStats struct {
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Caches     int    `json:"caches" yaml:"caches"`
	Placements int    `json:"placements" yaml:"placements"`
	Score      int    `json:"score" yaml:"score"`
}

type Timings struct {
	LoadMsec   int64 `json:"loadMsec" yaml:"loadMsec"`
	BuildMsec  int64 `json:"buildMsec" yaml:"buildMsec"`
	SolveMsec  int64 `json:"solveMsec" yaml:"solveMsec"`
	DecodeMsec int64 `json:"decodeMsec" yaml:"decodeMsec"`
}

func newDatasetStats(inst *core.ProblemInstance, path, truncation string) DatasetStats {
	return DatasetStats{
		Path:             path,
		Videos:           inst.NumVideos(),
		Endpoints:        inst.NumEndpoints(),
		Caches:           inst.NumCaches(),
		CacheCapacity:    inst.CacheCapacity(),
		Requests:         inst.NumRequests(),
		DeclaredRequests: inst.DeclaredRequests(),
		Connections:      inst.NumConnections(),
		Truncation:       truncation,
	}
}

// WriteReport writes the report as YAML
func WriteReport(fs afero.Fs, path string, r *RunReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadReport reads a report written by WriteReport
func ReadReport(fs afero.Fs, path string) (*RunReport, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r RunReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}
